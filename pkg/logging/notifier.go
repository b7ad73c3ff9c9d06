package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// Notifier receives diagnostic messages. Implementations must not fail the caller.
type Notifier interface {
	Info(msg string)
	Error(msg string, err error)
}

// NopNotifier discards everything.
type NopNotifier struct{}

func (NopNotifier) Info(string)         {}
func (NopNotifier) Error(string, error) {}

// SlogNotifier forwards messages to a logger.
type SlogNotifier struct {
	log *slog.Logger
}

// NewSlogNotifier wraps log; nil selects Nop().
func NewSlogNotifier(log *slog.Logger) *SlogNotifier {
	if log == nil {
		log = Nop()
	}
	return &SlogNotifier{log: log}
}

// Info logs msg at debug level; per-response notes are noisy at info.
func (n *SlogNotifier) Info(msg string) { n.log.Debug(msg) }

// Error logs msg and err at error level.
func (n *SlogNotifier) Error(msg string, err error) { n.log.Error(msg, "error", err) }

// ColorScheme holds the console colours.
type ColorScheme struct {
	Timestamp *color.Color
	Info      *color.Color
	Error     *color.Color
	Detail    *color.Color
}

// DefaultColorScheme returns the default console colours.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Timestamp: color.New(color.FgHiBlack),
		Info:      color.New(color.FgGreen),
		Error:     color.New(color.FgRed, color.Bold),
		Detail:    color.New(color.FgHiYellow),
	}
}

// ConsoleNotifier prints messages to a terminal.
type ConsoleNotifier struct {
	mu     sync.Mutex
	out    io.Writer
	colors *ColorScheme
	now    func() time.Time
}

// NewConsoleNotifier writes to out (os.Stdout when nil). Colour follows the
// terminal detection of fatih/color.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleNotifier{out: out, colors: DefaultColorScheme(), now: time.Now}
}

// Info prints msg.
func (n *ConsoleNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.colors.Timestamp.Fprint(n.out, n.now().Format("15:04:05.000")+" ")
	n.colors.Info.Fprintln(n.out, msg)
}

// Error prints msg and err.
func (n *ConsoleNotifier) Error(msg string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.colors.Timestamp.Fprint(n.out, n.now().Format("15:04:05.000")+" ")
	n.colors.Error.Fprint(n.out, msg)
	if err != nil {
		n.colors.Detail.Fprint(n.out, ": "+err.Error())
	}
	fmt.Fprintln(n.out)
}

// Bytes formats a byte count for humans, e.g. "1.2 kB".
func Bytes(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
