package requestlog

import (
	"errors"

	"github.com/getmockd/stubd/pkg/request"
)

// ErrDisabled is returned by queries against a disabled journal.
var ErrDisabled = errors.New("request journal is disabled")

// Matcher selects requests. *matching.RequestPattern implements it.
type Matcher interface {
	Matches(req *request.Request) bool
}

// Logger is the minimal interface for recording journal entries.
type Logger interface {
	Log(entry *Entry)
}

// Store defines the request journal.
// Store embeds Logger, so any Store implementation can be used where Logger is expected.
type Store interface {
	Logger

	// Enabled reports whether entries are being kept.
	Enabled() bool

	// Get retrieves an entry by ID.
	Get(id string) *Entry

	// List returns entries newest first, optionally filtered.
	List(filter *Filter) ([]*Entry, error)

	// Find returns the entries whose request m matches, oldest first.
	Find(m Matcher) ([]*Entry, error)

	// CountMatching counts the entries whose request m matches.
	CountMatching(m Matcher) (int, error)

	// Clear removes all entries.
	Clear()

	// Count returns the number of entries.
	Count() int
}

// Filter defines criteria for listing journal entries.
type Filter struct {
	// Method filters by HTTP method.
	Method string

	// Path filters by path prefix.
	Path string

	// MappingID filters by the answering mapping.
	MappingID string

	// Unmatched keeps only requests no mapping answered.
	Unmatched bool

	// StatusCode filters by response status code.
	StatusCode int

	// Limit is the maximum number of entries to return.
	Limit int

	// Offset is the number of entries to skip.
	Offset int
}

// Disabled is a Store that records nothing.
type Disabled struct{}

var _ Store = Disabled{}

func (Disabled) Log(*Entry)                         {}
func (Disabled) Enabled() bool                      { return false }
func (Disabled) Get(string) *Entry                  { return nil }
func (Disabled) List(*Filter) ([]*Entry, error)     { return nil, ErrDisabled }
func (Disabled) Find(Matcher) ([]*Entry, error)     { return nil, ErrDisabled }
func (Disabled) CountMatching(Matcher) (int, error) { return 0, ErrDisabled }
func (Disabled) Clear()                             {}
func (Disabled) Count() int                         { return 0 }
