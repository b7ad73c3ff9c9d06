package engine

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"

	"github.com/getmockd/stubd/pkg/stub"
)

// ErrHijackUnsupported is returned when a fault cannot take over the connection.
var ErrHijackUnsupported = errors.New("connection hijacking not supported")

const (
	randomFaultBytes = 1024
	garbageChunk     = "lskdu018973t09sylgasjkfg1][]'./.sdlv"
)

// writeFault takes over the client connection and misbehaves on it as the
// fault describes. The connection is always closed afterwards.
func writeFault(w http.ResponseWriter, status int, fault stub.Fault) error {
	hj, ok := w.(http.Hijacker)
	if !ok {
		return ErrHijackUnsupported
	}
	conn, buf, err := hj.Hijack()
	if err != nil {
		return fmt.Errorf("hijacking connection: %w", err)
	}
	defer conn.Close()

	switch fault {
	case stub.FaultEmptyResponse:
		return nil
	case stub.FaultMalformedResponseChunk:
		fmt.Fprintf(buf, "HTTP/1.1 %d %s\r\nTransfer-Encoding: chunked\r\n\r\n", status, http.StatusText(status))
		fmt.Fprintf(buf, "%x\r\n%s\r\n", len(garbageChunk)+10, garbageChunk)
	case stub.FaultRandomDataThenClose:
		junk := make([]byte, randomFaultBytes)
		_, _ = rand.Read(junk)
		_, _ = buf.Write(junk)
	default:
		return fmt.Errorf("unknown fault %q", fault)
	}
	return buf.Flush()
}
