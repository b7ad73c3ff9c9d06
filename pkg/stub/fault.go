package stub

// Fault tags a response that must be delivered in a deliberately broken way.
type Fault string

// Supported faults.
const (
	// FaultEmptyResponse closes the connection without writing anything.
	FaultEmptyResponse Fault = "EMPTY_RESPONSE"
	// FaultMalformedResponseChunk writes a valid status line then garbage and closes.
	FaultMalformedResponseChunk Fault = "MALFORMED_RESPONSE_CHUNK"
	// FaultRandomDataThenClose writes random bytes and closes.
	FaultRandomDataThenClose Fault = "RANDOM_DATA_THEN_CLOSE"
)

// Valid reports whether f is empty or a known fault.
func (f Fault) Valid() bool {
	switch f {
	case "", FaultEmptyResponse, FaultMalformedResponseChunk, FaultRandomDataThenClose:
		return true
	}
	return false
}
