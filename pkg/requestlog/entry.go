package requestlog

import (
	"time"

	"github.com/getmockd/stubd/pkg/request"
)

// Entry is one journalled request.
type Entry struct {
	ID string `json:"id"`

	// Request is the request as received.
	Request *request.Request `json:"request"`

	// Body is the request body as text, truncated for display.
	Body string `json:"body,omitempty"`

	// WasMatched reports whether a mapping answered the request.
	WasMatched bool `json:"wasMatched"`

	// MappingID is the id of the mapping that answered (empty if none).
	MappingID string `json:"stubMappingId,omitempty"`

	ResponseStatus int       `json:"responseStatus"`
	LoggedAt       time.Time `json:"loggedDate"`
	DurationMs     int64     `json:"durationMs"`

	// Error contains the render failure, if any.
	Error string `json:"error,omitempty"`

	// NearMisses lists the closest mappings of an unmatched request.
	NearMisses []NearMissInfo `json:"nearMisses,omitempty"`
}

// maxBodyPreview bounds Entry.Body (10KB).
const maxBodyPreview = 10 * 1024

// NewEntry starts an entry for req.
func NewEntry(req *request.Request) *Entry {
	body := req.BodyString()
	if len(body) > maxBodyPreview {
		body = body[:maxBodyPreview]
	}
	return &Entry{
		Request:  req,
		Body:     body,
		LoggedAt: req.LoggedAt,
	}
}
