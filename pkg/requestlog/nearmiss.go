package requestlog

// NearMissInfo is a log-friendly summary of a near-miss match.
// Stored on journal entries for unmatched requests.
type NearMissInfo struct {
	// MappingID is the ID of the mapping that partially matched.
	MappingID string `json:"mappingId"`

	// MappingName is the display name of the mapping (may be empty).
	MappingName string `json:"mappingName,omitempty"`

	// MatchPercentage is how close the match was (0-100).
	MatchPercentage int `json:"matchPercentage"`

	// Reason is a human-readable explanation of why it didn't fully match.
	Reason string `json:"reason"`
}
