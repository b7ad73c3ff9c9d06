package engine

import "sync/atomic"

// Settings are the process-wide rendering defaults.
type Settings struct {
	// FixedDelay in milliseconds applies to responses that declare no delay.
	FixedDelay *int `json:"fixedDelay,omitempty"`
}

// GlobalSettingsHolder publishes Settings atomically. The zero value holds
// empty Settings.
type GlobalSettingsHolder struct {
	v atomic.Pointer[Settings]
}

// NewGlobalSettingsHolder creates a holder with s.
func NewGlobalSettingsHolder(s Settings) *GlobalSettingsHolder {
	h := &GlobalSettingsHolder{}
	h.Replace(s)
	return h
}

// Get returns the current settings.
func (h *GlobalSettingsHolder) Get() Settings {
	if s := h.v.Load(); s != nil {
		return *s
	}
	return Settings{}
}

// Replace swaps in s.
func (h *GlobalSettingsHolder) Replace(s Settings) {
	if s.FixedDelay != nil {
		d := *s.FixedDelay
		s.FixedDelay = &d
	}
	h.v.Store(&s)
}
