package audit

import (
	"time"

	id "eucookie/pkg/domain"
)

// Event records one notable moment in a page load's consent setup.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp        time.Time `json:"timestamp"`
	PageID           id.PageID `json:"page_id"`
	Action           string    `json:"action"`
	Scope            string    `json:"scope,omitempty"`
	SettingsRevision uint64    `json:"settings_revision"`
	Device           string    `json:"device,omitempty"`
	NetworkPrefix    string    `json:"network_prefix,omitempty"`
	RequestID        string    `json:"request_id,omitempty"`
	Actor            string    `json:"actor,omitempty"`
}

const (
	// ActionInit mirrors the initializer's notification name.
	ActionInit             = "eucookie.init"
	ActionLibraryLoaded    = "library_loaded"
	ActionInitFailed       = "init_failed"
	ActionSettingsReloaded = "settings_reloaded"
)
