package models

import (
	"time"

	"eucookie/internal/banner"
	"eucookie/internal/initializer"
	id "eucookie/pkg/domain"
)

// Page is one page load as reported by the browser: it exists from the first
// request until it is pruned, and owns exactly one initialization gate.
type Page struct {
	ID              id.PageID  `json:"id"`
	CreatedAt       time.Time  `json:"created_at"`
	Device          string     `json:"device"`
	AttachCount     int        `json:"attach_count"`
	LibraryLoaded   bool       `json:"library_loaded"`
	LibraryLoadedAt *time.Time `json:"library_loaded_at,omitempty"`
	InitializedAt   *time.Time `json:"initialized_at,omitempty"`
	LastOutcome     string     `json:"last_outcome,omitempty"`
}

// Initialized reports whether the consent library ran for this page.
func (p Page) Initialized() bool {
	return p.InitializedAt != nil
}

// Runtime holds the live objects behind a page. The pointers never change
// after creation and each object is safe for concurrent use.
type Runtime struct {
	Gate   *initializer.Initializer
	Slot   *initializer.Slot
	Banner *banner.Library
}

// Record is what the store keeps per page.
type Record struct {
	Page    Page
	Runtime *Runtime
}

// BannerView is a page's effective banner configuration.
type BannerView struct {
	Settings      banner.Settings `json:"settings"`
	InitializedAt time.Time       `json:"initialized_at"`
}

// AttachResult is returned by one attach cycle.
type AttachResult struct {
	Outcome initializer.Outcome `json:"outcome"`
	Fired   bool                `json:"fired"`
	Page    Page                `json:"page"`
}
