package initializer

import (
	"context"
	"sync"

	"eucookie/internal/settings"
)

// Library is the consent library's initialization entry point. Its options
// contract belongs to the library; the initializer passes options through untouched.
type Library interface {
	Init(ctx context.Context, opts *settings.Options) error
}

// Locator reports whether the consent library is available right now.
// Absence is a normal state, not an error.
type Locator interface {
	Lookup() (Library, bool)
}

// LocatorFunc adapts a plain function to Locator.
type LocatorFunc func() (Library, bool)

func (f LocatorFunc) Lookup() (Library, bool) { return f() }

// Slot holds a library that may be installed after the initializer is built,
// e.g. once the consent library script finishes loading on the page.
// The zero value is an empty slot and is safe for concurrent use.
type Slot struct {
	mu  sync.RWMutex
	lib Library
}

// Install makes lib available. Installing nil empties the slot.
func (s *Slot) Install(lib Library) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lib = lib
}

// Remove empties the slot.
func (s *Slot) Remove() {
	s.Install(nil)
}

func (s *Slot) Lookup() (Library, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lib, s.lib != nil
}

var (
	_ Locator = (*Slot)(nil)
	_ Locator = LocatorFunc(nil)
)
