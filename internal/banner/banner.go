// Package banner is the consent library the initializer bootstraps. It turns
// the site options into the banner configuration a page renders with.
//
// A Library initializes once; a second Init is a conflict. The one-shot gate
// in package initializer is what keeps repeated attach cycles from reaching it.
package banner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"eucookie/internal/settings"
	dErrors "eucookie/pkg/domain-errors"
)

// Library holds one page's banner state.
type Library struct {
	logger *slog.Logger
	now    func() time.Time

	mu            sync.RWMutex
	state         Settings
	initialized   bool
	initializedAt time.Time
}

type Option func(*Library)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Library) {
		l.now = now
	}
}

func New(opts ...Option) *Library {
	l := &Library{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Init applies opts. Invalid options leave the library uninitialized.
func (l *Library) Init(ctx context.Context, opts *settings.Options) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "banner init cancelled")
	}

	decoded, err := Decode(opts)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.initialized {
		return dErrors.New(dErrors.CodeConflict, "banner already initialized")
	}
	l.state = decoded
	l.initialized = true
	l.initializedAt = l.now()

	l.logger.DebugContext(ctx, "banner initialized",
		"popup_enabled", decoded.PopupEnabled,
		"cookie_name", decoded.CookieName,
		"settings_revision", settings.RevisionOf(opts),
	)
	return nil
}

// State returns the banner configuration and whether Init has succeeded.
func (l *Library) State() (Settings, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.initialized
}

// InitializedAt returns when Init succeeded, or the zero time.
func (l *Library) InitializedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.initializedAt
}
