// Package initializer runs a consent library's initialization at most once.
//
// An Initializer is attempted on every attach cycle of its host. The first
// attempt that finds the library available notifies listeners with the
// options, calls Library.Init with the same options, and closes the gate.
// Attempts before that are no-ops that leave the gate open; attempts after
// it are no-ops.
//
// A failed Init leaves the gate open so a later attach can retry. Concurrent
// attempts share one in-flight initialization.
package initializer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"eucookie/internal/settings"
	dErrors "eucookie/pkg/domain-errors"
	"eucookie/pkg/platform/tracer"
)

// EventInit is the notification name broadcast before the library initializes.
const EventInit = "eucookie.init"

const flightKey = "init"

// Outcome describes what a single Attempt did.
type Outcome string

const (
	// OutcomeAlreadyFired means a previous attempt already initialized the library.
	OutcomeAlreadyFired Outcome = "already_fired"
	// OutcomeDeferred means the library was not available; the gate stays open.
	OutcomeDeferred Outcome = "deferred"
	// OutcomeInitialized means this attempt notified listeners and initialized the library.
	OutcomeInitialized Outcome = "initialized"
	// OutcomeFailed means the library (or a listener) failed; the gate stays open.
	OutcomeFailed Outcome = "failed"
)

// Notification is delivered to listeners before Library.Init runs.
// Options is the exact pointer later passed to Init.
type Notification struct {
	Name    string
	Scope   string
	Options *settings.Options
	At      time.Time
}

// Listener observes the init notification. Listeners run synchronously in
// subscription order; a panicking listener aborts the attempt.
type Listener func(ctx context.Context, n Notification)

type subscription struct {
	id uint64
	fn Listener
}

// Initializer owns one initialization gate.
type Initializer struct {
	locator Locator
	logger  *slog.Logger
	tracer  tracer.Tracer
	now     func() time.Time

	fired  atomic.Bool
	flight singleflight.Group

	mu        sync.RWMutex
	nextID    uint64
	listeners []subscription
}

type Option func(*Initializer)

func WithLogger(logger *slog.Logger) Option {
	return func(i *Initializer) {
		i.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(i *Initializer) {
		i.tracer = t
	}
}

// WithClock overrides time.Now for notification timestamps.
func WithClock(now func() time.Time) Option {
	return func(i *Initializer) {
		i.now = now
	}
}

// WithListener subscribes l at construction time.
func WithListener(l Listener) Option {
	return func(i *Initializer) {
		i.Subscribe(l)
	}
}

// New builds an Initializer gated on locator. A nil locator never finds the library.
func New(locator Locator, opts ...Option) *Initializer {
	i := &Initializer{
		locator: locator,
		logger:  slog.Default(),
		tracer:  tracer.NewNoop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Subscribe registers l and returns a function that removes it.
func (i *Initializer) Subscribe(l Listener) (unsubscribe func()) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.nextID++
	id := i.nextID
	i.listeners = append(i.listeners, subscription{id: id, fn: l})

	var once sync.Once
	return func() {
		once.Do(func() { i.unsubscribe(id) })
	}
}

func (i *Initializer) unsubscribe(id uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for idx, sub := range i.listeners {
		if sub.id == id {
			i.listeners = append(i.listeners[:idx:idx], i.listeners[idx+1:]...)
			return
		}
	}
}

// Fired reports whether the library has been initialized.
func (i *Initializer) Fired() bool {
	return i.fired.Load()
}

// Reset reopens the gate. Only tests should need this.
func (i *Initializer) Reset() {
	i.fired.Store(false)
}

// Attempt runs one attach cycle. scope identifies the content being processed
// and is only used for tracing and the notification; opts may be nil.
//
// Init errors are returned wrapped as domain errors (keeping the library's
// code when it returned one) and leave the gate open.
func (i *Initializer) Attempt(ctx context.Context, scope string, opts *settings.Options) (outcome Outcome, err error) {
	ctx, span := i.tracer.Start(ctx, tracer.SpanAttempt, tracer.String(tracer.AttrScope, scope))
	defer func() {
		span.SetAttributes(tracer.String(tracer.AttrOutcome, string(outcome)))
		span.End(err)
	}()

	if i.fired.Load() {
		return OutcomeAlreadyFired, nil
	}

	lib, ok := i.lookup()
	if !ok {
		i.logger.DebugContext(ctx, "consent library not available, deferring", "scope", scope)
		return OutcomeDeferred, nil
	}

	led := false
	_, err, _ = i.flight.Do(flightKey, func() (any, error) {
		// Another flight may have finished between the check above and this one starting.
		if i.fired.Load() {
			return nil, nil
		}
		led = true
		if err := i.run(ctx, lib, scope, opts); err != nil {
			return nil, err
		}
		i.fired.Store(true)
		return nil, nil
	})
	switch {
	case err != nil:
		return OutcomeFailed, err
	case led:
		return OutcomeInitialized, nil
	default:
		return OutcomeAlreadyFired, nil
	}
}

func (i *Initializer) lookup() (Library, bool) {
	if i.locator == nil {
		return nil, false
	}
	lib, ok := i.locator.Lookup()
	if !ok || lib == nil {
		return nil, false
	}
	return lib, true
}

func (i *Initializer) run(ctx context.Context, lib Library, scope string, opts *settings.Options) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = dErrors.Wrap(fmt.Errorf("panic: %v", r), dErrors.CodeInternal, "init listener panicked")
		}
		if err != nil {
			i.logger.ErrorContext(ctx, "consent library init failed, gate left open",
				"scope", scope,
				"settings_revision", settings.RevisionOf(opts),
				"error", err,
			)
		}
	}()

	n := Notification{Name: EventInit, Scope: scope, Options: opts, At: i.now()}
	listeners := i.snapshot()
	for _, l := range listeners {
		l.fn(ctx, n)
	}

	if err := i.initLibrary(ctx, lib, opts, len(listeners)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "consent library init failed")
	}

	i.logger.InfoContext(ctx, "consent library initialized",
		"scope", scope,
		"settings_revision", settings.RevisionOf(opts),
	)
	return nil
}

func (i *Initializer) initLibrary(ctx context.Context, lib Library, opts *settings.Options, notified int) (err error) {
	ctx, span := i.tracer.Start(ctx, tracer.SpanLibraryInit)
	span.AddEvent(tracer.EventNotified, tracer.Int64("listeners", int64(notified)))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("consent library panicked: %v", r)
		}
		span.End(err)
	}()
	return lib.Init(ctx, opts)
}

func (i *Initializer) snapshot() []subscription {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]subscription(nil), i.listeners...)
}
