package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "eucookie/pkg/domain"
)

// Publisher captures audit events. It is append-only and delegates
// persistence to a Store so tests can swap sinks easily.
type Publisher struct {
	store  Store
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	now    func() time.Time
	async  bool

	closeOnce sync.Once
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer queues events and persists them in a background goroutine.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"page_id", event.PageID,
			)
		}
	}
}

// Close stops the async worker after pending events drain. Safe to call twice.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.async {
			close(p.events)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if p.async {
		// Never block the attach path on a full buffer.
		select {
		case p.events <- event:
		default:
			p.logger.WarnContext(ctx, "audit buffer full, event dropped",
				"action", event.Action,
				"page_id", event.PageID,
			)
		}
		return nil
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) ListByPage(ctx context.Context, pageID id.PageID) ([]Event, error) {
	return p.store.ListByPage(ctx, pageID)
}

func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	return p.store.ListRecent(ctx, limit)
}

// DeleteBefore prunes the underlying store.
func (p *Publisher) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return p.store.DeleteBefore(ctx, cutoff)
}
