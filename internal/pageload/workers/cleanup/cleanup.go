package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eucookie/internal/pageload/metrics"
)

// PageStore exposes pruning of old page loads.
type PageStore interface {
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
	Count(ctx context.Context) (int, error)
}

// EventStore exposes pruning of the audit trail.
type EventStore interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// CleanupResult summarizes the deletions performed by a cleanup run.
type CleanupResult struct {
	DeletedPages  int
	DeletedEvents int
}

// CleanupService periodically drops page loads and audit events older than the
// retention window. A pruned page takes its gate with it; a later attach for
// that ID is not_found.
type CleanupService struct {
	pages     PageStore
	events    EventStore
	metrics   *metrics.Metrics
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the cleanup interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCleanupMetrics(m *metrics.Metrics) CleanupOption {
	return func(s *CleanupService) {
		s.metrics = m
	}
}

// WithCleanupEvents prunes the audit trail with the same retention window.
func WithCleanupEvents(events EventStore) CleanupOption {
	return func(s *CleanupService) {
		s.events = events
	}
}

func WithCleanupClock(now func() time.Time) CleanupOption {
	return func(s *CleanupService) {
		s.now = now
	}
}

// New constructs a CleanupService. retention must be positive.
func New(pages PageStore, retention time.Duration, opts ...CleanupOption) (*CleanupService, error) {
	if pages == nil {
		return nil, fmt.Errorf("page store is required")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}
	svc := &CleanupService{
		pages:     pages,
		retention: retention,
		interval:  time.Minute,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "page cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce removes every page and audit event older than now minus the
// retention window. Failures are aggregated; one store failing does not stop
// the other from being pruned.
func (s *CleanupService) RunOnce(ctx context.Context) (CleanupResult, error) {
	cutoff := s.now().Add(-s.retention)
	var res CleanupResult
	var errs []error

	deletedPages, err := s.pages.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete pages created before %s: %w", cutoff.Format(time.RFC3339), err))
	} else {
		res.DeletedPages = deletedPages
	}

	if s.events != nil {
		deletedEvents, err := s.events.DeleteBefore(ctx, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete audit events before %s: %w", cutoff.Format(time.RFC3339), err))
		} else {
			res.DeletedEvents = deletedEvents
		}
	}

	if s.metrics != nil {
		s.metrics.AddPruned(res.DeletedPages)
		if count, err := s.pages.Count(ctx); err != nil {
			errs = append(errs, fmt.Errorf("count pages: %w", err))
		} else {
			s.metrics.SetActivePages(count)
		}
	}

	if res.DeletedPages > 0 || res.DeletedEvents > 0 {
		s.logger.InfoContext(ctx, "pruned page loads",
			"pages", res.DeletedPages,
			"events", res.DeletedEvents,
			"cutoff", cutoff,
		)
	}
	return res, errors.Join(errs...)
}
