package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"eucookie/internal/audit"
	"eucookie/internal/banner"
	"eucookie/internal/initializer"
	"eucookie/internal/pageload/device"
	"eucookie/internal/pageload/metrics"
	"eucookie/internal/pageload/models"
	"eucookie/internal/settings"
	id "eucookie/pkg/domain"
	dErrors "eucookie/pkg/domain-errors"
	"eucookie/pkg/platform/privacy"
	"eucookie/pkg/platform/sentinel"
	"eucookie/pkg/platform/tracer"
	"eucookie/pkg/requestcontext"
)

// Store persists page records.
// Error Contract:
// - FindByID and Update return sentinel.ErrNotFound for unknown pages
// - Save returns sentinel.ErrConflict for duplicate IDs
type Store interface {
	Save(ctx context.Context, record *models.Record) error
	FindByID(ctx context.Context, pageID id.PageID) (*models.Record, error)
	Update(ctx context.Context, pageID id.PageID, fn func(*models.Record) error) (*models.Record, error)
	List(ctx context.Context) ([]models.Page, error)
}

// SettingsSource supplies the site options passed to the consent library.
type SettingsSource interface {
	Current() *settings.Options
	Reload(ctx context.Context) (*settings.Options, error)
}

// AuditPublisher records the init-event trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
	ListByPage(ctx context.Context, pageID id.PageID) ([]audit.Event, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

type Option func(*Service)

// Service runs the page-load lifecycle: every page gets its own one-shot
// initializer gated on that page's consent library slot.
type Service struct {
	store    Store
	settings SettingsSource
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   tracer.Tracer
	now      func() time.Time
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store Store, source SettingsSource, auditor AuditPublisher, opts ...Option) *Service {
	svc := &Service{
		store:    store,
		settings: source,
		auditor:  auditor,
		logger:   slog.Default(),
		tracer:   tracer.NewNoop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create registers a new page load with an empty library slot.
func (s *Service) Create(ctx context.Context) (*models.Page, error) {
	page := models.Page{
		ID:        id.NewPageID(),
		CreatedAt: s.now(),
		Device:    device.Describe(requestcontext.UserAgent(ctx)),
	}

	slot := &initializer.Slot{}
	runtime := &models.Runtime{
		Slot:   slot,
		Banner: banner.New(banner.WithLogger(s.logger), banner.WithClock(s.now)),
	}
	runtime.Gate = initializer.New(slot,
		initializer.WithLogger(s.logger.With("page_id", page.ID.String())),
		initializer.WithTracer(s.tracer),
		initializer.WithClock(s.now),
		initializer.WithListener(s.auditListener(page)),
		initializer.WithListener(s.metricsListener()),
	)

	if err := s.store.Save(ctx, &models.Record{Page: page, Runtime: runtime}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save page")
	}
	if s.metrics != nil {
		s.metrics.IncrementPagesCreated()
	}
	s.logger.InfoContext(ctx, "page load registered",
		"page_id", page.ID.String(),
		"device", page.Device,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &page, nil
}

// Attach runs one attach cycle for the page with the current site options.
// Library failures are returned after the page's attach count and last
// outcome are recorded; the page can be attached again to retry.
func (s *Service) Attach(ctx context.Context, pageID id.PageID, scope string) (result *models.AttachResult, err error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanPageAttach,
		tracer.String(tracer.AttrPageID, pageID.String()),
		tracer.String(tracer.AttrScope, scope),
	)
	defer func() { span.End(err) }()

	record, err := s.find(ctx, pageID)
	if err != nil {
		return nil, err
	}

	opts := s.settings.Current()
	outcome, initErr := record.Runtime.Gate.Attempt(ctx, scope, opts)
	if s.metrics != nil {
		s.metrics.IncrementAttach(string(outcome))
		s.metrics.ObserveAttach(start)
	}

	updated, err := s.store.Update(ctx, pageID, func(r *models.Record) error {
		r.Page.AttachCount++
		r.Page.LastOutcome = string(outcome)
		if outcome == initializer.OutcomeInitialized {
			at := s.now()
			r.Page.InitializedAt = &at
		}
		return nil
	})
	if err != nil {
		return nil, s.translateStoreErr(err, "failed to record attach")
	}

	if initErr != nil {
		s.emit(ctx, audit.Event{
			PageID:           pageID,
			Action:           audit.ActionInitFailed,
			Scope:            scope,
			SettingsRevision: settings.RevisionOf(opts),
			Device:           updated.Page.Device,
		})
		return nil, libraryError(initErr)
	}

	span.SetAttributes(tracer.String(tracer.AttrOutcome, string(outcome)))
	return &models.AttachResult{
		Outcome: outcome,
		Fired:   record.Runtime.Gate.Fired(),
		Page:    updated.Page,
	}, nil
}

// LibraryLoaded installs the page's consent library so the next attach can
// initialize it. Reporting it again is a no-op.
func (s *Service) LibraryLoaded(ctx context.Context, pageID id.PageID) (*models.Page, error) {
	firstLoad := false
	updated, err := s.store.Update(ctx, pageID, func(r *models.Record) error {
		if r.Page.LibraryLoaded {
			return nil
		}
		firstLoad = true
		at := s.now()
		r.Page.LibraryLoaded = true
		r.Page.LibraryLoadedAt = &at
		r.Runtime.Slot.Install(r.Runtime.Banner)
		return nil
	})
	if err != nil {
		return nil, s.translateStoreErr(err, "failed to record library load")
	}

	if firstLoad {
		if s.metrics != nil {
			s.metrics.IncrementLibrariesLoaded()
		}
		s.emit(ctx, audit.Event{
			PageID: pageID,
			Action: audit.ActionLibraryLoaded,
			Device: updated.Page.Device,
		})
	}
	return &updated.Page, nil
}

func (s *Service) Get(ctx context.Context, pageID id.PageID) (*models.Page, error) {
	record, err := s.find(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return &record.Page, nil
}

// Banner returns the banner configuration once the page's library is initialized.
func (s *Service) Banner(ctx context.Context, pageID id.PageID) (*models.BannerView, error) {
	record, err := s.find(ctx, pageID)
	if err != nil {
		return nil, err
	}
	state, ok := record.Runtime.Banner.State()
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "consent banner not initialized for this page")
	}
	return &models.BannerView{
		Settings:      state,
		InitializedAt: record.Runtime.Banner.InitializedAt(),
	}, nil
}

// Events lists the page's init-event trail in emission order.
func (s *Service) Events(ctx context.Context, pageID id.PageID) ([]audit.Event, error) {
	if _, err := s.find(ctx, pageID); err != nil {
		return nil, err
	}
	events, err := s.auditor.ListByPage(ctx, pageID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

// RecentEvents lists the newest audit events across all pages, including
// settings reloads, which belong to no page.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]audit.Event, error) {
	events, err := s.auditor.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

func (s *Service) List(ctx context.Context) ([]models.Page, error) {
	pages, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pages")
	}
	return pages, nil
}

// ReloadSettings re-reads the site settings. Pages that already initialized
// keep the options they were initialized with.
func (s *Service) ReloadSettings(ctx context.Context) (*settings.Options, error) {
	opts, err := s.settings.Reload(ctx)
	if err != nil {
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload settings")
	}
	s.emit(ctx, audit.Event{
		Action:           audit.ActionSettingsReloaded,
		SettingsRevision: settings.RevisionOf(opts),
		Actor:            requestcontext.AdminActor(ctx),
	})
	return opts, nil
}

func (s *Service) find(ctx context.Context, pageID id.PageID) (*models.Record, error) {
	if pageID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "page ID required")
	}
	record, err := s.store.FindByID(ctx, pageID)
	if err != nil {
		return nil, s.translateStoreErr(err, "failed to load page")
	}
	return record, nil
}

// libraryError reports options the library rejects as a server fault: they
// come from the site settings file, not from the browser.
func libraryError(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
		return &dErrors.Error{
			Code:    dErrors.CodeInternal,
			Message: "site settings rejected by consent library",
			Err:     err,
		}
	}
	return err
}

func (s *Service) translateStoreErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "page not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// auditListener records the init notification for page.
func (s *Service) auditListener(page models.Page) initializer.Listener {
	return func(ctx context.Context, n initializer.Notification) {
		s.emit(ctx, audit.Event{
			Timestamp:        n.At,
			PageID:           page.ID,
			Action:           n.Name,
			Scope:            n.Scope,
			SettingsRevision: settings.RevisionOf(n.Options),
			Device:           page.Device,
		})
	}
}

func (s *Service) metricsListener() initializer.Listener {
	return func(context.Context, initializer.Notification) {
		if s.metrics != nil {
			s.metrics.IncrementNotifications()
		}
	}
}

// emit fills request attribution and never fails the caller.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.NetworkPrefix = privacy.AnonymizeIP(requestcontext.ClientIP(ctx))
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"action", event.Action,
			"page_id", event.PageID.String(),
		)
	}
}
