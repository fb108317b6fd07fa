package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"eucookie/internal/audit"
	"eucookie/internal/pageload/models"
	"eucookie/internal/settings"
	id "eucookie/pkg/domain"
	dErrors "eucookie/pkg/domain-errors"
	"eucookie/pkg/platform/httputil"
	"eucookie/pkg/platform/validation"
	"eucookie/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks Service

// Service defines the page-load operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context) (*models.Page, error)
	Get(ctx context.Context, pageID id.PageID) (*models.Page, error)
	Attach(ctx context.Context, pageID id.PageID, scope string) (*models.AttachResult, error)
	LibraryLoaded(ctx context.Context, pageID id.PageID) (*models.Page, error)
	Banner(ctx context.Context, pageID id.PageID) (*models.BannerView, error)
	Events(ctx context.Context, pageID id.PageID) ([]audit.Event, error)
	RecentEvents(ctx context.Context, limit int) ([]audit.Event, error)
	List(ctx context.Context) ([]models.Page, error)
	ReloadSettings(ctx context.Context) (*settings.Options, error)
}

// Handler serves the page-load endpoints.
type Handler struct {
	logger *slog.Logger
	pages  Service
}

func New(pages Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		pages:  pages,
	}
}

// Register registers the public page routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/pages", h.HandleCreate)
	r.Get("/pages/{id}", h.HandleGet)
	r.Post("/pages/{id}/attach", h.HandleAttach)
	r.Post("/pages/{id}/library", h.HandleLibraryLoaded)
	r.Get("/pages/{id}/banner", h.HandleBanner)
	r.Get("/pages/{id}/events", h.HandleEvents)
}

// RegisterAdmin registers the operator routes. The caller mounts them behind
// admin authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/pages", h.HandleList)
	r.Get("/admin/events", h.HandleRecentEvents)
	r.Post("/admin/settings/reload", h.HandleReloadSettings)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := h.pages.Create(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to register page",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, page)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pageID, ok := h.pageID(w, r)
	if !ok {
		return
	}
	page, err := h.pages.Get(ctx, pageID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to get page", pageID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// HandleAttach runs one attach cycle for the page. An attach that finds no
// library yet still succeeds with outcome "deferred".
func (h *Handler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	pageID, ok := h.pageID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AttachRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.pages.Attach(ctx, pageID, req.Scope)
	if err != nil {
		h.writeServiceError(ctx, w, "attach failed", pageID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleLibraryLoaded(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pageID, ok := h.pageID(w, r)
	if !ok {
		return
	}
	page, err := h.pages.LibraryLoaded(ctx, pageID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to record library load", pageID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) HandleBanner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pageID, ok := h.pageID(w, r)
	if !ok {
		return
	}
	view, err := h.pages.Banner(ctx, pageID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to get banner", pageID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BannerResponse{
		PageID:        pageID.String(),
		Settings:      view.Settings,
		InitializedAt: view.InitializedAt,
	})
}

func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pageID, ok := h.pageID(w, r)
	if !ok {
		return
	}
	events, err := h.pages.Events(ctx, pageID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list events", pageID, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, EventsResponse{PageID: pageID.String(), Events: events})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pages, err := h.pages.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list pages",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if pages == nil {
		pages = []models.Page{}
	}
	httputil.WriteJSON(w, http.StatusOK, PageListResponse{Pages: pages, Total: len(pages)})
}

// HandleRecentEvents returns the newest audit events across all pages,
// newest first. ?limit=N caps the count.
func (h *Handler) HandleRecentEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := parseEventsLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.logger.WarnContext(ctx, "invalid events limit",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	events, err := h.pages.RecentEvents(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list recent events",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, RecentEventsResponse{Events: events, Total: len(events)})
}

func (h *Handler) HandleReloadSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts, err := h.pages.ReloadSettings(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "settings reload failed",
			"request_id", requestcontext.RequestID(ctx),
			"actor", requestcontext.AdminActor(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "settings reloaded",
		"request_id", requestcontext.RequestID(ctx),
		"actor", requestcontext.AdminActor(ctx),
		"revision", settings.RevisionOf(opts),
	)
	httputil.WriteJSON(w, http.StatusOK, toReloadResponse(opts))
}

func parseEventsLimit(raw string) (int, error) {
	if raw == "" {
		return validation.DefaultEventsLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > validation.MaxEventsLimit {
		return 0, dErrors.New(dErrors.CodeValidation,
			"limit must be an integer between 1 and "+strconv.Itoa(validation.MaxEventsLimit))
	}
	return limit, nil
}

func (h *Handler) pageID(w http.ResponseWriter, r *http.Request) (id.PageID, bool) {
	pageID, err := id.ParsePageID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid page ID",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, err)
		return id.PageID{}, false
	}
	return pageID, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, pageID id.PageID, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"page_id", pageID.String(),
		"error", err,
	)
	httputil.WriteError(w, err)
}
