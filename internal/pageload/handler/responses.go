package handler

import (
	"time"

	"eucookie/internal/audit"
	"eucookie/internal/banner"
	"eucookie/internal/pageload/models"
	"eucookie/internal/settings"
)

type BannerResponse struct {
	PageID        string          `json:"page_id"`
	Settings      banner.Settings `json:"settings"`
	InitializedAt time.Time       `json:"initialized_at,omitzero"`
}

type EventsResponse struct {
	PageID string        `json:"page_id"`
	Events []audit.Event `json:"events"`
}

type RecentEventsResponse struct {
	Events []audit.Event `json:"events"`
	Total  int           `json:"total"`
}

type PageListResponse struct {
	Pages []models.Page `json:"pages"`
	Total int           `json:"total"`
}

type ReloadResponse struct {
	Revision uint64    `json:"revision"`
	Source   string    `json:"source,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitzero"`
	Keys     int       `json:"keys"`
}

func toReloadResponse(opts *settings.Options) ReloadResponse {
	if opts == nil {
		return ReloadResponse{}
	}
	return ReloadResponse{
		Revision: opts.Revision,
		Source:   opts.Source,
		LoadedAt: opts.LoadedAt,
		Keys:     len(opts.Values),
	}
}
