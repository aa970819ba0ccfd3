package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/your-org/ytmerge/internal/models"
)

type ConversionQuery struct {
	VideoID string `form:"vId"`
	Limit   int    `form:"limit"`
}

type ConversionResponse struct {
	ID         uuid.UUID `json:"id"`
	CacheKey   string    `json:"cache_key"`
	ContentID  string    `json:"content_id"`
	Title      string    `json:"title"`
	Quality    string    `json:"quality"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  string    `json:"created_at"`
}

func NewConversionResponse(ev models.ConversionEvent) ConversionResponse {
	return ConversionResponse{
		ID:         ev.ID,
		CacheKey:   ev.CacheKey,
		ContentID:  ev.ContentID,
		Title:      ev.Title,
		Quality:    ev.Quality,
		Outcome:    string(ev.Outcome),
		Error:      ev.Error,
		DurationMs: ev.DurationMs,
		CreatedAt:  ev.Timestamp.UTC().Format(time.RFC3339),
	}
}

type ConversionListResponse struct {
	Conversions []ConversionResponse `json:"conversions"`
	Total       int                  `json:"total"`
}

// WSEvent is pushed to WebSocket clients for every conversion.
type WSEvent struct {
	Type      string             `json:"type"`
	ContentID string             `json:"content_id"`
	Data      ConversionResponse `json:"data"`
}
