package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/ytmerge/internal/media"
	"github.com/your-org/ytmerge/internal/models"
	"github.com/your-org/ytmerge/pkg/dto"
)

type ConversionLister interface {
	ListConversions(ctx context.Context, contentID string, limit int) ([]models.ConversionEvent, error)
}

type ConversionHandler struct {
	ledger ConversionLister
}

// NewConversionHandler serves the ledger. ledger may be nil when no database
// is configured.
func NewConversionHandler(ledger ConversionLister) *ConversionHandler {
	return &ConversionHandler{ledger: ledger}
}

// List handles GET /v1/conversions?vId=&limit=.
func (h *ConversionHandler) List(c *gin.Context) {
	if h.ledger == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "conversion ledger is not configured"})
		return
	}

	var q dto.ConversionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid query: " + err.Error()})
		return
	}
	if q.VideoID != "" && !media.ValidID(q.VideoID) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid vId"})
		return
	}

	events, err := h.ledger.ListConversions(c.Request.Context(), q.VideoID, q.Limit)
	if err != nil {
		respondError(c, "list conversions", "failed to list conversions", err)
		return
	}

	resp := make([]dto.ConversionResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, dto.NewConversionResponse(ev))
	}
	c.JSON(http.StatusOK, dto.ConversionListResponse{Conversions: resp, Total: len(resp)})
}
