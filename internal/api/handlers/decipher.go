package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/ytmerge/internal/models"
	"github.com/your-org/ytmerge/pkg/dto"
)

type FormatResolver interface {
	ResolveFormats(ctx context.Context, rawURL string) (*models.VideoFormats, error)
}

type DecipherHandler struct {
	resolver FormatResolver
}

func NewDecipherHandler(resolver FormatResolver) *DecipherHandler {
	return &DecipherHandler{resolver: resolver}
}

// Get handles GET /decipher?url=.
func (h *DecipherHandler) Get(c *gin.Context) {
	var q dto.DecipherQuery
	if err := c.ShouldBindQuery(&q); err != nil || q.URL == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "url query parameter is required"})
		return
	}

	vf, err := h.resolver.ResolveFormats(c.Request.Context(), q.URL)
	if err != nil {
		respondError(c, "resolve formats", "failed to resolve video formats", err, "url", q.URL)
		return
	}

	c.JSON(http.StatusOK, dto.DecipherResponse{
		Title:           vf.Title,
		DurationSeconds: vf.DurationSeconds,
		ThumbnailURL:    vf.ThumbnailURL,
		Formats:         vf.Formats,
	})
}
