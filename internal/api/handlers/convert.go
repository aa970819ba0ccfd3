package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/ytmerge/internal/models"
	"github.com/your-org/ytmerge/internal/service"
	"github.com/your-org/ytmerge/pkg/dto"
)

type Converter interface {
	ConvertAndDownload(ctx context.Context, in service.ConvertInput) (*service.ConvertOutput, error)
}

type ConvertHandler struct {
	converter Converter
}

func NewConvertHandler(converter Converter) *ConvertHandler {
	return &ConvertHandler{converter: converter}
}

// Post handles POST /convert. The request blocks until the merged file is
// in the cache.
func (h *ConvertHandler) Post(c *gin.Context) {
	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	out, err := h.converter.ConvertAndDownload(c.Request.Context(), service.ConvertInput{
		AudioURL:  req.AudioURL,
		VideoURL:  req.VideoURL,
		Title:     req.Title,
		ContentID: req.VideoID,
		Quality:   req.Quality,
	})
	if err != nil {
		respondError(c, "convert", "conversion failed", err, "video_id", req.VideoID, "quality", req.Quality)
		return
	}

	c.JSON(http.StatusOK, dto.ConvertResponse{
		DownloadURL: out.DownloadURL,
		Cached:      out.Outcome == models.ConversionCached,
	})
}
