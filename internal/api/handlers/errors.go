package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/ytmerge/internal/service"
	"github.com/your-org/ytmerge/pkg/dto"
)

// respondError answers 400 with the validation message for bad input and a
// generic 500 otherwise. Internal detail only goes to the log.
func respondError(c *gin.Context, op, public string, err error, attrs ...any) {
	if service.IsBadRequest(err) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	args := append([]any{"op", op, "request_id", c.GetString("request_id"), "error", err}, attrs...)
	slog.Error("request failed", args...)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: public})
}
