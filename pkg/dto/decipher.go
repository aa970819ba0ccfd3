package dto

import "github.com/your-org/ytmerge/internal/models"

type DecipherQuery struct {
	URL string `form:"url"`
}

type DecipherResponse struct {
	Title           string                `json:"title"`
	DurationSeconds int                   `json:"durationSeconds"`
	ThumbnailURL    string                `json:"thumbnailUrl"`
	Formats         []models.RankedFormat `json:"formats"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
