package models

import (
	"time"

	"github.com/google/uuid"
)

type ConversionOutcome string

const (
	// ConversionCached means the merged object already existed.
	ConversionCached ConversionOutcome = "cached"
	// ConversionConverted means this request ran the merge and populated the cache.
	ConversionConverted ConversionOutcome = "converted"
	// ConversionCoalesced means this request waited on an identical in-flight merge.
	ConversionCoalesced ConversionOutcome = "coalesced"
	ConversionFailed    ConversionOutcome = "failed"
)

// ConversionEvent records one convert-and-download request.
type ConversionEvent struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	CacheKey   string            `json:"cache_key" db:"cache_key"`
	ContentID  string            `json:"content_id" db:"content_id"`
	Title      string            `json:"title" db:"title"`
	Quality    string            `json:"quality" db:"quality"`
	Outcome    ConversionOutcome `json:"outcome" db:"outcome"`
	Error      string            `json:"error,omitempty" db:"error"`
	DurationMs int64             `json:"duration_ms" db:"duration_ms"`
	Timestamp  time.Time         `json:"timestamp" db:"created_at"`
}
