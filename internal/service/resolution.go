package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/your-org/ytmerge/internal/media"
	"github.com/your-org/ytmerge/internal/models"
)

// FormatCache is an optional short-lived cache of resolve results.
type FormatCache interface {
	Get(ctx context.Context, id string) (*models.VideoFormats, bool, error)
	Set(ctx context.Context, vf *models.VideoFormats) error
}

type ResolutionService struct {
	resolver    media.Resolver
	concurrency int
	cache       FormatCache
}

// NewResolutionService builds the resolve pipeline. cache may be nil.
func NewResolutionService(resolver media.Resolver, concurrency int, cache FormatCache) *ResolutionService {
	return &ResolutionService{resolver: resolver, concurrency: concurrency, cache: cache}
}

// ResolveFormats turns a video URL into its title, duration, thumbnail and
// ranked formats. Formats whose URL could not be resolved are still listed.
func (s *ResolutionService) ResolveFormats(ctx context.Context, rawURL string) (*models.VideoFormats, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrBadRequest)
	}
	id, ok := media.ExtractID(rawURL)
	if !ok {
		return nil, fmt.Errorf("%w: no video id in url", ErrBadRequest)
	}

	if s.cache != nil {
		vf, hit, err := s.cache.Get(ctx, id)
		if err != nil {
			slog.Warn("formats cache lookup", "video_id", id, "error", err)
		} else if hit {
			return vf, nil
		}
	}

	sess, err := s.resolver.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %w", ErrResolver, err)
	}
	info, err := sess.BasicInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: basic info %s: %w", ErrResolver, id, err)
	}

	deciphered := media.DecipherAll(ctx, sess, info.Descriptors(), s.concurrency)
	vf := &models.VideoFormats{
		ID:              id,
		Title:           info.Title,
		DurationSeconds: int(info.Duration.Seconds()),
		ThumbnailURL:    info.ThumbnailURL,
		Formats:         media.Select(deciphered),
	}

	// A degraded result would keep serving the missing URLs for the cache
	// lifetime; only complete results are stored.
	complete := !lo.SomeBy(vf.Formats, func(f models.RankedFormat) bool { return f.URL == nil })
	if s.cache != nil && complete {
		if err := s.cache.Set(ctx, vf); err != nil {
			slog.Warn("formats cache store", "video_id", id, "error", err)
		}
	}
	return vf, nil
}
