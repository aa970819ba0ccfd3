package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/ytmerge/internal/cache"
	"github.com/your-org/ytmerge/internal/convert"
	"github.com/your-org/ytmerge/internal/media"
	"github.com/your-org/ytmerge/internal/models"
	"github.com/your-org/ytmerge/internal/observability"
)

var qualityPattern = regexp.MustCompile(`^[\w .+-]{1,32}$`)

type ConvertInput struct {
	AudioURL  string
	VideoURL  string
	Title     string
	ContentID string
	Quality   string
}

type ConvertOutput struct {
	DownloadURL string
	Outcome     models.ConversionOutcome
}

// EventSink receives the outcome of every convert request. Sinks handle their
// own failures.
type EventSink interface {
	HandleConversion(ctx context.Context, ev *models.ConversionEvent)
}

type EventSinkFunc func(ctx context.Context, ev *models.ConversionEvent)

func (f EventSinkFunc) HandleConversion(ctx context.Context, ev *models.ConversionEvent) {
	f(ctx, ev)
}

type ConversionService struct {
	gateway *cache.Gateway
	orch    *convert.Orchestrator
	urlTTL  time.Duration
	sinks   []EventSink
}

func NewConversionService(gw *cache.Gateway, orch *convert.Orchestrator, urlTTL time.Duration, sinks ...EventSink) *ConversionService {
	return &ConversionService{gateway: gw, orch: orch, urlTTL: urlTTL, sinks: sinks}
}

// ConvertAndDownload returns a signed URL for the merged file of the given
// video and audio streams, merging and uploading it first on a cache miss.
func (s *ConversionService) ConvertAndDownload(ctx context.Context, in ConvertInput) (*ConvertOutput, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	key := cache.BuildKey(in.ContentID, in.Title, in.Quality)

	res, err := s.gateway.GetOrCreate(ctx, key, s.urlTTL, func(ctx context.Context) error {
		slog.Info("merge streams", "key", key, "video_id", in.ContentID)
		return s.orch.WithMergedFile(ctx, key.String(), in.VideoURL, in.AudioURL, func(ctx context.Context, path string) error {
			return s.gateway.Populate(ctx, key, path)
		})
	})

	outcome := outcomeOf(res, err)
	observability.Conversions.WithLabelValues(string(outcome)).Inc()
	if res.Coalesced {
		observability.ConversionsCoalesced.Inc()
	}

	ev := &models.ConversionEvent{
		ID:         uuid.New(),
		CacheKey:   key.String(),
		ContentID:  in.ContentID,
		Title:      in.Title,
		Quality:    in.Quality,
		Outcome:    outcome,
		DurationMs: time.Since(start).Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.emit(ctx, ev)

	if err != nil {
		return nil, err
	}
	slog.Info("conversion served", "key", key, "outcome", outcome, "duration_ms", ev.DurationMs)
	return &ConvertOutput{DownloadURL: res.URL, Outcome: outcome}, nil
}

func outcomeOf(res cache.Result, err error) models.ConversionOutcome {
	switch {
	case err != nil:
		return models.ConversionFailed
	case res.Hit:
		return models.ConversionCached
	case res.Coalesced:
		return models.ConversionCoalesced
	default:
		return models.ConversionConverted
	}
}

func (s *ConversionService) emit(ctx context.Context, ev *models.ConversionEvent) {
	if len(s.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for _, sink := range s.sinks {
		sink.HandleConversion(ctx, ev)
	}
}

func (in ConvertInput) validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"audioUrl", in.AudioURL},
		{"videoUrl", in.VideoURL},
		{"title", in.Title},
		{"vId", in.ContentID},
		{"vq", in.Quality},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrBadRequest, strings.Join(missing, ", "))
	}

	if !media.ValidID(in.ContentID) {
		return fmt.Errorf("%w: vId is not a video id", ErrBadRequest)
	}
	if !qualityPattern.MatchString(in.Quality) {
		return fmt.Errorf("%w: vq has invalid characters", ErrBadRequest)
	}
	if err := checkStreamURL("videoUrl", in.VideoURL); err != nil {
		return err
	}
	return checkStreamURL("audioUrl", in.AudioURL)
}

// checkStreamURL admits only remote http(s) inputs so the transcoder never
// reads local files.
func checkStreamURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadRequest, field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an http or https url", ErrBadRequest, field)
	}
	return nil
}

// IsBadRequest reports whether err should be answered with 400.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}
