package media

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/kkdai/youtube/v2"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/your-org/ytmerge/internal/models"
)

// YouTubeResolver resolves streams in-process with the kkdai/youtube client.
type YouTubeResolver struct {
	HTTPClient *http.Client
}

func NewYouTubeResolver(httpClient *http.Client) *YouTubeResolver {
	return &YouTubeResolver{HTTPClient: httpClient}
}

// NewSession returns a session with its own client, so player state is not
// shared between requests.
func (r *YouTubeResolver) NewSession(_ context.Context) (Session, error) {
	client := &youtube.Client{HTTPClient: r.HTTPClient}
	return &youtubeSession{client: client}, nil
}

// youtubeSession serializes every call into its client. youtube.Client keeps
// player and consent state in unguarded fields.
type youtubeSession struct {
	mu     sync.Mutex
	client *youtube.Client
	video  *youtube.Video
}

func (s *youtubeSession) BasicInfo(ctx context.Context, id string) (*models.BasicInfo, error) {
	s.mu.Lock()
	video, err := s.client.GetVideoContext(ctx, id)
	if err == nil {
		s.video = video
	}
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}

	info := &models.BasicInfo{
		ID:       video.ID,
		Title:    video.Title,
		Duration: video.Duration,
	}
	if len(video.Thumbnails) > 0 {
		info.ThumbnailURL = video.Thumbnails[0].URL
	}

	// The client merges both lists; muxed audio+video streams are the progressive ones.
	descriptors := lo.Map(video.Formats, func(f youtube.Format, i int) models.StreamDescriptor {
		d := descriptorFromFormat(f)
		d.FormatID = strconv.Itoa(i)
		return d
	})
	info.Progressive, info.Adaptive = lo.FilterReject(descriptors, func(d models.StreamDescriptor, _ int) bool {
		return d.HasVideo && d.HasAudio
	})
	return info, nil
}

func (s *youtubeSession) Decipher(ctx context.Context, d models.StreamDescriptor) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.video == nil {
		return "", fmt.Errorf("decipher itag %d: no video loaded", d.Tag)
	}

	format, ok := s.lookup(d)
	if !ok {
		return "", fmt.Errorf("decipher itag %d: format not found", d.Tag)
	}
	url, err := s.client.GetStreamURLContext(ctx, s.video, &format)
	if err != nil {
		return "", fmt.Errorf("decipher itag %d: %w", d.Tag, err)
	}
	return url, nil
}

// lookup finds the format by its position in the video's format list, which
// tells apart audio tracks sharing an itag. Descriptors without a position
// fall back to the first format with the same itag.
func (s *youtubeSession) lookup(d models.StreamDescriptor) (youtube.Format, bool) {
	formats := s.video.Formats
	if d.FormatID != "" {
		i, err := strconv.Atoi(d.FormatID)
		if err != nil || i < 0 || i >= len(formats) || formats[i].ItagNo != d.Tag {
			return youtube.Format{}, false
		}
		return formats[i], true
	}
	return lo.Find(formats, func(f youtube.Format) bool { return f.ItagNo == d.Tag })
}

func descriptorFromFormat(f youtube.Format) models.StreamDescriptor {
	d := models.StreamDescriptor{
		Tag:          f.ItagNo,
		MimeType:     f.MimeType,
		Container:    ContainerFromMime(f.MimeType),
		HasVideo:     strings.HasPrefix(f.MimeType, "video/"),
		HasAudio:     strings.HasPrefix(f.MimeType, "audio/") || f.AudioChannels > 0,
		QualityLabel: f.QualityLabel,
		AudioQuality: f.AudioQuality,
		Bitrate:      f.Bitrate,
	}
	if f.ContentLength > 0 {
		d.ContentLength = mo.Some(f.ContentLength)
	}
	if f.FPS > 0 {
		d.FrameRate = mo.Some(f.FPS)
	}
	return d
}
