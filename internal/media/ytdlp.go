package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/your-org/ytmerge/internal/models"
)

type ytdlpFormat struct {
	FormatID       string  `json:"format_id"`
	FormatNote     string  `json:"format_note"`
	ACodec         string  `json:"acodec"`
	VCodec         string  `json:"vcodec"`
	Ext            string  `json:"ext"`
	Protocol       string  `json:"protocol"`
	URL            string  `json:"url"`
	TBR            float64 `json:"tbr"`
	FPS            float64 `json:"fps"`
	Height         int     `json:"height"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

type ytdlpInfo struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Duration  float64       `json:"duration"`
	Thumbnail string        `json:"thumbnail"`
	Formats   []ytdlpFormat `json:"formats"`
}

// YtdlpResolver resolves streams by running the yt-dlp binary.
type YtdlpResolver struct {
	Binary string
	Tokens TokenProvider // optional
}

func NewYtdlpResolver(binary string, tokens TokenProvider) *YtdlpResolver {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YtdlpResolver{Binary: binary, Tokens: tokens}
}

// NewSession fetches a proof-of-origin token when a provider is configured.
func (r *YtdlpResolver) NewSession(ctx context.Context) (Session, error) {
	s := &ytdlpSession{binary: r.Binary}
	if r.Tokens != nil {
		tok, err := r.Tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		s.token = mo.Some(tok)
	}
	return s, nil
}

type ytdlpSession struct {
	binary string
	token  mo.Option[Token]

	mu   sync.Mutex
	urls map[string]string
}

func (s *ytdlpSession) args(id string) []string {
	args := []string{"-J", "--no-warnings", "--skip-download", "--no-playlist"}
	if tok, ok := s.token.Get(); ok {
		args = append(args, "--extractor-args",
			fmt.Sprintf("youtube:po_token=web.gvs+%s;visitor_data=%s", tok.PoToken, tok.VisitorData))
	}
	return append(args, "--", id)
}

func (s *ytdlpSession) BasicInfo(ctx context.Context, id string) (*models.BasicInfo, error) {
	cmd := exec.CommandContext(ctx, s.binary, s.args(id)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var raw ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	return s.toBasicInfo(&raw), nil
}

func (s *ytdlpSession) toBasicInfo(raw *ytdlpInfo) *models.BasicInfo {
	info := &models.BasicInfo{
		ID:           raw.ID,
		Title:        raw.Title,
		Duration:     secondsToDuration(raw.Duration),
		ThumbnailURL: raw.Thumbnail,
	}

	urls := make(map[string]string, len(raw.Formats))
	for _, f := range raw.Formats {
		d, ok := descriptorFromYtdlp(f)
		if !ok {
			continue
		}
		if f.URL != "" {
			urls[d.FormatID] = f.URL
		}
		if d.HasVideo && d.HasAudio {
			info.Progressive = append(info.Progressive, d)
		} else {
			info.Adaptive = append(info.Adaptive, d)
		}
	}

	s.mu.Lock()
	s.urls = urls
	s.mu.Unlock()
	return info
}

// Decipher returns the URL yt-dlp already resolved for the format.
func (s *ytdlpSession) Decipher(_ context.Context, d models.StreamDescriptor) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url, ok := s.urls[d.FormatID]
	if !ok {
		return "", fmt.Errorf("decipher format %s (itag %d): yt-dlp returned no url", d.FormatID, d.Tag)
	}
	return url, nil
}

// descriptorFromYtdlp skips storyboards and formats without a numeric id.
// The itag is the leading number of format_id; the full id ("251-1",
// "140-drc") stays on the descriptor so language and DRC variants keep
// their own URLs.
func descriptorFromYtdlp(f ytdlpFormat) (models.StreamDescriptor, bool) {
	var tag int
	if _, err := fmt.Sscanf(f.FormatID, "%d", &tag); err != nil {
		return models.StreamDescriptor{}, false
	}
	if f.Ext == "mhtml" {
		return models.StreamDescriptor{}, false
	}

	hasVideo := f.VCodec != "" && f.VCodec != "none"
	hasAudio := f.ACodec != "" && f.ACodec != "none"
	d := models.StreamDescriptor{
		Tag:       tag,
		FormatID:  f.FormatID,
		HasVideo:  hasVideo,
		HasAudio:  hasAudio,
		Container: f.Ext,
		MimeType:  mimeFor(f.Ext, hasVideo),
		Bitrate:   int(f.TBR * 1000),
	}
	if hasVideo {
		d.QualityLabel = lo.Ternary(f.Height > 0, fmt.Sprintf("%dp", f.Height), f.FormatNote)
		if f.FPS > 0 {
			d.FrameRate = mo.Some(int(f.FPS))
			if int(f.FPS) == 60 && f.Height > 0 {
				d.QualityLabel += "60"
			}
		}
	} else {
		d.AudioQuality = f.FormatNote
	}
	switch {
	case f.Filesize > 0:
		d.ContentLength = mo.Some(f.Filesize)
	case f.FilesizeApprox > 0:
		d.ContentLength = mo.Some(f.FilesizeApprox)
	}
	return d, true
}

func mimeFor(ext string, video bool) string {
	if ext == "" {
		return ""
	}
	if ext == "m4a" {
		return "audio/mp4"
	}
	return lo.Ternary(video, "video/", "audio/") + ext
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
