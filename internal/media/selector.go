package media

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/your-org/ytmerge/internal/models"
)

const bytesPerMB = 1024 * 1024

// Select maps descriptors one-to-one onto ranked formats, preserving order.
func Select(descriptors []models.StreamDescriptor) []models.RankedFormat {
	return lo.Map(descriptors, func(d models.StreamDescriptor, _ int) models.RankedFormat {
		return rank(d)
	})
}

func rank(d models.StreamDescriptor) models.RankedFormat {
	f := models.RankedFormat{
		Tag:       d.Tag,
		FormatID:  d.FormatID,
		Type:      formatType(d),
		MimeType:  d.MimeType,
		Container: d.Container,
		Bitrate:   d.Bitrate,
		SizeLabel: sizeLabel(d),
		HasVideo:  d.HasVideo,
		HasAudio:  d.HasAudio,
	}
	if d.HasVideo {
		f.QualityLabel = d.QualityLabel
	} else {
		f.QualityLabel = d.AudioQuality
	}
	if fps, ok := d.FrameRate.Get(); ok {
		f.Is60FPS = fps == 60
	}
	if url, ok := d.SourceURL.Get(); ok {
		f.URL = &url
	}
	return f
}

func formatType(d models.StreamDescriptor) models.FormatType {
	switch {
	case d.HasVideo:
		return models.FormatTypeVideo
	case d.HasAudio:
		return models.FormatTypeAudio
	default:
		return models.FormatTypeUnknown
	}
}

func sizeLabel(d models.StreamDescriptor) string {
	n, ok := d.ContentLength.Get()
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.2f MB", float64(n)/bytesPerMB)
}

// ContainerFromMime returns the container part of a mime type such as
// `video/mp4; codecs="avc1.64001F"`.
func ContainerFromMime(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	_, sub, ok := strings.Cut(strings.TrimSpace(base), "/")
	if !ok {
		return ""
	}
	return sub
}
