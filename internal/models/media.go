package models

import (
	"time"

	"github.com/samber/mo"
)

type FormatType string

const (
	FormatTypeVideo   FormatType = "video"
	FormatTypeAudio   FormatType = "audio"
	FormatTypeUnknown FormatType = "unknown"
)

// StreamDescriptor is one fetchable stream as reported by the upstream site.
// Descriptors are never mutated; a failed decipher produces a replacement that
// keeps only its identifiers.
type StreamDescriptor struct {
	Tag           int
	// FormatID identifies the stream within one resolver session. Several
	// streams may share a Tag (audio language tracks, DRC variants).
	FormatID      string
	HasVideo      bool
	HasAudio      bool
	MimeType      string
	Container     string
	QualityLabel  string
	AudioQuality  string
	Bitrate       int
	ContentLength mo.Option[int64]
	FrameRate     mo.Option[int]
	SourceURL     mo.Option[string]
}

// Stripped returns the replacement descriptor used when the access URL cannot be resolved.
func (d StreamDescriptor) Stripped() StreamDescriptor {
	return StreamDescriptor{Tag: d.Tag, FormatID: d.FormatID}
}

// WithURL returns a copy of d carrying the resolved access URL.
func (d StreamDescriptor) WithURL(url string) StreamDescriptor {
	d.SourceURL = mo.Some(url)
	return d
}

// RankedFormat is the uniform view of a descriptor served to clients.
type RankedFormat struct {
	Tag          int        `json:"itag"`
	FormatID     string     `json:"formatId,omitempty"`
	URL          *string    `json:"url"`
	Type         FormatType `json:"type"`
	MimeType     string     `json:"mimeType,omitempty"`
	Container    string     `json:"container,omitempty"`
	QualityLabel string     `json:"qualityLabel"`
	Bitrate      int        `json:"bitrate,omitempty"`
	SizeLabel    string     `json:"size"`
	Is60FPS      bool       `json:"is60fps"`
	HasVideo     bool       `json:"hasVideo"`
	HasAudio     bool       `json:"hasAudio"`
}

// BasicInfo is what a resolver session reports for one content identifier.
type BasicInfo struct {
	ID           string
	Title        string
	Duration     time.Duration
	ThumbnailURL string
	Adaptive     []StreamDescriptor
	Progressive  []StreamDescriptor
}

// Descriptors returns adaptive descriptors followed by progressive ones.
func (b *BasicInfo) Descriptors() []StreamDescriptor {
	out := make([]StreamDescriptor, 0, len(b.Adaptive)+len(b.Progressive))
	out = append(out, b.Adaptive...)
	return append(out, b.Progressive...)
}

// VideoFormats is the result of resolving a URL into ranked formats.
type VideoFormats struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	DurationSeconds int            `json:"durationSeconds"`
	ThumbnailURL    string         `json:"thumbnailUrl"`
	Formats         []RankedFormat `json:"formats"`
}
