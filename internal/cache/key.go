package cache

import (
	"fmt"
	"path"
	"strings"
)

const (
	// OutputExt is the container of every merged object.
	OutputExt         = "mp4"
	OutputContentType = "video/mp4"
)

// Key identifies one merged object: {contentId}/{normalizedTitle}-{quality}.mp4.
type Key string

// BuildKey derives the storage key for a merge. It is a pure function of its inputs.
func BuildKey(contentID, title, qualityLabel string) Key {
	return Key(fmt.Sprintf("%s/%s-%s.%s", contentID, NormalizeTitle(title), qualityLabel, OutputExt))
}

// NormalizeTitle replaces every character outside [A-Za-z0-9] with '_' and lower-cases the result.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (k Key) String() string {
	return string(k)
}

// Filename is the last path element, used as the download name.
func (k Key) Filename() string {
	return path.Base(string(k))
}
