package media

import "regexp"

// idPattern matches the canonical watch form, the youtu.be short link, the
// embed/v/e forms and shorts. The identifier must be exactly 11 characters.
var idPattern = regexp.MustCompile(
	`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/|shorts/)([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`,
)

var idOnly = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractID returns the content identifier embedded in a video URL.
// ok is false when no supported URL shape matches.
func ExtractID(rawURL string) (id string, ok bool) {
	m := idPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ValidID reports whether s is a bare content identifier.
func ValidID(s string) bool {
	return idOnly.MatchString(s)
}
