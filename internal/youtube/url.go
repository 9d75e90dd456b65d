package youtube

import "regexp"

// videoIDPattern matches an 11-character video token appearing right
// after a v= query marker or a path separator.
var videoIDPattern = regexp.MustCompile(`(?:v=|/)([A-Za-z0-9_-]{11})`)

// ExtractVideoID returns the first video identifier found in raw user
// text. The boolean is false when no identifier is present.
func ExtractVideoID(text string) (string, bool) {
	match := videoIDPattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}
