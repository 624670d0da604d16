package captcha

import (
	"encoding/base64"
	"strings"

	"github.com/MrBl4ck04/ReeUtil-sub000/internal"
)

const (
	// Alphabet excludes 0, O, 1 and I.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	Length   = 5
)

// NewText returns a random challenge text.
func NewText() (string, error) {
	return internal.RandomString(Alphabet, Length)
}

// Match compares a stored answer with user input, ignoring case and
// surrounding whitespace.
func Match(expected, provided string) bool {
	expected = strings.TrimSpace(expected)
	provided = strings.TrimSpace(provided)
	if expected == "" || provided == "" {
		return false
	}
	return strings.EqualFold(expected, provided)
}

// DataURI wraps PNG bytes as an embeddable data URI.
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
