package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/brandon/postbymail/internal/imagestore"
	"github.com/brandon/postbymail/pkg/types"
)

// DefaultTitle is used for messages without a subject
const DefaultTitle = "(No title)"

// EmptyJSON is stored for unset JSON columns
const EmptyJSON = "{}"

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug builds a URL-safe alias: accents are stripped, letters lower-cased and
// every run of other characters becomes a single dash. Titles without any
// ASCII letter or digit fall back to the creation time.
func Slug(title string, created time.Time) string {
	s, _, err := transform.String(stripMarks, title)
	if err != nil {
		s = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return created.UTC().Format("2006-01-02-15-04-05")
	}
	return slug
}

// ImagePayload renders the image reference JSON for a stored image
func ImagePayload(asset imagestore.Asset) (string, error) {
	images := types.Images{
		ImageFulltext: fmt.Sprintf("%s#joomlaImage://local-%s?width=%d&height=%d",
			asset.RelPath, asset.RelPath, asset.Width, asset.Height),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(images); err != nil {
		return "", fmt.Errorf("failed to encode image payload: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
