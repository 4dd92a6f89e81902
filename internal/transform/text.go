// Package transform converts plaintext mail bodies into paragraph markup.
package transform

import (
	"regexp"
	"strings"
)

var (
	// moreMarker matches a line holding only the read-more marker.
	moreMarker = regexp.MustCompile(`(?mi)^[^\S\n]*MORE:[^\S\n]*$`)

	paragraphBreak = regexp.MustCompile(`\n{2,}`)

	escaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)
)

// Transform splits a plaintext body into summary and full-body markup.
// The first "MORE:" line separates the two halves; without one the first
// paragraph becomes the summary and the remainder the body.
func Transform(raw string) (summary, body string) {
	text := Normalize(raw)
	if strings.TrimSpace(text) == "" {
		return "", ""
	}

	intro, rest, found := SplitMore(text)
	if !found {
		parts := paragraphBreak.Split(strings.TrimSpace(text), 2)
		intro = parts[0]
		rest = ""
		if len(parts) == 2 {
			rest = parts[1]
		}
	}

	return Paragraphs(intro), Paragraphs(rest)
}

// Normalize converts line endings to "\n" and strips trailing whitespace
// from every line so whitespace-only lines count as blank.
func Normalize(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\f\v")
	}
	return strings.Join(lines, "\n")
}

// SplitMore splits text at the first read-more marker line.
func SplitMore(text string) (intro, rest string, found bool) {
	loc := moreMarker.FindStringIndex(text)
	if loc == nil {
		return text, "", false
	}
	return text[:loc[0]], text[loc[1]:], true
}

// Paragraphs reflows hard-wrapped lines and wraps each paragraph in an
// escaped <p> element. Paragraphs are separated by "\n".
func Paragraphs(text string) string {
	text = strings.TrimSpace(Normalize(text))
	if text == "" {
		return ""
	}

	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\n", " "))
		if p == "" {
			continue
		}
		out = append(out, "<p>"+Escape(strings.ToValidUTF8(p, "\uFFFD"))+"</p>")
	}
	return strings.Join(out, "\n")
}

// Escape replaces markup-significant characters with HTML entities.
func Escape(s string) string {
	return escaper.Replace(s)
}
