package scrape

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxContentChars caps how much scraped text is carried into prompts.
const maxContentChars = 6000

// cleanContent normalizes scraped markdown before it enters the phase
// context: NFC normalization, control characters stripped, runs of blank
// lines collapsed, and the result truncated to a prompt-safe length.
func cleanContent(raw string) string {
	s := norm.NFC.String(raw)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	s = b.String()

	// Collapse 3+ consecutive newlines into paragraph breaks.
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	s = strings.TrimSpace(s)

	if len(s) > maxContentChars {
		s = s[:maxContentChars]
		// Avoid cutting a rune in half.
		for len(s) > 0 && !utf8Start(s[len(s)-1]) {
			s = s[:len(s)-1]
		}
	}
	return s
}

// utf8Start reports whether b can begin a UTF-8 encoded rune or is ASCII.
func utf8Start(b byte) bool {
	return b < 0x80 || b >= 0xC0
}

// splitPosts breaks reader markdown into discrete content blocks, used as a
// rough stand-in for individual posts on social platforms.
func splitPosts(markdown string, limit int) []string {
	var posts []string
	for _, block := range strings.Split(markdown, "\n\n") {
		block = strings.TrimSpace(block)
		if len(block) < 40 || strings.HasPrefix(block, "#") {
			continue
		}
		posts = append(posts, block)
		if len(posts) >= limit {
			break
		}
	}
	return posts
}
