// Package render formats question and answer text for chat, grounded on
// the original's format_question/render_html/nth_chunk helpers.
package render

import "strings"

var (
	chatEscaper = strings.NewReplacer("*", "\\*")
	markdownizer = strings.NewReplacer(
		"<b>", "**", "</b>", "**",
		"<i>", "_", "</i>", "_",
		"<u>", "__", "</u>", "__",
	)
)

// BellMarker is appended to the displayed question the instant a buzz
// suspends reading. NoBellMarker replaces it once the question returns to
// Reading, so the flip is visible rather than the suffix just disappearing.
const (
	BellMarker   = " 🔔"
	NoBellMarker = " 🔕"
)

// FormatQuestion escapes literal "*" in question text so Discord-style
// markdown doesn't interpret a power mark or multiplication as emphasis.
func FormatQuestion(question string) string {
	return chatEscaper.Replace(question)
}

// RenderHTML maps the <b>/<i>/<u> tag subset used in answer lines to
// markdown emphasis, for displaying the canonical answer to players.
func RenderHTML(answer string) string {
	return markdownizer.Replace(answer)
}

// NthChunk consumes and returns up to n items from words, advancing it.
// The Go analogue of the original's generic nth_chunk(iter, n) over a
// word iterator: called repeatedly to reveal a question a few words at a
// time.
func NthChunk(words *[]string, n int) []string {
	if n > len(*words) {
		n = len(*words)
	}
	chunk := (*words)[:n]
	*words = (*words)[n:]
	return chunk
}
