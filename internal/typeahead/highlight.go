package typeahead

import (
	"html"
	"regexp"
	"strings"
)

// Highlighter wraps every case-insensitive occurrence of a query inside a
// text. The query is matched literally.
type Highlighter struct {
	Mark   func(match string) string
	Escape func(segment string) string
}

// HTML marks matches with <mark> and escapes every segment, so the output is
// safe to embed in markup even for names containing '<' or '&'. Text outside
// a match is escaped too, including when the query is empty or nothing
// matches: Highlight("Tom & Jerry", "") is "Tom &amp; Jerry". Callers that
// need the text back unchanged use a Highlighter with a nil Escape.
var HTML = Highlighter{
	Mark:   func(match string) string { return "<mark>" + match + "</mark>" },
	Escape: html.EscapeString,
}

// Highlight runs the HTML highlighter.
func Highlight(text, query string) string {
	return HTML.Highlight(text, query)
}

func (h Highlighter) Highlight(text, query string) string {
	if text == "" || query == "" {
		return h.escape(text)
	}

	matcher := regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	matches := matcher.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return h.escape(text)
	}

	var out strings.Builder
	last := 0
	for _, match := range matches {
		out.WriteString(h.escape(text[last:match[0]]))
		out.WriteString(h.mark(h.escape(text[match[0]:match[1]])))
		last = match[1]
	}
	out.WriteString(h.escape(text[last:]))

	return out.String()
}

func (h Highlighter) escape(segment string) string {
	if h.Escape == nil {
		return segment
	}
	return h.Escape(segment)
}

func (h Highlighter) mark(match string) string {
	if h.Mark == nil {
		return match
	}
	return h.Mark(match)
}
