package pipeline

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// labelPolicy strips all markup from model-produced text.
var labelPolicy = bluemonday.StrictPolicy()

// normalizeLabel sanitizes free text from the model. Markup is removed
// (the policy's entity escaping is undone), whitespace runs collapse to one
// space and the result is cut to max runes.
func normalizeLabel(s string, max int) string {
	s = html.UnescapeString(labelPolicy.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if max > 0 && utf8.RuneCountInString(s) > max {
		s = strings.TrimSpace(string([]rune(s)[:max]))
	}
	return s
}
