package search

import (
	"regexp"
	"strings"
)

// DefaultHighlightMaxChars is the text length above which highlighting is skipped.
const DefaultHighlightMaxChars = 5000

// Fragment is a run of text that either matches the query or does not.
type Fragment struct {
	Text  string
	Match bool
}

// Highlight splits text into plain and matched fragments. Matching is
// case-insensitive and treats the query literally. Text longer than maxChars
// (maxChars > 0) or a blank query yields a single plain fragment.
func Highlight(text, query string, maxChars int) []Fragment {
	q := strings.TrimSpace(query)
	if text == "" {
		return nil
	}
	if q == "" || (maxChars > 0 && len(text) > maxChars) {
		return []Fragment{{Text: text}}
	}

	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(q))
	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []Fragment{{Text: text}}
	}

	out := make([]Fragment, 0, 2*len(locs)+1)
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			out = append(out, Fragment{Text: text[prev:loc[0]]})
		}
		out = append(out, Fragment{Text: text[loc[0]:loc[1]], Match: true})
		prev = loc[1]
	}
	if prev < len(text) {
		out = append(out, Fragment{Text: text[prev:]})
	}
	return out
}

// Join concatenates fragment texts back into the original string.
func Join(fragments []Fragment) string {
	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(f.Text)
	}
	return b.String()
}
