package narration

import (
	"fmt"
	"strings"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
)

// SectionText is what is spoken for a section: its title, then its content
// with markdown stripped.
func SectionText(sec *notes.Section) string {
	return sec.Title() + ". " + notes.PlainText(sec.Content())
}

// KeyPointsText numbers the key points for speech.
func KeyPointsText(points []string) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("Key point %d: %s", i+1, p)
	}
	return strings.Join(parts, ". ")
}
