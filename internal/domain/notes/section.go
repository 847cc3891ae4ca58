package notes

import "strings"

// SectionID is the stable identity of a section: its position in the original
// sections array, assigned once at load time.
type SectionID int

// Section is one titled block of a structured document (immutable value object).
type Section struct {
	id        SectionID
	title     string
	content   string
	keyPoints []string
	order     int
}

// NewSection creates a Section. Validation happens in Document construction.
func NewSection(title, content string, keyPoints []string, order int) Section {
	return Section{
		title:     title,
		content:   content,
		keyPoints: cloneStrings(keyPoints),
		order:     order,
	}
}

// ID returns the stable section identifier.
func (s *Section) ID() SectionID { return s.id }

// Title returns the section heading.
func (s *Section) Title() string { return s.title }

// Content returns the section body text.
func (s *Section) Content() string { return s.content }

// KeyPoints returns a copy of the section key points.
func (s *Section) KeyPoints() []string { return cloneStrings(s.keyPoints) }

// Order returns the order value supplied by the extraction pipeline.
func (s *Section) Order() int { return s.order }

// QuizSource renders the text handed to the quiz generator for this section.
func (s *Section) QuizSource() string {
	var b strings.Builder
	b.WriteString(s.title)
	b.WriteString("\n\n")
	b.WriteString(s.content)
	b.WriteString("\n\nKey Points:\n")
	b.WriteString(strings.Join(s.keyPoints, "\n"))
	return b.String()
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
