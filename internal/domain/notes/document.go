package notes

import (
	"fmt"
	"math"
	"strings"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
)

// WordsPerMinute is the reading speed used to derive a missing reading-time estimate.
const WordsPerMinute = 225

// DefaultDifficulty is assumed when the extraction pipeline omitted metadata.
const DefaultDifficulty = "intermediate"

// Metadata describes the document as a whole.
type Metadata struct {
	TotalSections        int
	EstimatedReadingTime int // minutes
	Difficulty           string
	Topics               []string
}

// Document is the structured-notes aggregate. It is immutable once built and is
// the single source of truth for every other component of a reading session.
type Document struct {
	title     string
	summary   string
	keyPoints []string
	sections  []Section
	metadata  Metadata
}

// New validates the document and assigns stable section IDs.
// A nil metadata is derived from the sections; a supplied one must agree with them.
func New(title, summary string, keyPoints []string, sections []Section, metadata *Metadata) (Document, error) {
	if strings.TrimSpace(title) == "" {
		return Document{}, domain.NewFormatError("title", "is required")
	}
	if sections == nil {
		return Document{}, domain.NewFormatError("sections", "is required")
	}

	owned := make([]Section, len(sections))
	for i, s := range sections {
		if strings.TrimSpace(s.title) == "" {
			return Document{}, domain.NewSectionFormatError(i, "title", "is required")
		}
		if s.content == "" {
			return Document{}, domain.NewSectionFormatError(i, "content", "is required")
		}
		if s.keyPoints == nil {
			return Document{}, domain.NewSectionFormatError(i, "keyPoints", "is required")
		}
		s.id = SectionID(i)
		owned[i] = s
	}

	var md Metadata
	if metadata == nil {
		md = Metadata{
			TotalSections:        len(owned),
			EstimatedReadingTime: estimateReadingTime(owned),
			Difficulty:           DefaultDifficulty,
		}
	} else {
		md = *metadata
		md.Topics = cloneStrings(metadata.Topics)
		if md.TotalSections != len(owned) {
			return Document{}, domain.NewFormatError("metadata.totalSections",
				fmt.Sprintf("is %d but document has %d sections", md.TotalSections, len(owned)))
		}
	}

	return Document{
		title:     title,
		summary:   summary,
		keyPoints: cloneStrings(keyPoints),
		sections:  owned,
		metadata:  md,
	}, nil
}

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Summary returns the document summary.
func (d *Document) Summary() string { return d.summary }

// KeyPoints returns a copy of the document-level key points.
func (d *Document) KeyPoints() []string { return cloneStrings(d.keyPoints) }

// Metadata returns the document metadata.
func (d *Document) Metadata() Metadata {
	md := d.metadata
	md.Topics = cloneStrings(d.metadata.Topics)
	return md
}

// Len returns the number of sections.
func (d *Document) Len() int { return len(d.sections) }

// Section returns the section with the given ID.
func (d *Document) Section(id SectionID) (Section, bool) {
	if int(id) < 0 || int(id) >= len(d.sections) {
		return Section{}, false
	}
	return d.sections[id], true
}

// Contains reports whether id addresses a section of this document.
func (d *Document) Contains(id SectionID) bool {
	return int(id) >= 0 && int(id) < len(d.sections)
}

// Sections returns the sections in original order. The slice is a copy; the
// sections themselves are immutable.
func (d *Document) Sections() []Section {
	out := make([]Section, len(d.sections))
	copy(out, d.sections)
	return out
}

// IDs returns every section ID in original order.
func (d *Document) IDs() []SectionID {
	ids := make([]SectionID, len(d.sections))
	for i := range d.sections {
		ids[i] = SectionID(i)
	}
	return ids
}

func estimateReadingTime(sections []Section) int {
	words := 0
	for i := range sections {
		words += len(strings.Fields(sections[i].content))
	}
	return int(math.Ceil(float64(words) / WordsPerMinute))
}
