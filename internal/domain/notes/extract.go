package notes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
)

// envelope covers every shape a material can arrive in: the notes object
// itself, notes under "structuredNotes", notes nested in "content", and the
// legacy processing result {success, structuredNotes, error}.
type envelope struct {
	StructuredNotes json.RawMessage `json:"structuredNotes"`
	Content         json.RawMessage `json:"content"`
	Success         *bool           `json:"success"`
	Error           string          `json:"error"`
	Title           json.RawMessage `json:"title"`
	Sections        json.RawMessage `json:"sections"`
}

type rawNotes struct {
	Title     *string      `json:"title"`
	Summary   string       `json:"summary"`
	KeyPoints []string     `json:"keyPoints"`
	Sections  []rawSection `json:"sections"`
	Metadata  *rawMetadata `json:"metadata"`
}

type rawSection struct {
	Title     *string         `json:"title"`
	Content   *string         `json:"content"`
	KeyPoints []string        `json:"keyPoints"`
	Order     json.RawMessage `json:"order"`
}

type rawMetadata struct {
	TotalSections        *int     `json:"totalSections"`
	EstimatedReadingTime int      `json:"estimatedReadingTime"`
	Difficulty           string   `json:"difficulty"`
	Topics               []string `json:"topics"`
}

// Extract validates raw material JSON and returns the normalized Document.
// Errors wrap domain.ErrNoData, domain.ErrInvalidFormat or domain.ErrProcessingFailure.
func Extract(raw []byte) (Document, error) {
	if isNull(raw) {
		return Document{}, domain.ErrNoData
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Document{}, fmt.Errorf("%w: %w", domain.NewFormatError("document", "must be a JSON object"), err)
	}

	if env.Success != nil && !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = "upstream processing reported failure"
		}
		return Document{}, fmt.Errorf("%w: %s", domain.ErrProcessingFailure, msg)
	}

	if !isNull(env.StructuredNotes) {
		return parseNotes(env.StructuredNotes)
	}

	if !isNull(env.Content) && bytes.HasPrefix(bytes.TrimSpace(env.Content), []byte("{")) {
		var nested envelope
		if err := json.Unmarshal(env.Content, &nested); err == nil && !isNull(nested.StructuredNotes) {
			return parseNotes(nested.StructuredNotes)
		}
	}

	if !isNull(env.Title) || !isNull(env.Sections) {
		return parseNotes(raw)
	}

	return Document{}, domain.ErrNoData
}

func parseNotes(raw json.RawMessage) (Document, error) {
	var rn rawNotes
	if err := json.Unmarshal(raw, &rn); err != nil {
		return Document{}, fmt.Errorf("%w: %w", domain.NewFormatError("structuredNotes", "malformed"), err)
	}
	if rn.Title == nil {
		return Document{}, domain.NewFormatError("title", "is required")
	}

	var sections []Section
	if rn.Sections != nil {
		sections = make([]Section, len(rn.Sections))
	}
	for i, rs := range rn.Sections {
		if rs.Title == nil {
			return Document{}, domain.NewSectionFormatError(i, "title", "is required")
		}
		if rs.Content == nil {
			return Document{}, domain.NewSectionFormatError(i, "content", "is required")
		}
		if rs.KeyPoints == nil {
			return Document{}, domain.NewSectionFormatError(i, "keyPoints", "is required")
		}
		order, ok := parseOrder(rs.Order)
		if !ok {
			return Document{}, domain.NewSectionFormatError(i, "order", "must be a number")
		}
		sections[i] = NewSection(*rs.Title, *rs.Content, rs.KeyPoints, order)
	}

	var md *Metadata
	if rn.Metadata != nil {
		total := len(sections)
		if rn.Metadata.TotalSections != nil {
			total = *rn.Metadata.TotalSections
		}
		md = &Metadata{
			TotalSections:        total,
			EstimatedReadingTime: rn.Metadata.EstimatedReadingTime,
			Difficulty:           rn.Metadata.Difficulty,
			Topics:               rn.Metadata.Topics,
		}
		if md.Difficulty == "" {
			md.Difficulty = DefaultDifficulty
		}
		if md.EstimatedReadingTime <= 0 {
			md.EstimatedReadingTime = estimateReadingTime(sections)
		}
	}

	return New(*rn.Title, rn.Summary, rn.KeyPoints, sections, md)
}

func isNull(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// parseOrder accepts a JSON number; fractional orders are truncated.
func parseOrder(raw json.RawMessage) (int, bool) {
	var n json.Number
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || json.Unmarshal(raw, &n) != nil {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return int(f), true
}
