package notes

import (
	"errors"
	"strings"
	"testing"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
)

const notesJSON = `{
	"title": "Biology",
	"summary": "Intro",
	"keyPoints": ["life"],
	"sections": [
		{"title": "Cells", "content": "Cells are units.", "keyPoints": ["membrane"], "order": 1},
		{"title": "DNA", "content": "DNA stores info.", "keyPoints": [], "order": 2}
	],
	"metadata": {"totalSections": 2, "estimatedReadingTime": 3, "difficulty": "beginner", "topics": ["bio"]}
}`

func TestExtract_Shapes(t *testing.T) {
	inputs := map[string]string{
		"bare":     notesJSON,
		"wrapped":  `{"structuredNotes": ` + notesJSON + `}`,
		"content":  `{"content": {"structuredNotes": ` + notesJSON + `}}`,
		"envelope": `{"success": true, "structuredNotes": ` + notesJSON + `}`,
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			doc, err := Extract([]byte(in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if doc.Title() != "Biology" || doc.Len() != 2 {
				t.Errorf("got title=%q len=%d", doc.Title(), doc.Len())
			}
			md := doc.Metadata()
			if md.Difficulty != "beginner" || md.EstimatedReadingTime != 3 {
				t.Errorf("metadata = %+v", md)
			}
		})
	}
}

func TestExtract_NoData(t *testing.T) {
	for _, in := range []string{"", "  ", "null", `{}`, `{"structuredNotes": null}`, `{"content": "plain text"}`} {
		_, err := Extract([]byte(in))
		if !errors.Is(err, domain.ErrNoData) {
			t.Errorf("Extract(%q) err = %v, want ErrNoData", in, err)
		}
	}
}

func TestExtract_ProcessingFailure(t *testing.T) {
	_, err := Extract([]byte(`{"success": false, "error": "model overloaded"}`))
	if !errors.Is(err, domain.ErrProcessingFailure) {
		t.Fatalf("err = %v, want ErrProcessingFailure", err)
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("error text lost: %v", err)
	}
}

func TestExtract_InvalidFormat(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		field string
	}{
		{"not json", `[1,2`, "document"},
		{"missing title", `{"sections": []}`, "title"},
		{"missing sections", `{"title": "x"}`, "sections"},
		{"missing content", `{"title": "x", "sections": [{"title": "a", "keyPoints": []}]}`, "content"},
		{"missing keypoints", `{"title": "x", "sections": [{"title": "a", "content": "b"}]}`, "keyPoints"},
		{"missing order", `{"title": "x", "sections": [{"title": "a", "content": "b", "keyPoints": []}]}`, "order"},
		{"string order", `{"title": "x", "sections": [{"title": "a", "content": "b", "keyPoints": [], "order": "1"}]}`, "order"},
		{"null order", `{"title": "x", "sections": [{"title": "a", "content": "b", "keyPoints": [], "order": null}]}`, "order"},
		{"total mismatch", `{"title": "x", "sections": [], "metadata": {"totalSections": 4}}`, "metadata.totalSections"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract([]byte(tt.in))
			if !errors.Is(err, domain.ErrInvalidFormat) {
				t.Fatalf("err = %v, want ErrInvalidFormat", err)
			}
			var fe *domain.FormatError
			if !errors.As(err, &fe) || fe.Field != tt.field {
				t.Errorf("field = %+v, want %s", fe, tt.field)
			}
		})
	}
}

func TestExtract_EmptySectionsAllowed(t *testing.T) {
	doc, err := Extract([]byte(`{"title": "x", "sections": []}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Len() != 0 {
		t.Errorf("Len() = %d", doc.Len())
	}
}

func TestPlainText(t *testing.T) {
	in := "# Heading\n\nSome **bold** and `code` here\ncontinued.\n\n- one\n- two\n"
	want := "Heading\nSome bold and code here continued.\none\ntwo"
	if got := PlainText(in); got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
	if PlainText("   ") != "" {
		t.Error("blank input should yield empty string")
	}
}
