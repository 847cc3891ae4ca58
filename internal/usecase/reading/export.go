package reading

import (
	"fmt"
	"strings"
	"time"

	"github.com/excellencecoachinghub/notesreader/internal/domain/progress"
)

const (
	exportRuleWidth   = 60
	exportSectionRule = 50
	exportTimeLayout  = "January 2, 2006 15:04"
)

// Export renders the document with the learner's progress, stars and notes as
// plain text study notes.
func (s *Session) Export() (string, error) {
	s.mu.Lock()
	if err := s.openLocked(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	table := s.table
	timeSpent, bookmarked := s.timeSpent, s.bookmarked
	now := s.now()
	s.mu.Unlock()

	doc := &s.doc
	total := doc.Len()
	read := table.ReadCount()
	pct := progress.Percent(read, total)
	minutes := int((timeSpent + 30*time.Second) / time.Minute)
	userNotes := table.Notes()

	var b strings.Builder
	rule := strings.Repeat("=", exportRuleWidth)
	banner := func(title string) {
		fmt.Fprintf(&b, "%s\n%s\n%s\n\n", rule, title, rule)
	}

	banner(strings.ToUpper(doc.Title()))
	fmt.Fprintf(&b, "Generated on: %s\n", now.Format(exportTimeLayout))
	fmt.Fprintf(&b, "Source: %s\n", s.owner.MaterialRef)
	fmt.Fprintf(&b, "Reading Progress: %d%% (%d/%d sections read)\n", pct, read, total)
	fmt.Fprintf(&b, "Time Spent: %d minutes\n", minutes)
	fmt.Fprintf(&b, "Bookmarked: %s\n\n", yesNo(bookmarked))

	banner("SUMMARY")
	fmt.Fprintf(&b, "%s\n\n", doc.Summary())

	banner("KEY POINTS")
	for i, kp := range doc.KeyPoints() {
		fmt.Fprintf(&b, "%d. %s\n", i+1, kp)
	}
	b.WriteString("\n")

	banner("DOCUMENT SECTIONS")
	sectionRule := strings.Repeat("-", exportSectionRule)
	for _, sec := range doc.Sections() {
		row, _ := table.Row(sec.ID())
		status := "UNREAD"
		if row.Progress.Read {
			status = "READ"
		}
		if row.Progress.Starred {
			status += " STARRED"
		}

		fmt.Fprintf(&b, "%s\nSECTION %d: %s\n%s\n\n", sectionRule, int(sec.ID())+1, sec.Title(), sectionRule)
		fmt.Fprintf(&b, "Status: %s\n\n%s\n\nKey Points:\n", status, sec.Content())
		for i, kp := range sec.KeyPoints() {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, kp)
		}
		if note := strings.TrimSpace(row.Progress.Note); note != "" {
			fmt.Fprintf(&b, "\nMY NOTES:\n%s\n", note)
		}
		b.WriteString("\n")
	}

	md := doc.Metadata()
	banner("METADATA")
	fmt.Fprintf(&b, "Total Sections: %d\n", md.TotalSections)
	fmt.Fprintf(&b, "Estimated Reading Time: %d minutes\n", md.EstimatedReadingTime)
	fmt.Fprintf(&b, "Difficulty Level: %s\n", orNA(md.Difficulty))
	fmt.Fprintf(&b, "Topics: %s\n\n", orNA(strings.Join(md.Topics, ", ")))

	banner("STUDY STATISTICS")
	fmt.Fprintf(&b, "Sections Read: %d/%d (%d%%)\n", read, total, pct)
	fmt.Fprintf(&b, "Starred Sections: %d\n", len(table.Starred()))
	fmt.Fprintf(&b, "Personal Notes Added: %d\n", countNonBlank(userNotes))
	fmt.Fprintf(&b, "Time Spent Reading: %d minutes\n", minutes)
	fmt.Fprintf(&b, "Bookmarked: %s\n", yesNo(bookmarked))

	return b.String(), nil
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func countNonBlank[K comparable](m map[K]string) int {
	n := 0
	for _, v := range m {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}
