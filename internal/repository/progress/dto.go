package progress

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	domprog "github.com/excellencecoachinghub/notesreader/internal/domain/progress"
)

const (
	fieldReadSections = "read_sections"
	fieldStarred      = "starred"
	fieldNotes        = "notes"
	fieldTimeSpent    = "time_spent"
	fieldCompleted    = "completed"
	fieldBookmarked   = "bookmarked"
	fieldUpdatedAt    = "updated_at"
)

// snapshotToHash converts a progress snapshot to a map for HSET.
func snapshotToHash(s domprog.Snapshot) (map[string]string, error) {
	read, err := json.Marshal(nonNil(s.ReadSections))
	if err != nil {
		return nil, fmt.Errorf("marshal read sections: %w", err)
	}
	starred, err := json.Marshal(nonNil(s.Starred))
	if err != nil {
		return nil, fmt.Errorf("marshal starred: %w", err)
	}
	userNotes := s.Notes
	if userNotes == nil {
		userNotes = map[notes.SectionID]string{}
	}
	notesJSON, err := json.Marshal(userNotes)
	if err != nil {
		return nil, fmt.Errorf("marshal notes: %w", err)
	}

	return map[string]string{
		fieldReadSections: string(read),
		fieldStarred:      string(starred),
		fieldNotes:        string(notesJSON),
		fieldTimeSpent:    strconv.FormatInt(s.TimeSpentSeconds, 10),
		fieldCompleted:    strconv.FormatBool(s.Completed),
		fieldBookmarked:   strconv.FormatBool(s.Bookmarked),
		fieldUpdatedAt:    formatTime(s.UpdatedAt),
	}, nil
}

// snapshotFromHash hydrates a snapshot from an HGETALL result. Missing fields
// keep their zero value; a hash written only by time or completion events is valid.
func snapshotFromHash(m map[string]string) (domprog.Snapshot, error) {
	var s domprog.Snapshot

	if v := m[fieldReadSections]; v != "" {
		if err := json.Unmarshal([]byte(v), &s.ReadSections); err != nil {
			return domprog.Snapshot{}, fmt.Errorf("unmarshal %s: %w", fieldReadSections, err)
		}
	}
	if v := m[fieldStarred]; v != "" {
		if err := json.Unmarshal([]byte(v), &s.Starred); err != nil {
			return domprog.Snapshot{}, fmt.Errorf("unmarshal %s: %w", fieldStarred, err)
		}
	}
	if v := m[fieldNotes]; v != "" {
		if err := json.Unmarshal([]byte(v), &s.Notes); err != nil {
			return domprog.Snapshot{}, fmt.Errorf("unmarshal %s: %w", fieldNotes, err)
		}
	}
	if v := m[fieldTimeSpent]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domprog.Snapshot{}, fmt.Errorf("invalid %s: %w", fieldTimeSpent, err)
		}
		s.TimeSpentSeconds = n
	}
	// booleans are lenient: anything unparsable reads as false
	s.Completed, _ = strconv.ParseBool(m[fieldCompleted])
	s.Bookmarked, _ = strconv.ParseBool(m[fieldBookmarked])
	if v := m[fieldUpdatedAt]; v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			s.UpdatedAt = t
		}
	}
	return s, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nonNil(ids []notes.SectionID) []notes.SectionID {
	if ids == nil {
		return []notes.SectionID{}
	}
	return ids
}
