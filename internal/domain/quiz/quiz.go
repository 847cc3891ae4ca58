package quiz

import (
	"time"

	"github.com/google/uuid"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
)

// Generation parameters used for section quizzes.
const (
	DefaultDifficulty    = "medium"
	DefaultQuestionCount = 4
)

// Quiz is a generated, normalized set of questions for one section.
type Quiz struct {
	id          string
	sectionID   notes.SectionID
	title       string
	difficulty  string
	questions   []Question
	totalPoints int
	createdAt   time.Time
}

// New normalizes raw generator output into a Quiz for the given section.
func New(sectionID notes.SectionID, sectionTitle, difficulty string, raw []RawQuestion, createdAt time.Time) Quiz {
	questions := Normalize(raw)
	total := 0
	for i := range questions {
		total += questions[i].Points
	}
	return Quiz{
		id:          uuid.NewString(),
		sectionID:   sectionID,
		title:       "Quiz: " + sectionTitle,
		difficulty:  difficulty,
		questions:   questions,
		totalPoints: total,
		createdAt:   createdAt,
	}
}

// ID returns the quiz identifier.
func (q *Quiz) ID() string { return q.id }

// SectionID returns the section the quiz was generated for.
func (q *Quiz) SectionID() notes.SectionID { return q.sectionID }

// Title returns the quiz title.
func (q *Quiz) Title() string { return q.title }

// Difficulty returns the requested difficulty.
func (q *Quiz) Difficulty() string { return q.difficulty }

// Len returns the number of questions.
func (q *Quiz) Len() int { return len(q.questions) }

// Question returns the question at index i.
func (q *Quiz) Question(i int) (Question, bool) {
	if i < 0 || i >= len(q.questions) {
		return Question{}, false
	}
	return q.questions[i], true
}

// Questions returns a copy of the questions.
func (q *Quiz) Questions() []Question {
	out := make([]Question, len(q.questions))
	copy(out, q.questions)
	return out
}

// TotalPoints returns the sum of question points.
func (q *Quiz) TotalPoints() int { return q.totalPoints }

// CreatedAt returns the generation time.
func (q *Quiz) CreatedAt() time.Time { return q.createdAt }
