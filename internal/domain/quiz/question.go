package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Type is the question kind.
type Type string

// Question types.
const (
	MultipleChoice Type = "multiple_choice"
	Essay          Type = "essay"
)

// Points awarded per question type after normalization.
const (
	MultipleChoicePoints = 2
	EssayPoints          = 5
)

// EssayCanonicalAnswer is reported as the correct answer of essay questions.
const EssayCanonicalAnswer = "Essay question - graded on content"

// PlaceholderOptions replace the options of a multiple-choice question that
// arrived with fewer than two.
var PlaceholderOptions = []string{"Option A", "Option B", "Option C", "Option D"}

// AnswerKey holds the accepted answers of a question. Generators return either
// a single string or a list; a bare number is kept as its decimal text.
type AnswerKey []string

// UnmarshalJSON accepts a string, a list of strings, a number or null.
func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*k = nil
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = AnswerKey{s}
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(AnswerKey, 0, len(raw))
		for _, r := range raw {
			var one AnswerKey
			if err := one.UnmarshalJSON(r); err != nil {
				return err
			}
			out = append(out, one...)
		}
		*k = out
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("answer key: %w", err)
		}
		*k = AnswerKey{n.String()}
	}
	return nil
}

// Accepts reports whether answer exactly equals one of the keys.
func (k AnswerKey) Accepts(answer string) bool {
	for _, want := range k {
		if answer == want {
			return true
		}
	}
	return false
}

// String renders the key for display.
func (k AnswerKey) String() string { return strings.Join(k, ", ") }

// RawQuestion is a question as returned by a generator, before normalization.
type RawQuestion struct {
	Question      string    `json:"question"`
	Type          string    `json:"type"`
	Options       []string  `json:"options"`
	CorrectAnswer AnswerKey `json:"correctAnswer"`
	Explanation   string    `json:"explanation"`
	Points        int       `json:"points"`
}

// Question is a normalized quiz question.
type Question struct {
	Type          Type
	Text          string
	Options       []string
	CorrectAnswer AnswerKey
	Explanation   string
	Points        int
}

// Normalize applies the question shape rules: odd positions are always
// essays, even positions keep an explicit essay type and are multiple choice
// otherwise. Essays carry no options and are worth EssayPoints; multiple choice
// has at least two options and is worth MultipleChoicePoints.
func Normalize(raw []RawQuestion) []Question {
	out := make([]Question, len(raw))
	for i, r := range raw {
		q := Question{
			Text:          r.Question,
			CorrectAnswer: append(AnswerKey(nil), r.CorrectAnswer...),
			Explanation:   r.Explanation,
		}
		if i%2 == 1 || Type(r.Type) == Essay {
			q.Type = Essay
			q.Points = EssayPoints
		} else {
			q.Type = MultipleChoice
			q.Points = MultipleChoicePoints
			if len(r.Options) < 2 {
				q.Options = append([]string(nil), PlaceholderOptions...)
			} else {
				q.Options = append([]string(nil), r.Options...)
			}
		}
		out[i] = q
	}
	return out
}

// CanonicalAnswer is the answer shown to the learner after grading.
func (q *Question) CanonicalAnswer() string {
	if q.Type == Essay {
		return EssayCanonicalAnswer
	}
	return q.CorrectAnswer.String()
}
