package quiz

import (
	"math"
	"strings"
	"unicode/utf8"
)

// essayMinLength is the trimmed answer length an essay must exceed to earn points.
const essayMinLength = 10

// essayCreditRatio is the share of an essay's points awarded for a long-enough answer.
// This is a length heuristic, not content grading.
const essayCreditRatio = 0.7

// Graded is the outcome for one question.
type Graded struct {
	Index           int
	Question        string
	UserAnswer      string
	CanonicalAnswer string
	Explanation     string
	Type            Type
	Points          int
	MaxPoints       int
}

// Result is the graded outcome of one submission.
type Result struct {
	Score          int
	TotalPoints    int
	TotalQuestions int
	Percentage     int
	CorrectAnswers []Graded
	WrongAnswers   []Graded
}

// EssayPointsFor returns the points an essay answer earns.
func EssayPointsFor(answer string, points int) int {
	if utf8.RuneCountInString(strings.TrimSpace(answer)) <= essayMinLength {
		return 0
	}
	earned := int(math.Floor(float64(points) * essayCreditRatio))
	if earned < 1 {
		earned = 1
	}
	if earned > points {
		earned = points
	}
	return earned
}

// Grade scores answers against q. Missing answers are graded as empty.
func Grade(q *Quiz, answers map[int]string) Result {
	res := Result{
		TotalPoints:    q.totalPoints,
		TotalQuestions: len(q.questions),
		CorrectAnswers: []Graded{},
		WrongAnswers:   []Graded{},
	}

	for i := range q.questions {
		question := &q.questions[i]
		answer := answers[i]
		g := Graded{
			Index:           i,
			Question:        question.Text,
			UserAnswer:      answer,
			CanonicalAnswer: question.CanonicalAnswer(),
			Explanation:     question.Explanation,
			Type:            question.Type,
			MaxPoints:       question.Points,
		}

		if question.Type == Essay {
			g.Points = EssayPointsFor(answer, question.Points)
		} else if question.CorrectAnswer.Accepts(answer) {
			g.Points = question.Points
		}

		res.Score += g.Points
		if g.Points > 0 {
			res.CorrectAnswers = append(res.CorrectAnswers, g)
		} else {
			res.WrongAnswers = append(res.WrongAnswers, g)
		}
	}

	if res.TotalPoints > 0 {
		res.Percentage = int(math.Round(float64(res.Score) / float64(res.TotalPoints) * 100))
	}
	return res
}
