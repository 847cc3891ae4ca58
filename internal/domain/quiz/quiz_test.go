package quiz

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
)

func rawFourQuestions() []RawQuestion {
	return []RawQuestion{
		{Question: "Q1", Type: "multiple_choice", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: AnswerKey{"b"}, Points: 10},
		{Question: "Q2", Type: "multiple_choice", Options: []string{"x", "y"}, CorrectAnswer: AnswerKey{"x"}},
		{Question: "Q3", Type: "multiple_choice", Options: []string{"only"}},
		{Question: "Q4", Type: "essay"},
	}
}

func TestNormalize(t *testing.T) {
	qs := Normalize(rawFourQuestions())

	wantTypes := []Type{MultipleChoice, Essay, MultipleChoice, Essay}
	wantPoints := []int{2, 5, 2, 5}
	for i, q := range qs {
		if q.Type != wantTypes[i] {
			t.Errorf("q%d type = %s, want %s", i, q.Type, wantTypes[i])
		}
		if q.Points != wantPoints[i] {
			t.Errorf("q%d points = %d, want %d", i, q.Points, wantPoints[i])
		}
	}
	if qs[1].Options != nil {
		t.Errorf("essay options = %v, want nil", qs[1].Options)
	}
	if strings.Join(qs[2].Options, ",") != "Option A,Option B,Option C,Option D" {
		t.Errorf("placeholder options = %v", qs[2].Options)
	}
	if strings.Join(qs[0].Options, ",") != "a,b,c,d" {
		t.Errorf("options = %v", qs[0].Options)
	}
}

func TestNormalize_EvenEssayAndUnknownType(t *testing.T) {
	qs := Normalize([]RawQuestion{
		{Question: "E", Type: "essay", Options: []string{"a", "b"}},
		{Question: "O", Type: "multiple_choice", Options: []string{"a", "b"}},
		{Question: "U", Type: "true_false", Options: []string{"true", "false"}},
	})
	if qs[0].Type != Essay || qs[0].Points != EssayPoints || qs[0].Options != nil {
		t.Errorf("even essay = %+v", qs[0])
	}
	if qs[1].Type != Essay || qs[1].Options != nil {
		t.Errorf("odd question = %+v", qs[1])
	}
	if qs[2].Type != MultipleChoice || qs[2].Points != MultipleChoicePoints || len(qs[2].Options) != 2 {
		t.Errorf("unknown type = %+v", qs[2])
	}
}

func TestNew_TotalPointsAndTitle(t *testing.T) {
	q := New(3, "Cells", DefaultDifficulty, rawFourQuestions(), time.Unix(0, 0))
	if q.TotalPoints() != 14 {
		t.Errorf("TotalPoints() = %d, want 14", q.TotalPoints())
	}
	if q.Title() != "Quiz: Cells" || q.SectionID() != 3 || q.ID() == "" {
		t.Errorf("quiz = %q section=%d id=%q", q.Title(), q.SectionID(), q.ID())
	}
}

func TestAnswerKey_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"b"`, "b"},
		{`["a", "b"]`, "a, b"},
		{`2`, "2"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var k AnswerKey
		if err := json.Unmarshal([]byte(tt.in), &k); err != nil {
			t.Errorf("Unmarshal(%s): %v", tt.in, err)
			continue
		}
		if k.String() != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, k.String(), tt.want)
		}
	}
}

func TestGrade_MultipleChoice(t *testing.T) {
	q := New(0, "s", DefaultDifficulty, []RawQuestion{
		{Question: "single", Options: []string{"a", "b"}, CorrectAnswer: AnswerKey{"b"}},
		{Question: "essay"},
		{Question: "list", Options: []string{"a", "b", "c"}, CorrectAnswer: AnswerKey{"a", "c"}},
	}, time.Now())

	res := Grade(&q, map[int]string{0: "b", 1: "", 2: "c"})
	if res.Score != 4 {
		t.Errorf("Score = %d, want 4", res.Score)
	}
	res = Grade(&q, map[int]string{0: "B", 2: "b"})
	if res.Score != 0 || len(res.WrongAnswers) != 3 {
		t.Errorf("Score = %d wrong=%d, want 0/3", res.Score, len(res.WrongAnswers))
	}
}

func TestEssayPointsFor(t *testing.T) {
	tests := []struct {
		answer string
		points int
		want   int
	}{
		{"short", 5, 0},
		{"  exactly10  ", 5, 0},
		{"this is long enough", 5, 3},
		{"this is long enough", 1, 1},
		{"this is long enough", 10, 7},
	}
	for _, tt := range tests {
		if got := EssayPointsFor(tt.answer, tt.points); got != tt.want {
			t.Errorf("EssayPointsFor(%q, %d) = %d, want %d", tt.answer, tt.points, got, tt.want)
		}
	}
}

func TestGrade_FourteenPointScenario(t *testing.T) {
	q := New(0, "s", DefaultDifficulty, rawFourQuestions(), time.Now())
	res := Grade(&q, map[int]string{
		0: "b",
		1: "short",
		2: "wrong",
		3: "a sufficiently long essay answer",
	})
	if res.TotalPoints != 14 || res.TotalQuestions != 4 {
		t.Fatalf("totals = %d/%d", res.TotalPoints, res.TotalQuestions)
	}
	if res.Score != 5 {
		t.Errorf("Score = %d, want 5", res.Score)
	}
	if res.Percentage != 36 {
		t.Errorf("Percentage = %d, want 36", res.Percentage)
	}
	if len(res.CorrectAnswers) != 2 || len(res.WrongAnswers) != 2 {
		t.Errorf("correct=%d wrong=%d", len(res.CorrectAnswers), len(res.WrongAnswers))
	}
	if res.WrongAnswers[0].CanonicalAnswer != EssayCanonicalAnswer {
		t.Errorf("essay canonical = %q", res.WrongAnswers[0].CanonicalAnswer)
	}
}

func TestGrade_EmptyQuiz(t *testing.T) {
	q := New(0, "s", DefaultDifficulty, nil, time.Now())
	res := Grade(&q, nil)
	if res.Percentage != 0 || res.TotalPoints != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestState_Lifecycle(t *testing.T) {
	var s State
	if s.Phase() != NotGenerated {
		t.Fatalf("zero phase = %s", s.Phase())
	}

	s, err := s.BeginGeneration(7)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.BeginGeneration(8); !errors.Is(err, domain.ErrQuizInProgress) {
		t.Errorf("second begin err = %v", err)
	}

	q := New(0, "s", DefaultDifficulty, rawFourQuestions(), time.Now())
	if _, ok := s.Complete(99, q); ok {
		t.Error("stale token must be discarded")
	}
	s, ok := s.Complete(7, q)
	if !ok || s.Phase() != Ready || !s.ShowQuiz() {
		t.Fatalf("after complete: phase=%s showQuiz=%v", s.Phase(), s.ShowQuiz())
	}

	if _, _, err := s.Submit(); !errors.Is(err, domain.ErrQuizIncomplete) {
		t.Errorf("early submit err = %v", err)
	}
	if _, err := s.Answer(4, "x"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Errorf("out of range err = %v", err)
	}

	for i, a := range []string{"b", "short", "wrong", "a sufficiently long essay answer"} {
		if s, err = s.Answer(i, a); err != nil {
			t.Fatal(err)
		}
	}
	before := s
	s, res, err := s.Submit()
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 5 || s.Phase() != Submitted || !s.ShowResults() || s.ShowQuiz() || s.Attempts() != 1 {
		t.Errorf("after submit: %+v phase=%s", res, s.Phase())
	}
	if before.Phase() != Ready {
		t.Error("transition mutated the previous state")
	}
	if _, err := s.Answer(0, "a"); !errors.Is(err, domain.ErrQuizNotReady) {
		t.Errorf("answer after submit err = %v", err)
	}

	s, err = s.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if s.Phase() != Ready || len(s.Answers()) != 0 || s.ShowResults() || !s.ShowQuiz() {
		t.Errorf("after reset: phase=%s answers=%v", s.Phase(), s.Answers())
	}
	if last, ok := s.Result(); !ok || last.Score != 5 {
		t.Error("reset must keep the last result")
	}
	if _, err := s.BeginGeneration(9); !errors.Is(err, domain.ErrQuizAlreadyGenerated) {
		t.Errorf("regenerate err = %v", err)
	}
}

func TestState_Abort(t *testing.T) {
	s, _ := State{}.BeginGeneration(1)
	if _, ok := s.Abort(2); ok {
		t.Error("abort with wrong token must fail")
	}
	s, ok := s.Abort(1)
	if !ok || s.Phase() != NotGenerated {
		t.Errorf("phase = %s", s.Phase())
	}
	if _, err := s.Reset(); !errors.Is(err, domain.ErrQuizNotReady) {
		t.Errorf("reset before generation err = %v", err)
	}
}

func TestState_Visibility(t *testing.T) {
	on, off := true, false
	s := State{}.WithVisibility(&on, nil)
	if !s.ShowQuiz() || s.ShowResults() {
		t.Error("only showQuiz should change")
	}
	s = s.WithVisibility(&off, &on)
	if s.ShowQuiz() || !s.ShowResults() {
		t.Error("toggles are independent")
	}
}
