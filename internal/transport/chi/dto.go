package chi

import (
	"time"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/domain/quiz"
	"github.com/excellencecoachinghub/notesreader/internal/domain/search"
	"github.com/excellencecoachinghub/notesreader/internal/domain/section"
	domusage "github.com/excellencecoachinghub/notesreader/internal/domain/usage"
	"github.com/excellencecoachinghub/notesreader/internal/usecase/narration"
	"github.com/excellencecoachinghub/notesreader/internal/usecase/reading"
)

// --- Requests ---

type openSessionRequest struct {
	MaterialRef string `json:"material_ref"`
	UserID      string `json:"user_id"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type loadMoreRequest struct {
	Batch int `json:"batch"`
}

type noteRequest struct {
	Text string `json:"text"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type visibilityRequest struct {
	ShowQuiz    *bool `json:"show_quiz"`
	ShowResults *bool `json:"show_results"`
}

type translateRequest struct {
	Text    string `json:"text"`
	Section *int   `json:"section,omitempty"`
	Lang    string `json:"lang"`
}

// --- Responses ---

type metadataResponse struct {
	TotalSections        int      `json:"total_sections"`
	EstimatedReadingTime int      `json:"estimated_reading_time"`
	Difficulty           string   `json:"difficulty"`
	Topics               []string `json:"topics"`
}

type matchResponse struct {
	Section int    `json:"section"`
	Tier    string `json:"tier"`
}

type sectionSummary struct {
	ID        int          `json:"id"`
	Title     string       `json:"title"`
	Visible   bool         `json:"visible"`
	Expanded  bool         `json:"expanded"`
	Read      bool         `json:"read"`
	Starred   bool         `json:"starred"`
	Note      string       `json:"note,omitempty"`
	QuizPhase string       `json:"quiz_phase"`
	Quiz      *quizSummary `json:"quiz,omitempty"`
}

type quizSummary struct {
	Attempts    int  `json:"attempts"`
	ShowQuiz    bool `json:"show_quiz"`
	ShowResults bool `json:"show_results"`
	LastScore   *int `json:"last_percentage,omitempty"`
}

type sessionResponse struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id,omitempty"`
	MaterialRef      string           `json:"material_ref"`
	Title            string           `json:"title"`
	Summary          string           `json:"summary"`
	KeyPoints        []string         `json:"key_points"`
	Metadata         metadataResponse `json:"metadata"`
	Query            string           `json:"query,omitempty"`
	Matches          []matchResponse  `json:"matches,omitempty"`
	Visible          []int            `json:"visible"`
	Expanded         []int            `json:"expanded"`
	Sections         []sectionSummary `json:"sections"`
	ReadCount        int              `json:"read_count"`
	Percent          int              `json:"percent"`
	TimeSpentSeconds int64            `json:"time_spent_seconds"`
	Completed        bool             `json:"completed"`
	Bookmarked       bool             `json:"bookmarked"`
	Narration        *narrationStatus `json:"narration,omitempty"`
}

type fragmentResponse struct {
	Text  string `json:"text"`
	Match bool   `json:"match,omitempty"`
}

type sectionDetailResponse struct {
	sectionSummary
	Tier      string             `json:"tier,omitempty"`
	Content   string             `json:"content"`
	KeyPoints []string           `json:"key_points"`
	Highlight *highlightResponse `json:"highlight,omitempty"`
}

type highlightResponse struct {
	Title     []fragmentResponse   `json:"title"`
	Content   []fragmentResponse   `json:"content"`
	KeyPoints [][]fragmentResponse `json:"key_points"`
}

type questionResponse struct {
	Index   int      `json:"index"`
	Type    string   `json:"type"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
	Points  int      `json:"points"`
}

type quizResponse struct {
	ID          string             `json:"id"`
	Section     int                `json:"section"`
	Title       string             `json:"title"`
	Difficulty  string             `json:"difficulty"`
	TotalPoints int                `json:"total_points"`
	CreatedAt   time.Time          `json:"created_at"`
	Questions   []questionResponse `json:"questions"`
}

type quizStateResponse struct {
	Phase       string          `json:"phase"`
	Quiz        *quizResponse   `json:"quiz,omitempty"`
	Answers     map[int]string  `json:"answers"`
	Result      *resultResponse `json:"result,omitempty"`
	ShowQuiz    bool            `json:"show_quiz"`
	ShowResults bool            `json:"show_results"`
	Attempts    int             `json:"attempts"`
}

type gradedResponse struct {
	Index           int    `json:"index"`
	Question        string `json:"question"`
	UserAnswer      string `json:"user_answer"`
	CanonicalAnswer string `json:"canonical_answer"`
	Explanation     string `json:"explanation,omitempty"`
	Type            string `json:"type"`
	Points          int    `json:"points"`
	MaxPoints       int    `json:"max_points"`
}

type resultResponse struct {
	Score          int              `json:"score"`
	TotalPoints    int              `json:"total_points"`
	TotalQuestions int              `json:"total_questions"`
	Percentage     int              `json:"percentage"`
	CorrectAnswers []gradedResponse `json:"correct_answers"`
	WrongAnswers   []gradedResponse `json:"wrong_answers"`
}

type narrationStatus struct {
	Active  bool   `json:"active"`
	Target  string `json:"target,omitempty"`
	Section *int   `json:"section,omitempty"`
	Last    string `json:"last_event,omitempty"`
	Seq     uint64 `json:"seq,omitempty"`
	Error   string `json:"error,omitempty"`
}

type narrationStarted struct {
	Seq    uint64 `json:"seq"`
	Target string `json:"target"`
}

type translateResponse struct {
	Lang        string `json:"lang"`
	Translation string `json:"translation"`
}

type toggleResponse struct {
	Value bool `json:"value"`
}

type loadMoreResponse struct {
	Added []int `json:"added"`
}

type budgetResponse struct {
	TokensLimit     int64     `json:"tokens_limit"`
	TokensRemaining int64     `json:"tokens_remaining"`
	IsExhausted     bool      `json:"is_exhausted"`
	ResetsAt        time.Time `json:"resets_at"`
}

type usageResponse struct {
	Period      string         `json:"period"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Scope       string         `json:"scope"`
	TokensUsed  int64          `json:"tokens_used"`
	Budget      budgetResponse `json:"budget"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// --- Mapping ---

func ids(in []notes.SectionID) []int {
	out := make([]int, len(in))
	for i, id := range in {
		out[i] = int(id)
	}
	return out
}

func snapshotToResponse(snap *reading.Snapshot, doc *notes.Document) sessionResponse {
	md := snap.Metadata
	resp := sessionResponse{
		ID:          snap.ID,
		UserID:      snap.Owner.UserID,
		MaterialRef: snap.Owner.MaterialRef,
		Title:       snap.Title,
		Summary:     snap.Summary,
		KeyPoints:   snap.KeyPoints,
		Metadata: metadataResponse{
			TotalSections:        md.TotalSections,
			EstimatedReadingTime: md.EstimatedReadingTime,
			Difficulty:           md.Difficulty,
			Topics:               md.Topics,
		},
		Query:            snap.Query,
		Visible:          ids(snap.Rendered.Visible),
		Expanded:         ids(snap.Rendered.Expanded),
		Sections:         make([]sectionSummary, len(snap.Rows)),
		ReadCount:        snap.ReadCount,
		Percent:          snap.Percent,
		TimeSpentSeconds: int64(snap.TimeSpent / time.Second),
		Completed:        snap.Completed,
		Bookmarked:       snap.Bookmarked,
	}
	for _, m := range snap.Matches {
		resp.Matches = append(resp.Matches, matchResponse{Section: int(m.ID), Tier: string(m.Tier)})
	}
	for i, row := range snap.Rows {
		sec, _ := doc.Section(row.ID)
		resp.Sections[i] = rowToSummary(row, sec.Title())
	}
	return resp
}

func rowToSummary(row section.RuntimeState, title string) sectionSummary {
	s := sectionSummary{
		ID:        int(row.ID),
		Title:     title,
		Visible:   row.Window.Visible,
		Expanded:  row.Window.Expanded,
		Read:      row.Progress.Read,
		Starred:   row.Progress.Starred,
		Note:      row.Progress.Note,
		QuizPhase: string(row.Quiz.Phase()),
	}
	if row.Quiz.Phase() != quiz.NotGenerated || row.Quiz.Attempts() > 0 {
		qs := &quizSummary{
			Attempts:    row.Quiz.Attempts(),
			ShowQuiz:    row.Quiz.ShowQuiz(),
			ShowResults: row.Quiz.ShowResults(),
		}
		if res, ok := row.Quiz.Result(); ok {
			qs.LastScore = &res.Percentage
		}
		s.Quiz = qs
	}
	return s
}

func fragments(in []search.Fragment) []fragmentResponse {
	out := make([]fragmentResponse, len(in))
	for i, f := range in {
		out[i] = fragmentResponse{Text: f.Text, Match: f.Match}
	}
	return out
}

func detailToResponse(d *reading.Detail, highlighted bool) sectionDetailResponse {
	resp := sectionDetailResponse{
		sectionSummary: rowToSummary(d.State, d.Section.Title()),
		Tier:           string(d.Tier),
		Content:        d.Section.Content(),
		KeyPoints:      d.Section.KeyPoints(),
	}
	if highlighted {
		h := &highlightResponse{
			Title:     fragments(d.Title),
			Content:   fragments(d.Content),
			KeyPoints: make([][]fragmentResponse, len(d.KeyPoints)),
		}
		for i, kp := range d.KeyPoints {
			h.KeyPoints[i] = fragments(kp)
		}
		resp.Highlight = h
	}
	return resp
}

func quizToResponse(q *quiz.Quiz) *quizResponse {
	resp := &quizResponse{
		ID:          q.ID(),
		Section:     int(q.SectionID()),
		Title:       q.Title(),
		Difficulty:  q.Difficulty(),
		TotalPoints: q.TotalPoints(),
		CreatedAt:   q.CreatedAt(),
	}
	for i, question := range q.Questions() {
		resp.Questions = append(resp.Questions, questionResponse{
			Index:   i,
			Type:    string(question.Type),
			Text:    question.Text,
			Options: question.Options,
			Points:  question.Points,
		})
	}
	return resp
}

func gradedList(in []quiz.Graded) []gradedResponse {
	out := make([]gradedResponse, len(in))
	for i, g := range in {
		out[i] = gradedResponse{
			Index:           g.Index,
			Question:        g.Question,
			UserAnswer:      g.UserAnswer,
			CanonicalAnswer: g.CanonicalAnswer,
			Explanation:     g.Explanation,
			Type:            string(g.Type),
			Points:          g.Points,
			MaxPoints:       g.MaxPoints,
		}
	}
	return out
}

func resultToResponse(r *quiz.Result) *resultResponse {
	return &resultResponse{
		Score:          r.Score,
		TotalPoints:    r.TotalPoints,
		TotalQuestions: r.TotalQuestions,
		Percentage:     r.Percentage,
		CorrectAnswers: gradedList(r.CorrectAnswers),
		WrongAnswers:   gradedList(r.WrongAnswers),
	}
}

func quizStateToResponse(st quiz.State) quizStateResponse {
	resp := quizStateResponse{
		Phase:       string(st.Phase()),
		Answers:     st.Answers(),
		ShowQuiz:    st.ShowQuiz(),
		ShowResults: st.ShowResults(),
		Attempts:    st.Attempts(),
	}
	if q, ok := st.Quiz(); ok {
		resp.Quiz = quizToResponse(q)
	}
	if r, ok := st.Result(); ok {
		resp.Result = resultToResponse(&r)
	}
	return resp
}

func narrationToStatus(n *narration.Narrator) *narrationStatus {
	st := &narrationStatus{}
	if target, ok := n.Active(); ok {
		st.Active = true
		st.Target = string(target.Kind)
		if target.Kind == narration.KindSection {
			sec := int(target.Section)
			st.Section = &sec
		}
	}
	if last := n.Last(); last.Seq > 0 {
		st.Last = string(last.Kind)
		st.Seq = last.Seq
		if last.Err != nil {
			st.Error = last.Err.Error()
		}
		if !st.Active {
			st.Target = string(last.Target.Kind)
			if last.Target.Kind == narration.KindSection {
				sec := int(last.Target.Section)
				st.Section = &sec
			}
		}
	}
	return st
}

func reportToResponse(r *domusage.Report) usageResponse {
	b := r.Budget()
	return usageResponse{
		Period:      string(r.Period()),
		PeriodStart: r.PeriodStart(),
		PeriodEnd:   r.PeriodEnd(),
		Scope:       r.Scope(),
		TokensUsed:  r.TokensUsed(),
		Budget: budgetResponse{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
			ResetsAt:        b.ResetsAt(),
		},
	}
}
