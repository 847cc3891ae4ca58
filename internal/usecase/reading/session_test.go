package reading

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/domain/progress"
	"github.com/excellencecoachinghub/notesreader/internal/domain/quiz"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterReaderMetrics()
	os.Exit(m.Run())
}

type mockSink struct {
	mu        sync.Mutex
	times     []int64
	completes int
	updates   []progress.Snapshot
}

func (m *mockSink) OnTimeSpent(_ context.Context, _ progress.Owner, seconds int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.times = append(m.times, seconds)
	return nil
}

func (m *mockSink) OnComplete(_ context.Context, _ progress.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completes++
	return nil
}

func (m *mockSink) OnProgressUpdate(_ context.Context, _ progress.Owner, snap progress.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, snap)
	return nil
}

type mockGenerator struct {
	generateFn func(ctx context.Context, req quiz.Request) (quiz.Generation, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req quiz.Request) (quiz.Generation, error) {
	return m.generateFn(ctx, req)
}

func fourQuestions() []quiz.RawQuestion {
	return []quiz.RawQuestion{
		{Question: "Q1", Type: "multiple_choice", Options: []string{"a", "b"}, CorrectAnswer: quiz.AnswerKey{"b"}},
		{Question: "Q2", Type: "essay"},
		{Question: "Q3", Type: "multiple_choice", Options: []string{"c", "d"}, CorrectAnswer: quiz.AnswerKey{"c"}},
		{Question: "Q4", Type: "essay"},
	}
}

func makeDoc(t *testing.T, n int) notes.Document {
	t.Helper()
	sections := make([]notes.Section, n)
	for i := range sections {
		sections[i] = notes.NewSection(
			fmt.Sprintf("Section %d", i),
			fmt.Sprintf("Body of section %d about topic%d.", i, i),
			[]string{fmt.Sprintf("point %d", i)},
			i+1,
		)
	}
	doc, err := notes.New("Doc", "Summary", []string{"overall"}, sections, nil)
	if err != nil {
		t.Fatalf("notes.New: %v", err)
	}
	return doc
}

func newTestSession(t *testing.T, n int, gen quiz.Generator, sink ProgressSink) *Session {
	t.Helper()
	return New("s1", progress.Owner{UserID: "u1", MaterialRef: "m1"}, makeDoc(t, n), nil,
		DefaultConfig(), gen, sink, zap.NewNop())
}

func TestSession_ThreeSectionCompletionFiresOnce(t *testing.T) {
	sink := &mockSink{}
	s := newTestSession(t, 3, nil, sink)

	for _, id := range []notes.SectionID{0, 1, 2} {
		if err := s.Expand(id); err != nil {
			t.Fatalf("Expand(%d): %v", id, err)
		}
	}
	for _, id := range []notes.SectionID{2, 1, 0} {
		if err := s.MarkRead(id); err != nil {
			t.Fatalf("MarkRead(%d): %v", id, err)
		}
	}
	s.Close(context.Background())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.completes != 1 {
		t.Errorf("OnComplete called %d times, want 1", sink.completes)
	}
	last := sink.updates[len(sink.updates)-1]
	if len(last.ReadSections) != 3 || !last.Completed {
		t.Errorf("last update = %+v", last)
	}
}

func TestSession_MarkReadIdempotent(t *testing.T) {
	sink := &mockSink{}
	s := newTestSession(t, 5, nil, sink)

	for i := 0; i < 3; i++ {
		if err := s.MarkRead(1); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.Table().Read(); len(got) != 1 || got[0] != 1 {
		t.Errorf("Read() = %v", got)
	}
	s.Close(context.Background())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	// one for the first MarkRead, one final flush on close
	if len(sink.updates) != 2 {
		t.Errorf("progress updates = %d, want 2", len(sink.updates))
	}
}

func TestSession_UnknownSection(t *testing.T) {
	s := newTestSession(t, 2, nil, nil)
	defer s.Close(context.Background())

	if err := s.Expand(5); !errors.Is(err, domain.ErrSectionNotFound) {
		t.Errorf("Expand err = %v", err)
	}
	if _, err := s.ToggleStar(-1); !errors.Is(err, domain.ErrSectionNotFound) {
		t.Errorf("ToggleStar err = %v", err)
	}
	if _, err := s.SectionDetail(2); !errors.Is(err, domain.ErrSectionNotFound) {
		t.Errorf("SectionDetail err = %v", err)
	}
}

func TestSession_WindowSurvivesSearch(t *testing.T) {
	s := newTestSession(t, 20, nil, nil)
	defer s.Close(context.Background())

	added, err := s.LoadMore(0)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(added) != "[3 4 5 6 7]" {
		t.Errorf("LoadMore(default) added %v", added)
	}

	ctx := context.Background()
	if _, err := s.Search(ctx, "topic12"); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if fmt.Sprint(snap.Rendered.Visible) != "[12]" || len(snap.Matches) != 1 {
		t.Errorf("filtered window = %v matches=%v", snap.Rendered.Visible, snap.Matches)
	}

	if _, err := s.Search(ctx, "  "); err != nil {
		t.Fatal(err)
	}
	snap = s.Snapshot()
	if fmt.Sprint(snap.Rendered.Visible) != "[0 1 2 3 4 5 6 7]" {
		t.Errorf("window after clearing search = %v", snap.Rendered.Visible)
	}
	if snap.Matches != nil {
		t.Errorf("unfiltered snapshot has matches %v", snap.Matches)
	}
}

func TestSession_ExpandMarksReadCollapseKeepsVisible(t *testing.T) {
	s := newTestSession(t, 15, nil, nil)
	defer s.Close(context.Background())

	if err := s.Expand(9); err != nil {
		t.Fatal(err)
	}
	if err := s.Collapse(9); err != nil {
		t.Fatal(err)
	}
	row, _ := s.Table().Row(9)
	if !row.Progress.Read || !row.Window.Visible || row.Window.Expanded {
		t.Errorf("row = %+v", row)
	}
	if err := s.OnViewportIntersect(12); err != nil {
		t.Fatal(err)
	}
	row, _ = s.Table().Row(12)
	if !row.Window.Visible || row.Progress.Read {
		t.Errorf("intersect must only reveal: %+v", row)
	}
}

func TestSession_SeedsPriorProgress(t *testing.T) {
	sink := &mockSink{}
	prior := &progress.Snapshot{
		ReadSections:     []notes.SectionID{0, 1, 9},
		Starred:          []notes.SectionID{1},
		Notes:            map[notes.SectionID]string{1: "note"},
		TimeSpentSeconds: 120,
		Completed:        false,
	}
	s := New("s2", progress.Owner{UserID: "u", MaterialRef: "m"}, makeDoc(t, 3), prior,
		DefaultConfig(), nil, sink, zap.NewNop())

	snap := s.Snapshot()
	if snap.ReadCount != 2 || snap.TimeSpent != 2*time.Minute {
		t.Errorf("seeded read=%d time=%s", snap.ReadCount, snap.TimeSpent)
	}
	if err := s.MarkRead(2); err != nil {
		t.Fatal(err)
	}
	s.Close(context.Background())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.completes != 1 {
		t.Errorf("completion after seeding fired %d times", sink.completes)
	}
}

func TestSession_TickForwardsRunningTotal(t *testing.T) {
	sink := &mockSink{}
	s := newTestSession(t, 1, nil, sink)
	s.Tick(time.Second)
	s.Tick(1500 * time.Millisecond)
	s.Tick(500 * time.Millisecond)
	s.Close(context.Background())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.times) == 0 {
		t.Fatal("expected time spent events")
	}
	for i := 1; i < len(sink.times); i++ {
		if sink.times[i] < sink.times[i-1] {
			t.Errorf("time spent went backwards: %v", sink.times)
		}
	}
	if last := sink.times[len(sink.times)-1]; last != 3 {
		t.Errorf("last time spent = %d, want 3", last)
	}
	if s.Tick(time.Second) {
		t.Error("Tick after Close must report false")
	}
}

// stallingSink blocks time-spent deliveries until release is closed.
type stallingSink struct {
	mockSink
	release chan struct{}
}

func (m *stallingSink) OnTimeSpent(ctx context.Context, owner progress.Owner, seconds int64) error {
	select {
	case <-m.release:
	case <-ctx.Done():
	}
	return m.mockSink.OnTimeSpent(ctx, owner, seconds)
}

func TestSession_StalledSinkStillDeliversCompletion(t *testing.T) {
	sink := &stallingSink{release: make(chan struct{})}
	s := newTestSession(t, 3, nil, sink)

	for range 300 {
		s.Tick(time.Second)
	}
	for _, id := range []notes.SectionID{0, 1, 2} {
		if err := s.Expand(id); err != nil {
			t.Fatalf("Expand(%d): %v", id, err)
		}
	}

	s.emit.mu.Lock()
	queued := len(s.emit.pending)
	s.emit.mu.Unlock()
	if queued > 4 {
		t.Errorf("queue grew to %d events while the sink was stalled", queued)
	}

	close(sink.release)
	s.Close(context.Background())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.completes != 1 {
		t.Fatalf("OnComplete called %d times, want 1", sink.completes)
	}
	if last := sink.times[len(sink.times)-1]; last != 300 {
		t.Errorf("last time spent = %d, want 300", last)
	}
	last := sink.updates[len(sink.updates)-1]
	if len(last.ReadSections) != 3 || !last.Completed {
		t.Errorf("last update = %+v", last)
	}
}

func TestSession_StarAndNote(t *testing.T) {
	s := newTestSession(t, 2, nil, nil)
	defer s.Close(context.Background())

	on, err := s.ToggleStar(1)
	if err != nil || !on {
		t.Fatalf("ToggleStar = %v, %v", on, err)
	}
	if on, _ = s.ToggleStar(1); on {
		t.Error("second toggle must clear the star")
	}
	if err := s.SetNote(0, "remember"); err != nil {
		t.Fatal(err)
	}
	if n := s.Table().Notes(); n[0] != "remember" {
		t.Errorf("Notes() = %v", n)
	}
}

func TestSession_QuizLifecycle(t *testing.T) {
	var got quiz.Request
	gen := &mockGenerator{generateFn: func(_ context.Context, req quiz.Request) (quiz.Generation, error) {
		got = req
		return quiz.Generation{Questions: fourQuestions()}, nil
	}}
	s := newTestSession(t, 3, gen, nil)
	defer s.Close(context.Background())

	q, err := s.GenerateQuiz(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Topic != "Section 1" || got.Difficulty != "medium" || got.Count != 4 {
		t.Errorf("request = %+v", got)
	}
	if !strings.HasPrefix(got.Content, "Section 1\n\nBody of section 1") || !strings.HasSuffix(got.Content, "Key Points:\npoint 1") {
		t.Errorf("content = %q", got.Content)
	}
	if q.TotalPoints() != 14 {
		t.Errorf("TotalPoints = %d", q.TotalPoints())
	}

	if _, err := s.SubmitQuiz(1); !errors.Is(err, domain.ErrQuizIncomplete) {
		t.Errorf("incomplete submit err = %v", err)
	}
	answers := []string{"b", "tiny", "d", "long enough essay text"}
	for i, a := range answers {
		if err := s.AnswerQuestion(1, i, a); err != nil {
			t.Fatal(err)
		}
	}
	res, err := s.SubmitQuiz(1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 5 || res.Percentage != 36 {
		t.Errorf("result = %d / %d%%", res.Score, res.Percentage)
	}

	if err := s.ResetQuiz(1); err != nil {
		t.Fatal(err)
	}
	st, _ := s.QuizState(1)
	if st.Phase() != quiz.Ready || len(st.Answers()) != 0 || st.Attempts() != 1 {
		t.Errorf("after reset phase=%s answers=%v", st.Phase(), st.Answers())
	}
	other, _ := s.QuizState(0)
	if other.Phase() != quiz.NotGenerated {
		t.Error("reset leaked into another section")
	}
}

func TestSession_QuizFailureReturnsToNotGenerated(t *testing.T) {
	gen := &mockGenerator{generateFn: func(context.Context, quiz.Request) (quiz.Generation, error) {
		return quiz.Generation{}, errors.New("upstream 500")
	}}
	s := newTestSession(t, 2, gen, nil)
	defer s.Close(context.Background())

	_, err := s.GenerateQuiz(context.Background(), 0)
	if !errors.Is(err, domain.ErrQuizGenerationFailure) {
		t.Fatalf("err = %v", err)
	}
	st, _ := s.QuizState(0)
	if st.Phase() != quiz.NotGenerated {
		t.Errorf("phase = %s", st.Phase())
	}
}

func TestSession_QuizConcurrentAndCancel(t *testing.T) {
	started := make(chan struct{})
	gen := &mockGenerator{generateFn: func(ctx context.Context, _ quiz.Request) (quiz.Generation, error) {
		close(started)
		<-ctx.Done()
		return quiz.Generation{}, ctx.Err()
	}}
	s := newTestSession(t, 2, gen, nil)
	defer s.Close(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := s.GenerateQuiz(context.Background(), 0)
		errCh <- err
	}()
	<-started

	if _, err := s.GenerateQuiz(context.Background(), 0); !errors.Is(err, domain.ErrQuizInProgress) {
		t.Errorf("second request err = %v", err)
	}
	st, _ := s.QuizState(0)
	if st.Phase() != quiz.Generating {
		t.Errorf("phase = %s", st.Phase())
	}

	aborted, err := s.CancelQuizGeneration(0)
	if err != nil || !aborted {
		t.Fatalf("CancelQuizGeneration = %v, %v", aborted, err)
	}
	if err := <-errCh; !errors.Is(err, domain.ErrQuizGenerationFailure) {
		t.Errorf("cancelled request err = %v", err)
	}
	st, _ = s.QuizState(0)
	if st.Phase() != quiz.NotGenerated {
		t.Errorf("phase after cancel = %s", st.Phase())
	}
	if aborted, _ := s.CancelQuizGeneration(0); aborted {
		t.Error("nothing left to cancel")
	}
}

func TestSession_LateResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	gen := &mockGenerator{generateFn: func(context.Context, quiz.Request) (quiz.Generation, error) {
		close(started)
		<-release
		return quiz.Generation{Questions: fourQuestions()}, nil
	}}
	s := newTestSession(t, 1, gen, nil)
	defer s.Close(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := s.GenerateQuiz(context.Background(), 0)
		errCh <- err
	}()
	<-started
	if _, err := s.CancelQuizGeneration(0); err != nil {
		t.Fatal(err)
	}
	close(release)

	if err := <-errCh; !errors.Is(err, domain.ErrQuizGenerationFailure) {
		t.Errorf("late response err = %v", err)
	}
	st, _ := s.QuizState(0)
	if _, ok := st.Quiz(); ok || st.Phase() != quiz.NotGenerated {
		t.Errorf("late response installed a quiz: phase=%s", st.Phase())
	}
}

func TestSession_ClosedRejectsOperations(t *testing.T) {
	s := newTestSession(t, 2, nil, nil)
	s.Close(context.Background())
	s.Close(context.Background())

	if err := s.Expand(0); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Expand after close err = %v", err)
	}
	if _, err := s.Search(context.Background(), "x"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Search after close err = %v", err)
	}
}

func TestSession_SectionDetailHighlights(t *testing.T) {
	s := newTestSession(t, 3, nil, nil)
	defer s.Close(context.Background())

	if _, err := s.Search(context.Background(), "BODY"); err != nil {
		t.Fatal(err)
	}
	d, err := s.SectionDetail(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Content) < 2 || !d.Content[0].Match || d.Content[0].Text != "Body" {
		t.Errorf("content fragments = %+v", d.Content)
	}
	if d.Tier != "content" {
		t.Errorf("tier = %q", d.Tier)
	}
}

func TestSession_ExportAndBookmark(t *testing.T) {
	s := newTestSession(t, 2, nil, nil)
	defer s.Close(context.Background())

	if on, _ := s.ToggleBookmark(); !on {
		t.Fatal("bookmark not set")
	}
	_ = s.Expand(0)
	_, _ = s.ToggleStar(0)
	_ = s.SetNote(0, "my thought")

	out, err := s.Export()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"DOC\n",
		"Reading Progress: 50% (1/2 sections read)",
		"SECTION 1: Section 0",
		"Status: READ STARRED",
		"Status: UNREAD",
		"MY NOTES:\nmy thought",
		"Personal Notes Added: 1",
		"Bookmarked: Yes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q", want)
		}
	}
}
