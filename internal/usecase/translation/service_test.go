package translation

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterReaderMetrics()
	os.Exit(m.Run())
}

type mockTranslator struct {
	translateFn func(ctx context.Context, text, lang string) (string, error)
}

func (m *mockTranslator) Translate(ctx context.Context, text, lang string) (string, error) {
	return m.translateFn(ctx, text, lang)
}

func TestTranslate_Success(t *testing.T) {
	var gotText, gotLang string
	tr := &mockTranslator{translateFn: func(_ context.Context, text, lang string) (string, error) {
		gotText, gotLang = text, lang
		return "La célula", nil
	}}
	before := testutil.ToFloat64(metrics.TranslationsTotal.WithLabelValues("ok"))

	out, err := New(tr, time.Second, zap.NewNop()).Translate(context.Background(), "The **cell**", " ES ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "La célula" {
		t.Errorf("unexpected translation %q", out)
	}
	if gotText != "The cell" || gotLang != "es" {
		t.Errorf("translator got (%q, %q)", gotText, gotLang)
	}
	if after := testutil.ToFloat64(metrics.TranslationsTotal.WithLabelValues("ok")); after != before+1 {
		t.Errorf("expected ok counter to grow by 1, got %v -> %v", before, after)
	}
}

func TestTranslate_RejectsBlankInput(t *testing.T) {
	svc := New(&mockTranslator{}, time.Second, zap.NewNop())

	for _, tc := range []struct{ text, lang string }{{"   ", "es"}, {"text", ""}} {
		if _, err := svc.Translate(context.Background(), tc.text, tc.lang); !errors.Is(err, domain.ErrTranslationUnavailable) {
			t.Errorf("Translate(%q, %q): expected ErrTranslationUnavailable, got %v", tc.text, tc.lang, err)
		}
	}
}

func TestTranslate_ProviderError(t *testing.T) {
	tr := &mockTranslator{translateFn: func(context.Context, string, string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	_, err := New(tr, time.Second, zap.NewNop()).Translate(context.Background(), "text", "fr")
	if !errors.Is(err, domain.ErrTranslationUnavailable) {
		t.Fatalf("expected ErrTranslationUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected cause in error, got %v", err)
	}
}

func TestTranslate_Timeout(t *testing.T) {
	tr := &mockTranslator{translateFn: func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	_, err := New(tr, 10*time.Millisecond, zap.NewNop()).Translate(context.Background(), "text", "fr")
	if !errors.Is(err, domain.ErrTranslationUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected unavailable deadline error, got %v", err)
	}
}

func TestTranslate_NoProvider(t *testing.T) {
	_, err := New(nil, 0, zap.NewNop()).Translate(context.Background(), "text", "fr")
	if !errors.Is(err, domain.ErrTranslationUnavailable) {
		t.Fatalf("expected ErrTranslationUnavailable, got %v", err)
	}
}
