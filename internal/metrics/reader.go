package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Reading session Prometheus metrics.
var (
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "notesreader",
			Name:      "active_sessions",
			Help:      "Open reading sessions",
		},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notesreader",
			Name:      "searches_total",
			Help:      "Committed searches by outcome",
		},
		[]string{"result"}, // "match" / "empty" / "reset"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "notesreader",
			Name:      "search_duration_seconds",
			Help:      "Search scan duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	SectionsReadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notesreader",
			Name:      "sections_read_total",
			Help:      "Sections newly marked read",
		},
	)

	CompletionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notesreader",
			Name:      "completions_total",
			Help:      "Sessions in which every section was read",
		},
	)

	QuizGenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notesreader",
			Name:      "quiz_generations_total",
			Help:      "Quiz generation requests by outcome",
		},
		[]string{"status"}, // "ok" / "error" / "cancelled" / "discarded"
	)

	QuizGenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "notesreader",
			Name:      "quiz_generation_duration_seconds",
			Help:      "Quiz generation duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)

	QuizSubmissionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notesreader",
			Name:      "quiz_submissions_total",
			Help:      "Graded quiz submissions",
		},
	)

	QuizScorePercent = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "notesreader",
			Name:      "quiz_score_percent",
			Help:      "Distribution of quiz percentages",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	TranslationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notesreader",
			Name:      "translations_total",
			Help:      "Translation requests by outcome",
		},
		[]string{"status"},
	)

	NarrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notesreader",
			Name:      "narrations_total",
			Help:      "Narration utterances by outcome",
		},
		[]string{"status"}, // "end" / "error" / "cancelled"
	)

	ProgressEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notesreader",
			Name:      "progress_events_total",
			Help:      "Progress events handed to the persistence sink",
		},
		[]string{"event", "status"}, // status "ok" / "error" / "coalesced"
	)
)

var readerOnce sync.Once

// RegisterReaderMetrics registers the reading session metrics. Safe to call more than once.
func RegisterReaderMetrics() {
	readerOnce.Do(func() {
		prometheus.MustRegister(
			ActiveSessions,
			SearchesTotal,
			SearchDuration,
			SectionsReadTotal,
			CompletionsTotal,
			QuizGenerationsTotal,
			QuizGenerationDuration,
			QuizSubmissionsTotal,
			QuizScorePercent,
			TranslationsTotal,
			NarrationsTotal,
			ProgressEventsTotal,
		)
	})
}
