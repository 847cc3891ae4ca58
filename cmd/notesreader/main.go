package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/config"
	"github.com/excellencecoachinghub/notesreader/internal/db"
	dbRedis "github.com/excellencecoachinghub/notesreader/internal/db/redis"
	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/domain/quiz"
	"github.com/excellencecoachinghub/notesreader/internal/domain/window"
	logpkg "github.com/excellencecoachinghub/notesreader/internal/logger"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
	budgetrepo "github.com/excellencecoachinghub/notesreader/internal/repository/budget"
	clipsrepo "github.com/excellencecoachinghub/notesreader/internal/repository/clips"
	materialrepo "github.com/excellencecoachinghub/notesreader/internal/repository/material"
	progressrepo "github.com/excellencecoachinghub/notesreader/internal/repository/progress"
	"github.com/excellencecoachinghub/notesreader/internal/repository/transcache"
	chiTransport "github.com/excellencecoachinghub/notesreader/internal/transport/chi"
	"github.com/excellencecoachinghub/notesreader/internal/transport/mymemory"
	openaiTransport "github.com/excellencecoachinghub/notesreader/internal/transport/openai"
	"github.com/excellencecoachinghub/notesreader/internal/usecase/generation"
	healthuc "github.com/excellencecoachinghub/notesreader/internal/usecase/health"
	loaderuc "github.com/excellencecoachinghub/notesreader/internal/usecase/loader"
	"github.com/excellencecoachinghub/notesreader/internal/usecase/narration"
	"github.com/excellencecoachinghub/notesreader/internal/usecase/reading"
	sessionsuc "github.com/excellencecoachinghub/notesreader/internal/usecase/sessions"
	translationuc "github.com/excellencecoachinghub/notesreader/internal/usecase/translation"
	usageuc "github.com/excellencecoachinghub/notesreader/internal/usecase/usage"
	"github.com/excellencecoachinghub/notesreader/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting notesreader API server",
		zap.String("version", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("translation_provider", cfg.Translation.Provider),
		zap.Bool("narration", cfg.Narration.Enabled),
	)

	// Valkey and Redis share the protocol; the driver only matters for logs.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterLLMMetrics()
	metrics.RegisterReaderMetrics()

	providers := make(map[string]healthuc.ProviderChecker)

	generator, budget, quizHealth := buildQuizGenerator(ctx, cfg, store, logger)
	if quizHealth != nil {
		providers["llm"] = quizHealth
	}

	translator, translatorHealth := buildTranslator(cfg, store, logger)
	if translatorHealth != nil {
		providers["translation"] = translatorHealth
	}
	var translationSvc *translationuc.Service
	if translator != nil {
		translationSvc = translationuc.New(translator, cfg.Translation.Timeout(), logger)
	}

	var synth domain.Synthesizer
	if cfg.Narration.Enabled {
		synth = openaiTransport.NewSynthesizer(&openaiTransport.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.Narration.Model,
			Provider: cfg.LLM.Provider,
			Logger:   logger,
		})
	}

	loader := loaderuc.New(materialrepo.New(store), logger).
		WithRetry(cfg.Loader.MaxAttempts, cfg.Loader.RetryDelay())

	registry := sessionsuc.New(
		loader,
		progressrepo.New(store),
		generator,
		synth,
		clipsrepo.New(store, cfg.Narration.ClipTTL()),
		sessionConfig(cfg),
		logger,
	)

	runCtx, stopRegistry := context.WithCancel(ctx)
	defer stopRegistry()
	go registry.Run(runCtx)

	// Usage service reads the quiz budget; nil reports unlimited.
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New("quiz", budgetReader)

	healthSvc := healthuc.New(store, providers)

	server := chiTransport.NewServer(registry, translationSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout(),
		WriteTimeout: cfg.HTTP.WriteTimeout(),
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	stopRegistry()
	// Open sessions flush their progress before the store closes.
	registry.Shutdown(shutdownCtx)

	logger.Info("Server stopped gracefully")
}

func sessionConfig(cfg config.Config) sessionsuc.Config {
	rc := reading.DefaultConfig()
	rc.Window = window.Config{
		InitialVisible:  cfg.Reading.InitialVisible,
		InitialExpanded: cfg.Reading.InitialExpanded,
		Batch:           cfg.Reading.LoadMoreBatch,
		Threshold:       cfg.Reading.WindowThreshold,
	}
	rc.HighlightMaxChars = cfg.Reading.HighlightMaxChars
	rc.TickInterval = cfg.Reading.TickInterval()
	rc.QuizTimeout = cfg.Quiz.Timeout()
	rc.QuizDifficulty = cfg.Quiz.Difficulty
	rc.QuizQuestionCount = cfg.Quiz.QuestionCount

	return sessionsuc.Config{
		Reading: rc,
		Narration: narration.Config{
			Voice: domain.Voice{
				Name:   cfg.Narration.Voice,
				Rate:   cfg.Narration.Rate,
				Pitch:  cfg.Narration.Pitch,
				Volume: cfg.Narration.Volume,
			},
			Timeout: cfg.Narration.Timeout(),
		},
		TTL:             cfg.Reading.SessionTTL(),
		CleanupInterval: cfg.Reading.CleanupInterval(),
	}
}

// buildQuizGenerator assembles OpenAI -> Instrumented (budget). It returns a
// nil generator when no API key is configured; quiz requests then fail with
// domain.ErrQuizGenerationFailure.
func buildQuizGenerator(
	ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger,
) (quiz.Generator, *generation.BudgetTracker, healthuc.ProviderChecker) {
	if cfg.LLM.APIKey == "" {
		logger.Warn("llm.api_key is empty, quiz generation disabled")
		return nil, nil, nil
	}

	base := openaiTransport.NewQuizGenerator(&openaiTransport.Config{
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.Quiz.Model,
		Provider: cfg.LLM.Provider,
		Logger:   logger,
	})

	var tracker *generation.BudgetTracker
	if b := cfg.Quiz.Budget; b.Enabled() {
		tracker = generation.NewBudgetTracker(
			"quiz", b.DailyTokenLimit, b.MonthlyTokenLimit,
			generation.ParseBudgetAction(b.Action), logger,
		)
		tracker.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budget generation.BudgetChecker
	if tracker != nil {
		budget = tracker
	}

	gen := generation.NewInstrumentedGenerator(base, cfg.LLM.Provider, cfg.Quiz.Model, budget, logger)
	logger.Info("Quiz generator created",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.Quiz.Model),
		zap.Bool("budget", tracker != nil),
	)
	return gen, tracker, base
}

// buildTranslator assembles provider -> Cached. Provider "none" disables translation.
func buildTranslator(
	cfg config.Config, store db.Store, logger *zap.Logger,
) (domain.Translator, healthuc.ProviderChecker) {
	tc := cfg.Translation

	var (
		base   domain.Translator
		health healthuc.ProviderChecker
	)
	switch tc.Provider {
	case "mymemory":
		t := mymemory.New(&mymemory.Config{
			BaseURL:    tc.BaseURL,
			SourceLang: tc.SourceLang,
			Email:      tc.Email,
			Logger:     logger,
		})
		base, health = t, t
	case "openai":
		t := openaiTransport.NewTranslator(&openaiTransport.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    tc.Model,
			Provider: cfg.LLM.Provider,
			Logger:   logger,
		}, tc.SourceLang)
		base, health = t, t
	default:
		logger.Info("Translation disabled")
		return nil, nil
	}

	if ttl := tc.CacheTTL(); ttl > 0 {
		return transcache.New(base, store, ttl, metrics.TranslationCacheTotal, logger), health
	}
	return base, health
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logpkg.FromContextOr(r.Context(), logger).Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.String("session_id", chi.URLParamFromCtx(r.Context(), "session")),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
