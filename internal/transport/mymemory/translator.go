// Package mymemory is a client for the MyMemory translation API.
package mymemory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

// DefaultBaseURL is the public MyMemory endpoint.
const DefaultBaseURL = "https://api.mymemory.translated.net"

const provider = "mymemory"

// Config holds the MyMemory client settings.
type Config struct {
	BaseURL    string
	SourceLang string
	// Email raises the anonymous daily quota when set.
	Email      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Translator calls GET /get?q=...&langpair=src|dst.
type Translator struct {
	baseURL    string
	sourceLang string
	email      string
	http       *http.Client
	logger     *zap.Logger
}

// New creates a MyMemory translator.
func New(cfg *Config) *Translator {
	t := &Translator{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		sourceLang: cfg.SourceLang,
		email:      cfg.Email,
		http:       cfg.HTTPClient,
		logger:     cfg.Logger,
	}
	if t.baseURL == "" {
		t.baseURL = DefaultBaseURL
	}
	if t.sourceLang == "" {
		t.sourceLang = "en"
	}
	if t.http == nil {
		t.http = &http.Client{Timeout: 30 * time.Second}
	}
	return t
}

type response struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  json.Number `json:"responseStatus"`
	ResponseDetails string      `json:"responseDetails"`
}

// Translate implements domain.Translator.
func (t *Translator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", t.sourceLang+"|"+targetLang)
	if t.email != "" {
		q.Set("de", t.email)
	}

	start := time.Now()
	body, err := t.get(ctx, "/get?"+q.Encode())
	if err != nil {
		t.fail("api_error")
		return "", fmt.Errorf("%w: %w", domain.ErrTranslationUnavailable, err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		t.fail("parse_error")
		return "", fmt.Errorf("%w: decode response: %w", domain.ErrTranslationUnavailable, err)
	}
	if resp.ResponseStatus.String() != "200" {
		t.fail("api_error")
		return "", fmt.Errorf("%w: status %s: %s",
			domain.ErrTranslationUnavailable, resp.ResponseStatus, resp.ResponseDetails)
	}
	out := strings.TrimSpace(resp.ResponseData.TranslatedText)
	if out == "" {
		t.fail("empty_response")
		return "", fmt.Errorf("%w: empty translation", domain.ErrTranslationUnavailable)
	}

	metrics.LLMRequestsTotal.WithLabelValues(provider, "translate", "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(provider, "translate").Observe(time.Since(start).Seconds())
	return out, nil
}

// HealthCheck translates a single word.
func (t *Translator) HealthCheck(ctx context.Context) error {
	if _, err := t.Translate(ctx, "hello", "es"); err != nil {
		return fmt.Errorf("mymemory: %w", err)
	}
	return nil
}

func (t *Translator) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func (t *Translator) fail(errType string) {
	metrics.LLMRequestsTotal.WithLabelValues(provider, "translate", "error").Inc()
	metrics.LLMErrorsTotal.WithLabelValues(provider, "translate", errType).Inc()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
