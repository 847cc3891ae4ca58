package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/domain/quiz"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

const opQuiz = "quiz"

const quizSystemPrompt = "You write study quizzes. Answer with a single JSON object and nothing else."

// QuizGenerator generates section quizzes through the chat completions API.
type QuizGenerator struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// NewQuizGenerator creates an OpenAI-compatible quiz generator.
func NewQuizGenerator(cfg *Config) *QuizGenerator {
	return &QuizGenerator{
		client:   newClient(cfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Generate implements quiz.Generator.
func (g *QuizGenerator) Generate(ctx context.Context, req quiz.Request) (quiz.Generation, error) {
	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: quizSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: quizPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	duration := time.Since(start)

	if err != nil {
		g.fail("api_error")
		return quiz.Generation{}, parseAPIError(opQuiz, err, domain.ErrQuizGenerationFailure)
	}
	if len(resp.Choices) == 0 {
		g.fail("empty_response")
		return quiz.Generation{}, fmt.Errorf("empty completion: %w", domain.ErrQuizGenerationFailure)
	}

	questions, err := parseQuestions(resp.Choices[0].Message.Content)
	if err != nil {
		g.fail("parse_error")
		g.logger.Debug("Unparseable quiz completion",
			zap.String("content", truncate(resp.Choices[0].Message.Content, 500)),
		)
		return quiz.Generation{}, fmt.Errorf("parse quiz: %w: %w", domain.ErrQuizGenerationFailure, err)
	}

	metrics.LLMRequestsTotal.WithLabelValues(g.provider, opQuiz, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(g.provider, opQuiz).Observe(duration.Seconds())
	recordTokens(g.provider, g.model, resp.Usage)

	return quiz.Generation{
		Questions:    questions,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *QuizGenerator) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, g.client)
}

func (g *QuizGenerator) fail(errType string) {
	metrics.LLMRequestsTotal.WithLabelValues(g.provider, opQuiz, "error").Inc()
	metrics.LLMErrorsTotal.WithLabelValues(g.provider, opQuiz, errType).Inc()
}

func recordTokens(provider, model string, usage openai.Usage) {
	if usage.TotalTokens <= 0 {
		return
	}
	metrics.LLMTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(usage.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues(provider, model, "total").Add(float64(usage.TotalTokens))
}

func quizPrompt(req quiz.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following course content, create %d %s level questions about %q.\n",
		req.Count, req.Difficulty, req.Topic)
	b.WriteString(`Alternate multiple choice and essay questions, starting with multiple choice.
Respond with this JSON structure:
{"questions":[
 {"question":"...","type":"multiple_choice","options":["...","...","...","..."],"correctAnswer":"...","explanation":"...","points":2},
 {"question":"...","type":"essay","explanation":"What a good answer covers","points":5}
]}
Multiple choice questions have four options taken from the content, exactly one of them correct.
Essay questions ask for explanation, analysis or application of a concept.

COURSE CONTENT:
`)
	b.WriteString(req.Content)
	return b.String()
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// parseQuestions accepts {"questions":[...]} or a bare array, optionally
// fenced or surrounded by prose.
func parseQuestions(content string) ([]quiz.RawQuestion, error) {
	text := stripCodeBlock(content)

	if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
		var wrapped struct {
			Questions []quiz.RawQuestion `json:"questions"`
		}
		if err := json.Unmarshal([]byte(text[i:j+1]), &wrapped); err == nil && len(wrapped.Questions) > 0 {
			return wrapped.Questions, nil
		}
	}
	if i, j := strings.Index(text, "["), strings.LastIndex(text, "]"); i >= 0 && j > i {
		var list []quiz.RawQuestion
		if err := json.Unmarshal([]byte(text[i:j+1]), &list); err == nil && len(list) > 0 {
			return list, nil
		}
	}
	return nil, fmt.Errorf("no questions in response (%d bytes)", len(content))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
