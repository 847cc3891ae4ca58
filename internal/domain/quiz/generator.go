package quiz

import "context"

// Request is the input of a quiz generation call.
type Request struct {
	Topic      string
	Difficulty string
	Count      int
	Content    string
}

// Generation carries the raw generator output and token usage through the
// decorator chain.
type Generation struct {
	Questions    []RawQuestion
	PromptTokens int
	TotalTokens  int
}

// Generator produces quiz questions for a piece of study material.
type Generator interface {
	Generate(ctx context.Context, req Request) (Generation, error)
}
