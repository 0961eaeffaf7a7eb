package ai

import (
	"context"
	"fmt"
)

// SummarizerService is the interface for AI summarization.
// Implement this interface to add new AI providers.
type SummarizerService interface {
	SummarizeEmail(ctx context.Context, emailText string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini  ProviderType = "gemini"
	ProviderOllama  ProviderType = "ollama"
	ProviderBedrock ProviderType = "bedrock"
	ProviderAuto    ProviderType = "auto"
)

// SummaryPrompt builds the prompt every provider sends for a card summary
func SummaryPrompt(emailText string) string {
	return fmt.Sprintf(`You are an email triage assistant. Summarize the email below so the reader can decide quickly where it belongs on their board.

RULES:
- Line 1: the main point in one short sentence
- Line 2 (optional): "Action: ..." or "Deadline: ..." or "Note: ..."
- For promotions or newsletters write only "Promotion from <sender>"
- At most 2 lines, never end with "..."

EMAIL:
%s

SUMMARY:`, emailText)
}

// Generator is a model client that completes a raw prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type generatorSummarizer struct {
	gen Generator
}

// NewPromptSummarizer adapts a prompt completion client into a SummarizerService
func NewPromptSummarizer(gen Generator) SummarizerService {
	return &generatorSummarizer{gen: gen}
}

func (g *generatorSummarizer) SummarizeEmail(ctx context.Context, emailText string) (string, error) {
	return g.gen.Generate(ctx, SummaryPrompt(emailText))
}
