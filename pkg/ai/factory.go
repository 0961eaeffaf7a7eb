package ai

import (
	"fmt"
	"log"

	"ga03-kanban/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType

	GeminiAPIKey string

	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"

	BedrockRegion string
	BedrockModel  string
}

// NewSummarizerService creates a SummarizerService based on the config.
// Auto (or empty) chains every configured provider: Ollama first since it is
// local, then Gemini, then Bedrock.
func NewSummarizerService(cfg Config) (SummarizerService, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewPromptSummarizer(gemini.NewGeminiService(cfg.GeminiAPIKey)), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	case ProviderBedrock:
		return NewBedrockService(cfg.BedrockRegion, cfg.BedrockModel)

	case ProviderAuto, "":
		providers := []NamedProvider{{Name: "ollama", Provider: NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel)}}
		if cfg.GeminiAPIKey != "" {
			providers = append(providers, NamedProvider{Name: "gemini", Provider: NewPromptSummarizer(gemini.NewGeminiService(cfg.GeminiAPIKey))})
		}
		if cfg.BedrockRegion != "" {
			bedrock, err := NewBedrockService(cfg.BedrockRegion, cfg.BedrockModel)
			if err != nil {
				log.Printf("[AI] Bedrock disabled: %v", err)
			} else {
				providers = append(providers, NamedProvider{Name: "bedrock", Provider: bedrock})
			}
		}
		return NewFallbackService(providers...), nil
	}
	return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
}
