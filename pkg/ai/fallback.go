package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
)

// NamedProvider is one entry of a fallback chain
type NamedProvider struct {
	Name     string
	Provider SummarizerService
}

// FallbackService tries providers in order until one returns a summary
type FallbackService struct {
	providers []NamedProvider
}

// NewFallbackService creates a fallback chain; nil providers are skipped
func NewFallbackService(providers ...NamedProvider) *FallbackService {
	f := &FallbackService{}
	for _, p := range providers {
		if p.Provider != nil {
			f.providers = append(f.providers, p)
		}
	}
	return f
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return containsAny(err.Error(), "connection refused", "no such host", "network is unreachable",
		"connection reset", "timeout", "dial tcp", "EOF")
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(err.Error(), "429", "quota", "rate limit", "too many requests",
		"resource exhausted", "ThrottlingException")
}

func containsAny(s string, indicators ...string) bool {
	s = strings.ToLower(s)
	for _, indicator := range indicators {
		if strings.Contains(s, strings.ToLower(indicator)) {
			return true
		}
	}
	return false
}

// SummarizeEmail implements SummarizerService
func (f *FallbackService) SummarizeEmail(ctx context.Context, emailText string) (string, error) {
	if len(f.providers) == 0 {
		return "", fmt.Errorf("no AI provider available for summarization")
	}

	var lastErr error
	for _, p := range f.providers {
		result, err := p.Provider.SummarizeEmail(ctx, emailText)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		switch {
		case isConnectionError(err):
			log.Printf("[AI] %s connection failed: %v, trying next provider", p.Name, err)
		case isQuotaError(err):
			log.Printf("[AI] %s quota exhausted: %v, trying next provider", p.Name, err)
		default:
			log.Printf("[AI] %s error: %v, trying next provider", p.Name, err)
		}
	}
	return "", fmt.Errorf("summarization failed: %w", lastErr)
}
