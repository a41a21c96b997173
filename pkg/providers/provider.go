// Package providers wraps the generative-language backends behind a single
// Completer interface.
package providers

import (
	"context"
	"fmt"

	"github.com/momobot/momo/pkg/config"
)

const (
	BackendREST   = config.BackendREST
	BackendGenAI  = config.BackendGenAI
	BackendOpenAI = config.BackendOpenAI
)

// New builds the Completer selected by cfg.Backend.
func New(ctx context.Context, cfg config.CompletionConfig) (Completer, error) {
	switch cfg.Backend {
	case BackendREST, "":
		return NewGeminiClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	case BackendGenAI:
		return NewGenAIClient(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
	case BackendOpenAI:
		return NewOpenAICompatClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown completion backend %q", cfg.Backend)
	}
}
