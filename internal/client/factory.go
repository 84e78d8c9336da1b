package client

import (
	"context"
	"fmt"

	"codescout/internal/config"
)

// New creates a Client for the configured provider.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.API.Provider {
	case "gemini", "":
		return NewGeminiClient(ctx, cfg)
	case "ollama":
		return NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.API.Provider)
	}
}
