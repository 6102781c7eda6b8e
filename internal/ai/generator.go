package ai

import (
	"context"
	"github.com/myrjola/whodunit/internal/config"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/models"
	"log/slog"
)

// Generator is implemented by every backend client.
type Generator interface {
	Generate(ctx context.Context, turns []models.Turn) (string, error)
}

// New creates the client of the configured backend.
func New(cfg config.Config, logger *slog.Logger) (Generator, error) {
	if err := cfg.ValidateBackend(); err != nil {
		return nil, err
	}
	sampling := Sampling{
		Temperature: float32(cfg.Temperature),
		TopP:        float32(cfg.TopP),
		MaxTokens:   cfg.MaxTokens,
	}
	switch cfg.Backend {
	case config.BackendOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, sampling, logger), nil
	case config.BackendGemini:
		return NewGeminiClient(cfg.GeminiAPIKey, "", cfg.GeminiModel, sampling, logger), nil
	default:
		return nil, errors.Wrap(config.ErrInvalidConfig, "unknown backend", slog.String("backend", cfg.Backend))
	}
}
