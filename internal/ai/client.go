// Package ai talks to the text generation backends that impersonate the suspects.
package ai

import (
	"context"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/models"
	"github.com/sashabaranov/go-openai"
	"log/slog"
	"strings"
)

var (
	ErrNoChoices  = errors.NewSentinel("no choices in completion")
	ErrNoMessages = errors.NewSentinel("no messages")
)

// Sampling controls the randomness and the length of generated replies.
type Sampling struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// DefaultSampling keeps replies short and a little unpredictable.
var DefaultSampling = Sampling{
	Temperature: 0.6, //nolint:mnd // tuned by hand
	TopP:        0.9, //nolint:mnd // tuned by hand
	MaxTokens:   120, //nolint:mnd // enough for three sentences
}

// stopSequences end the reply at the end-of-sequence marker some local models leak into the output.
var stopSequences = []string{"</s>"}

// OpenAIClient generates replies with the chat completions API of OpenAI or of a compatible server such as the
// llama.cpp server or Ollama.
type OpenAIClient struct {
	client   *openai.Client
	model    string
	sampling Sampling
	logger   *slog.Logger
}

// NewOpenAIClient creates a client for the model. An empty baseURL uses the OpenAI API.
func NewOpenAIClient(apiKey, baseURL, model string, sampling Sampling, logger *slog.Logger) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo1106
	}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(config),
		model:    model,
		sampling: sampling,
		logger:   logger.With("source", "OpenAIClient"),
	}
}

// Generate completes the conversation with the next suspect reply.
func (c *OpenAIClient) Generate(ctx context.Context, turns []models.Turn) (string, error) {
	if len(turns) == 0 {
		return "", ErrNoMessages
	}
	messages := make([]openai.ChatCompletionMessage, len(turns))
	for i, turn := range turns {
		messages[i] = openai.ChatCompletionMessage{ //nolint:exhaustruct // this is better for readability
			Role:    openAIRole(turn.Role),
			Content: turn.Content,
		}
	}

	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:       c.model,
			MaxTokens:   c.sampling.MaxTokens,
			Temperature: c.sampling.Temperature,
			TopP:        c.sampling.TopP,
			Stop:        stopSequences,
			Messages:    messages,
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion", slog.String("model", c.model))
	}
	if len(completion.Choices) == 0 {
		return "", errors.Wrap(ErrNoChoices, "read completion", slog.String("model", c.model))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "completion created",
		slog.String("model", completion.Model),
		slog.Int("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int("completion_tokens", completion.Usage.CompletionTokens))
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func openAIRole(role models.Role) string {
	switch role {
	case models.RoleSystem:
		return openai.ChatMessageRoleSystem
	case models.RoleSuspect:
		return openai.ChatMessageRoleAssistant
	case models.RoleDetective:
		return openai.ChatMessageRoleUser
	default:
		return openai.ChatMessageRoleUser
	}
}
