package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/models"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultGeminiBaseURL is the Generative Language API.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.0-flash"
	// maxErrorBody limits how much of an error response ends up in the error.
	maxErrorBody = 300
)

var ErrStatus = errors.NewSentinel("unexpected status code")

// GeminiClient generates replies with the generateContent endpoint of the Gemini API.
type GeminiClient struct {
	apiKey   string
	baseURL  string
	model    string
	sampling Sampling
	client   *http.Client
	logger   *slog.Logger
}

// NewGeminiClient creates a client for the model. An empty baseURL uses [DefaultGeminiBaseURL].
func NewGeminiClient(apiKey, baseURL, model string, sampling Sampling, logger *slog.Logger) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{
		apiKey:   apiKey,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		model:    model,
		sampling: sampling,
		client:   &http.Client{}, //nolint:exhaustruct // the caller's context bounds the request
		logger:   logger.With("source", "GeminiClient"),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float32  `json:"temperature"`
	TopP            float32  `json:"topP"`
	MaxOutputTokens int      `json:"maxOutputTokens"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// Generate completes the conversation with the next suspect reply.
func (c *GeminiClient) Generate(ctx context.Context, turns []models.Turn) (string, error) {
	var (
		body     []byte
		req      *http.Request
		resp     *http.Response
		response geminiResponse
		err      error
	)
	if len(turns) == 0 {
		return "", ErrNoMessages
	}

	if body, err = json.Marshal(c.request(turns)); err != nil {
		return "", errors.Wrap(err, "marshal request")
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model),
		url.QueryEscape(c.apiKey))
	if req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body)); err != nil {
		return "", errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	if resp, err = c.client.Do(req); err != nil {
		// The error contains the URL with the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return "", errors.Wrap(err, "send request", slog.String("model", c.model))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "failed to close response body",
				errors.SlogError(errors.Wrap(closeErr, "close body")))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", errors.Wrap(ErrStatus, "generate content",
			slog.Int("status", resp.StatusCode), slog.String("body", string(errorBody)))
	}
	if err = json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", errors.Wrap(ErrNoChoices, "read response", slog.String("model", c.model))
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "content generated",
		slog.String("model", c.model), slog.String("finish_reason", response.Candidates[0].FinishReason))
	return strings.TrimSpace(sb.String()), nil
}

// request maps the conversation to Gemini contents. The leading system turns become the system instruction and the
// later ones, such as guidance, are sent as user parts since Gemini only knows the user and model roles.
// Consecutive turns of the same role are merged because the roles have to alternate.
func (c *GeminiClient) request(turns []models.Turn) geminiRequest {
	req := geminiRequest{
		SystemInstruction: nil,
		Contents:          nil,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.sampling.Temperature,
			TopP:            c.sampling.TopP,
			MaxOutputTokens: c.sampling.MaxTokens,
			StopSequences:   stopSequences,
		},
	}

	i := 0
	for ; i < len(turns) && turns[i].Role == models.RoleSystem; i++ {
		if req.SystemInstruction == nil {
			req.SystemInstruction = &geminiContent{Role: "", Parts: nil}
		}
		req.SystemInstruction.Parts = append(req.SystemInstruction.Parts, geminiPart{Text: turns[i].Content})
	}

	for _, turn := range turns[i:] {
		role := "user"
		if turn.Role == models.RoleSuspect {
			role = "model"
		}
		if n := len(req.Contents); n > 0 && req.Contents[n-1].Role == role {
			req.Contents[n-1].Parts = append(req.Contents[n-1].Parts, geminiPart{Text: turn.Content})
			continue
		}
		req.Contents = append(req.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: turn.Content}}})
	}
	return req
}
