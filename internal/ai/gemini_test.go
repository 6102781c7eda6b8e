package ai_test

import (
	"context"
	"encoding/json"
	"github.com/myrjola/whodunit/internal/ai"
	"github.com/myrjola/whodunit/internal/config"
	"github.com/myrjola/whodunit/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction content   `json:"systemInstruction"`
	Contents          []content `json:"contents"`
	GenerationConfig  struct {
		Temperature     float32 `json:"temperature"`
		TopP            float32 `json:"topP"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func TestGeminiClient_Generate(t *testing.T) {
	var (
		got     geminiRequest
		gotPath string
		gotKey  string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Yes, "},{"text":"alone.\n"}]},
"finishReason":"STOP"}]}`)
	}))
	t.Cleanup(server.Close)

	client := ai.NewGeminiClient("secret", server.URL, "gemini-test", ai.DefaultSampling,
		testhelpers.NewLogger(io.Discard))
	reply, err := client.Generate(context.Background(), conversation)
	require.NoError(t, err)
	require.Equal(t, "Yes, alone.", reply)

	require.Equal(t, "/models/gemini-test:generateContent", gotPath)
	require.Equal(t, "secret", gotKey)
	require.Equal(t, []part{{Text: "You are Clara Morton."}}, got.SystemInstruction.Parts)
	require.Equal(t, []content{
		{Role: "user", Parts: []part{{Text: "Where were you?"}}},
		{Role: "model", Parts: []part{{Text: "In the study."}}},
		{Role: "user", Parts: []part{{Text: "Alone?"}, {Text: "Answer along these lines: yes."}}},
	}, got.Contents)
	require.Equal(t, 120, got.GenerationConfig.MaxOutputTokens)
	require.InDelta(t, 0.6, got.GenerationConfig.Temperature, 1e-6)
}

func TestGeminiClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			},
			wantErr: ai.ErrStatus,
		},
		{
			name: "no candidates",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"candidates":[]}`)
			},
			wantErr: ai.ErrNoChoices,
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"candidates":[{`)
			},
			wantErr: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(tt.handler)
			t.Cleanup(server.Close)
			client := ai.NewGeminiClient("secret", server.URL, "", ai.DefaultSampling,
				testhelpers.NewLogger(io.Discard))
			_, err := client.Generate(context.Background(), conversation)
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestGeminiClient_ErrorHidesKey(t *testing.T) {
	client := ai.NewGeminiClient("secret", "http://127.0.0.1:1", "", ai.DefaultSampling,
		testhelpers.NewLogger(io.Discard))
	_, err := client.Generate(context.Background(), conversation)
	require.Error(t, err)
	require.False(t, strings.Contains(err.Error(), "secret"), err.Error())
}

func TestNew(t *testing.T) {
	logger := testhelpers.NewLogger(io.Discard)

	generator, err := ai.New(config.Config{Backend: config.BackendOpenAI, OpenAIAPIKey: "key"}, logger) //nolint:exhaustruct // only backend matters
	require.NoError(t, err)
	require.IsType(t, &ai.OpenAIClient{}, generator) //nolint:exhaustruct // type check

	generator, err = ai.New(config.Config{Backend: config.BackendGemini, GeminiAPIKey: "key"}, logger) //nolint:exhaustruct // only backend matters
	require.NoError(t, err)
	require.IsType(t, &ai.GeminiClient{}, generator) //nolint:exhaustruct // type check

	_, err = ai.New(config.Config{Backend: "eliza"}, logger) //nolint:exhaustruct // only backend matters
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = ai.New(config.Config{Backend: config.BackendGemini}, logger) //nolint:exhaustruct // missing key
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}
