package ai_test

import (
	"context"
	"encoding/json"
	"github.com/myrjola/whodunit/internal/ai"
	"github.com/myrjola/whodunit/internal/models"
	"github.com/myrjola/whodunit/internal/testhelpers"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var conversation = []models.Turn{
	{Role: models.RoleSystem, Content: "You are Clara Morton.", Position: 0},
	{Role: models.RoleDetective, Content: "Where were you?", Position: 1},
	{Role: models.RoleSuspect, Content: "In the study.", Position: 2},
	{Role: models.RoleDetective, Content: "Alone?", Position: 3},
	{Role: models.RoleSystem, Content: "Answer along these lines: yes.", Position: 4},
}

func TestOpenAIClient_Generate(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","model":"local",
"choices":[{"index":0,"message":{"role":"assistant","content":"  Yes, alone.\n"},"finish_reason":"stop"}],
"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`)
	}))
	t.Cleanup(server.Close)

	client := ai.NewOpenAIClient("", server.URL+"/v1/", "local", ai.DefaultSampling, testhelpers.NewLogger(io.Discard))
	reply, err := client.Generate(context.Background(), conversation)
	require.NoError(t, err)
	require.Equal(t, "Yes, alone.", reply)

	require.Equal(t, "local", got.Model)
	require.Equal(t, 120, got.MaxTokens)
	require.InDelta(t, 0.6, got.Temperature, 1e-6)
	require.InDelta(t, 0.9, got.TopP, 1e-6)
	require.Equal(t, []string{"</s>"}, got.Stop)
	roles := make([]string, len(got.Messages))
	for i, m := range got.Messages {
		roles[i] = m.Role
	}
	require.Equal(t, []string{"system", "user", "assistant", "user", "system"}, roles)
	require.Equal(t, "Answer along these lines: yes.", got.Messages[4].Content)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"id":"1","choices":[]}`)
			},
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"choices":`)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(tt.handler)
			t.Cleanup(server.Close)
			client := ai.NewOpenAIClient("key", server.URL, "", ai.DefaultSampling, testhelpers.NewLogger(io.Discard))
			_, err := client.Generate(context.Background(), conversation)
			require.Error(t, err)
		})
	}

	client := ai.NewOpenAIClient("key", "http://localhost:1", "", ai.DefaultSampling, testhelpers.NewLogger(io.Discard))
	_, err := client.Generate(context.Background(), nil)
	require.ErrorIs(t, err, ai.ErrNoMessages)
}

func TestOpenAIClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	client := ai.NewOpenAIClient("key", server.URL, "", ai.DefaultSampling, testhelpers.NewLogger(io.Discard))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Generate(ctx, conversation)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
