package main

import (
	"context"
	"github.com/myrjola/whodunit/internal/config"
	"github.com/myrjola/whodunit/internal/e2etest"
	"github.com/myrjola/whodunit/internal/interrogation"
	"github.com/myrjola/whodunit/internal/models"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"testing"
)

// parrot repeats the last question of the detective.
var parrot = interrogation.GeneratorFunc(func(_ context.Context, turns []models.Turn) (string, error) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == models.RoleDetective {
			return "You asked: " + turns[i].Content, nil
		}
	}
	return "", nil
})

func startServer(t *testing.T, generator interrogation.Generator, env map[string]string) *e2etest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	lookupEnv := func(key string) (string, bool) {
		if value, ok := env[key]; ok {
			return value, true
		}
		switch key {
		case "WHODUNIT_ADDR":
			return "localhost:0", true
		case "WHODUNIT_SQLITE_URL":
			return ":memory:", true
		case "WHODUNIT_GUILTY":
			return "Victor Haynes", true
		default:
			return "", false
		}
	}
	runWith := func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
		return run(ctx, logger, lookupEnv, func(config.Config, *slog.Logger) (interrogation.Generator, error) {
			return generator, nil
		})
	}
	server, err := e2etest.StartServer(ctx, io.Discard, lookupEnv, runWith)
	require.NoError(t, err)
	return server
}

func suspectPath(name string, action string) string {
	return "/api/case/suspects/" + url.PathEscape(name) + "/" + action
}

func TestHealthy(t *testing.T) {
	ctx := context.Background()
	server := startServer(t, parrot, nil)

	resp, err := server.Client().Do(ctx, http.MethodGet, "/api/healthy", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "deny", resp.Header.Get("X-Frame-Options"))
}

func TestScenarios(t *testing.T) {
	ctx := context.Background()
	server := startServer(t, parrot, nil)

	var scenarios []scenarioResponse
	status, err := server.Client().JSON(ctx, http.MethodGet, "/api/scenarios", nil, &scenarios)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, scenarios, 2)
	require.Equal(t, "blackwood", scenarios[0].Name)
	require.Equal(t, 3, scenarios[0].Suspects)
	require.Equal(t, "lang-manor", scenarios[1].Name)
}

func TestCase(t *testing.T) {
	ctx := context.Background()
	server := startServer(t, parrot, nil)
	client := server.Client()

	var failure errorResponse
	status, err := client.JSON(ctx, http.MethodGet, "/api/case", nil, &failure)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)
	require.Contains(t, failure.Error, "No case in progress")

	var overview caseResponse
	status, err = client.JSON(ctx, http.MethodPost, "/api/cases", startCaseRequest{Scenario: "blackwood"}, &overview)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, overview.ID)
	require.Equal(t, "blackwood", overview.Scenario)
	require.NotEmpty(t, overview.Scene)
	require.NotEmpty(t, overview.Evidence)
	require.Len(t, overview.Suspects, 3)
	require.Equal(t, "Victor Haynes", overview.Suspects[1].Name)
	require.Nil(t, overview.Verdict, "an open case must not reveal the murderer")

	var reply replyResponse
	status, err = client.JSON(ctx, http.MethodPost, suspectPath("victor haynes", "questions"),
		questionRequest{Question: "Where were you during the blackout?"}, &reply)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, replyResponse{Suspect: "Victor Haynes", Reply: "You asked: Where were you during the blackout?"},
		reply)

	var history historyResponse
	status, err = client.JSON(ctx, http.MethodGet, suspectPath("Victor Haynes", "history"), nil, &history)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, historyResponse{
		Suspect: "Victor Haynes",
		Turns: []turnResponse{
			{Role: models.RoleDetective, Content: "Where were you during the blackout?"},
			{Role: models.RoleSuspect, Content: "You asked: Where were you during the blackout?"},
		},
	}, history)

	status, err = client.JSON(ctx, http.MethodGet, suspectPath("Caroline Finch", "history"), nil, &history)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, history.Turns, "the persona prompt stays hidden")

	var verdict verdictResponse
	status, err = client.JSON(ctx, http.MethodPost, "/api/case/accusation", accusationRequest{Name: "victor"}, &verdict)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Victor Haynes", verdict.Accused)
	require.True(t, verdict.Correct)
	require.Equal(t, "Victor Haynes", verdict.Guilty)
	require.NotEmpty(t, verdict.Catch)

	status, err = client.JSON(ctx, http.MethodGet, "/api/case", nil, &overview)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, &verdict, overview.Verdict)

	status, err = client.JSON(ctx, http.MethodPost, suspectPath("Victor Haynes", "questions"),
		questionRequest{Question: "Anything else?"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, status)

	status, err = client.JSON(ctx, http.MethodPost, "/api/case/accusation", accusationRequest{Name: "Caroline"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, status)

	// A new case replaces the closed one.
	var next caseResponse
	status, err = client.JSON(ctx, http.MethodPost, "/api/cases", nil, &next)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)
	require.NotEqual(t, overview.ID, next.ID)
	require.Nil(t, next.Verdict)
}

func TestCase_ClientErrors(t *testing.T) {
	ctx := context.Background()
	server := startServer(t, parrot, nil)
	client := server.Client()

	status, err := client.JSON(ctx, http.MethodPost, "/api/case/accusation", accusationRequest{Name: "victor"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status, "no case yet")

	status, err = client.JSON(ctx, http.MethodPost, "/api/cases", startCaseRequest{Scenario: "atlantis"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, status)

	status, err = client.JSON(ctx, http.MethodPost, "/api/cases", map[string]string{"murderer": "victor"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, status, "unknown fields are rejected")

	status, err = client.JSON(ctx, http.MethodPost, "/api/cases", startCaseRequest{Scenario: "blackwood"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown suspect", http.MethodPost, suspectPath("Nobody", "questions"), questionRequest{Question: "Hi"},
			http.StatusNotFound},
		{"unknown suspect history", http.MethodGet, suspectPath("Nobody", "history"), nil, http.StatusNotFound},
		{"empty question", http.MethodPost, suspectPath("Victor Haynes", "questions"), questionRequest{Question: " "},
			http.StatusBadRequest},
		{"unknown accused", http.MethodPost, "/api/case/accusation", accusationRequest{Name: "Nobody"},
			http.StatusUnprocessableEntity},
		{"ambiguous accused", http.MethodPost, "/api/case/accusation", accusationRequest{Name: "a"},
			http.StatusUnprocessableEntity},
		{"wrong method", http.MethodGet, "/api/case/accusation", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, jsonErr := client.JSON(ctx, tt.method, tt.path, tt.body, nil)
			require.NoError(t, jsonErr)
			require.Equal(t, tt.want, got)
		})
	}

	var overview caseResponse
	status, err = client.JSON(ctx, http.MethodGet, "/api/case", nil, &overview)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, overview.Verdict, "failed accusations leave the case open")
}

func TestCase_SessionsAreSeparate(t *testing.T) {
	ctx := context.Background()
	server := startServer(t, parrot, nil)

	status, err := server.Client().JSON(ctx, http.MethodPost, "/api/cases", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)

	other, err := e2etest.NewClient(server.URL())
	require.NoError(t, err)
	status, err = other.JSON(ctx, http.MethodGet, "/api/case", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)
}

// blocking holds every reply until released.
type blocking struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blocking) Generate(ctx context.Context, _ []models.Turn) (string, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return "Finally.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestAsk_Busy(t *testing.T) {
	ctx := context.Background()
	generator := &blocking{once: sync.Once{}, started: make(chan struct{}), release: make(chan struct{})}
	server := startServer(t, generator, nil)
	client := server.Client()

	status, err := client.JSON(ctx, http.MethodPost, "/api/cases", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)

	done := make(chan int, 1)
	go func() {
		first, _ := client.JSON(ctx, http.MethodPost, suspectPath("Victor Haynes", "questions"),
			questionRequest{Question: "Where were you?"}, nil)
		done <- first
	}()
	<-generator.started

	status, err = client.JSON(ctx, http.MethodPost, suspectPath("Victor Haynes", "questions"),
		questionRequest{Question: "Well?"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, status)

	close(generator.release)
	require.Equal(t, http.StatusOK, <-done)

	var history historyResponse
	status, err = client.JSON(ctx, http.MethodGet, suspectPath("Victor Haynes", "history"), nil, &history)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []turnResponse{
		{Role: models.RoleDetective, Content: "Where were you?"},
		{Role: models.RoleSuspect, Content: "Finally."},
	}, history.Turns)
}
