package main

import (
	"context"
	"github.com/myrjola/whodunit/internal/e2etest"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/logging"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"
)

type suspect struct {
	Name string `json:"name"`
}

type overview struct {
	ID       string    `json:"id"`
	Suspects []suspect `json:"suspects"`
}

type reply struct {
	Reply string `json:"reply"`
}

type verdict struct {
	Accused string `json:"accused"`
	Correct bool   `json:"correct"`
}

func expectStatus(got int, want int, step string) error {
	if got != want {
		return errors.New("unexpected status code", slog.String("step", step), slog.Int("status", got),
			slog.Int("want", want))
	}
	return nil
}

// TestCase plays a short case: one question to the first suspect and an accusation. The question goes to the real
// backend so the reply is only checked to be non-empty.
func TestCase(ctx context.Context, logger *slog.Logger, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute) //nolint:mnd // the backend may be slow
	defer cancel()
	var (
		err    error
		status int
		c      overview
		r      reply
		v      verdict
	)

	if status, err = client.JSON(ctx, http.MethodPost, "/api/cases", nil, &c); err != nil {
		return errors.Wrap(err, "start case")
	}
	if err = expectStatus(status, http.StatusCreated, "start case"); err != nil {
		return err
	}
	if len(c.Suspects) == 0 {
		return errors.New("case without suspects", slog.String("case_id", c.ID))
	}
	ctx = logging.WithAttrs(ctx, slog.String("case_id", c.ID))

	first := c.Suspects[0].Name
	question := map[string]string{"question": "Where were you when it happened?"}
	if status, err = client.JSON(ctx, http.MethodPost, "/api/case/suspects/"+url.PathEscape(first)+"/questions",
		question, &r); err != nil {
		return errors.Wrap(err, "ask suspect")
	}
	if err = expectStatus(status, http.StatusOK, "ask suspect"); err != nil {
		return err
	}
	if r.Reply == "" {
		return errors.New("empty reply", slog.String("suspect", first))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "suspect replied", slog.String("suspect", first), slog.String("reply", r.Reply))

	if status, err = client.JSON(ctx, http.MethodPost, "/api/case/accusation", map[string]string{"name": first},
		&v); err != nil {
		return errors.Wrap(err, "accuse")
	}
	if err = expectStatus(status, http.StatusOK, "accuse"); err != nil {
		return err
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "case closed", slog.String("accused", v.Accused),
		slog.Bool("correct", v.Correct))
	return nil
}

func main() {
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		baseURL  = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", baseURL))

	if client, err = e2etest.NewClient(baseURL); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestCase(ctx, logger, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error playing a case", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
