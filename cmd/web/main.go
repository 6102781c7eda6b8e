package main

import (
	"context"
	"fmt"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/whodunit/internal/ai"
	"github.com/myrjola/whodunit/internal/config"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/interrogation"
	"github.com/myrjola/whodunit/internal/logging"
	"github.com/myrjola/whodunit/internal/pprofserver"
	"github.com/myrjola/whodunit/internal/repositories"
	"github.com/myrjola/whodunit/internal/sqlite"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// generatorFactory creates the text generation backend. Tests replace it with a scripted one.
type generatorFactory func(cfg config.Config, logger *slog.Logger) (interrogation.Generator, error)

type application struct {
	logger         *slog.Logger
	cfg            config.Config
	newGenerator   generatorFactory
	sessionManager *scs.SessionManager
	transcripts    *repositories.TranscriptRepository
	cases          *caseRegistry
}

func newGenerator(cfg config.Config, logger *slog.Logger) (interrogation.Generator, error) {
	return ai.New(cfg, logger)
}

func run(
	ctx context.Context,
	logger *slog.Logger,
	lookupEnv func(string) (string, bool),
	generators generatorFactory,
) error {
	var (
		err error
		cfg config.Config
		db  *sqlite.Database
	)
	if cfg, err = config.Load(lookupEnv); err != nil {
		return errors.Wrap(err, "load config")
	}
	// Fail early instead of on the first question.
	if _, err = generators(cfg, logger); err != nil {
		return errors.Wrap(err, "create generator")
	}

	if cfg.PprofAddr != "" {
		pprofserver.Launch(ctx, cfg.PprofAddr, logger)
	}

	if db, err = sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SQLiteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close database", errors.SlogError(closeErr))
		}
	}()

	sessionStore := sqlite3store.NewWithCleanupInterval(db.ReadWrite, 24*time.Hour) //nolint:mnd // once a day
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = 12 * time.Hour   //nolint:mnd // half a day is enough to solve a case
	sessionManager.IdleTimeout = 2 * time.Hour //nolint:mnd // an abandoned case is not resumed
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode

	cases := newCaseRegistry(sessionManager.IdleTimeout)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go cases.sweep(sweepCtx, 10*time.Minute, logger) //nolint:mnd // evicted cases are at least two hours idle

	app := application{
		logger:         logger,
		cfg:            cfg,
		newGenerator:   generators,
		sessionManager: sessionManager,
		transcripts:    repositories.NewTranscriptRepository(db, logger),
		cases:          cases,
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	// The environment can be configured with a .env file but it is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg, err := config.Load(os.LookupEnv); err == nil {
		level, _ = cfg.Level()
	}
	logger := logging.NewLogger(os.Stdout, level)

	if err := run(ctx, logger, os.LookupEnv, newGenerator); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
