package main

import (
	"context"
	"github.com/myrjola/whodunit/internal/casefile"
	"github.com/myrjola/whodunit/internal/config"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/logging"
	"github.com/myrjola/whodunit/internal/repositories"
	"github.com/myrjola/whodunit/internal/sqlite"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// lookupEnv is replaced in tests.
var lookupEnv = os.LookupEnv

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(lookupEnv)
	if err != nil {
		return config.Config{}, errors.Wrap(err, "load config") //nolint:exhaustruct // error path
	}
	return cfg, nil
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level, err := cfg.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.NewLogger(w, level)
}

// loadScenario loads an embedded scenario by name or a scenario file by path.
func loadScenario(nameOrPath string) (casefile.Scenario, error) {
	ext := filepath.Ext(nameOrPath)
	if ext == ".yaml" || ext == ".yml" || strings.ContainsRune(nameOrPath, filepath.Separator) {
		return casefile.LoadFile(nameOrPath)
	}
	return casefile.Load(nameOrPath)
}

// openTranscripts opens the transcript database. The returned function closes it.
func openTranscripts(
	ctx context.Context,
	cfg config.Config,
	logger *slog.Logger,
) (*repositories.TranscriptRepository, func() error, error) {
	db, err := sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open transcript database", slog.String("url", cfg.SQLiteURL))
	}
	return repositories.NewTranscriptRepository(db, logger), db.Close, nil
}
