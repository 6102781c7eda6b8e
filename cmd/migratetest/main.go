package main

import (
	"context"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/models"
	"github.com/myrjola/whodunit/internal/repositories"
	"github.com/myrjola/whodunit/internal/sqlite"
	"github.com/myrjola/whodunit/internal/testhelpers"
	"log/slog"
	"os"
	"time"
)

// migratetest migrates a copy of a production database to the current schema and checks that the recorded cases
// survived.
func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("WHODUNIT_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "WHODUNIT_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// Read back the recorded cases as a simple smoke test.
	transcripts := repositories.NewTranscriptRepository(db, logger)
	var cases []models.CaseSummary
	if cases, err = transcripts.List(ctx); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error listing cases", errors.SlogError(err))
		os.Exit(1)
	}
	if len(cases) == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "no cases found, something is likely wrong")
		os.Exit(1)
	}
	if _, err = transcripts.Get(ctx, cases[0].ID); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error reading latest transcript", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "case count", slog.Int("count", len(cases)))

	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
