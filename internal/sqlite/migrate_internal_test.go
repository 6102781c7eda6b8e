package sqlite

import (
	"context"
	"github.com/myrjola/whodunit/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestDatabase_migrate(t *testing.T) {
	t.Parallel()
	const (
		cases       = "CREATE TABLE cases (id TEXT PRIMARY KEY, title TEXT NOT NULL)"
		casesGuilty = "CREATE TABLE cases (id TEXT PRIMARY KEY, title TEXT NOT NULL, guilty TEXT)"
		turns       = `CREATE TABLE turns (
    case_id  TEXT    NOT NULL,
    suspect  TEXT    NOT NULL,
    position INTEGER NOT NULL,
    content  TEXT    NOT NULL,
    PRIMARY KEY (case_id, suspect, position)
)`
		verdicts      = "CREATE TABLE verdicts (case_id TEXT PRIMARY KEY, accused TEXT NOT NULL)"
		guardVerdicts = `CREATE TRIGGER verdicts_final BEFORE UPDATE ON verdicts
BEGIN SELECT RAISE(ABORT, 'verdict is final'); END`
		stampVerdicts = `CREATE TRIGGER verdicts_final BEFORE UPDATE ON verdicts
BEGIN SELECT 1; END`
		insertCase    = "INSERT INTO cases (id, title) VALUES ('case', 'Murder at Blackwood Manor')"
		insertVerdict = "INSERT INTO verdicts (case_id, accused) VALUES ('case', 'Victor Haynes')"
		changeVerdict = "UPDATE verdicts SET accused = 'Lady Blackwood' WHERE case_id = 'case'"
	)
	tests := []struct {
		name              string
		schemaDefinitions []string
		// testQueries run in order. Only the last one may fail.
		testQueries []string
		wantErr     bool
	}{
		{
			name:              "empty schema",
			schemaDefinitions: []string{""},
			testQueries:       []string{"SELECT * FROM sqlite_schema"},
			wantErr:           false,
		},
		{
			name:              "create cases",
			schemaDefinitions: []string{cases},
			testQueries:       []string{insertCase, "SELECT title FROM cases"},
			wantErr:           false,
		},
		{
			name:              "drop cases",
			schemaDefinitions: []string{cases, turns},
			testQueries:       []string{insertCase},
			wantErr:           true,
		},
		{
			name:              "add guilty column",
			schemaDefinitions: []string{cases, casesGuilty},
			testQueries:       []string{"INSERT INTO cases (id, title, guilty) VALUES ('case', 'Blackwood', 'Victor Haynes')"},
			wantErr:           false,
		},
		{
			name:              "remove guilty column",
			schemaDefinitions: []string{cases, casesGuilty, cases},
			testQueries:       []string{"INSERT INTO cases (id, title, guilty) VALUES ('case', 'Blackwood', 'Victor Haynes')"},
			wantErr:           true,
		},
		{
			name:              "create turns index",
			schemaDefinitions: []string{turns + "; CREATE INDEX turns_suspect_idx ON turns (suspect)"},
			testQueries:       []string{"DROP INDEX turns_suspect_idx"},
			wantErr:           false,
		},
		{
			name: "drop turns index",
			schemaDefinitions: []string{
				turns + "; CREATE INDEX turns_suspect_idx ON turns (suspect)",
				turns,
			},
			testQueries: []string{"DROP INDEX turns_suspect_idx"},
			wantErr:     true,
		},
		{
			name: "update turns index",
			schemaDefinitions: []string{
				turns + "; CREATE INDEX turns_suspect_idx ON turns (suspect)",
				turns + "; CREATE INDEX turns_suspect_idx ON turns (suspect, position)",
			},
			testQueries: []string{"DROP INDEX turns_suspect_idx"},
			wantErr:     false,
		},
		{
			name:              "create verdict trigger",
			schemaDefinitions: []string{verdicts + "; " + guardVerdicts},
			testQueries:       []string{insertVerdict, changeVerdict},
			wantErr:           true,
		},
		{
			name:              "delete verdict trigger",
			schemaDefinitions: []string{verdicts + "; " + guardVerdicts, verdicts},
			testQueries:       []string{insertVerdict, changeVerdict},
			wantErr:           false,
		},
		{
			name:              "update verdict trigger",
			schemaDefinitions: []string{verdicts + "; " + guardVerdicts, verdicts + "; " + stampVerdicts},
			testQueries:       []string{insertVerdict, changeVerdict},
			wantErr:           false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			logger := testhelpers.NewLogger(io.Discard)
			db, err := connect(":memory:", logger)
			require.NoError(t, err)
			t.Cleanup(func() {
				require.NoError(t, db.Close())
			})
			for _, schemaDefinition := range tt.schemaDefinitions {
				logger.LogAttrs(ctx, slog.LevelInfo, "migrating", slog.String("schema", schemaDefinition))
				err = db.migrateTo(ctx, schemaDefinition)
				require.NoError(t, err)
			}
			for i, query := range tt.testQueries {
				logger.LogAttrs(ctx, slog.LevelInfo, "executing", slog.String("query", query))
				_, err = db.ReadWrite.ExecContext(ctx, query)
				if tt.wantErr && i == len(tt.testQueries)-1 {
					require.Error(t, err)
				} else {
					require.NoError(t, err)
				}
			}
		})
	}
}

func TestNewDatabase(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := testhelpers.NewLogger(io.Discard)
	url := filepath.Join(t.TempDir(), "whodunit.sqlite")

	db, err := NewDatabase(ctx, url, logger)
	require.NoError(t, err)
	_, err = db.ReadWrite.ExecContext(ctx, `INSERT INTO cases (id, scenario, title, guilty, started_at)
VALUES ('case', 'blackwood', 'Murder at Blackwood Manor', 'Victor Haynes', '2024-01-01T00:00:00Z')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening the database keeps the data.
	db, err = NewDatabase(ctx, url, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	var guilty string
	err = db.ReadOnly.QueryRowContext(ctx, "SELECT guilty FROM cases WHERE id = 'case'").Scan(&guilty)
	require.NoError(t, err)
	require.Equal(t, "Victor Haynes", guilty)

	// The read-only pool rejects writes.
	_, err = db.ReadOnly.ExecContext(ctx, "DELETE FROM cases")
	require.Error(t, err)

	var tables []string
	rows, err := db.ReadOnly.QueryContext(ctx,
		"SELECT name FROM sqlite_schema WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	require.NoError(t, err)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	require.Equal(t, []string{"case_suspects", "cases", "sessions", "turns", "verdicts"}, tables)
}

func TestDatabase_migrateKeepsData(t *testing.T) {
	ctx := context.Background()
	db, err := connect(":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	require.NoError(t, db.migrateTo(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT, obsolete TEXT)"))
	_, err = db.ReadWrite.ExecContext(ctx, "INSERT INTO test (id, name, obsolete) VALUES (42, 'kept', 'dropped')")
	require.NoError(t, err)

	require.NoError(t, db.migrateTo(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT, added TEXT)"))
	var (
		name  string
		added *string
	)
	err = db.ReadOnly.QueryRowContext(ctx, "SELECT name, added FROM test WHERE id = 42").Scan(&name, &added)
	require.NoError(t, err)
	require.Equal(t, "kept", name)
	require.Nil(t, added)
}
