package repositories

import (
	"context"
	"database/sql"
	"github.com/myrjola/whodunit/internal/casefile"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/models"
	"github.com/myrjola/whodunit/internal/sqlite"
	"log/slog"
	"time"
)

var ErrCaseNotFound = errors.NewSentinel("case not found")

// timeLayout has a fixed width so that the text column sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// TranscriptRepository records the course of every case. It implements interrogation.Recorder.
type TranscriptRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewTranscriptRepository(db *sqlite.Database, logger *slog.Logger) *TranscriptRepository {
	return &TranscriptRepository{
		db:     db,
		logger: logger.With("source", "TranscriptRepository"),
	}
}

// StartCase records the case and its suspects in scenario order.
func (r *TranscriptRepository) StartCase(ctx context.Context, c *casefile.Case) (err error) {
	var tx *sql.Tx
	if tx, err = r.db.ReadWrite.BeginTx(ctx, nil); err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			err = errors.Join(err, errors.Wrap(rollbackErr, "rollback transaction"))
		}
	}()

	stmt := `INSERT INTO cases (id, scenario, title, guilty, started_at)
VALUES (:id, :scenario, :title, :guilty, :started_at)`
	if _, err = tx.ExecContext(ctx, stmt,
		sql.Named("id", c.ID()),
		sql.Named("scenario", c.Scenario()),
		sql.Named("title", c.Title()),
		sql.Named("guilty", c.Guilty().Name),
		sql.Named("started_at", time.Now().UTC().Format(timeLayout)),
	); err != nil {
		return errors.Wrap(err, "insert case", slog.String("case_id", c.ID()))
	}

	stmt = `INSERT INTO case_suspects (case_id, name, position) VALUES (?, ?, ?)`
	for i, name := range c.Names() {
		if _, err = tx.ExecContext(ctx, stmt, c.ID(), name, i); err != nil {
			return errors.Wrap(err, "insert suspect", slog.String("case_id", c.ID()), slog.String("suspect", name))
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	r.logger.LogAttrs(ctx, slog.LevelDebug, "case recorded", slog.String("case_id", c.ID()))
	return nil
}

// RecordTurn appends a turn to the suspect's recorded history.
func (r *TranscriptRepository) RecordTurn(ctx context.Context, caseID string, suspect string, turn models.Turn) error {
	stmt := `INSERT INTO turns (case_id, suspect, position, role, content) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ReadWrite.ExecContext(ctx, stmt, caseID, suspect, turn.Position, string(turn.Role),
		turn.Content); err != nil {
		return errors.Wrap(err, "insert turn",
			slog.String("case_id", caseID), slog.String("suspect", suspect), slog.Int64("position", turn.Position))
	}
	return nil
}

// RecordVerdict closes the recorded case.
func (r *TranscriptRepository) RecordVerdict(ctx context.Context, caseID string, verdict models.Verdict) error {
	stmt := `INSERT INTO verdicts (case_id, accused, correct, guilty_name, catch) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ReadWrite.ExecContext(ctx, stmt, caseID, verdict.Accused, verdict.Correct, verdict.GuiltyName,
		verdict.Catch); err != nil {
		return errors.Wrap(err, "insert verdict", slog.String("case_id", caseID))
	}
	return nil
}

// List returns the recorded cases, most recent first.
func (r *TranscriptRepository) List(ctx context.Context) (_ []models.CaseSummary, err error) {
	var (
		rows      *sql.Rows
		summaries []models.CaseSummary
	)
	stmt := `SELECT c.id, c.scenario, c.guilty, c.started_at, v.accused, v.correct, v.guilty_name, v.catch
FROM cases c
         LEFT JOIN verdicts v ON v.case_id = c.id
ORDER BY c.started_at DESC, c.id`
	if rows, err = r.db.ReadOnly.QueryContext(ctx, stmt); err != nil {
		return nil, errors.Wrap(err, "query cases")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close rows"))
		}
	}()
	for rows.Next() {
		var summary models.CaseSummary
		if summary, err = scanCaseSummary(rows); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return summaries, nil
}

// Get returns the transcript of the case.
func (r *TranscriptRepository) Get(ctx context.Context, caseID string) (_ *models.Transcript, err error) {
	var (
		rows       *sql.Rows
		transcript models.Transcript
	)

	stmt := `SELECT c.id, c.scenario, c.guilty, c.started_at, v.accused, v.correct, v.guilty_name, v.catch
FROM cases c
         LEFT JOIN verdicts v ON v.case_id = c.id
WHERE c.id = ?`
	if transcript.Case, err = scanCaseSummary(r.db.ReadOnly.QueryRowContext(ctx, stmt, caseID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrCaseNotFound, "get transcript", slog.String("case_id", caseID))
		}
		return nil, err
	}

	stmt = `SELECT s.name, t.position, t.role, t.content
FROM case_suspects s
         LEFT JOIN turns t ON t.case_id = s.case_id AND t.suspect = s.name
WHERE s.case_id = ?
ORDER BY s.position, t.position`
	if rows, err = r.db.ReadOnly.QueryContext(ctx, stmt, caseID); err != nil {
		return nil, errors.Wrap(err, "query turns", slog.String("case_id", caseID))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close rows"))
		}
	}()
	transcript.Histories = make(map[string][]models.Turn)
	for rows.Next() {
		var (
			suspect  string
			position sql.NullInt64
			role     sql.NullString
			content  sql.NullString
		)
		if err = rows.Scan(&suspect, &position, &role, &content); err != nil {
			return nil, errors.Wrap(err, "scan turn")
		}
		if _, ok := transcript.Histories[suspect]; !ok {
			transcript.Suspects = append(transcript.Suspects, suspect)
			transcript.Histories[suspect] = []models.Turn{}
		}
		if !position.Valid {
			continue
		}
		transcript.Histories[suspect] = append(transcript.Histories[suspect], models.Turn{
			Role:     models.Role(role.String),
			Content:  content.String,
			Position: position.Int64,
		})
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	return &transcript, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCaseSummary(row scanner) (models.CaseSummary, error) {
	var (
		summary    models.CaseSummary
		startedAt  string
		accused    sql.NullString
		correct    sql.NullBool
		guiltyName sql.NullString
		catch      sql.NullString
		err        error
	)
	if err = row.Scan(&summary.ID, &summary.Scenario, &summary.Guilty, &startedAt, &accused, &correct, &guiltyName,
		&catch); err != nil {
		return models.CaseSummary{}, errors.Wrap(err, "scan case")
	}
	if summary.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return models.CaseSummary{}, errors.Wrap(err, "parse start time", slog.String("started_at", startedAt))
	}
	if accused.Valid {
		summary.Verdict = &models.Verdict{
			Accused:    accused.String,
			Correct:    correct.Bool,
			GuiltyName: guiltyName.String,
			Catch:      catch.String,
		}
	}
	return summary, nil
}
