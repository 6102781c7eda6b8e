package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/random"
	"log/slog"
	"strings"
)

// migrateTo makes the database schema match schemaDefinition.
//
// The migration is declarative. The target schema is created in a temporary in-memory database and compared with
// the current one:
//
//  1. tables missing from the target are dropped and new tables are created,
//  2. changed tables are rebuilt with the 12-step procedure https://www.sqlite.org/lang_altertable.html#otheralter
//     keeping the columns both versions have,
//  3. indexes and triggers that are missing or changed are dropped and recreated.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	var (
		conn     *sql.Conn
		randomID string
		target   *sql.DB
		tx       *sql.Tx
	)

	// The read-write pool has a single connection. Pin it so that the pragmas and the attached database apply to
	// the migration transaction.
	if conn, err = db.ReadWrite.Conn(ctx); err != nil {
		return errors.Wrap(err, "get connection")
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "release connection"))
		}
	}()

	// Create the target schema in a temporary database so that we know what has changed.
	if randomID, err = random.Letters(20); err != nil { //nolint:mnd // long enough to be unique
		return errors.Wrap(err, "generate random ID")
	}
	targetDataSourceName := fmt.Sprintf("file:%s?mode=memory&cache=shared", randomID)
	if target, err = sql.Open("sqlite3", targetDataSourceName); err != nil {
		return errors.Wrap(err, "open schema target database")
	}
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close schema target database"))
		}
	}()
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return errors.Wrap(err, "create schema target database")
	}
	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", targetDataSourceName); err != nil {
		return errors.Wrap(err, "attach schema target database")
	}
	defer func() {
		if _, detachErr := conn.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			err = errors.Join(err, errors.Wrap(detachErr, "detach schema target database"))
		}
	}()

	// Step 1: Disable foreign key validation. It has no effect inside a transaction.
	if _, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign key validation")
	}
	// Step 12: Re-enable foreign key validation.
	defer func() {
		if _, enableErr := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); enableErr != nil {
			err = errors.Join(err, errors.Wrap(enableErr, "re-enable foreign key validation"))
		}
	}()

	// Step 2: Start transaction.
	if tx, err = conn.BeginTx(ctx, nil); err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			err = errors.Join(err, errors.Wrap(rollbackErr, "rollback transaction"))
		}
	}()

	// Steps 3-7.
	if err = db.migrateTables(ctx, tx); err != nil {
		return errors.Wrap(err, "migrate tables")
	}

	// Steps 8-9. Rebuilt tables lost their indexes and triggers so they are recreated here as well.
	if err = db.migrateSchemaObjects(ctx, tx); err != nil {
		return errors.Wrap(err, "migrate indexes and triggers")
	}

	// Step 10: Check foreign key constraints.
	var violations []string
	if violations, err = queryStrings(ctx, tx, "SELECT \"table\" FROM pragma_foreign_key_check"); err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	if len(violations) > 0 {
		return errors.New("foreign key violations", slog.Any("tables", violations))
	}

	// Step 11: Commit transaction from step 2.
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// migrateTables drops deleted tables, creates new tables and rebuilds changed tables.
func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx) error {
	var (
		deleted []string
		created []string
		changed []changedObject
		err     error
	)

	if deleted, err = queryStrings(ctx, tx, `SELECT current.name
FROM sqlite_schema AS current
         LEFT JOIN schemaTarget.sqlite_schema AS target ON current.name = target.name AND current.type = target.type
WHERE current.type = 'table' AND target.type IS NULL AND current.name NOT LIKE 'sqlite_%'`); err != nil {
		return errors.Wrap(err, "query deleted tables")
	}
	for _, table := range deleted {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", table))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q", table)); err != nil {
			return errors.Wrap(err, "drop table", slog.String("table", table))
		}
	}

	if created, err = queryStrings(ctx, tx, `SELECT target.sql
FROM schemaTarget.sqlite_schema AS target
         LEFT JOIN sqlite_schema AS current ON current.name = target.name AND current.type = target.type
WHERE target.type = 'table' AND current.type IS NULL AND target.name NOT LIKE 'sqlite_%'`); err != nil {
		return errors.Wrap(err, "query new tables")
	}
	for _, query := range created {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", query))
		if _, err = tx.ExecContext(ctx, query); err != nil {
			return errors.Wrap(err, "create table", slog.String("query", query))
		}
	}

	if changed, err = queryChanged(ctx, tx, "table"); err != nil {
		return errors.Wrap(err, "query changed tables")
	}
	for _, table := range changed {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
			slog.String("table", table.name),
			slog.String("current_sql", table.currentSQL),
			slog.String("new_sql", table.newSQL))
		if err = rebuildTable(ctx, tx, table); err != nil {
			return errors.Wrap(err, "rebuild table", slog.String("table", table.name))
		}
	}
	return nil
}

func rebuildTable(ctx context.Context, tx *sql.Tx, table changedObject) error {
	var (
		columns []string
		err     error
	)

	// Step 4: Create the table according to the new schema with a temporary name.
	tempName := table.name + "_migration_temp"
	tempSQL := strings.Replace(table.newSQL, table.name, tempName, 1)
	if _, err = tx.ExecContext(ctx, tempSQL); err != nil {
		return errors.Wrap(err, "create temporary table", slog.String("query", tempSQL))
	}

	// Step 5: Copy the common columns. Quoted because column names may be keywords.
	if columns, err = queryStrings(ctx, tx, `SELECT '"' || target.name || '"'
FROM pragma_table_info(:table_name) AS current
         JOIN pragma_table_info(:table_name, 'schemaTarget') AS target ON target.name = current.name`,
		sql.Named("table_name", table.name)); err != nil {
		return errors.Wrap(err, "query common columns")
	}
	if len(columns) > 0 {
		common := strings.Join(columns, ", ")
		copySQL := fmt.Sprintf("INSERT INTO %q (%s) SELECT %s FROM %q", tempName, common, common, table.name)
		if _, err = tx.ExecContext(ctx, copySQL); err != nil {
			return errors.Wrap(err, "copy data", slog.String("query", copySQL))
		}
	}

	// Step 6: Drop the old table.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q", table.name)); err != nil {
		return errors.Wrap(err, "drop old table")
	}

	// Step 7: Rename the new table to the old name.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %q RENAME TO %q", tempName, table.name)); err != nil {
		return errors.Wrap(err, "rename new table")
	}
	return nil
}

// migrateSchemaObjects synchronizes indexes and triggers.
func (db *Database) migrateSchemaObjects(ctx context.Context, tx *sql.Tx) error {
	for _, objectType := range []string{"index", "trigger"} {
		var (
			stale   []string
			missing []string
			err     error
		)

		if stale, err = queryStrings(ctx, tx, `SELECT current.name
FROM sqlite_schema AS current
         LEFT JOIN schemaTarget.sqlite_schema AS target ON current.name = target.name AND current.type = target.type
WHERE current.type = :type AND current.sql IS NOT NULL AND (target.sql IS NULL OR current.sql <> target.sql)`,
			sql.Named("type", objectType)); err != nil {
			return errors.Wrap(err, "query stale objects", slog.String("type", objectType))
		}
		for _, name := range stale {
			db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping "+objectType, slog.String("name", name))
			if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP %s %q", strings.ToUpper(objectType), name)); err != nil {
				return errors.Wrap(err, "drop object", slog.String("type", objectType), slog.String("name", name))
			}
		}

		if missing, err = queryStrings(ctx, tx, `SELECT target.sql
FROM schemaTarget.sqlite_schema AS target
         LEFT JOIN sqlite_schema AS current ON current.name = target.name AND current.type = target.type
WHERE target.type = :type AND target.sql IS NOT NULL AND current.type IS NULL`,
			sql.Named("type", objectType)); err != nil {
			return errors.Wrap(err, "query missing objects", slog.String("type", objectType))
		}
		for _, query := range missing {
			db.logger.LogAttrs(ctx, slog.LevelInfo, "creating "+objectType, slog.String("query", query))
			if _, err = tx.ExecContext(ctx, query); err != nil {
				return errors.Wrap(err, "create object", slog.String("query", query))
			}
		}
	}
	return nil
}

type changedObject struct {
	name       string
	currentSQL string
	newSQL     string
}

// queryChanged returns the objects of the given type whose definition differs between the current and the target
// schema.
func queryChanged(ctx context.Context, tx *sql.Tx, objectType string) (_ []changedObject, err error) {
	var (
		changed []changedObject
		rows    *sql.Rows
	)
	if rows, err = tx.QueryContext(ctx, `SELECT current.name, current.sql, target.sql
FROM sqlite_schema AS current
         JOIN schemaTarget.sqlite_schema AS target ON current.name = target.name AND current.type = target.type
WHERE current.type = :type AND current.name NOT LIKE 'sqlite_%' AND current.sql <> target.sql`,
		sql.Named("type", objectType)); err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close rows"))
		}
	}()
	for rows.Next() {
		var object changedObject
		if err = rows.Scan(&object.name, &object.currentSQL, &object.newSQL); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		changed = append(changed, object)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return changed, nil
}

// queryStrings returns a single column of the query result.
func queryStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) (_ []string, err error) {
	var (
		results []string
		rows    *sql.Rows
	)
	if rows, err = tx.QueryContext(ctx, query, args...); err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close rows"))
		}
	}()
	for rows.Next() {
		var result string
		if err = rows.Scan(&result); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		results = append(results, result)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return results, nil
}
