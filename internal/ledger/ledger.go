// Package ledger persists run summaries and accepted dedupe keys in a
// local SQLite database, so reruns can skip rows that were already
// committed even when the output workbook has been moved or renamed.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lfbrandt/pdf-excel-ingestor/internal/dedupe"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	accepted    INTEGER NOT NULL DEFAULT 0,
	rejected    INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS accepted_keys (
	cpf_digits TEXT NOT NULL,
	matricula  TEXT NOT NULL,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	PRIMARY KEY (cpf_digits, matricula)
);
`

type Ledger struct {
	db     *sql.DB
	runID  uuid.UUID
	logger *slog.Logger
}

// Open opens (creating if needed) the ledger database and starts a new
// run row.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger schema: %w", err)
	}

	l := &Ledger{db: db, runID: uuid.New(), logger: logger}
	_, err = db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		l.runID.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger run insert: %w", err)
	}
	logger.Debug("ledger run started", "run_id", l.runID)
	return l, nil
}

// PriorKeys returns every accepted key from all previous runs.
func (l *Ledger) PriorKeys(ctx context.Context) (map[dedupe.Key]struct{}, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT cpf_digits, matricula FROM accepted_keys`)
	if err != nil {
		return nil, fmt.Errorf("ledger keys: %w", err)
	}
	defer rows.Close()

	keys := map[dedupe.Key]struct{}{}
	for rows.Next() {
		var k dedupe.Key
		if err := rows.Scan(&k.CPFDigits, &k.Matricula); err != nil {
			return nil, fmt.Errorf("ledger scan: %w", err)
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

// RecordAccepted stores one accepted key under the current run.
// Idempotent: re-inserting an existing key is not an error.
func (l *Ledger) RecordAccepted(ctx context.Context, k dedupe.Key) error {
	if !k.Valid() {
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO accepted_keys (cpf_digits, matricula, run_id) VALUES (?, ?, ?)`,
		k.CPFDigits, k.Matricula, l.runID.String())
	if err != nil {
		return fmt.Errorf("ledger accept: %w", err)
	}
	return nil
}

// FinishRun writes the final counters for this run.
func (l *Ledger) FinishRun(ctx context.Context, accepted, rejected, skipped int) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, accepted = ?, rejected = ?, skipped = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), accepted, rejected, skipped, l.runID.String())
	if err != nil {
		return fmt.Errorf("ledger finish: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
