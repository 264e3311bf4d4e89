// Package sqlite implements LedgerStore on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/karasu-dev/score-ledger-system/internal/interfaces"
	"github.com/karasu-dev/score-ledger-system/internal/models"
	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteLedgerStore implements interfaces.LedgerStore on SQLite.
//
// Scores and amounts are stored as exact decimal strings; queries that
// order by score cast to REAL first. Timestamps are stored as unix
// nanoseconds.
type SQLiteLedgerStore struct {
	db *sql.DB
}

// Open creates or opens the database at path, applies pragmas and the
// schema. Idempotent.
func Open(path string) (*SQLiteLedgerStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite allows one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY under concurrent ledger operations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteLedgerStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteLedgerStore) Close() error {
	return s.db.Close()
}

// Migrate re-applies the schema. Open already does this; Migrate exists
// so the migrate command works uniformly across backends.
func (s *SQLiteLedgerStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *SQLiteLedgerStore) GetOrCreateBalance(ctx context.Context, uid int64) (models.BalanceRecord, error) {
	const insert = `INSERT INTO balances (uid, score) VALUES (?, '0') ON CONFLICT (uid) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, insert, uid); err != nil {
		return models.BalanceRecord{}, fmt.Errorf("create balance %d: %w", uid, err)
	}

	const query = `SELECT score FROM balances WHERE uid = ?`
	var raw string
	if err := s.db.QueryRowContext(ctx, query, uid).Scan(&raw); err != nil {
		return models.BalanceRecord{}, fmt.Errorf("read balance %d: %w", uid, err)
	}
	score, err := decimal.NewFromString(raw)
	if err != nil {
		return models.BalanceRecord{}, fmt.Errorf("decode balance %d: %w", uid, err)
	}
	return models.BalanceRecord{UID: uid, Score: score}, nil
}

func (s *SQLiteLedgerStore) ReplaceBalance(ctx context.Context, uid int64, score decimal.Decimal) error {
	if _, err := s.db.ExecContext(ctx, upsertBalanceSQL, uid, score.String()); err != nil {
		return fmt.Errorf("replace balance %d: %w", uid, err)
	}
	return nil
}

const upsertBalanceSQL = `INSERT INTO balances (uid, score) VALUES (?, ?)
	ON CONFLICT (uid) DO UPDATE SET score = excluded.score`

func (s *SQLiteLedgerStore) ApplyTransfer(ctx context.Context, from, to models.BalanceRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("transfer: begin tx: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	if _, err := tx.ExecContext(ctx, upsertBalanceSQL, from.UID, from.Score.String()); err != nil {
		return fmt.Errorf("transfer: debit row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertBalanceSQL, to.UID, to.Score.String()); err != nil {
		return fmt.Errorf("transfer: credit row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transfer: commit: %w", err)
	}
	return nil
}

func (s *SQLiteLedgerStore) InsertAudit(ctx context.Context, entry models.AuditEntry) error {
	const query = `INSERT INTO score_log
		(id, target_uid, operator_uid, direction, amount, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.TargetUID,
		entry.OperatorUID,
		int(entry.Direction),
		entry.Amount.String(),
		entry.Reason,
		entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert audit %s: %w", entry.ID, err)
	}
	return nil
}

func (s *SQLiteLedgerStore) SelectAuditByOperator(ctx context.Context, operatorUID int64, limit int) ([]models.AuditEntry, error) {
	const query = `SELECT id, target_uid, operator_uid, direction, amount, reason, created_at
		FROM score_log
		WHERE operator_uid = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, operatorUID, limit)
	if err != nil {
		return nil, fmt.Errorf("select audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var (
			entry     models.AuditEntry
			direction int
			rawAmount string
			createdAt int64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TargetUID,
			&entry.OperatorUID,
			&direction,
			&rawAmount,
			&entry.Reason,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			return nil, fmt.Errorf("decode audit amount: %w", err)
		}
		entry.Direction = models.Direction(direction)
		entry.Amount = amount
		entry.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select audit: %w", err)
	}
	return entries, nil
}

func (s *SQLiteLedgerStore) SelectBalances(ctx context.Context, uids []int64, limit int) ([]models.BalanceRecord, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	// Scores are decimal strings; cast for numeric ordering.
	query := `SELECT uid, score FROM balances WHERE uid IN (?` +
		repeatPlaceholder(len(uids)-1) +
		`) ORDER BY CAST(score AS REAL) DESC LIMIT ?`

	args := make([]any, 0, len(uids)+1)
	for _, uid := range uids {
		args = append(args, uid)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	defer rows.Close()

	var recs []models.BalanceRecord
	for rows.Next() {
		var (
			rec models.BalanceRecord
			raw string
		)
		if err := rows.Scan(&rec.UID, &raw); err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}
		score, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode balance: %w", err)
		}
		rec.Score = score
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return recs, nil
}

func repeatPlaceholder(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, ',', '?')
	}
	return string(out)
}

var _ interfaces.LedgerStore = (*SQLiteLedgerStore)(nil)
