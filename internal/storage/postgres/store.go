// Package postgres implements LedgerStore on PostgreSQL via lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/karasu-dev/score-ledger-system/internal/interfaces"
	"github.com/karasu-dev/score-ledger-system/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS balances (
	uid   BIGINT PRIMARY KEY,
	score NUMERIC(20,2) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS score_log (
	seq          BIGSERIAL PRIMARY KEY,
	id           TEXT NOT NULL UNIQUE,
	target_uid   BIGINT NOT NULL,
	operator_uid BIGINT NOT NULL,
	direction    SMALLINT NOT NULL,
	amount       NUMERIC(20,2) NOT NULL CHECK (amount >= 0),
	reason       TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS score_log_operator_idx
	ON score_log (operator_uid, created_at DESC);
`

// PostgresLedgerStore implements interfaces.LedgerStore on PostgreSQL.
// Transfers run inside one database transaction; single-row writes are
// atomic upserts.
type PostgresLedgerStore struct {
	db *sql.DB
}

// NewPostgresLedgerStore wraps an existing connection pool.
func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: db}
}

// Open connects to the database described by dsn and verifies the
// connection.
func Open(dsn string) (*PostgresLedgerStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresLedgerStore{db: db}, nil
}

// Close closes the underlying pool.
func (p *PostgresLedgerStore) Close() error {
	return p.db.Close()
}

// Migrate creates the balances and score_log tables. Idempotent.
func (p *PostgresLedgerStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *PostgresLedgerStore) GetOrCreateBalance(ctx context.Context, uid int64) (models.BalanceRecord, error) {
	const insert = `INSERT INTO balances (uid, score) VALUES ($1, 0) ON CONFLICT (uid) DO NOTHING`
	if _, err := p.exec(ctx, insert, uid); err != nil {
		return models.BalanceRecord{}, fmt.Errorf("create balance %d: %w", uid, err)
	}

	const query = `SELECT score FROM balances WHERE uid = $1`
	rec := models.BalanceRecord{UID: uid}
	if err := p.db.QueryRowContext(ctx, query, uid).Scan(&rec.Score); err != nil {
		return models.BalanceRecord{}, fmt.Errorf("read balance %d: %w", uid, err)
	}
	return rec, nil
}

func (p *PostgresLedgerStore) ReplaceBalance(ctx context.Context, uid int64, score decimal.Decimal) error {
	const query = `INSERT INTO balances (uid, score) VALUES ($1, $2)
		ON CONFLICT (uid) DO UPDATE SET score = EXCLUDED.score`
	if _, err := p.exec(ctx, query, uid, score); err != nil {
		return fmt.Errorf("replace balance %d: %w", uid, err)
	}
	return nil
}

func (p *PostgresLedgerStore) ApplyTransfer(ctx context.Context, from, to models.BalanceRecord) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("transfer: begin tx: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	const query = `INSERT INTO balances (uid, score) VALUES ($1, $2)
		ON CONFLICT (uid) DO UPDATE SET score = EXCLUDED.score`
	if _, err := tx.ExecContext(ctx, query, from.UID, from.Score); err != nil {
		return fmt.Errorf("transfer: debit row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, to.UID, to.Score); err != nil {
		return fmt.Errorf("transfer: credit row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transfer: commit: %w", err)
	}
	return nil
}

func (p *PostgresLedgerStore) InsertAudit(ctx context.Context, entry models.AuditEntry) error {
	const query = `INSERT INTO score_log
		(id, target_uid, operator_uid, direction, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := p.exec(ctx, query,
		entry.ID,
		entry.TargetUID,
		entry.OperatorUID,
		int(entry.Direction),
		entry.Amount,
		entry.Reason,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit %s: %w", entry.ID, err)
	}
	return nil
}

func (p *PostgresLedgerStore) SelectAuditByOperator(ctx context.Context, operatorUID int64, limit int) ([]models.AuditEntry, error) {
	const query = `SELECT id, target_uid, operator_uid, direction, amount, reason, created_at
		FROM score_log
		WHERE operator_uid = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`

	rows, err := p.db.QueryContext(ctx, query, operatorUID, limit)
	if err != nil {
		return nil, fmt.Errorf("select audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		var direction int
		if err := rows.Scan(
			&entry.ID,
			&entry.TargetUID,
			&entry.OperatorUID,
			&direction,
			&entry.Amount,
			&entry.Reason,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		entry.Direction = models.Direction(direction)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select audit: %w", err)
	}
	return entries, nil
}

func (p *PostgresLedgerStore) SelectBalances(ctx context.Context, uids []int64, limit int) ([]models.BalanceRecord, error) {
	const query = `SELECT uid, score FROM balances
		WHERE uid = ANY($1)
		ORDER BY score DESC
		LIMIT $2`

	rows, err := p.db.QueryContext(ctx, query, pq.Array(uids), limit)
	if err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	defer rows.Close()

	var recs []models.BalanceRecord
	for rows.Next() {
		var rec models.BalanceRecord
		if err := rows.Scan(&rec.UID, &rec.Score); err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return recs, nil
}

// exec retries once when a statement fails because the connection
// dropped mid-flight. database/sql already swaps out bad pooled
// connections before a statement starts; this covers the rest.
func (p *PostgresLedgerStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := p.db.ExecContext(ctx, query, args...)
	if connectionDropped(err) {
		res, err = p.db.ExecContext(ctx, query, args...)
	}
	return res, err
}

func connectionDropped(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.Is(err, io.EOF) || errors.As(err, &netErr)
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
