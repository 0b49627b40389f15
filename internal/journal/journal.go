// Package journal persists filled transactions to SQLite as a write-behind
// audit log. In-memory state is authoritative; the journal is for inspecting
// trade history across restarts, so journal errors are reported to the
// caller but never feed back into the fill path.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"papertrade/internal/domain"
	"papertrade/pkg/quant"
)

// Journal appends transactions to a SQLite database in WAL mode.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS fills (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			qty_sats INTEGER NOT NULL,
			price_micros INTEGER NOT NULL,
			fee_micros INTEGER NOT NULL,
			ts INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create fills table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	return &Journal{db: db}, nil
}

// AppendFill stores one transaction. Duplicate IDs are a caller bug and
// surface as a constraint error.
func (j *Journal) AppendFill(ctx context.Context, tx domain.Transaction) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO fills (id, symbol, side, qty_sats, price_micros, fee_micros, ts) VALUES (?, ?, ?, ?, ?, ?, ?)",
		tx.ID, tx.Symbol, tx.Side, int64(tx.QtySats), int64(tx.PriceMicros), int64(tx.FeeMicros), int64(tx.Ts),
	)
	if err != nil {
		return fmt.Errorf("failed to insert fill: %w", err)
	}
	return nil
}

// LoadFills returns all journaled transactions in chronological order.
func (j *Journal) LoadFills(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, symbol, side, qty_sats, price_micros, fee_micros, ts FROM fills ORDER BY ts ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var qty, price, fee, ts int64
		if err := rows.Scan(&tx.ID, &tx.Symbol, &tx.Side, &qty, &price, &fee, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		tx.QtySats = quant.QtySats(qty)
		tx.PriceMicros = quant.PriceMicros(price)
		tx.FeeMicros = quant.PriceMicros(fee)
		tx.Ts = quant.TimeStamp(ts)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return txs, nil
}

// SaveSnapshot stores an arbitrary JSON-serializable value under a metadata
// key, e.g. a portfolio snapshot at shutdown.
func (j *Journal) SaveSnapshot(ctx context.Context, key string, v any, ts int64) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	_, err = j.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, string(payload), ts,
	)
	return err
}

// LoadSnapshot reads a metadata value into v. Returns false when the key has
// never been written.
func (j *Journal) LoadSnapshot(ctx context.Context, key string, v any) (bool, error) {
	var value string
	err := j.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(value), v); err != nil {
		return false, fmt.Errorf("failed to unmarshal snapshot %s: %w", key, err)
	}
	return true, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
