package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	json "github.com/goccy/go-json"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
)

// OrderEntry is one accepted order as recorded in the audit journal.
type OrderEntry struct {
	RequestID string               `json:"requestId"`
	Broker    domain.BrokerName    `json:"broker"`
	Response  domain.OrderResponse `json:"response"`
	// RecordedAtMs is filled in by RecordOrder when zero.
	RecordedAtMs int64 `json:"recordedAtMs"`
}

// Journal is an append-only SQLite audit log of accepted orders.
// It is never read back to answer requests; idempotency stays in memory.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (or creates) the journal database with WAL mode enabled.
func OpenJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
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

	// request_id is the primary key: the first accepted response wins.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			request_id TEXT PRIMARY KEY,
			broker TEXT NOT NULL,
			order_id TEXT NOT NULL,
			status TEXT NOT NULL,
			symbol TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create orders table: %w", err)
	}

	return &Journal{db: db}, nil
}

// RecordOrder appends e. A second entry for the same request id is ignored.
func (j *Journal) RecordOrder(ctx context.Context, e OrderEntry) error {
	if e.RecordedAtMs == 0 {
		e.RecordedAtMs = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(e.Response)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO orders (request_id, broker, order_id, status, symbol, recorded_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT(request_id) DO NOTHING`,
		e.RequestID, string(e.Broker), e.Response.OrderID, e.Response.Status, e.Response.Symbol, e.RecordedAtMs, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// Order returns the entry for requestID, or ok=false.
func (j *Journal) Order(ctx context.Context, requestID string) (OrderEntry, bool, error) {
	row := j.db.QueryRowContext(ctx,
		"SELECT request_id, broker, recorded_at, payload FROM orders WHERE request_id = ?", requestID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return OrderEntry{}, false, nil
	}
	if err != nil {
		return OrderEntry{}, false, err
	}
	return e, true, nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]OrderEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT request_id, broker, recorded_at, payload FROM orders ORDER BY recorded_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var out []OrderEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (OrderEntry, error) {
	var (
		e       OrderEntry
		broker  string
		payload []byte
	)
	if err := s.Scan(&e.RequestID, &broker, &e.RecordedAtMs, &payload); err != nil {
		return OrderEntry{}, err
	}
	e.Broker = domain.BrokerName(broker)
	if err := json.Unmarshal(payload, &e.Response); err != nil {
		return OrderEntry{}, fmt.Errorf("failed to unmarshal order %s: %w", e.RequestID, err)
	}
	return e, nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (j *Journal) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table.
func (j *Journal) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := j.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
