package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists decision-log entries to SQLite. It is wired as a
// Trail persister so every chained entry is also durable.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db and runs migrations.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open decision log db: %w", err)
	}
	s, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS decision_log (
        log_id TEXT PRIMARY KEY,
        sequence INTEGER NOT NULL,
        timestamp DATETIME,
        session_id TEXT,
        customer_id TEXT,
        operation TEXT,
        decision_type TEXT,
        payload JSON,
        payload_hash TEXT,
        previous_hash TEXT NOT NULL DEFAULT '',
        entry_hash TEXT
    );
    CREATE INDEX IF NOT EXISTS idx_decision_log_session ON decision_log (session_id);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Persist inserts a chained entry.
func (s *SQLiteStore) Persist(ctx context.Context, e *Entry) error {
	query := `INSERT INTO decision_log (
        log_id, sequence, timestamp, session_id, customer_id, operation, decision_type, payload, payload_hash, previous_hash, entry_hash
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	timestamp := e.Timestamp.UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, query,
		e.LogID, e.Sequence, timestamp, e.SessionID, e.CustomerID, e.Operation, e.DecisionType, string(e.Payload), e.PayloadHash, e.PreviousHash, e.EntryHash,
	)
	if err != nil {
		return fmt.Errorf("insert decision log entry: %w", err)
	}
	return nil
}

// Get retrieves a persisted entry by log ID.
func (s *SQLiteStore) Get(ctx context.Context, logID string) (*Entry, error) {
	query := `
        SELECT log_id, sequence, timestamp, session_id, customer_id, operation, decision_type, payload, payload_hash, previous_hash, entry_hash
        FROM decision_log
        WHERE log_id = ?
    `
	row := s.db.QueryRowContext(ctx, query, logID)
	return scanEntry(row.Scan)
}

// BySession returns persisted entries for a session in sequence order.
func (s *SQLiteStore) BySession(ctx context.Context, sessionID string) ([]*Entry, error) {
	query := `
        SELECT log_id, sequence, timestamp, session_id, customer_id, operation, decision_type, payload, payload_hash, previous_hash, entry_hash
        FROM decision_log
        WHERE session_id = ?
        ORDER BY sequence ASC
    `
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query decision log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision log: %w", err)
	}
	return entries, nil
}

// Count returns the number of persisted entries.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decision_log`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count decision log entries: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanEntry(scan func(dest ...any) error) (*Entry, error) {
	var (
		e         Entry
		timestamp string
		payload   string
	)
	err := scan(&e.LogID, &e.Sequence, &timestamp, &e.SessionID, &e.CustomerID, &e.Operation, &e.DecisionType, &payload, &e.PayloadHash, &e.PreviousHash, &e.EntryHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("scan decision log entry: %w", err)
	}
	e.Payload = []byte(payload)
	e.Timestamp = parseTime(timestamp)
	return &e, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
