package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"robin/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ TranscriptStore = (*SQLiteStore)(nil)

// SQLiteStore implements TranscriptStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs
// migrations and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps :memory: databases shared across queries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Debug("sqlite transcript store opened", "path", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			session_id  TEXT NOT NULL,
			symbol      TEXT,
			role        TEXT NOT NULL,
			content     TEXT NOT NULL,
			price       REAL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveMessage inserts (or replaces) a message row.
func (s *SQLiteStore) SaveMessage(ctx context.Context, e TranscriptEntry) error {
	m := e.Message
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO messages (id, session_id, symbol, role, content, price, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, e.SessionID, e.Symbol, string(m.Role), m.Content, e.Price, m.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert message %s: %w", m.ID, err)
	}
	return nil
}

// ListMessages returns the last limit messages, oldest first. A limit <= 0
// returns every matching message.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]TranscriptEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, symbol, role, content, price, created_at FROM (
			SELECT * FROM messages
			WHERE ? = '' OR session_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC`,
		sessionID, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []TranscriptEntry
	for rows.Next() {
		var (
			e       TranscriptEntry
			role    string
			symbol  sql.NullString
			price   sql.NullFloat64
			created int64
		)
		if err := rows.Scan(&e.Message.ID, &e.SessionID, &symbol, &role, &e.Message.Content, &price, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		e.Symbol = symbol.String
		e.Price = price.Float64
		e.Message.Role = domain.Role(role)
		e.Message.CreatedAt = time.Unix(0, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
