// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Keeps the session event ledger with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// tsLayout is fixed-width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed. The path ":memory:" opens a
// private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if path == memoryPath {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS session_events (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id   TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			kind       TEXT NOT NULL,
			model      TEXT NOT NULL DEFAULT '',
			detail     TEXT NOT NULL DEFAULT '',
			ts         TEXT NOT NULL,

			CHECK (kind IN ('created', 'renewed', 'renew_failed', 'reclaimed', 'deleted'))
		);

		CREATE INDEX IF NOT EXISTS idx_session_events_session
			ON session_events(session_id, seq);

		CREATE INDEX IF NOT EXISTS idx_session_events_kind
			ON session_events(kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// AppendEvent implements Store.
func (s *SQLiteStore) AppendEvent(ctx context.Context, e *SessionEvent) error {
	if err := validateEvent(e); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO session_events (event_id, session_id, kind, model, detail, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.SessionID,
		string(e.Kind),
		e.Model,
		e.Detail,
		e.Timestamp.UTC().Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting session event: %w", err)
	}

	s.logger.Debug("appended session event",
		"id", e.ID,
		"session_id", e.SessionID,
		"kind", e.Kind,
	)
	return nil
}

const listEventsQuery = `
	SELECT event_id, session_id, kind, model, detail, ts
	FROM session_events
	WHERE (? = '' OR session_id = ?)
	  AND (? = '' OR kind = ?)
	  AND (? IS NULL OR ts >= ?)
	ORDER BY seq DESC
	LIMIT ?
`

// ListEvents implements Store.
func (s *SQLiteStore) ListEvents(ctx context.Context, f EventFilter) ([]SessionEvent, error) {
	var since *string
	if f.Since != nil {
		str := f.Since.UTC().Format(tsLayout)
		since = &str
	}
	kind := string(f.Kind)

	rows, err := s.db.QueryContext(ctx, listEventsQuery,
		f.SessionID, f.SessionID,
		kind, kind,
		since, since,
		normalizeLimit(f.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying session events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []SessionEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session events: %w", err)
	}
	return events, nil
}

// scanEvent scans a row into a SessionEvent.
func scanEvent(scanner interface{ Scan(dest ...any) error }) (SessionEvent, error) {
	var e SessionEvent
	var kind, ts string
	if err := scanner.Scan(&e.ID, &e.SessionID, &kind, &e.Model, &e.Detail, &ts); err != nil {
		return e, fmt.Errorf("scanning session event: %w", err)
	}
	e.Kind = EventKind(kind)

	var err error
	e.Timestamp, err = time.Parse(tsLayout, ts)
	if err != nil {
		return e, fmt.Errorf("parsing timestamp: %w", err)
	}
	return e, nil
}
