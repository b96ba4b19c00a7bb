// ABOUTME: Contract tests for the session ledger schema to detect breaking schema changes
// ABOUTME: Validates tables, columns, indexes, and the event kind constraint in SQLite

package contract

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/chatbot-gateway/internal/store"
)

// expectedSchema defines the contract for the ledger schema. Operators query
// this table directly, so renames are breaking changes.
var expectedSchema = map[string][]string{
	"session_events": {
		"seq", "event_id", "session_id",
		"kind", "model", "detail", "ts",
	},
}

// setupTestDB creates a temporary SQLite database with the production schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "contract_test.db")

	sqliteStore, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err, "failed to create SQLite store")

	// The store owns its connection, so open a second one for inspection.
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err, "failed to open database")

	t.Cleanup(func() {
		db.Close()
		sqliteStore.Close()
	})
	return db
}

// getTableColumns queries SQLite to get column names for a table.
func getTableColumns(ctx context.Context, db *sql.DB, tableName string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, fmt.Errorf("querying table info: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning column info: %w", err)
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}
	return columns, nil
}

func queryNames(t *testing.T, db *sql.DB, kind string) map[string]bool {
	t.Helper()
	rows, err := db.QueryContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%'", kind)
	require.NoError(t, err)
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names[name] = true
	}
	require.NoError(t, rows.Err())
	return names
}

func TestSchemaSurface(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for table, expectedCols := range expectedSchema {
		t.Run(table, func(t *testing.T) {
			actualCols, err := getTableColumns(ctx, db, table)
			if !assert.NoError(t, err) {
				return
			}
			if !assert.NotEmpty(t, actualCols, "table %s should exist and have columns", table) {
				return
			}
			for _, col := range expectedCols {
				assert.True(t, actualCols[col], "column %s.%s should exist", table, col)
			}
			for col := range actualCols {
				if !slices.Contains(expectedCols, col) {
					t.Logf("INFO: extra column %s.%s not in contract (consider adding)", table, col)
				}
			}
		})
	}
}

func TestTablesAndIndexesExist(t *testing.T) {
	db := setupTestDB(t)

	tables := queryNames(t, db, "table")
	for table := range expectedSchema {
		assert.True(t, tables[table], "table %s should exist", table)
	}

	indexes := queryNames(t, db, "index")
	for _, idx := range []string{"idx_session_events_session", "idx_session_events_kind"} {
		assert.True(t, indexes[idx], "index %s should exist", idx)
	}
}

// TestKindConstraint keeps the CHECK constraint and EventKind in step: every
// valid kind is accepted and anything else is rejected by the database.
func TestKindConstraint(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insert := func(id, kind string) error {
		_, err := db.ExecContext(ctx,
			"INSERT INTO session_events (event_id, session_id, kind, ts) VALUES (?, 's', ?, '2024-01-01T00:00:00Z')",
			id, kind)
		return err
	}

	kinds := []store.EventKind{
		store.EventCreated, store.EventRenewed, store.EventRenewFailed,
		store.EventReclaimed, store.EventDeleted,
	}
	for i, k := range kinds {
		require.True(t, k.Valid())
		assert.NoError(t, insert(fmt.Sprintf("e%d", i), string(k)), "kind %s", k)
	}

	assert.False(t, store.EventKind("exploded").Valid())
	assert.Error(t, insert("bad", "exploded"))
}
