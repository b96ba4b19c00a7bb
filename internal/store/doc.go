// Package store keeps the session lifecycle ledger.
//
// # Ledger
//
// Every lifecycle transition of a chat session is appended as a SessionEvent:
//
//   - created: a session was registered
//   - renewed: its agent was replaced by the periodic sweep
//   - renew_failed: the replacement could not be built (Detail holds the error)
//   - reclaimed: the session went unused too long and was removed
//   - deleted: the client removed it
//
// The ledger is write-only from the session layer's point of view. It feeds
// the HTTP API and the sessions CLI; sessions are never rebuilt from it.
//
// # Implementations
//
//   - SQLiteStore: modernc.org/sqlite, WAL mode, schema created on open
//   - MemoryStore: bounded in-process ring, used when no database is configured
//
// Both implementations are safe for concurrent use and return events newest
// first.
package store
