// Package store provides the optional conversation ledger backed by SQLite.
//
// The ledger is an append-only audit trail of relayed turns: agent
// messages, user replies, notifications and closing messages. It is
// write-mostly; the only reads are for the transcript command. Live
// conversation state is never loaded from it, so a restart always starts
// with zero sessions.
//
// SQLiteStore uses modernc.org/sqlite (pure Go) in WAL mode. MockStore is
// an in-memory implementation for tests.
package store
