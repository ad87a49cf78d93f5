// Package history keeps a SQLite ledger of every captured request and what
// became of it, for the history and status commands.
package history
