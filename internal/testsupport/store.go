package testsupport

import (
	"testing"

	"sniffer/internal/config"
	"sniffer/internal/history"
)

// MustOpenHistory opens the ledger under cfg's state directory and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
