package testsupport

import (
	"context"
	"strings"
	"testing"

	"whorl/internal/config"
	"whorl/internal/visitors"
)

// MustOpenStore opens a visitors.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *visitors.Store {
	t.Helper()

	store, err := visitors.Open(cfg)
	if err != nil {
		t.Fatalf("visitors.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordVisitor creates a visitor with one fingerprint and session for tests.
func RecordVisitor(t testing.TB, store *visitors.Store, fp *visitors.NewFingerprint, session *visitors.NewSession) *visitors.WriteResult {
	t.Helper()

	if session == nil {
		session = &visitors.NewSession{IPAddress: "203.0.113.1"}
	}
	result, err := store.RecordNewVisitor(context.Background(), fp, session)
	if err != nil {
		t.Fatalf("store.RecordNewVisitor: %v", err)
	}
	return result
}

// Hash returns a 64-character hex hash filled with the given digit, for use
// as a deterministic fingerprint hash in tests.
func Hash(ch byte) string {
	return strings.Repeat(string(ch), 64)
}
