package pexels

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipforge/internal/services"
)

func TestLedgerExhaustsBudget(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger(filepath.Join(t.TempDir(), "ratelimit.json"), 2, time.Hour)
	ledger.now = func() time.Time { return current }

	if err := ledger.Reserve(); err != nil {
		t.Fatalf("first reserve returned error: %v", err)
	}
	if err := ledger.Reserve(); err != nil {
		t.Fatalf("second reserve returned error: %v", err)
	}

	err := ledger.Reserve()
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error at limit, got %v", err)
	}
	if !strings.Contains(err.Error(), "retry in") {
		t.Errorf("error %q does not name a retry delay", err)
	}
}

func TestLedgerPrunesExpiredRequests(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger(filepath.Join(t.TempDir(), "ratelimit.json"), 1, time.Hour)
	ledger.now = func() time.Time { return current }

	if err := ledger.Reserve(); err != nil {
		t.Fatalf("reserve returned error: %v", err)
	}
	if err := ledger.Reserve(); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error at limit, got %v", err)
	}

	current = current.Add(2 * time.Hour)
	if err := ledger.Reserve(); err != nil {
		t.Fatalf("reserve after window expiry returned error: %v", err)
	}
}

func TestLedgerPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratelimit.json")
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := NewLedger(path, 1, time.Hour)
	first.now = func() time.Time { return current }
	if err := first.Reserve(); err != nil {
		t.Fatalf("reserve returned error: %v", err)
	}

	second := NewLedger(path, 1, time.Hour)
	second.now = func() time.Time { return current.Add(time.Minute) }
	if err := second.Reserve(); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected second instance to see spent budget, got %v", err)
	}
}

func TestLedgerToleratesCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratelimit.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt state: %v", err)
	}

	ledger := NewLedger(path, 5, time.Hour)
	if err := ledger.Reserve(); err != nil {
		t.Fatalf("reserve over corrupt state returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading rewritten state: %v", err)
	}
	if !strings.Contains(string(data), "requests") {
		t.Errorf("rewritten state %q is not a ledger document", data)
	}
}

func TestLedgerRemaining(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger(filepath.Join(t.TempDir(), "ratelimit.json"), 3, time.Hour)
	ledger.now = func() time.Time { return current }

	remaining, err := ledger.Remaining()
	if err != nil {
		t.Fatalf("Remaining returned error: %v", err)
	}
	if remaining != 3 {
		t.Errorf("remaining = %d, want 3", remaining)
	}

	if err := ledger.Reserve(); err != nil {
		t.Fatalf("reserve returned error: %v", err)
	}
	if err := ledger.Reserve(); err != nil {
		t.Fatalf("reserve returned error: %v", err)
	}

	remaining, err = ledger.Remaining()
	if err != nil {
		t.Fatalf("Remaining returned error: %v", err)
	}
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
}

func TestLedgerCreatesStateDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nested", "ratelimit.json")
	ledger := NewLedger(path, 1, time.Hour)
	if err := ledger.Reserve(); err != nil {
		t.Fatalf("reserve returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected state file to exist, stat err = %v", err)
	}
}
