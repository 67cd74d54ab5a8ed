package pexels

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"clipforge/internal/fileutil"
	"clipforge/internal/services"
)

// Ledger enforces a sliding-window request budget persisted to disk, so
// every process sharing the state directory draws from the same free-tier
// allowance. Reserve fails instead of sleeping; the caller decides whether
// to retry later.
type Ledger struct {
	path   string
	limit  int
	window time.Duration

	mu  sync.Mutex
	now func() time.Time
}

type ledgerState struct {
	Requests []time.Time `json:"requests"`
}

// NewLedger creates a ledger backed by the file at path. The file is
// created on first reserve.
func NewLedger(path string, limit int, window time.Duration) *Ledger {
	return &Ledger{
		path:   path,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Reserve records one request against the budget. When the window is full it
// returns a transient error naming how long until the oldest request falls
// out of the window.
func (l *Ledger) Reserve() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state, err := l.load()
	if err != nil {
		return err
	}

	recent := state.Requests[:0]
	cutoff := now.Add(-l.window)
	for _, t := range state.Requests {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	state.Requests = recent

	if len(state.Requests) >= l.limit {
		oldest := state.Requests[0]
		for _, t := range state.Requests[1:] {
			if t.Before(oldest) {
				oldest = t
			}
		}
		// One extra second so a retry lands clearly past the boundary.
		retryAfter := oldest.Add(l.window).Sub(now) + time.Second
		return services.Wrap(services.ErrTransient, "fetch", "rate-limit",
			fmt.Sprintf("%d requests in the last %s, retry in %s",
				len(state.Requests), l.window, retryAfter.Round(time.Second)), nil)
	}

	state.Requests = append(state.Requests, now)
	return l.save(state)
}

// Remaining reports how many requests the current window still allows.
func (l *Ledger) Remaining() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load()
	if err != nil {
		return 0, err
	}
	cutoff := l.now().Add(-l.window)
	used := 0
	for _, t := range state.Requests {
		if t.After(cutoff) {
			used++
		}
	}
	remaining := l.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (l *Ledger) load() (*ledgerState, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ledgerState{}, nil
		}
		return nil, services.Wrap(services.ErrTransient, "fetch", "rate-limit", "reading ledger", err)
	}
	var state ledgerState
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt ledger resets the budget rather than blocking fetches.
		return &ledgerState{}, nil
	}
	return &state, nil
}

func (l *Ledger) save(state *ledgerState) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "fetch", "rate-limit", "ensuring ledger directory", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return services.Wrap(services.ErrTransient, "fetch", "rate-limit", "encoding ledger", err)
	}
	if err := fileutil.WriteFileAtomic(l.path, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "fetch", "rate-limit", "writing ledger", err)
	}
	return nil
}
