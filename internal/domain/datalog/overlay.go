package datalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
)

// Overlay shows a session's data log on demand. Each fetch carries a token;
// hiding or resetting the overlay issues a new one, so a fetch that
// completes afterwards is dropped.
type Overlay struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu        sync.Mutex
	state     State
	sessionID string
	entries   []Entry
	err       error
	token     uint64
}

// NewOverlay creates a hidden overlay.
func NewOverlay(fetcher Fetcher, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Overlay{fetcher: fetcher, logger: logger}
}

// Toggle hides the log when it is shown or loading for sessionID. Otherwise
// it fetches the log and shows it, or records the failure and returns it.
func (o *Overlay) Toggle(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}

	o.mu.Lock()
	if o.sessionID == sessionID && (o.state == StateShown || o.state == StateLoading) {
		o.hideLocked()
		o.mu.Unlock()
		return nil
	}
	o.token++
	token := o.token
	o.state = StateLoading
	o.sessionID = sessionID
	o.entries = nil
	o.err = nil
	o.mu.Unlock()

	entries, err := o.fetcher.DataLog(ctx, sessionID)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.token != token {
		o.logger.Debug("discarding stale data log", "session_id", sessionID)
		return nil
	}
	if err != nil {
		o.state = StateError
		o.err = err
		return fmt.Errorf("fetch data log: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	o.state = StateShown
	o.entries = entries
	return nil
}

// Reset hides the overlay and invalidates any fetch in flight.
func (o *Overlay) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hideLocked()
	o.sessionID = ""
}

// State returns a copy of the overlay state.
func (o *Overlay) State() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{State: o.state, SessionID: o.sessionID}
	switch o.state {
	case StateShown:
		snap.Entries = slices.Clone(o.entries)
	case StateError:
		snap.Err = o.err
	}
	return snap
}

func (o *Overlay) hideLocked() {
	o.token++
	o.state = StateHidden
	o.entries = nil
	o.err = nil
}
