package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Engine holds cached transcripts per session and drives chat turns against
// the backend. Every request is tagged with the session it belongs to and a
// generation; a successful response is applied only when it is newer than
// the last response applied to that session. Failed responses never
// invalidate other requests in flight.
type Engine struct {
	gateway  Gateway
	sessions SessionLookup
	logger   *slog.Logger

	mu         sync.Mutex
	generation uint64
	entryID    uint64
	states     map[string]*sessionState
}

type entry struct {
	id  uint64
	msg Message
}

type sessionState struct {
	transcript []entry
	snapshot *Snapshot
	applied  uint64
	loadGen  uint64
	pending  uint64
}

// NewEngine creates a chat engine.
func NewEngine(gateway Gateway, sessions SessionLookup, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		gateway:  gateway,
		sessions: sessions,
		logger:   logger,
		states:   make(map[string]*sessionState),
	}
}

// LoadHistory replaces the cached transcript of a session with the backend's
// and clears its snapshot. On failure the transcript is left empty.
func (e *Engine) LoadHistory(ctx context.Context, sessionID string) ([]Message, error) {
	if _, ok := e.sessions.Get(sessionID); !ok {
		return nil, fmt.Errorf("load history: %w", ErrUnknownSession)
	}

	e.mu.Lock()
	st := e.stateFor(sessionID)
	st.snapshot = nil
	gen := e.nextGeneration()
	st.loadGen = gen
	e.mu.Unlock()

	msgs, err := e.gateway.History(ctx, sessionID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if st.loadGen == gen {
		st.loadGen = 0
	}
	if !e.current(sessionID, st, gen) {
		e.logger.Debug("discarding stale history", "session_id", sessionID, "generation", gen)
		return st.messages(), nil
	}
	if err != nil {
		st.transcript = nil
		return nil, fmt.Errorf("load history: %w", err)
	}
	st.transcript = e.entries(msgs)
	st.applied = gen
	return st.messages(), nil
}

// Send appends text to the session's transcript as an optimistic tail and
// sends it. On success the transcript and snapshot are replaced by the
// backend's; on failure exactly the appended message is removed.
func (e *Engine) Send(ctx context.Context, sessionID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if _, ok := e.sessions.Get(sessionID); !ok {
		return fmt.Errorf("send message: %w", ErrUnknownSession)
	}

	e.mu.Lock()
	st := e.stateFor(sessionID)
	if st.pending != 0 {
		e.mu.Unlock()
		return ErrSendInFlight
	}
	tail := e.newEntry(Message{Sender: SenderUser, Content: text})
	st.transcript = append(st.transcript, tail)
	st.pending = tail.id
	gen := e.nextGeneration()
	e.mu.Unlock()

	reply, err := e.gateway.SendMessage(ctx, sessionID, text)

	e.mu.Lock()
	defer e.mu.Unlock()

	st.pending = 0
	if err != nil {
		st.transcript = slices.DeleteFunc(st.transcript, func(en entry) bool {
			return en.id == tail.id
		})
		return fmt.Errorf("send message: %w", err)
	}
	if !e.current(sessionID, st, gen) {
		e.logger.Warn("discarding stale reply", "session_id", sessionID, "generation", gen, "applied", st.applied)
		return nil
	}

	st.transcript = e.entries(reply.History)
	st.applied = gen
	st.snapshot = nil
	if reply.Data != nil || reply.Description != "" {
		st.snapshot = &Snapshot{Data: reply.Data, Description: reply.Description}
	}
	return nil
}

// Transcript returns the cached transcript of a session.
func (e *Engine) Transcript(sessionID string) []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[sessionID]
	if !ok {
		return []Message{}
	}
	return st.messages()
}

// View returns everything a surface needs to render a session.
func (e *Engine) View(sessionID string) View {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[sessionID]
	if !ok {
		return View{Messages: []Message{}}
	}
	view := View{
		Messages: st.messages(),
		Sending:  st.pending != 0,
		Loading:  st.loadGen != 0,
	}
	if st.snapshot != nil {
		snap := *st.snapshot
		view.Snapshot = &snap
	}
	return view
}

// Forget drops the cached state of a session. Responses still in flight for
// it are discarded.
func (e *Engine) Forget(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, sessionID)
}

// ForgetAll drops the cached state of every session.
func (e *Engine) ForgetAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states = make(map[string]*sessionState)
}

func (e *Engine) stateFor(sessionID string) *sessionState {
	st, ok := e.states[sessionID]
	if !ok {
		st = &sessionState{}
		e.states[sessionID] = st
	}
	return st
}

// current reports whether st is still the live state of the session and gen
// newer than the last response applied to it.
func (e *Engine) current(sessionID string, st *sessionState, gen uint64) bool {
	return e.states[sessionID] == st && gen > st.applied
}

func (e *Engine) nextGeneration() uint64 {
	e.generation++
	return e.generation
}

func (e *Engine) newEntry(msg Message) entry {
	e.entryID++
	return entry{id: e.entryID, msg: msg}
}

func (e *Engine) entries(msgs []Message) []entry {
	out := make([]entry, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, e.newEntry(msg))
	}
	return out
}

func (st *sessionState) messages() []Message {
	msgs := make([]Message, 0, len(st.transcript))
	for _, en := range st.transcript {
		msgs = append(msgs, en.msg)
	}
	return msgs
}
