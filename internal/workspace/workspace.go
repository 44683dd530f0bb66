package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/datalog"
	"github.com/rpggio/orgchat/internal/domain/session"
	"github.com/rpggio/orgchat/internal/repository"
)

// Workspace ties the session registry to the chat engine and the data log
// overlay. Every change of the active session goes through it so that the
// overlay is reset and the new session's history is loaded.
type Workspace struct {
	store   *session.Store
	engine  *chat.Engine
	overlay *datalog.Overlay
	auth    Authenticator
	logger  *slog.Logger
}

// New creates a workspace over already constructed components.
func New(store *session.Store, engine *chat.Engine, overlay *datalog.Overlay, auth Authenticator, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Workspace{
		store:   store,
		engine:  engine,
		overlay: overlay,
		auth:    auth,
		logger:  logger,
	}
}

// Connect authenticates and registers the resulting session as active. When
// the session was created but persisting it or loading its history failed,
// the session is returned together with the error.
func (w *Workspace) Connect(ctx context.Context, creds Credentials) (session.Session, error) {
	if err := creds.Validate(); err != nil {
		return session.Session{}, err
	}

	resp, err := w.auth.Authenticate(ctx, creds.Request())
	if err != nil {
		return session.Session{}, fmt.Errorf("authenticate: %w", err)
	}

	instanceURL := resp.InstanceURL
	if instanceURL == "" {
		instanceURL = creds.InstanceURL
	}
	sess := session.Session{
		ID:               resp.SessionID,
		InstanceURL:      instanceURL,
		OrganizationName: session.OrganizationName(instanceURL, creds.Username),
	}

	addErr := w.store.Add(ctx, sess)
	if addErr != nil && !isPersistence(addErr) {
		return session.Session{}, fmt.Errorf("add session: %w", addErr)
	}
	if stored, ok := w.store.Get(sess.ID); ok {
		sess = stored
	}
	w.logger.Info("session connected", "session_id", sess.ID, "organization", sess.OrganizationName)

	return sess, errors.Join(addErr, w.activate(ctx, sess.ID))
}

// Switch makes id the active session. Unknown ids are ignored.
func (w *Workspace) Switch(ctx context.Context, id string) error {
	setErr := w.store.SetActive(ctx, id)
	active, ok := w.store.Active()
	if !ok || active.ID != id {
		return setErr
	}
	return errors.Join(setErr, w.activate(ctx, id))
}

// Resume loads the history of the session that was active at last exit.
func (w *Workspace) Resume(ctx context.Context) error {
	active, ok := w.store.Active()
	if !ok {
		return nil
	}
	return w.activate(ctx, active.ID)
}

// Remove deletes a session and its cached chat state.
func (w *Workspace) Remove(ctx context.Context, id string) error {
	active, wasActive := w.store.Active()
	wasActive = wasActive && active.ID == id

	err := w.store.Remove(ctx, id)
	w.engine.Forget(id)
	if wasActive {
		w.overlay.Reset()
	}
	return err
}

// ClearAll deletes every session.
func (w *Workspace) ClearAll(ctx context.Context) error {
	err := w.store.ClearAll(ctx)
	w.engine.ForgetAll()
	w.overlay.Reset()
	return err
}

// Sessions returns the registry in insertion order.
func (w *Workspace) Sessions() []session.Session {
	return w.store.List()
}

// Lookup returns a registered session.
func (w *Workspace) Lookup(id string) (session.Session, bool) {
	return w.store.Get(id)
}

// Active returns the active session.
func (w *Workspace) Active() (session.Session, bool) {
	return w.store.Active()
}

// Send sends text in the active session.
func (w *Workspace) Send(ctx context.Context, text string) error {
	active, ok := w.store.Active()
	if !ok {
		return ErrNoActiveSession
	}
	return w.engine.Send(ctx, active.ID, text)
}

// ToggleDataLog shows or hides the data log of the active session.
func (w *Workspace) ToggleDataLog(ctx context.Context) error {
	active, ok := w.store.Active()
	if !ok {
		return ErrNoActiveSession
	}
	return w.overlay.Toggle(ctx, active.ID)
}

// Transcript returns the transcript of the active session.
func (w *Workspace) Transcript() ([]chat.Message, error) {
	view, err := w.View()
	if err != nil {
		return nil, err
	}
	return view.Messages, nil
}

// View returns the chat view of the active session.
func (w *Workspace) View() (chat.View, error) {
	active, ok := w.store.Active()
	if !ok {
		return chat.View{}, ErrNoActiveSession
	}
	return w.engine.View(active.ID), nil
}

// DataLog returns the overlay state for the active session.
func (w *Workspace) DataLog() (datalog.Snapshot, error) {
	active, ok := w.store.Active()
	if !ok {
		return datalog.Snapshot{}, ErrNoActiveSession
	}
	state := w.overlay.State()
	if state.SessionID != active.ID {
		return datalog.Snapshot{State: datalog.StateHidden, SessionID: active.ID}, nil
	}
	return state, nil
}

// activate runs the session switch transition for id.
func (w *Workspace) activate(ctx context.Context, id string) error {
	w.overlay.Reset()
	if _, err := w.engine.LoadHistory(ctx, id); err != nil {
		w.logger.Warn("failed to load history", "session_id", id, "error", err)
		return err
	}
	return nil
}

func isPersistence(err error) bool {
	var perr *repository.PersistenceError
	return errors.As(err, &perr)
}
