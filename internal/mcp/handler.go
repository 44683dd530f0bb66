package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/datalog"
	"github.com/rpggio/orgchat/internal/domain/session"
	"github.com/rpggio/orgchat/internal/workspace"
)

// Workspace defines the client operations needed by MCP.
type Workspace interface {
	Connect(ctx context.Context, creds workspace.Credentials) (session.Session, error)
	Switch(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	Sessions() []session.Session
	Lookup(id string) (session.Session, bool)
	Active() (session.Session, bool)
	Send(ctx context.Context, text string) error
	ToggleDataLog(ctx context.Context) error
	View() (chat.View, error)
	DataLog() (datalog.Snapshot, error)
}

// Handler dispatches MCP tool calls.
type Handler struct {
	ws Workspace
}

// NewHandler creates a new MCP handler.
func NewHandler(ws Workspace) *Handler {
	return &Handler{ws: ws}
}

// Handle dispatches a tool call to the workspace.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "connect":
		var req ConnectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sess, err := h.ws.Connect(ctx, workspace.Credentials{
			InstanceURL:  req.InstanceURL,
			Username:     req.Username,
			Password:     req.Password,
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
			AccessToken:  req.AccessToken,
			GrantType:    req.GrantType,
		})
		if sess.ID == "" {
			return nil, mapError(err)
		}
		resp := ConnectResponse{Session: toSessionResponse(sess, h.activeID())}
		if err != nil {
			resp.Warning = warningFor(err)
		}
		return resp, nil
	case "list_sessions":
		activeID := h.activeID()
		sessions := h.ws.Sessions()
		resp := ListSessionsResponse{
			Sessions:        make([]SessionResponse, 0, len(sessions)),
			ActiveSessionID: activeID,
		}
		for _, sess := range sessions {
			resp.Sessions = append(resp.Sessions, toSessionResponse(sess, activeID))
		}
		return resp, nil
	case "switch_session":
		var req SessionIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sess, err := h.lookup(req.SessionID)
		if err != nil {
			return nil, err
		}
		resp := SwitchSessionResponse{Session: toSessionResponse(sess, sess.ID)}
		if err := h.ws.Switch(ctx, sess.ID); err != nil {
			if active := h.activeID(); active != sess.ID {
				return nil, mapError(err)
			}
			resp.Warning = warningFor(err)
		}
		view, err := h.ws.View()
		if err != nil {
			return nil, mapError(err)
		}
		resp.Messages = toTranscriptResponse(sess.ID, view).Messages
		return resp, nil
	case "remove_session":
		var req SessionIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sess, err := h.lookup(req.SessionID)
		if err != nil {
			return nil, err
		}
		resp := RemoveSessionResponse{Removed: sess.ID}
		if err := h.ws.Remove(ctx, sess.ID); err != nil {
			resp.Warning = warningFor(err)
		}
		resp.Remaining = len(h.ws.Sessions())
		return resp, nil
	case "clear_sessions":
		count := len(h.ws.Sessions())
		if err := h.ws.ClearAll(ctx); err != nil {
			return nil, mapError(err)
		}
		return ClearSessionsResponse{Cleared: count}, nil
	case "get_transcript":
		return h.transcript()
	case "send_message":
		var req SendMessageParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.ws.Send(ctx, req.Message); err != nil {
			return nil, mapError(err)
		}
		return h.transcript()
	case "toggle_data_log":
		// Fetch failures surface as the overlay's error state.
		if err := h.ws.ToggleDataLog(ctx); err != nil && !isBackendFailure(err) {
			return nil, mapError(err)
		}
		snap, err := h.ws.DataLog()
		if err != nil {
			return nil, mapError(err)
		}
		return toDataLogResponse(snap), nil
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return &APIError{Code: "VALIDATION", Message: fmt.Sprintf("invalid arguments: %v", err)}
	}
	return nil
}

func (h *Handler) transcript() (TranscriptResponse, error) {
	view, err := h.ws.View()
	if err != nil {
		return TranscriptResponse{}, mapError(err)
	}
	return toTranscriptResponse(h.activeID(), view), nil
}

func (h *Handler) lookup(id string) (session.Session, error) {
	if id == "" {
		return session.Session{}, &APIError{Code: "VALIDATION", Message: "session_id is required"}
	}
	sess, ok := h.ws.Lookup(id)
	if !ok {
		return session.Session{}, mapError(fmt.Errorf("lookup %q: %w", id, session.ErrSessionNotFound))
	}
	return sess, nil
}

func (h *Handler) activeID() string {
	active, ok := h.ws.Active()
	if !ok {
		return ""
	}
	return active.ID
}
