package mcp

import (
	"time"

	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/datalog"
	"github.com/rpggio/orgchat/internal/domain/session"
)

type ConnectParams struct {
	InstanceURL  string `json:"instance_url"`
	GrantType    string `json:"grant_type,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
}

type SessionIDParams struct {
	SessionID string `json:"session_id"`
}

type SendMessageParams struct {
	Message string `json:"message"`
}

type SessionResponse struct {
	ID               string `json:"id"`
	OrganizationName string `json:"organization_name"`
	InstanceURL      string `json:"instance_url"`
	CreatedAt        string `json:"created_at"`
	Active           bool   `json:"active"`
}

type ConnectResponse struct {
	Session SessionResponse `json:"session"`
	Warning string          `json:"warning,omitempty"`
}

type ListSessionsResponse struct {
	Sessions        []SessionResponse `json:"sessions"`
	ActiveSessionID string            `json:"active_session_id,omitempty"`
}

type SwitchSessionResponse struct {
	Session  SessionResponse `json:"session"`
	Messages []chat.Message  `json:"messages"`
	Warning  string          `json:"warning,omitempty"`
}

type RemoveSessionResponse struct {
	Removed   string `json:"removed"`
	Remaining int    `json:"remaining"`
	Warning   string `json:"warning,omitempty"`
}

type ClearSessionsResponse struct {
	Cleared int `json:"cleared"`
}

type SnapshotResponse struct {
	Description string   `json:"description,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	Data        any      `json:"data,omitempty"`
}

type TranscriptResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []chat.Message    `json:"messages"`
	Snapshot  *SnapshotResponse `json:"snapshot,omitempty"`
	Sending   bool              `json:"sending,omitempty"`
}

type DataLogResponse struct {
	SessionID string          `json:"session_id"`
	State     string          `json:"state"`
	Entries   []datalog.Entry `json:"entries"`
	Error     string          `json:"error,omitempty"`
}

func toSessionResponse(sess session.Session, activeID string) SessionResponse {
	return SessionResponse{
		ID:               sess.ID,
		OrganizationName: sess.DisplayName(),
		InstanceURL:      sess.InstanceURL,
		CreatedAt:        sess.CreatedAt.UTC().Format(time.RFC3339),
		Active:           sess.ID == activeID,
	}
}

func toTranscriptResponse(sessionID string, view chat.View) TranscriptResponse {
	resp := TranscriptResponse{
		SessionID: sessionID,
		Messages:  view.Messages,
		Sending:   view.Sending,
	}
	if resp.Messages == nil {
		resp.Messages = []chat.Message{}
	}
	if view.Snapshot != nil {
		resp.Snapshot = &SnapshotResponse{
			Description: view.Snapshot.Description,
			Columns:     view.Snapshot.Columns(),
			Data:        view.Snapshot.Data,
		}
	}
	return resp
}

func toDataLogResponse(snap datalog.Snapshot) DataLogResponse {
	resp := DataLogResponse{
		SessionID: snap.SessionID,
		State:     snap.State.String(),
		Entries:   snap.Entries,
	}
	if resp.Entries == nil {
		resp.Entries = []datalog.Entry{}
	}
	if snap.Err != nil {
		resp.Error = warningFor(snap.Err)
	}
	return resp
}
