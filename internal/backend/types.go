package backend

import (
	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/datalog"
)

// Grant types accepted by the auth endpoint.
const (
	GrantPassword = "password"
	GrantToken    = "token"
)

// AuthRequest is the body of POST /salesforce/auth.
type AuthRequest struct {
	InstanceURL  string `json:"instance_url,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	GrantType    string `json:"grant_type,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
}

// AuthResponse is the body of a successful authentication.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	SessionID   string `json:"session_id"`
	Message     string `json:"message"`
}

// SendRequest is the body of POST /chat/send.
type SendRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// SendResponse is the body of a successful send. Older backends use the
// unprefixed field names.
type SendResponse struct {
	History               []chat.Message `json:"history"`
	LatestRetrievedData   any            `json:"latest_retrieved_data,omitempty"`
	LatestDataDescription string         `json:"latest_data_description,omitempty"`
	RetrievedData         any            `json:"retrieved_data,omitempty"`
	DataDescription       string         `json:"data_description,omitempty"`
}

// Reply converts the response to the engine's form.
func (r *SendResponse) Reply() *chat.Reply {
	reply := &chat.Reply{
		History:     r.History,
		Data:        r.LatestRetrievedData,
		Description: r.LatestDataDescription,
	}
	if reply.Data == nil {
		reply.Data = r.RetrievedData
	}
	if reply.Description == "" {
		reply.Description = r.DataDescription
	}
	if reply.History == nil {
		reply.History = []chat.Message{}
	}
	return reply
}

// HistoryResponse is the body of GET /chat/history/{session_id}.
type HistoryResponse struct {
	History []chat.Message `json:"history"`
}

// DataLogResponse is the body of GET /sessions/{session_id}/retrieved_data_log.
type DataLogResponse struct {
	Log []datalog.Entry `json:"log"`
}

// ErrorResponse is the body of a non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
