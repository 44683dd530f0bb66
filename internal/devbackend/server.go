package devbackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rpggio/orgchat/internal/backend"
	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/datalog"
)

// Handler returns the HTTP router for the backend.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(b.logRequests)

	r.Post("/salesforce/auth", b.handleAuth)
	r.Post("/chat/send", b.handleSend)
	r.Get("/chat/history/{sessionID}", b.handleHistory)
	r.Get("/sessions/{sessionID}/retrieved_data_log", b.handleDataLog)
	r.Get("/health", b.handleHealth)

	return r
}

func (b *Backend) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, _ := RequestIDFromContext(r.Context())
		b.logger.Debug("dev backend request", "method", r.Method, "path", r.URL.Path, "request_id", requestID)
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (b *Backend) handleAuth(w http.ResponseWriter, r *http.Request) {
	if b.injected(w, RouteAuth) {
		return
	}

	var req backend.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if missing := missingAuthFields(req); len(missing) > 0 {
		writeDetail(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
		return
	}

	sessionID := b.createSession(req.InstanceURL)
	b.logger.Info("dev session created", "session_id", sessionID, "instance_url", req.InstanceURL)

	token := req.AccessToken
	if token == "" {
		token = "dev-" + sessionID
	}
	writeJSON(w, http.StatusOK, backend.AuthResponse{
		AccessToken: token,
		InstanceURL: req.InstanceURL,
		SessionID:   sessionID,
		Message:     "Authenticated with Salesforce",
	})
}

func (b *Backend) handleSend(w http.ResponseWriter, r *http.Request) {
	if b.injected(w, RouteSend) {
		return
	}

	var req backend.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeDetail(w, http.StatusBadRequest, "message is required")
		return
	}

	out, fail, ok := b.converse(req.SessionID, req.Message)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	if fail != nil {
		writeDetail(w, fail.status, fail.detail)
		return
	}

	writeJSON(w, http.StatusOK, backend.SendResponse{
		History:               out.history,
		LatestRetrievedData:   out.data,
		LatestDataDescription: out.description,
	})
}

func (b *Backend) handleHistory(w http.ResponseWriter, r *http.Request) {
	if b.injected(w, RouteHistory) {
		return
	}

	history, ok := b.history(chi.URLParam(r, "sessionID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	if history == nil {
		history = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, backend.HistoryResponse{History: history})
}

func (b *Backend) handleDataLog(w http.ResponseWriter, r *http.Request) {
	if b.injected(w, RouteDataLog) {
		return
	}

	log, ok := b.dataLog(chi.URLParam(r, "sessionID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	if log == nil {
		log = []datalog.Entry{}
	}
	writeJSON(w, http.StatusOK, backend.DataLogResponse{Log: log})
}

// injected writes a queued failure for route, if any.
func (b *Backend) injected(w http.ResponseWriter, route string) bool {
	f, ok := b.enter(route)
	if !ok {
		return false
	}
	writeDetail(w, f.status, f.detail)
	return true
}

type authField struct {
	name  string
	value string
}

func missingAuthFields(req backend.AuthRequest) []string {
	fields := []authField{{"instance_url", req.InstanceURL}}

	switch req.GrantType {
	case backend.GrantToken:
		fields = append(fields, authField{"access_token", req.AccessToken})
	case backend.GrantPassword, "":
		fields = append(fields,
			authField{"username", req.Username},
			authField{"password", req.Password},
			authField{"client_id", req.ClientID},
			authField{"client_secret", req.ClientSecret},
		)
	default:
		return []string{fmt.Sprintf("grant_type (unsupported %q)", req.GrantType)}
	}

	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	if detail == "" {
		writeJSON(w, status, map[string]any{})
		return
	}
	writeJSON(w, status, backend.ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
