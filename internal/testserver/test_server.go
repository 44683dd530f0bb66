package testserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpggio/orgchat/internal/backend"
	"github.com/rpggio/orgchat/internal/devbackend"
	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/datalog"
	"github.com/rpggio/orgchat/internal/domain/session"
	"github.com/rpggio/orgchat/internal/repository"
	"github.com/rpggio/orgchat/internal/workspace"
	"github.com/stretchr/testify/require"
)

// TestServer is a development backend listening on a local port.
type TestServer struct {
	Server  *httptest.Server
	Backend *devbackend.Backend
	Client  *backend.Client
}

func New(t *testing.T) *TestServer {
	t.Helper()

	dev := devbackend.New(nil)
	server := httptest.NewServer(dev.Handler())
	t.Cleanup(server.Close)

	return &TestServer{
		Server:  server,
		Backend: dev,
		Client:  backend.New(backend.Config{BaseURL: server.URL, Timeout: 5 * time.Second}, nil),
	}
}

// Workspace builds a workspace against the server, persisting to kv. A nil kv
// uses a fresh in-memory store.
func (ts *TestServer) Workspace(t *testing.T, kv repository.KVStore) (*workspace.Workspace, *session.Store) {
	t.Helper()
	if kv == nil {
		kv = repository.NewMemoryKV()
	}

	store := session.Open(context.Background(), kv, nil)
	engine := chat.NewEngine(ts.Client, store, nil)
	overlay := datalog.NewOverlay(ts.Client, nil)
	return workspace.New(store, engine, overlay, ts.Client, nil), store
}

// Credentials returns a complete password grant for instanceURL.
func Credentials(instanceURL string) workspace.Credentials {
	return workspace.Credentials{
		InstanceURL:  instanceURL,
		Username:     "jane@example.com",
		Password:     "secret",
		ClientID:     "client",
		ClientSecret: "shh",
		GrantType:    backend.GrantPassword,
	}
}

// Connect opens a session and fails the test on error.
func Connect(t *testing.T, ws *workspace.Workspace, instanceURL string) session.Session {
	t.Helper()
	sess, err := ws.Connect(context.Background(), Credentials(instanceURL))
	require.NoError(t, err)
	return sess
}
