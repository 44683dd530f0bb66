package chat

import (
	"context"

	"github.com/rpggio/orgchat/internal/domain/session"
)

// Gateway is the backend side of a conversation.
type Gateway interface {
	SendMessage(ctx context.Context, sessionID, message string) (*Reply, error)
	History(ctx context.Context, sessionID string) ([]Message, error)
}

// SessionLookup reports whether a session is registered.
type SessionLookup interface {
	Get(id string) (session.Session, bool)
}
