package workspace

import (
	"context"

	"github.com/rpggio/orgchat/internal/backend"
)

// Authenticator exchanges credentials for a backend session.
type Authenticator interface {
	Authenticate(ctx context.Context, req backend.AuthRequest) (*backend.AuthResponse, error)
}
