package mcp

import (
	"context"

	"github.com/google/uuid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/orgchat/internal/backend"
)

// requestIDMiddleware tags each tool call with an id that is forwarded to
// the backend as X-Request-ID.
func requestIDMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if method == "tools/call" {
				if _, ok := backend.RequestIDFromContext(ctx); !ok {
					ctx = backend.WithRequestID(ctx, uuid.NewString())
				}
			}
			return next(ctx, method, req)
		}
	}
}

func getRequestID(ctx context.Context) string {
	id, _ := backend.RequestIDFromContext(ctx)
	return id
}
