package datalog

import "context"

// Fetcher retrieves the full data log of a session.
type Fetcher interface {
	DataLog(ctx context.Context, sessionID string) ([]Entry, error)
}
