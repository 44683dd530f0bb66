package mocks

import (
	"context"

	"github.com/rpggio/orgchat/internal/backend"
	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/datalog"
	"github.com/stretchr/testify/mock"
)

// KVStore is a mock for repository.KVStore.
type KVStore struct {
	mock.Mock
}

func (m *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if value, ok := args.Get(0).([]byte); ok {
		return value, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *KVStore) Put(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *KVStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Gateway is a mock for the backend client.
type Gateway struct {
	mock.Mock
}

func (m *Gateway) Authenticate(ctx context.Context, req backend.AuthRequest) (*backend.AuthResponse, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(*backend.AuthResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) SendMessage(ctx context.Context, sessionID, message string) (*chat.Reply, error) {
	args := m.Called(ctx, sessionID, message)
	if reply, ok := args.Get(0).(*chat.Reply); ok {
		return reply, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	args := m.Called(ctx, sessionID)
	if msgs, ok := args.Get(0).([]chat.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) DataLog(ctx context.Context, sessionID string) ([]datalog.Entry, error) {
	args := m.Called(ctx, sessionID)
	if entries, ok := args.Get(0).([]datalog.Entry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}
