package repository_test

import (
	"context"
	"testing"

	"github.com/rpggio/orgchat/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryKV()

	_, err := kv.Get(ctx, "sessions")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, kv.Put(ctx, "sessions", []byte(`[]`)))
	value, err := kv.Get(ctx, "sessions")
	require.NoError(t, err)
	require.Equal(t, []byte(`[]`), value)

	require.NoError(t, kv.Delete(ctx, "sessions"))
	_, err = kv.Get(ctx, "sessions")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, kv.Delete(ctx, "missing"))
}

func TestMemoryKV_CopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryKV()

	value := []byte("abc")
	require.NoError(t, kv.Put(ctx, "k", value))
	value[0] = 'x'

	stored, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(stored))

	stored[1] = 'y'
	again, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(again))
}

func TestMemoryKV_EmptyKey(t *testing.T) {
	kv := repository.NewMemoryKV()
	require.ErrorIs(t, kv.Put(context.Background(), "", nil), repository.ErrInvalidInput)
}

func TestPersistenceError_Unwrap(t *testing.T) {
	err := &repository.PersistenceError{Op: "write", Key: "sessions", Err: repository.ErrInvalidInput}
	require.ErrorIs(t, err, repository.ErrInvalidInput)
	require.Contains(t, err.Error(), "write sessions")
}
