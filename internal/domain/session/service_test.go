package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rpggio/orgchat/internal/domain/session"
	"github.com/rpggio/orgchat/internal/repository"
	"github.com/rpggio/orgchat/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T, kv repository.KVStore) *session.Store {
	t.Helper()
	return session.Open(context.Background(), kv, nil, session.WithClock(func() time.Time { return fixedNow }))
}

func ids(sessions []session.Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID)
	}
	return out
}

func TestStore_AddToEmptyRegistry(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, repository.NewMemoryKV())

	err := store.Add(ctx, session.Session{ID: "s1", InstanceURL: "https://a.my.salesforce.com", OrganizationName: "a"})
	require.NoError(t, err)

	list := store.List()
	require.Len(t, list, 1)
	require.Equal(t, fixedNow, list[0].CreatedAt)

	active, ok := store.Active()
	require.True(t, ok)
	require.Equal(t, "s1", active.ID)
}

func TestStore_AddKeepsProvidedCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, repository.NewMemoryKV())
	created := fixedNow.Add(-time.Hour)

	require.NoError(t, store.Add(ctx, session.Session{ID: "s1", CreatedAt: created}))

	got, ok := store.Get("s1")
	require.True(t, ok)
	require.Equal(t, created, got.CreatedAt)
}

func TestStore_AddRejectsEmptyID(t *testing.T) {
	store := openStore(t, repository.NewMemoryKV())

	err := store.Add(context.Background(), session.Session{InstanceURL: "https://a.my.salesforce.com"})
	require.ErrorIs(t, err, session.ErrInvalidInput)
	require.Empty(t, store.List())
	_, ok := store.Active()
	require.False(t, ok)
}

func TestStore_AddDuplicateReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, repository.NewMemoryKV())
	created := fixedNow.Add(-time.Hour)

	require.NoError(t, store.Add(ctx, session.Session{ID: "s1", OrganizationName: "old", CreatedAt: created}))
	require.NoError(t, store.Add(ctx, session.Session{ID: "s2"}))
	require.NoError(t, store.Add(ctx, session.Session{ID: "s1", OrganizationName: "new"}))

	list := store.List()
	require.Equal(t, []string{"s1", "s2"}, ids(list))
	require.Equal(t, "new", list[0].OrganizationName)
	require.Equal(t, created, list[0].CreatedAt)

	active, ok := store.Active()
	require.True(t, ok)
	require.Equal(t, "s1", active.ID)
}

func TestStore_RemoveActiveClearsSelection(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryKV()
	store := openStore(t, kv)

	require.NoError(t, store.Add(ctx, session.Session{ID: "s1"}))
	require.NoError(t, store.Add(ctx, session.Session{ID: "s2"}))
	require.NoError(t, store.Remove(ctx, "s2"))

	_, ok := store.Active()
	require.False(t, ok)
	require.Equal(t, []string{"s1"}, ids(store.List()))

	_, err := kv.Get(ctx, session.KeyCurrentSession)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_RemoveInactiveKeepsSelection(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, repository.NewMemoryKV())

	require.NoError(t, store.Add(ctx, session.Session{ID: "s1"}))
	require.NoError(t, store.Add(ctx, session.Session{ID: "s2"}))
	require.NoError(t, store.Remove(ctx, "s1"))

	active, ok := store.Active()
	require.True(t, ok)
	require.Equal(t, "s2", active.ID)
}

func TestStore_UnknownIDsAreNoOps(t *testing.T) {
	ctx := context.Background()
	kv := &mocks.KVStore{}
	kv.On("Get", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	store := openStore(t, kv)
	require.NoError(t, store.SetActive(ctx, "missing"))
	require.NoError(t, store.Remove(ctx, "missing"))

	kv.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	kv.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestStore_SetActive(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryKV()
	store := openStore(t, kv)

	require.NoError(t, store.Add(ctx, session.Session{ID: "s1"}))
	require.NoError(t, store.Add(ctx, session.Session{ID: "s2"}))
	require.NoError(t, store.SetActive(ctx, "s1"))

	active, ok := store.Active()
	require.True(t, ok)
	require.Equal(t, "s1", active.ID)

	raw, err := kv.Get(ctx, session.KeyCurrentSession)
	require.NoError(t, err)
	var current session.Session
	require.NoError(t, json.Unmarshal(raw, &current))
	require.Equal(t, "s1", current.ID)
}

func TestStore_ClearAll(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryKV()
	store := openStore(t, kv)

	require.NoError(t, store.Add(ctx, session.Session{ID: "s1"}))
	require.NoError(t, store.Add(ctx, session.Session{ID: "s2"}))
	require.NoError(t, store.ClearAll(ctx))

	require.Empty(t, store.List())
	_, ok := store.Active()
	require.False(t, ok)

	raw, err := kv.Get(ctx, session.KeySessions)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(raw))
}

func TestStore_ReopenRestoresState(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryKV()
	store := openStore(t, kv)

	require.NoError(t, store.Add(ctx, session.Session{ID: "s1", OrganizationName: "acme"}))
	require.NoError(t, store.Add(ctx, session.Session{ID: "s2", OrganizationName: "globex"}))
	require.NoError(t, store.SetActive(ctx, "s1"))

	reopened := openStore(t, kv)
	require.Equal(t, []string{"s1", "s2"}, ids(reopened.List()))
	active, ok := reopened.Active()
	require.True(t, ok)
	require.Equal(t, "acme", active.OrganizationName)
}

func TestStore_ReopenDiscardsStalePointer(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryKV()
	require.NoError(t, kv.Put(ctx, session.KeySessions, []byte(`[{"session_id":"s1"}]`)))
	require.NoError(t, kv.Put(ctx, session.KeyCurrentSession, []byte(`{"session_id":"gone"}`)))

	store := openStore(t, kv)
	require.Equal(t, []string{"s1"}, ids(store.List()))
	_, ok := store.Active()
	require.False(t, ok)
}

func TestStore_ReopenAfterRemovingActive(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryKV()
	store := openStore(t, kv)

	require.NoError(t, store.Add(ctx, session.Session{ID: "s1"}))
	require.NoError(t, store.Remove(ctx, "s1"))

	reopened := openStore(t, kv)
	_, ok := reopened.Active()
	require.False(t, ok)
}

func TestStore_CorruptDataDegradesToEmpty(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		sessions string
		current  string
	}{
		{name: "garbage", sessions: `not json`, current: `{"session_id":"s1"}`},
		{name: "wrong shape", sessions: `{"session_id":"s1"}`, current: `[]`},
		{name: "null", sessions: `null`, current: `null`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kv := repository.NewMemoryKV()
			require.NoError(t, kv.Put(ctx, session.KeySessions, []byte(tc.sessions)))
			require.NoError(t, kv.Put(ctx, session.KeyCurrentSession, []byte(tc.current)))

			store := openStore(t, kv)
			require.Empty(t, store.List())
			_, ok := store.Active()
			require.False(t, ok)
		})
	}
}

func TestStore_ReadFailureDegradesToEmpty(t *testing.T) {
	kv := &mocks.KVStore{}
	kv.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("disk on fire"))

	store := openStore(t, kv)
	require.Empty(t, store.List())
	_, ok := store.Active()
	require.False(t, ok)
}

func TestStore_PersistedDuplicatesCollapse(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryKV()
	persisted := `[
		{"session_id":"s1","organization_name":"first"},
		{"session_id":""},
		{"session_id":"s2"},
		{"session_id":"s1","organization_name":"second"}
	]`
	require.NoError(t, kv.Put(ctx, session.KeySessions, []byte(persisted)))

	store := openStore(t, kv)
	list := store.List()
	require.Equal(t, []string{"s1", "s2"}, ids(list))
	require.Equal(t, "first", list[0].OrganizationName)
}

func TestStore_PersistenceFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	diskErr := errors.New("read-only filesystem")

	kv := &mocks.KVStore{}
	kv.On("Get", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	kv.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(diskErr)

	store := openStore(t, kv)
	err := store.Add(ctx, session.Session{ID: "s1"})

	var perr *repository.PersistenceError
	require.ErrorAs(t, err, &perr)
	require.ErrorIs(t, err, diskErr)

	require.Equal(t, []string{"s1"}, ids(store.List()))
	active, ok := store.Active()
	require.True(t, ok)
	require.Equal(t, "s1", active.ID)
}

func TestStore_DeleteFailureOnRemove(t *testing.T) {
	ctx := context.Background()

	kv := &mocks.KVStore{}
	kv.On("Get", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	kv.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	kv.On("Delete", mock.Anything, session.KeyCurrentSession).Return(errors.New("locked"))

	store := openStore(t, kv)
	require.NoError(t, store.Add(ctx, session.Session{ID: "s1"}))

	err := store.Remove(ctx, "s1")
	var perr *repository.PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "delete", perr.Op)
	require.Equal(t, session.KeyCurrentSession, perr.Key)
	require.Empty(t, store.List())
}

func TestStore_NoDuplicatesAcrossMutations(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, repository.NewMemoryKV())

	for i := range 60 {
		id := fmt.Sprintf("s%d", i%7)
		switch i % 5 {
		case 0, 1, 2:
			require.NoError(t, store.Add(ctx, session.Session{ID: id}))
		case 3:
			require.NoError(t, store.Remove(ctx, fmt.Sprintf("s%d", (i+3)%7)))
		case 4:
			if i%20 == 19 {
				require.NoError(t, store.ClearAll(ctx))
			}
		}

		seen := make(map[string]bool)
		for _, s := range store.List() {
			require.False(t, seen[s.ID], "duplicate %s after step %d", s.ID, i)
			seen[s.ID] = true
		}
		if active, ok := store.Active(); ok {
			require.True(t, seen[active.ID])
		}
	}
}

func TestStore_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, repository.NewMemoryKV())
	require.NoError(t, store.Add(ctx, session.Session{ID: "s1", OrganizationName: "acme"}))

	list := store.List()
	list[0].OrganizationName = "mutated"

	got, ok := store.Get("s1")
	require.True(t, ok)
	require.Equal(t, "acme", got.OrganizationName)
}
