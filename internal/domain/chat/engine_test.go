package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/orgchat/internal/backend"
	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/session"
	"github.com/rpggio/orgchat/internal/repository"
	"github.com/rpggio/orgchat/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, sessionIDs ...string) (*chat.Engine, *mocks.Gateway) {
	t.Helper()
	ctx := context.Background()
	store := session.Open(ctx, repository.NewMemoryKV(), nil)
	for _, id := range sessionIDs {
		require.NoError(t, store.Add(ctx, session.Session{ID: id}))
	}
	gw := &mocks.Gateway{}
	return chat.NewEngine(gw, store, nil), gw
}

func user(content string) chat.Message {
	return chat.Message{Sender: chat.SenderUser, Content: content}
}

func system(content string) chat.Message {
	return chat.Message{Sender: chat.SenderSystem, Content: content}
}

// blockingCall makes the matching call wait for release and reports when it
// has started.
func blockingCall(call *mock.Call) (started <-chan struct{}, release chan<- struct{}) {
	startedCh := make(chan struct{})
	releaseCh := make(chan struct{})
	call.Run(func(mock.Arguments) {
		close(startedCh)
		<-releaseCh
	})
	return startedCh, releaseCh
}

func TestEngine_SendReplacesTranscript(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	history := []chat.Message{user("hello"), system("hi")}
	gw.On("SendMessage", ctx, "s1", "hello").Return(&chat.Reply{History: history}, nil).Once()

	require.NoError(t, engine.Send(ctx, "s1", "hello"))
	require.Equal(t, history, engine.Transcript("s1"))
	gw.AssertExpectations(t)
}

func TestEngine_SendUsesServerOrdering(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	gw.On("History", ctx, "s1").Return([]chat.Message{user("a"), system("b")}, nil).Once()
	_, err := engine.LoadHistory(ctx, "s1")
	require.NoError(t, err)

	server := []chat.Message{system("rewritten"), user("c")}
	gw.On("SendMessage", ctx, "s1", "c").Return(&chat.Reply{History: server}, nil).Once()

	require.NoError(t, engine.Send(ctx, "s1", "c"))
	require.Equal(t, server, engine.Transcript("s1"))
}

func TestEngine_SendFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	prior := []chat.Message{user("hello"), system("hi")}
	gw.On("History", ctx, "s1").Return(prior, nil).Once()
	_, err := engine.LoadHistory(ctx, "s1")
	require.NoError(t, err)

	apiErr := &backend.APIError{Op: backend.OpSendMessage, StatusCode: 500, Detail: "overloaded"}
	gw.On("SendMessage", ctx, "s1", "hello").Return(nil, apiErr).Once()

	err = engine.Send(ctx, "s1", "hello")
	require.Error(t, err)
	require.Equal(t, "overloaded", backend.Message(err))
	require.Equal(t, prior, engine.Transcript("s1"))
	require.False(t, engine.View("s1").Sending)
}

func TestEngine_SendValidation(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	require.ErrorIs(t, engine.Send(ctx, "s1", ""), chat.ErrEmptyMessage)
	require.ErrorIs(t, engine.Send(ctx, "s1", " \n\t "), chat.ErrEmptyMessage)
	require.ErrorIs(t, engine.Send(ctx, "nope", "hello"), chat.ErrUnknownSession)

	gw.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
	require.Empty(t, engine.Transcript("s1"))
}

func TestEngine_SendKeepsTextUntrimmed(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	call := gw.On("SendMessage", mock.Anything, "s1", "  spaced  ").Return(&chat.Reply{History: []chat.Message{}}, nil).Once()
	started, release := blockingCall(call)

	done := make(chan error, 1)
	go func() { done <- engine.Send(ctx, "s1", "  spaced  ") }()
	<-started

	require.Equal(t, []chat.Message{user("  spaced  ")}, engine.Transcript("s1"))
	close(release)
	require.NoError(t, <-done)
}

func TestEngine_OptimisticTailAndInFlight(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1", "s2")

	call := gw.On("SendMessage", mock.Anything, "s1", "first").
		Return(&chat.Reply{History: []chat.Message{user("first"), system("ok")}}, nil).Once()
	started, release := blockingCall(call)
	gw.On("SendMessage", mock.Anything, "s2", "other").
		Return(&chat.Reply{History: []chat.Message{user("other")}}, nil).Once()

	done := make(chan error, 1)
	go func() { done <- engine.Send(ctx, "s1", "first") }()
	<-started

	view := engine.View("s1")
	require.True(t, view.Sending)
	require.Equal(t, []chat.Message{user("first")}, view.Messages)

	require.ErrorIs(t, engine.Send(ctx, "s1", "second"), chat.ErrSendInFlight)
	require.NoError(t, engine.Send(ctx, "s2", "other"))

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, []chat.Message{user("first"), system("ok")}, engine.Transcript("s1"))
	require.Equal(t, []chat.Message{user("other")}, engine.Transcript("s2"))
	require.False(t, engine.View("s1").Sending)
}

func TestEngine_RollbackRemovesOnlyOptimisticEntry(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	prior := []chat.Message{user("ping"), system("pong"), user("ping")}
	gw.On("History", ctx, "s1").Return(prior, nil).Once()
	_, err := engine.LoadHistory(ctx, "s1")
	require.NoError(t, err)

	gw.On("SendMessage", ctx, "s1", "ping").Return(nil, errors.New("boom")).Once()
	require.Error(t, engine.Send(ctx, "s1", "ping"))
	require.Equal(t, prior, engine.Transcript("s1"))
}

func TestEngine_SnapshotReplacedEachTurn(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	records := []any{map[string]any{"Name": "Acme"}}
	gw.On("SendMessage", ctx, "s1", "accounts").
		Return(&chat.Reply{History: []chat.Message{user("accounts")}, Data: records, Description: "1 account"}, nil).Once()
	gw.On("SendMessage", ctx, "s1", "thanks").
		Return(&chat.Reply{History: []chat.Message{user("accounts"), user("thanks")}}, nil).Once()

	require.NoError(t, engine.Send(ctx, "s1", "accounts"))
	snap := engine.View("s1").Snapshot
	require.NotNil(t, snap)
	require.Equal(t, "1 account", snap.Description)
	require.Equal(t, records, snap.Data)

	require.NoError(t, engine.Send(ctx, "s1", "thanks"))
	require.Nil(t, engine.View("s1").Snapshot)
}

func TestEngine_LoadHistory(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	gw.On("SendMessage", ctx, "s1", "q").
		Return(&chat.Reply{History: []chat.Message{user("q")}, Data: []any{}}, nil).Once()
	require.NoError(t, engine.Send(ctx, "s1", "q"))
	require.NotNil(t, engine.View("s1").Snapshot)

	history := []chat.Message{user("q"), system("a")}
	gw.On("History", ctx, "s1").Return(history, nil).Once()

	got, err := engine.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, history, got)

	view := engine.View("s1")
	require.Equal(t, history, view.Messages)
	require.Nil(t, view.Snapshot)
	require.False(t, view.Loading)
}

func TestEngine_LoadHistoryFailureEmptiesTranscript(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	gw.On("History", ctx, "s1").Return([]chat.Message{user("a")}, nil).Once()
	_, err := engine.LoadHistory(ctx, "s1")
	require.NoError(t, err)

	gw.On("History", ctx, "s1").Return(nil, &backend.NetworkError{Op: backend.OpHistory, Err: errors.New("refused")}).Once()
	_, err = engine.LoadHistory(ctx, "s1")
	var netErr *backend.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Empty(t, engine.Transcript("s1"))
}

func TestEngine_LoadHistoryUnknownSession(t *testing.T) {
	engine, gw := newEngine(t)

	_, err := engine.LoadHistory(context.Background(), "ghost")
	require.ErrorIs(t, err, chat.ErrUnknownSession)
	gw.AssertNotCalled(t, "History", mock.Anything, mock.Anything)
}

func TestEngine_StaleReplyDiscarded(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	call := gw.On("SendMessage", mock.Anything, "s1", "slow").
		Return(&chat.Reply{History: []chat.Message{user("slow"), system("late")}}, nil).Once()
	started, release := blockingCall(call)

	done := make(chan error, 1)
	go func() { done <- engine.Send(ctx, "s1", "slow") }()
	<-started

	fresh := []chat.Message{system("fresh history")}
	gw.On("History", mock.Anything, "s1").Return(fresh, nil).Once()
	_, err := engine.LoadHistory(ctx, "s1")
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, fresh, engine.Transcript("s1"))
	require.False(t, engine.View("s1").Sending)
}

func TestEngine_FailedReloadKeepsInFlightReply(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	history := []chat.Message{user("hello"), system("hi")}
	call := gw.On("SendMessage", mock.Anything, "s1", "hello").
		Return(&chat.Reply{History: history, Description: "1 record"}, nil).Once()
	started, release := blockingCall(call)

	done := make(chan error, 1)
	go func() { done <- engine.Send(ctx, "s1", "hello") }()
	<-started

	gw.On("History", mock.Anything, "s1").Return(nil, errors.New("history down")).Once()
	_, err := engine.LoadHistory(ctx, "s1")
	require.Error(t, err)
	require.Empty(t, engine.Transcript("s1"))

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, history, engine.Transcript("s1"))
	view := engine.View("s1")
	require.False(t, view.Sending)
	require.NotNil(t, view.Snapshot)
	require.Equal(t, "1 record", view.Snapshot.Description)
}

func TestEngine_FailedOlderReloadKeepsNewerHistory(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	call := gw.On("History", mock.Anything, "s1").Return(nil, errors.New("timeout")).Once()
	started, release := blockingCall(call)

	done := make(chan error, 1)
	go func() {
		_, err := engine.LoadHistory(ctx, "s1")
		done <- err
	}()
	<-started

	fresh := []chat.Message{system("fresh")}
	gw.On("History", mock.Anything, "s1").Return(fresh, nil).Once()
	_, err := engine.LoadHistory(ctx, "s1")
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, fresh, engine.Transcript("s1"))
}

func TestEngine_StaleHistoryDiscarded(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	call := gw.On("History", mock.Anything, "s1").Return([]chat.Message{system("old")}, nil).Once()
	started, release := blockingCall(call)

	done := make(chan error, 1)
	go func() {
		_, err := engine.LoadHistory(ctx, "s1")
		done <- err
	}()
	<-started
	require.True(t, engine.View("s1").Loading)

	reply := []chat.Message{user("hi"), system("hello")}
	gw.On("SendMessage", mock.Anything, "s1", "hi").Return(&chat.Reply{History: reply}, nil).Once()
	require.NoError(t, engine.Send(ctx, "s1", "hi"))

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, reply, engine.Transcript("s1"))
	require.False(t, engine.View("s1").Loading)
}

func TestEngine_ReplyOnlyMutatesItsSession(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "a", "b")

	gw.On("History", mock.Anything, "b").Return([]chat.Message{system("b history")}, nil).Once()
	call := gw.On("SendMessage", mock.Anything, "a", "to a").
		Return(&chat.Reply{History: []chat.Message{user("to a"), system("from a")}, Description: "a data"}, nil).Once()
	started, release := blockingCall(call)

	done := make(chan error, 1)
	go func() { done <- engine.Send(ctx, "a", "to a") }()
	<-started

	// The user moves to b while a's reply is pending.
	_, err := engine.LoadHistory(ctx, "b")
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	require.Equal(t, []chat.Message{user("to a"), system("from a")}, engine.Transcript("a"))
	require.Equal(t, "a data", engine.View("a").Snapshot.Description)
	require.Equal(t, []chat.Message{system("b history")}, engine.Transcript("b"))
	require.Nil(t, engine.View("b").Snapshot)
}

func TestEngine_ForgetDiscardsLateReply(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1")

	call := gw.On("SendMessage", mock.Anything, "s1", "bye").
		Return(&chat.Reply{History: []chat.Message{user("bye")}}, nil).Once()
	started, release := blockingCall(call)

	done := make(chan error, 1)
	go func() { done <- engine.Send(ctx, "s1", "bye") }()
	<-started

	engine.Forget("s1")
	close(release)
	require.NoError(t, <-done)

	require.Empty(t, engine.Transcript("s1"))
	require.Equal(t, chat.View{Messages: []chat.Message{}}, engine.View("s1"))
}

func TestEngine_ForgetAll(t *testing.T) {
	ctx := context.Background()
	engine, gw := newEngine(t, "s1", "s2")

	gw.On("History", ctx, mock.Anything).Return([]chat.Message{system("x")}, nil)
	_, err := engine.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	_, err = engine.LoadHistory(ctx, "s2")
	require.NoError(t, err)

	engine.ForgetAll()
	require.Empty(t, engine.Transcript("s1"))
	require.Empty(t, engine.Transcript("s2"))
}

func TestSnapshot_Columns(t *testing.T) {
	snap := &chat.Snapshot{Data: []any{
		map[string]any{
			"attributes": map[string]any{"type": "Account"},
			"Name":       "Acme",
			"Id":         "001",
			"Industry":   "Energy",
		},
		map[string]any{"Name": "Globex"},
	}}
	require.Equal(t, []string{"Id", "Industry", "Name"}, snap.Columns())

	records, ok := snap.Records()
	require.True(t, ok)
	require.Len(t, records, 2)
}

func TestSnapshot_NonTabular(t *testing.T) {
	tests := []struct {
		name string
		data any
	}{
		{name: "object", data: map[string]any{"count": 3.0}},
		{name: "scalar list", data: []any{"a", "b"}},
		{name: "empty list", data: []any{}},
		{name: "nil", data: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := &chat.Snapshot{Data: tc.data}
			_, ok := snap.Records()
			require.False(t, ok)
			require.Nil(t, snap.Columns())
		})
	}

	var nilSnap *chat.Snapshot
	require.Nil(t, nilSnap.Columns())
}
