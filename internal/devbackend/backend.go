package devbackend

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/datalog"
)

// Routes served by the development backend.
const (
	RouteAuth    = "auth"
	RouteSend    = "send"
	RouteHistory = "history"
	RouteDataLog = "datalog"
)

// Chat commands understood by the development agent.
const (
	CommandFail    = "/fail"
	CommandRecords = "/records"
)

const defaultRecordCount = 3

type failure struct {
	status int
	detail string
}

type agentSession struct {
	instanceURL string
	history     []chat.Message
	log         []datalog.Entry
}

// Backend is an in-memory agent backend serving the chat wire contract.
type Backend struct {
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*agentSession
	failures map[string]failure
	calls    map[string]int
}

// New creates an empty development backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Backend{
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*agentSession),
		failures: make(map[string]failure),
		calls:    make(map[string]int),
	}
}

// FailNext makes the next request to route respond with status and detail.
// An empty detail produces an error body without one.
func (b *Backend) FailNext(route string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, detail: detail}
}

// Calls returns how many requests reached route.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// SessionCount returns the number of sessions issued.
func (b *Backend) SessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

func (b *Backend) enter(route string) (failure, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[route]++
	f, ok := b.failures[route]
	if ok {
		delete(b.failures, route)
	}
	return f, ok
}

func (b *Backend) createSession(instanceURL string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.sessions[id] = &agentSession{instanceURL: instanceURL}
	return id
}

func (b *Backend) history(sessionID string) ([]chat.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return slices.Clone(sess.history), true
}

func (b *Backend) dataLog(sessionID string) ([]datalog.Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return slices.Clone(sess.log), true
}

type turn struct {
	history     []chat.Message
	data        any
	description string
}

// converse records one chat turn. The returned failure is set when the
// message asks the agent to fail.
func (b *Backend) converse(sessionID, message string) (turn, *failure, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sess, ok := b.sessions[sessionID]
	if !ok {
		return turn{}, nil, false
	}

	command, arg, _ := strings.Cut(strings.TrimSpace(message), " ")
	if command == CommandFail {
		return turn{}, &failure{status: 500, detail: strings.TrimSpace(arg)}, true
	}

	turnIndex := len(sess.history)
	sess.history = append(sess.history, chat.Message{Sender: chat.SenderUser, Content: message})

	var out turn
	switch command {
	case CommandRecords:
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || n <= 0 {
			n = defaultRecordCount
		}
		records := sampleAccounts(n)
		out.data = records
		out.description = fmt.Sprintf("%d Account records", n)
		sess.log = append(sess.log, datalog.Entry{
			LogID:                      uuid.NewString(),
			Timestamp:                  b.now().UTC().Format(time.RFC3339),
			Description:                out.description,
			Data:                       records,
			TriggeringMessageTurnIndex: &turnIndex,
		})
		sess.history = append(sess.history, chat.Message{
			Sender:  chat.SenderSystem,
			Content: fmt.Sprintf("Here are %d accounts from %s.", n, sess.instanceURL),
		})
	default:
		sess.history = append(sess.history, chat.Message{
			Sender:  chat.SenderSystem,
			Content: "You said: " + message,
		})
	}
	out.history = slices.Clone(sess.history)
	return out, nil, true
}

func sampleAccounts(n int) []any {
	names := []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli"}
	industries := []string{"Manufacturing", "Energy", "Technology", "Healthcare", "Media"}
	records := make([]any, 0, n)
	for i := range n {
		id := fmt.Sprintf("001%015d", i+1)
		records = append(records, map[string]any{
			"attributes": map[string]any{
				"type": "Account",
				"url":  "/services/data/v58.0/sobjects/Account/" + id,
			},
			"Id":       id,
			"Name":     names[i%len(names)],
			"Industry": industries[i%len(industries)],
		})
	}
	return records
}
