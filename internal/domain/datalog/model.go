package datalog

// Entry is one server-recorded retrieval by the agent.
type Entry struct {
	LogID                      string `json:"log_id"`
	Timestamp                  string `json:"timestamp"`
	Description                string `json:"description,omitempty"`
	Data                       any    `json:"data"`
	TriggeringMessageTurnIndex *int   `json:"triggering_message_turn_index,omitempty"`
}

// State is the visibility state of the overlay.
type State int

const (
	StateHidden State = iota
	StateLoading
	StateShown
	StateError
)

func (s State) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StateLoading:
		return "loading"
	case StateShown:
		return "shown"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the overlay.
type Snapshot struct {
	State     State
	SessionID string
	Entries   []Entry
	Err       error
}

// Visible reports whether the log is on screen.
func (s Snapshot) Visible() bool {
	return s.State == StateShown
}
