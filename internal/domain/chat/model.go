package chat

import "sort"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// Message is one entry of a chat transcript.
type Message struct {
	Sender  Sender `json:"sender"`
	Content string `json:"content"`
}

// Reply is the backend's answer to a sent message.
type Reply struct {
	History     []Message
	Data        any
	Description string
}

// Snapshot is the data retrieved by the agent for the latest turn.
type Snapshot struct {
	Data        any    `json:"data,omitempty"`
	Description string `json:"description,omitempty"`
}

// Records returns the snapshot data as a list of records when it has a
// tabular shape.
func (s *Snapshot) Records() ([]map[string]any, bool) {
	if s == nil {
		return nil, false
	}
	items, ok := s.Data.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		records = append(records, rec)
	}
	return records, true
}

// Columns returns the table headers for tabular data: the first record's
// keys, sorted, without the attributes metadata key.
func (s *Snapshot) Columns() []string {
	records, ok := s.Records()
	if !ok {
		return nil
	}
	return RecordColumns(records[0])
}

// RecordColumns returns the sorted keys of a record, skipping attributes.
func RecordColumns(rec map[string]any) []string {
	cols := make([]string, 0, len(rec))
	for key := range rec {
		if key == "attributes" {
			continue
		}
		cols = append(cols, key)
	}
	sort.Strings(cols)
	return cols
}

// View is the state a surface renders for one session.
type View struct {
	Messages []Message
	Snapshot *Snapshot
	Sending  bool
	Loading  bool
}
