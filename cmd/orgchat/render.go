package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/datalog"
	"github.com/rpggio/orgchat/internal/domain/session"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	systemStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135"))
)

// maxRecordRows bounds the snapshot table; the data log shows everything.
const maxRecordRows = 20

func sessionLine(sess session.Session, active bool) string {
	marker := " "
	if active {
		marker = "*"
	}
	return fmt.Sprintf("%s %s %s", marker, sess.DisplayName(), idStyle.Render(sess.ID))
}

func renderSessions(w io.Writer, sessions []session.Session, activeID string) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions. Run orgchat login to add one.")
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d session(s)", len(sessions))))
	for _, sess := range sessions {
		fmt.Fprintf(w, "%s  %s  %s\n",
			sessionLine(sess, sess.ID == activeID),
			sess.InstanceURL,
			dateStyle.Render(sess.CreatedAt.Local().Format(time.DateTime)),
		)
	}
}

func renderTranscript(w io.Writer, msgs []chat.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, dateStyle.Render("No messages yet."))
		return
	}
	for _, msg := range msgs {
		renderMessage(w, msg)
	}
}

func renderMessage(w io.Writer, msg chat.Message) {
	label := userStyle.Render("you")
	if msg.Sender != chat.SenderUser {
		label = systemStyle.Render("agent")
	}
	fmt.Fprintf(w, "%s: %s\n", label, msg.Content)
}

// renderReply prints the messages that follow the last user message and the
// data attached to them.
func renderReply(w io.Writer, view chat.View) {
	start := 0
	for i := len(view.Messages) - 1; i >= 0; i-- {
		if view.Messages[i].Sender == chat.SenderUser {
			start = i + 1
			break
		}
	}
	for _, msg := range view.Messages[start:] {
		renderMessage(w, msg)
	}
	renderSnapshot(w, view.Snapshot)
}

func renderSnapshot(w io.Writer, snap *chat.Snapshot) {
	if snap == nil {
		return
	}
	if snap.Description != "" {
		fmt.Fprintln(w, headerStyle.Render(snap.Description))
	}
	if snap.Data == nil {
		return
	}
	records, ok := snap.Records()
	if !ok {
		renderJSON(w, snap.Data)
		return
	}
	renderRecords(w, snap.Columns(), records, maxRecordRows)
}

func renderRecords(w io.Writer, columns []string, records []map[string]any, limit int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for i, rec := range records {
		if limit > 0 && i == limit {
			break
		}
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = formatCell(rec[col])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	if limit > 0 && len(records) > limit {
		fmt.Fprintln(w, dateStyle.Render(fmt.Sprintf("... %d more", len(records)-limit)))
	}
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

func renderJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(w, v)
		return
	}
	fmt.Fprintln(w, string(data))
}

func renderDataLog(w io.Writer, snap datalog.Snapshot) {
	switch snap.State {
	case datalog.StateHidden:
		fmt.Fprintln(w, dateStyle.Render("Data log hidden."))
		return
	case datalog.StateLoading:
		fmt.Fprintln(w, dateStyle.Render("Loading data log..."))
		return
	case datalog.StateError:
		printError(w, snap.Err)
		return
	}

	if len(snap.Entries) == 0 {
		fmt.Fprintln(w, dateStyle.Render("No data retrieved in this session."))
		return
	}
	for _, entry := range snap.Entries {
		title := entry.Description
		if title == "" {
			title = entry.LogID
		}
		line := headerStyle.Render(title) + " " + dateStyle.Render(entry.Timestamp)
		if entry.TriggeringMessageTurnIndex != nil {
			line += dateStyle.Render(fmt.Sprintf(" (turn %d)", *entry.TriggeringMessageTurnIndex))
		}
		fmt.Fprintln(w, line)

		entrySnap := &chat.Snapshot{Data: entry.Data}
		if records, ok := entrySnap.Records(); ok {
			renderRecords(w, entrySnap.Columns(), records, 0)
		} else if entry.Data != nil {
			renderJSON(w, entry.Data)
		}
	}
}

func printWarning(w io.Writer, err error) {
	fmt.Fprintln(w, warnStyle.Render("Warning: "+describeError(err)))
}

func printError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, errorStyle.Render("Error: "+describeError(err)))
}
