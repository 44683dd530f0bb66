package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpggio/orgchat/internal/workspace"
)

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the active session's transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := a.resume(cmd.Context())
			if err != nil {
				return err
			}
			msgs, err := ws.Transcript()
			if err != nil {
				return err
			}
			renderTranscript(cmd.OutOrStdout(), msgs)
			return nil
		},
	}
}

func newSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message in the active session and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := a.open(ctx)
			if err != nil {
				return err
			}
			if err := ws.Send(ctx, strings.Join(args, " ")); err != nil {
				return err
			}
			view, err := ws.View()
			if err != nil {
				return err
			}
			renderReply(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

func newDataLogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "datalog",
		Short: "Show the data retrieved during the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ws, err := a.open(ctx)
			if err != nil {
				return err
			}
			if err := ws.ToggleDataLog(ctx); err != nil {
				return err
			}
			snap, err := ws.DataLog()
			if err != nil {
				return err
			}
			renderDataLog(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation in the active session",
		Long: `Reads one message per line. Lines starting with a local command are
handled by orgchat:

  /sessions        list sessions
  /use <id>        switch session
  /log             show or hide the data log
  /help            show this help
  /quit            leave

Anything else is sent to the backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ws, err := a.open(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := ws.Resume(ctx); err != nil {
				printWarning(out, err)
			}
			if msgs, err := ws.Transcript(); err == nil {
				renderTranscript(out, msgs)
			}
			return chatLoop(ctx, ws, cmd.InOrStdin(), out, cmd.Long)
		},
	}
}

func chatLoop(ctx context.Context, ws *workspace.Workspace, in io.Reader, out io.Writer, help string) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render(promptFor(ws)))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		command, arg, _ := strings.Cut(line, " ")
		switch command {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, help)
		case "/sessions":
			renderSessions(out, ws.Sessions(), activeID(ws))
		case "/use":
			sess, err := lookup(ws, strings.TrimSpace(arg))
			if err != nil {
				printError(out, err)
				continue
			}
			if err := ws.Switch(ctx, sess.ID); err != nil {
				printWarning(out, err)
			}
			if msgs, err := ws.Transcript(); err == nil {
				renderTranscript(out, msgs)
			}
		case "/log":
			if err := ws.ToggleDataLog(ctx); err != nil {
				printError(out, err)
				continue
			}
			snap, err := ws.DataLog()
			if err != nil {
				printError(out, err)
				continue
			}
			renderDataLog(out, snap)
		default:
			if err := ws.Send(ctx, line); err != nil {
				printError(out, err)
				continue
			}
			if view, err := ws.View(); err == nil {
				renderReply(out, view)
			}
		}
	}
}

func promptFor(ws *workspace.Workspace) string {
	active, ok := ws.Active()
	if !ok {
		return "(no session)> "
	}
	return active.DisplayName() + "> "
}
