package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpggio/orgchat/internal/backend"
	"github.com/rpggio/orgchat/internal/domain/session"
	"github.com/rpggio/orgchat/internal/workspace"
)

func newLoginCmd(a *app) *cobra.Command {
	var creds workspace.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against an org and make the new session active",
		Example: `  orgchat login --instance-url https://acme.my.salesforce.com \
      --username jane --password secret --client-id id --client-secret shh
  orgchat login --grant token --instance-url https://acme.my.salesforce.com --access-token 00D...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ws, err := a.open(ctx)
			if err != nil {
				return err
			}

			sess, err := ws.Connect(ctx, creds)
			if sess.ID == "" {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", okStyle.Render("Connected to"), sessionLine(sess, true))
			if err != nil {
				printWarning(out, err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&creds.InstanceURL, "instance-url", "", "Org instance URL")
	flags.StringVar(&creds.GrantType, "grant", backend.GrantPassword, "Grant type: password or token")
	flags.StringVar(&creds.Username, "username", "", "Username (password grant)")
	flags.StringVar(&creds.Password, "password", "", "Password (password grant)")
	flags.StringVar(&creds.ClientID, "client-id", "", "Connected app client id (password grant)")
	flags.StringVar(&creds.ClientSecret, "client-secret", "", "Connected app client secret (password grant)")
	flags.StringVar(&creds.AccessToken, "access-token", "", "Access token (token grant)")
	_ = cmd.MarkFlagRequired("instance-url")
	return cmd
}

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored sessions",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions, marking the active one",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			renderSessions(cmd.OutOrStdout(), ws.Sessions(), activeID(ws))
			return nil
		},
	}

	useCmd := &cobra.Command{
		Use:   "use <session-id>",
		Short: "Make a session active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := a.open(ctx)
			if err != nil {
				return err
			}
			sess, err := lookup(ws, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			err = ws.Switch(ctx, sess.ID)
			if activeID(ws) != sess.ID {
				return err
			}
			fmt.Fprintf(out, "%s %s\n", okStyle.Render("Switched to"), sessionLine(sess, true))
			if err != nil {
				printWarning(out, err)
			}
			return nil
		},
	}

	rmCmd := &cobra.Command{
		Use:     "rm <session-id>",
		Aliases: []string{"remove"},
		Short:   "Forget a session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := a.open(ctx)
			if err != nil {
				return err
			}
			sess, err := lookup(ws, args[0])
			if err != nil {
				return err
			}
			if err := ws.Remove(ctx, sess.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("Removed"), sessionLine(sess, false))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget every session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ws, err := a.open(ctx)
			if err != nil {
				return err
			}
			count := len(ws.Sessions())
			if err := ws.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d session(s)\n", okStyle.Render("Cleared"), count)
			return nil
		},
	}

	cmd.AddCommand(listCmd, useCmd, rmCmd, clearCmd)
	return cmd
}

func lookup(ws *workspace.Workspace, id string) (session.Session, error) {
	sess, ok := ws.Lookup(id)
	if !ok {
		return session.Session{}, fmt.Errorf("session %q: %w", id, session.ErrSessionNotFound)
	}
	return sess, nil
}

func activeID(ws *workspace.Workspace) string {
	active, ok := ws.Active()
	if !ok {
		return ""
	}
	return active.ID
}
