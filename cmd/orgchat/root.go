package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rpggio/orgchat/internal/backend"
	"github.com/rpggio/orgchat/internal/config"
	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/datalog"
	"github.com/rpggio/orgchat/internal/domain/session"
	"github.com/rpggio/orgchat/internal/workspace"
)

type app struct {
	configPath string
	verbose    bool

	cfg     config.Config
	logger  *slog.Logger
	closers []io.Closer
}

// run executes the command line in args and releases whatever the command
// opened.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "orgchat",
		Short: "Chat with Salesforce orgs through an agent backend",
		Long: `orgchat keeps several authenticated org sessions side by side and lets
you converse with the agent backend in any of them.

Quick Start:
  orgchat dev-backend &                          # fake backend on :8000
  orgchat login --instance-url https://acme.my.salesforce.com \
      --username jane --password secret --client-id id --client-secret shh
  orgchat send "/records 3"
  orgchat chat`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file (default $ORGCHAT_CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newLoginCmd(a),
		newSessionsCmd(a),
		newHistoryCmd(a),
		newSendCmd(a),
		newDataLogCmd(a),
		newChatCmd(a),
		newMCPCmd(a),
		newDevBackendCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, closer := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Path, a.verbose)
	a.cfg = cfg
	a.logger = logger
	a.closers = append(a.closers, closer)
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.logger != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

// open wires storage, the backend client and the workspace.
func (a *app) open(ctx context.Context) (*workspace.Workspace, error) {
	kv, closer, err := openKV(a.cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closer)

	client := backend.New(backend.Config{
		BaseURL: a.cfg.Backend.URL,
		Timeout: a.cfg.Backend.Timeout,
	}, a.logger)

	store := session.Open(ctx, kv, a.logger)
	engine := chat.NewEngine(client, store, a.logger)
	overlay := datalog.NewOverlay(client, a.logger)
	return workspace.New(store, engine, overlay, client, a.logger), nil
}

// resume opens the workspace and loads the active session's history.
func (a *app) resume(ctx context.Context) (*workspace.Workspace, error) {
	ws, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	if err := ws.Resume(ctx); err != nil {
		return ws, err
	}
	return ws, nil
}
