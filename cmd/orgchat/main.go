package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rpggio/orgchat/internal/backend"
	"github.com/rpggio/orgchat/internal/workspace"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+describeError(err)))
		os.Exit(1)
	}
}

func describeError(err error) string {
	msg := backend.Message(err)
	if errors.Is(err, workspace.ErrNoActiveSession) {
		msg += " (run orgchat login or orgchat sessions use <id>)"
	}
	return msg
}
