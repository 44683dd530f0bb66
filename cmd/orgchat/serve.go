package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/rpggio/orgchat/internal/devbackend"
	"github.com/rpggio/orgchat/internal/mcp"
)

const shutdownTimeout = 5 * time.Second

func newMCPCmd(a *app) *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the workspace as MCP tools over stdio or streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ws, err := a.open(ctx)
			if err != nil {
				return err
			}
			if err := ws.Resume(ctx); err != nil {
				a.logger.Warn("resume active session", "error", err)
			}

			server := mcp.NewServer(mcp.Config{Workspace: ws, Logger: a.logger})
			if httpAddr == "" {
				return runStdioMode(ctx, a.logger, server, &sdkmcp.StdioTransport{})
			}

			listener, err := net.Listen("tcp", httpAddr)
			if err != nil {
				return err
			}
			return serveUntilDone(ctx, a.logger, "mcp http", newMCPHTTPServer(server), listener)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve streamable HTTP on this address instead of stdio")
	return cmd
}

func newMCPHTTPServer(server *sdkmcp.Server) *http.Server {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
	)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Handle("/mcp", mcpHandler)
	router.Handle("/mcp/*", mcpHandler)
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// runStdioMode blocks until stdin closes or ctx is canceled.
func runStdioMode(ctx context.Context, logger *slog.Logger, server *sdkmcp.Server, transport sdkmcp.Transport) error {
	logger.Info("starting stdio transport")
	err := server.Run(ctx, transport)
	if err != nil && ctx.Err() != nil {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func newDevBackendCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "dev-backend",
		Short: "Serve an in-memory agent backend for local development",
		Long: `Serves the backend HTTP contract from memory. Send "/records N" to get N
sample Account records or "/fail TEXT" to make the turn fail with TEXT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.DevBackend
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			listener, err := net.Listen("tcp", cfg.Addr())
			if err != nil {
				return err
			}
			server := &http.Server{
				Handler:           devbackend.New(a.logger).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serveUntilDone(cmd.Context(), a.logger, "dev backend", server, listener)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")
	return cmd
}

// serveUntilDone serves on listener until ctx is canceled. name labels the log lines.
func serveUntilDone(ctx context.Context, logger *slog.Logger, name string, server *http.Server, listener net.Listener) error {
	logger = logger.With("server", name)
	logger.Info("listening", "addr", listener.Addr().String())
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	return waitForShutdown(logger, server)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}
