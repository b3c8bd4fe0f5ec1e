package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/draftsmith/internal/api"
	"github.com/kalambet/draftsmith/internal/engine"
	"github.com/kalambet/draftsmith/internal/profile"
)

func (a *app) apiDeps(token string) api.Deps {
	return api.Deps{
		Generator: a.generator,
		Catalog:   a.catalog,
		Profiles:  a.profiles,
		Learner:   a.learner,
		History:   a.store,
		Style:     a.style,
		UserID:    a.userID,
		Token:     token,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API (foreground)",
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		ctx := cmd.Context()
		fmt.Fprintf(os.Stderr, "draftsmith version %s\n", version)

		if err := engine.EnsureReady(ctx, a.completer.Engine(), a.cfg.Completion.Model, os.Stderr); err != nil {
			return err
		}

		token := a.cfg.Server.Token
		if token == "" {
			token = uuid.NewString()
			printWarning("DRAFTSMITH_SERVER_TOKEN is not set; using a token for this run only")
			printStatus("Token", "%s", token)
		}

		addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewHandler(a.apiDeps(token)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("draftsmith listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "shutting down...")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}),
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		s := api.NewMCPServer(a.apiDeps(""), version)
		stdio := server.NewStdioServer(s)
		slog.Info("MCP server started (stdio transport)", "user", a.userID)
		if err := stdio.Listen(cmd.Context(), os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend, storage and profile status",
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		st := a.completer.Check(ctx)
		if st.Running {
			printStatus("Backend", "%s running at %s", st.Backend, a.cfg.Completion.BaseURL)
		} else {
			printStatus("Backend", "%s not reachable at %s", st.Backend, a.cfg.Completion.BaseURL)
		}
		switch {
		case !st.Running:
			printStatus("Model", "%s (unknown)", st.Model)
		case st.HasModel:
			printStatus("Model", "%s available", st.Model)
		default:
			printStatus("Model", "%s missing", st.Model)
		}
		printStatus("Data dir", "%s", a.cfg.Storage.DataDir)
		printStatus("Templates", "%d (%s)", a.catalog.Len(), a.cfg.Templates.Dir)
		if n := len(a.catalog.Skipped()); n > 0 {
			printStatus("Skipped", "%d invalid template file(s), see: draftsmith template list", n)
		}

		ids, err := a.profiles.List()
		if err != nil {
			return err
		}
		printStatus("Profiles", "%d", len(ids))

		p, err := a.profiles.Lookup(a.userID)
		switch {
		case err != nil:
			printWarning("profile %s: %v", a.userID, err)
		case p == nil:
			printStatus("Style", "no profile for %s yet", a.userID)
		default:
			s := profile.Summarize(*p, a.style)
			printStatus("Style", "%s, %d samples, confidence %.0f%%", s.UserID, s.SampleCount, s.Confidence*100)
		}
		return nil
	}),
}
