package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"linkbio/internal/config"
	mcpserver "linkbio/internal/mcp"
)

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no
// GUI. The live preview is served over websocket on cfg.Server.Addr, and
// destructive actions wait for approval through the shared database, where
// a running desktop editor picks them up.
func ServeMCP(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc, err := NewServices(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close(context.WithoutCancel(ctx))

	if _, err := svc.Identity.SignIn(ctx); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	mcpSrv := mcpserver.New(mcpserver.Deps{
		Emitter:   svc.Hub,
		Editor:    svc.Editor,
		Publisher: svc.Publisher,
		Pages:     svc.Pages,
		Approvals: svc.Approvals, // Enable SQLite-based approval IPC
		ExportDir: cfg.DataDir,
		Logger:    logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The preview is optional here; a busy port must not stop the tools.
		if err := svc.PublicServer().Run(gctx); err != nil {
			svc.Logger.Warn("preview server stopped", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		if err := mcpSrv.ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
