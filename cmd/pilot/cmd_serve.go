package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sdlcpilot/internal/fakeservice"
	"sdlcpilot/internal/logging"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveAddr       string
	serveOutputRoot string
	serveDebug      bool
)

// serveCmd runs the deterministic generation service locally
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local deterministic generation service",
	Long: `Runs a generation service that answers the same endpoints as the real one
with deterministic, template-based output. Useful for offline work and for
exercising the client end to end.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().StringVar(&serveOutputRoot, "output-root", "", "Directory relative output_path values resolve against")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Report debug mode in /status")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serveAddr
	if addr == "" {
		addr = cfg.Service.Addr
	}
	svc := fakeservice.New(fakeservice.Config{
		Version:    cfg.Version,
		Debug:      serveDebug,
		OutputRoot: serveOutputRoot,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(commandContext(cmd), srv, func() error { return srv.ListenAndServe() })
}

// serve runs listen until it fails or ctx is cancelled, then shuts srv down.
func serve(ctx context.Context, srv *http.Server, listen func() error) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Generation service listening", zap.String("addr", srv.Addr))
		logging.Service("Listening on %s", srv.Addr)
		errCh <- listen()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("service stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	<-errCh
	logging.Service("Stopped")
	return nil
}
