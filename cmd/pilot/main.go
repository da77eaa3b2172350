// Command pilot drives the test generation service from the terminal: it
// generates test cases from requirements, hands them over to code
// generation, and saves the resulting pytest modules.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sdlcpilot/internal/api"
	"sdlcpilot/internal/config"
	"sdlcpilot/internal/handoff"
	"sdlcpilot/internal/logging"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiURL     string
	stateDir   string

	// Loaded configuration
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pilot",
	Short: "sdlcpilot - requirements to test cases to pytest",
	Long: `pilot turns a natural-language requirement into structured test cases and
runnable pytest modules using the generation service.

Typical flow:
  pilot cases generate "Users should be able to login with email and password."
  pilot code from-cases --module test_login

Generated test cases are handed over to code generation through the current
session; "pilot session end" clears them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if configPath == "" {
			configPath = config.DefaultPath()
		}
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if apiURL != "" {
			cfg.API.BaseURL = apiURL
		}
		if stateDir != "" {
			cfg.StateDir = stateDir
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if err := logging.Initialize(cfg.Logging.Options(cfg.LogsDir())); err != nil {
			logger.Warn("File logging disabled", zap.Error(err))
		}
		logging.Boot("pilot %s: api=%s handoff=%s", cmd.CommandPath(), cfg.API.BaseURL, cfg.Handoff.Backend)
		logger.Debug("Configuration loaded",
			zap.String("path", configPath),
			zap.String("api", cfg.API.BaseURL),
			zap.String("handoff", cfg.Handoff.Backend))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.sdlcpilot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Generation service base URL (or set SDLC_API_URL)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "State directory (or set SDLC_STATE_DIR)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(codeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext returns the command's context, falling back to Background
// when the command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newClient() *api.Client {
	opts := []api.Option{
		api.WithHTTPClient(&http.Client{Timeout: cfg.GetAPITimeout()}),
		api.WithLogger(logger),
	}
	for k, v := range cfg.API.Headers {
		opts = append(opts, api.WithHeader(k, v))
	}
	return api.New(cfg.API.BaseURL, opts...)
}

// openSession opens the configured hand-off store bound to the current
// session. The caller closes the returned store.
func openSession() (*handoff.Session, handoff.Store, error) {
	store, err := handoff.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open hand-off store: %w", err)
	}
	if cfg.Handoff.Backend == "memory" {
		logger.Warn("Hand-off backend is memory: test cases are lost when this command exits",
			zap.String("hint", "set handoff.backend to sqlite to keep them across commands"))
	}
	id, err := handoff.LoadOrCreateSessionID(cfg.StateDir)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return handoff.NewSession(store, id), store, nil
}
