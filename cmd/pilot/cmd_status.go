package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// statusCmd probes the generation service
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show generation service status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := newClient()
	st, err := client.Status(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("service unreachable at %s: %w", client.BaseURL(), err)
	}
	logger.Debug("Service status", zap.String("version", st.Version))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Service:     %s\n", client.BaseURL())
	fmt.Fprintf(out, "App:         %s %s\n", st.App, st.Version)
	fmt.Fprintf(out, "Environment: %s\n", st.Environment)
	fmt.Fprintf(out, "Debug:       %v\n", st.Debug)
	fmt.Fprintf(out, "Timestamp:   %s\n", st.Timestamp)
	return nil
}
