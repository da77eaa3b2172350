package main

import (
	"fmt"
	"sdlcpilot/internal/handoff"

	"github.com/spf13/cobra"
)

// sessionCmd manages the hand-off session
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the current session",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current session and its pending test cases",
	RunE:  runSessionShow,
}

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the current session and drop its test cases",
	RunE:  runSessionEnd,
}

func init() {
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionEndCmd)
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	sess, store, err := openSession()
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session: %s\n", sess.ID)
	fmt.Fprintf(out, "Backend: %s\n", cfg.Handoff.Backend)
	if cases, ok := sess.Consume(commandContext(cmd)); ok {
		fmt.Fprintf(out, "Pending: %d test cases\n", len(cases))
	} else {
		fmt.Fprintln(out, "Pending: none")
	}
	return nil
}

func runSessionEnd(cmd *cobra.Command, args []string) error {
	id, err := handoff.EndSession(cfg.StateDir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if id == "" {
		fmt.Fprintln(out, "No active session")
		return nil
	}

	store, err := handoff.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open hand-off store: %w", err)
	}
	defer store.Close()
	if err := store.Clear(commandContext(cmd), id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Ended session %s\n", id)
	return nil
}
