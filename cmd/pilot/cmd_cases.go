package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sdlcpilot/internal/api"
	"sdlcpilot/internal/flow"
	"sdlcpilot/internal/present"
	"sdlcpilot/internal/testcase"
	"sdlcpilot/internal/watch"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	casesContext   string
	casesNum       int
	casesTypes     []string
	casesFile      string
	casesFormat    string
	casesNoHandoff bool
)

// casesCmd groups test case commands
var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Generate and inspect test cases",
}

var casesGenerateCmd = &cobra.Command{
	Use:   "generate [requirement...]",
	Short: "Generate test cases from a requirement",
	Long: `Sends the requirement to the generation service and prints the resulting
test cases. On success the cases are handed over to the current session so
"pilot code from-cases" can turn them into pytest.

Example:
  pilot cases generate "Users should be able to login with email and password." --num-cases 5`,
	RunE: runCasesGenerate,
}

var casesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the test cases handed over in this session",
	RunE:  runCasesShow,
}

var casesWatchCmd = &cobra.Command{
	Use:   "watch <requirement-file>",
	Short: "Regenerate test cases whenever the requirement file is saved",
	Args:  cobra.ExactArgs(1),
	RunE:  runCasesWatch,
}

func init() {
	for _, c := range []*cobra.Command{casesGenerateCmd, casesWatchCmd} {
		c.Flags().StringVar(&casesContext, "context", "", "Additional context about the system under test")
		c.Flags().IntVarP(&casesNum, "num-cases", "n", 0, "Number of test cases to ask for (advisory)")
		c.Flags().StringSliceVar(&casesTypes, "type", nil, "Restrict test types (functional, integration, e2e, smoke, regression)")
	}
	casesGenerateCmd.Flags().StringVarP(&casesFile, "file", "f", "", "Read the requirement from a file")
	casesGenerateCmd.Flags().BoolVar(&casesNoHandoff, "no-handoff", false, "Do not hand the cases over to code generation")
	for _, c := range []*cobra.Command{casesGenerateCmd, casesShowCmd, casesWatchCmd} {
		c.Flags().StringVar(&casesFormat, "format", "table", "Output format: table, markdown, text, json")
	}

	casesCmd.AddCommand(casesGenerateCmd)
	casesCmd.AddCommand(casesShowCmd)
	casesCmd.AddCommand(casesWatchCmd)
}

func readRequirement(args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read requirement: %w", err)
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}

func caseOptions() ([]api.CaseOption, error) {
	var opts []api.CaseOption
	if casesContext != "" {
		opts = append(opts, api.WithContext(casesContext))
	}
	if casesNum != 0 {
		opts = append(opts, api.WithNumCases(casesNum))
	}
	if len(casesTypes) > 0 {
		types := make([]testcase.TestType, 0, len(casesTypes))
		for _, s := range casesTypes {
			t, err := testcase.ParseTestType(s)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
		opts = append(opts, api.WithTestTypes(types...))
	}
	return opts, nil
}

func runCasesGenerate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	requirement, err := readRequirement(args, casesFile)
	if err != nil {
		return err
	}
	opts, err := caseOptions()
	if err != nil {
		return err
	}

	client := newClient()
	f := flow.New(flow.WithName[*testcase.GenerateResponse]("cases"))
	f.Submit(ctx,
		func() error { return api.ValidateRequirement(requirement) },
		func(ctx context.Context) (*testcase.GenerateResponse, error) {
			return client.GenerateTestCases(ctx, requirement, opts...)
		},
	)
	snap, err := f.Wait(ctx)
	if err != nil {
		return err
	}
	if snap.State == flow.Failed {
		return snap.Cause
	}
	resp := snap.Value
	logger.Info("Generated test cases", zap.Int("count", len(resp.TestCases)), zap.String("model", resp.Metadata.Model))

	out := cmd.OutOrStdout()
	if err := renderCases(out, resp.TestCases, casesFormat); err != nil {
		return err
	}

	if casesNoHandoff {
		return nil
	}
	sess, store, err := openSession()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := sess.Publish(ctx, resp.TestCases); err != nil {
		return err
	}
	if casesFormat != "json" {
		fmt.Fprintf(out, "\n%d test cases ready for code generation (pilot code from-cases)\n", len(resp.TestCases))
	}
	return nil
}

func runCasesShow(cmd *cobra.Command, args []string) error {
	sess, store, err := openSession()
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	cases, ok := sess.Consume(commandContext(cmd))
	if !ok {
		fmt.Fprintln(out, api.MsgNoTestCases)
		return nil
	}
	return renderCases(out, cases, casesFormat)
}

func runCasesWatch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	path := args[0]
	opts, err := caseOptions()
	if err != nil {
		return err
	}

	sess, store, err := openSession()
	if err != nil {
		return err
	}
	defer store.Close()

	client := newClient()
	out := cmd.OutOrStdout()
	f := flow.New(
		flow.WithName[*testcase.GenerateResponse]("watch"),
		flow.WithObserver(func(s flow.Snapshot[*testcase.GenerateResponse]) {
			switch s.State {
			case flow.Submitting:
				fmt.Fprintf(out, "[%d] generating...\n", s.Seq)
			case flow.Failed:
				fmt.Fprintf(out, "[%d] failed: %s\n", s.Seq, s.Err)
			case flow.Succeeded:
				if err := sess.Publish(ctx, s.Value.TestCases); err != nil {
					logger.Warn("Hand-off failed", zap.Error(err))
				}
				fmt.Fprintf(out, "[%d] %d test cases\n", s.Seq, len(s.Value.TestCases))
				if err := renderCases(out, s.Value.TestCases, casesFormat); err != nil {
					logger.Warn("Render failed", zap.Error(err))
				}
			}
		}),
	)

	submit := func(ctx context.Context, requirement string) {
		f.Edit()
		f.Submit(ctx,
			func() error { return api.ValidateRequirement(requirement) },
			func(ctx context.Context) (*testcase.GenerateResponse, error) {
				return client.GenerateTestCases(ctx, requirement, opts...)
			},
		)
	}

	if data, err := os.ReadFile(path); err == nil {
		submit(ctx, string(data))
	}

	w, err := watch.New(path, submit, watch.WithDebounce(cfg.GetWatchDebounce()))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", w.Path())

	<-ctx.Done()
	w.Stop()
	f.Drain()
	return nil
}

func renderCases(out io.Writer, cases []testcase.TestCase, format string) error {
	switch format {
	case "", "table":
		fmt.Fprintln(out, present.Table(cases))
	case "markdown", "md":
		rendered, err := present.RenderMarkdown(present.Markdown(cases), "auto", 100)
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
	case "text":
		for i, tc := range cases {
			if i > 0 {
				fmt.Fprintln(out, "\n---")
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, present.FormatTestCase(tc))
		}
	case "json":
		data, err := json.MarshalIndent(cases, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	default:
		return fmt.Errorf("unknown format %q (table, markdown, text, json)", format)
	}
	return nil
}
