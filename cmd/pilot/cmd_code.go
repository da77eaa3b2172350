package main

import (
	"context"
	"fmt"
	"sdlcpilot/internal/api"
	"sdlcpilot/internal/flow"
	"sdlcpilot/internal/present"
	"sdlcpilot/internal/testcase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	codeModule     string
	codeOutputPath string
	codeFixtures   bool
	codeConftest   bool
	codeOutDir     string
	codeNoWrite    bool
	codePrint      bool
	codeContext    string
	codeFile       string
)

// codeCmd groups pytest generation commands
var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Generate pytest modules",
}

var codeFromCasesCmd = &cobra.Command{
	Use:   "from-cases",
	Short: "Generate pytest from the test cases handed over in this session",
	Long: `Reads the test cases produced by the last "pilot cases generate" in this
session and asks the service for a pytest module. The module is written to
--out-dir as {module}.py.`,
	RunE: runCodeFromCases,
}

var codeFromRequirementCmd = &cobra.Command{
	Use:   "from-requirement [requirement...]",
	Short: "Generate pytest directly from a requirement",
	RunE:  runCodeFromRequirement,
}

func init() {
	for _, c := range []*cobra.Command{codeFromCasesCmd, codeFromRequirementCmd} {
		c.Flags().StringVarP(&codeModule, "module", "m", "", "Module name (default from config)")
		c.Flags().StringVar(&codeOutputPath, "output-path", "", "Ask the service to save the module under this directory")
		c.Flags().StringVarP(&codeOutDir, "out-dir", "o", "", "Directory the module is downloaded to (default from config)")
		c.Flags().BoolVar(&codeNoWrite, "no-write", false, "Do not write the module locally")
		c.Flags().BoolVar(&codePrint, "print", false, "Print the generated code")
	}
	codeFromCasesCmd.Flags().BoolVar(&codeFixtures, "fixtures", true, "Include pytest fixtures")
	codeFromCasesCmd.Flags().BoolVar(&codeConftest, "conftest", false, "Also generate conftest.py")
	codeFromRequirementCmd.Flags().StringVar(&codeContext, "context", "", "Additional context about the system under test")
	codeFromRequirementCmd.Flags().StringVarP(&codeFile, "file", "f", "", "Read the requirement from a file")

	codeCmd.AddCommand(codeFromCasesCmd)
	codeCmd.AddCommand(codeFromRequirementCmd)
}

func codeOptions(cmd *cobra.Command) []api.CodeOption {
	module := codeModule
	if module == "" {
		module = cfg.Output.ModuleName
	}
	outputPath := codeOutputPath
	if outputPath == "" {
		outputPath = cfg.Output.ServerPath
	}

	var opts []api.CodeOption
	if module != "" {
		opts = append(opts, api.WithModuleName(module))
	}
	if outputPath != "" {
		opts = append(opts, api.WithOutputPath(outputPath))
	}

	fixtures := cfg.Output.IncludeFixtures
	if cmd.Flags().Changed("fixtures") {
		fixtures = codeFixtures
	}
	conftest := cfg.Output.IncludeConftest
	if cmd.Flags().Changed("conftest") {
		conftest = codeConftest
	}
	return append(opts, api.WithFixtures(fixtures), api.WithConftest(conftest))
}

func runCodeFromCases(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	sess, store, err := openSession()
	if err != nil {
		return err
	}
	defer store.Close()

	// Absent hand-off degrades to an empty batch, which the client rejects
	// with its usual message.
	cases, _ := sess.Consume(ctx)
	opts := codeOptions(cmd)
	client := newClient()

	return generateCode(cmd, "from-cases",
		func() error { return api.ValidateCases(cases) },
		func(ctx context.Context) (*testcase.CodeResponse, error) {
			return client.GeneratePyTestFromCases(ctx, cases, opts...)
		},
	)
}

func runCodeFromRequirement(cmd *cobra.Command, args []string) error {
	requirement, err := readRequirement(args, codeFile)
	if err != nil {
		return err
	}
	opts := codeOptions(cmd)
	if codeContext != "" {
		opts = append(opts, api.WithRequirementContext(codeContext))
	}
	client := newClient()

	return generateCode(cmd, "from-requirement",
		func() error { return api.ValidateRequirement(requirement) },
		func(ctx context.Context) (*testcase.CodeResponse, error) {
			return client.GeneratePyTestFromRequirement(ctx, requirement, opts...)
		},
	)
}

func generateCode(cmd *cobra.Command, name string, validate func() error, run func(context.Context) (*testcase.CodeResponse, error)) error {
	ctx := commandContext(cmd)
	f := flow.New(flow.WithName[*testcase.CodeResponse](name))
	f.Submit(ctx, validate, run)
	snap, err := f.Wait(ctx)
	if err != nil {
		return err
	}
	if snap.State == flow.Failed {
		return snap.Cause
	}

	artifact := present.FromCodeResponse(snap.Value, cfg.Output.Extension)
	logger.Info("Generated pytest module",
		zap.String("file", artifact.FileName),
		zap.Int("tests", snap.Value.TestCount))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, artifact.Summary)
	if artifact.SavedNotice != "" {
		fmt.Fprintln(out, artifact.SavedNotice)
	}
	if !codeNoWrite {
		dir := codeOutDir
		if dir == "" {
			dir = cfg.Output.Dir
		}
		path, err := artifact.WriteFile(dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	if codePrint {
		fmt.Fprintln(out)
		fmt.Fprint(out, artifact.Clipboard)
		if artifact.Conftest != "" {
			fmt.Fprintln(out, "\n# --- conftest.py ---")
			fmt.Fprint(out, artifact.Conftest)
		}
	}
	return nil
}
