package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitrun/packages/core/config"
	"github.com/abdul-hamid-achik/hitrun/packages/core/env"
	"github.com/abdul-hamid-achik/hitrun/packages/core/runner"
)

var validateCmd = &cobra.Command{
	Use:   "validate [patterns...]",
	Short: "Check .http documents without sending requests",
	Long: `Load .http documents the way run does, without executing them.

Front matter, imports and the needs graph are checked. Missing needs
targets and dependency cycles fail validation.

Examples:
  hitrun validate
  hitrun validate api/users.http
  hitrun validate "tests/**/*.http"`,
	ValidArgsFunction: completeHTTPFiles,
	RunE:              validateCommand,
}

// loadPlan resolves patterns to files and runs the load phase with the
// config file defaults.
func loadPlan(ctx context.Context, args []string) (*runner.Plan, error) {
	files, err := collectFiles(args)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .http files found")
	}

	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	vars, err := env.Load(cfg.EnvFiles)
	if err != nil {
		return nil, err
	}
	cfg.Vars = env.MergeVariables(cfg.Vars, vars)

	r, client, err := newRunner(cfg)
	if err != nil {
		return nil, err
	}
	defer client.CloseIdleConnections()

	return r.Load(ctx, files)
}

func validateCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	plan, err := loadPlan(cmd.Context(), args)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return &exitError{code: ExitNoBlocks}
	}

	invalid := 0
	for _, f := range plan.Files {
		fileErrors := 0
		for _, b := range f.Blocks {
			if b.MetaErr != nil {
				fmt.Fprintf(out, "  %s: %v\n", b.Location(), b.MetaErr)
				fileErrors++
			}
		}
		if fileErrors == 0 {
			fmt.Fprintf(out, "Valid: %s (%d blocks)\n", f.Name(), len(f.Blocks))
		} else {
			fmt.Fprintf(out, "Invalid: %s\n", f.Name())
			invalid += fileErrors
		}
	}

	for _, w := range plan.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", w)
	}

	if invalid > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "validation failed: %d invalid block(s)\n", invalid)
		return &exitError{code: ExitNoBlocks}
	}
	return nil
}
