// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"convey-cli/internal/pipeline"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [pipeline-file]",
	Short: "Check a pipeline file without running anything",
	Long: `Validate parses the pipeline file, checks it against the schema and runs
the semantic checks (duplicate matrix entries, unknown allow_failures
dimensions, malformed channels and targets, dependency declarations).

Nothing is fetched, built or executed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, err := resolvePipelinePath(args)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	p, err := pipeline.Load(path)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("✗ invalid: ")+formatErrorForDisplay(err, verbose))
		renderLoadFailure(cmd.ErrOrStderr(), err)
		return &ExitError{Code: 1}
	}

	entries := p.Expand()
	allowed := 0
	for _, e := range entries {
		if e.Allowed(p.Matrix.AllowFailures) {
			allowed++
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓ valid: ")+CmdStyle.Render(path))
	fmt.Fprintf(cmd.OutOrStdout(), "  %d matrix entries (%d may fail without failing the run), %d dependencies, %d install steps, %d test steps\n",
		len(entries), allowed, len(p.Dependencies), len(p.Install), len(p.TestScript))
	return nil
}
