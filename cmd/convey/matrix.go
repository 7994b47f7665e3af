// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"convey-cli/internal/pipeline"

	"github.com/spf13/cobra"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix [pipeline-file]",
	Short: "Show the expanded job matrix",
	Long: `Matrix expands the pipeline's build matrix and prints the resulting jobs
in execution order, marking entries that match an allow_failures rule.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMatrix,
}

func runMatrix(cmd *cobra.Command, args []string) error {
	path, err := resolvePipelinePath(args)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	p, err := pipeline.Load(path)
	if err != nil {
		renderLoadFailure(cmd.ErrOrStderr(), err)
		return &ExitError{Code: 1, Err: fmt.Errorf("%s", formatErrorForDisplay(err, verbose))}
	}

	out := cmd.OutOrStdout()
	entries := p.Expand()

	fmt.Fprintln(out, TitleStyle.Render("Job matrix")+SubtitleStyle.Render(fmt.Sprintf(" (%d entries)", len(entries))))
	for i, e := range entries {
		line := fmt.Sprintf("  %2d. %s", i+1, e.Name())
		if e.Allowed(p.Matrix.AllowFailures) {
			fmt.Fprintln(out, WarningStyle.Render(line+"  (failure allowed)"))
		} else {
			fmt.Fprintln(out, line)
		}
	}

	if len(p.Matrix.AllowFailures) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, SubtitleStyle.Render("allow_failures rules:"))
		for _, rule := range p.Matrix.AllowFailures {
			fmt.Fprintf(out, "  %s\n", formatRule(rule))
		}
	}
	return nil
}

// formatRule renders an allow-failure rule with canonical dimensions first.
func formatRule(rule pipeline.AllowFailureRule) string {
	var parts []string
	if v, ok := rule[pipeline.DimChannel]; ok {
		parts = append(parts, pipeline.DimChannel+"="+v)
	}
	if v, ok := rule[pipeline.DimTarget]; ok {
		parts = append(parts, pipeline.DimTarget+"="+v)
	}
	var rest []string
	for k := range rule {
		if k == pipeline.DimChannel || k == pipeline.DimTarget {
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		parts = append(parts, k+"="+rule[k])
	}
	return strings.Join(parts, " ")
}
