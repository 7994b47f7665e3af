// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

//go:embed docs_reference.md
var docsReference string

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Show the pipeline file format reference",
	Args:  cobra.NoArgs,
	RunE:  runDocs,
}

func runDocs(cmd *cobra.Command, _ []string) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		// Fall back to the raw markdown when the terminal renderer cannot
		// be constructed.
		fmt.Fprintln(cmd.OutOrStdout(), docsReference)
		return nil
	}

	rendered, err := renderer.Render(docsReference)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), docsReference)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return nil
}
