// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"convey-cli/internal/config"

	"github.com/spf13/cobra"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the convey tool configuration",
		Long: `Manage the convey tool configuration (not pipeline files).

Configuration is loaded from defaults, then the config file, then
CONVEY_* environment variables (e.g. CONVEY_JOBS=4).`,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfgDir, err := config.ConfigDir()
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Fprintln(out, TitleStyle.Render("convey configuration"))
	fmt.Fprintf(out, "  config file:     %s\n", CmdStyle.Render(filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)))
	fmt.Fprintf(out, "  default_runtime: %s\n", cfg.DefaultRuntime)
	fmt.Fprintf(out, "  jobs:            %d\n", cfg.Jobs)
	scratch := cfg.ScratchDir
	if scratch == "" {
		scratch = SubtitleStyle.Render("(OS temp directory)")
	}
	fmt.Fprintf(out, "  scratch_dir:     %s\n", scratch)
	fmt.Fprintf(out, "  ui.color_scheme: %s\n", cfg.UI.ColorScheme)
	fmt.Fprintf(out, "  ui.verbose:      %v\n", cfg.UI.Verbose)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := config.WriteDefault()
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓ wrote ")+CmdStyle.Render(path))
	return nil
}
