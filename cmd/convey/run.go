// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"convey-cli/internal/issue"
	"convey-cli/internal/pipeline"
	"convey-cli/internal/provision"
	"convey-cli/internal/report"
	"convey-cli/internal/runtime"
	"convey-cli/internal/sched"
	"convey-cli/internal/watch"

	"github.com/spf13/cobra"
)

var (
	runOnly       []string
	runJobs       int
	runRuntime    string
	runDryRun     bool
	runWatch      bool
	runWatchGlobs []string
	runEnvVars    []string
	runFailFast   bool

	runCmd = &cobra.Command{
		Use:   "run [pipeline-file]",
		Short: "Expand the matrix and run every job",
		Long: `Run the pipeline: expand the build matrix into concrete jobs and execute
each one through its install, build and test phases.

Without an argument the pipeline file is discovered in the current
directory (convey.yml, convey.yaml, .convey.yml, convey.toml).

Jobs matching an allow_failures rule may fail without failing the run;
the process exit code is the first blocking failure's exit code.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRun,
	}
)

func init() {
	runCmd.Flags().StringArrayVar(&runOnly, "only", nil,
		"run only entries matching key=value[,key=value...]; repeatable, repeats are OR-ed")
	runCmd.Flags().IntVar(&runJobs, "jobs", 0, "max concurrent jobs (default from config)")
	runCmd.Flags().StringVar(&runRuntime, "runtime", "", "step runner: native or virtual (default from config)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the planned steps without executing anything")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "re-run the pipeline when its file changes")
	runCmd.Flags().StringArrayVar(&runWatchGlobs, "watch-glob", nil,
		"additional doublestar globs (relative to the pipeline file) that trigger a re-run; repeatable")
	runCmd.Flags().StringArrayVar(&runEnvVars, "env-var", nil,
		"extra KEY=VALUE for every job, overriding pipeline variables; repeatable")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false,
		"skip not-yet-started blocking jobs after the first blocking failure")
}

func runRun(cmd *cobra.Command, args []string) error {
	path, err := resolvePipelinePath(args)
	if err != nil {
		renderIssue(cmd.ErrOrStderr(), issue.PipelineNotFoundId)
		return &ExitError{Code: 1, Err: err}
	}

	extraEnv, err := parseEnvVarFlags(runEnvVars)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	filters, err := parseOnlyFilters(runOnly)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	runner, err := resolveRunner()
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	doRun := func(ctx context.Context) error {
		return runOnce(ctx, cmd, path, runner, filters, extraEnv)
	}

	if runWatch {
		return runWithWatch(cmd, path, doRun)
	}
	return doRun(cmd.Context())
}

// runOnce loads, expands and executes the pipeline a single time.
func runOnce(ctx context.Context, cmd *cobra.Command, path string, runner runtime.Runner, filters []onlyFilter, extraEnv map[string]string) error {
	p, err := pipeline.Load(path)
	if err != nil {
		renderLoadFailure(cmd.ErrOrStderr(), err)
		return &ExitError{Code: 1, Err: fmt.Errorf("%s", formatErrorForDisplay(err, verbose))}
	}

	entries := filterEntries(p.Expand(), filters)
	if len(entries) == 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("no matrix entries match the --only filters")}
	}

	if runDryRun {
		printDryRun(cmd, p, entries, extraEnv)
		return nil
	}

	logger := report.NewLogger(cmd.ErrOrStderr(), verbose)

	jobs := runJobs
	if jobs <= 0 {
		jobs = cfg.Jobs
	}

	scheduler := &sched.Scheduler{
		Workers:    jobs,
		FastFinish: p.Matrix.FastFinish || runFailFast,
		Log:        logger,
		Run: sched.NewPipelineRunJob(sched.JobRunnerOptions{
			Pipeline:    p,
			Runner:      runner,
			ScratchRoot: cfg.ScratchDir,
			ExtraEnv:    extraEnv,
			Log:         logger,
			Stdout:      cmd.OutOrStdout(),
			Stderr:      cmd.ErrOrStderr(),
		}),
	}

	summary := scheduler.Execute(ctx, entries, p.Matrix.AllowFailures)
	report.Render(cmd.OutOrStdout(), summary)

	if summary.Failed() {
		renderFailureHelp(cmd.ErrOrStderr(), summary)
		return &ExitError{Code: summary.ExitCode()}
	}
	return nil
}

// runWithWatch runs the pipeline once, then blocks re-running it whenever
// the pipeline file changes, until interrupted.
func runWithWatch(cmd *cobra.Command, path string, doRun func(context.Context) error) error {
	ctx := cmd.Context()

	// First run happens immediately; its failure is reported but does not
	// end the watch session.
	if err := doRun(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("run failed: ")+err.Error())
	}

	fmt.Fprintln(cmd.ErrOrStderr(), SubtitleStyle.Render("watching "+path+" (ctrl-c to stop)"))

	w, err := watch.New(watch.Config{
		PipelineFile: path,
		Patterns:     runWatchGlobs,
		Stderr:       cmd.ErrOrStderr(),
		OnChange: func(ctx context.Context) error {
			fmt.Fprintln(cmd.ErrOrStderr(), SubtitleStyle.Render("pipeline file changed, re-running"))
			if err := doRun(ctx); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("run failed: ")+err.Error())
			}
			return nil
		},
	})
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	return w.Run(ctx)
}

// printDryRun renders each entry's planned steps without executing anything.
func printDryRun(cmd *cobra.Command, p *pipeline.Pipeline, entries []pipeline.Entry, extraEnv map[string]string) {
	out := cmd.OutOrStdout()
	workDir := p.CloneDir
	if workDir == "" && p.FilePath != "" {
		workDir = filepath.Dir(p.FilePath)
	}

	for _, entry := range entries {
		fmt.Fprintln(out, TitleStyle.Render(entry.Name()))

		scratch := filepath.Join(os.TempDir(), "convey-job-dry-run")
		phases, err := provision.Plan(p, entry, provision.Options{
			WorkDir:    workDir,
			ScratchDir: scratch,
		})
		if err != nil {
			fmt.Fprintln(out, ErrorStyle.Render("  plan error: ")+err.Error())
			continue
		}

		// Inherit the host environment so host-derived placeholders like
		// %TEMP% expand the same way they would on a real run.
		env := runtime.BuildEnv(true, p.Environment.Global, entry.Vars, extraEnv)
		for _, line := range provision.PlanSteps(phases, env) {
			fmt.Fprintln(out, "  "+CmdStyle.Render(line))
		}
		fmt.Fprintln(out)
	}
}

// onlyFilter is one --only value: a conjunction of key=value requirements.
type onlyFilter map[string]string

func (f onlyFilter) matches(e pipeline.Entry) bool {
	for k, v := range f {
		if e.Vars[k] != v {
			return false
		}
	}
	return true
}

// parseOnlyFilters parses --only values. Pairs within one flag value are
// AND-ed, repeated flags are OR-ed.
func parseOnlyFilters(values []string) ([]onlyFilter, error) {
	var filters []onlyFilter
	for _, value := range values {
		filter := make(onlyFilter)
		for _, pair := range strings.Split(value, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			k, v, ok := strings.Cut(pair, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid --only value %q (expected key=value[,key=value...])", value)
			}
			filter[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		if len(filter) == 0 {
			return nil, fmt.Errorf("invalid --only value %q (expected key=value[,key=value...])", value)
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

// filterEntries keeps entries matching any filter; no filters keeps all.
func filterEntries(entries []pipeline.Entry, filters []onlyFilter) []pipeline.Entry {
	if len(filters) == 0 {
		return entries
	}
	var kept []pipeline.Entry
	for _, e := range entries {
		for _, f := range filters {
			if f.matches(e) {
				kept = append(kept, e)
				break
			}
		}
	}
	return kept
}

// parseEnvVarFlags parses repeated --env-var KEY=VALUE flags.
func parseEnvVarFlags(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(values))
	for _, value := range values {
		k, v, ok := strings.Cut(value, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --env-var value %q (expected KEY=VALUE)", value)
		}
		env[k] = v
	}
	return env, nil
}

// resolveRunner picks the step runner from the --runtime flag or config and
// verifies it is usable on this host.
func resolveRunner() (runtime.Runner, error) {
	name := runRuntime
	if name == "" {
		name = cfg.DefaultRuntime
	}
	runner := runtime.ForName(name)
	if runner == nil {
		return nil, fmt.Errorf("unknown runtime %q (valid: %s, %s)", name, runtime.RunnerNative, runtime.RunnerVirtual)
	}
	if !runner.Available() {
		return nil, fmt.Errorf("runtime %q is not available on this host", name)
	}
	return runner, nil
}

// resolvePipelinePath returns the explicit argument or discovers a pipeline
// file in the current directory.
func resolvePipelinePath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return pipeline.Discover(cwd)
}
