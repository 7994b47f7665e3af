// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"convey-cli/internal/issue"
	"convey-cli/internal/pipeline"
	"convey-cli/internal/provision"
	"convey-cli/internal/runtime"
	"convey-cli/internal/sched"
)

// issueForLoadError maps a pipeline load failure to its catalog entry:
// semantic validation problems get the matrix guidance, everything else the
// parse guidance.
func issueForLoadError(err error) issue.Id {
	var verrs pipeline.ValidationErrors
	if errors.As(err, &verrs) {
		return issue.MatrixInvalidId
	}
	return issue.PipelineParseErrorId
}

// issueForFailedJob maps a blocking job failure to its catalog entry.
// Infrastructure causes (staging violation, missing shell) take precedence
// over the phase classification.
func issueForFailedJob(job *sched.Job) (issue.Id, bool) {
	switch {
	case errors.Is(job.Err, provision.ErrStagingIncomplete):
		return issue.StagingIncompleteId, true
	case errors.Is(job.Err, runtime.ErrNoShell):
		return issue.ShellNotFoundId, true
	}

	switch job.FailedKind {
	case provision.KindFetch:
		return issue.DependencyFetchFailedId, true
	case provision.KindBuild:
		return issue.DependencyBuildFailedId, true
	case provision.KindToolchain:
		return issue.ToolchainInstallFailedId, true
	case provision.KindTest, provision.KindProjectBuild:
		return issue.TestScriptFailedId, true
	}
	return 0, false
}

// renderIssue writes the catalog entry for id, falling back to the raw
// markdown when terminal rendering fails.
func renderIssue(w io.Writer, id issue.Id) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	out, err := entry.Render(markdownStyle())
	if err != nil {
		fmt.Fprintln(w, string(entry.MarkdownMsg()))
		return
	}
	fmt.Fprint(w, out)
}

// renderLoadFailure prints the troubleshooting entry for a failed pipeline load.
func renderLoadFailure(w io.Writer, err error) {
	renderIssue(w, issueForLoadError(err))
}

// renderFailureHelp prints the troubleshooting entry for the first blocking
// job failure of a run, if one has a catalog entry.
func renderFailureHelp(w io.Writer, summary *sched.Summary) {
	for _, job := range summary.Jobs {
		if job.Status != sched.StatusFailed {
			continue
		}
		if id, ok := issueForFailedJob(job); ok {
			renderIssue(w, id)
		}
		return
	}
}

// markdownStyle maps the configured color scheme to a glamour style.
func markdownStyle() string {
	if cfg.UI.ColorScheme == "never" {
		return "notty"
	}
	return "auto"
}
