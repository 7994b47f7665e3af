// SPDX-License-Identifier: MPL-2.0

// Package report renders matrix run results for the terminal.
package report

import (
	"fmt"
	"io"
	"time"

	"convey-cli/internal/sched"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Color palette - shared hex colors matching the rest of the CLI output.
const (
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	passedStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	failedStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	allowedStyle = lipgloss.NewStyle().Foreground(colorWarning)
	skippedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

// NewLogger builds the runner logger: leveled, timestamped output for job
// and step progress. Verbose lowers the level to Debug.
func NewLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// statusStyle maps a job status to its display style.
func statusStyle(s sched.Status) lipgloss.Style {
	switch s {
	case sched.StatusPassed:
		return passedStyle
	case sched.StatusFailed:
		return failedStyle
	case sched.StatusAllowedFailure:
		return allowedStyle
	case sched.StatusSkipped:
		return skippedStyle
	default:
		return mutedStyle
	}
}

// statusMark is the single-character job marker.
func statusMark(s sched.Status) string {
	switch s {
	case sched.StatusPassed:
		return "✓"
	case sched.StatusFailed:
		return "✗"
	case sched.StatusAllowedFailure:
		return "!"
	case sched.StatusSkipped:
		return "-"
	default:
		return "?"
	}
}

// Render writes the per-job result lines and the aggregate verdict.
func Render(w io.Writer, summary *sched.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Matrix results"))

	for _, job := range summary.Jobs {
		style := statusStyle(job.Status)
		line := fmt.Sprintf("  %s %-45s %-16s", statusMark(job.Status), job.Entry.Name(), job.Status)
		if job.Status != sched.StatusSkipped && job.Status != sched.StatusPending {
			line += mutedStyle.Render(fmt.Sprintf(" %s", job.Duration.Round(time.Millisecond)))
		}
		if job.FailedPhase != "" {
			line += mutedStyle.Render(fmt.Sprintf("  (failed in %s, exit %s)", job.FailedPhase, job.ExitCode))
		}
		fmt.Fprintln(w, style.Render(line))
	}

	fmt.Fprintln(w)
	counts := summary.Counts()
	verdict := passedStyle.Render("PASSED")
	if summary.Failed() {
		verdict = failedStyle.Render("FAILED")
	}
	fmt.Fprintf(w, "%s  %d passed, %d failed, %d allowed failures, %d skipped in %s\n",
		verdict,
		counts[sched.StatusPassed],
		counts[sched.StatusFailed],
		counts[sched.StatusAllowedFailure],
		counts[sched.StatusSkipped],
		summary.Duration.Round(time.Millisecond),
	)
}
