// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"convey-cli/internal/pipeline"
)

// Kind classifies a phase for logging and failure reporting.
type Kind string

const (
	// KindFetch acquires a dependency's source repository.
	KindFetch Kind = "fetch"
	// KindBuild invokes a dependency's build system.
	KindBuild Kind = "build"
	// KindInstall runs the pipeline's raw install steps.
	KindInstall Kind = "install"
	// KindToolchain installs the toolchain for the entry's channel/target.
	KindToolchain Kind = "toolchain"
	// KindVersions reports toolchain versions; failures never fail the job.
	KindVersions Kind = "versions"
	// KindProjectBuild builds the project itself (gated by the build key).
	KindProjectBuild Kind = "build-project"
	// KindTest runs the test script; its exit status is the job result.
	KindTest Kind = "test"
)

// Phase is one sequential unit of a job. Phases run in order; the first
// fatal failure aborts the job.
type Phase struct {
	// Name identifies the phase in logs and failure reports,
	// e.g. "fetch pthreads" or "test".
	Name string

	// Kind classifies the phase.
	Kind Kind

	// Steps are the shell steps, run in order inside Dir.
	Steps []pipeline.Step

	// Dir is the working directory for the phase's steps.
	Dir string

	// NonFatal phases log failures and keep going (the version report).
	NonFatal bool

	// Requires are paths that must exist before the phase may run.
	// A missing path fails the job with ErrStagingIncomplete.
	Requires []string

	// PathDirs are prepended to the job's PATH once the phase succeeds.
	PathDirs []string
}
