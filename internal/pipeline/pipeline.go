// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"sort"
	"strings"
)

type (
	// Step is a single shell step. Steps may contain %var% placeholders
	// that are substituted from the current matrix entry before execution.
	Step string

	// Pipeline is the declarative model of one pipeline file. Field names
	// mirror the recognized top-level keys of the file format.
	Pipeline struct {
		// OS is the host label the pipeline was written for (informational;
		// jobs run wherever convey runs).
		OS string

		// CloneDir is the working directory for install/test steps.
		// Empty means the directory containing the pipeline file.
		CloneDir string

		// Environment holds global variables and the build matrix rows.
		Environment Environment

		// Matrix holds matrix-level options: allow-failure rules and
		// fast-finish behavior.
		Matrix MatrixOptions

		// Dependencies are native artifacts fetched and built before the
		// install steps, in declaration order.
		Dependencies []Dependency

		// Install is the ordered list of provisioning steps.
		Install []Step

		// Build gates the standalone build phase. A nil value means enabled;
		// pipelines that exercise compilation through their test step set
		// build: false.
		Build *bool

		// TestScript is the ordered list of test steps. The last step's exit
		// status becomes the job result.
		TestScript []Step

		// FilePath is where the pipeline was loaded from.
		FilePath string
	}

	// Environment groups the global variable block and the matrix rows.
	Environment struct {
		// Global variables apply to every job, below matrix entry vars.
		Global map[string]string

		// Matrix rows. Each row contributes one or more entries: dimensions
		// with multiple values are cartesian-expanded.
		Matrix []Row
	}

	// Row maps a dimension name to its declared values. A single-valued
	// dimension is a plain assignment; multi-valued dimensions expand.
	Row map[string][]string

	// MatrixOptions carries matrix-level behavior switches.
	MatrixOptions struct {
		// AllowFailures are predicate objects; a job whose entry matches any
		// rule may fail without failing the pipeline.
		AllowFailures []AllowFailureRule

		// FastFinish stops scheduling new blocking jobs after the first
		// blocking failure.
		FastFinish bool
	}

	// AllowFailureRule matches a matrix entry when every key/value pair
	// equals the entry's variables (subset match).
	AllowFailureRule map[string]string

	// Dependency describes a native artifact provisioned per job: fetched
	// fresh from a repository, built with its own build system, and staged
	// or installed at a fixed prefix for downstream steps.
	Dependency struct {
		// Name identifies the artifact in logs and phase names.
		Name string

		// Repo is the source repository URL (cloned fresh each job).
		Repo string

		// Ref is an optional branch, tag or commit to check out.
		Ref string

		// StagingDir is where sources land and build outputs are staged.
		// Empty means a per-job scratch subdirectory named after the artifact.
		StagingDir string

		// Prefix is an optional install prefix with bin/include/lib layout.
		Prefix string

		// Build are the build-system invocations, run inside StagingDir.
		Build []Step

		// Outputs are paths (relative to StagingDir unless absolute) that
		// must exist once the build completes. Later dependencies refuse to
		// build while any earlier dependency's outputs are missing.
		Outputs []string

		// Path lists directories to prepend to PATH once the artifact is
		// built, e.g. the prefix bin directory holding runtime DLLs.
		Path []string
	}

	// Entry is one expanded matrix entry: a concrete variable assignment
	// that becomes an independent job.
	Entry struct {
		// Vars holds the entry's variables (e.g. channel, target).
		Vars map[string]string

		// Keys preserves a deterministic ordering of Vars for display.
		Keys []string
	}
)

// BuildEnabled reports whether the standalone build phase runs.
func (p *Pipeline) BuildEnabled() bool {
	return p.Build == nil || *p.Build
}

// Matches reports whether the rule applies to the entry: every pair in the
// rule must equal the entry's variable of the same name.
func (r AllowFailureRule) Matches(e Entry) bool {
	if len(r) == 0 {
		return false
	}
	for k, v := range r {
		if e.Vars[k] != v {
			return false
		}
	}
	return true
}

// Allowed reports whether any rule matches the entry.
func (e Entry) Allowed(rules []AllowFailureRule) bool {
	for _, r := range rules {
		if r.Matches(e) {
			return true
		}
	}
	return false
}

// Get returns the entry's value for the dimension, or "".
func (e Entry) Get(dim string) string {
	return e.Vars[dim]
}

// Name returns a compact human-readable identifier for the entry.
// Entries with the canonical channel/target dimensions render as
// "channel/target"; anything else renders as space-joined key=value pairs.
func (e Entry) Name() string {
	ch, okC := e.Vars[DimChannel]
	tg, okT := e.Vars[DimTarget]
	if okC && okT && len(e.Vars) == 2 {
		return ch + "/" + tg
	}

	pairs := make([]string, 0, len(e.Keys))
	for _, k := range e.Keys {
		pairs = append(pairs, k+"="+e.Vars[k])
	}
	return strings.Join(pairs, " ")
}

// key returns a canonical identity string used for duplicate detection.
func (e Entry) key() string {
	keys := make([]string, 0, len(e.Vars))
	for k := range e.Vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+e.Vars[k])
	}
	return strings.Join(pairs, "\x00")
}
