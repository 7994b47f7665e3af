// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	PipelineNotFoundId Id = iota + 1
	PipelineParseErrorId
	MatrixInvalidId
	ToolchainInstallFailedId
	DependencyFetchFailedId
	DependencyBuildFailedId
	StagingIncompleteId
	TestScriptFailedId
	ShellNotFoundId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	pipelineNotFoundIssue = &Issue{
		id: PipelineNotFoundId,
		mdMsg: `
# No pipeline file found!

We searched for a pipeline file but couldn't find one in the expected locations.

## Search order:
1. convey.yml
2. convey.yaml
3. .convey.yml
4. convey.toml

## Things you can try:
- Create a pipeline file in your current directory
- Or pass a path explicitly:
~~~
$ convey run ./ci/pipeline.yml
~~~

## Minimal pipeline:
~~~yaml
environment:
  matrix:
    - channel: stable
      target: x86_64-pc-windows-msvc

test_script:
  - cargo test
~~~`,
	}

	pipelineParseErrorIssue = &Issue{
		id: PipelineParseErrorId,
		mdMsg: `
# Failed to parse the pipeline file!

Your pipeline file contains syntax errors or invalid configuration.

## Common issues:
- Invalid YAML/TOML syntax (indentation, missing quotes)
- Unknown top-level keys (recognized: os, environment, matrix,
  dependencies, install, build, test_script, clone_dir)
- Wrong value shapes (e.g. a string where a list is expected)

## Things you can try:
- Check the error message above for the exact path
- Review the format reference:
~~~
$ convey docs
~~~`,
	}

	matrixInvalidIssue = &Issue{
		id: MatrixInvalidId,
		mdMsg: `
# Invalid build matrix!

One or more matrix entries cannot be turned into a runnable job.

## Common causes:
- An entry declares a channel but no target (or vice versa)
- An unknown channel (valid: stable, beta, nightly, or a pinned version like 1.70.0)
- A malformed target triple (expected arch-vendor-os[-abi], e.g. i686-pc-windows-gnu)
- An allow_failures rule referencing a dimension no entry declares

## Things you can try:
- List the expanded matrix to see what convey computed:
~~~
$ convey matrix
~~~`,
	}

	toolchainInstallFailedIssue = &Issue{
		id: ToolchainInstallFailedId,
		mdMsg: `
# Toolchain install failed!

Installing the toolchain for this matrix entry failed. This aborts the job;
there is no retry.

## Common causes:
- The channel/target combination has no published toolchain
- Network failure while downloading the installer
- The installer is not on PATH

## Things you can try:
- Install the toolchain manually and re-run
- Verify the combination exists:
~~~
$ rustup toolchain install beta-i686-pc-windows-gnu
~~~`,
	}

	dependencyFetchFailedIssue = &Issue{
		id: DependencyFetchFailedId,
		mdMsg: `
# Dependency fetch failed!

Cloning a dependency's source repository failed. Dependencies are fetched
fresh for every job, so a network or repository outage fails the job
immediately — no retry, no cache.

## Things you can try:
- Check network connectivity and the repository URL in your pipeline file
- Verify git is installed and on PATH
- Re-run once the repository is reachable`,
	}

	dependencyBuildFailedIssue = &Issue{
		id: DependencyBuildFailedId,
		mdMsg: `
# Dependency build failed!

A dependency's build system invocation exited non-zero. The job aborts at
the failing step.

## Things you can try:
- Run the build steps from the pipeline file manually inside the staging directory
- Check that the build toolchain (cmake, nmake, msbuild, make) is installed
- Pin a known-good ref for the dependency:
~~~yaml
dependencies:
  - name: srt
    repo: https://github.com/Haivision/srt.git
    ref: v1.5.3
~~~`,
	}

	stagingIncompleteIssue = &Issue{
		id: StagingIncompleteId,
		mdMsg: `
# Staged outputs missing!

A dependency's build was about to start, but an earlier dependency's staged
outputs are not at their fixed staging path. Later builds consume those
outputs, so this ordering violation fails the job before anything half-built
gets used.

## Things you can try:
- Check the earlier dependency's 'outputs' list against what its build actually produces
- Check 'staging_dir' matches the paths the later build expects`,
	}

	testScriptFailedIssue = &Issue{
		id: TestScriptFailedId,
		mdMsg: `
# Test script failed!

The test step exited non-zero, which becomes the job's result. Jobs matching
an allow_failures rule are recorded but don't fail the pipeline; every other
job does.

## Things you can try:
- Re-run just this entry:
~~~
$ convey run --only channel=beta,target=i686-pc-windows-gnu
~~~
- Run with verbose output for per-step logs:
~~~
$ convey --verbose run
~~~`,
	}

	shellNotFoundIssue = &Issue{
		id: ShellNotFoundId,
		mdMsg: `
# Shell not found!

Could not find a suitable shell for the 'native' runner.

## Shells we look for:
- Linux/macOS: $SHELL, bash, sh
- Windows: pwsh, powershell, cmd

## Things you can try:
- Install bash or another POSIX shell
- Set the SHELL environment variable
- Use the built-in shell instead:
~~~
$ convey run --runtime virtual
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the convey configuration file.

## Configuration file locations:
- Linux: ~/.config/convey/config.yaml
- macOS: ~/Library/Application Support/convey/config.yaml
- Windows: %APPDATA%\convey\config.yaml

## Things you can try:
- Create a default configuration:
~~~
$ convey config init
~~~
- Remove the config file to use defaults`,
	}

	issues = map[Id]*Issue{
		pipelineNotFoundIssue.Id():       pipelineNotFoundIssue,
		pipelineParseErrorIssue.Id():     pipelineParseErrorIssue,
		matrixInvalidIssue.Id():          matrixInvalidIssue,
		toolchainInstallFailedIssue.Id(): toolchainInstallFailedIssue,
		dependencyFetchFailedIssue.Id():  dependencyFetchFailedIssue,
		dependencyBuildFailedIssue.Id():  dependencyBuildFailedIssue,
		stagingIncompleteIssue.Id():      stagingIncompleteIssue,
		testScriptFailedIssue.Id():       testScriptFailedIssue,
		shellNotFoundIssue.Id():          shellNotFoundIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
