// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"path/filepath"

	"convey-cli/internal/pipeline"
	"convey-cli/internal/toolchain"
)

// Options parameterizes phase planning for one job.
type Options struct {
	// WorkDir is where install and test steps run (the clone directory).
	WorkDir string

	// ScratchDir is the job's private scratch root; dependencies without an
	// explicit staging_dir land under it.
	ScratchDir string

	// Installer resolves toolchain install and version-report steps.
	// Nil falls back to a default Installer.
	Installer *toolchain.Installer
}

// Plan produces the ordered phase list for one matrix entry. The returned
// plan is pure data; nothing touches the filesystem until Sequencer.Run.
func Plan(p *pipeline.Pipeline, entry pipeline.Entry, opts Options) ([]Phase, error) {
	installer := opts.Installer
	if installer == nil {
		installer = &toolchain.Installer{}
	}

	var phases []Phase

	// Dependency phases, in declaration order. Each build requires the staged
	// outputs of every earlier dependency: downstream builds consume them, so
	// the ordering invariant is enforced as data on the phase.
	var staged []string
	for _, dep := range p.Dependencies {
		staging := dep.StagingDir
		if staging == "" {
			staging = filepath.Join(opts.ScratchDir, dep.Name)
		}

		fetch := []pipeline.Step{
			pipeline.Step(fmt.Sprintf("git clone --depth 1 %s %q", dep.Repo, staging)),
		}
		if dep.Ref != "" {
			fetch = []pipeline.Step{
				pipeline.Step(fmt.Sprintf("git clone %s %q", dep.Repo, staging)),
				pipeline.Step(fmt.Sprintf("git -C %q checkout %s", staging, dep.Ref)),
			}
		}
		phases = append(phases, Phase{
			Name:  "fetch " + dep.Name,
			Kind:  KindFetch,
			Steps: fetch,
		})

		pathDirs := dep.Path
		if len(pathDirs) == 0 && dep.Prefix != "" {
			pathDirs = []string{filepath.Join(dep.Prefix, "bin")}
		}
		phases = append(phases, Phase{
			Name:     "build " + dep.Name,
			Kind:     KindBuild,
			Steps:    dep.Build,
			Dir:      staging,
			Requires: staged,
			PathDirs: pathDirs,
		})

		for _, out := range dep.Outputs {
			if !filepath.IsAbs(out) {
				out = filepath.Join(staging, out)
			}
			staged = append(staged, out)
		}
	}

	if len(p.Install) > 0 {
		phases = append(phases, Phase{
			Name:     "install",
			Kind:     KindInstall,
			Steps:    p.Install,
			Dir:      opts.WorkDir,
			Requires: staged,
		})
	}

	// Toolchain install for entries that declare the canonical dimensions.
	ch, tg := entry.Get(pipeline.DimChannel), entry.Get(pipeline.DimTarget)
	hasToolchain := ch != "" && tg != ""
	if hasToolchain {
		spec, err := toolchain.NewSpec(ch, tg)
		if err != nil {
			return nil, err
		}
		phases = append(phases, Phase{
			Name:     "toolchain " + spec.String(),
			Kind:     KindToolchain,
			Steps:    []pipeline.Step{pipeline.Step(installer.InstallStep(spec))},
			Dir:      opts.WorkDir,
			PathDirs: []string{installer.BinDir()},
		})

		versions := make([]pipeline.Step, 0, 2)
		for _, s := range installer.VersionSteps() {
			versions = append(versions, pipeline.Step(s))
		}
		phases = append(phases, Phase{
			Name:     "versions",
			Kind:     KindVersions,
			Steps:    versions,
			Dir:      opts.WorkDir,
			NonFatal: true,
		})
	}

	// The standalone build phase only exists when the build gate is enabled;
	// pipelines with build: false exercise compilation through the test step.
	if p.BuildEnabled() && hasToolchain {
		phases = append(phases, Phase{
			Name:  "build",
			Kind:  KindProjectBuild,
			Steps: []pipeline.Step{"cargo build --all-targets"},
			Dir:   opts.WorkDir,
		})
	}

	phases = append(phases, Phase{
		Name:  "test",
		Kind:  KindTest,
		Steps: p.TestScript,
		Dir:   opts.WorkDir,
	})

	return phases, nil
}
