// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"path/filepath"
	"testing"

	"convey-cli/internal/pipeline"
	"convey-cli/internal/toolchain"
)

func boolPtr(b bool) *bool { return &b }

// testPipeline mirrors the two-dependency shape this tool is built around:
// a threading shim staged at a fixed path, then a library whose build
// consumes the staged artifact.
func testPipeline() *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Dependencies: []pipeline.Dependency{
			{
				Name:    "pthreads",
				Repo:    "https://example.org/pthreads.git",
				Build:   []pipeline.Step{"nmake VC"},
				Outputs: []string{"pthreadVC2.dll"},
			},
			{
				Name:   "srt",
				Repo:   "https://example.org/srt.git",
				Prefix: "/opt/srt",
				Build:  []pipeline.Step{"cmake .", "cmake --build ."},
			},
		},
		Install:    []pipeline.Step{"echo provisioned"},
		TestScript: []pipeline.Step{"cargo test --all"},
	}
}

func msvcEntry() pipeline.Entry {
	return pipeline.Entry{
		Vars: map[string]string{"channel": "stable", "target": "x86_64-pc-windows-msvc"},
		Keys: []string{"channel", "target"},
	}
}

func TestPlanPhaseOrder(t *testing.T) {
	t.Parallel()

	p := testPipeline()
	phases, err := Plan(p, msvcEntry(), Options{WorkDir: "/src", ScratchDir: "/scratch"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	wantKinds := []Kind{
		KindFetch, KindBuild, // pthreads
		KindFetch, KindBuild, // srt
		KindInstall,
		KindToolchain,
		KindVersions,
		KindProjectBuild,
		KindTest,
	}
	if len(phases) != len(wantKinds) {
		t.Fatalf("Plan() = %d phases, want %d", len(phases), len(wantKinds))
	}
	for i, want := range wantKinds {
		if phases[i].Kind != want {
			t.Errorf("phase %d kind = %q, want %q", i, phases[i].Kind, want)
		}
	}

	// The test phase is always last.
	if last := phases[len(phases)-1]; last.Name != "test" {
		t.Errorf("last phase = %q, want test", last.Name)
	}
}

func TestPlanStagingRequirements(t *testing.T) {
	t.Parallel()

	p := testPipeline()
	phases, err := Plan(p, msvcEntry(), Options{WorkDir: "/src", ScratchDir: "/scratch"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	var pthreadsBuild, srtBuild, install *Phase
	for i := range phases {
		switch phases[i].Name {
		case "build pthreads":
			pthreadsBuild = &phases[i]
		case "build srt":
			srtBuild = &phases[i]
		case "install":
			install = &phases[i]
		}
	}
	if pthreadsBuild == nil || srtBuild == nil || install == nil {
		t.Fatalf("missing expected phases in %v", phaseNames(phases))
	}

	// The first dependency has nothing to wait for; the second must see the
	// first's staged outputs; the install steps require everything staged.
	if len(pthreadsBuild.Requires) != 0 {
		t.Errorf("pthreads build requires %v, want none", pthreadsBuild.Requires)
	}
	wantStaged := filepath.Join("/scratch", "pthreads", "pthreadVC2.dll")
	if len(srtBuild.Requires) != 1 || srtBuild.Requires[0] != wantStaged {
		t.Errorf("srt build requires %v, want [%s]", srtBuild.Requires, wantStaged)
	}
	if len(install.Requires) != 1 || install.Requires[0] != wantStaged {
		t.Errorf("install requires %v, want [%s]", install.Requires, wantStaged)
	}

	// A prefix without explicit path entries contributes its bin directory.
	if want := filepath.Join("/opt/srt", "bin"); len(srtBuild.PathDirs) != 1 || srtBuild.PathDirs[0] != want {
		t.Errorf("srt PathDirs = %v, want [%s]", srtBuild.PathDirs, want)
	}
}

func TestPlanBuildGate(t *testing.T) {
	t.Parallel()

	p := testPipeline()
	p.Build = boolPtr(false)

	phases, err := Plan(p, msvcEntry(), Options{ScratchDir: "/scratch"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	for _, phase := range phases {
		if phase.Kind == KindProjectBuild {
			t.Errorf("build: false still planned a %q phase", phase.Name)
		}
	}
}

func TestPlanNoToolchainWithoutDimensions(t *testing.T) {
	t.Parallel()

	p := testPipeline()
	entry := pipeline.Entry{Vars: map[string]string{}}

	phases, err := Plan(p, entry, Options{ScratchDir: "/scratch"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	for _, phase := range phases {
		if phase.Kind == KindToolchain || phase.Kind == KindVersions || phase.Kind == KindProjectBuild {
			t.Errorf("entry without channel/target planned a %q phase", phase.Name)
		}
	}
}

func TestPlanToolchainStep(t *testing.T) {
	t.Parallel()

	p := testPipeline()
	inst := &toolchain.Installer{
		Template: "install {spec}",
		Home:     "/home/ci",
	}

	phases, err := Plan(p, msvcEntry(), Options{ScratchDir: "/scratch", Installer: inst})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	var tc *Phase
	for i := range phases {
		if phases[i].Kind == KindToolchain {
			tc = &phases[i]
		}
	}
	if tc == nil {
		t.Fatal("no toolchain phase planned")
	}
	if want := pipeline.Step("install stable-x86_64-pc-windows-msvc"); tc.Steps[0] != want {
		t.Errorf("toolchain step = %q, want %q", tc.Steps[0], want)
	}
	if want := filepath.Join("/home/ci", ".cargo", "bin"); len(tc.PathDirs) != 1 || tc.PathDirs[0] != want {
		t.Errorf("toolchain PathDirs = %v, want [%s]", tc.PathDirs, want)
	}
}

func TestPlanRejectsBadSpec(t *testing.T) {
	t.Parallel()

	p := testPipeline()
	entry := pipeline.Entry{Vars: map[string]string{"channel": "experimental", "target": "x86_64-pc-windows-msvc"}}
	if _, err := Plan(p, entry, Options{ScratchDir: "/scratch"}); err == nil {
		t.Error("Plan() with unknown channel succeeded")
	}
}

func TestPlanFetchWithRef(t *testing.T) {
	t.Parallel()

	p := &pipeline.Pipeline{
		Dependencies: []pipeline.Dependency{
			{Name: "dep", Repo: "https://example.org/dep.git", Ref: "v1.2.3"},
		},
		TestScript: []pipeline.Step{"true"},
	}

	phases, err := Plan(p, pipeline.Entry{Vars: map[string]string{}}, Options{ScratchDir: "/scratch"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	fetch := phases[0]
	if fetch.Kind != KindFetch || len(fetch.Steps) != 2 {
		t.Fatalf("fetch phase = %+v, want clone + checkout", fetch)
	}
}

func phaseNames(phases []Phase) []string {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.Name
	}
	return names
}
