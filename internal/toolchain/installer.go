// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Default install command templates. {channel}, {target} and {spec} are
// replaced before the step runs. The Windows form downloads rustup-init and
// selects the host triple explicitly; the POSIX form pipes the installer
// script with the full spec as the default toolchain.
const (
	defaultWindowsTemplate = "curl -sSf -o rustup-init.exe https://win.rustup.rs && " +
		"rustup-init.exe -y --default-toolchain {channel} --default-host {target}"
	defaultPosixTemplate = "curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | " +
		"sh -s -- -y --default-toolchain {spec}"
)

// Installer produces the provisioning steps for a toolchain Spec.
type Installer struct {
	// Template overrides the platform default install command.
	Template string

	// Home overrides the home directory used to locate the toolchain
	// bin directory (tests point this at a temp dir).
	Home string
}

// InstallStep returns the shell step that installs the toolchain for spec.
// The returned command always embeds both the channel and the exact target
// triple so the job gets the declared combination, never a host default.
func (i *Installer) InstallStep(spec Spec) string {
	tmpl := i.Template
	if tmpl == "" {
		if runtime.GOOS == "windows" {
			tmpl = defaultWindowsTemplate
		} else {
			tmpl = defaultPosixTemplate
		}
	}

	r := strings.NewReplacer(
		"{channel}", spec.Channel.String(),
		"{target}", spec.Target.String(),
		"{spec}", spec.String(),
	)
	return r.Replace(tmpl)
}

// BinDir returns the directory holding the installed toolchain binaries,
// which jobs prepend to PATH after the install phase.
func (i *Installer) BinDir() string {
	home := i.Home
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}
	return filepath.Join(home, ".cargo", "bin")
}

// VersionSteps returns the diagnostic version-report steps. These run after
// install and are non-fatal: an older toolchain rejecting a verbose flag
// must not fail the job.
func (i *Installer) VersionSteps() []string {
	return []string{"rustc -vV", "cargo -V"}
}
