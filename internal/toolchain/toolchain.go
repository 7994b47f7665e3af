// SPDX-License-Identifier: MPL-2.0

// Package toolchain models release channels and target triples, and
// produces the shell steps that install a matching toolchain for a
// matrix entry.
package toolchain

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Release channel names.
const (
	ChannelStable  = "stable"
	ChannelBeta    = "beta"
	ChannelNightly = "nightly"
)

type (
	// Channel is a toolchain release track: stable, beta, nightly, or a
	// pinned semantic version such as "1.70.0".
	Channel struct {
		raw     string
		version *semver.Version
	}

	// Target is a compilation target triple (architecture-vendor-OS-ABI,
	// the ABI component being optional in the general form).
	Target struct {
		Arch   string
		Vendor string
		OS     string
		ABI    string

		raw string
	}

	// Spec pairs a channel with a target. Its string form is the exact
	// toolchain identifier handed to the installer, so a spec always embeds
	// both the channel and the target triple.
	Spec struct {
		Channel Channel
		Target  Target
	}
)

// ParseChannel parses a channel name. Anything that is not one of the named
// tracks must be a valid semantic version (a pinned release).
func ParseChannel(s string) (Channel, error) {
	switch s {
	case ChannelStable, ChannelBeta, ChannelNightly:
		return Channel{raw: s}, nil
	case "":
		return Channel{}, fmt.Errorf("channel must not be empty")
	}

	v, err := semver.NewVersion(s)
	if err != nil {
		return Channel{}, fmt.Errorf("unknown channel %q: not a named track (stable, beta, nightly) and not a version: %w", s, err)
	}
	return Channel{raw: s, version: v}, nil
}

// String returns the channel as written in the pipeline file.
func (c Channel) String() string { return c.raw }

// IsNightly reports whether this is the nightly track.
func (c Channel) IsNightly() bool { return c.raw == ChannelNightly }

// IsPinned reports whether the channel pins an exact version.
func (c Channel) IsPinned() bool { return c.version != nil }

// Version returns the pinned version, or nil for named tracks.
func (c Channel) Version() *semver.Version { return c.version }

// ParseTarget parses a target triple. Triples have three or four
// dash-separated components: arch-vendor-os[-abi]. Examples:
// x86_64-pc-windows-msvc, i686-pc-windows-gnu, x86_64-unknown-linux-gnu.
func ParseTarget(s string) (Target, error) {
	parts := strings.Split(s, "-")
	switch len(parts) {
	case 3:
		if anyEmpty(parts) {
			return Target{}, fmt.Errorf("malformed target triple %q", s)
		}
		return Target{Arch: parts[0], Vendor: parts[1], OS: parts[2], raw: s}, nil
	case 4:
		if anyEmpty(parts) {
			return Target{}, fmt.Errorf("malformed target triple %q", s)
		}
		return Target{Arch: parts[0], Vendor: parts[1], OS: parts[2], ABI: parts[3], raw: s}, nil
	default:
		return Target{}, fmt.Errorf("malformed target triple %q: want arch-vendor-os[-abi]", s)
	}
}

func anyEmpty(parts []string) bool {
	for _, p := range parts {
		if p == "" {
			return true
		}
	}
	return false
}

// String returns the triple as written.
func (t Target) String() string { return t.raw }

// NewSpec builds a Spec from raw channel and target strings.
func NewSpec(channel, target string) (Spec, error) {
	c, err := ParseChannel(channel)
	if err != nil {
		return Spec{}, err
	}
	t, err := ParseTarget(target)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Channel: c, Target: t}, nil
}

// String returns the installer-facing toolchain identifier,
// e.g. "beta-i686-pc-windows-gnu".
func (s Spec) String() string {
	return s.Channel.String() + "-" + s.Target.String()
}
