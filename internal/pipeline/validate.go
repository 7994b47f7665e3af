// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"

	"convey-cli/internal/toolchain"
)

// Validate runs semantic validation over the pipeline and collects every
// problem found. Structural validation has already happened against the CUE
// schema by the time this runs.
func (p *Pipeline) Validate() ValidationErrors {
	var errs ValidationErrors

	entries := p.Expand()
	hasMatrix := len(p.Environment.Matrix) > 0

	seen := make(map[string]int)
	for _, e := range entries {
		seen[e.key()]++
	}
	for _, e := range entries {
		if seen[e.key()] > 1 {
			errs = append(errs, fmt.Errorf("duplicate matrix entry %s", e.Name()))
			seen[e.key()] = 1 // report once
		}
	}

	// Every entry must resolve to an installable toolchain: a matrix that
	// declares channel/target dimensions must declare both, with valid values.
	if hasMatrix {
		for _, e := range entries {
			ch, tg := e.Get(DimChannel), e.Get(DimTarget)
			switch {
			case ch == "" && tg == "":
				// Entry carries only custom dimensions; no toolchain to install.
			case ch == "":
				errs = append(errs, fmt.Errorf("entry %s declares a target but no channel", e.Name()))
			case tg == "":
				errs = append(errs, fmt.Errorf("entry %s declares a channel but no target", e.Name()))
			default:
				if _, err := toolchain.NewSpec(ch, tg); err != nil {
					errs = append(errs, fmt.Errorf("entry %s: %w", e.Name(), err))
				}
			}
		}
	}

	// Allow-failure rules may only reference declared dimensions.
	declared := make(map[string]bool)
	for _, row := range p.Environment.Matrix {
		for k := range row {
			declared[k] = true
		}
	}
	for i, rule := range p.Matrix.AllowFailures {
		if len(rule) == 0 {
			errs = append(errs, fmt.Errorf("matrix.allow_failures[%d] is empty and would match nothing", i))
			continue
		}
		for k := range rule {
			if !declared[k] {
				errs = append(errs, fmt.Errorf("matrix.allow_failures[%d] references undeclared dimension %q", i, k))
			}
		}
	}

	// Dependencies need a name and a repository to fetch from.
	depNames := make(map[string]bool)
	for i, d := range p.Dependencies {
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("dependencies[%d] has no name", i))
			continue
		}
		if depNames[d.Name] {
			errs = append(errs, fmt.Errorf("duplicate dependency %q", d.Name))
		}
		depNames[d.Name] = true
		if d.Repo == "" {
			errs = append(errs, fmt.Errorf("dependency %q has no repo", d.Name))
		}
	}

	if len(p.TestScript) == 0 {
		errs = append(errs, fmt.Errorf("pipeline defines no test_script steps; jobs would have no result"))
	}

	return errs
}
