// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"

	"github.com/spf13/cast"
)

// decodePipeline converts the schema-validated raw document into the typed
// model. The schema guarantees structure; this layer only normalizes value
// shapes (scalar vs list dimensions, int/bool scalars to strings).
func decodePipeline(raw map[string]any) (*Pipeline, error) {
	p := &Pipeline{}
	var err error

	if v, ok := raw["os"]; ok {
		if p.OS, err = cast.ToStringE(v); err != nil {
			return nil, fmt.Errorf("os: %w", err)
		}
	}
	if v, ok := raw["clone_dir"]; ok {
		if p.CloneDir, err = cast.ToStringE(v); err != nil {
			return nil, fmt.Errorf("clone_dir: %w", err)
		}
	}
	if v, ok := raw["environment"]; ok {
		if p.Environment, err = decodeEnvironment(v); err != nil {
			return nil, err
		}
	}
	if v, ok := raw["matrix"]; ok {
		if p.Matrix, err = decodeMatrixOptions(v); err != nil {
			return nil, err
		}
	}
	if v, ok := raw["dependencies"]; ok {
		if p.Dependencies, err = decodeDependencies(v); err != nil {
			return nil, err
		}
	}
	if v, ok := raw["install"]; ok {
		if p.Install, err = decodeSteps(v, "install"); err != nil {
			return nil, err
		}
	}
	if v, ok := raw["build"]; ok {
		b, castErr := cast.ToBoolE(v)
		if castErr != nil {
			return nil, fmt.Errorf("build: %w", castErr)
		}
		p.Build = &b
	}
	if v, ok := raw["test_script"]; ok {
		if p.TestScript, err = decodeSteps(v, "test_script"); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func decodeEnvironment(v any) (Environment, error) {
	env := Environment{}

	m, err := cast.ToStringMapE(v)
	if err != nil {
		return env, fmt.Errorf("environment: %w", err)
	}

	if g, ok := m["global"]; ok {
		env.Global, err = decodeStringMap(g, "environment.global")
		if err != nil {
			return env, err
		}
	}

	if mx, ok := m["matrix"]; ok {
		rows, err := cast.ToSliceE(mx)
		if err != nil {
			return env, fmt.Errorf("environment.matrix: %w", err)
		}
		for i, rawRow := range rows {
			row, err := decodeRow(rawRow)
			if err != nil {
				return env, fmt.Errorf("environment.matrix[%d]: %w", i, err)
			}
			env.Matrix = append(env.Matrix, row)
		}
	}

	return env, nil
}

// decodeRow normalizes one matrix row: scalar values become single-element
// lists, list values are cartesian dimensions.
func decodeRow(v any) (Row, error) {
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, err
	}

	row := make(Row, len(m))
	for k, rawVal := range m {
		switch rawVal.(type) {
		case []any, []string:
			vals, err := cast.ToStringSliceE(rawVal)
			if err != nil {
				return nil, fmt.Errorf("dimension %q: %w", k, err)
			}
			if len(vals) == 0 {
				return nil, fmt.Errorf("dimension %q declares no values", k)
			}
			row[k] = vals
		default:
			s, err := cast.ToStringE(rawVal)
			if err != nil {
				return nil, fmt.Errorf("dimension %q: %w", k, err)
			}
			row[k] = []string{s}
		}
	}
	return row, nil
}

func decodeMatrixOptions(v any) (MatrixOptions, error) {
	opts := MatrixOptions{}

	m, err := cast.ToStringMapE(v)
	if err != nil {
		return opts, fmt.Errorf("matrix: %w", err)
	}

	if af, ok := m["allow_failures"]; ok {
		rules, err := cast.ToSliceE(af)
		if err != nil {
			return opts, fmt.Errorf("matrix.allow_failures: %w", err)
		}
		for i, rawRule := range rules {
			rule, err := decodeStringMap(rawRule, fmt.Sprintf("matrix.allow_failures[%d]", i))
			if err != nil {
				return opts, err
			}
			opts.AllowFailures = append(opts.AllowFailures, AllowFailureRule(rule))
		}
	}

	if ff, ok := m["fast_finish"]; ok {
		if opts.FastFinish, err = cast.ToBoolE(ff); err != nil {
			return opts, fmt.Errorf("matrix.fast_finish: %w", err)
		}
	}

	return opts, nil
}

func decodeDependencies(v any) ([]Dependency, error) {
	list, err := cast.ToSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}

	deps := make([]Dependency, 0, len(list))
	for i, rawDep := range list {
		m, err := cast.ToStringMapE(rawDep)
		if err != nil {
			return nil, fmt.Errorf("dependencies[%d]: %w", i, err)
		}

		d := Dependency{}
		d.Name = cast.ToString(m["name"])
		d.Repo = cast.ToString(m["repo"])
		d.Ref = cast.ToString(m["ref"])
		d.StagingDir = cast.ToString(m["staging_dir"])
		d.Prefix = cast.ToString(m["prefix"])
		if b, ok := m["build"]; ok {
			if d.Build, err = decodeSteps(b, fmt.Sprintf("dependencies[%d].build", i)); err != nil {
				return nil, err
			}
		}
		if o, ok := m["outputs"]; ok {
			if d.Outputs, err = cast.ToStringSliceE(o); err != nil {
				return nil, fmt.Errorf("dependencies[%d].outputs: %w", i, err)
			}
		}
		if pth, ok := m["path"]; ok {
			if d.Path, err = cast.ToStringSliceE(pth); err != nil {
				return nil, fmt.Errorf("dependencies[%d].path: %w", i, err)
			}
		}
		deps = append(deps, d)
	}
	return deps, nil
}

func decodeSteps(v any, field string) ([]Step, error) {
	strs, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	steps := make([]Step, len(strs))
	for i, s := range strs {
		steps[i] = Step(s)
	}
	return steps, nil
}

func decodeStringMap(v any, field string) (map[string]string, error) {
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		s, err := cast.ToStringE(val)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", field, k, err)
		}
		out[k] = s
	}
	return out, nil
}
