// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"maps"
	"os"
	"sort"
	"strings"
)

// BuildEnv constructs a step environment with explicit precedence: the host
// environment first (when inheritHost is set), then each layer in argument
// order, later layers overriding earlier ones. Typical layering for a
// pipeline job is host -> environment.global -> matrix entry vars -> flag
// overrides.
func BuildEnv(inheritHost bool, layers ...map[string]string) map[string]string {
	env := make(map[string]string)

	if inheritHost {
		for _, kv := range os.Environ() {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			env[k] = v
		}
	}

	for _, layer := range layers {
		maps.Copy(env, layer)
	}

	return env
}

// EnvToSlice converts an environment map to KEY=VALUE form, sorted by key
// for deterministic process environments.
func EnvToSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Substitute replaces %name% placeholders in s with values from vars.
// Placeholders without a matching variable are left intact, matching how
// cmd.exe treats undefined %...% references. A literal %% collapses to %.
func Substitute(s string, vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(s))

	for {
		start := strings.IndexByte(s, '%')
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:start])
		rest := s[start+1:]

		end := strings.IndexByte(rest, '%')
		if end < 0 {
			b.WriteString(s[start:])
			return b.String()
		}
		if end == 0 {
			b.WriteByte('%')
			s = rest[1:]
			continue
		}

		name := rest[:end]
		if v, ok := vars[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteByte('%')
			b.WriteString(name)
			b.WriteByte('%')
		}
		s = rest[end+1:]
	}
}

// PrependPath prepends dirs (in order) to the environment's PATH entry,
// creating it when absent. On Windows the variable may be spelled "Path";
// the existing spelling is preserved.
func PrependPath(env map[string]string, dirs ...string) {
	if len(dirs) == 0 {
		return
	}

	key := "PATH"
	for k := range env {
		if strings.EqualFold(k, "PATH") {
			key = k
			break
		}
	}

	parts := make([]string, 0, len(dirs)+1)
	parts = append(parts, dirs...)
	if cur := env[key]; cur != "" {
		parts = append(parts, cur)
	}
	env[key] = strings.Join(parts, string(os.PathListSeparator))
}
