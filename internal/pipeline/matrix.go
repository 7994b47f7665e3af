// SPDX-License-Identifier: MPL-2.0

package pipeline

import "sort"

// Canonical dimension names. Matrix rows may declare arbitrary dimensions,
// but channel and target get first-class treatment: ordering, toolchain
// resolution and display.
const (
	DimChannel = "channel"
	DimTarget  = "target"
)

// Expand turns the declared matrix rows into the full list of entries.
// Each row expands to the cartesian product of its dimensions' value lists;
// rows are processed in declaration order and within a row the product
// iterates later dimensions fastest, so the output is deterministic.
// A pipeline without matrix rows yields a single entry with no variables.
func (p *Pipeline) Expand() []Entry {
	if len(p.Environment.Matrix) == 0 {
		return []Entry{{Vars: map[string]string{}}}
	}

	var entries []Entry
	for _, row := range p.Environment.Matrix {
		entries = append(entries, expandRow(row)...)
	}
	return entries
}

// expandRow computes the cartesian product of one row's dimensions.
func expandRow(row Row) []Entry {
	keys := orderedKeys(row)
	if len(keys) == 0 {
		return []Entry{{Vars: map[string]string{}}}
	}

	entries := []Entry{{Vars: map[string]string{}, Keys: nil}}
	for _, k := range keys {
		values := row[k]
		next := make([]Entry, 0, len(entries)*len(values))
		for _, e := range entries {
			for _, v := range values {
				vars := make(map[string]string, len(e.Vars)+1)
				for ek, ev := range e.Vars {
					vars[ek] = ev
				}
				vars[k] = v
				ks := make([]string, len(e.Keys), len(e.Keys)+1)
				copy(ks, e.Keys)
				next = append(next, Entry{Vars: vars, Keys: append(ks, k)})
			}
		}
		entries = next
	}
	return entries
}

// orderedKeys returns the row's dimensions with channel and target first,
// remaining dimensions sorted by name. Go maps don't preserve declaration
// order, so this fixed ordering keeps expansion deterministic across runs.
func orderedKeys(row Row) []string {
	var rest []string
	var keys []string

	if _, ok := row[DimChannel]; ok {
		keys = append(keys, DimChannel)
	}
	if _, ok := row[DimTarget]; ok {
		keys = append(keys, DimTarget)
	}
	for k := range row {
		if k == DimChannel || k == DimTarget {
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
