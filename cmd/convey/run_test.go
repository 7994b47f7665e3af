// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"reflect"
	"testing"

	"convey-cli/internal/pipeline"
)

func TestParseOnlyFilters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		values  []string
		want    []onlyFilter
		wantErr bool
	}{
		{
			name:   "single pair",
			values: []string{"channel=stable"},
			want:   []onlyFilter{{"channel": "stable"}},
		},
		{
			name:   "conjunction in one flag",
			values: []string{"channel=stable,target=x86_64-pc-windows-msvc"},
			want:   []onlyFilter{{"channel": "stable", "target": "x86_64-pc-windows-msvc"}},
		},
		{
			name:   "repeated flags stay separate",
			values: []string{"channel=stable", "channel=beta"},
			want:   []onlyFilter{{"channel": "stable"}, {"channel": "beta"}},
		},
		{
			name:   "whitespace tolerated",
			values: []string{" channel = stable , target = i686-pc-windows-msvc "},
			want:   []onlyFilter{{"channel": "stable", "target": "i686-pc-windows-msvc"}},
		},
		{"no equals sign", []string{"stable"}, nil, true},
		{"empty key", []string{"=stable"}, nil, true},
		{"empty value list", []string{","}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseOnlyFilters(tt.values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseOnlyFilters(%v) error = %v, wantErr %v", tt.values, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseOnlyFilters(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestFilterEntries(t *testing.T) {
	t.Parallel()

	entries := []pipeline.Entry{
		{Vars: map[string]string{"channel": "stable", "target": "x86_64-pc-windows-msvc"}},
		{Vars: map[string]string{"channel": "beta", "target": "x86_64-pc-windows-msvc"}},
		{Vars: map[string]string{"channel": "stable", "target": "i686-pc-windows-msvc"}},
	}

	// No filters keeps everything.
	if got := filterEntries(entries, nil); len(got) != 3 {
		t.Errorf("filterEntries(nil) = %d entries, want 3", len(got))
	}

	// A conjunction narrows to one entry.
	got := filterEntries(entries, []onlyFilter{{"channel": "stable", "target": "i686-pc-windows-msvc"}})
	if len(got) != 1 || got[0].Vars["target"] != "i686-pc-windows-msvc" {
		t.Errorf("filterEntries(conjunction) = %v", got)
	}

	// Repeated filters are OR-ed.
	got = filterEntries(entries, []onlyFilter{{"channel": "beta"}, {"target": "i686-pc-windows-msvc"}})
	if len(got) != 2 {
		t.Errorf("filterEntries(OR) = %d entries, want 2", len(got))
	}

	// A filter matching nothing yields an empty slice.
	if got := filterEntries(entries, []onlyFilter{{"channel": "nightly"}}); len(got) != 0 {
		t.Errorf("filterEntries(no match) = %v, want empty", got)
	}
}

func TestParseEnvVarFlags(t *testing.T) {
	t.Parallel()

	got, err := parseEnvVarFlags([]string{"RUST_BACKTRACE=full", "EMPTY=", "WITH=eq=signs"})
	if err != nil {
		t.Fatalf("parseEnvVarFlags() error = %v", err)
	}
	want := map[string]string{"RUST_BACKTRACE": "full", "EMPTY": "", "WITH": "eq=signs"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseEnvVarFlags() = %v, want %v", got, want)
	}

	if _, err := parseEnvVarFlags([]string{"NOEQUALS"}); err == nil {
		t.Error("parseEnvVarFlags() accepted a value without =")
	}
	if _, err := parseEnvVarFlags([]string{"=value"}); err == nil {
		t.Error("parseEnvVarFlags() accepted an empty key")
	}

	if got, err := parseEnvVarFlags(nil); err != nil || got != nil {
		t.Errorf("parseEnvVarFlags(nil) = %v, %v; want nil, nil", got, err)
	}
}

func TestFormatRule(t *testing.T) {
	t.Parallel()

	rule := pipeline.AllowFailureRule{
		"flavor":  "spicy",
		"channel": "nightly",
		"target":  "x86_64-pc-windows-msvc",
	}
	want := "channel=nightly target=x86_64-pc-windows-msvc flavor=spicy"
	if got := formatRule(rule); got != want {
		t.Errorf("formatRule() = %q, want %q", got, want)
	}
}
