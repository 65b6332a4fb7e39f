package runner

import (
	"strings"
	"testing"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
)

var filterCases = []*loader.TestCase{
	{ID: "TC-PERF-001", Name: "fast basic", Tags: []string{"performance_mode", "playback"}},
	{ID: "TC-PERF-002", Name: "deep buffer basic", Tags: []string{"performance_mode", "playback"}},
	{ID: "TC-SUBMIX-001", Name: "submix loopback", Tags: []string{"remote_submix", "capture", "playback"}},
	{ID: "TC-POLICY-001", Name: "policy extraction", Tags: []string{"policy"}},
	{ID: "TC-POLICY-002", Name: "missing policy file", Tags: []string{"policy", "negative"}},
	{ID: "TC-SCENARIO-001", Name: "performance scenario"},
}

func selectedIDs(t *testing.T, patterns, tags, exclude string) string {
	t.Helper()
	f, err := newCaseFilter(patterns, tags, exclude)
	if err != nil {
		t.Fatalf("newCaseFilter: %v", err)
	}
	var ids []string
	for _, tc := range f.apply(filterCases) {
		ids = append(ids, tc.ID)
	}
	return strings.Join(ids, ",")
}

func TestCaseFilter(t *testing.T) {
	all := "TC-PERF-001,TC-PERF-002,TC-SUBMIX-001,TC-POLICY-001,TC-POLICY-002,TC-SCENARIO-001"

	tests := []struct {
		name                    string
		patterns, tags, exclude string
		want                    string
	}{
		{"no filter", "", "", "", all},
		{"match all", "*", "", "", all},
		{"prefix", "TC-PERF*", "", "", "TC-PERF-001,TC-PERF-002"},
		{"infix", "*SUBMIX*", "", "", "TC-SUBMIX-001"},
		{"suffix", "*-002", "", "", "TC-PERF-002,TC-POLICY-002"},
		{"single char", "TC-PERF-00?", "", "", "TC-PERF-001,TC-PERF-002"},
		{"exact", "TC-POLICY-001", "", "", "TC-POLICY-001"},
		{"by name", "*basic", "", "", "TC-PERF-001,TC-PERF-002"},
		{"list", "TC-PERF-001, ,TC-SUB* ", "", "", "TC-PERF-001,TC-SUBMIX-001"},
		{"id and name match once", "TC-PERF-001,fast*", "", "", "TC-PERF-001"},
		{"no match", "TC-NOPE*", "", "", ""},
		{"one tag", "", "policy", "", "TC-POLICY-001,TC-POLICY-002"},
		{"any tag", "", "remote_submix,negative", "", "TC-SUBMIX-001,TC-POLICY-002"},
		{"exclude", "", "", "playback", "TC-POLICY-001,TC-POLICY-002,TC-SCENARIO-001"},
		{"exclude several", "", "", "playback,negative", "TC-POLICY-001,TC-SCENARIO-001"},
		{"tags and exclude", "", "playback", "capture", "TC-PERF-001,TC-PERF-002"},
		{"all three", "TC-*-001", "playback,policy", "remote_submix", "TC-PERF-001,TC-POLICY-001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectedIDs(t, tt.patterns, tt.tags, tt.exclude); got != tt.want {
				t.Errorf("selected %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCaseFilterBadPattern(t *testing.T) {
	if _, err := newCaseFilter("TC-[PERF", "", ""); err == nil {
		t.Error("an unterminated class should be rejected")
	}
}

func TestSplitList(t *testing.T) {
	if got := strings.Join(splitList(" a, ,b,,c "), "|"); got != "a|b|c" {
		t.Errorf("splitList = %q", got)
	}
	if splitList("") != nil {
		t.Error("empty list should be nil")
	}
}
