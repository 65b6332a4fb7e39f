package runner

import (
	"fmt"
	"path"
	"strings"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
)

// caseFilter selects test cases by ID or name globs and by tags. Each
// field is a comma-separated list; empty lists do not filter.
type caseFilter struct {
	patterns []string
	tags     map[string]bool
	exclude  map[string]bool
}

// newCaseFilter parses the filter lists. Globs use path.Match syntax, so
// "TC-PERF-00?" and "*SUBMIX*" both work.
func newCaseFilter(patterns, tags, exclude string) (*caseFilter, error) {
	f := &caseFilter{
		patterns: splitList(patterns),
		tags:     listSet(tags),
		exclude:  listSet(exclude),
	}
	for _, p := range f.patterns {
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("bad test pattern %q: %w", p, err)
		}
	}
	return f, nil
}

func (f *caseFilter) match(tc *loader.TestCase) bool {
	if len(f.patterns) > 0 && !f.matchesPattern(tc) {
		return false
	}
	if len(f.tags) > 0 && !anyTag(tc.Tags, f.tags) {
		return false
	}
	return !anyTag(tc.Tags, f.exclude)
}

func (f *caseFilter) matchesPattern(tc *loader.TestCase) bool {
	for _, p := range f.patterns {
		if ok, _ := path.Match(p, tc.ID); ok {
			return true
		}
		if ok, _ := path.Match(p, tc.Name); ok {
			return true
		}
	}
	return false
}

// apply returns the matching cases in their original order.
func (f *caseFilter) apply(cases []*loader.TestCase) []*loader.TestCase {
	var out []*loader.TestCase
	for _, tc := range cases {
		if f.match(tc) {
			out = append(out, tc)
		}
	}
	return out
}

// splitList splits a comma-separated list into trimmed non-empty entries.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func listSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, item := range splitList(s) {
		set[item] = true
	}
	return set
}

func anyTag(tags []string, set map[string]bool) bool {
	for _, t := range tags {
		if set[t] {
			return true
		}
	}
	return false
}
