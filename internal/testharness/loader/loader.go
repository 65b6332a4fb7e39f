package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseTestCase parses a document holding exactly one test case.
func ParseTestCase(data []byte) (*TestCase, error) {
	cases, err := ParseTestCases(data)
	if err != nil {
		return nil, err
	}
	if len(cases) > 1 {
		return nil, &LoadError{Message: fmt.Sprintf("expected one test case, found %d", len(cases))}
	}
	return cases[0], nil
}

// ParseTestCases parses a YAML stream of one or more test case documents
// separated by "---". Errors carry the line of the offending document.
func ParseTestCases(data []byte) ([]*TestCase, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var cases []*TestCase
	for doc := 1; ; doc++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Message: fmt.Sprintf("document %d: invalid YAML", doc), Cause: err}
		}

		// A document of comments only has no content.
		if len(node.Content) == 0 {
			continue
		}
		line := node.Content[0].Line

		tc := new(TestCase)
		if err := node.Decode(tc); err != nil {
			return nil, &LoadError{Line: line, Message: fmt.Sprintf("document %d", doc), Cause: err}
		}
		if msg := tc.problem(); msg != "" {
			return nil, &LoadError{Line: line, Message: msg}
		}
		cases = append(cases, tc)
	}
	if len(cases) == 0 {
		return nil, &LoadError{Message: "no test cases"}
	}
	return cases, nil
}

// problem describes what makes tc unusable, or returns "".
func (tc *TestCase) problem() string {
	switch {
	case tc.ID == "":
		return "test case ID is required"
	case len(tc.Steps) == 0:
		return fmt.Sprintf("test case %s must have at least one step", tc.ID)
	}
	for i, s := range tc.Steps {
		if s.Action == "" {
			return fmt.Sprintf("test case %s: step %d has no action", tc.ID, i+1)
		}
	}
	return ""
}

// LoadTestCase loads the test cases of one file.
func LoadTestCase(path string) ([]*TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	cases, err := ParseTestCases(data)
	if err != nil {
		return nil, withFile(err, path)
	}
	return cases, nil
}

// Load loads test cases from a file, or from every .yaml and .yml file
// below a directory in lexical order. Test case IDs must be unique.
func Load(path string) ([]*TestCase, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to stat", Cause: err}
	}
	if !info.IsDir() {
		return LoadTestCase(path)
	}

	var cases []*TestCase
	seen := make(map[string]string)
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAMLFile(p) {
			return nil
		}
		tcs, err := LoadTestCase(p)
		if err != nil {
			return err
		}
		for _, tc := range tcs {
			if prev, dup := seen[tc.ID]; dup {
				return &LoadError{File: p, Message: fmt.Sprintf("duplicate test case ID %s, first defined in %s", tc.ID, prev)}
			}
			seen[tc.ID] = p
		}
		cases = append(cases, tcs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cases, nil
}

func isYAMLFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// withFile sets the file of a LoadError, or wraps other errors in one.
func withFile(err error, path string) error {
	var le *LoadError
	if errors.As(err, &le) {
		le.File = path
		return le
	}
	return &LoadError{File: path, Message: err.Error()}
}
