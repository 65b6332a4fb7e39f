package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
)

// Two kinds of reference are resolved in step params and expectations:
//
//	{{ io }}                         an output of an earlier step
//	${PLATFORM.CALLBACK_TIMEOUT_MS}  a capability value
//
// A string that is exactly one reference takes the referenced value with
// its type. Otherwise references are replaced by their text. Unknown
// references are left as written.
var (
	variablePattern   = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)
	capabilityPattern = regexp.MustCompile(`\$\{\s*([A-Z][A-Z0-9_]*(?:\.[A-Z0-9_]+)+)\s*\}`)
)

// lookupFunc returns the value a reference name stands for.
type lookupFunc func(name string) (interface{}, bool)

// substitute resolves pattern references in s through lookup.
func substitute(s string, pattern *regexp.Regexp, lookup lookupFunc) interface{} {
	trimmed := strings.TrimSpace(s)
	if m := pattern.FindStringSubmatchIndex(trimmed); m != nil && m[0] == 0 && m[1] == len(trimmed) {
		if v, ok := lookup(trimmed[m[2]:m[3]]); ok {
			return v
		}
		return s
	}
	return pattern.ReplaceAllStringFunc(s, func(match string) string {
		if v, ok := lookup(pattern.FindStringSubmatch(match)[1]); ok {
			return valueToString(v)
		}
		return match
	})
}

// walk applies fn to every string in value, descending into maps and lists.
// Containers are copied; the input is never modified.
func walk(value interface{}, fn func(string) interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return fn(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = walk(val, fn)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = walk(val, fn)
		}
		return out
	default:
		return value
	}
}

func stateLookup(state *ExecutionState) lookupFunc {
	return func(name string) (interface{}, bool) {
		v, ok := state.Outputs[name]
		return v, ok
	}
}

func capsLookup(caps *loader.CapabilityFile) lookupFunc {
	return func(name string) (interface{}, bool) {
		v, ok := caps.Items[name]
		return v, ok
	}
}

// Interpolate replaces {{ variable }} placeholders in template with their
// text from state.
func Interpolate(template string, state *ExecutionState) string {
	if state == nil {
		return template
	}
	lookup := stateLookup(state)
	return variablePattern.ReplaceAllStringFunc(template, func(match string) string {
		if v, ok := lookup(variablePattern.FindStringSubmatch(match)[1]); ok {
			return valueToString(v)
		}
		return match
	})
}

// InterpolateParams resolves {{ variable }} references in params. It
// returns a copy.
func InterpolateParams(params map[string]interface{}, state *ExecutionState) map[string]interface{} {
	if params == nil {
		return nil
	}
	if state == nil {
		return walk(params, func(s string) interface{} { return s }).(map[string]interface{})
	}
	lookup := stateLookup(state)
	return walk(params, func(s string) interface{} {
		return substitute(s, variablePattern, lookup)
	}).(map[string]interface{})
}

// InterpolateCapabilities resolves ${CAPABILITY.ID} references in value.
func InterpolateCapabilities(value interface{}, caps *loader.CapabilityFile) interface{} {
	if caps == nil {
		return value
	}
	lookup := capsLookup(caps)
	return walk(value, func(s string) interface{} {
		return substitute(s, capabilityPattern, lookup)
	})
}

// InterpolateParamsWithCapabilities resolves {{ variable }} references from
// state and then ${CAPABILITY.ID} references from caps.
func InterpolateParamsWithCapabilities(params map[string]interface{}, state *ExecutionState, caps *loader.CapabilityFile) map[string]interface{} {
	result := InterpolateParams(params, state)
	if result == nil || caps == nil {
		return result
	}
	return InterpolateCapabilities(result, caps).(map[string]interface{})
}

// valueToString formats a referenced value for use inside a larger string.
// Whole floats print without a fraction, as YAML numbers decode to float64.
func valueToString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
