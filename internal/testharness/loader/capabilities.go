package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Well-known capability identifiers.
const (
	// CapPolicyLoaded is set once a policy configuration parsed.
	CapPolicyLoaded = "POLICY.LOADED"

	// CapAttachedPrefix prefixes one capability per attached device class,
	// e.g. POLICY.ATTACHED.REMOTE_SUBMIX.
	CapAttachedPrefix = "POLICY.ATTACHED."

	// CapRoutedFlagPrefix prefixes one capability per output flag carried by
	// a source mix port routed to an attached device, e.g.
	// POLICY.ROUTED_FLAG.AUDIO_OUTPUT_FLAG_FAST.
	CapRoutedFlagPrefix = "POLICY.ROUTED_FLAG."

	CapRemoteSubmix = CapAttachedPrefix + "REMOTE_SUBMIX"

	CapCallbackTimeoutMS = "PLATFORM.CALLBACK_TIMEOUT_MS"
	CapSampleRate        = "PLATFORM.SAMPLE_RATE"
)

// ParseCapabilities parses a capability file. Two formats are accepted:
// YAML with device and items sections, and KEY=value lines.
func ParseCapabilities(data []byte) (*CapabilityFile, error) {
	if isKeyValue(data) {
		return parseKeyValue(data)
	}

	var doc capabilityYAMLFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML capabilities", Cause: err}
	}
	cf := NewCapabilityFile("")
	cf.Device = doc.Device
	for k, v := range doc.Items {
		cf.Items[k] = v
	}
	return cf, nil
}

// isKeyValue reports whether the first meaningful line is KEY=value.
func isKeyValue(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		eq := strings.IndexByte(line, '=')
		colon := strings.IndexByte(line, ':')
		return eq > 0 && (colon < 0 || colon > eq)
	}
	return false
}

func parseKeyValue(data []byte) (*CapabilityFile, error) {
	cf := NewCapabilityFile("")
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, &LoadError{Line: n, Message: "invalid capability line: " + line}
		}
		cf.Items[strings.TrimSpace(key)] = scalar(strings.TrimSpace(value))
	}
	if err := sc.Err(); err != nil {
		return nil, &LoadError{Message: "failed to read capability data", Cause: err}
	}
	return cf, nil
}

// scalar converts a KEY=value value to a bool, int or float when it is
// one.
func scalar(s string) interface{} {
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// LoadCapabilities loads a capability file. The set is named after the
// file.
func LoadCapabilities(path string) (*CapabilityFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read capability file", Cause: err}
	}
	cf, err := ParseCapabilities(data)
	if err != nil {
		return nil, withFile(err, path)
	}
	cf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return cf, nil
}

// Merge copies the items of other into cf. Items of other win.
func (cf *CapabilityFile) Merge(other *CapabilityFile) {
	if other == nil {
		return
	}
	if cf.Items == nil {
		cf.Items = make(map[string]interface{}, len(other.Items))
	}
	for k, v := range other.Items {
		cf.Items[k] = v
	}
	if other.Device != (DeviceInfo{}) {
		cf.Device = other.Device
	}
}

// Has reports whether the capability is present and not false.
func (cf *CapabilityFile) Has(key string) bool {
	if cf == nil {
		return false
	}
	v, ok := cf.Items[key]
	if b, isBool := v.(bool); isBool {
		return b
	}
	return ok
}

// Keys returns the capability identifiers in sorted order.
func (cf *CapabilityFile) Keys() []string {
	keys := make([]string, 0, len(cf.Items))
	for k := range cf.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MissingRequirements returns the requirements cf does not satisfy.
func MissingRequirements(cf *CapabilityFile, requirements []string) []string {
	var missing []string
	for _, req := range requirements {
		if !cf.Has(req) {
			missing = append(missing, req)
		}
	}
	return missing
}

// FilterTestCases returns the test cases whose requirements cf satisfies.
func FilterTestCases(cases []*TestCase, cf *CapabilityFile) []*TestCase {
	var out []*TestCase
	for _, tc := range cases {
		if len(MissingRequirements(cf, tc.Requires)) == 0 {
			out = append(out, tc)
		}
	}
	return out
}

// ValidateCapabilities checks a capability set for contradictions. Policy
// facts claimed without a loaded policy and a non-positive callback timeout
// are errors; an implausible sample rate is a warning.
func ValidateCapabilities(cf *CapabilityFile) []*ValidationError {
	if cf == nil {
		return nil
	}
	var errs []*ValidationError
	add := func(field string, level ValidationLevel, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Level: level, Message: fmt.Sprintf(format, args...)})
	}

	if !cf.Has(CapPolicyLoaded) {
		for _, key := range cf.Keys() {
			policyFact := strings.HasPrefix(key, CapAttachedPrefix) || strings.HasPrefix(key, CapRoutedFlagPrefix)
			if policyFact && cf.Items[key] == true {
				add(key, ValidationLevelError, "%s requires %s to be true", key, CapPolicyLoaded)
			}
		}
	}
	if ms, ok := intItem(cf, CapCallbackTimeoutMS); ok && ms <= 0 {
		add(CapCallbackTimeoutMS, ValidationLevelError, "%s must be positive, got %d", CapCallbackTimeoutMS, ms)
	}
	if rate, ok := intItem(cf, CapSampleRate); ok && (rate < 8000 || rate > 192000) {
		add(CapSampleRate, ValidationLevelWarning, "%s must be 8000-192000, got %d", CapSampleRate, rate)
	}
	return errs
}

// intItem returns a numeric item as an int. YAML numbers may decode as
// float64.
func intItem(cf *CapabilityFile, key string) (int, bool) {
	switch n := cf.Items[key].(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
