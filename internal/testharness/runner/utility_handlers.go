package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/engine"
	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
)

// registerUtilityHandlers registers utility action handlers.
func (r *Runner) registerUtilityHandlers() {
	r.engine.RegisterHandler(ActionWait, r.handleWait)
	r.engine.RegisterHandler(ActionCompare, r.handleCompare)
}

// params interpolates step parameters against earlier outputs and the
// capabilities in effect.
func (r *Runner) params(step *loader.Step, state *engine.ExecutionState) map[string]any {
	return engine.InterpolateParamsWithCapabilities(step.Params, state, r.caps)
}

// handleWait sleeps for duration_ms, 1s when unset.
func (r *Runner) handleWait(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	params := r.params(step, state)
	durationMs := paramFloat(params, ParamDurationMs, 0)
	if durationMs <= 0 {
		durationMs = 1000
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Duration(durationMs) * time.Millisecond):
	}
	return map[string]any{KeyWaited: true}, nil
}

// handleCompare compares two values, typically stored outputs.
func (r *Runner) handleCompare(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	params := r.params(step, state)

	left := params[ParamLeft]
	right := params[ParamRight]
	op, _ := params[ParamOperator].(string)
	if op == "" {
		op = "equal"
	}

	leftF := toFloat(left)
	rightF := toFloat(right)
	equal := fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)

	var result bool
	switch op {
	case "equal", "eq", "==":
		result = equal
	case "not_equal", "ne", "!=":
		result = !equal
	case "greater_than", "gt", ">":
		result = leftF > rightF
	case "less_than", "lt", "<":
		result = leftF < rightF
	case "greater_equal", "gte", ">=":
		result = leftF >= rightF
	case "less_equal", "lte", "<=":
		result = leftF <= rightF
	default:
		return nil, fmt.Errorf("unknown comparison operator: %s", op)
	}

	return map[string]any{
		KeyComparisonResult: result,
		KeyValuesEqual:      equal,
	}, nil
}

// paramInt extracts an integer parameter, handling the int, int64 and
// float64 values YAML v3 may produce. Returns defaultVal if the key is
// missing or not numeric.
func paramInt(params map[string]any, key string, defaultVal int) int {
	switch val := params[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	default:
		return defaultVal
	}
}

// paramFloat is paramInt for float64 values.
func paramFloat(params map[string]any, key string, defaultVal float64) float64 {
	switch val := params[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return defaultVal
	}
}

// paramString returns a string parameter, or defaultVal when the key is
// missing or empty.
func paramString(params map[string]any, key, defaultVal string) string {
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}
	return defaultVal
}

// toFloat converts various numeric types to float64.
func toFloat(v any) float64 {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float64:
		return val
	case float32:
		return float64(val)
	case uint32:
		return float64(val)
	case int32:
		return float64(val)
	default:
		return 0
	}
}

// toBool converts a value to bool.
func toBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case string:
		return val != "" && val != "false" && val != "0"
	default:
		return v != nil
	}
}
