package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/omnitrix21/android-frameworks-av/internal/testharness/engine"
	"github.com/omnitrix21/android-frameworks-av/internal/testharness/loader"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy"
)

// registerPolicyHandlers registers policy action handlers.
func (r *Runner) registerPolicyHandlers() {
	r.engine.RegisterHandler(ActionLoadPolicy, r.handleLoadPolicy)
	r.engine.RegisterHandler(ActionFindFlagRoute, r.handleFindFlagRoute)
	r.engine.RegisterHandler(ActionRequireAttachedDevice, r.handleRequireAttachedDevice)
}

// handleLoadPolicy extracts a policy for the current test and builds a
// platform for it. Without a path the suite policy file is reloaded, or the
// platform directories are searched. Extraction failures are reported
// through the loaded, error and error_kind outputs rather than failing the
// step.
func (r *Runner) handleLoadPolicy(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	e := getEnv(state)
	if e == nil {
		return nil, errors.New("no routing environment")
	}
	params := r.params(step, state)

	mode := e.mode
	if s := paramString(params, ParamMatchMode, ""); s != "" {
		m, ok := policy.ParseMatchMode(s)
		if !ok {
			return nil, fmt.Errorf("unknown match mode %q", s)
		}
		mode = m
	}

	cfg, err := r.loadPolicy(paramString(params, ParamPath, r.config.PolicyPath), policy.SearchOptions{
		SKU:  paramString(params, ParamSKU, r.config.SKU),
		Root: paramString(params, ParamRoot, r.config.Root),
	})

	plat, perr := r.config.Platform(cfg, mode, r.events)
	if perr != nil {
		return nil, fmt.Errorf("platform: %w", perr)
	}
	if e.owned {
		if c, ok := e.platform.(io.Closer); ok {
			_ = c.Close()
		}
	}
	e.policy = cfg
	e.platform = plat
	e.mode = mode
	e.owned = true

	outputs := map[string]any{
		KeyLoaded:          err == nil,
		KeyPolicyPath:      cfg.Path,
		KeyVersion:         cfg.Version,
		KeyModules:         toAnySlice(cfg.Modules),
		KeyAttachedDevices: toAnySlice(cfg.AttachedDevices),
		KeyMixPortCount:    len(cfg.MixPorts),
		KeyRouteCount:      len(cfg.Routes),
	}
	if err != nil {
		outputs[KeyError] = err.Error()
		outputs[KeyErrorKind] = errorKind(err)
		outputs[KeyErrorMessageContains] = err.Error()
	}
	return outputs, nil
}

// handleFindFlagRoute looks up the first source mix port carrying flag that
// is routed to an attached device. With skip_if_missing the test is skipped
// when there is none.
func (r *Runner) handleFindFlagRoute(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	e := getEnv(state)
	if e == nil {
		return nil, errors.New("no routing environment")
	}
	params := r.params(step, state)

	flag := paramString(params, ParamFlag, "")
	if flag == "" {
		return nil, fmt.Errorf("%s parameter required", ParamFlag)
	}

	path, ok := e.policy.FindRoutedPort(flag, e.mode)
	if !ok {
		if toBool(params[ParamSkipIfMissing]) {
			return nil, engine.Skip("no %s mix port routed to an attached device", flag)
		}
		return map[string]any{KeyFound: false}, nil
	}
	return map[string]any{
		KeyFound:        true,
		KeyMixPort:      path.Port.Name,
		KeyMixPortFlags: path.Port.Flags,
		KeySink:         path.Sink(),
		KeyModule:       path.Port.Module,
	}, nil
}

// handleRequireAttachedDevice skips the test unless an attached device name
// contains the device parameter.
func (r *Runner) handleRequireAttachedDevice(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	e := getEnv(state)
	if e == nil {
		return nil, errors.New("no routing environment")
	}
	params := r.params(step, state)

	device := paramString(params, ParamDevice, "")
	if device == "" {
		return nil, fmt.Errorf("%s parameter required", ParamDevice)
	}
	if !e.policy.HasAttachedDevice(device) {
		return nil, engine.Skip("no attached device matching %q", device)
	}
	return map[string]any{KeyAttached: true}, nil
}

// errorKind names the extraction failure kind of err.
func errorKind(err error) string {
	switch {
	case errors.Is(err, policy.ErrNotFound):
		return "not_found"
	case errors.Is(err, policy.ErrUnreadable):
		return "unreadable"
	case errors.Is(err, policy.ErrMalformed):
		return "malformed"
	case errors.Is(err, policy.ErrInclude):
		return "include"
	default:
		return "unknown"
	}
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
