package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes routing events to an slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event at Debug level. Failed checks and errors are written
// at Warn and Error level.
func (a *SlogAdapter) Log(event Event) {
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.StreamID != "" {
		attrs = append(attrs,
			slog.String("stream", event.StreamID),
			slog.String("direction", event.Direction.String()),
		)
	}
	if event.TestID != "" {
		attrs = append(attrs, slog.String("test", event.TestID))
	}

	switch {
	case event.Stream != nil:
		attrs = append(attrs,
			slog.String("old_state", event.Stream.OldState),
			slog.String("new_state", event.Stream.NewState),
		)
		if event.Stream.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Stream.Reason))
		}
	case event.Route != nil:
		attrs = append(attrs,
			slog.String("route", event.Route.Kind.String()),
			slog.Int("io", int(event.Route.IO)),
			slog.Int("device_id", int(event.Route.DeviceID)),
		)
		if event.Route.PatchID != 0 {
			attrs = append(attrs, slog.Int("patch", int(event.Route.PatchID)))
		}
		if event.Route.MixPort != "" {
			attrs = append(attrs, slog.String("mix_port", event.Route.MixPort))
		}
		if event.Route.Device != "" {
			attrs = append(attrs, slog.String("device", event.Route.Device))
		}
		if event.Route.Flags != "" {
			attrs = append(attrs, slog.String("flags", event.Route.Flags))
		}
	case event.Check != nil:
		attrs = append(attrs,
			slog.String("check", event.Check.Name),
			slog.Bool("passed", event.Check.Passed),
		)
		if !event.Check.Passed {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Bool("fatal", event.Check.Fatal))
		}
		if event.Check.Message != "" {
			attrs = append(attrs, slog.String("message", event.Check.Message))
		}
	case event.Policy != nil:
		attrs = append(attrs,
			slog.String("path", event.Policy.Path),
			slog.Int("attached_devices", event.Policy.AttachedDevices),
			slog.Int("mix_ports", event.Policy.MixPorts),
			slog.Int("routes", event.Policy.Routes),
		)
	case event.Error != nil:
		level = slog.LevelError
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), level, "routing", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
