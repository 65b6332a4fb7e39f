// Package commands implements the audiorouting-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/omnitrix21/android-frameworks-av/pkg/log"
)

// timeLayout is used for every timestamp the commands print.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] [test] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format(timeLayout)
	session := shortenID(event.SessionID)

	fmt.Fprintf(w, "%s [%s]", ts, session)
	if event.TestID != "" {
		fmt.Fprintf(w, " [%s]", event.TestID)
	}
	if event.Direction != log.DirectionNone {
		fmt.Fprintf(w, " %s", event.Direction)
	}
	fmt.Fprintf(w, " %s %s\n", event.Layer, eventType(event))

	if event.StreamID != "" {
		fmt.Fprintf(w, "  Stream: %s\n", shortenID(event.StreamID))
	}

	switch {
	case event.Stream != nil:
		formatStreamDetails(w, event.Stream)
	case event.Route != nil:
		formatRouteDetails(w, event.Route)
	case event.Check != nil:
		formatCheckDetails(w, event.Check)
	case event.Policy != nil:
		formatPolicyDetails(w, event.Policy)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// eventType returns the label of the payload carried by event.
func eventType(event log.Event) string {
	switch {
	case event.Stream != nil:
		return "Stream"
	case event.Route != nil:
		return event.Route.Kind.String()
	case event.Check != nil:
		if event.Check.Passed {
			return "PASS"
		}
		return "FAIL"
	case event.Policy != nil:
		return "Policy"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of a UUID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatStreamDetails(w io.Writer, s *log.StreamEvent) {
	if s.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", s.OldState, s.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", s.NewState)
	}
	if s.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", s.Reason)
	}
}

func formatRouteDetails(w io.Writer, r *log.RouteEvent) {
	if r.IO != 0 {
		fmt.Fprintf(w, "  IO: %d", r.IO)
		if r.MixPort != "" {
			fmt.Fprintf(w, " (%s)", r.MixPort)
		}
		fmt.Fprintln(w)
	}
	if r.DeviceID != 0 || r.Device != "" {
		fmt.Fprintf(w, "  Device: %d", r.DeviceID)
		if r.Device != "" {
			fmt.Fprintf(w, " (%s)", r.Device)
		}
		fmt.Fprintln(w)
	}
	if r.PatchID != 0 {
		fmt.Fprintf(w, "  Patch: %d\n", r.PatchID)
	}
	if r.Flags != "" {
		fmt.Fprintf(w, "  Flags: %s\n", r.Flags)
	}
}

func formatCheckDetails(w io.Writer, c *log.CheckEvent) {
	fmt.Fprintf(w, "  Check: %s", c.Name)
	if c.Fatal {
		fmt.Fprint(w, " (fatal)")
	}
	fmt.Fprintln(w)
	if c.Message != "" {
		fmt.Fprintf(w, "  Message: %s\n", c.Message)
	}
	if c.Diagnostic != "" {
		for _, line := range strings.Split(strings.TrimRight(c.Diagnostic, "\n"), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}

func formatPolicyDetails(w io.Writer, p *log.PolicyEvent) {
	fmt.Fprintf(w, "  Path: %s\n", p.Path)
	fmt.Fprintf(w, "  Attached: %d  MixPorts: %d  Routes: %d\n", p.AttachedDevices, p.MixPorts, p.Routes)
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "policy":
		return log.LayerPolicy, nil
	case "platform":
		return log.LayerPlatform, nil
	case "verifier":
		return log.LayerVerifier, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be policy, platform, or verifier)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "playback", "out":
		return log.DirectionPlayback, nil
	case "capture", "in":
		return log.DirectionCapture, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be playback or capture)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "stream":
		return log.CategoryStream, nil
	case "routing":
		return log.CategoryRouting, nil
	case "check":
		return log.CategoryCheck, nil
	case "policy":
		return log.CategoryPolicy, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be stream, routing, check, policy, or error)", s)
	}
}

// RunView prints every event of the log file matching filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}
