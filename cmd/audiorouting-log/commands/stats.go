package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/omnitrix21/android-frameworks-av/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	EventsByRoute    map[log.RouteKind]int
	Sessions         map[string]*SessionStats
	Tests            map[string]*TestStats
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for one harness or verifier run.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Streams   map[string]struct{}
}

// TestStats counts the check outcomes of one test case.
type TestStats struct {
	Passed int
	Failed int
	Fatal  int
}

// Collect reads every event of path into a Stats.
func Collect(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		EventsByRoute:    make(map[log.RouteKind]int),
		Sessions:         make(map[string]*SessionStats),
		Tests:            make(map[string]*TestStats),
	}

	err = reader.Each(func(event log.Event) error {
		stats.add(event)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read event: %w", err)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	sess, ok := s.Sessions[event.SessionID]
	if !ok {
		sess = &SessionStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
			Streams:   make(map[string]struct{}),
		}
		s.Sessions[event.SessionID] = sess
	}
	sess.Events++
	if event.Timestamp.After(sess.LastSeen) {
		sess.LastSeen = event.Timestamp
	}
	if event.StreamID != "" {
		sess.Streams[event.StreamID] = struct{}{}
	}

	if event.Route != nil {
		s.EventsByRoute[event.Route.Kind]++
	}
	if event.Check != nil && event.TestID != "" {
		ts, ok := s.Tests[event.TestID]
		if !ok {
			ts = &TestStats{}
			s.Tests[event.TestID] = ts
		}
		switch {
		case event.Check.Passed:
			ts.Passed++
		case event.Check.Fatal:
			ts.Failed++
			ts.Fatal++
		default:
			ts.Failed++
		}
	}
	if event.Error != nil {
		s.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Audio Routing Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerPolicy, log.LayerPlatform, log.LayerVerifier} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryStream, log.CategoryRouting, log.CategoryCheck, log.CategoryPolicy, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.EventsByRoute) > 0 {
		fmt.Fprintln(w, "Routing Events:")
		for _, kind := range []log.RouteKind{log.RouteKindSelected, log.RouteKindPatch, log.RouteKindCallback, log.RouteKindReleased} {
			if count := stats.EventsByRoute[kind]; count > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", kind.String()+":", count)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, %d streams, duration %s\n",
				shortenID(s.id), s.stats.Events, len(s.stats.Streams), duration)
		}
	}

	if len(stats.Tests) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Checks by Test:")
		ids := make([]string, 0, len(stats.Tests))
		for id := range stats.Tests {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			ts := stats.Tests[id]
			fmt.Fprintf(w, "  %s: %d passed, %d failed", id, ts.Passed, ts.Failed)
			if ts.Fatal > 0 {
				fmt.Fprintf(w, " (%d fatal)", ts.Fatal)
			}
			fmt.Fprintln(w)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
