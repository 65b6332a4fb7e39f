// Package shell provides the interactive command-line interface of
// audiopolicy-shell.
package shell

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/fsnotify/fsnotify"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy"
)

// reloadDelay collapses the burst of events an editor produces on save.
const reloadDelay = 100 * time.Millisecond

// Shell answers routing queries about one policy file.
type Shell struct {
	path string

	mu      sync.RWMutex
	logger  *slog.Logger
	cfg     *policy.Config
	loadErr error
	mode    policy.MatchMode

	// OnReload is called after every reload triggered by a file change.
	OnReload func(error)

	// NewHandler builds the log handler used once Run owns the terminal.
	NewHandler func(w io.Writer) slog.Handler
}

// New loads path and returns a shell for it. A load failure is kept and
// reported by "info"; the shell still starts so the file can be fixed and
// reloaded.
func New(path string, mode policy.MatchMode, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Shell{path: path, mode: mode, logger: logger}
	_ = s.Reload()
	return s
}

// Path returns the policy file the shell reads.
func (s *Shell) Path() string { return s.path }

// Config returns the current configuration and the last load error.
func (s *Shell) Config() (*policy.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.loadErr
}

// Reload parses the policy file again.
func (s *Shell) Reload() error {
	cfg, err := policy.ParseFile(s.path)
	s.mu.Lock()
	s.cfg = cfg
	s.loadErr = err
	s.mu.Unlock()
	if err != nil {
		s.log().Warn("policy load failed", "path", s.path, "error", err)
		return err
	}
	s.log().Debug("policy loaded", "path", s.path,
		"modules", len(cfg.Modules), "mixPorts", len(cfg.MixPorts), "routes", len(cfg.Routes))
	return nil
}

// Watch reloads the policy whenever the file is written or replaced. The
// watcher is installed before Watch returns and runs until ctx is done.
func (s *Shell) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// The directory is watched so editors that rename over the file are seen.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}
	go s.watchLoop(ctx, w)
	return nil
}

func (s *Shell) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	target := filepath.Clean(s.path)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
				fire = timer.C
			} else {
				timer.Reset(reloadDelay)
			}

		case <-fire:
			err := s.Reload()
			if err == nil {
				s.log().Info("policy reloaded", "path", s.path)
			}
			if s.OnReload != nil {
				s.OnReload(err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log().Warn("watch error", "error", err)
		}
	}
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "policy> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	// Log output would otherwise overwrite the prompt.
	if s.NewHandler != nil {
		s.mu.Lock()
		s.logger = slog.New(s.NewHandler(rl.Stderr()))
		s.mu.Unlock()
	}

	s.printHelp(rl.Stdout())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(rl.Stdout(), "Exiting...")
			cancel()
			return nil
		}

		if !s.Execute(rl.Stdout(), line) {
			cancel()
			return nil
		}
	}
}

func completer() *readline.PrefixCompleter {
	flags := make([]readline.PrefixCompleterInterface, 0, 8)
	for _, f := range []audio.OutputFlags{
		audio.OutputFlagPrimary, audio.OutputFlagFast, audio.OutputFlagDeepBuffer,
		audio.OutputFlagDirect, audio.OutputFlagCompressOffload,
	} {
		flags = append(flags, readline.PcItem(f.String()))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("info"),
		readline.PcItem("modules"),
		readline.PcItem("attached"),
		readline.PcItem("devices"),
		readline.PcItem("ports", flags...),
		readline.PcItem("routes"),
		readline.PcItem("find", flags...),
		readline.PcItem("reachable"),
		readline.PcItem("device"),
		readline.PcItem("mode", readline.PcItem("token"), readline.PcItem("substring")),
		readline.PcItem("reload"),
		readline.PcItem("quit"),
	)
}

func (s *Shell) log() *slog.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger
}

// Execute runs one command line and writes its output to w. It returns
// false when the line asks the shell to exit.
func (s *Shell) Execute(w io.Writer, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]
	// Port and device names contain spaces.
	rest := strings.Join(args, " ")

	switch cmd {
	case "help", "?":
		s.printHelp(w)
	case "info", "status":
		s.cmdInfo(w)
	case "modules":
		s.cmdModules(w)
	case "attached":
		s.cmdAttached(w)
	case "devices":
		s.cmdDevices(w)
	case "ports", "mixports":
		s.cmdPorts(w, rest)
	case "routes":
		s.cmdRoutes(w)
	case "find", "f":
		s.cmdFind(w, rest)
	case "reachable", "reach":
		s.cmdReachable(w, rest)
	case "device", "d":
		s.cmdDevice(w, rest)
	case "mode":
		s.cmdMode(w, rest)
	case "reload":
		if err := s.Reload(); err != nil {
			fmt.Fprintf(w, "Reload failed: %v\n", err)
		} else {
			fmt.Fprintf(w, "Reloaded %s\n", s.path)
		}
	case "quit", "exit", "q":
		fmt.Fprintln(w, "Exiting...")
		return false
	default:
		fmt.Fprintf(w, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp(w io.Writer) {
	fmt.Fprintln(w, `
Audio Policy Shell Commands:
  Configuration:
    info                  - Show file, version and load status
    modules               - List modules
    attached              - List attached devices
    devices               - List device ports with their types
    ports [flag]          - List source mix ports, optionally with a flag
    routes                - List routes

  Routing:
    find <flag>           - First mix port with flag routed to an attached device
    reachable <mix port>  - Attached devices a mix port is routed to
    device <tag name>     - Show a device port

  General:
    mode [token|substring] - Show or set flag matching
    reload                 - Parse the file again
    help                   - Show this help
    quit                   - Exit`)
}

// snapshot returns the config and mode under the read lock.
func (s *Shell) snapshot() (*policy.Config, policy.MatchMode) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.mode
}

func (s *Shell) cmdInfo(w io.Writer) {
	cfg, err := s.Config()
	_, mode := s.snapshot()
	fmt.Fprintf(w, "File:     %s\n", s.path)
	if err != nil {
		fmt.Fprintf(w, "Status:   error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Version:  %s\n", cfg.Version)
	fmt.Fprintf(w, "Mode:     %s\n", mode)
	fmt.Fprintf(w, "Modules:  %d\n", len(cfg.Modules))
	fmt.Fprintf(w, "Attached: %d\n", len(cfg.AttachedDevices))
	fmt.Fprintf(w, "MixPorts: %d\n", len(cfg.MixPorts))
	fmt.Fprintf(w, "Routes:   %d\n", len(cfg.Routes))
}

func (s *Shell) cmdModules(w io.Writer) {
	cfg, _ := s.snapshot()
	if len(cfg.Modules) == 0 {
		fmt.Fprintln(w, "No modules.")
		return
	}
	for _, m := range cfg.Modules {
		fmt.Fprintf(w, "  %s\n", m)
	}
}

func (s *Shell) cmdAttached(w io.Writer) {
	cfg, _ := s.snapshot()
	if len(cfg.AttachedDevices) == 0 {
		fmt.Fprintln(w, "No attached devices.")
		return
	}
	for _, d := range cfg.AttachedDevices {
		fmt.Fprintf(w, "  %s\n", d)
	}
}

func (s *Shell) cmdDevices(w io.Writer) {
	cfg, _ := s.snapshot()
	if len(cfg.DevicePorts) == 0 {
		fmt.Fprintln(w, "No device ports.")
		return
	}
	for _, d := range cfg.DevicePorts {
		mark := " "
		if cfg.IsAttached(d.TagName) {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-24s %-36s %-6s %s\n", mark, d.TagName, d.Type, d.Role, d.Module)
	}
	fmt.Fprintln(w, "(* attached)")
}

func (s *Shell) cmdPorts(w io.Writer, flag string) {
	cfg, mode := s.snapshot()
	flag = qualifyFlag(flag)
	n := 0
	for _, p := range cfg.MixPorts {
		if flag != "" && !p.HasFlag(flag, mode) {
			continue
		}
		fmt.Fprintf(w, "  %-24s %-10s %s\n", p.Name, p.Module, p.OutputFlags())
		n++
	}
	if n == 0 {
		fmt.Fprintln(w, "No matching mix ports.")
	}
}

func (s *Shell) cmdRoutes(w io.Writer) {
	cfg, _ := s.snapshot()
	if len(cfg.Routes) == 0 {
		fmt.Fprintln(w, "No routes.")
		return
	}
	for _, r := range cfg.Routes {
		fmt.Fprintf(w, "  %-24s <- %s (%s, %s)\n", r.Sink, strings.Join(r.SourceNames(), ", "), r.Type, r.Module)
	}
}

func (s *Shell) cmdFind(w io.Writer, flag string) {
	if flag == "" {
		fmt.Fprintln(w, "Usage: find <flag>")
		return
	}
	cfg, mode := s.snapshot()
	flag = qualifyFlag(flag)
	path, ok := cfg.FindRoutedPort(flag, mode)
	if !ok {
		fmt.Fprintf(w, "No %s mix port is routed to an attached device.\n", flag)
		return
	}
	fmt.Fprintf(w, "Mix port: %s (%s)\n", path.Port.Name, path.Port.Module)
	fmt.Fprintf(w, "Flags:    %s\n", path.Port.Flags)
	fmt.Fprintf(w, "Sink:     %s\n", path.Sink())
}

func (s *Shell) cmdReachable(w io.Writer, name string) {
	if name == "" {
		fmt.Fprintln(w, "Usage: reachable <mix port>")
		return
	}
	cfg, mode := s.snapshot()
	port, ok := cfg.MixPort(name)
	if !ok {
		fmt.Fprintf(w, "Unknown mix port: %s\n", name)
		return
	}
	devices := cfg.ReachableDevices(port, mode)
	if len(devices) == 0 {
		fmt.Fprintf(w, "%s reaches no attached device.\n", name)
		return
	}
	sort.Strings(devices)
	for _, d := range devices {
		fmt.Fprintf(w, "  %s\n", d)
	}
}

func (s *Shell) cmdDevice(w io.Writer, tag string) {
	if tag == "" {
		fmt.Fprintln(w, "Usage: device <tag name>")
		return
	}
	cfg, _ := s.snapshot()
	d, ok := cfg.DevicePort(tag)
	if !ok {
		fmt.Fprintf(w, "Unknown device port: %s\n", tag)
		return
	}
	fmt.Fprintf(w, "Tag:      %s\n", d.TagName)
	fmt.Fprintf(w, "Type:     %s", d.Type)
	if dt, err := d.DeviceType(); err == nil {
		fmt.Fprintf(w, " (0x%08x)", uint32(dt))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Role:     %s\n", d.Role)
	if d.Address != "" {
		fmt.Fprintf(w, "Address:  %s\n", d.Address)
	}
	fmt.Fprintf(w, "Module:   %s\n", d.Module)
	fmt.Fprintf(w, "Attached: %t\n", cfg.IsAttached(d.TagName))
}

func (s *Shell) cmdMode(w io.Writer, arg string) {
	if arg == "" {
		_, mode := s.snapshot()
		fmt.Fprintf(w, "Mode: %s\n", mode)
		return
	}
	mode, ok := policy.ParseMatchMode(arg)
	if !ok {
		fmt.Fprintf(w, "Unknown mode: %s (must be token or substring)\n", arg)
		return
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	fmt.Fprintf(w, "Mode: %s\n", mode)
}

// qualifyFlag accepts "fast" for AUDIO_OUTPUT_FLAG_FAST.
func qualifyFlag(flag string) string {
	if flag == "" || strings.HasPrefix(flag, "AUDIO_") {
		return flag
	}
	return "AUDIO_OUTPUT_FLAG_" + strings.ToUpper(flag)
}
