// Command audiopolicy-shell is an interactive browser for an audio policy
// configuration.
//
// It answers the routing questions the integration test asks: which mix
// port carries a flag and reaches an attached device, where a mix port can
// be routed, and what a device port declares. The file is watched and
// reloaded when it changes.
//
// Usage:
//
//	audiopolicy-shell [flags] [file]
//
// Flags:
//
//	-sku string         Vendor SKU for the directory search
//	-root string        Root prepended to the search directories
//	-match-mode string  Flag matching: token, substring (default "token")
//	-watch              Reload the file when it changes (default true)
//	-log-level string   Log level: debug, info, warn, error (default "info")
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/omnitrix21/android-frameworks-av/cmd/audiopolicy-shell/shell"
	arlog "github.com/omnitrix21/android-frameworks-av/pkg/log"
	"github.com/omnitrix21/android-frameworks-av/pkg/policy"
)

var (
	sku       = flag.String("sku", "", "Vendor SKU for the directory search")
	root      = flag.String("root", "", "Root prepended to the search directories")
	matchMode = flag.String("match-mode", "token", "Flag matching: token, substring")
	watch     = flag.Bool("watch", true, "Reload the file when it changes")
	logLevel  = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	mode, ok := policy.ParseMatchMode(*matchMode)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: match-mode must be 'token' or 'substring', got '%s'\n", *matchMode)
		flag.Usage()
		os.Exit(1)
	}

	level := arlog.ParseLevel(*logLevel)
	logger := slog.New(arlog.NewConsoleHandler(os.Stderr, level))

	path := flag.Arg(0)
	if path == "" {
		var err error
		path, err = policy.Locate(policy.SearchOptions{SKU: *sku, Root: *root})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	sh := shell.New(path, mode, logger)
	sh.NewHandler = func(w io.Writer) slog.Handler {
		return arlog.NewConsoleHandler(w, level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *watch {
		if err := sh.Watch(ctx); err != nil {
			logger.Warn("file watching disabled", "error", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := sh.Run(ctx, cancel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
