// Package log provides structured routing event capture.
//
// This package defines the Logger interface and Event types recorded while
// routing checks run: stream lifecycle, routing decisions, device callbacks,
// check outcomes and configuration loads. It is separate from operational
// logging (slog); event capture provides a machine-readable trace for
// post-mortem analysis of a failed run.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	events := log.NewSlogAdapter(slog.Default())
//
//	// For CI: write to binary file
//	events, _ := log.NewFileLogger("/tmp/routing.rlog")
//
//	// Both
//	events := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Event files use CBOR encoding with the .rlog extension. The
// audiorouting-log CLI provides viewing, filtering, and export.
//
// NewConsoleHandler builds the operational slog handler used by the CLIs.
package log
