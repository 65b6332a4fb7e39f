// Package policy extracts routing facts from an audio policy configuration
// document.
//
// The document describes HAL modules, each declaring mix ports (logical
// streams), device ports, the devices attached at boot and the routes that
// may connect sources to sinks. The extractor flattens all modules into
// three ordered lists that routing checks join against each other:
//
//   - attached device names (attachedDevices/item text)
//   - mix ports with role "source" (playback mixes)
//   - routes (sources list -> sink)
//
// Device ports and default output devices are extracted as well so a
// simulated platform can assign device types and pick default sinks.
//
// # Basic Usage
//
//	path, err := policy.Locate(policy.SearchOptions{})
//	cfg, err := policy.ParseFile(path)
//	if path, ok := cfg.FindRoutedPort("AUDIO_OUTPUT_FLAG_FAST", policy.MatchToken); ok {
//	    fmt.Println(path.Port.Name, "->", path.Route.Sink)
//	}
//
// XInclude directives (xi:include href="...") are resolved relative to the
// including file before extraction.
package policy
