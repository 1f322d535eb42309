// Package config loads and validates the strata tool settings.
//
// Settings come from three layers, in increasing precedence: built-in
// defaults, an optional YAML settings file, and STRATA_* environment
// variables. The result is validated with struct tags before use.
//
// The settings file is looked up at the user config dir
// (strata/config.yaml) unless a path is given explicitly:
//
//	settings, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg := settings.TelemetryConfig("1.0.0")
//
// Settings cover the logger (level, format), the run-history database,
// tracing and metrics endpoints, the watch-mode debounce window, and
// the default output format. They configure the tool itself; the
// documents being realized are handled by pkg/loader.
package config
