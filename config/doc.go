// Package config provides hierarchical configuration resolution.
//
// Configuration is layered with clear precedence:
//  1. Environment variables (DUET_*, highest priority)
//  2. Local config (.duet.yaml in project root)
//  3. Global config (~/.config/duet/config.yaml)
//  4. Built-in defaults (lowest priority)
//
// # Basic Usage
//
//	settings, warnings := config.Load(".")
//	for _, w := range warnings {
//	    fmt.Fprintln(os.Stderr, "Warning:", w)
//	}
//
// # Environment Variables
//
// Environment variables are detected using the DUET_ prefix:
//
//	DUET_MAX_CORRECTION_RETRIES=3   # sets "max_correction_retries"
//	DUET_REQUEST_TIMEOUT=90s        # sets "request_timeout"
//
// # Project Root Detection
//
// The local config is looked up in the nearest ancestor directory
// containing .git, falling back to the starting directory itself.
package config
