// Package config loads, normalizes, and validates imageassembly configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from an explicit path, the user config
// directory, or ./imageassembly.toml. Command-line flags are applied on top
// of the loaded values and re-normalized by the caller.
package config
