// Package config loads, normalizes, and validates md5watch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MD5WATCH_NTFY_TOPIC. The Config type centralizes every knob the watcher and
// CLI need so the watched directories, holding directory and state directory
// are discovered in one pass.
//
// A loaded Config is treated as immutable: command-line overrides are applied
// through ApplyOverrides before validation and the resulting value is passed
// explicitly into the watcher, verifier and daemon constructors.
package config
