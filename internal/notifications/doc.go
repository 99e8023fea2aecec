// Package notifications pushes ntfy alerts for arrivals that need attention.
//
// Corrupted (BAD) arrivals always qualify when enabled; malformed (INVALID)
// names and relocation failures are opt-in. When no topic is configured the
// service is a noop so callers never need to check.
package notifications
