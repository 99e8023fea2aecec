// Package daemon coordinates the long-running md5watch process.
//
// It wires configuration, the verification ledger, the watch manager, the
// keyed dispatcher and the verifier into a single lifecycle with flock-based
// locking to prevent multiple instances. The daemon also owns the optional
// HTTP status API and exposes the status snapshot used by the IPC layer.
//
// Keep orchestration logic here: classification and relocation live in their
// own packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
