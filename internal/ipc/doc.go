// Package ipc exposes the watcher over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. The
// server embeds the daemon; the client dials with a short timeout so CLI
// commands fail fast when no watcher is running.
//
// Reuse these types when adding new RPC endpoints to keep the protocol stable
// and compatible with existing command implementations.
package ipc
