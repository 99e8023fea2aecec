// Package verifier classifies arriving files.
//
// Process takes one arrival event through the whole pipeline: relocate the
// file into the holding directory, extract the MD5 token from its name, hash
// the holding copy, print the classification line, apply the retention
// policy, then record, publish and notify. Each event is processed exactly
// once; there are no retries. Per-file failures are logged and returned, and
// never stop the watcher.
package verifier
