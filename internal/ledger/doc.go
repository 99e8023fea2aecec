// Package ledger persists the verification history in SQLite.
//
// Every classification the watcher produces is recorded with its digests,
// source directory and timing so the CLI and API can answer "what arrived and
// was it intact" after the fact. The store runs in WAL mode and retries
// writes while another process holds the database lock.
package ledger
