// Package logs reads watcher diagnostics for the CLI: it tails the current
// log file and follows classification results from the HTTP API.
//
// Tail works on byte offsets so callers can resume where the previous call
// stopped. ResultsClient long-polls /api/results using the sequence cursor
// returned by each response.
package logs
