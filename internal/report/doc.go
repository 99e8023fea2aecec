// Package report renders classification results.
//
// Reporter writes the literal one-line-per-file classification output that
// operators and scripts consume. Hub keeps a bounded in-memory history of
// results and fans new ones out to live subscribers such as the websocket
// stream.
package report
