// Package dispatch runs arrival events through a bounded worker pool.
//
// Events are routed to a shard chosen from the xxhash of their key (the file
// name). Each shard has exactly one consumer, so two events for the same name
// are processed one after the other in arrival order while different names
// proceed in parallel.
package dispatch
