// Package logging assembles the structured slog loggers used by md5watch.
//
// It owns the console and JSON handlers, the field names shared by every
// component (file, source_tag, classification, event_type), the warning and
// error helpers that enforce cause + impact + hint fields, and log file
// housekeeping: run-scoped log files are compressed with zstd once they age
// and pruned after the retention window.
package logging
