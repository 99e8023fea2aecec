package ipc

import (
	"time"

	"md5watch/internal/daemon"
	"md5watch/internal/ledger"
)

// ServiceName is the JSON-RPC receiver name.
const ServiceName = "MD5Watch"

// StopRequest stops the watcher.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches watcher status.
type StatusRequest struct{}

// StatusResponse carries the daemon status snapshot.
type StatusResponse struct {
	daemon.Status
}

// RecentRequest filters the verification history.
type RecentRequest struct {
	Limit          int       `json:"limit"`
	Classification string    `json:"classification"`
	Name           string    `json:"name"`
	Since          time.Time `json:"since"`
}

// RecentResponse contains ledger records, newest first.
type RecentResponse struct {
	Items []ledger.Record `json:"items"`
}

// DatabaseHealthRequest fetches ledger diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse mirrors ledger.DatabaseHealth.
type DatabaseHealthResponse struct {
	ledger.DatabaseHealth
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports whether the notification was sent.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
