package watch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"md5watch/internal/relocate"
)

// Backend names.
const (
	BackendInotify  = "inotify"
	BackendFsnotify = "fsnotify"
)

// ErrUnsupported is returned when a backend is unavailable on this platform.
var ErrUnsupported = errors.New("watch backend not supported on this platform")

// Source delivers filesystem events for the watched targets. Events is closed
// once the source stops.
type Source interface {
	Events() <-chan ArrivalEvent
	Errors() <-chan error
	Close() error
}

// SourceOptions tunes a Source.
type SourceOptions struct {
	// Settle is how long a file must stay quiet before the fsnotify backend
	// reports it.
	Settle time.Duration
	// Drain subscribes to read-side events (open, access, delete, move-out)
	// instead of arrival events.
	Drain bool
}

// OpenSource opens the named backend. An unavailable inotify backend falls
// back to fsnotify; the returned name is the backend actually in use.
func OpenSource(backend string, targets []relocate.Target, opts SourceOptions) (Source, string, error) {
	if len(targets) == 0 {
		return nil, "", errors.New("watch: no targets")
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendInotify:
		src, err := newInotifySource(targets, opts)
		if err == nil {
			return src, BackendInotify, nil
		}
		if !errors.Is(err, ErrUnsupported) {
			return nil, "", err
		}
		src, err = newFsnotifySource(targets, opts)
		if err != nil {
			return nil, "", err
		}
		return src, BackendFsnotify, nil
	case BackendFsnotify:
		src, err := newFsnotifySource(targets, opts)
		if err != nil {
			return nil, "", err
		}
		return src, BackendFsnotify, nil
	default:
		return nil, "", fmt.Errorf("watch: unknown backend %q", backend)
	}
}
