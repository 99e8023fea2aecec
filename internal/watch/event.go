package watch

// EventKind classifies a filesystem notification.
type EventKind int

const (
	KindOther EventKind = iota
	KindClosedAfterWrite
	KindClosedReadOnly
	KindMovedIn
	KindCreated
	KindDeleted
	KindMovedOut
	KindOpened
	KindAccessed
	KindOverflow
	KindWatchLost
)

var kindNames = map[EventKind]string{
	KindOther:            "other",
	KindClosedAfterWrite: "closed_after_write",
	KindClosedReadOnly:   "closed_read_only",
	KindMovedIn:          "moved_in",
	KindCreated:          "created",
	KindDeleted:          "deleted",
	KindMovedOut:         "moved_out",
	KindOpened:           "opened",
	KindAccessed:         "accessed",
	KindOverflow:         "overflow",
	KindWatchLost:        "watch_lost",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Qualifies reports whether the kind signals a completed arrival.
func (k EventKind) Qualifies() bool {
	switch k {
	case KindClosedAfterWrite, KindClosedReadOnly, KindMovedIn:
		return true
	}
	return false
}

// ArrivalEvent is a single notification for a file in a watched directory.
// Name is the base name only.
type ArrivalEvent struct {
	Name      string
	SourceTag int
	Kind      EventKind
}

// Key returns the dispatcher routing key.
func (e ArrivalEvent) Key() string {
	return e.Name
}
