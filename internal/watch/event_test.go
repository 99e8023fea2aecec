package watch_test

import (
	"testing"

	"md5watch/internal/watch"
)

func TestKindQualifies(t *testing.T) {
	tests := []struct {
		kind watch.EventKind
		want bool
	}{
		{watch.KindClosedAfterWrite, true},
		{watch.KindClosedReadOnly, true},
		{watch.KindMovedIn, true},
		{watch.KindCreated, false},
		{watch.KindDeleted, false},
		{watch.KindMovedOut, false},
		{watch.KindOpened, false},
		{watch.KindOverflow, false},
		{watch.KindOther, false},
	}
	for _, tt := range tests {
		if got := tt.kind.Qualifies(); got != tt.want {
			t.Errorf("%s.Qualifies() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
