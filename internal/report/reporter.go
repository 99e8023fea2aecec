package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// TimestampLayout is the classification line timestamp format.
const TimestampLayout = "2006-01-02 15:04:05.000000"

const labelWidth = len("INVALID")

// Format renders one classification line without a trailing newline:
//
//	[1][2026-01-02 15:04:05.000000] MD5 GOOD    : name
//
// The source prefix is only present in dual-directory mode.
func Format(ts time.Time, c Classification, name string, tag int, dual bool) string {
	var b strings.Builder
	if dual {
		fmt.Fprintf(&b, "[%d]", tag)
	}
	b.WriteByte('[')
	b.WriteString(ts.Format(TimestampLayout))
	b.WriteString("] MD5 ")
	b.WriteString(string(c))
	for i := len(c); i < labelWidth; i++ {
		b.WriteByte(' ')
	}
	b.WriteString(" : ")
	b.WriteString(name)
	return b.String()
}

// Reporter writes classification lines. Writes are serialized and flushed
// line by line so concurrent workers never interleave output.
type Reporter struct {
	mu   sync.Mutex
	w    *bufio.Writer
	dual bool
	now  func() time.Time
}

// NewReporter builds a Reporter writing to w.
func NewReporter(w io.Writer, dual bool) *Reporter {
	return &Reporter{w: bufio.NewWriter(w), dual: dual, now: time.Now}
}

// Report writes the classification line for a result. A zero At uses the
// current local time.
func (r *Reporter) Report(res Result) error {
	ts := res.At
	if ts.IsZero() {
		ts = r.now()
	}
	line := Format(ts.Local(), res.Classification, res.Name, res.SourceTag, r.dual)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.WriteString(line); err != nil {
		return err
	}
	if err := r.w.WriteByte('\n'); err != nil {
		return err
	}
	return r.w.Flush()
}
