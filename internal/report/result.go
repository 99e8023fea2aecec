package report

import (
	"strings"
	"time"
)

// Classification is the terminal verdict for an arriving file.
type Classification string

const (
	Good    Classification = "GOOD"
	Bad     Classification = "BAD"
	Invalid Classification = "INVALID"
)

// Valid reports whether c is one of the known classifications.
func (c Classification) Valid() bool {
	switch c {
	case Good, Bad, Invalid:
		return true
	}
	return false
}

// ParseClassification accepts any case and returns the canonical value.
func ParseClassification(value string) (Classification, bool) {
	c := Classification(strings.ToUpper(strings.TrimSpace(value)))
	return c, c.Valid()
}

// Result describes a single processed arrival.
type Result struct {
	Sequence       uint64         `json:"seq,omitempty"`
	Name           string         `json:"name"`
	SourceTag      int            `json:"source_tag"`
	Classification Classification `json:"classification"`
	Expected       string         `json:"expected,omitempty"`
	Actual         string         `json:"actual,omitempty"`
	HoldingPath    string         `json:"holding_path"`
	Retained       bool           `json:"retained"`
	Size           int64          `json:"size"`
	Duration       time.Duration  `json:"duration_ns"`
	At             time.Time      `json:"at"`
	RunID          string         `json:"run_id,omitempty"`
}
