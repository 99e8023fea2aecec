package ledger_test

import (
	"context"
	"testing"
	"time"

	"md5watch/internal/ledger"
	"md5watch/internal/report"
	"md5watch/internal/testsupport"
)

func TestRecordAndRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	inputs := []report.Result{
		{Name: "a", SourceTag: 1, Classification: report.Good, Expected: "x", Actual: "x", At: base, Size: 10, Duration: 1500 * time.Millisecond},
		{Name: "b", SourceTag: 2, Classification: report.Bad, Expected: "x", Actual: "y", At: base.Add(time.Second)},
		{Name: "c", SourceTag: 1, Classification: report.Invalid, At: base.Add(2 * time.Second), Retained: true},
	}
	for _, in := range inputs {
		id, err := store.Record(ctx, in)
		if err != nil {
			t.Fatalf("Record(%s): %v", in.Name, err)
		}
		if id == 0 {
			t.Fatalf("expected row ID for %s", in.Name)
		}
	}

	recent, err := store.Recent(ctx, 10, ledger.Filter{})
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 || recent[0].Name != "c" || recent[2].Name != "a" {
		t.Fatalf("unexpected order: %+v", recent)
	}
	if !recent[0].Retained || recent[2].Duration != 1500*time.Millisecond || !recent[2].At.Equal(base) {
		t.Fatalf("fields did not round trip: %+v", recent)
	}

	bad, err := store.Recent(ctx, 10, ledger.Filter{Classification: report.Bad})
	if err != nil {
		t.Fatalf("Recent filtered: %v", err)
	}
	if len(bad) != 1 || bad[0].Name != "b" || bad[0].SourceTag != 2 || bad[0].Actual != "y" {
		t.Fatalf("unexpected filtered result: %+v", bad)
	}
}

func TestRecordRejectsUnknownClassification(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	if _, err := store.Record(context.Background(), report.Result{Name: "x", Classification: "MAYBE"}); err == nil {
		t.Fatal("expected error for unknown classification")
	}
}

func TestStatsAndPurge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()
	for _, in := range []report.Result{
		{Name: "old-good", Classification: report.Good, At: old},
		{Name: "new-good", Classification: report.Good, At: fresh},
		{Name: "new-bad", Classification: report.Bad, At: fresh},
	} {
		if _, err := store.Record(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Good != 2 || stats.Bad != 1 || stats.Invalid != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if !stats.First.Before(stats.Last) {
		t.Fatalf("expected time span, got %v..%v", stats.First, stats.Last)
	}

	removed, err := store.Purge(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged row, got %d", removed)
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || health.IntegrityCheck != "ok" || health.SchemaVersion != 1 {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Record(context.Background(), report.Result{Name: "kept", Classification: report.Good}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened := testsupport.MustOpenLedger(t, cfg)
	recs, err := reopened.Recent(context.Background(), 5, ledger.Filter{Name: "kept"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected history to survive reopen, got %d rows", len(recs))
	}
}
