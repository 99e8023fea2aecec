package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"md5watch/internal/ledger"
	"md5watch/internal/relocate"
	"md5watch/internal/report"
	"md5watch/internal/testsupport"
)

func seedLedger(t *testing.T, env *cliTestEnv) {
	t.Helper()
	testsupport.MustPrepare(t, env.cfg)
	store := testsupport.MustOpenLedger(t, env.cfg)
	now := time.Now()
	for _, res := range []report.Result{
		{Name: "ancient.bin", SourceTag: relocate.TagPrimary, Classification: report.Good, At: now.Add(-72 * time.Hour)},
		{Name: "broken.bin", SourceTag: relocate.TagSecondary, Classification: report.Bad, At: now.Add(-time.Hour), Size: 2048},
		{Name: "fresh.bin", SourceTag: relocate.TagPrimary, Classification: report.Good, At: now.Add(-time.Minute)},
	} {
		if _, err := store.Record(context.Background(), res); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
}

func TestHistoryListsLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	seedLedger(t, env)
	ctx := context.Background()

	out, _, err := runCLI(t, ctx, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "ancient.bin")
	requireContains(t, out, "broken.bin")
	requireContains(t, out, "secondary")
	requireContains(t, out, "2.0 KiB")
	requireContains(t, out, "3 of 3 records: 2 Good, 1 Bad, 0 Invalid")

	out, _, err = runCLI(t, ctx, env, "history", "--classification", "bad")
	if err != nil {
		t.Fatalf("history --classification: %v", err)
	}
	requireContains(t, out, "broken.bin")
	requireNotContains(t, out, "fresh.bin")

	out, _, err = runCLI(t, ctx, env, "history", "--since", "24h", "--json")
	if err != nil {
		t.Fatalf("history --since: %v", err)
	}
	var records []ledger.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(records) != 2 || records[0].Name != "fresh.bin" {
		t.Fatalf("unexpected records: %+v", records)
	}

	if _, _, err := runCLI(t, ctx, env, "history", "--classification", "maybe"); err == nil {
		t.Fatal("expected error for unknown classification")
	}
}

func TestHistoryPurge(t *testing.T) {
	env := setupCLITestEnv(t)
	seedLedger(t, env)
	ctx := context.Background()

	out, _, err := runCLI(t, ctx, env, "history", "--purge-older-than", "48h")
	if err != nil {
		t.Fatalf("history purge: %v", err)
	}
	requireContains(t, out, "Purged 1 records")

	out, _, err = runCLI(t, ctx, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireNotContains(t, out, "ancient.bin")
}

func TestHistoryWithoutLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, context.Background(), env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No ledger at")
}
