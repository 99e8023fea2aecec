package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"md5watch/internal/report"
	"md5watch/internal/testsupport"
)

func TestCheckClassifiesInPlace(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()

	content := []byte("payload")
	goodName := testsupport.TokenName(content, "_good.bin")
	good := testsupport.WriteFile(t, dir, goodName, content)
	badName := testsupport.TokenName([]byte("other"), "_bad.bin")
	bad := testsupport.WriteFile(t, dir, badName, content)
	invalid := testsupport.WriteFile(t, dir, "no-token.bin", content)

	out, _, err := runCLI(t, context.Background(), env, "check", good, bad, invalid)
	if !errors.Is(err, errCheckFailed) {
		t.Fatalf("expected errCheckFailed, got %v", err)
	}
	requireContains(t, out, "] MD5 GOOD    : "+goodName)
	requireContains(t, out, "] MD5 BAD     : "+badName)
	requireContains(t, out, "] MD5 INVALID : no-token.bin")

	for _, path := range []string{good, bad, invalid} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("check must not move %s: %v", path, err)
		}
	}
}

func TestCheckAllGoodSucceeds(t *testing.T) {
	env := setupCLITestEnv(t)
	content := []byte("fine")
	name := testsupport.TokenName(content, "")
	path := testsupport.WriteFile(t, t.TempDir(), name, content)

	out, _, err := runCLI(t, context.Background(), env, "check", path)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "MD5 GOOD    : "+name)
}

func TestCheckJSONIncludesErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	content := []byte("json")
	name := testsupport.TokenName(content, ".dat")
	path := testsupport.WriteFile(t, t.TempDir(), name, content)
	missing := path + ".missing"

	out, _, err := runCLI(t, context.Background(), env, "check", "--json", path, missing)
	if !errors.Is(err, errCheckFailed) {
		t.Fatalf("expected errCheckFailed, got %v", err)
	}
	var outcomes []checkOutcome
	if err := json.Unmarshal([]byte(out), &outcomes); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Result.Classification != report.Good || outcomes[0].Result.Expected != testsupport.MD5Hex(content) {
		t.Fatalf("unexpected first outcome: %+v", outcomes[0])
	}
	if outcomes[1].Error == "" {
		t.Fatalf("expected error for missing file: %+v", outcomes[1])
	}
}
