package hashcodec_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"md5watch/internal/hashcodec"
)

func TestComputeHashMatchesReference(t *testing.T) {
	dir := t.TempDir()
	payloads := map[string][]byte{
		"empty":       {},
		"small":       []byte("hello world\n"),
		"chunk-edge":  bytes.Repeat([]byte{0xAB}, 4096),
		"multi-chunk": bytes.Repeat([]byte("0123456789"), 1500),
	}
	hasher := hashcodec.NewHasher(4096)
	for name, data := range payloads {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			sum := md5.Sum(data)
			want := hex.EncodeToString(sum[:])

			got, err := hasher.ComputeHash(context.Background(), path)
			if err != nil {
				t.Fatalf("ComputeHash: %v", err)
			}
			if got != want {
				t.Fatalf("digest mismatch: got %s want %s", got, want)
			}
			again, err := hasher.ComputeHash(context.Background(), path)
			if err != nil || again != got {
				t.Fatalf("expected deterministic digest, got %s (%v)", again, err)
			}
		})
	}
}

func TestComputeHashEmptyFileToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := hashcodec.ComputeHash(context.Background(), path)
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	if got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("unexpected empty digest %s", got)
	}
}

func TestComputeHashMissingFile(t *testing.T) {
	_, err := hashcodec.ComputeHash(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestHashReaderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := hashcodec.NewHasher(0).HashReader(ctx, bytes.NewReader([]byte("data")))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
