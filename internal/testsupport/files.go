package testsupport

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to dir/name and returns the full path.
func WriteFile(t testing.TB, dir, name string, content []byte) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// MD5Hex returns the lowercase hex MD5 digest of content.
func MD5Hex(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

// TokenName builds a filename whose leading token is the digest of content.
func TokenName(content []byte, suffix string) string {
	return MD5Hex(content) + suffix
}
