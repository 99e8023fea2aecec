package hashcodec

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultChunkSize is the read size used when streaming file content.
const DefaultChunkSize = 1 << 20

// Hasher computes MD5 digests with a fixed read buffer size.
type Hasher struct {
	chunkSize int
}

// NewHasher returns a Hasher that reads chunkSize bytes at a time. Non-positive
// values select DefaultChunkSize.
func NewHasher(chunkSize int) *Hasher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Hasher{chunkSize: chunkSize}
}

// ComputeHash returns the lower-case hex MD5 digest of the file at path.
func (h *Hasher) ComputeHash(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer file.Close()
	digest, err := h.HashReader(ctx, file)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return digest, nil
}

// HashReader streams r through MD5 and returns the lower-case hex digest.
// Cancellation is checked between chunks.
func (h *Hasher) HashReader(ctx context.Context, r io.Reader) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sum := md5.New()
	buf := make([]byte, h.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			sum.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read chunk: %w", err)
		}
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// ComputeHash hashes path with the default chunk size.
func ComputeHash(ctx context.Context, path string) (string, error) {
	return NewHasher(DefaultChunkSize).ComputeHash(ctx, path)
}
