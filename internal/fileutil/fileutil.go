package fileutil

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// CopyVerified copies src into a new file dst, then reads dst back and
// compares length and xxhash digest with what was read from src. dst must not
// exist and is removed on any failure.
func CopyVerified(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(dst)
		}
	}()

	srcDigest := xxhash.New()
	written, err := io.Copy(out, io.TeeReader(in, srcDigest))
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err = out.Sync(); err != nil {
		return fmt.Errorf("sync copy: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}
	if written != info.Size() {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}

	dstSum, dstSize, err := digestFile(dst)
	if err != nil {
		return fmt.Errorf("read back copy: %w", err)
	}
	if dstSize != written || dstSum != srcDigest.Sum64() {
		return fmt.Errorf("copy digest mismatch: %s differs from %s", dst, src)
	}
	return nil
}

// MoveVerified moves src to dst across filesystems: a verified copy followed
// by removal of src. When src cannot be removed the copy is rolled back so the
// file has exactly one owner.
func MoveVerified(src, dst string) error {
	if err := CopyVerified(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func digestFile(path string) (uint64, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	d := xxhash.New()
	n, err := io.Copy(d, f)
	if err != nil {
		return 0, 0, err
	}
	return d.Sum64(), n, nil
}
