//go:build linux

package relocate

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// renameNoReplace atomically renames src to dst, failing with an fs.ErrExist
// error when dst exists. Filesystems without RENAME_NOREPLACE support fall
// back to link plus unlink.
func renameNoReplace(src, dst string) error {
	err := unix.Renameat2(unix.AT_FDCWD, src, unix.AT_FDCWD, dst, unix.RENAME_NOREPLACE)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EINVAL) {
		return linkUnlink(src, dst)
	}
	return &os.LinkError{Op: "renameat2", Old: src, New: dst, Err: err}
}
