package relocate

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// linkUnlink emulates a no-replace rename with a hard link followed by
// removal of the source. Filesystems without hard links get an existence
// check and a plain rename.
func linkUnlink(src, dst string) error {
	err := os.Link(src, dst)
	if err == nil {
		if rmErr := os.Remove(src); rmErr != nil {
			_ = os.Remove(dst)
			return rmErr
		}
		return nil
	}
	if errors.Is(err, fs.ErrExist) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, unix.EXDEV) {
		return err
	}
	if _, statErr := os.Lstat(dst); statErr == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}
	return os.Rename(src, dst)
}
