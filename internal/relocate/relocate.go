package relocate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"md5watch/internal/fileutil"
)

// Source tags identify which watched directory produced a file.
const (
	TagPrimary   = 1
	TagSecondary = 2
)

var (
	// ErrNotFound indicates the file vanished before it could be relocated.
	ErrNotFound = errors.New("source file not found")
	// ErrCollision indicates the holding directory already contains the name.
	ErrCollision = errors.New("holding directory already contains file")
	// ErrInvalidName indicates a name that is not a plain base name.
	ErrInvalidName = errors.New("invalid file name")
)

// CollisionPolicy decides what happens when the holding directory already
// contains a file with the arriving name.
type CollisionPolicy string

const (
	CollisionRename    CollisionPolicy = "rename"
	CollisionReject    CollisionPolicy = "reject"
	CollisionOverwrite CollisionPolicy = "overwrite"
)

// Target is a watched directory and its source tag.
type Target struct {
	Path string
	Tag  int
}

// RelocatedFile describes a file that now lives in the holding directory.
type RelocatedFile struct {
	OriginalName string
	HoldingPath  string
	SourcePath   string
	SourceTag    int
	CrossDevice  bool
	Renamed      bool
}

// Options tunes relocation behaviour.
type Options struct {
	OnCollision CollisionPolicy
}

// Relocator moves files from one or two watched directories into a holding
// directory. It is safe for concurrent use with distinct names.
type Relocator struct {
	holdingDir string
	primary    Target
	secondary  *Target
	policy     CollisionPolicy
}

// New constructs a Relocator. targets must contain one or two entries; the
// entry tagged TagSecondary, if any, is preferred during resolution.
func New(holdingDir string, targets []Target, opts Options) (*Relocator, error) {
	if strings.TrimSpace(holdingDir) == "" {
		return nil, errors.New("relocate: holding directory is required")
	}
	if len(targets) == 0 || len(targets) > 2 {
		return nil, fmt.Errorf("relocate: expected 1 or 2 targets, got %d", len(targets))
	}
	r := &Relocator{holdingDir: holdingDir, policy: opts.OnCollision}
	if r.policy == "" {
		r.policy = CollisionRename
	}
	switch r.policy {
	case CollisionRename, CollisionReject, CollisionOverwrite:
	default:
		return nil, fmt.Errorf("relocate: unknown collision policy %q", r.policy)
	}

	var havePrimary bool
	for _, t := range targets {
		switch t.Tag {
		case TagPrimary:
			r.primary = t
			havePrimary = true
		case TagSecondary:
			sec := t
			r.secondary = &sec
		default:
			return nil, fmt.Errorf("relocate: unknown target tag %d", t.Tag)
		}
	}
	if !havePrimary {
		return nil, errors.New("relocate: primary target is required")
	}
	return r, nil
}

// HoldingDir returns the holding directory path.
func (r *Relocator) HoldingDir() string {
	return r.holdingDir
}

// Resolve picks the directory that currently holds name. In dual mode the
// secondary directory wins when both contain a regular file with that name.
// Symlinks are followed.
func (r *Relocator) Resolve(name string) (Target, error) {
	if err := validateName(name); err != nil {
		return Target{}, err
	}
	if r.secondary != nil && isRegular(filepath.Join(r.secondary.Path, name)) {
		return *r.secondary, nil
	}
	if r.secondary == nil || isRegular(filepath.Join(r.primary.Path, name)) {
		return r.primary, nil
	}
	return Target{}, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Relocate resolves the source of name and moves it into the holding
// directory without overwriting an existing holding file, unless the
// overwrite policy is in effect.
func (r *Relocator) Relocate(name string) (RelocatedFile, error) {
	target, err := r.Resolve(name)
	if err != nil {
		return RelocatedFile{}, err
	}
	src := filepath.Join(target.Path, name)
	result := RelocatedFile{
		OriginalName: name,
		SourcePath:   src,
		SourceTag:    target.Tag,
		HoldingPath:  filepath.Join(r.holdingDir, name),
	}

	err = r.move(src, result.HoldingPath)
	if errors.Is(err, unix.EXDEV) {
		result.CrossDevice = true
		err = r.copyAcross(src, result.HoldingPath)
	}
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return RelocatedFile{}, classifyError(name, err)
	}

	switch r.policy {
	case CollisionReject:
		return RelocatedFile{}, fmt.Errorf("%s: %w", name, ErrCollision)
	case CollisionOverwrite:
		if result.CrossDevice {
			if err := os.Remove(result.HoldingPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return RelocatedFile{}, fmt.Errorf("remove existing holding file: %w", err)
			}
			err = r.copyAcross(src, result.HoldingPath)
		} else {
			err = os.Rename(src, result.HoldingPath)
		}
		if err != nil {
			return RelocatedFile{}, classifyError(name, err)
		}
		return result, nil
	default:
		result.HoldingPath = filepath.Join(r.holdingDir, uniqueName(name))
		result.Renamed = true
		if result.CrossDevice {
			err = r.copyAcross(src, result.HoldingPath)
		} else {
			err = renameNoReplace(src, result.HoldingPath)
		}
		if err != nil {
			return RelocatedFile{}, classifyError(name, err)
		}
		return result, nil
	}
}

func (r *Relocator) move(src, dst string) error {
	return renameNoReplace(src, dst)
}

func (r *Relocator) copyAcross(src, dst string) error {
	return fileutil.MoveVerified(src, dst)
}

func classifyError(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s: %w", name, ErrCollision)
	}
	return fmt.Errorf("relocate %s: %w", name, err)
}

func uniqueName(name string) string {
	return name + "." + uuid.NewString()[:8]
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') || strings.ContainsRune(name, os.PathSeparator) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
