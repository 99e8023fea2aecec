//go:build !linux

package watch

import "md5watch/internal/relocate"

func newInotifySource([]relocate.Target, SourceOptions) (Source, error) {
	return nil, ErrUnsupported
}
