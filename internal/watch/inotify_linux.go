//go:build linux

package watch

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"md5watch/internal/relocate"
)

const (
	arrivalMask = unix.IN_CLOSE_WRITE | unix.IN_CLOSE_NOWRITE | unix.IN_MOVED_TO |
		unix.IN_CREATE | unix.IN_DELETE | unix.IN_ONLYDIR
	drainMask = unix.IN_OPEN | unix.IN_ACCESS | unix.IN_CLOSE_NOWRITE |
		unix.IN_MOVED_FROM | unix.IN_DELETE | unix.IN_ONLYDIR
	readBufferSize = 256 * (unix.SizeofInotifyEvent + unix.NAME_MAX + 1)
)

type inotifySource struct {
	fd     int
	wake   [2]int
	tags   map[int32]int
	events chan ArrivalEvent
	errs   chan error
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newInotifySource(targets []relocate.Target, opts SourceOptions) (Source, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify init: %w", err)
	}
	s := &inotifySource{
		fd:     fd,
		tags:   make(map[int32]int, len(targets)),
		events: make(chan ArrivalEvent, 1024),
		errs:   make(chan error, 8),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if err := unix.Pipe2(s.wake[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("inotify wake pipe: %w", err)
	}

	mask := uint32(arrivalMask)
	if opts.Drain {
		mask = drainMask
	}
	for _, target := range targets {
		wd, err := unix.InotifyAddWatch(fd, target.Path, mask)
		if err != nil {
			s.closeFDs()
			return nil, fmt.Errorf("watch %s: %w", target.Path, err)
		}
		s.tags[int32(wd)] = target.Tag
	}

	go s.run()
	return s, nil
}

func (s *inotifySource) Events() <-chan ArrivalEvent { return s.events }

func (s *inotifySource) Errors() <-chan error { return s.errs }

func (s *inotifySource) Close() error {
	s.once.Do(func() {
		close(s.stop)
		_, _ = unix.Write(s.wake[1], []byte{0})
		<-s.done
		s.closeFDs()
	})
	return nil
}

func (s *inotifySource) closeFDs() {
	_ = unix.Close(s.fd)
	_ = unix.Close(s.wake[0])
	_ = unix.Close(s.wake[1])
}

func (s *inotifySource) run() {
	defer close(s.done)
	defer close(s.events)

	buf := make([]byte, readBufferSize)
	fds := []unix.PollFd{
		{Fd: int32(s.fd), Events: unix.POLLIN},
		{Fd: int32(s.wake[0]), Events: unix.POLLIN},
	}
	for {
		fds[0].Revents, fds[1].Revents = 0, 0
		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			s.reportError(fmt.Errorf("inotify poll: %w", err))
			return
		}
		if fds[1].Revents != 0 {
			return
		}
		if fds[0].Revents&unix.POLLIN == 0 {
			continue
		}
		n, err := unix.Read(s.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			s.reportError(fmt.Errorf("inotify read: %w", err))
			return
		}
		if !s.dispatch(buf[:n]) {
			return
		}
	}
}

// dispatch parses a read buffer and forwards each event. It returns false
// once the source is stopping.
func (s *inotifySource) dispatch(buf []byte) bool {
	for offset := 0; offset+unix.SizeofInotifyEvent <= len(buf); {
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		start := offset + unix.SizeofInotifyEvent
		end := start + int(raw.Len)
		if end > len(buf) {
			return true
		}
		name := strings.TrimRight(string(buf[start:end]), "\x00")
		offset = end

		if raw.Mask&unix.IN_ISDIR != 0 {
			continue
		}
		ev := ArrivalEvent{Name: name, SourceTag: s.tags[raw.Wd], Kind: kindFromMask(raw.Mask)}
		select {
		case s.events <- ev:
		case <-s.stop:
			return false
		}
	}
	return true
}

func (s *inotifySource) reportError(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

func kindFromMask(mask uint32) EventKind {
	switch {
	case mask&unix.IN_Q_OVERFLOW != 0:
		return KindOverflow
	case mask&unix.IN_IGNORED != 0:
		return KindWatchLost
	case mask&unix.IN_CLOSE_WRITE != 0:
		return KindClosedAfterWrite
	case mask&unix.IN_CLOSE_NOWRITE != 0:
		return KindClosedReadOnly
	case mask&unix.IN_MOVED_TO != 0:
		return KindMovedIn
	case mask&unix.IN_CREATE != 0:
		return KindCreated
	case mask&unix.IN_DELETE != 0:
		return KindDeleted
	case mask&unix.IN_MOVED_FROM != 0:
		return KindMovedOut
	case mask&unix.IN_OPEN != 0:
		return KindOpened
	case mask&unix.IN_ACCESS != 0:
		return KindAccessed
	default:
		return KindOther
	}
}
