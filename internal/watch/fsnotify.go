package watch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"md5watch/internal/relocate"
)

const defaultSettle = 250 * time.Millisecond

type pendingFile struct {
	timer *time.Timer
	gen   uint64
	wrote bool
	event ArrivalEvent
}

// fsnotifySource reports a file once it has been quiet for the settle
// interval: written files as KindClosedAfterWrite, files that appeared
// without writes (renamed into place) as KindMovedIn.
type fsnotifySource struct {
	watcher *fsnotify.Watcher
	tags    map[string]int
	settle  time.Duration
	drain   bool
	events  chan ArrivalEvent
	errs    chan error
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	pending map[string]*pendingFile
	closed  bool
	firing  sync.WaitGroup
}

func newFsnotifySource(targets []relocate.Target, opts SourceOptions) (Source, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify init: %w", err)
	}
	settle := opts.Settle
	if settle <= 0 {
		settle = defaultSettle
	}
	s := &fsnotifySource{
		watcher: w,
		tags:    make(map[string]int, len(targets)),
		settle:  settle,
		drain:   opts.Drain,
		events:  make(chan ArrivalEvent, 1024),
		errs:    make(chan error, 8),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		pending: make(map[string]*pendingFile),
	}
	for _, target := range targets {
		dir := filepath.Clean(target.Path)
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		s.tags[dir] = target.Tag
	}
	go s.run()
	return s, nil
}

func (s *fsnotifySource) Events() <-chan ArrivalEvent { return s.events }

func (s *fsnotifySource) Errors() <-chan error { return s.errs }

func (s *fsnotifySource) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		for _, p := range s.pending {
			p.timer.Stop()
		}
		s.pending = nil
		s.mu.Unlock()

		close(s.stop)
		err = s.watcher.Close()
		<-s.done
		s.firing.Wait()
		close(s.events)
	})
	return err
}

func (s *fsnotifySource) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				s.emit(ArrivalEvent{Kind: KindOverflow})
				continue
			}
			select {
			case s.errs <- err:
			default:
			}
		}
	}
}

func (s *fsnotifySource) handle(ev fsnotify.Event) {
	tag, ok := s.tags[filepath.Dir(ev.Name)]
	if !ok {
		return
	}
	name := filepath.Base(ev.Name)
	base := ArrivalEvent{Name: name, SourceTag: tag}

	switch {
	case ev.Has(fsnotify.Remove):
		s.forget(ev.Name)
		base.Kind = KindDeleted
		s.emit(base)
	case ev.Has(fsnotify.Rename):
		s.forget(ev.Name)
		base.Kind = KindMovedOut
		s.emit(base)
	case s.drain:
		// Read-side events are invisible to fsnotify; writes and creates are
		// still forwarded so the drain timer re-checks the directory.
		base.Kind = KindOther
		s.emit(base)
	case ev.Has(fsnotify.Create):
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			return
		}
		base.Kind = KindCreated
		s.emit(base)
		s.touch(ev.Name, base, false)
	case ev.Has(fsnotify.Write):
		s.touch(ev.Name, base, true)
	}
}

func (s *fsnotifySource) touch(path string, ev ArrivalEvent, wrote bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	p, ok := s.pending[path]
	if !ok {
		p = &pendingFile{event: ev}
		s.pending[path] = p
	} else {
		p.timer.Stop()
	}
	p.wrote = p.wrote || wrote
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(s.settle, func() { s.fire(path, gen) })
}

func (s *fsnotifySource) fire(path string, gen uint64) {
	s.mu.Lock()
	p, ok := s.pending[path]
	if !ok || p.gen != gen || s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.pending, path)
	s.firing.Add(1)
	s.mu.Unlock()
	defer s.firing.Done()

	ev := p.event
	ev.Kind = KindMovedIn
	if p.wrote {
		ev.Kind = KindClosedAfterWrite
	}
	s.emit(ev)
}

func (s *fsnotifySource) forget(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[path]; ok {
		p.timer.Stop()
		delete(s.pending, path)
	}
}

func (s *fsnotifySource) emit(ev ArrivalEvent) {
	select {
	case s.events <- ev:
	case <-s.stop:
	}
}
