package watcher

import "time"

// fired is a settle timer expiry for one path. seq identifies the timer so
// an expiry already in flight when the file changed again can be ignored.
type fired struct {
	path string
	seq  uint64
}

type pendingFile struct {
	timer *time.Timer
	seq   uint64
}

// settler holds new files until they have been quiet for wait. It is used
// from a single goroutine; only the timers run elsewhere.
type settler struct {
	wait    time.Duration
	seq     uint64
	pending map[string]*pendingFile
	ready   chan fired
	done    chan struct{}
}

func newSettler(wait time.Duration) *settler {
	return &settler{
		wait:    wait,
		pending: make(map[string]*pendingFile),
		ready:   make(chan fired),
		done:    make(chan struct{}),
	}
}

// touch starts or restarts the quiet period for path
func (s *settler) touch(path string) {
	if p, ok := s.pending[path]; ok {
		p.timer.Stop()
	}
	s.seq++
	f := fired{path: path, seq: s.seq}
	timer := time.AfterFunc(s.wait, func() {
		select {
		case s.ready <- f:
		case <-s.done:
		}
	})
	s.pending[path] = &pendingFile{timer: timer, seq: f.seq}
}

// has reports whether path is waiting to settle
func (s *settler) has(path string) bool {
	_, ok := s.pending[path]
	return ok
}

// forget drops path without handing it on
func (s *settler) forget(path string) {
	if p, ok := s.pending[path]; ok {
		p.timer.Stop()
		delete(s.pending, path)
	}
}

// take reports whether f is the current timer for its path and, if so,
// removes the path from the pending set
func (s *settler) take(f fired) bool {
	p, ok := s.pending[f.path]
	if !ok || p.seq != f.seq {
		return false
	}
	delete(s.pending, f.path)
	return true
}

// stop releases all timers
func (s *settler) stop() {
	close(s.done)
	for _, p := range s.pending {
		p.timer.Stop()
	}
}
