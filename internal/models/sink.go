package models

import (
	"bytes"
	"strings"
	"sync"
)

// OutputSink is an append-only accumulator for one subprocess stream.
// It accepts writes until Finalize is called by the exit event; after
// that the text is frozen and late writes from a draining pipe are
// dropped, so consumers never observe a partially written buffer.
type OutputSink struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	final   string
	done    bool
	watches []*sinkWatch
}

type sinkWatch struct {
	marker  string
	fulfill func(struct{})
}

func NewOutputSink() *OutputSink {
	return &OutputSink{}
}

// Write implements io.Writer for exec.Cmd stream wiring.
func (s *OutputSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return len(p), nil
	}
	s.buf.Write(p)

	if len(s.watches) == 0 {
		return len(p), nil
	}
	text := s.buf.String()
	remaining := s.watches[:0]
	for _, w := range s.watches {
		if strings.Contains(text, w.marker) {
			w.fulfill(struct{}{})
			continue
		}
		remaining = append(remaining, w)
	}
	s.watches = remaining
	return len(p), nil
}

// WatchFor returns a Future fulfilled as soon as the accumulated text
// contains marker. If the marker is already present the future is
// fulfilled before WatchFor returns. A sink finalized without the
// marker ever appearing leaves the future pending forever; callers race
// it against the process exit future.
func (s *OutputSink) WatchFor(marker string) *Future[struct{}] {
	f, fulfill := Completable[struct{}](nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.Contains(s.buf.String(), marker) {
		fulfill(struct{}{})
		return f
	}
	if !s.done {
		s.watches = append(s.watches, &sinkWatch{marker: marker, fulfill: fulfill})
	}
	return f
}

// Finalize freezes the accumulated text and returns it. The first call
// wins; later calls return the same snapshot.
func (s *OutputSink) Finalize() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.final = s.buf.String()
		s.done = true
		s.watches = nil
	}
	return s.final
}

// Len reports the number of bytes accumulated so far.
func (s *OutputSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return len(s.final)
	}
	return s.buf.Len()
}
