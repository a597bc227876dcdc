package models

import (
	"context"
)

// Future is a one-shot completion signal. The producer sends exactly one
// value on the channel (a process exit, a readiness marker match) and the
// consumer races C() against timers or other futures in a select. Stop
// cancels the producer's context.
type Future[T any] struct {
	input  chan T
	cancel context.CancelFunc
}

func NewFuture[T any](input chan T, cancel context.CancelFunc) *Future[T] {
	return &Future[T]{
		input:  input,
		cancel: cancel,
	}
}

// Completable builds a Future together with its fulfill function. The
// channel is buffered so the producer never blocks on a consumer that
// already moved on; the channel is closed after the single send, so a
// second fulfill panics instead of silently overwriting the result.
func Completable[T any](cancel context.CancelFunc) (*Future[T], func(T)) {
	c := make(chan T, 1)
	f := NewFuture(c, cancel)
	return f, func(v T) {
		c <- v
		close(c)
	}
}

func (f *Future[T]) C() chan T {
	return f.input
}

func (f *Future[T]) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
}
