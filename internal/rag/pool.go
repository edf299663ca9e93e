package rag

import (
	"context"
	"runtime"
)

// Pool bounds how many scoring goroutines run at once. It is owned by the
// Processor, sized at construction, and never resized.
type Pool struct {
	sem  chan struct{}
	size int
}

// NewPool creates a pool of the given size; non-positive sizes fall back to
// GOMAXPROCS.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		sem:  make(chan struct{}, size),
		size: size,
	}
}

func (p *Pool) Size() int {
	return p.size
}

// Acquire takes a slot, blocking until one frees or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (p *Pool) Release() {
	<-p.sem
}
