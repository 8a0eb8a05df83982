/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dataset

import (
	"context"

	"github.com/suparena/featureloader/errors"
)

type result[T any] struct {
	v   T
	err error
}

// Prefetch reads up to size elements ahead of the consumer on a background
// worker. Elements are delivered in upstream order; size <= 0 returns ds unchanged.
func Prefetch[T any](ds Dataset[T], size int) Dataset[T] {
	if size <= 0 {
		return ds
	}
	return Func[T](func(ctx context.Context) (Iterator[T], error) {
		up, err := ds.Iterate(ctx)
		if err != nil {
			return nil, err
		}
		wctx, cancel := context.WithCancel(ctx)
		it := &prefetchIterator[T]{
			ch:     make(chan result[T], size),
			cancel: cancel,
			done:   make(chan struct{}),
		}
		go it.worker(wctx, up)
		return it, nil
	})
}

type prefetchIterator[T any] struct {
	ch       chan result[T]
	cancel   context.CancelFunc
	done     chan struct{}
	closeErr error
	last     error
}

// worker owns the upstream iterator and stops at the first error, including
// exhaustion, after handing it to the consumer.
func (it *prefetchIterator[T]) worker(ctx context.Context, up Iterator[T]) {
	defer close(it.done)
	defer close(it.ch)
	defer func() { it.closeErr = up.Close() }()

	for {
		v, err := up.Next(ctx)
		select {
		case <-ctx.Done():
			return
		case it.ch <- result[T]{v: v, err: err}:
		}
		if err != nil {
			return
		}
	}
}

func (it *prefetchIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if it.last != nil {
		return zero, it.last
	}
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r, ok := <-it.ch:
		if !ok {
			it.last = errors.ErrExhausted
			return zero, it.last
		}
		if r.err != nil {
			it.last = r.err
		}
		return r.v, r.err
	}
}

// Close stops the worker and waits for it to release the upstream iterator.
func (it *prefetchIterator[T]) Close() error {
	it.cancel()
	<-it.done
	return it.closeErr
}
