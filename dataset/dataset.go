/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dataset

import (
	"context"
	"fmt"

	"github.com/suparena/featureloader/errors"
)

// Iterator yields the elements of one pass over a Dataset. Next blocks until
// the element is available and returns errors.ErrExhausted once the pass is over.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, error)
	Close() error
}

// Dataset is a re-iterable source of elements. Every call to Iterate starts a
// fresh, independent pass.
type Dataset[T any] interface {
	Iterate(ctx context.Context) (Iterator[T], error)
}

// Func adapts a function to the Dataset interface.
type Func[T any] func(ctx context.Context) (Iterator[T], error)

func (f Func[T]) Iterate(ctx context.Context) (Iterator[T], error) { return f(ctx) }

// Empty returns a dataset with no elements.
func Empty[T any]() Dataset[T] {
	return FromSlice[T](nil)
}

// FromSlice returns a dataset over an in-memory slice.
func FromSlice[T any](items []T) Dataset[T] {
	return Func[T](func(ctx context.Context) (Iterator[T], error) {
		return &sliceIterator[T]{items: items}, nil
	})
}

type sliceIterator[T any] struct {
	items []T
	pos   int
}

func (it *sliceIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if it.pos >= len(it.items) {
		return zero, errors.ErrExhausted
	}
	v := it.items[it.pos]
	it.pos++
	return v, nil
}

func (it *sliceIterator[T]) Close() error { return nil }

// Map applies fn to every element.
func Map[T, U any](ds Dataset[T], fn func(T) (U, error)) Dataset[U] {
	return Func[U](func(ctx context.Context) (Iterator[U], error) {
		up, err := ds.Iterate(ctx)
		if err != nil {
			return nil, err
		}
		return &mapIterator[T, U]{up: up, fn: fn}, nil
	})
}

type mapIterator[T, U any] struct {
	up Iterator[T]
	fn func(T) (U, error)
	n  int
}

func (it *mapIterator[T, U]) Next(ctx context.Context) (U, error) {
	var zero U
	v, err := it.up.Next(ctx)
	if err != nil {
		return zero, err
	}
	out, err := it.fn(v)
	if err != nil {
		return zero, fmt.Errorf("element %d: %w", it.n, err)
	}
	it.n++
	return out, nil
}

func (it *mapIterator[T, U]) Close() error { return it.up.Close() }

// RepeatForever makes Repeat cycle through the dataset indefinitely.
const RepeatForever = -1

// Repeat iterates ds count times, or indefinitely when count is negative.
// An epoch that yields nothing ends the repetition, so repeating an empty
// dataset terminates.
func Repeat[T any](ds Dataset[T], count int) Dataset[T] {
	return Func[T](func(ctx context.Context) (Iterator[T], error) {
		return &repeatIterator[T]{ds: ds, remaining: count}, nil
	})
}

type repeatIterator[T any] struct {
	ds        Dataset[T]
	remaining int
	cur       Iterator[T]
	yielded   bool
	done      bool
}

func (it *repeatIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		if it.done {
			return zero, errors.ErrExhausted
		}
		if it.cur == nil {
			if it.remaining == 0 {
				it.done = true
				continue
			}
			cur, err := it.ds.Iterate(ctx)
			if err != nil {
				return zero, err
			}
			it.cur = cur
			it.yielded = false
			if it.remaining > 0 {
				it.remaining--
			}
		}

		v, err := it.cur.Next(ctx)
		if err == nil {
			it.yielded = true
			return v, nil
		}
		if !errors.IsExhausted(err) {
			return zero, err
		}
		if cerr := it.cur.Close(); cerr != nil {
			return zero, cerr
		}
		it.cur = nil
		if !it.yielded {
			it.done = true
		}
	}
}

func (it *repeatIterator[T]) Close() error {
	it.done = true
	if it.cur == nil {
		return nil
	}
	err := it.cur.Close()
	it.cur = nil
	return err
}

// Collect drains an iterator into a slice.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	var out []T
	for {
		v, err := it.Next(ctx)
		if err != nil {
			if errors.IsExhausted(err) {
				return out, nil
			}
			return out, err
		}
		out = append(out, v)
	}
}
