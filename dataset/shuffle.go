/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dataset

import (
	"context"
	"math/rand/v2"

	"github.com/suparena/featureloader/errors"
)

// Shuffle randomizes element order with a sliding buffer of bufferSize
// elements: each draw returns a random buffered element and refills its slot
// from upstream. A buffer at least as large as the dataset gives a uniform
// shuffle. Each pass reseeds from seed, so passes repeat the same order.
func Shuffle[T any](ds Dataset[T], bufferSize int, seed uint64) Dataset[T] {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return Func[T](func(ctx context.Context) (Iterator[T], error) {
		up, err := ds.Iterate(ctx)
		if err != nil {
			return nil, err
		}
		return &shuffleIterator[T]{
			up:   up,
			size: bufferSize,
			rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		}, nil
	})
}

type shuffleIterator[T any] struct {
	up      Iterator[T]
	size    int
	rng     *rand.Rand
	buf     []T
	drained bool
}

func (it *shuffleIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for !it.drained && len(it.buf) < it.size {
		v, err := it.up.Next(ctx)
		if err != nil {
			if !errors.IsExhausted(err) {
				return zero, err
			}
			it.drained = true
			break
		}
		it.buf = append(it.buf, v)
	}
	if len(it.buf) == 0 {
		return zero, errors.ErrExhausted
	}

	i := it.rng.IntN(len(it.buf))
	v := it.buf[i]
	last := len(it.buf) - 1
	it.buf[i] = it.buf[last]
	it.buf[last] = zero
	it.buf = it.buf[:last]
	return v, nil
}

func (it *shuffleIterator[T]) Close() error {
	it.buf = nil
	return it.up.Close()
}

// ShuffleSlice permutes items in place. It is used for file-level shuffling
// before a pipeline is built.
func ShuffleSlice[T any](items []T, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}
