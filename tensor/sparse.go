/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tensor

import (
	"fmt"
	"reflect"

	"github.com/suparena/featureloader/errors"
)

// Sparse is a COO tensor: Indices is int64 [nnz, rank], Values is [nnz].
type Sparse struct {
	Indices    *Dense
	Values     *Dense
	DenseShape []int
}

// SparseVector builds a rank-1 sparse tensor holding every element of values.
// This is how variable-length record features come out of the parser.
func SparseVector(values *Dense) (*Sparse, error) {
	if values.Rank() != 1 {
		return nil, errors.NewShapeMismatchError("sparse values", "rank 1", values.String())
	}
	n := values.shape[0]
	idx := make([]int64, n)
	for i := range idx {
		idx[i] = int64(i)
	}
	return &Sparse{
		Indices:    &Dense{dtype: Int64, shape: []int{n, 1}, data: idx},
		Values:     values,
		DenseShape: []int{n},
	}, nil
}

// Rank returns the rank of the dense tensor this sparse tensor represents.
func (s *Sparse) Rank() int { return len(s.DenseShape) }

// Validate verifies that Values is a vector and Indices holds one [rank] row per value.
func (s *Sparse) Validate() error {
	if s == nil || s.Indices == nil || s.Values == nil {
		return errors.NewShapeMismatchError("sparse tensor", "indices and values", "nil")
	}
	if s.Values.Rank() != 1 {
		return errors.NewShapeMismatchError("sparse values", "rank 1", s.Values.String())
	}
	want := []int{s.Values.Size(), s.Rank()}
	if !reflect.DeepEqual(s.Indices.shape, want) {
		return errors.NewShapeMismatchError("sparse indices", ShapeString(want), s.Indices.String())
	}
	return nil
}

// NNZ returns the number of stored values.
func (s *Sparse) NNZ() int { return s.Values.Size() }

// Equal reports whether both sparse tensors store the same entries.
func (s *Sparse) Equal(o *Sparse) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Indices.Equal(o.Indices) && s.Values.Equal(o.Values) && reflect.DeepEqual(s.DenseShape, o.DenseShape)
}

func (s *Sparse) String() string {
	return fmt.Sprintf("sparse %s nnz=%d", string(s.Values.dtype)+ShapeString(s.DenseShape), s.NNZ())
}

// StackSparse batches sparse tensors of equal rank. Every index gains a leading
// batch coordinate and the dense shape becomes [len(ss), max(dims)...].
func StackSparse(ss []*Sparse) (*Sparse, error) {
	if len(ss) == 0 {
		return nil, errors.NewValidationError("tensors", "cannot stack an empty list")
	}
	for b, s := range ss {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("stack element %d: %w", b, err)
		}
	}
	rank := ss[0].Rank()
	dtype := ss[0].Values.dtype
	denseShape := make([]int, rank+1)
	denseShape[0] = len(ss)

	var indices []int64
	values := make([]*Dense, 0, len(ss))
	for b, s := range ss {
		if s.Rank() != rank || s.Values.dtype != dtype {
			return nil, errors.NewShapeMismatchError(fmt.Sprintf("stack element %d", b), ss[0].String(), s.String())
		}
		for i, d := range s.DenseShape {
			if d > denseShape[i+1] {
				denseShape[i+1] = d
			}
		}
		idx, err := s.Indices.Int64s()
		if err != nil {
			return nil, err
		}
		for row := 0; row < s.NNZ(); row++ {
			indices = append(indices, int64(b))
			indices = append(indices, idx[row*rank:(row+1)*rank]...)
		}
		values = append(values, s.Values)
	}

	joined, err := Concat(values)
	if err != nil {
		return nil, err
	}
	if indices == nil {
		indices = []int64{}
	}
	return &Sparse{
		Indices:    &Dense{dtype: Int64, shape: []int{joined.Size(), rank + 1}, data: indices},
		Values:     joined,
		DenseShape: denseShape,
	}, nil
}
