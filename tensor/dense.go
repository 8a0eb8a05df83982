/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tensor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/suparena/featureloader/errors"
)

// Dense is an immutable n-dimensional array stored row-major in a flat typed slice.
type Dense struct {
	dtype DType
	shape []int
	data  any
}

// New wraps a flat typed slice with the given shape. The dtype is taken from the
// slice type and the element count must match the shape.
func New(data any, shape ...int) (*Dense, error) {
	dtype, n, err := dtypeOf(data)
	if err != nil {
		return nil, err
	}
	want, err := elementCount(shape)
	if err != nil {
		return nil, err
	}
	if want != n {
		return nil, errors.NewShapeMismatchError("tensor",
			fmt.Sprintf("%d elements for shape %s", want, ShapeString(shape)),
			fmt.Sprintf("%d elements", n))
	}
	return &Dense{dtype: dtype, shape: cloneShape(shape), data: data}, nil
}

// Must panics if err is non-nil. It is meant for literals in tests and examples.
func Must(t *Dense, err error) *Dense {
	if err != nil {
		panic(err)
	}
	return t
}

// Zeros returns a zero-filled tensor.
func Zeros(dtype DType, shape ...int) *Dense {
	return &Dense{dtype: dtype, shape: cloneShape(shape), data: makeData(dtype, numElements(shape))}
}

// FromBytes decodes little-endian raw bytes into a tensor of the given dtype and shape.
func FromBytes(dtype DType, shape []int, raw []byte) (*Dense, error) {
	if !dtype.Valid() {
		return nil, errors.NewValidationError("dtype", fmt.Sprintf("unsupported dtype %q", dtype))
	}
	n, err := elementCount(shape)
	if err != nil {
		return nil, err
	}
	if len(raw) != n*dtype.Size() {
		return nil, errors.NewShapeMismatchError("raw tensor",
			fmt.Sprintf("%d bytes for %s%s", n*dtype.Size(), dtype, ShapeString(shape)),
			fmt.Sprintf("%d bytes", len(raw)))
	}
	data := makeData(dtype, n)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("decode %s tensor: %w", dtype, err)
	}
	return &Dense{dtype: dtype, shape: cloneShape(shape), data: data}, nil
}

// Bytes encodes the tensor data as little-endian raw bytes.
func (t *Dense) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(t.Size() * t.dtype.Size())
	// writes to a bytes.Buffer of a fixed-size slice cannot fail
	_ = binary.Write(&buf, binary.LittleEndian, t.data)
	return buf.Bytes()
}

func (t *Dense) DType() DType { return t.dtype }

// Shape returns a copy of the tensor dimensions.
func (t *Dense) Shape() []int { return cloneShape(t.shape) }

func (t *Dense) Rank() int { return len(t.shape) }

// Size returns the number of elements.
func (t *Dense) Size() int { return numElements(t.shape) }

// Data returns the flat backing slice. Callers must not modify it.
func (t *Dense) Data() any { return t.data }

// Reshape returns a tensor sharing t's data with a new shape. At most one
// dimension may be -1 and is inferred.
func (t *Dense) Reshape(shape ...int) (*Dense, error) {
	shape = cloneShape(shape)
	infer := -1
	known := 1
	for i, d := range shape {
		if d == -1 {
			if infer >= 0 {
				return nil, errors.NewValidationError("shape", "only one dimension may be inferred")
			}
			infer = i
			continue
		}
		known *= d
	}
	if infer >= 0 {
		if known == 0 || t.Size()%known != 0 {
			return nil, errors.NewShapeMismatchError("reshape", ShapeString(shape), t.String())
		}
		shape[infer] = t.Size() / known
	}
	if numElements(shape) != t.Size() {
		return nil, errors.NewShapeMismatchError("reshape", ShapeString(shape), t.String())
	}
	return &Dense{dtype: t.dtype, shape: shape, data: t.data}, nil
}

// Int64s returns the elements widened to int64. Only integer tensors qualify.
func (t *Dense) Int64s() ([]int64, error) {
	switch v := t.data.(type) {
	case []int64:
		out := make([]int64, len(v))
		copy(out, v)
		return out, nil
	case []int32:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return out, nil
	case []uint8:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return out, nil
	}
	return nil, errors.NewShapeMismatchError("tensor", "integer dtype", string(t.dtype))
}

// AddScalar returns t + delta for integer tensors.
func (t *Dense) AddScalar(delta int64) (*Dense, error) {
	switch v := t.data.(type) {
	case []int64:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = x + delta
		}
		return &Dense{dtype: t.dtype, shape: cloneShape(t.shape), data: out}, nil
	case []int32:
		out := make([]int32, len(v))
		for i, x := range v {
			out[i] = x + int32(delta)
		}
		return &Dense{dtype: t.dtype, shape: cloneShape(t.shape), data: out}, nil
	}
	return nil, errors.NewShapeMismatchError("tensor", "int32 or int64", string(t.dtype))
}

// Equal reports whether both tensors have the same dtype, shape and elements.
func (t *Dense) Equal(o *Dense) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.dtype == o.dtype && reflect.DeepEqual(t.shape, o.shape) && reflect.DeepEqual(t.data, o.data)
}

// String renders the tensor signature, e.g. "float32[4 4]".
func (t *Dense) String() string {
	return string(t.dtype) + ShapeString(t.shape)
}

// Stack joins same-shaped tensors along a new leading dimension.
func Stack(ts []*Dense) (*Dense, error) {
	if len(ts) == 0 {
		return nil, errors.NewValidationError("tensors", "cannot stack an empty list")
	}
	first := ts[0]
	parts := make([]any, len(ts))
	for i, t := range ts {
		if t.dtype != first.dtype || !reflect.DeepEqual(t.shape, first.shape) {
			return nil, errors.NewShapeMismatchError(fmt.Sprintf("stack element %d", i), first.String(), t.String())
		}
		parts[i] = t.data
	}
	shape := append([]int{len(ts)}, first.shape...)
	return &Dense{dtype: first.dtype, shape: shape, data: joinData(first.dtype, parts, numElements(shape))}, nil
}

// Concat joins tensors along their first dimension. Trailing dimensions must agree.
func Concat(ts []*Dense) (*Dense, error) {
	if len(ts) == 0 {
		return nil, errors.NewValidationError("tensors", "cannot concatenate an empty list")
	}
	first := ts[0]
	if first.Rank() == 0 {
		return nil, errors.NewValidationError("tensors", "cannot concatenate scalars")
	}
	rows := 0
	parts := make([]any, len(ts))
	for i, t := range ts {
		if t.dtype != first.dtype || t.Rank() != first.Rank() || !reflect.DeepEqual(t.shape[1:], first.shape[1:]) {
			return nil, errors.NewShapeMismatchError(fmt.Sprintf("concat element %d", i), first.String(), t.String())
		}
		rows += t.shape[0]
		parts[i] = t.data
	}
	shape := append([]int{rows}, first.shape[1:]...)
	return &Dense{dtype: first.dtype, shape: shape, data: joinData(first.dtype, parts, numElements(shape))}, nil
}

// Compatible reports whether shape matches a declared shape in which -1 marks an
// unknown dimension.
func Compatible(declared, shape []int) bool {
	if len(declared) != len(shape) {
		return false
	}
	for i, d := range declared {
		if d != -1 && d != shape[i] {
			return false
		}
	}
	return true
}

// ShapeString formats dimensions as "[d0 d1 ...]", with "?" for unknown ones.
func ShapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		if d < 0 {
			parts[i] = "?"
		} else {
			parts[i] = fmt.Sprint(d)
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func joinData(dtype DType, parts []any, total int) any {
	switch dtype {
	case Float32:
		return joinAs[float32](parts, total)
	case Float64:
		return joinAs[float64](parts, total)
	case Int32:
		return joinAs[int32](parts, total)
	case Int64:
		return joinAs[int64](parts, total)
	case Uint8:
		return joinAs[uint8](parts, total)
	}
	return nil
}

func joinAs[E any](parts []any, total int) []E {
	out := make([]E, 0, total)
	for _, p := range parts {
		out = append(out, p.([]E)...)
	}
	return out
}

// MaxElements bounds the element count of a tensor built from external input.
const MaxElements = math.MaxInt32

// elementCount is numElements for untrusted shapes: negative dimensions and
// products above MaxElements are rejected.
func elementCount(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 || (d > 0 && n > MaxElements/d) {
			return 0, errors.NewShapeMismatchError("tensor shape",
				fmt.Sprintf("non-negative dims with at most %d elements", MaxElements), ShapeString(shape))
		}
		n *= d
	}
	return n, nil
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func cloneShape(shape []int) []int {
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}
