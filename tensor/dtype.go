/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tensor

import (
	"fmt"

	"github.com/suparena/featureloader/errors"
)

// DType names the element type of a tensor.
type DType string

const (
	Float32 DType = "float32"
	Float64 DType = "float64"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Uint8   DType = "uint8"
)

// ParseDType validates a dtype name as it appears in a schema file.
func ParseDType(name string) (DType, error) {
	d := DType(name)
	if !d.Valid() {
		return "", errors.NewValidationError("dtype", fmt.Sprintf("unsupported dtype %q", name))
	}
	return d, nil
}

// Valid reports whether d is one of the supported element types.
func (d DType) Valid() bool {
	switch d {
	case Float32, Float64, Int32, Int64, Uint8:
		return true
	}
	return false
}

// Size returns the width of one element in bytes.
func (d DType) Size() int {
	switch d {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Uint8:
		return 1
	}
	return 0
}

// IsInteger reports whether d is an integer type.
func (d DType) IsInteger() bool {
	return d == Int32 || d == Int64 || d == Uint8
}

func dtypeOf(data any) (DType, int, error) {
	switch v := data.(type) {
	case []float32:
		return Float32, len(v), nil
	case []float64:
		return Float64, len(v), nil
	case []int32:
		return Int32, len(v), nil
	case []int64:
		return Int64, len(v), nil
	case []uint8:
		return Uint8, len(v), nil
	}
	return "", 0, errors.NewValidationError("data", fmt.Sprintf("unsupported element slice %T", data))
}

func makeData(d DType, n int) any {
	switch d {
	case Float32:
		return make([]float32, n)
	case Float64:
		return make([]float64, n)
	case Int32:
		return make([]int32, n)
	case Int64:
		return make([]int64, n)
	case Uint8:
		return make([]uint8, n)
	}
	return nil
}
