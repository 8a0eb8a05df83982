/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tfrecord

import (
	"fmt"

	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/tensor"
)

// Descriptor tells ParseSingleExample how to read one feature, like
// tf.FixedLenFeature and tf.VarLenFeature.
type Descriptor struct {
	VarLen bool
	Type   ValueType
	// Shape of a fixed-length feature; nil or empty means scalar.
	Shape []int
	// Default is used when a fixed-length feature is absent from the record.
	Default *Feature
}

// FixedLen describes a required feature with a known number of values.
func FixedLen(t ValueType, shape ...int) Descriptor {
	return Descriptor{Type: t, Shape: shape}
}

// VarLen describes a feature with any number of values, parsed as a sparse tensor.
func VarLen(t ValueType) Descriptor {
	return Descriptor{VarLen: true, Type: t}
}

// WithDefault returns a copy of d that falls back to def when the feature is missing.
func (d Descriptor) WithDefault(def Feature) Descriptor {
	d.Default = &def
	return d
}

// Parsed maps descriptor keys to parsed values:
//   - fixed-length bytes: []byte for scalars, [][]byte otherwise
//   - fixed-length float/int64: *tensor.Dense (float32/int64) of the declared shape
//   - var-length float/int64: *tensor.Sparse
//   - var-length bytes: [][]byte
type Parsed map[string]any

// ParseSingleExample decodes one serialized tf.Example and reads every
// described feature out of it.
func ParseSingleExample(record []byte, descriptors map[string]Descriptor) (Parsed, error) {
	ex, err := UnmarshalExample(record)
	if err != nil {
		return nil, err
	}
	out := make(Parsed, len(descriptors))
	for key, desc := range descriptors {
		v, err := readFeature(key, desc, ex)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func readFeature(key string, desc Descriptor, ex *Example) (any, error) {
	feat, ok := ex.Features[key]
	if ok && feat.Type != desc.Type && feat.Len() > 0 {
		return nil, errors.NewShapeMismatchError(key, string(desc.Type)+" list", string(feat.Type)+" list")
	}
	if desc.VarLen {
		if !ok {
			feat = Feature{Type: desc.Type}
		}
		return readVarLen(key, desc, feat)
	}
	if !ok {
		if desc.Default == nil {
			return nil, errors.NewMissingValueError("", key)
		}
		feat = *desc.Default
	}
	return readFixedLen(key, desc, feat)
}

func readFixedLen(key string, desc Descriptor, feat Feature) (any, error) {
	want := 1
	for _, d := range desc.Shape {
		want *= d
	}
	if feat.Len() != want {
		return nil, errors.NewShapeMismatchError(key,
			fmt.Sprintf("%d values for shape %s", want, tensor.ShapeString(desc.Shape)),
			fmt.Sprintf("%d values", feat.Len()))
	}
	switch desc.Type {
	case BytesType:
		if len(desc.Shape) == 0 {
			return feat.Bytes[0], nil
		}
		return feat.Bytes, nil
	case FloatType:
		return tensor.New(append([]float32(nil), feat.Floats...), desc.Shape...)
	case Int64Type:
		return tensor.New(append([]int64(nil), feat.Int64s...), desc.Shape...)
	}
	return nil, errors.NewValidationError(key, fmt.Sprintf("unknown value type %q", desc.Type))
}

func readVarLen(key string, desc Descriptor, feat Feature) (any, error) {
	switch desc.Type {
	case BytesType:
		return feat.Bytes, nil
	case FloatType:
		values := append(make([]float32, 0, len(feat.Floats)), feat.Floats...)
		return tensor.SparseVector(tensor.Must(tensor.New(values, len(values))))
	case Int64Type:
		values := append(make([]int64, 0, len(feat.Int64s)), feat.Int64s...)
		return tensor.SparseVector(tensor.Must(tensor.New(values, len(values))))
	}
	return nil, errors.NewValidationError(key, fmt.Sprintf("unknown value type %q", desc.Type))
}
