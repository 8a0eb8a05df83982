/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package feature

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/tensor"
	"github.com/suparena/featureloader/tfrecord"
)

// TensorKind is the schema name of TensorFeature.
const TensorKind = "TensorFeature"

// TensorFeature is a dense tensor of fixed shape, stored in a record as the
// raw little-endian bytes of its elements.
type TensorFeature struct {
	base
	shape []int
	dtype tensor.DType
}

type tensorFeatureYAML struct {
	Name        string `yaml:"__name__"`
	Key         string `yaml:"key"`
	Shape       []int  `yaml:"shape,flow"`
	DType       string `yaml:"dtype"`
	Description string `yaml:"description,omitempty"`
}

// NewTensorFeature validates and builds a TensorFeature.
func NewTensorFeature(key string, shape []int, dtype tensor.DType, description string) (*TensorFeature, error) {
	if err := requireKey(TensorKind, key); err != nil {
		return nil, err
	}
	if !dtype.Valid() {
		return nil, errors.NewValidationError("dtype", fmt.Sprintf("%s %q: unsupported dtype %q", TensorKind, key, dtype))
	}
	for _, d := range shape {
		if d < 0 {
			return nil, errors.NewValidationError("shape", fmt.Sprintf("%s %q: dimensions must be known, got %v", TensorKind, key, shape))
		}
	}
	return &TensorFeature{
		base:  base{key: key, description: description},
		shape: append([]int{}, shape...),
		dtype: dtype,
	}, nil
}

// DecodeTensorFeature builds a TensorFeature from a schema entry. key, shape and
// dtype are required.
func DecodeTensorFeature(node *yaml.Node) (Feature, error) {
	var raw tensorFeatureYAML
	if err := decodeEntry(TensorKind, node, &raw); err != nil {
		return nil, err
	}
	if err := requireKey(TensorKind, raw.Key); err != nil {
		return nil, err
	}
	if raw.Shape == nil {
		return nil, errors.NewValidationError("shape", fmt.Sprintf("%s %q: required", TensorKind, raw.Key))
	}
	if raw.DType == "" {
		return nil, errors.NewValidationError("dtype", fmt.Sprintf("%s %q: required", TensorKind, raw.Key))
	}
	return NewTensorFeature(raw.Key, raw.Shape, tensor.DType(raw.DType), raw.Description)
}

func (f *TensorFeature) MarshalYAML() (any, error) {
	return tensorFeatureYAML{
		Name:        TensorKind,
		Key:         f.key,
		Shape:       f.shape,
		DType:       string(f.dtype),
		Description: f.description,
	}, nil
}

func (f *TensorFeature) Kind() string        { return TensorKind }
func (f *TensorFeature) Shape() []int        { return append([]int{}, f.shape...) }
func (f *TensorFeature) DType() tensor.DType { return f.dtype }

func (f *TensorFeature) FeatureRead() map[string]tfrecord.Descriptor {
	return map[string]tfrecord.Descriptor{f.key: tfrecord.FixedLen(tfrecord.BytesType)}
}

func (f *TensorFeature) TensorsToItem(parsed tfrecord.Parsed) (any, error) {
	raw, err := itemAs[[]byte](f.key, parsed[f.key])
	if err != nil {
		return nil, err
	}
	t, err := tensor.FromBytes(f.dtype, f.shape, raw)
	if err != nil {
		return nil, fmt.Errorf("feature %q: %w", f.key, err)
	}
	return t, nil
}

func (f *TensorFeature) FeatureWrite(item any) (map[string]tfrecord.Feature, error) {
	t, err := itemAs[*tensor.Dense](f.key, item)
	if err != nil {
		return nil, err
	}
	if t.DType() != f.dtype || !tensor.Compatible(f.shape, t.Shape()) {
		return nil, errors.NewShapeMismatchError(f.key, string(f.dtype)+tensor.ShapeString(f.shape), t.String())
	}
	return map[string]tfrecord.Feature{f.key: tfrecord.BytesFeature(t.Bytes())}, nil
}

func (f *TensorFeature) Stack(items []any) (any, error) {
	ts, err := itemsAs[*tensor.Dense](f.key, items)
	if err != nil {
		return nil, err
	}
	return tensor.Stack(ts)
}

func (f *TensorFeature) PlaceholderAndFeature(batched bool) (map[string]*Placeholder, any) {
	shape := f.shape
	if batched {
		shape = append([]int{-1}, f.shape...)
	}
	ph := NewPlaceholder(f.key, f.dtype, shape...)
	return map[string]*Placeholder{ph.Name: ph}, ph
}

func (f *TensorFeature) FeedDict(placeholders map[string]*Placeholder, values map[string]any, batched bool) (FeedDict, error) {
	raw, err := lookupValue(f.key, values)
	if err != nil {
		return nil, err
	}
	v, err := batchedValue[*tensor.Dense](f, raw, batched)
	if err != nil {
		return nil, err
	}
	fd := FeedDict{}
	if err := fd.feed(placeholders, f.key, v.(*tensor.Dense)); err != nil {
		return nil, err
	}
	return fd, nil
}

func (f *TensorFeature) ItemFromArrays(arrays map[string]*tensor.Dense) (any, error) {
	a, err := lookupArray(f.key, f.key, arrays)
	if err != nil {
		return nil, err
	}
	if a.DType() != f.dtype || !tensor.Compatible(f.shape, a.Shape()) {
		return nil, errors.NewShapeMismatchError(f.key, string(f.dtype)+tensor.ShapeString(f.shape), a.String())
	}
	return a, nil
}
