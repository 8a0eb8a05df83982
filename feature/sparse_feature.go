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

// SparseKind is the schema name of SparseTensorFeature.
const SparseKind = "SparseTensorFeature"

// SparsePlaceholders is the symbolic value of a SparseTensorFeature.
type SparsePlaceholders struct {
	Indices    *Placeholder
	Values     *Placeholder
	DenseShape *Placeholder
}

// SparseTensorFeature is a variable-length list of numbers per sample.
// Batches are COO tensors with a leading batch coordinate.
type SparseTensorFeature struct {
	base
	dtype tensor.DType
}

type sparseFeatureYAML struct {
	Name        string `yaml:"__name__"`
	Key         string `yaml:"key"`
	DType       string `yaml:"dtype"`
	Description string `yaml:"description,omitempty"`
}

// NewSparseTensorFeature builds a SparseTensorFeature. Only float32 and int64
// can be stored as record lists.
func NewSparseTensorFeature(key string, dtype tensor.DType, description string) (*SparseTensorFeature, error) {
	if err := requireKey(SparseKind, key); err != nil {
		return nil, err
	}
	if dtype != tensor.Float32 && dtype != tensor.Int64 {
		return nil, errors.NewValidationError("dtype", fmt.Sprintf("%s %q: dtype must be float32 or int64, got %q", SparseKind, key, dtype))
	}
	return &SparseTensorFeature{base: base{key: key, description: description}, dtype: dtype}, nil
}

func DecodeSparseTensorFeature(node *yaml.Node) (Feature, error) {
	var raw sparseFeatureYAML
	if err := decodeEntry(SparseKind, node, &raw); err != nil {
		return nil, err
	}
	if err := requireKey(SparseKind, raw.Key); err != nil {
		return nil, err
	}
	if raw.DType == "" {
		return nil, errors.NewValidationError("dtype", fmt.Sprintf("%s %q: required", SparseKind, raw.Key))
	}
	return NewSparseTensorFeature(raw.Key, tensor.DType(raw.DType), raw.Description)
}

func (f *SparseTensorFeature) MarshalYAML() (any, error) {
	return sparseFeatureYAML{Name: SparseKind, Key: f.key, DType: string(f.dtype), Description: f.description}, nil
}

func (f *SparseTensorFeature) Kind() string        { return SparseKind }
func (f *SparseTensorFeature) DType() tensor.DType { return f.dtype }

func (f *SparseTensorFeature) recordType() tfrecord.ValueType {
	if f.dtype == tensor.Int64 {
		return tfrecord.Int64Type
	}
	return tfrecord.FloatType
}

func (f *SparseTensorFeature) FeatureRead() map[string]tfrecord.Descriptor {
	return map[string]tfrecord.Descriptor{f.key: tfrecord.VarLen(f.recordType())}
}

func (f *SparseTensorFeature) TensorsToItem(parsed tfrecord.Parsed) (any, error) {
	s, err := itemAs[*tensor.Sparse](f.key, parsed[f.key])
	if err != nil {
		return nil, err
	}
	if s.Values.DType() != f.dtype {
		return nil, errors.NewShapeMismatchError(f.key, string(f.dtype), s.String())
	}
	return s, nil
}

func (f *SparseTensorFeature) FeatureWrite(item any) (map[string]tfrecord.Feature, error) {
	s, err := itemAs[*tensor.Sparse](f.key, item)
	if err != nil {
		return nil, err
	}
	if s.Rank() != 1 || s.Values.DType() != f.dtype {
		return nil, errors.NewShapeMismatchError(f.key, "sparse "+string(f.dtype)+"[?]", s.String())
	}
	switch v := s.Values.Data().(type) {
	case []float32:
		return map[string]tfrecord.Feature{f.key: tfrecord.FloatFeature(v...)}, nil
	case []int64:
		return map[string]tfrecord.Feature{f.key: tfrecord.Int64Feature(v...)}, nil
	}
	return nil, errors.NewShapeMismatchError(f.key, string(f.dtype), s.String())
}

func (f *SparseTensorFeature) Stack(items []any) (any, error) {
	ss, err := itemsAs[*tensor.Sparse](f.key, items)
	if err != nil {
		return nil, err
	}
	return tensor.StackSparse(ss)
}

func (f *SparseTensorFeature) PlaceholderAndFeature(batched bool) (map[string]*Placeholder, any) {
	rank := 1
	if batched {
		rank = 2
	}
	sym := &SparsePlaceholders{
		Indices:    NewPlaceholder(f.key+"_indices", tensor.Int64, -1, rank),
		Values:     NewPlaceholder(f.key+"_values", f.dtype, -1),
		DenseShape: NewPlaceholder(f.key+"_dense_shape", tensor.Int64, rank),
	}
	return map[string]*Placeholder{
		sym.Indices.Name:    sym.Indices,
		sym.Values.Name:     sym.Values,
		sym.DenseShape.Name: sym.DenseShape,
	}, sym
}

func (f *SparseTensorFeature) FeedDict(placeholders map[string]*Placeholder, values map[string]any, batched bool) (FeedDict, error) {
	raw, err := lookupValue(f.key, values)
	if err != nil {
		return nil, err
	}
	v, err := batchedValue[*tensor.Sparse](f, raw, batched)
	if err != nil {
		return nil, err
	}
	s := v.(*tensor.Sparse)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("feature %q: %w", f.key, err)
	}
	if batched && s.Rank() == 1 {
		stacked, err := f.Stack([]any{s})
		if err != nil {
			return nil, err
		}
		s = stacked.(*tensor.Sparse)
	}

	dims := make([]int64, len(s.DenseShape))
	for i, d := range s.DenseShape {
		dims[i] = int64(d)
	}
	denseShape, err := tensor.New(dims, len(dims))
	if err != nil {
		return nil, err
	}
	fd := FeedDict{}
	for name, t := range map[string]*tensor.Dense{
		f.key + "_indices":     s.Indices,
		f.key + "_values":      s.Values,
		f.key + "_dense_shape": denseShape,
	} {
		if err := fd.feed(placeholders, name, t); err != nil {
			return nil, err
		}
	}
	return fd, nil
}

// ItemFromArrays reads the stored values as a dense vector.
func (f *SparseTensorFeature) ItemFromArrays(arrays map[string]*tensor.Dense) (any, error) {
	a, err := lookupArray(f.key, f.key, arrays)
	if err != nil {
		return nil, err
	}
	if a.DType() != f.dtype || a.Rank() != 1 {
		return nil, errors.NewShapeMismatchError(f.key, string(f.dtype)+"[?]", a.String())
	}
	return tensor.SparseVector(a)
}
