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

// Feature is the handler for one named field of a dataset sample. It knows how
// the field is laid out in a record, how single values are batched and how the
// field is fed through placeholders.
//
// Items are the per-sample values a feature produces: *tensor.Dense for
// TensorFeature, *Graph for GraphFeature and *tensor.Sparse for
// SparseTensorFeature. Stack turns a list of items into one batched item of
// the same Go type.
type Feature interface {
	Key() string
	Kind() string
	Description() string

	// FeatureRead returns the record descriptors this feature needs, keyed by
	// record feature name.
	FeatureRead() map[string]tfrecord.Descriptor
	// TensorsToItem builds this feature's item from a parsed record.
	TensorsToItem(parsed tfrecord.Parsed) (any, error)
	// FeatureWrite is the inverse of TensorsToItem.
	FeatureWrite(item any) (map[string]tfrecord.Feature, error)
	Stack(items []any) (any, error)

	// PlaceholderAndFeature returns the placeholders for this feature, keyed by
	// name, and the symbolic value built from them.
	PlaceholderAndFeature(batched bool) (map[string]*Placeholder, any)
	// FeedDict maps this feature's placeholders to the values found under its
	// key in values.
	FeedDict(placeholders map[string]*Placeholder, values map[string]any, batched bool) (FeedDict, error)
}

// ArrayDecoder is implemented by features that can rebuild their item from
// the named arrays of a sample archive.
type ArrayDecoder interface {
	ItemFromArrays(arrays map[string]*tensor.Dense) (any, error)
}

// Placeholder is a named, typed slot for a value supplied at run time. A -1
// dimension accepts any size.
type Placeholder struct {
	Name  string
	DType tensor.DType
	Shape []int
}

func NewPlaceholder(name string, dtype tensor.DType, shape ...int) *Placeholder {
	return &Placeholder{Name: name, DType: dtype, Shape: append([]int{}, shape...)}
}

// Check verifies that v can be fed into p.
func (p *Placeholder) Check(v *tensor.Dense) error {
	if v == nil {
		return errors.NewMissingValueError("", p.Name)
	}
	if v.DType() != p.DType || !tensor.Compatible(p.Shape, v.Shape()) {
		return errors.NewShapeMismatchError(p.Name, p.String(), v.String())
	}
	return nil
}

func (p *Placeholder) String() string {
	return string(p.DType) + tensor.ShapeString(p.Shape)
}

// FeedDict maps placeholders to the concrete values fed into them.
type FeedDict map[*Placeholder]*tensor.Dense

// Merge copies every entry of other into fd.
func (fd FeedDict) Merge(other FeedDict) {
	for ph, v := range other {
		fd[ph] = v
	}
}

// Lookup finds the value fed into the placeholder with the given name.
func (fd FeedDict) Lookup(name string) (*tensor.Dense, bool) {
	for ph, v := range fd {
		if ph.Name == name {
			return v, true
		}
	}
	return nil, false
}

// feed checks value against the named placeholder and records it.
func (fd FeedDict) feed(placeholders map[string]*Placeholder, name string, value *tensor.Dense) error {
	ph, ok := placeholders[name]
	if !ok {
		return errors.NewValidationError("placeholders", fmt.Sprintf("no placeholder named %q", name))
	}
	if err := ph.Check(value); err != nil {
		return err
	}
	fd[ph] = value
	return nil
}

type base struct {
	key         string
	description string
}

func (b base) Key() string         { return b.key }
func (b base) Description() string { return b.description }

// decodeEntry decodes one schema mapping into out, reporting the schema line on failure.
func decodeEntry(kind string, node *yaml.Node, out any) error {
	if node == nil || node.Kind != yaml.MappingNode {
		return errors.NewValidationError("", kind+": schema entry must be a mapping")
	}
	if err := node.Decode(out); err != nil {
		return errors.NewValidationError("", fmt.Sprintf("%s at line %d: %v", kind, node.Line, err))
	}
	return nil
}

func requireKey(kind, key string) error {
	if key == "" {
		return errors.NewValidationError("key", kind+": required")
	}
	return nil
}

func itemAs[T any](key string, item any) (T, error) {
	v, ok := item.(T)
	if !ok {
		var zero T
		return zero, errors.NewShapeMismatchError(key, fmt.Sprintf("%T", zero), fmt.Sprintf("%T", item))
	}
	return v, nil
}

func itemsAs[T any](key string, items []any) ([]T, error) {
	out := make([]T, len(items))
	for i, item := range items {
		v, err := itemAs[T](key, item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// batchedValue turns a feed value into a single item. A slice of items is only
// accepted in batched mode and is stacked first.
func batchedValue[T any](f Feature, value any, batched bool) (any, error) {
	switch v := value.(type) {
	case T:
		return v, nil
	case []T:
		if !batched {
			return nil, errors.NewShapeMismatchError(f.Key(), "single value", fmt.Sprintf("list of %d values", len(v)))
		}
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return f.Stack(items)
	}
	var zero T
	return nil, errors.NewShapeMismatchError(f.Key(), fmt.Sprintf("%T", zero), fmt.Sprintf("%T", value))
}

func lookupArray(feature, name string, arrays map[string]*tensor.Dense) (*tensor.Dense, error) {
	a, ok := arrays[name]
	if !ok || a == nil {
		return nil, errors.NewMissingValueError(feature, name)
	}
	return a, nil
}

func lookupValue(key string, values map[string]any) (any, error) {
	v, ok := values[key]
	if !ok || v == nil {
		return nil, errors.NewMissingValueError(key, key)
	}
	return v, nil
}
