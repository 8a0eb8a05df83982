/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package featureloader

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/sbinet/npyio/npz"

	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/feature"
	"github.com/suparena/featureloader/tensor"
)

// NpzReader adds the in-memory loading path to DataReader: samples come from
// numbered .npz archives and reach the model through placeholders.
type NpzReader struct {
	*DataReader
}

// NewNpzReader loads the schema of dataDir like New.
func NewNpzReader(dataDir string, opts ...Option) (*NpzReader, error) {
	r, err := New(dataDir, opts...)
	if err != nil {
		return nil, err
	}
	return &NpzReader{DataReader: r}, nil
}

// BuildPlaceholders asks every feature for its placeholders. sample maps each
// feature key to the symbolic value built from that feature's placeholders.
// Two features declaring the same placeholder name is an error.
func (r *NpzReader) BuildPlaceholders(batched bool) (map[string]any, map[string]*feature.Placeholder, error) {
	sample := make(map[string]any, r.features.Len())
	placeholders := make(map[string]*feature.Placeholder)
	owner := make(map[string]string)
	for _, f := range r.features.All() {
		phs, sym := f.PlaceholderAndFeature(batched)
		for name, ph := range phs {
			if prev, exists := owner[name]; exists {
				return nil, nil, errors.NewValidationError("placeholders",
					fmt.Sprintf("placeholder %q declared by both %q and %q", name, prev, f.Key()))
			}
			owner[name] = f.Key()
			placeholders[name] = ph
		}
		sample[f.Key()] = sym
	}
	return sample, placeholders, nil
}

// BuildFeedDict binds values to placeholders, feature by feature. values must
// hold an entry for every feature key.
func (r *NpzReader) BuildFeedDict(placeholders map[string]*feature.Placeholder, values map[string]any, batched bool) (feature.FeedDict, error) {
	fd := feature.FeedDict{}
	for _, f := range r.features.All() {
		part, err := f.FeedDict(placeholders, values, batched)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", f.Key(), err)
		}
		fd.Merge(part)
	}
	return fd, nil
}

// SamplePath returns <dataDir>/<mode>/<index as 4 digits>.npz.
func (r *NpzReader) SamplePath(mode string, index int) string {
	return filepath.Join(r.dataDir, mode, fmt.Sprintf("%04d.npz", index))
}

// LoadSampleFile returns every array stored in the archive of sample index,
// keyed by array name. The arrays are not checked against the schema.
func (r *NpzReader) LoadSampleFile(mode string, index int) (map[string]*tensor.Dense, error) {
	if index < 0 {
		return nil, errors.NewValidationError("index", fmt.Sprintf("must not be negative, got %d", index))
	}
	path := r.SamplePath(mode, index)
	arrays, err := readNpz(path)
	if err != nil {
		return nil, err
	}
	r.metrics.NpzFilesLoaded.Inc()
	level.Debug(r.logger).Log("msg", "sample file loaded", "path", path, "arrays", len(arrays))
	return arrays, nil
}

// FeedFromFiles loads the archives of indices, rebuilds every feature's item
// from them and binds the result to placeholders. In batched mode the items
// are stacked; otherwise exactly one index is required.
func (r *NpzReader) FeedFromFiles(mode string, indices []int, placeholders map[string]*feature.Placeholder, batched bool) (feature.FeedDict, error) {
	if len(indices) == 0 || (!batched && len(indices) != 1) {
		return nil, errors.NewValidationError("indices", fmt.Sprintf("got %d indices (batched=%t)", len(indices), batched))
	}

	features := r.features.All()
	items := make(map[string][]any, len(features))
	for _, index := range indices {
		arrays, err := r.LoadSampleFile(mode, index)
		if err != nil {
			return nil, err
		}
		for _, f := range features {
			dec, ok := f.(feature.ArrayDecoder)
			if !ok {
				return nil, errors.NewValidationError(f.Key(), f.Kind()+" cannot be read from sample archives")
			}
			item, err := dec.ItemFromArrays(arrays)
			if err != nil {
				return nil, fmt.Errorf("%s: feature %q: %w", r.SamplePath(mode, index), f.Key(), err)
			}
			items[f.Key()] = append(items[f.Key()], item)
		}
	}

	values := make(map[string]any, len(features))
	for _, f := range features {
		if !batched {
			values[f.Key()] = items[f.Key()][0]
			continue
		}
		stacked, err := f.Stack(items[f.Key()])
		if err != nil {
			return nil, fmt.Errorf("stack feature %q: %w", f.Key(), err)
		}
		values[f.Key()] = stacked
	}
	return r.BuildFeedDict(placeholders, values, batched)
}

// readNpz decodes every array of an npz archive.
func readNpz(path string) (map[string]*tensor.Dense, error) {
	f, err := npz.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotFoundError("sample file", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	arrays := make(map[string]*tensor.Dense, len(f.Keys()))
	for _, key := range f.Keys() {
		name := strings.TrimSuffix(key, ".npy")
		hdr := f.Header(key)
		if hdr == nil {
			return nil, fmt.Errorf("%s: array %q has no header", path, name)
		}
		if hdr.Descr.Fortran {
			return nil, errors.NewShapeMismatchError(name, "C-ordered array", "Fortran-ordered array")
		}
		dtype, err := npyDType(hdr.Descr.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: array %q: %w", path, name, err)
		}
		t, err := readArray(f, key, dtype, hdr.Descr.Shape)
		if err != nil {
			return nil, fmt.Errorf("%s: array %q: %w", path, name, err)
		}
		arrays[name] = t
	}
	return arrays, nil
}

// npyDType maps a little-endian numpy type descriptor to a dtype.
func npyDType(descr string) (tensor.DType, error) {
	switch descr {
	case "<f4":
		return tensor.Float32, nil
	case "<f8":
		return tensor.Float64, nil
	case "<i4":
		return tensor.Int32, nil
	case "<i8":
		return tensor.Int64, nil
	case "|u1", "<u1":
		return tensor.Uint8, nil
	}
	return "", errors.NewValidationError("dtype", fmt.Sprintf("unsupported numpy type %q", descr))
}

func readArray(f *npz.Reader, key string, dtype tensor.DType, shape []int) (*tensor.Dense, error) {
	var data any
	switch dtype {
	case tensor.Float32:
		var v []float32
		if err := f.Read(key, &v); err != nil {
			return nil, err
		}
		data = v
	case tensor.Float64:
		var v []float64
		if err := f.Read(key, &v); err != nil {
			return nil, err
		}
		data = v
	case tensor.Int32:
		var v []int32
		if err := f.Read(key, &v); err != nil {
			return nil, err
		}
		data = v
	case tensor.Int64:
		var v []int64
		if err := f.Read(key, &v); err != nil {
			return nil, err
		}
		data = v
	case tensor.Uint8:
		var v []uint8
		if err := f.Read(key, &v); err != nil {
			return nil, err
		}
		data = v
	}
	return tensor.New(data, shape...)
}
