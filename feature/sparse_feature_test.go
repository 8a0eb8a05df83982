/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package feature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/feature"
	"github.com/suparena/featureloader/tensor"
)

func sparse(t *testing.T, values ...int64) *tensor.Sparse {
	t.Helper()
	s, err := tensor.SparseVector(tensor.Must(tensor.New(values, len(values))))
	require.NoError(t, err)
	return s
}

func TestDecodeSparseTensorFeature(t *testing.T) {
	f, err := feature.DecodeSparseTensorFeature(node(t, "{__name__: SparseTensorFeature, key: ids, dtype: int64}"))
	require.NoError(t, err)
	assert.Equal(t, feature.SparseKind, f.Kind())
	assert.Equal(t, tensor.Int64, f.(*feature.SparseTensorFeature).DType())

	_, err = feature.DecodeSparseTensorFeature(node(t, "{__name__: SparseTensorFeature, key: ids, dtype: uint8}"))
	assert.True(t, errors.IsValidationError(err))
}

func TestSparseTensorFeatureRoundTrip(t *testing.T) {
	f, err := feature.NewSparseTensorFeature("ids", tensor.Int64, "")
	require.NoError(t, err)
	s := sparse(t, 4, 8, 15)
	back := roundTrip(t, f, s).(*tensor.Sparse)
	assert.True(t, s.Equal(back))
}

func TestSparseTensorFeatureStack(t *testing.T) {
	f, err := feature.NewSparseTensorFeature("ids", tensor.Int64, "")
	require.NoError(t, err)
	out, err := f.Stack([]any{sparse(t, 1, 2), sparse(t, 3), sparse(t, 4, 5, 6)})
	require.NoError(t, err)
	s := out.(*tensor.Sparse)
	assert.Equal(t, []int{3, 3}, s.DenseShape)
	assert.Equal(t, 6, s.NNZ())
	assert.Equal(t, []int64{0, 0, 0, 1, 1, 0, 2, 0, 2, 1, 2, 2}, s.Indices.Data())
}

func TestSparseTensorFeatureFeedDict(t *testing.T) {
	f, err := feature.NewSparseTensorFeature("ids", tensor.Int64, "")
	require.NoError(t, err)

	phs, sym := f.PlaceholderAndFeature(true)
	sp := sym.(*feature.SparsePlaceholders)
	fd, err := f.FeedDict(phs, map[string]any{"ids": []*tensor.Sparse{sparse(t, 1), sparse(t, 2, 3)}}, true)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 2}, fd[sp.DenseShape].Data())
	assert.Equal(t, []int{3, 2}, fd[sp.Indices].Shape())

	phs, _ = f.PlaceholderAndFeature(false)
	_, err = f.FeedDict(phs, map[string]any{"ids": sparse(t, 1), "other": 1}, false)
	require.NoError(t, err)
	_, err = f.FeedDict(phs, map[string]any{"other": 1}, false)
	assert.True(t, errors.IsMissingValue(err))
}

func TestSparseTensorFeatureFeedDictRejectsMalformedIndices(t *testing.T) {
	f, err := feature.NewSparseTensorFeature("ids", tensor.Int64, "")
	require.NoError(t, err)
	bad := &tensor.Sparse{
		Indices:    tensor.Must(tensor.New([]int64{0}, 1, 1)),
		Values:     tensor.Must(tensor.New([]int64{5, 6}, 2)),
		DenseShape: []int{2},
	}

	for _, batched := range []bool{true, false} {
		phs, _ := f.PlaceholderAndFeature(batched)
		_, err := f.FeedDict(phs, map[string]any{"ids": bad}, batched)
		assert.True(t, errors.IsShapeMismatch(err), "batched=%t: got %v", batched, err)
	}

	phs, _ := f.PlaceholderAndFeature(true)
	_, err = f.FeedDict(phs, map[string]any{"ids": []*tensor.Sparse{sparse(t, 1), bad}}, true)
	assert.True(t, errors.IsShapeMismatch(err), "got %v", err)
}
