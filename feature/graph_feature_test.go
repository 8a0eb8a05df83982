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
	"github.com/suparena/featureloader/tfrecord"
)

func newGraphFeature(t *testing.T) *feature.GraphFeature {
	t.Helper()
	f, err := feature.NewGraphFeature("g", 2, 1, 3, tensor.Float32, "")
	require.NoError(t, err)
	return f
}

// chain builds a path graph over n nodes.
func chain(n int, fill float32) *feature.Graph {
	nodes := make([]float32, n*2)
	for i := range nodes {
		nodes[i] = fill
	}
	var senders, receivers []int32
	for i := 0; i+1 < n; i++ {
		senders = append(senders, int32(i))
		receivers = append(receivers, int32(i+1))
	}
	e := len(senders)
	return &feature.Graph{
		Nodes:     tensor.Must(tensor.New(nodes, n, 2)),
		Edges:     tensor.Zeros(tensor.Float32, e, 1),
		Globals:   tensor.Must(tensor.New([]float32{fill, fill, fill}, 3)),
		Senders:   tensor.Must(tensor.New(senders, e)),
		Receivers: tensor.Must(tensor.New(receivers, e)),
		NNode:     tensor.Must(tensor.New([]int32{int32(n)})),
		NEdge:     tensor.Must(tensor.New([]int32{int32(e)})),
	}
}

func TestDecodeGraphFeature(t *testing.T) {
	f, err := feature.DecodeGraphFeature(node(t, `
__name__: GraphFeature
key: g
node_feature_size: 2
edge_feature_size: 1
global_feature_size: 3
dtype: float32
`))
	require.NoError(t, err)
	assert.Equal(t, newGraphFeature(t), f)

	_, err = feature.DecodeGraphFeature(node(t, "{__name__: GraphFeature, key: g, node_feature_size: 2, dtype: float32}"))
	assert.True(t, errors.IsValidationError(err))
}

func TestGraphFeatureReadDescriptors(t *testing.T) {
	desc := newGraphFeature(t).FeatureRead()
	assert.Len(t, desc, 7)
	for _, k := range []string{"g_nodes", "g_edges", "g_globals", "g_senders", "g_receivers", "g_n_node", "g_n_edge"} {
		assert.Contains(t, desc, k)
	}
}

func TestGraphFeatureRoundTrip(t *testing.T) {
	f := newGraphFeature(t)
	g := chain(4, 0.5)
	back := roundTrip(t, f, g).(*feature.Graph)
	assert.True(t, g.Nodes.Equal(back.Nodes))
	assert.True(t, g.Edges.Equal(back.Edges))
	assert.True(t, g.Globals.Equal(back.Globals))
	assert.True(t, g.Senders.Equal(back.Senders))
	assert.True(t, g.Receivers.Equal(back.Receivers))
	assert.True(t, g.NNode.Equal(back.NNode))
	assert.True(t, g.NEdge.Equal(back.NEdge))
}

func TestGraphFeatureStackOffsetsIndices(t *testing.T) {
	f := newGraphFeature(t)
	out, err := f.Stack([]any{chain(3, 1), chain(2, 2), chain(4, 3)})
	require.NoError(t, err)
	b := out.(*feature.Graph)

	assert.Equal(t, []int{9, 2}, b.Nodes.Shape())
	assert.Equal(t, []int{6, 1}, b.Edges.Shape())
	assert.Equal(t, []int{3, 3}, b.Globals.Shape())
	assert.Equal(t, []int32{3, 2, 4}, b.NNode.Data())
	assert.Equal(t, []int32{2, 1, 3}, b.NEdge.Data())
	assert.Equal(t, []int32{0, 1, 3, 5, 6, 7}, b.Senders.Data())
	assert.Equal(t, []int32{1, 2, 4, 6, 7, 8}, b.Receivers.Data())
}

func TestGraphFeatureStackRejectsInconsistentGraph(t *testing.T) {
	f := newGraphFeature(t)
	bad := chain(3, 1)
	bad.NNode = tensor.Must(tensor.New([]int32{5}))
	_, err := f.Stack([]any{chain(2, 0), bad})
	assert.True(t, errors.IsShapeMismatch(err))
}

func TestGraphFeatureFeedDict(t *testing.T) {
	f := newGraphFeature(t)

	phs, sym := f.PlaceholderAndFeature(true)
	gp := sym.(*feature.GraphPlaceholders)
	assert.Len(t, phs, 7)
	assert.Equal(t, []int{-1}, gp.NNode.Shape)
	assert.Equal(t, []int{-1, 3}, gp.Globals.Shape)

	fd, err := f.FeedDict(phs, map[string]any{"g": []*feature.Graph{chain(3, 1), chain(2, 2)}}, true)
	require.NoError(t, err)
	assert.Len(t, fd, 7)
	assert.Equal(t, []int32{3, 2}, fd[gp.NNode].Data())

	// a lone graph is treated as a batch of one
	fd, err = f.FeedDict(phs, map[string]any{"g": chain(3, 1)}, true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, fd[gp.Globals].Shape())

	phs, sym = f.PlaceholderAndFeature(false)
	gp = sym.(*feature.GraphPlaceholders)
	assert.Empty(t, gp.NNode.Shape)
	fd, err = f.FeedDict(phs, map[string]any{"g": chain(3, 1)}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, fd[gp.NEdge].Rank())
}

func TestGraphFeatureRejectsOversizedCounts(t *testing.T) {
	f, err := feature.NewGraphFeature("g", 4, 4, 0, tensor.Float32, "")
	require.NoError(t, err)

	for _, count := range []int64{1 << 62, 1 << 31} {
		parsed := tfrecord.Parsed{
			"g_nodes":     []byte{},
			"g_edges":     []byte{},
			"g_globals":   []byte{},
			"g_senders":   []byte{},
			"g_receivers": []byte{},
			"g_n_node":    tensor.Must(tensor.New([]int64{count})),
			"g_n_edge":    tensor.Must(tensor.New([]int64{count})),
		}
		_, err := f.TensorsToItem(parsed)
		assert.True(t, errors.IsShapeMismatch(err), "count %d: got %v", count, err)
	}

	// counts that fit but whose element count does not
	parsed := tfrecord.Parsed{
		"g_nodes":     []byte{},
		"g_edges":     []byte{},
		"g_globals":   []byte{},
		"g_senders":   []byte{},
		"g_receivers": []byte{},
		"g_n_node":    tensor.Must(tensor.New([]int64{1<<31 - 1})),
		"g_n_edge":    tensor.Must(tensor.New([]int64{0})),
	}
	_, err = f.TensorsToItem(parsed)
	assert.True(t, errors.IsShapeMismatch(err), "got %v", err)
}
