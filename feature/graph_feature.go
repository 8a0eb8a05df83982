/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package feature

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/tensor"
	"github.com/suparena/featureloader/tfrecord"
)

// GraphKind is the schema name of GraphFeature.
const GraphKind = "GraphFeature"

// Graph is one graph, or a batch of graphs concatenated into a single graph
// with NNode/NEdge giving the size of each member.
//
// For a single graph NNode and NEdge are int32 scalars and Globals has shape
// [global_size]. For a batch they have shape [b] and Globals [b, global_size];
// Senders and Receivers then index into the concatenated Nodes.
type Graph struct {
	Nodes     *tensor.Dense
	Edges     *tensor.Dense
	Globals   *tensor.Dense
	Senders   *tensor.Dense
	Receivers *tensor.Dense
	NNode     *tensor.Dense
	NEdge     *tensor.Dense
}

// GraphPlaceholders is the symbolic value of a GraphFeature.
type GraphPlaceholders struct {
	Nodes     *Placeholder
	Edges     *Placeholder
	Globals   *Placeholder
	Senders   *Placeholder
	Receivers *Placeholder
	NNode     *Placeholder
	NEdge     *Placeholder
}

// Graph record fields are stored under "<key>_<field>".
const (
	fieldNodes     = "nodes"
	fieldEdges     = "edges"
	fieldGlobals   = "globals"
	fieldSenders   = "senders"
	fieldReceivers = "receivers"
	fieldNNode     = "n_node"
	fieldNEdge     = "n_edge"
)

// GraphFeature is a graph with fixed-size node, edge and global feature vectors.
type GraphFeature struct {
	base
	nodeSize   int
	edgeSize   int
	globalSize int
	dtype      tensor.DType
}

type graphFeatureYAML struct {
	Name              string `yaml:"__name__"`
	Key               string `yaml:"key"`
	NodeFeatureSize   *int   `yaml:"node_feature_size"`
	EdgeFeatureSize   *int   `yaml:"edge_feature_size"`
	GlobalFeatureSize *int   `yaml:"global_feature_size"`
	DType             string `yaml:"dtype"`
	Description       string `yaml:"description,omitempty"`
}

// NewGraphFeature validates and builds a GraphFeature.
func NewGraphFeature(key string, nodeSize, edgeSize, globalSize int, dtype tensor.DType, description string) (*GraphFeature, error) {
	if err := requireKey(GraphKind, key); err != nil {
		return nil, err
	}
	if !dtype.Valid() {
		return nil, errors.NewValidationError("dtype", fmt.Sprintf("%s %q: unsupported dtype %q", GraphKind, key, dtype))
	}
	if nodeSize < 0 || edgeSize < 0 || globalSize < 0 {
		return nil, errors.NewValidationError("", fmt.Sprintf("%s %q: feature sizes must not be negative", GraphKind, key))
	}
	return &GraphFeature{
		base:       base{key: key, description: description},
		nodeSize:   nodeSize,
		edgeSize:   edgeSize,
		globalSize: globalSize,
		dtype:      dtype,
	}, nil
}

// DecodeGraphFeature builds a GraphFeature from a schema entry. Every size and
// the dtype are required.
func DecodeGraphFeature(node *yaml.Node) (Feature, error) {
	var raw graphFeatureYAML
	if err := decodeEntry(GraphKind, node, &raw); err != nil {
		return nil, err
	}
	if err := requireKey(GraphKind, raw.Key); err != nil {
		return nil, err
	}
	for field, v := range map[string]*int{
		"node_feature_size":   raw.NodeFeatureSize,
		"edge_feature_size":   raw.EdgeFeatureSize,
		"global_feature_size": raw.GlobalFeatureSize,
	} {
		if v == nil {
			return nil, errors.NewValidationError(field, fmt.Sprintf("%s %q: required", GraphKind, raw.Key))
		}
	}
	if raw.DType == "" {
		return nil, errors.NewValidationError("dtype", fmt.Sprintf("%s %q: required", GraphKind, raw.Key))
	}
	return NewGraphFeature(raw.Key, *raw.NodeFeatureSize, *raw.EdgeFeatureSize, *raw.GlobalFeatureSize,
		tensor.DType(raw.DType), raw.Description)
}

func (f *GraphFeature) MarshalYAML() (any, error) {
	return graphFeatureYAML{
		Name:              GraphKind,
		Key:               f.key,
		NodeFeatureSize:   &f.nodeSize,
		EdgeFeatureSize:   &f.edgeSize,
		GlobalFeatureSize: &f.globalSize,
		DType:             string(f.dtype),
		Description:       f.description,
	}, nil
}

func (f *GraphFeature) Kind() string        { return GraphKind }
func (f *GraphFeature) DType() tensor.DType { return f.dtype }

func (f *GraphFeature) name(field string) string { return f.key + "_" + field }

func (f *GraphFeature) FeatureRead() map[string]tfrecord.Descriptor {
	return map[string]tfrecord.Descriptor{
		f.name(fieldNodes):     tfrecord.FixedLen(tfrecord.BytesType),
		f.name(fieldEdges):     tfrecord.FixedLen(tfrecord.BytesType),
		f.name(fieldGlobals):   tfrecord.FixedLen(tfrecord.BytesType),
		f.name(fieldSenders):   tfrecord.FixedLen(tfrecord.BytesType),
		f.name(fieldReceivers): tfrecord.FixedLen(tfrecord.BytesType),
		f.name(fieldNNode):     tfrecord.FixedLen(tfrecord.Int64Type),
		f.name(fieldNEdge):     tfrecord.FixedLen(tfrecord.Int64Type),
	}
}

func (f *GraphFeature) TensorsToItem(parsed tfrecord.Parsed) (any, error) {
	nNode, err := f.count(parsed, fieldNNode)
	if err != nil {
		return nil, err
	}
	nEdge, err := f.count(parsed, fieldNEdge)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		NNode: tensor.Must(tensor.New([]int32{int32(nNode)})),
		NEdge: tensor.Must(tensor.New([]int32{int32(nEdge)})),
	}
	decode := []struct {
		field string
		dtype tensor.DType
		shape []int
		dst   **tensor.Dense
	}{
		{fieldNodes, f.dtype, []int{nNode, f.nodeSize}, &g.Nodes},
		{fieldEdges, f.dtype, []int{nEdge, f.edgeSize}, &g.Edges},
		{fieldGlobals, f.dtype, []int{f.globalSize}, &g.Globals},
		{fieldSenders, tensor.Int32, []int{nEdge}, &g.Senders},
		{fieldReceivers, tensor.Int32, []int{nEdge}, &g.Receivers},
	}
	for _, d := range decode {
		raw, err := itemAs[[]byte](f.name(d.field), parsed[f.name(d.field)])
		if err != nil {
			return nil, err
		}
		t, err := tensor.FromBytes(d.dtype, d.shape, raw)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %s: %w", f.key, d.field, err)
		}
		*d.dst = t
	}
	return g, nil
}

func (f *GraphFeature) count(parsed tfrecord.Parsed, field string) (int, error) {
	t, err := itemAs[*tensor.Dense](f.name(field), parsed[f.name(field)])
	if err != nil {
		return 0, err
	}
	v, err := t.Int64s()
	if err != nil || len(v) != 1 || v[0] < 0 || v[0] > math.MaxInt32 {
		return 0, errors.NewShapeMismatchError(f.name(field), "scalar count in [0, MaxInt32]", t.String())
	}
	return int(v[0]), nil
}

func (f *GraphFeature) FeatureWrite(item any) (map[string]tfrecord.Feature, error) {
	g, err := itemAs[*Graph](f.key, item)
	if err != nil {
		return nil, err
	}
	if err := f.checkSingle(g); err != nil {
		return nil, err
	}
	nNode, _ := g.NNode.Int64s()
	nEdge, _ := g.NEdge.Int64s()
	return map[string]tfrecord.Feature{
		f.name(fieldNodes):     tfrecord.BytesFeature(g.Nodes.Bytes()),
		f.name(fieldEdges):     tfrecord.BytesFeature(g.Edges.Bytes()),
		f.name(fieldGlobals):   tfrecord.BytesFeature(g.Globals.Bytes()),
		f.name(fieldSenders):   tfrecord.BytesFeature(g.Senders.Bytes()),
		f.name(fieldReceivers): tfrecord.BytesFeature(g.Receivers.Bytes()),
		f.name(fieldNNode):     tfrecord.Int64Feature(nNode...),
		f.name(fieldNEdge):     tfrecord.Int64Feature(nEdge...),
	}, nil
}

// checkSingle verifies that g is one unbatched graph consistent with f.
func (f *GraphFeature) checkSingle(g *Graph) error {
	for _, c := range []struct {
		field string
		t     *tensor.Dense
	}{
		{fieldNodes, g.Nodes}, {fieldEdges, g.Edges}, {fieldGlobals, g.Globals},
		{fieldSenders, g.Senders}, {fieldReceivers, g.Receivers},
		{fieldNNode, g.NNode}, {fieldNEdge, g.NEdge},
	} {
		if c.t == nil {
			return errors.NewMissingValueError(f.key, f.name(c.field))
		}
	}
	nNode, err := g.NNode.Int64s()
	if err != nil || g.NNode.Rank() != 0 {
		return errors.NewShapeMismatchError(f.name(fieldNNode), "int32[]", g.NNode.String())
	}
	nEdge, err := g.NEdge.Int64s()
	if err != nil || g.NEdge.Rank() != 0 {
		return errors.NewShapeMismatchError(f.name(fieldNEdge), "int32[]", g.NEdge.String())
	}
	for _, c := range []struct {
		field string
		dtype tensor.DType
		shape []int
		t     *tensor.Dense
	}{
		{fieldNodes, f.dtype, []int{int(nNode[0]), f.nodeSize}, g.Nodes},
		{fieldEdges, f.dtype, []int{int(nEdge[0]), f.edgeSize}, g.Edges},
		{fieldGlobals, f.dtype, []int{f.globalSize}, g.Globals},
		{fieldSenders, tensor.Int32, []int{int(nEdge[0])}, g.Senders},
		{fieldReceivers, tensor.Int32, []int{int(nEdge[0])}, g.Receivers},
	} {
		if c.t.DType() != c.dtype || !tensor.Compatible(c.shape, c.t.Shape()) {
			return errors.NewShapeMismatchError(f.name(c.field), string(c.dtype)+tensor.ShapeString(c.shape), c.t.String())
		}
	}
	return nil
}

// Stack concatenates single graphs into one batched graph. Sender and receiver
// indices are shifted by the number of nodes in the preceding graphs.
func (f *GraphFeature) Stack(items []any) (any, error) {
	graphs, err := itemsAs[*Graph](f.key, items)
	if err != nil {
		return nil, err
	}
	if len(graphs) == 0 {
		return nil, errors.NewValidationError(f.key, "cannot stack an empty list")
	}

	var nodes, edges, globals, senders, receivers, nNodes, nEdges []*tensor.Dense
	var offset int64
	for i, g := range graphs {
		if err := f.checkSingle(g); err != nil {
			return nil, fmt.Errorf("graph %d: %w", i, err)
		}
		s, err := g.Senders.AddScalar(offset)
		if err != nil {
			return nil, err
		}
		r, err := g.Receivers.AddScalar(offset)
		if err != nil {
			return nil, err
		}
		n, _ := g.NNode.Int64s()
		offset += n[0]

		nodes = append(nodes, g.Nodes)
		edges = append(edges, g.Edges)
		globals = append(globals, g.Globals)
		senders = append(senders, s)
		receivers = append(receivers, r)
		nNodes = append(nNodes, g.NNode)
		nEdges = append(nEdges, g.NEdge)
	}

	out := &Graph{}
	for _, j := range []struct {
		dst   **tensor.Dense
		parts []*tensor.Dense
		join  func([]*tensor.Dense) (*tensor.Dense, error)
	}{
		{&out.Nodes, nodes, tensor.Concat},
		{&out.Edges, edges, tensor.Concat},
		{&out.Globals, globals, tensor.Stack},
		{&out.Senders, senders, tensor.Concat},
		{&out.Receivers, receivers, tensor.Concat},
		{&out.NNode, nNodes, tensor.Stack},
		{&out.NEdge, nEdges, tensor.Stack},
	} {
		t, err := j.join(j.parts)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", f.key, err)
		}
		*j.dst = t
	}
	return out, nil
}

func (f *GraphFeature) PlaceholderAndFeature(batched bool) (map[string]*Placeholder, any) {
	globals := []int{f.globalSize}
	var count []int
	if batched {
		globals = []int{-1, f.globalSize}
		count = []int{-1}
	}
	sym := &GraphPlaceholders{
		Nodes:     NewPlaceholder(f.name(fieldNodes), f.dtype, -1, f.nodeSize),
		Edges:     NewPlaceholder(f.name(fieldEdges), f.dtype, -1, f.edgeSize),
		Globals:   NewPlaceholder(f.name(fieldGlobals), f.dtype, globals...),
		Senders:   NewPlaceholder(f.name(fieldSenders), tensor.Int32, -1),
		Receivers: NewPlaceholder(f.name(fieldReceivers), tensor.Int32, -1),
		NNode:     NewPlaceholder(f.name(fieldNNode), tensor.Int32, count...),
		NEdge:     NewPlaceholder(f.name(fieldNEdge), tensor.Int32, count...),
	}
	phs := make(map[string]*Placeholder, 7)
	for _, ph := range []*Placeholder{sym.Nodes, sym.Edges, sym.Globals, sym.Senders, sym.Receivers, sym.NNode, sym.NEdge} {
		phs[ph.Name] = ph
	}
	return phs, sym
}

func (f *GraphFeature) FeedDict(placeholders map[string]*Placeholder, values map[string]any, batched bool) (FeedDict, error) {
	raw, err := lookupValue(f.key, values)
	if err != nil {
		return nil, err
	}
	v, err := batchedValue[*Graph](f, raw, batched)
	if err != nil {
		return nil, err
	}
	g := v.(*Graph)
	if batched && g.NNode != nil && g.NNode.Rank() == 0 {
		// a single graph fed as a batch of one
		stacked, err := f.Stack([]any{g})
		if err != nil {
			return nil, err
		}
		g = stacked.(*Graph)
	}

	fd := FeedDict{}
	for _, c := range []struct {
		field string
		t     *tensor.Dense
	}{
		{fieldNodes, g.Nodes}, {fieldEdges, g.Edges}, {fieldGlobals, g.Globals},
		{fieldSenders, g.Senders}, {fieldReceivers, g.Receivers},
		{fieldNNode, g.NNode}, {fieldNEdge, g.NEdge},
	} {
		if c.t == nil {
			return nil, errors.NewMissingValueError(f.key, f.name(c.field))
		}
		if err := fd.feed(placeholders, f.name(c.field), c.t); err != nil {
			return nil, err
		}
	}
	return fd, nil
}

// ItemFromArrays reads the graph from "<key>_<field>" arrays. Index and count
// arrays may be stored with any integer dtype.
func (f *GraphFeature) ItemFromArrays(arrays map[string]*tensor.Dense) (any, error) {
	g := &Graph{}
	for _, c := range []struct {
		field string
		dst   **tensor.Dense
		index bool
	}{
		{fieldNodes, &g.Nodes, false},
		{fieldEdges, &g.Edges, false},
		{fieldGlobals, &g.Globals, false},
		{fieldSenders, &g.Senders, true},
		{fieldReceivers, &g.Receivers, true},
		{fieldNNode, &g.NNode, true},
		{fieldNEdge, &g.NEdge, true},
	} {
		a, err := lookupArray(f.key, f.name(c.field), arrays)
		if err != nil {
			return nil, err
		}
		if c.index {
			if a, err = toInt32(a); err != nil {
				return nil, fmt.Errorf("%s: %w", f.name(c.field), err)
			}
		}
		*c.dst = a
	}
	if err := f.checkSingle(g); err != nil {
		return nil, err
	}
	return g, nil
}

func toInt32(t *tensor.Dense) (*tensor.Dense, error) {
	if t.DType() == tensor.Int32 {
		return t, nil
	}
	wide, err := t.Int64s()
	if err != nil {
		return nil, err
	}
	narrow := make([]int32, len(wide))
	for i, v := range wide {
		narrow[i] = int32(v)
	}
	return tensor.New(narrow, t.Shape()...)
}
