/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package featureloader_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/featureloader"
	"github.com/suparena/featureloader/dataset"
	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/feature"
	"github.com/suparena/featureloader/tensor"
	"github.com/suparena/featureloader/tfrecord"
)

const mixedSchema = `
- __name__: TensorFeature
  key: x
  shape: [2, 2]
  dtype: float32
  description: input grid
- __name__: GraphFeature
  key: g
  node_feature_size: 2
  edge_feature_size: 1
  global_feature_size: 1
  dtype: float32
- __name__: SparseTensorFeature
  key: ids
  dtype: int64
`

func writeSchema(t *testing.T, dir, schema string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, featureloader.SchemaFile), []byte(schema), 0o644))
}

func newReader(t *testing.T, schema string, opts ...featureloader.Option) *featureloader.DataReader {
	t.Helper()
	dir := t.TempDir()
	writeSchema(t, dir, schema)
	r, err := featureloader.New(dir, opts...)
	require.NoError(t, err)
	return r
}

// makeSample builds sample i of mixedSchema; x is filled with i.
func makeSample(i int) featureloader.Sample {
	v := float32(i)
	return featureloader.Sample{
		"x": tensor.Must(tensor.New([]float32{v, v, v, v}, 2, 2)),
		"g": &feature.Graph{
			Nodes:     tensor.Must(tensor.New([]float32{v, 0, v, 1}, 2, 2)),
			Edges:     tensor.Must(tensor.New([]float32{v}, 1, 1)),
			Globals:   tensor.Must(tensor.New([]float32{v}, 1)),
			Senders:   tensor.Must(tensor.New([]int32{0}, 1)),
			Receivers: tensor.Must(tensor.New([]int32{1}, 1)),
			NNode:     tensor.Must(tensor.New([]int32{2})),
			NEdge:     tensor.Must(tensor.New([]int32{1})),
		},
		"ids": mustSparse(int64(i), int64(i+1)),
	}
}

func mustSparse(values ...int64) *tensor.Sparse {
	s, err := tensor.SparseVector(tensor.Must(tensor.New(values, len(values))))
	if err != nil {
		panic(err)
	}
	return s
}

func writeSamples(t *testing.T, r *featureloader.DataReader, mode, name string, from, to int) {
	t.Helper()
	var samples []featureloader.Sample
	for i := from; i < to; i++ {
		samples = append(samples, makeSample(i))
	}
	_, err := r.WriteRecords(mode, name, samples)
	require.NoError(t, err)
}

// firstValues returns x[0,0] of every sample in a batch.
func firstValues(t *testing.T, batch featureloader.Sample) []float32 {
	t.Helper()
	x := batch["x"].(*tensor.Dense)
	data := x.Data().([]float32)
	out := make([]float32, x.Shape()[0])
	for i := range out {
		out[i] = data[i*4]
	}
	return out
}

func TestNewLoadsSchema(t *testing.T) {
	r := newReader(t, mixedSchema)
	assert.Equal(t, 3, r.Features().Len())
	assert.Equal(t, []string{"x", "g", "ids"}, r.Features().Keys())

	x, ok := r.Features().Get("x")
	require.True(t, ok)
	assert.Equal(t, feature.TensorKind, x.Kind())
	assert.Equal(t, "input grid", x.Description())
}

func TestDuplicateKeysLastWins(t *testing.T) {
	var buf bytes.Buffer
	r := newReader(t, `
- {__name__: TensorFeature, key: x, shape: [1], dtype: float32}
- {__name__: TensorFeature, key: y, shape: [1], dtype: float32}
- {__name__: TensorFeature, key: x, shape: [3], dtype: int64}
`, featureloader.WithLogger(log.NewLogfmtLogger(&buf)))

	assert.Equal(t, 2, r.Features().Len())
	assert.Equal(t, []string{"x", "y"}, r.Features().Keys())
	x, _ := r.Features().Get("x")
	assert.Equal(t, []int{3}, x.(*feature.TensorFeature).Shape())
	assert.Equal(t, tensor.Int64, x.(*feature.TensorFeature).DType())
	assert.Contains(t, buf.String(), "duplicate feature key")
}

func TestNewSchemaErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := featureloader.New(t.TempDir())
		assert.True(t, errors.IsNotFound(err), "got %v", err)
	})

	cases := map[string]struct {
		schema string
		check  func(error) bool
	}{
		"malformed":      {"- [unclosed", errors.IsValidationError},
		"empty":          {"", errors.IsValidationError},
		"not a sequence": {"key: x", errors.IsValidationError},
		"scalar entry":   {"- TensorFeature", errors.IsValidationError},
		"no kind":        {"- {key: x, shape: [1], dtype: float32}", errors.IsValidationError},
		"unknown kind":   {"- {__name__: ImageFeature, key: x}", errors.IsUnknownKind},
		"missing field":  {"- {__name__: TensorFeature, key: x, dtype: float32}", errors.IsValidationError},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeSchema(t, dir, c.schema)
			_, err := featureloader.New(dir)
			require.Error(t, err)
			assert.True(t, c.check(err), "got %v", err)
		})
	}
}

func TestWriteSchemaRoundTrip(t *testing.T) {
	r := newReader(t, mixedSchema)
	dir := t.TempDir()
	require.NoError(t, featureloader.WriteSchema(filepath.Join(dir, featureloader.SchemaFile), r.Features().All()))

	back, err := featureloader.New(dir)
	require.NoError(t, err)
	assert.Equal(t, r.Features().All(), back.Features().All())
}

func TestParserRoundTrip(t *testing.T) {
	r := newReader(t, mixedSchema)
	want := makeSample(5)
	record, err := r.SerializeSample(want)
	require.NoError(t, err)

	got, err := r.BuildParser()(record)
	require.NoError(t, err)
	require.Len(t, got, r.Features().Len())
	for _, key := range r.Features().Keys() {
		require.Contains(t, got, key)
	}

	assert.True(t, want["x"].(*tensor.Dense).Equal(got["x"].(*tensor.Dense)))
	assert.True(t, want["ids"].(*tensor.Sparse).Equal(got["ids"].(*tensor.Sparse)))
	wg, gg := want["g"].(*feature.Graph), got["g"].(*feature.Graph)
	assert.True(t, wg.Nodes.Equal(gg.Nodes))
	assert.True(t, wg.Senders.Equal(gg.Senders))
	assert.True(t, wg.NEdge.Equal(gg.NEdge))
}

func TestSerializeSampleMissingKey(t *testing.T) {
	r := newReader(t, mixedSchema)
	s := makeSample(1)
	delete(s, "g")
	_, err := r.SerializeSample(s)
	assert.True(t, errors.IsMissingValue(err))
}

func TestAssembleBatch(t *testing.T) {
	ctx := context.Background()
	r := newReader(t, mixedSchema)
	samples := []featureloader.Sample{makeSample(0), makeSample(1), makeSample(2), makeSample(3)}

	it, err := dataset.FromSlice(samples).Iterate(ctx)
	require.NoError(t, err)
	batch, err := r.AssembleBatch(ctx, it, 3)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2, 2}, batch["x"].(*tensor.Dense).Shape())
	assert.Equal(t, []float32{0, 1, 2}, firstValues(t, batch))
	assert.Equal(t, []int{3}, batch["g"].(*feature.Graph).NNode.Shape())
	assert.Equal(t, 3, batch["ids"].(*tensor.Sparse).DenseShape[0])

	// one sample left: exhaustion, not a short batch
	_, err = r.AssembleBatch(ctx, it, 3)
	require.Error(t, err)
	assert.True(t, errors.IsExhausted(err))
	var ex *errors.ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 1, ex.Received)

	_, err = r.AssembleBatch(ctx, it, 0)
	assert.True(t, errors.IsValidationError(err))
}

func TestBuildDataset(t *testing.T) {
	ctx := context.Background()
	r := newReader(t, mixedSchema)
	writeSamples(t, r, "data_train", "a", 0, 3)
	writeSamples(t, r, "data_train", "b", 3, 5)

	ds, err := r.BuildDataset("data_train", 2)
	require.NoError(t, err)
	it, err := ds.Iterate(ctx)
	require.NoError(t, err)
	defer it.Close()
	all, err := dataset.Collect(ctx, it)
	require.NoError(t, err)
	assert.Len(t, all, 10)

	ds, err = r.BuildDataset("data_missing", featureloader.RepeatForever)
	require.NoError(t, err)
	it, err = ds.Iterate(ctx)
	require.NoError(t, err)
	_, err = it.Next(ctx)
	assert.True(t, errors.IsExhausted(err))
}

func TestGetStandardBatchWithoutShuffle(t *testing.T) {
	ctx := context.Background()
	r := newReader(t, mixedSchema)
	writeSamples(t, r, "data_train", "a", 0, 4)

	batch, err := r.GetStandardBatch(ctx, "data_train", 3, featureloader.WithShuffle(false))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 2}, firstValues(t, batch))

	// repeat forever wraps around the single file
	batch, err = r.GetStandardBatch(ctx, "data_train", 6, featureloader.WithShuffle(false))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 2, 3, 0, 1}, firstValues(t, batch))

	_, err = r.GetStandardBatch(ctx, "data_train", 6, featureloader.WithShuffle(false), featureloader.WithRepeat(1))
	assert.True(t, errors.IsExhausted(err))
}

func TestGetStandardBatchShuffleIsSeeded(t *testing.T) {
	ctx := context.Background()
	r := newReader(t, mixedSchema)
	writeSamples(t, r, "data_train", "a", 0, 10)
	writeSamples(t, r, "data_train", "b", 10, 20)

	opts := []featureloader.BatchOption{featureloader.WithSeed(7), featureloader.WithRepeat(1), featureloader.WithBufferSize(8)}
	first, err := r.GetStandardBatch(ctx, "data_train", 20, opts...)
	require.NoError(t, err)
	second, err := r.GetStandardBatch(ctx, "data_train", 20, opts...)
	require.NoError(t, err)

	got := firstValues(t, first)
	assert.Equal(t, got, firstValues(t, second))
	assert.ElementsMatch(t, []float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, got)
}

func TestBatchesWithPrefetch(t *testing.T) {
	ctx := context.Background()
	r := newReader(t, mixedSchema)
	writeSamples(t, r, "data_train", "a", 0, 6)

	batches, err := r.Batches(ctx, "data_train", 2,
		featureloader.WithShuffle(false), featureloader.WithRepeat(1), featureloader.WithPrefetch(4))
	require.NoError(t, err)
	defer batches.Close()

	var seen []float32
	for {
		batch, err := batches.Next(ctx)
		if errors.IsExhausted(err) {
			break
		}
		require.NoError(t, err)
		seen = append(seen, firstValues(t, batch)...)
	}
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5}, seen)

	_, err = r.Batches(ctx, "data_train", 0)
	assert.True(t, errors.IsValidationError(err))
}

func TestCompressedRecords(t *testing.T) {
	ctx := context.Background()
	r := newReader(t, mixedSchema, featureloader.WithCompression(tfrecord.CompressionGzip))
	writeSamples(t, r, "data_train", "a", 0, 2)

	batch, err := r.GetStandardBatch(ctx, "data_train", 2, featureloader.WithShuffle(false))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, firstValues(t, batch))
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewPedanticRegistry()
	m := featureloader.NewMetrics(reg)
	r := newReader(t, mixedSchema, featureloader.WithMetrics(m))
	writeSamples(t, r, "data_train", "a", 0, 4)

	_, err := r.GetStandardBatch(ctx, "data_train", 4, featureloader.WithShuffle(false), featureloader.WithRepeat(1))
	require.NoError(t, err)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.RecordsParsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesAssembled))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SamplesAssembled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordFiles.WithLabelValues("data_train")))
}
