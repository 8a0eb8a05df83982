/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package featureloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/suparena/featureloader/dataset"
	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/tfrecord"
)

// RecordExt is the extension of record files inside a mode directory.
const RecordExt = ".tfrecords"

// Sample maps feature keys to items: single items for one sample, stacked
// items for a batch.
type Sample map[string]any

// ParserFunc turns one serialized record into a sample.
type ParserFunc func(record []byte) (Sample, error)

// DataReader reads the record files of a data directory according to the
// schema found in it.
type DataReader struct {
	dataDir     string
	features    *FeatureSet
	logger      log.Logger
	metrics     *Metrics
	compression tfrecord.Compression
}

// New loads <dataDir>/config.yaml. Every schema error is reported here.
func New(dataDir string, opts ...Option) (*DataReader, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	logger := log.With(o.logger, "component", "featureloader", "data_dir", dataDir)

	features, err := LoadSchema(filepath.Join(dataDir, SchemaFile), logger)
	if err != nil {
		return nil, err
	}
	level.Info(logger).Log("msg", "schema loaded", "features", features.Len())

	return &DataReader{
		dataDir:     dataDir,
		features:    features,
		logger:      logger,
		metrics:     o.metrics,
		compression: o.compression,
	}, nil
}

// DataDir returns the dataset directory holding the schema and mode subdirectories.
func (r *DataReader) DataDir() string { return r.dataDir }

// Features returns the schema the reader was built from.
func (r *DataReader) Features() *FeatureSet { return r.features }

// BuildParser merges the read descriptors of every feature and returns a
// function parsing one record into one item per feature key. Descriptor
// collisions are not checked; a later feature's descriptor wins.
func (r *DataReader) BuildParser() ParserFunc {
	descriptors := make(map[string]tfrecord.Descriptor)
	for _, f := range r.features.All() {
		for k, d := range f.FeatureRead() {
			descriptors[k] = d
		}
	}
	features := r.features.All()
	parsedCounter := r.metrics.RecordsParsed

	return func(record []byte) (Sample, error) {
		parsed, err := tfrecord.ParseSingleExample(record, descriptors)
		if err != nil {
			return nil, err
		}
		sample := make(Sample, len(features))
		for _, f := range features {
			item, err := f.TensorsToItem(parsed)
			if err != nil {
				return nil, fmt.Errorf("feature %q: %w", f.Key(), err)
			}
			sample[f.Key()] = item
		}
		parsedCounter.Inc()
		return sample, nil
	}
}

// recordFiles lists <dataDir>/<mode>/*.tfrecords in lexical order.
func (r *DataReader) recordFiles(mode string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(r.dataDir, mode, "*"+RecordExt))
	if err != nil {
		return nil, errors.NewValidationError("mode", fmt.Sprintf("%q: %v", mode, err))
	}
	sort.Strings(files)
	r.metrics.RecordFiles.WithLabelValues(mode).Set(float64(len(files)))
	level.Debug(r.logger).Log("msg", "record files found", "mode", mode, "files", len(files))
	return files, nil
}

func (r *DataReader) pipeline(files []string, repeat int) dataset.Dataset[Sample] {
	if len(files) == 0 {
		return dataset.Empty[Sample]()
	}
	parser := r.BuildParser()
	ds := dataset.Map(dataset.TFRecordFiles(files, r.compression), func(record []byte) (Sample, error) {
		return parser(record)
	})
	return dataset.Repeat(ds, repeat)
}

// BuildDataset streams the parsed samples of every record file of mode,
// repeat times. A mode without record files yields an empty dataset.
func (r *DataReader) BuildDataset(mode string, repeat int) (dataset.Dataset[Sample], error) {
	files, err := r.recordFiles(mode)
	if err != nil {
		return nil, err
	}
	return r.pipeline(files, repeat), nil
}

// AssembleBatch draws batchSize samples from it, one blocking Next call after
// the other, and stacks them per feature. Running out of samples part way is
// an ExhaustedError; a short batch is never returned.
func (r *DataReader) AssembleBatch(ctx context.Context, it dataset.Iterator[Sample], batchSize int) (Sample, error) {
	if batchSize < 1 {
		return nil, errors.NewValidationError("batchSize", fmt.Sprintf("must be at least 1, got %d", batchSize))
	}

	draws := make([]Sample, 0, batchSize)
	for len(draws) < batchSize {
		s, err := it.Next(ctx)
		if err != nil {
			if errors.IsExhausted(err) {
				return nil, errors.NewExhaustedError(batchSize, len(draws))
			}
			return nil, err
		}
		draws = append(draws, s)
	}

	batch := make(Sample, r.features.Len())
	for _, f := range r.features.All() {
		items := make([]any, batchSize)
		for i, s := range draws {
			items[i] = s[f.Key()]
		}
		stacked, err := f.Stack(items)
		if err != nil {
			return nil, fmt.Errorf("stack feature %q: %w", f.Key(), err)
		}
		batch[f.Key()] = stacked
	}
	r.metrics.BatchesAssembled.Inc()
	r.metrics.SamplesAssembled.Add(float64(batchSize))
	return batch, nil
}

// GetStandardBatch builds the standard training pipeline for mode and returns
// its first batch. See Batches for the pipeline.
func (r *DataReader) GetStandardBatch(ctx context.Context, mode string, batchSize int, opts ...BatchOption) (Sample, error) {
	it, err := r.Batches(ctx, mode, batchSize, opts...)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	return it.Next(ctx)
}

// Batches builds the standard training pipeline for mode: list the record
// files, shuffle the file list, read and parse, repeat, shuffle through a
// buffer, prefetch. Shuffling steps are skipped with WithShuffle(false).
func (r *DataReader) Batches(ctx context.Context, mode string, batchSize int, opts ...BatchOption) (*BatchIterator, error) {
	if batchSize < 1 {
		return nil, errors.NewValidationError("batchSize", fmt.Sprintf("must be at least 1, got %d", batchSize))
	}
	o := defaultBatchOptions(batchSize)
	for _, opt := range opts {
		opt(&o)
	}
	if o.shuffle && o.bufferSize < 1 {
		return nil, errors.NewValidationError("bufferSize", fmt.Sprintf("must be at least 1, got %d", o.bufferSize))
	}

	files, err := r.recordFiles(mode)
	if err != nil {
		return nil, err
	}
	if o.shuffle {
		dataset.ShuffleSlice(files, o.seed)
	}
	ds := r.pipeline(files, o.repeat)
	if o.shuffle {
		ds = dataset.Shuffle(ds, o.bufferSize, o.seed)
	}
	ds = dataset.Prefetch(ds, o.prefetch)

	it, err := ds.Iterate(ctx)
	if err != nil {
		return nil, err
	}
	level.Debug(r.logger).Log("msg", "batch pipeline started", "mode", mode, "batch_size", batchSize,
		"shuffle", o.shuffle, "buffer_size", o.bufferSize, "repeat", o.repeat, "prefetch", o.prefetch)
	return &BatchIterator{reader: r, it: it, batchSize: batchSize}, nil
}

// BatchIterator yields successive batches from one pass over a pipeline.
type BatchIterator struct {
	reader    *DataReader
	it        dataset.Iterator[Sample]
	batchSize int
}

// Next assembles the next batch.
func (b *BatchIterator) Next(ctx context.Context) (Sample, error) {
	return b.reader.AssembleBatch(ctx, b.it, b.batchSize)
}

// Close releases the open record files and any prefetch worker.
func (b *BatchIterator) Close() error { return b.it.Close() }

// SerializeSample encodes a single sample as a tf.Example record. It is the
// inverse of the parser returned by BuildParser.
func (r *DataReader) SerializeSample(sample Sample) ([]byte, error) {
	ex := &tfrecord.Example{Features: make(map[string]tfrecord.Feature)}
	for _, f := range r.features.All() {
		item, ok := sample[f.Key()]
		if !ok || item == nil {
			return nil, errors.NewMissingValueError(f.Key(), f.Key())
		}
		fields, err := f.FeatureWrite(item)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", f.Key(), err)
		}
		for k, v := range fields {
			ex.Features[k] = v
		}
	}
	return ex.Marshal()
}

// WriteRecords serializes samples into <dataDir>/<mode>/<name>.tfrecords and
// returns the file path.
func (r *DataReader) WriteRecords(mode, name string, samples []Sample) (string, error) {
	records := make([][]byte, len(samples))
	for i, s := range samples {
		rec, err := r.SerializeSample(s)
		if err != nil {
			return "", fmt.Errorf("sample %d: %w", i, err)
		}
		records[i] = rec
	}

	dir := filepath.Join(r.dataDir, mode)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create mode directory: %w", err)
	}
	path := filepath.Join(dir, name+RecordExt)
	if err := tfrecord.WriteFile(path, r.compression, records); err != nil {
		return "", err
	}
	level.Info(r.logger).Log("msg", "records written", "path", path, "records", len(records))
	return path, nil
}
