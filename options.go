/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package featureloader

import (
	"math/rand/v2"

	"github.com/go-kit/log"

	"github.com/suparena/featureloader/dataset"
	"github.com/suparena/featureloader/tfrecord"
)

// SchemaFile is the name of the schema inside a data directory.
const SchemaFile = "config.yaml"

// RepeatForever repeats a dataset until the consumer stops.
const RepeatForever = dataset.RepeatForever

// Option configures a DataReader.
type Option func(*options)

type options struct {
	logger      log.Logger
	metrics     *Metrics
	compression tfrecord.Compression
}

func defaultOptions() options {
	return options{
		logger:      log.NewNopLogger(),
		compression: tfrecord.CompressionNone,
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics reports reader activity to m. The default counts into
// unregistered collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCompression sets the compression of the record files read and written.
func WithCompression(c tfrecord.Compression) Option {
	return func(o *options) { o.compression = c }
}

// BatchOption configures GetStandardBatch and Batches.
type BatchOption func(*batchOptions)

type batchOptions struct {
	shuffle    bool
	bufferSize int
	repeat     int
	seed       uint64
	prefetch   int
}

// defaultBatchOptions shuffles with a buffer of five batches and repeats forever.
func defaultBatchOptions(batchSize int) batchOptions {
	return batchOptions{
		shuffle:    true,
		bufferSize: 5 * batchSize,
		repeat:     RepeatForever,
		seed:       rand.Uint64(),
	}
}

// WithShuffle turns file-order and buffered shuffling on or off.
func WithShuffle(shuffle bool) BatchOption {
	return func(o *batchOptions) { o.shuffle = shuffle }
}

// WithBufferSize sets the shuffle buffer size.
func WithBufferSize(n int) BatchOption {
	return func(o *batchOptions) { o.bufferSize = n }
}

// WithRepeat sets how many epochs are read. RepeatForever never stops.
func WithRepeat(n int) BatchOption {
	return func(o *batchOptions) { o.repeat = n }
}

// WithSeed makes shuffling reproducible.
func WithSeed(seed uint64) BatchOption {
	return func(o *batchOptions) { o.seed = seed }
}

// WithPrefetch parses up to n samples ahead on a background worker.
func WithPrefetch(n int) BatchOption {
	return func(o *batchOptions) { o.prefetch = n }
}
