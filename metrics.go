/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package featureloader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the work done by a reader.
type Metrics struct {
	RecordsParsed    prometheus.Counter
	BatchesAssembled prometheus.Counter
	SamplesAssembled prometheus.Counter
	NpzFilesLoaded   prometheus.Counter
	RecordFiles      *prometheus.GaugeVec
}

// NewMetrics creates the reader metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsParsed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "featureloader",
			Name:      "records_parsed_total",
			Help:      "Serialized records parsed into samples.",
		}),
		BatchesAssembled: f.NewCounter(prometheus.CounterOpts{
			Namespace: "featureloader",
			Name:      "batches_assembled_total",
			Help:      "Batches assembled from sample iterators.",
		}),
		SamplesAssembled: f.NewCounter(prometheus.CounterOpts{
			Namespace: "featureloader",
			Name:      "samples_assembled_total",
			Help:      "Samples drawn into batches.",
		}),
		NpzFilesLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "featureloader",
			Name:      "npz_files_loaded_total",
			Help:      "Sample archives loaded.",
		}),
		RecordFiles: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "featureloader",
			Name:      "record_files",
			Help:      "Record files found by the last dataset build, by mode.",
		}, []string{"mode"}),
	}
}
