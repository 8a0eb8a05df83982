/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package featureloader

import (
	"context"
	"path/filepath"
	"time"

	"github.com/go-kit/log/level"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/suparena/featureloader/datastore"
	"github.com/suparena/featureloader/storagemodels"
	"github.com/suparena/featureloader/tfrecord"
)

// manifestConcurrency bounds the record files counted at once.
const manifestConcurrency = 4

// Manifest describes the record files of mode: one entry per file with its
// record count, and a summary of the schema.
func (r *DataReader) Manifest(ctx context.Context, mode string) (*storagemodels.DatasetManifest, error) {
	files, err := r.recordFiles(mode)
	if err != nil {
		return nil, err
	}

	summaries := make([]storagemodels.FileSummary, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(manifestConcurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := tfrecord.CountRecords(path, r.compression)
			if err != nil {
				return err
			}
			summaries[i] = storagemodels.FileSummary{Name: filepath.Base(path), Records: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &storagemodels.DatasetManifest{
		ID:        strfmt.UUID(uuid.NewString()),
		DataDir:   r.dataDir,
		Mode:      mode,
		Files:     summaries,
		CreatedAt: storagemodels.NewTimestamp(time.Now()),
	}
	for _, s := range summaries {
		m.Records += s.Records
	}
	for _, f := range r.features.All() {
		m.Features = append(m.Features, storagemodels.FeatureSummary{
			Key:         f.Key(),
			Kind:        f.Kind(),
			Description: f.Description(),
		})
	}
	return m, nil
}

// Publish stores the manifest of mode in the catalog and returns it.
func (r *DataReader) Publish(ctx context.Context, store datastore.DataStore[storagemodels.DatasetManifest], mode string) (*storagemodels.DatasetManifest, error) {
	m, err := r.Manifest(ctx, mode)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := store.Put(ctx, *m); err != nil {
		return nil, err
	}
	level.Info(r.logger).Log("msg", "manifest published", "id", m.ID, "mode", mode, "records", m.Records)
	return m, nil
}
