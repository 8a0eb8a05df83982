/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package featureloader_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/featureloader/datastore/mock"
	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/feature"
	"github.com/suparena/featureloader/storagemodels"
)

func TestManifest(t *testing.T) {
	r := newReader(t, mixedSchema)
	writeSamples(t, r, "data_train", "a", 0, 3)
	writeSamples(t, r, "data_train", "b", 3, 8)
	for i := 0; i < 6; i++ {
		writeSamples(t, r, "data_train", fmt.Sprintf("c%d", i), 0, 1)
	}

	m, err := r.Manifest(context.Background(), "data_train")
	require.NoError(t, err)
	assert.True(t, strfmt.IsUUID(m.ID.String()))
	assert.Equal(t, r.DataDir(), m.DataDir)
	assert.Equal(t, "data_train", m.Mode)
	assert.Equal(t, int64(3+5+6), m.Records)
	require.Len(t, m.Files, 8)
	assert.Equal(t, storagemodels.FileSummary{Name: "a.tfrecords", Records: 3}, m.Files[0])
	assert.Equal(t, storagemodels.FileSummary{Name: "b.tfrecords", Records: 5}, m.Files[1])
	assert.Equal(t, []storagemodels.FeatureSummary{
		{Key: "x", Kind: feature.TensorKind, Description: "input grid"},
		{Key: "g", Kind: feature.GraphKind},
		{Key: "ids", Kind: feature.SparseKind},
	}, m.Features)
	assert.False(t, m.CreatedAt.Time().IsZero())
}

func TestManifestEmptyMode(t *testing.T) {
	r := newReader(t, mixedSchema)
	m, err := r.Manifest(context.Background(), "data_valid")
	require.NoError(t, err)
	assert.Empty(t, m.Files)
	assert.Zero(t, m.Records)
}

func TestManifestCanceled(t *testing.T) {
	r := newReader(t, mixedSchema)
	writeSamples(t, r, "data_train", "a", 0, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Manifest(ctx, "data_train")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublish(t *testing.T) {
	r := newReader(t, mixedSchema)
	writeSamples(t, r, "data_test", "a", 0, 4)
	store := mock.New[storagemodels.DatasetManifest]()

	m, err := r.Publish(context.Background(), store, "data_test")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Count())

	got, err := store.GetOne(context.Background(), m.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Records)
	assert.Equal(t, "data_test", got.Mode)

	_, err = store.GetOne(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestPublishStoreError(t *testing.T) {
	r := newReader(t, mixedSchema)
	failure := fmt.Errorf("table unavailable")
	store := mock.New[storagemodels.DatasetManifest]().WithPutError(failure)

	_, err := r.Publish(context.Background(), store, "data_test")
	assert.ErrorIs(t, err, failure)
	assert.Zero(t, store.Count())
}
