/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/registry"
	"github.com/suparena/featureloader/storagemodels"
)

func manifest() storagemodels.DatasetManifest {
	return storagemodels.DatasetManifest{
		ID:        strfmt.UUID(uuid.NewString()),
		DataDir:   "/data/qm9",
		Mode:      "train",
		Files:     []storagemodels.FileSummary{{Name: "a.tfrecords", Records: 3}},
		Records:   3,
		Features:  []storagemodels.FeatureSummary{{Key: "x", Kind: "TensorFeature"}},
		CreatedAt: storagemodels.NewTimestamp(time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)),
	}
}

func TestManifestIndexMapRegistered(t *testing.T) {
	idx, ok := registry.GetIndexMap[storagemodels.DatasetManifest]()
	require.True(t, ok)
	assert.Equal(t, "DATASET#{ID}", idx["PK"])
}

func TestManifestValidate(t *testing.T) {
	m := manifest()
	require.NoError(t, m.Validate())

	m.ID = "not-a-uuid"
	assert.True(t, errors.IsValidationError(m.Validate()))

	m = manifest()
	m.Mode = ""
	assert.True(t, errors.IsValidationError(m.Validate()))
}

func TestManifestAttributeValueRoundTrip(t *testing.T) {
	m := manifest()
	av, err := attributevalue.MarshalMap(m)
	require.NoError(t, err)

	created, ok := av["CreatedAt"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "2025-03-01T12:00:00.123Z", created.Value)

	var back storagemodels.DatasetManifest
	require.NoError(t, attributevalue.UnmarshalMap(av, &back))
	assert.Equal(t, m.ID, back.ID)
	assert.Equal(t, m.Files, back.Files)
	assert.True(t, m.CreatedAt.Time().Equal(back.CreatedAt.Time()))
}

func TestManifestJSON(t *testing.T) {
	m := manifest()
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"createdAt":"2025-03-01T12:00:00.123Z"`)

	var back storagemodels.DatasetManifest
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, m.CreatedAt.Time().Equal(back.CreatedAt.Time()))
}

func TestManifestsByDataDir(t *testing.T) {
	p := storagemodels.ManifestsByDataDir("/data/qm9", "train")
	assert.Equal(t, "GSI1", *p.IndexName)
	assert.Equal(t, "PK1 = :pk AND begins_with(SK1, :sk)", p.KeyConditionExpression)
	assert.False(t, *p.ScanIndexForward)

	p = storagemodels.ManifestsByDataDir("/data/qm9", "")
	assert.Equal(t, "PK1 = :pk", p.KeyConditionExpression)
	assert.NotContains(t, p.ExpressionAttributeValues, ":sk")
}
