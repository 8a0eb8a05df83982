/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"

	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/registry"
)

// DatasetManifestIndexMap holds the DynamoDB key templates of DatasetManifest.
// GSI1 (PK1/SK1) lists the manifests of one data directory by mode and time.
var DatasetManifestIndexMap = map[string]string{
	"PK":  "DATASET#{ID}",
	"SK":  "DATASET#{ID}",
	"PK1": "DIR#{DataDir}",
	"SK1": "MODE#{Mode}#{CreatedAt}",
}

func init() {
	registry.RegisterIndexMap[DatasetManifest](DatasetManifestIndexMap)
}

// DatasetManifest describes the record files of one (data directory, mode)
// split at the time it was published.
type DatasetManifest struct {
	ID        strfmt.UUID      `json:"id" dynamodbav:"ID"`
	DataDir   string           `json:"dataDir" dynamodbav:"DataDir"`
	Mode      string           `json:"mode" dynamodbav:"Mode"`
	Files     []FileSummary    `json:"files" dynamodbav:"Files"`
	Records   int64            `json:"records" dynamodbav:"Records"`
	Features  []FeatureSummary `json:"features" dynamodbav:"Features"`
	CreatedAt Timestamp        `json:"createdAt" dynamodbav:"CreatedAt"`
}

// FileSummary is one record file of a manifest.
type FileSummary struct {
	Name    string `json:"name" dynamodbav:"Name"`
	Records int64  `json:"records" dynamodbav:"Records"`
}

// FeatureSummary is one schema entry of a manifest.
type FeatureSummary struct {
	Key         string `json:"key" dynamodbav:"Key"`
	Kind        string `json:"kind" dynamodbav:"Kind"`
	Description string `json:"description,omitempty" dynamodbav:"Description,omitempty"`
}

// Keyed is implemented by records that know their own catalog key.
type Keyed interface {
	Key() string
}

// Key returns the bare key GetOne and Delete expect.
func (m DatasetManifest) Key() string { return m.ID.String() }

// Validate checks the fields a catalog needs to key the manifest.
func (m *DatasetManifest) Validate() error {
	if !strfmt.IsUUID(m.ID.String()) {
		return errors.NewValidationError("id", fmt.Sprintf("%q is not a uuid", m.ID))
	}
	if m.DataDir == "" {
		return errors.NewValidationError("dataDir", "required")
	}
	if m.Mode == "" {
		return errors.NewValidationError("mode", "required")
	}
	return nil
}

// Timestamp is a strfmt.DateTime stored in DynamoDB as its string form so that
// it sorts and expands into key templates.
type Timestamp strfmt.DateTime

// NewTimestamp truncates t to the millisecond precision of the string form.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(strfmt.DateTime(t.UTC().Truncate(time.Millisecond)))
}

func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) String() string { return strfmt.DateTime(t).String() }

func (t Timestamp) MarshalJSON() ([]byte, error) { return strfmt.DateTime(t).MarshalJSON() }

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	return (*strfmt.DateTime)(t).UnmarshalJSON(b)
}

func (t Timestamp) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberS{Value: t.String()}, nil
}

func (t *Timestamp) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return fmt.Errorf("timestamp: expected string attribute, got %T", av)
	}
	dt, err := strfmt.ParseDateTime(s.Value)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*t = Timestamp(dt)
	return nil
}

// QueryParams defines parameters for a DynamoDB Query operation.
type QueryParams struct {
	// TableName overrides the store's table when set.
	TableName string
	// KeyConditionExpression is the primary condition for the query.
	KeyConditionExpression string
	// FilterExpression is an optional filter expression.
	FilterExpression *string
	// ExpressionAttributeValues contains the values for expression placeholders.
	ExpressionAttributeValues map[string]types.AttributeValue
	// IndexName is optional if you wish to query a secondary index.
	IndexName *string
	// Limit caps the total number of items returned.
	Limit *int32
	// ScanIndexForward specifies the order for index traversal.
	// If true (default), traversal is in ascending order.
	ScanIndexForward *bool
}

// ManifestsByDataDir builds the GSI1 query listing every manifest of dataDir,
// newest first. An empty mode matches every mode.
func ManifestsByDataDir(dataDir, mode string) *QueryParams {
	index := "GSI1"
	forward := false
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: "DIR#" + dataDir},
	}
	cond := "PK1 = :pk"
	if mode != "" {
		cond += " AND begins_with(SK1, :sk)"
		values[":sk"] = &types.AttributeValueMemberS{Value: "MODE#" + mode + "#"}
	}
	return &QueryParams{
		KeyConditionExpression:    cond,
		ExpressionAttributeValues: values,
		IndexName:                 &index,
		ScanIndexForward:          &forward,
	}
}
