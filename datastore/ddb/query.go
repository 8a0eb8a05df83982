/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/suparena/featureloader/storagemodels"
)

// Query runs params against the table, following LastEvaluatedKey until the
// result is complete or params.Limit items were collected.
func (d *DynamodbDataStore[T]) Query(ctx context.Context, params *storagemodels.QueryParams) ([]T, error) {
	table := params.TableName
	if table == "" {
		table = d.tableName
	}
	input := &sdk.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    aws.String(params.KeyConditionExpression),
		ExpressionAttributeValues: params.ExpressionAttributeValues,
		FilterExpression:          params.FilterExpression,
		IndexName:                 params.IndexName,
		Limit:                     params.Limit,
		ScanIndexForward:          params.ScanIndexForward,
	}

	var results []T
	for page := 1; ; page++ {
		out, err := d.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query page %d: %w", page, err)
		}
		for _, item := range out.Items {
			var v T
			if err := attributevalue.UnmarshalMap(item, &v); err != nil {
				return nil, fmt.Errorf("failed to unmarshal item: %w", err)
			}
			results = append(results, v)
		}
		if params.Limit != nil && int32(len(results)) >= *params.Limit {
			results = results[:*params.Limit]
			break
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return results, nil
}
