/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/registry"
)

// API is the subset of the DynamoDB client the store calls.
type API interface {
	GetItem(ctx context.Context, in *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, in *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, in *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
}

// DynamodbDataStore implements datastore.DataStore[T] on a single DynamoDB
// table. Keys come from the index map registered for T.
type DynamodbDataStore[T any] struct {
	client    API
	tableName string
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// expandMacros fills every template of indexMap with the attributes of keysInput.
func expandMacros(indexMap map[string]string, keysInput any) (map[string]string, error) {
	av, err := attributevalue.MarshalMap(keysInput)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keysInput: %w", err)
	}

	res := make(map[string]string, len(indexMap))
	for fieldName, template := range indexMap {
		res[fieldName] = macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			switch tv := av[strings.Trim(macro, "{}")].(type) {
			case *types.AttributeValueMemberS:
				return tv.Value
			case *types.AttributeValueMemberN:
				return tv.Value
			case *types.AttributeValueMemberBOOL:
				return fmt.Sprintf("%v", tv.Value)
			default:
				// missing, null, binary and set attributes expand to nothing
				return ""
			}
		})
	}
	return res, nil
}

// expandStringKey replaces every macro of the PK and SK templates with key.
func expandStringKey(indexMap map[string]string, key string) map[string]string {
	return map[string]string{
		"PK": macroPattern.ReplaceAllLiteralString(indexMap["PK"], key),
		"SK": macroPattern.ReplaceAllLiteralString(indexMap["SK"], key),
	}
}

// buildKeyFromExpanded builds a DynamoDB key from the expanded index map.
func buildKeyFromExpanded(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk, sk := expanded["PK"], expanded["SK"]
	if pk == "" || sk == "" {
		return nil, errors.NewValidationError("key", "expanded index map missing valid PK or SK")
	}
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}, nil
}

// NewDynamoDBClient initializes a DynamoDB client. Empty access keys fall back
// to the default credential chain.
func NewDynamoDBClient(ctx context.Context, awsAccessKey, awsSecretKey, awsRegion string) (*sdk.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(awsRegion)}
	if awsAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsAccessKey, awsSecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return sdk.NewFromConfig(cfg), nil
}

// NewDynamodbDataStore constructs a store for T on tableName.
func NewDynamodbDataStore[T any](ctx context.Context, awsAccessKey, awsSecretKey, awsRegion, tableName string) (*DynamodbDataStore[T], error) {
	client, err := NewDynamoDBClient(ctx, awsAccessKey, awsSecretKey, awsRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	return NewWithClient[T](client, tableName)
}

// NewWithClient constructs a store for T around an existing client.
func NewWithClient[T any](client API, tableName string) (*DynamodbDataStore[T], error) {
	if tableName == "" {
		return nil, errors.NewValidationError("tableName", "required")
	}
	if _, err := registry.IndexMapFor[T](); err != nil {
		return nil, err
	}
	return &DynamodbDataStore[T]{client: client, tableName: tableName}, nil
}

func (d *DynamodbDataStore[T]) keyFor(key string) (map[string]types.AttributeValue, error) {
	indexMap, err := registry.IndexMapFor[T]()
	if err != nil {
		return nil, err
	}
	return buildKeyFromExpanded(expandStringKey(indexMap, key))
}

// GetOne retrieves a single item using a string key.
func (d *DynamodbDataStore[T]) GetOne(ctx context.Context, key string) (*T, error) {
	keyMap, err := d.keyFor(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build key: %w", err)
	}

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: aws.String(d.tableName),
		Key:       keyMap,
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		var zero T
		return nil, errors.NewNotFoundError(fmt.Sprintf("%T", zero), key)
	}

	result := new(T)
	if err := attributevalue.UnmarshalMap(out.Item, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return result, nil
}

// Put stores entity with its PK/SK and GSI attributes expanded from the index map.
func (d *DynamodbDataStore[T]) Put(ctx context.Context, entity T) error {
	indexMap, err := registry.IndexMapFor[T]()
	if err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}
	expanded, err := expandMacros(indexMap, entity)
	if err != nil {
		return err
	}
	if _, err := buildKeyFromExpanded(expanded); err != nil {
		return err
	}
	for k, v := range expanded {
		av[k] = &types.AttributeValueMemberS{Value: v}
	}

	_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// Delete removes an item using a string key.
func (d *DynamodbDataStore[T]) Delete(ctx context.Context, key string) error {
	keyMap, err := d.keyFor(key)
	if err != nil {
		return fmt.Errorf("failed to build key for Delete: %w", err)
	}

	_, err = d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       keyMap,
	})
	if err != nil {
		return fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	return nil
}
