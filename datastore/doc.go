/*
Package datastore defines the persistence interface of the dataset catalog.

	type DataStore[T any] interface {
	    GetOne(ctx context.Context, key string) (*T, error)
	    Put(ctx context.Context, entity T) error
	    Query(ctx context.Context, params *storagemodels.QueryParams) ([]T, error)
	    Delete(ctx context.Context, key string) error
	}

Implementations:
  - ddb: DynamoDB single-table store keyed through the index map registry
  - mock: in-memory store for tests and local runs

A missing record is reported as an errors.NotFoundError by every implementation.
*/
package datastore
