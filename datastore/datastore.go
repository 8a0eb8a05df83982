/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/featureloader/storagemodels"
)

// DataStore persists catalog records of type T.
type DataStore[T any] interface {
	// GetOne returns the record stored under key, or a NotFoundError.
	GetOne(ctx context.Context, key string) (*T, error)

	Put(ctx context.Context, entity T) error

	Query(ctx context.Context, params *storagemodels.QueryParams) ([]T, error)

	Delete(ctx context.Context, key string) error
}
