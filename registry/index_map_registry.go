/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/suparena/featureloader/errors"
)

// Index maps associate a catalog entity type with its DynamoDB key templates,
// e.g. {"PK": "DATASET#{ID}", "SK": "DATASET#{ID}"}.

var (
	indexMapRegistry = make(map[reflect.Type]map[string]string)
	indexMu          sync.RWMutex
)

// RegisterIndexMap associates T with its key templates. PK and SK are required;
// registering T again replaces the previous map.
func RegisterIndexMap[T any](idxMap map[string]string) {
	if idxMap["PK"] == "" || idxMap["SK"] == "" {
		panic(fmt.Sprintf("index map registry: %s needs PK and SK templates", typeOf[T]()))
	}
	copied := make(map[string]string, len(idxMap))
	for k, v := range idxMap {
		copied[k] = v
	}

	indexMu.Lock()
	defer indexMu.Unlock()
	indexMapRegistry[typeOf[T]()] = copied
}

// GetIndexMap retrieves the index map for T, if any.
func GetIndexMap[T any]() (map[string]string, bool) {
	indexMu.RLock()
	defer indexMu.RUnlock()
	m, ok := indexMapRegistry[typeOf[T]()]
	return m, ok
}

// IndexMapFor is GetIndexMap with a NotFoundError for unregistered types.
func IndexMapFor[T any]() (map[string]string, error) {
	m, ok := GetIndexMap[T]()
	if !ok {
		return nil, errors.NewNotFoundError("index map", typeOf[T]().String())
	}
	return m, nil
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
