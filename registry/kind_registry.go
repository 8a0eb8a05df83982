/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/feature"
)

// FactoryFunc decodes one schema mapping into a feature handler.
type FactoryFunc func(node *yaml.Node) (feature.Feature, error)

var (
	kindRegistry = make(map[string]FactoryFunc)
	kindMu       sync.RWMutex
)

func init() {
	RegisterKind(feature.TensorKind, feature.DecodeTensorFeature)
	RegisterKind(feature.GraphKind, feature.DecodeGraphFeature)
	RegisterKind(feature.SparseKind, feature.DecodeSparseTensorFeature)
}

// RegisterKind registers the factory for a schema kind name.
// If the kind is already registered it panics to prevent accidental overrides.
func RegisterKind(kind string, fn FactoryFunc) {
	if kind == "" || fn == nil {
		panic("kind registry: kind name and factory are required")
	}
	kindMu.Lock()
	defer kindMu.Unlock()
	if _, exists := kindRegistry[kind]; exists {
		panic(fmt.Sprintf("kind registry: kind %q already registered", kind))
	}
	kindRegistry[kind] = fn
}

// GetFactory returns the factory registered for kind, or an UnknownKindError.
func GetFactory(kind string) (FactoryFunc, error) {
	kindMu.RLock()
	defer kindMu.RUnlock()
	fn, ok := kindRegistry[kind]
	if !ok {
		return nil, errors.NewUnknownKindError(kind)
	}
	return fn, nil
}

// Kinds lists the registered kind names in sorted order.
func Kinds() []string {
	kindMu.RLock()
	defer kindMu.RUnlock()
	kinds := make([]string, 0, len(kindRegistry))
	for k := range kindRegistry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
