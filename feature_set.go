/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package featureloader

import "github.com/suparena/featureloader/feature"

// FeatureSet maps feature keys to their handlers. Iteration follows the order
// in which keys first appeared in the schema.
type FeatureSet struct {
	order []string
	byKey map[string]feature.Feature
}

func newFeatureSet() *FeatureSet {
	return &FeatureSet{byKey: make(map[string]feature.Feature)}
}

// put adds f, replacing any feature with the same key in place. It reports
// whether a feature was replaced.
func (s *FeatureSet) put(f feature.Feature) bool {
	_, exists := s.byKey[f.Key()]
	if !exists {
		s.order = append(s.order, f.Key())
	}
	s.byKey[f.Key()] = f
	return exists
}

// Len returns the number of distinct keys.
func (s *FeatureSet) Len() int { return len(s.order) }

// Get returns the feature registered under key.
func (s *FeatureSet) Get(key string) (feature.Feature, bool) {
	f, ok := s.byKey[key]
	return f, ok
}

// Keys returns the feature keys in schema order.
func (s *FeatureSet) Keys() []string {
	return append([]string(nil), s.order...)
}

// All returns the features in schema order.
func (s *FeatureSet) All() []feature.Feature {
	out := make([]feature.Feature, len(s.order))
	for i, k := range s.order {
		out[i] = s.byKey[k]
	}
	return out
}
