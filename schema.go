/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package featureloader

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/yaml.v3"

	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/feature"
	"github.com/suparena/featureloader/registry"
)

const kindField = "__name__"

// LoadSchema reads a schema file and resolves every entry through the kind
// registry. A later entry with an already seen key replaces the earlier one.
func LoadSchema(path string, logger log.Logger) (*FeatureSet, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewNotFoundError("schema", path)
		}
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()

	var doc yaml.Node
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.NewValidationError("schema", path+" is empty")
		}
		return nil, errors.NewValidationError("schema", fmt.Sprintf("%s: %v", path, err))
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, errors.NewValidationError("schema", path+" must be a sequence of feature entries")
	}

	set := newFeatureSet()
	for i, entry := range root.Content {
		feat, err := decodeSchemaEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("schema entry %d: %w", i, err)
		}
		if set.put(feat) {
			level.Warn(logger).Log("msg", "duplicate feature key, last entry wins", "key", feat.Key(), "line", entry.Line)
		}
	}
	if set.Len() == 0 {
		level.Warn(logger).Log("msg", "schema declares no features", "path", path)
	}
	return set, nil
}

func decodeSchemaEntry(entry *yaml.Node) (feature.Feature, error) {
	if entry.Kind != yaml.MappingNode {
		return nil, errors.NewValidationError("", fmt.Sprintf("line %d: entry must be a mapping", entry.Line))
	}
	var kind string
	for i := 0; i+1 < len(entry.Content); i += 2 {
		if entry.Content[i].Value == kindField {
			kind = entry.Content[i+1].Value
		}
	}
	if kind == "" {
		return nil, errors.NewValidationError(kindField, fmt.Sprintf("line %d: required", entry.Line))
	}
	factory, err := registry.GetFactory(kind)
	if err != nil {
		return nil, err
	}
	return factory(entry)
}

// WriteSchema writes features as a schema file LoadSchema can read back.
func WriteSchema(path string, features []feature.Feature) error {
	out, err := yaml.Marshal(features)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}
