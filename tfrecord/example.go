/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tfrecord

import (
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// ValueType is the list type carried by a tf.Example feature.
type ValueType string

const (
	BytesType ValueType = "bytes"
	FloatType ValueType = "float"
	Int64Type ValueType = "int64"
)

// Feature mirrors tensorflow.Feature: exactly one of the three lists is used,
// selected by Type.
type Feature struct {
	Type   ValueType
	Bytes  [][]byte
	Floats []float32
	Int64s []int64
}

func BytesFeature(values ...[]byte) Feature { return Feature{Type: BytesType, Bytes: values} }

func FloatFeature(values ...float32) Feature { return Feature{Type: FloatType, Floats: values} }

func Int64Feature(values ...int64) Feature { return Feature{Type: Int64Type, Int64s: values} }

// Len returns the number of values in the populated list.
func (f Feature) Len() int {
	switch f.Type {
	case BytesType:
		return len(f.Bytes)
	case FloatType:
		return len(f.Floats)
	case Int64Type:
		return len(f.Int64s)
	}
	return 0
}

// Example mirrors tensorflow.Example.
type Example struct {
	Features map[string]Feature
}

// field numbers from tensorflow/core/example/{example,feature}.proto
const (
	exampleFeatures  protowire.Number = 1
	featuresEntry    protowire.Number = 1
	entryKey         protowire.Number = 1
	entryValue       protowire.Number = 2
	featureBytesList protowire.Number = 1
	featureFloatList protowire.Number = 2
	featureInt64List protowire.Number = 3
	listValue        protowire.Number = 1
)

// Marshal encodes the example in protobuf wire format. Map entries are written in
// key order so equal examples serialize to equal bytes.
func (e *Example) Marshal() ([]byte, error) {
	keys := make([]string, 0, len(e.Features))
	for k := range e.Features {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var features []byte
	for _, k := range keys {
		feat, err := marshalFeature(e.Features[k])
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", k, err)
		}
		var entry []byte
		entry = protowire.AppendTag(entry, entryKey, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, entryValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, feat)

		features = protowire.AppendTag(features, featuresEntry, protowire.BytesType)
		features = protowire.AppendBytes(features, entry)
	}

	var out []byte
	out = protowire.AppendTag(out, exampleFeatures, protowire.BytesType)
	out = protowire.AppendBytes(out, features)
	return out, nil
}

func marshalFeature(f Feature) ([]byte, error) {
	var list []byte
	var num protowire.Number
	switch f.Type {
	case BytesType:
		num = featureBytesList
		for _, v := range f.Bytes {
			list = protowire.AppendTag(list, listValue, protowire.BytesType)
			list = protowire.AppendBytes(list, v)
		}
	case FloatType:
		num = featureFloatList
		if len(f.Floats) > 0 {
			packed := make([]byte, 0, 4*len(f.Floats))
			for _, v := range f.Floats {
				packed = protowire.AppendFixed32(packed, math.Float32bits(v))
			}
			list = protowire.AppendTag(list, listValue, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}
	case Int64Type:
		num = featureInt64List
		if len(f.Int64s) > 0 {
			var packed []byte
			for _, v := range f.Int64s {
				packed = protowire.AppendVarint(packed, uint64(v))
			}
			list = protowire.AppendTag(list, listValue, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}
	default:
		return nil, fmt.Errorf("unknown feature type %q", f.Type)
	}

	var out []byte
	out = protowire.AppendTag(out, num, protowire.BytesType)
	out = protowire.AppendBytes(out, list)
	return out, nil
}

// UnmarshalExample decodes a serialized tensorflow.Example. Unknown fields are skipped.
func UnmarshalExample(b []byte) (*Example, error) {
	ex := &Example{Features: make(map[string]Feature)}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num != exampleFeatures || typ != protowire.BytesType {
			return nil
		}
		return eachField(v, func(num protowire.Number, typ protowire.Type, entry []byte) error {
			if num != featuresEntry || typ != protowire.BytesType {
				return nil
			}
			key, feat, err := unmarshalEntry(entry)
			if err != nil {
				return err
			}
			ex.Features[key] = feat
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("decode example: %w", err)
	}
	return ex, nil
}

func unmarshalEntry(b []byte) (string, Feature, error) {
	var key string
	var feat Feature
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case entryKey:
			key = string(v)
		case entryValue:
			f, err := unmarshalFeature(v)
			if err != nil {
				return err
			}
			feat = f
		}
		return nil
	})
	return key, feat, err
}

func unmarshalFeature(b []byte) (Feature, error) {
	var feat Feature
	err := eachField(b, func(num protowire.Number, typ protowire.Type, list []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case featureBytesList:
			feat = Feature{Type: BytesType}
			return eachField(list, func(num protowire.Number, typ protowire.Type, v []byte) error {
				if num == listValue && typ == protowire.BytesType {
					feat.Bytes = append(feat.Bytes, append([]byte(nil), v...))
				}
				return nil
			})
		case featureFloatList:
			feat = Feature{Type: FloatType}
			return eachScalar(list, func(typ protowire.Type, raw uint64) {
				if typ == protowire.Fixed32Type {
					feat.Floats = append(feat.Floats, math.Float32frombits(uint32(raw)))
				}
			}, protowire.Fixed32Type)
		case featureInt64List:
			feat = Feature{Type: Int64Type}
			return eachScalar(list, func(typ protowire.Type, raw uint64) {
				if typ == protowire.VarintType {
					feat.Int64s = append(feat.Int64s, int64(raw))
				}
			}, protowire.VarintType)
		}
		return nil
	})
	return feat, err
}

// eachField walks the top-level fields of a message. For length-delimited fields
// v is the payload; for scalar fields v is the raw encoded value.
func eachField(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var v []byte
		if typ == protowire.BytesType {
			payload, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			v, n = payload, m
		} else {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			v = b[:n]
		}
		if err := fn(num, typ, v); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// eachScalar decodes the value field of a numeric list in either packed or
// unpacked form.
func eachScalar(list []byte, fn func(typ protowire.Type, raw uint64), elem protowire.Type) error {
	return eachField(list, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num != listValue {
			return nil
		}
		if typ == protowire.BytesType {
			for len(v) > 0 {
				raw, n := consumeScalar(elem, v)
				if n < 0 {
					return protowire.ParseError(n)
				}
				fn(elem, raw)
				v = v[n:]
			}
			return nil
		}
		raw, n := consumeScalar(typ, v)
		if n < 0 {
			return protowire.ParseError(n)
		}
		fn(typ, raw)
		return nil
	})
}

func consumeScalar(typ protowire.Type, b []byte) (uint64, int) {
	switch typ {
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		return uint64(v), n
	case protowire.VarintType:
		return protowire.ConsumeVarint(b)
	case protowire.Fixed64Type:
		return protowire.ConsumeFixed64(b)
	}
	return 0, -1
}
