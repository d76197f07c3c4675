// Package attrmap provides the typed attribute maps exchanged with the
// rule-execution engine.
//
// Rule attributes and encoder options are schemaless key/value bags on the
// caller side. The engine only understands four value kinds: text, float,
// integer and flag. This package bridges the two worlds with a tagged
// variant type and a pure conversion function with a fixed coercion table.
//
// Usage:
//
//	m, dropped := attrmap.FromAny(map[string]any{
//	    "ruleFile": "bin/extrusion.cgb",
//	    "seed":     1234,
//	    "minHeight": 10.5,
//	})
//	for _, key := range dropped {
//	    logger.Warnw("unsupported attribute type", "key", key)
//	}
package attrmap

import "sort"

// Kind identifies the variant held by a Value.
type Kind int

const (
	// KindText is a string attribute
	KindText Kind = iota
	// KindFloat is a float64 attribute
	KindFloat
	// KindInt is an int64 attribute (random seeds, counts)
	KindInt
	// KindFlag is a boolean attribute
	KindFlag
)

// String returns the kind name as it appears in logs.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindFlag:
		return "flag"
	default:
		return "unknown"
	}
}

// Value is a tagged variant holding exactly one of the engine's attribute
// types. The zero Value is an empty text attribute.
type Value struct {
	kind Kind
	text string
	num  float64
	i    int64
	flag bool
}

// Text returns a string-valued attribute.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Float returns a float-valued attribute.
func Float(f float64) Value { return Value{kind: KindFloat, num: f} }

// Int returns an integer-valued attribute.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Flag returns a boolean-valued attribute.
func Flag(b bool) Value { return Value{kind: KindFlag, flag: b} }

// Kind reports which variant the value holds.
func (v Value) Kind() Kind { return v.kind }

// AsText returns the string payload; ok is false for non-text values.
func (v Value) AsText() (string, bool) { return v.text, v.kind == KindText }

// AsFloat returns the float payload; ok is false for non-float values.
func (v Value) AsFloat() (float64, bool) { return v.num, v.kind == KindFloat }

// AsInt returns the integer payload; ok is false for non-int values.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFlag returns the boolean payload; ok is false for non-flag values.
func (v Value) AsFlag() (bool, bool) { return v.flag, v.kind == KindFlag }

// Interface returns the payload as a plain Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindFloat:
		return v.num
	case KindInt:
		return v.i
	case KindFlag:
		return v.flag
	default:
		return v.text
	}
}

// Map is the engine-facing attribute map. Iteration order is not
// significant; use Keys for a deterministic ordering.
type Map map[string]Value

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// TypeOf returns the kind of the value stored under key.
func (m Map) TypeOf(key string) (Kind, bool) {
	v, ok := m[key]
	return v.kind, ok
}

// Text returns the string stored under key, or def when the key is absent
// or holds a different kind.
func (m Map) Text(key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.AsText(); ok {
			return s
		}
	}
	return def
}

// Int returns the integer stored under key, or def when the key is absent
// or holds a different kind.
func (m Map) Int(key string, def int64) int64 {
	if v, ok := m[key]; ok {
		if i, ok := v.AsInt(); ok {
			return i
		}
	}
	return def
}

// Keys returns the map keys sorted lexicographically.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy of the map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FromAny converts a generic key/value bag into an attribute Map.
//
// Coercion table:
//
//	string                          -> Text
//	float32, float64                -> Float
//	int, int8..int64, uint..uint32  -> Int
//	bool                            -> Flag
//	anything else                   -> dropped
//
// Dropped keys are returned (sorted) so the caller can warn about them;
// an unsupported value type is never a fatal error. The input map is not
// modified. A nil input yields an empty Map.
func FromAny(raw map[string]any) (Map, []string) {
	m := make(Map, len(raw))
	var dropped []string

	for key, val := range raw {
		switch v := val.(type) {
		case string:
			m[key] = Text(v)
		case float64:
			m[key] = Float(v)
		case float32:
			m[key] = Float(float64(v))
		case int:
			m[key] = Int(int64(v))
		case int8:
			m[key] = Int(int64(v))
		case int16:
			m[key] = Int(int64(v))
		case int32:
			m[key] = Int(int64(v))
		case int64:
			m[key] = Int(v)
		case uint:
			m[key] = Int(int64(v))
		case uint8:
			m[key] = Int(int64(v))
		case uint16:
			m[key] = Int(int64(v))
		case uint32:
			m[key] = Int(int64(v))
		case bool:
			m[key] = Flag(v)
		case Value:
			m[key] = v
		default:
			dropped = append(dropped, key)
		}
	}

	sort.Strings(dropped)
	return m, dropped
}
