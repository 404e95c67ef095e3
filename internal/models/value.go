package models

import (
	"fmt"
	"sort"
	"strings"
)

// ValueKind tags the variant held by a Value
type ValueKind int

const (
	KindNull ValueKind = iota
	KindScalar
	KindMap
	KindList
)

// String returns the kind name
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a generic nested field value decoded from the source system.
// Exactly one of Scalar, Map or List is meaningful, selected by Kind.
type Value struct {
	Kind   ValueKind
	Scalar interface{}
	Map    map[string]Value
	List   []Value
}

// Null returns the empty value
func Null() Value {
	return Value{Kind: KindNull}
}

// Scalar wraps a string, number or bool
func Scalar(v interface{}) Value {
	if v == nil {
		return Null()
	}
	return Value{Kind: KindScalar, Scalar: v}
}

// MapOf wraps a map of values
func MapOf(m map[string]Value) Value {
	return Value{Kind: KindMap, Map: m}
}

// ListOf wraps a list of values
func ListOf(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: KindList, List: items}
}

// FromInterface converts a decoded JSON document (map[string]interface{},
// []interface{}, scalars) into a Value tree.
func FromInterface(raw interface{}) Value {
	switch v := raw.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case map[string]interface{}:
		m := make(map[string]Value, len(v))
		for key, item := range v {
			m[key] = FromInterface(item)
		}
		return MapOf(m)
	case []interface{}:
		items := make([]Value, 0, len(v))
		for _, item := range v {
			items = append(items, FromInterface(item))
		}
		return ListOf(items...)
	case []string:
		items := make([]Value, 0, len(v))
		for _, item := range v {
			items = append(items, Scalar(item))
		}
		return ListOf(items...)
	default:
		return Scalar(v)
	}
}

// IsNull reports whether the value carries nothing
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Interface converts the value back into plain Go types suitable for JSON encoding
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindScalar:
		return v.Scalar
	case KindMap:
		m := make(map[string]interface{}, len(v.Map))
		for key, item := range v.Map {
			m[key] = item.Interface()
		}
		return m
	case KindList:
		items := make([]interface{}, 0, len(v.List))
		for _, item := range v.List {
			items = append(items, item.Interface())
		}
		return items
	default:
		return nil
	}
}

// Strings returns the scalar string form of a scalar or of every scalar list element
func (v Value) Strings() []string {
	switch v.Kind {
	case KindScalar:
		return []string{fmt.Sprint(v.Scalar)}
	case KindList:
		out := make([]string, 0, len(v.List))
		for _, item := range v.List {
			if item.Kind == KindScalar {
				out = append(out, fmt.Sprint(item.Scalar))
			}
		}
		return out
	default:
		return nil
	}
}

// Get returns a direct child of a map value
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindMap {
		return Null(), false
	}
	child, ok := v.Map[key]
	return child, ok
}

// String renders the value compactly for logs
func (v Value) String() string {
	switch v.Kind {
	case KindScalar:
		return fmt.Sprint(v.Scalar)
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for key := range v.Map {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, key+": "+v.Map[key].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindList:
		parts := make([]string, 0, len(v.List))
		for _, item := range v.List {
			parts = append(parts, item.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "null"
	}
}
