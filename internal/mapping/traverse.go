package mapping

import (
	"fmt"
	"strings"

	"jira2yatracker/internal/models"
)

// ListPolicy decides how a dotted path crosses a list of objects
type ListPolicy int

const (
	// CollectAll gathers the match of every list element
	CollectAll ListPolicy = iota
	// FirstMatch stops at the first list element that matches
	FirstMatch
)

func (p ListPolicy) String() string {
	switch p {
	case CollectAll:
		return "collect_all"
	case FirstMatch:
		return "first_match"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseListPolicy parses a policy name; the empty string means CollectAll
func ParseListPolicy(s string) (ListPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "collect_all":
		return CollectAll, nil
	case "first_match":
		return FirstMatch, nil
	default:
		return 0, fmt.Errorf("unknown list traversal policy %q", s)
	}
}

// ResolveCustomField resolves a dotted path against the raw fields of a source
// issue. An undeclared path keeps its own name as the destination field, and a
// path that runs into a scalar early copies that scalar through unchanged.
// found is false when the first segment is absent or the value is null.
func (t *Table) ResolveCustomField(path string, fields models.Value) (models.CustomFieldValue, bool) {
	target, err := t.Resolve(CustomFields, path)
	if err != nil {
		target = path
	}

	value, found := traverse(fields, strings.Split(path, "."), t.policy)
	return models.CustomFieldValue{Name: target, Value: value}, found
}

func traverse(v models.Value, parts []string, policy ListPolicy) (models.Value, bool) {
	if len(parts) == 0 {
		return v, !v.IsNull()
	}

	switch v.Kind {
	case models.KindMap:
		child, ok := lookup(v.Map, parts[0])
		if !ok {
			return models.Null(), false
		}
		return traverse(child, parts[1:], policy)

	case models.KindList:
		results := make([]models.Value, 0, len(v.List))
		for _, item := range v.List {
			match, ok := traverse(item, parts, policy)
			if !ok {
				continue
			}
			if policy == FirstMatch {
				return match, true
			}
			if match.Kind == models.KindList {
				results = append(results, match.List...)
			} else {
				results = append(results, match)
			}
		}
		if policy == FirstMatch {
			return models.Null(), false
		}
		return models.ListOf(results...), true

	case models.KindScalar:
		return v, true

	default:
		return models.Null(), false
	}
}

func lookup(m map[string]models.Value, key string) (models.Value, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	folded := fold(key)
	for k, v := range m {
		if fold(k) == folded {
			return v, true
		}
	}
	return models.Null(), false
}
