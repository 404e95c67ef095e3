// Package mapping holds the source-to-destination vocabulary loaded from mapping.ini.
package mapping

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/ini.v1"

	"jira2yatracker/internal/models"
)

// Section identifies one lookup table of the mapping file
type Section int

const (
	Users Section = iota
	Priorities
	Types
	Statuses
	Relationships
	CustomFields
)

var sectionNames = map[Section]string{
	Users:         "users",
	Priorities:    "priorities",
	Types:         "types",
	Statuses:      "statuses",
	Relationships: "relationships",
	CustomFields:  "custom_fields",
}

// requiredSections must be present in every mapping file
var requiredSections = []Section{Users, Priorities, Types, Statuses, Relationships}

func (s Section) String() string {
	if name, ok := sectionNames[s]; ok {
		return name
	}
	return fmt.Sprintf("section(%d)", int(s))
}

// ParseSection returns the section with the given name
func ParseSection(name string) (Section, error) {
	for section, sectionName := range sectionNames {
		if sectionName == name {
			return section, nil
		}
	}
	return 0, fmt.Errorf("unknown section: %s", name)
}

// CustomField is one declared [custom_fields] entry
type CustomField struct {
	Path   string
	Target string
}

// Table is the immutable mapping between source and destination vocabularies
type Table struct {
	sections     map[Section]map[string]string
	customFields []CustomField
	policy       ListPolicy
}

// New builds a table from in-memory entries. Custom fields are ordered by path.
func New(entries map[Section]map[string]string, policy ListPolicy) (*Table, error) {
	t := newTable(policy)
	for section, values := range entries {
		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := t.add(section, key, values[key]); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// Load reads an INI mapping file
func Load(path string, policy ListPolicy) (*Table, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters:       "=",
		SpaceBeforeInlineComment: true,
	}, path)
	if err != nil {
		return nil, &models.ConfigurationError{Reason: fmt.Sprintf("can't read mapping file '%s'", path), Err: err}
	}

	t := newTable(policy)
	present := make(map[Section]bool)
	for _, sec := range file.Sections() {
		if sec.Name() == ini.DefaultSection {
			if len(sec.Keys()) > 0 {
				return nil, &models.ConfigurationError{Reason: fmt.Sprintf("mapping file '%s' has entries outside of any section", path)}
			}
			continue
		}
		section, err := ParseSection(sec.Name())
		if err != nil {
			return nil, &models.ConfigurationError{Reason: fmt.Sprintf("mapping file '%s'", path), Err: err}
		}
		present[section] = true
		for _, key := range sec.Keys() {
			if err := t.add(section, key.Name(), key.String()); err != nil {
				return nil, err
			}
		}
	}

	for _, section := range requiredSections {
		if !present[section] {
			return nil, &models.ConfigurationError{Reason: fmt.Sprintf("mapping file '%s' has no [%s] section", path, section)}
		}
	}
	return t, nil
}

func newTable(policy ListPolicy) *Table {
	t := &Table{
		sections: make(map[Section]map[string]string, len(sectionNames)),
		policy:   policy,
	}
	for section := range sectionNames {
		t.sections[section] = make(map[string]string)
	}
	return t
}

func (t *Table) add(section Section, key, value string) error {
	values, ok := t.sections[section]
	if !ok {
		return &models.ConfigurationError{Reason: fmt.Sprintf("unknown section: %s", section)}
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return &models.ConfigurationError{Reason: fmt.Sprintf("empty key or value in section '%s'", section)}
	}

	folded := fold(key)
	if existing, ok := values[folded]; ok && existing != value {
		return &models.ConfigurationError{Reason: fmt.Sprintf("key '%s' is mapped twice in section '%s' ('%s' and '%s')", key, section, existing, value)}
	} else if ok {
		return nil
	}
	values[folded] = value

	if section == CustomFields {
		t.customFields = append(t.customFields, CustomField{Path: key, Target: value})
	}
	return nil
}

// fold normalises a key for locale-insensitive comparison
func fold(key string) string {
	return cases.Fold().String(strings.TrimSpace(key))
}

// Resolve returns the destination value for a source key. Keys are compared
// case-insensitively; values are returned verbatim.
func (t *Table) Resolve(section Section, key string) (string, error) {
	values, ok := t.sections[section]
	if !ok {
		return "", &models.ConfigurationError{Reason: fmt.Sprintf("unknown section: %s", section)}
	}
	value, ok := values[fold(key)]
	if !ok {
		return "", &models.UnmappedValueError{Section: section.String(), Key: key}
	}
	return value, nil
}

// CustomFields returns the declared custom field paths in declaration order
func (t *Table) CustomFields() []CustomField {
	out := make([]CustomField, len(t.customFields))
	copy(out, t.customFields)
	return out
}

// Len returns the number of entries in a section
func (t *Table) Len(section Section) int {
	return len(t.sections[section])
}

// Policy returns the list traversal policy used for dotted paths
func (t *Table) Policy() ListPolicy {
	return t.policy
}
