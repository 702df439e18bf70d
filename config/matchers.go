package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Column fields the header row is resolved into.
const (
	FieldRegistered = "registered"
	FieldEligible   = "eligible"
	FieldTotal      = "total"
	FieldPrevTotal  = "prevTotal"
	FieldChange     = "change"
)

// ColumnRule is a predicate over normalized header text. A header cell
// matches when it equals one of Exact, or when it contains every Contains
// substring and none of the Excludes substrings.
type ColumnRule struct {
	Field    string   `yaml:"field"`
	Contains []string `yaml:"contains"`
	Excludes []string `yaml:"excludes"`
	Exact    []string `yaml:"exact"`
}

type rulesFile struct {
	Columns []ColumnRule `yaml:"columns"`
}

// DefaultColumnRules returns the rules matching the published report layout.
func DefaultColumnRules() []ColumnRule {
	return []ColumnRule{
		{Field: FieldRegistered, Contains: []string{"REGISTERED"}},
		{Field: FieldEligible, Contains: []string{"ELIGIBLE"}},
		{Field: FieldTotal, Contains: []string{"TOTAL"}, Excludes: []string{"PREV"}},
		{Field: FieldPrevTotal, Contains: []string{"PREV", "TOTAL"}},
		{Field: FieldChange, Contains: []string{"CHANGE"}, Excludes: []string{"%"}},
	}
}

// LoadColumnRules parses a YAML rules file. Fields missing from the file keep
// their default rule; substrings are upper-cased to match normalized headers.
func LoadColumnRules(path string) ([]ColumnRule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read matchers %q: %w", path, err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("config: parse matchers %q: %w", path, err)
	}

	overrides := make(map[string]ColumnRule, len(f.Columns))
	for _, r := range f.Columns {
		if !knownField(r.Field) {
			return nil, fmt.Errorf("config: matchers %q: unknown field %q", path, r.Field)
		}
		if len(r.Contains) == 0 && len(r.Exact) == 0 {
			return nil, fmt.Errorf("config: matchers %q: field %q has no contains or exact terms", path, r.Field)
		}
		overrides[r.Field] = normalizeRule(r)
	}

	rules := DefaultColumnRules()
	for i, r := range rules {
		if o, ok := overrides[r.Field]; ok {
			rules[i] = o
		}
	}
	return rules, nil
}

func knownField(f string) bool {
	switch f {
	case FieldRegistered, FieldEligible, FieldTotal, FieldPrevTotal, FieldChange:
		return true
	}
	return false
}

func normalizeRule(r ColumnRule) ColumnRule {
	up := func(ss []string) []string {
		out := make([]string, 0, len(ss))
		for _, s := range ss {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return ColumnRule{
		Field:    r.Field,
		Contains: up(r.Contains),
		Excludes: up(r.Excludes),
		Exact:    up(r.Exact),
	}
}
