package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Configuration maps a property identifier to its single selected value. It
// is supplied externally per pricing query and is immutable for the duration
// of one calculation.
type Configuration map[string]string

// Hash returns a stable digest of the selections, used as a memoization key
// component. Key order does not influence the digest.
func (c Configuration) Hash() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(c[k])
		b.WriteByte('|')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Values returns the selected values in property-key order.
func (c Configuration) Values() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]string, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, c[k])
	}
	return vals
}

// Article is one sellable item of a series.
type Article struct {
	Nr          string `json:"nr"`
	Description string `json:"description,omitempty"`
	PropClassID uint32 `json:"prop_class_id,omitempty"`
}

// PropertyDef describes one configurable property of a property class.
type PropertyDef struct {
	Key         string `json:"key"`
	ClassID     uint32 `json:"class_id"`
	Label       string `json:"label,omitempty"`
	IsSelector  bool   `json:"is_selector"` // head of a cascading dependent chain
	DependentOf string `json:"dependent_of,omitempty"`
	Position    uint32 `json:"position"`
}

// PropertyValue is one selectable value of a property.
type PropertyValue struct {
	PropertyKey string `json:"property_key"`
	Value       string `json:"value"`
	Label       string `json:"label,omitempty"`
}

// ConditionTable is the explicit property-value to variant-condition mapping
// some vendors could supply. Keys are "PROPERTY=VALUE", upper-cased. When a
// vendor populates it, it overrides every matching heuristic. No vendor in
// the examined corpus does, so it is usually empty.
type ConditionTable map[string]string

// ConditionKey builds the lookup key for a property selection.
func ConditionKey(property, value string) string {
	return strings.ToUpper(strings.TrimSpace(property)) + "=" + strings.ToUpper(strings.TrimSpace(value))
}

// Lookup resolves a selection to its explicit var_cond, if mapped.
func (t ConditionTable) Lookup(property, value string) (string, bool) {
	if len(t) == 0 {
		return "", false
	}
	vc, ok := t[ConditionKey(property, value)]
	return vc, ok
}

// SeriesMeta carries per-series catalog metadata that pricing consults:
// the explicit condition table, the selector chain for composite variant
// codes, price description texts, and the historical surcharge-only flag
// that softens the NO_BASE_PRICE warning.
type SeriesMeta struct {
	Manufacturer string
	Series       string
	Delimiter    string // vendor token delimiter for composite var_conds, "_" when unspecified

	Conditions    ConditionTable
	Properties    []PropertyDef
	Values        []PropertyValue
	PriceTexts    map[uint32]string
	SurchargeOnly bool
}

// SelectorChain returns the selector property followed by its dependents in
// position order, or nil when the series has no selector.
func (m *SeriesMeta) SelectorChain() []PropertyDef {
	var head *PropertyDef
	for i := range m.Properties {
		if m.Properties[i].IsSelector {
			head = &m.Properties[i]
			break
		}
	}
	if head == nil {
		return nil
	}
	chain := []PropertyDef{*head}
	deps := make([]PropertyDef, 0)
	for _, p := range m.Properties {
		if p.DependentOf == head.Key {
			deps = append(deps, p)
		}
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Position < deps[j].Position })
	return append(chain, deps...)
}
