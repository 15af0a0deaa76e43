package catalog

import (
	"slices"
	"strings"

	"github.com/matzehuels/flowmend/pkg/workflow"
)

// Method records which rule resolved a node type.
type Method string

const (
	MethodExact           Method = "exact"
	MethodAlias           Method = "alias"
	MethodPatternFallback Method = "pattern_fallback"
	MethodInferredLabel   Method = "inferred_from_label"
	MethodGenericFallback Method = "generic_fallback"
)

// Resolution is the outcome of [Catalog.Resolve].
type Resolution struct {
	Type   string `json:"type"`
	Method Method `json:"method"`
	Family string `json:"family,omitempty"` // family name for pattern and label matches
}

// Changed reports whether the resolved type differs from the declared one.
func (r Resolution) Changed() bool { return r.Method != MethodExact }

// Resolve maps a declared node type to a known type. The first matching rule
// wins:
//
//  1. exact: declared is a known type
//  2. alias: the trimmed, lower-cased declared type is in the alias table
//     (or is itself a known type) and maps to a known type
//  3. pattern_fallback: a family keyword occurs in the declared type; a
//     declared type matching the trigger rules only considers trigger
//     families and otherwise falls back to the first trigger type
//  4. inferred_from_label: no type was declared and a family keyword occurs
//     in the label
//  5. generic_fallback: the catalog's catch-all type
//
// Resolve never fails; an unresolvable node gets the generic type rather than
// being dropped.
func (c *Catalog) Resolve(declared, label string) Resolution {
	if c.Known(declared) {
		return Resolution{Type: declared, Method: MethodExact}
	}

	key := normalizeKey(declared)
	if key != "" {
		if c.Known(key) {
			return Resolution{Type: key, Method: MethodAlias}
		}
		if target, ok := c.aliases[key]; ok && c.Known(target) {
			return Resolution{Type: target, Method: MethodAlias}
		}
		trigger := c.triggerLike(key)
		if typ, fam, ok := c.matchFamily(key, trigger); ok {
			return Resolution{Type: typ, Method: MethodPatternFallback, Family: fam}
		}
		if trigger {
			if typ := c.firstWithRole(RoleTrigger); typ != "" {
				return Resolution{Type: typ, Method: MethodPatternFallback, Family: "trigger"}
			}
		}
		return Resolution{Type: c.fallback, Method: MethodGenericFallback}
	}

	if text := " " + strings.ToLower(strings.TrimSpace(label)) + " "; strings.TrimSpace(text) != "" {
		if typ, fam, ok := c.matchFamily(text, false); ok {
			return Resolution{Type: typ, Method: MethodInferredLabel, Family: fam}
		}
	}
	return Resolution{Type: c.fallback, Method: MethodGenericFallback}
}

// ResolveNode resolves a node's type and returns a copy with the resolved type
// and any missing label, icon, or category backfilled from the catalog.
// Fields the node already carries are never overwritten.
func (c *Catalog) ResolveNode(n workflow.Node) (workflow.Node, Resolution) {
	res := c.Resolve(n.Type, n.Label)
	n.Type = res.Type
	if t, ok := c.types[res.Type]; ok {
		if n.Label == "" {
			n.Label = t.Label
		}
		if n.Icon == "" {
			n.Icon = t.Icon
		}
		if n.Category == "" {
			n.Category = t.Category
		}
	}
	return n, res
}

// matchFamily returns the first known type of the first family whose keyword
// occurs in text, looking only at trigger families when trigger is set and
// only at the others otherwise. Families without a known type are skipped.
func (c *Catalog) matchFamily(text string, trigger bool) (string, string, bool) {
	for _, fam := range c.families {
		if fam.Trigger != trigger || !containsAny(text, fam.Keywords) {
			continue
		}
		for _, typ := range fam.Types {
			if c.Known(typ) {
				return typ, fam.Name, true
			}
		}
	}
	return "", "", false
}

// triggerLike reports whether a normalized declared type names a trigger by
// the catalog's trigger rules.
func (c *Catalog) triggerLike(key string) bool {
	if containsAny(key, c.triggers.TypeSubstrings) {
		return true
	}
	return slices.ContainsFunc(c.triggers.Types, func(s string) bool { return strings.EqualFold(s, key) })
}
