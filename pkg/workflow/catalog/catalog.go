package catalog

import (
	"slices"
	"strings"

	"github.com/matzehuels/flowmend/pkg/workflow"
)

// Role gives a node type special meaning to the repair engine. Most types
// have no role.
type Role string

const (
	RoleNone        Role = ""
	RoleTrigger     Role = "trigger"
	RoleConditional Role = "conditional"
	RoleSwitch      Role = "switch"
	RoleLogSink     Role = "log_sink"
	RoleFailure     Role = "failure"
)

// NodeType describes one supported node type.
//
// InputPorts lists the named target ports of multi-input nodes (agents,
// aggregators); the first entry is the primary port. Types with zero or one
// entries have the single canonical "input" port.
type NodeType struct {
	Type       string         `toml:"type" json:"type"`
	Label      string         `toml:"label" json:"label"`
	Icon       string         `toml:"icon" json:"icon"`
	Category   string         `toml:"category" json:"category"`
	Role       Role           `toml:"role" json:"role,omitempty"`
	InputPorts []string       `toml:"input_ports" json:"input_ports,omitempty"`
	Defaults   map[string]any `toml:"defaults" json:"defaults,omitempty"`
}

// MultiInput reports whether the type declares more than one target port.
func (t NodeType) MultiInput() bool { return len(t.InputPorts) > 1 }

// Family is an ordered keyword rule used for pattern and label inference.
// Trigger families only apply to declared types that look like triggers, and
// other families never do, so an unknown trigger cannot resolve to an action.
type Family struct {
	Name     string   `toml:"name" json:"name"`
	Trigger  bool     `toml:"trigger" json:"trigger,omitempty"`
	Keywords []string `toml:"keywords" json:"keywords"`
	Types    []string `toml:"types" json:"types"`
}

// TriggerRules classifies trigger nodes and picks the preferred primary
// trigger. All matching is case-insensitive.
type TriggerRules struct {
	Categories          []string `toml:"categories" json:"categories"`
	TypeSubstrings      []string `toml:"type_substrings" json:"type_substrings"`
	Types               []string `toml:"types" json:"types"`
	Preferred           []string `toml:"preferred" json:"preferred"`
	PreferredSubstrings []string `toml:"preferred_substrings" json:"preferred_substrings"`
}

// Catalog is the read-only registry of known node types and the rule tables
// used to resolve unknown ones. A Catalog is safe for concurrent use once
// built; nothing mutates it after construction.
type Catalog struct {
	file     File
	types    map[string]NodeType
	order    []string
	aliases  map[string]string
	families []Family
	triggers TriggerRules
	fallback string
}

// New builds a catalog from a decoded rule file.
func New(f File) (*Catalog, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	c := &Catalog{
		file:     f,
		types:    make(map[string]NodeType, len(f.Types)),
		aliases:  make(map[string]string, len(f.Aliases)),
		families: slices.Clone(f.Families),
		triggers: f.Triggers,
		fallback: f.Fallback,
	}
	for _, t := range f.Types {
		if _, ok := c.types[t.Type]; !ok {
			c.order = append(c.order, t.Type)
		}
		c.types[t.Type] = t
	}
	for k, v := range f.Aliases {
		c.aliases[normalizeKey(k)] = v
	}
	return c, nil
}

// File returns the rule file the catalog was built from.
func (c *Catalog) File() File { return c.file }

// Types returns all known node types in declaration order.
func (c *Catalog) Types() []NodeType {
	out := make([]NodeType, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.types[name])
	}
	return out
}

// Lookup returns the type definition for an exact type name.
func (c *Catalog) Lookup(name string) (NodeType, bool) {
	t, ok := c.types[name]
	return t, ok
}

// Known reports whether name is an exact known type.
func (c *Catalog) Known(name string) bool {
	_, ok := c.types[name]
	return ok
}

// Fallback returns the generic catch-all type.
func (c *Catalog) Fallback() string { return c.fallback }

// =============================================================================
// Roles
// =============================================================================

func (c *Catalog) role(name string) Role {
	return c.types[name].Role
}

// IsConditional reports whether the type is a binary true/false branch.
func (c *Catalog) IsConditional(name string) bool { return c.role(name) == RoleConditional }

// IsSwitch reports whether the type is a multi-way switch.
func (c *Catalog) IsSwitch(name string) bool { return c.role(name) == RoleSwitch }

// IsBranching reports whether the type is conditional or switch.
func (c *Catalog) IsBranching(name string) bool {
	return c.IsConditional(name) || c.IsSwitch(name)
}

// IsLogSink reports whether the type is the designated log sink.
func (c *Catalog) IsLogSink(name string) bool { return c.role(name) == RoleLogSink }

// IsFailure reports whether the type is the distinguished failure terminal.
func (c *Catalog) IsFailure(name string) bool { return c.role(name) == RoleFailure }

// LogSinkType returns the first type with the log sink role, or "".
func (c *Catalog) LogSinkType() string { return c.firstWithRole(RoleLogSink) }

func (c *Catalog) firstWithRole(r Role) string {
	for _, name := range c.order {
		if c.types[name].Role == r {
			return name
		}
	}
	return ""
}

// InputPorts returns the declared target ports for a type. Types without
// named ports report the single canonical input port.
func (c *Catalog) InputPorts(name string) []string {
	if t, ok := c.types[name]; ok && t.MultiInput() {
		return t.InputPorts
	}
	return []string{workflow.HandleInput}
}

// PrimaryInput returns the primary target port for a type.
func (c *Catalog) PrimaryInput(name string) string {
	return c.InputPorts(name)[0]
}

// MultiInput reports whether the type declares several target ports.
func (c *Catalog) MultiInput(name string) bool {
	t, ok := c.types[name]
	return ok && t.MultiInput()
}

// =============================================================================
// Trigger Classification
// =============================================================================

// IsTrigger reports whether a node is a trigger: its category is a trigger
// category, its type contains a trigger substring, its type is in the fixed
// trigger set, or its catalog type has the trigger role.
func (c *Catalog) IsTrigger(n workflow.Node) bool {
	category := normalizeKey(n.Category)
	if slices.ContainsFunc(c.triggers.Categories, func(s string) bool { return strings.EqualFold(s, category) }) {
		return true
	}
	typ := normalizeKey(n.Type)
	if typ == "" {
		return false
	}
	if c.role(n.Type) == RoleTrigger {
		return true
	}
	if containsAny(typ, c.triggers.TypeSubstrings) {
		return true
	}
	return slices.ContainsFunc(c.triggers.Types, func(s string) bool { return strings.EqualFold(s, typ) })
}

// IsPreferredTrigger reports whether a trigger node should be chosen as the
// primary trigger over others (form submissions by default).
func (c *Catalog) IsPreferredTrigger(n workflow.Node) bool {
	typ := normalizeKey(n.Type)
	if slices.ContainsFunc(c.triggers.Preferred, func(s string) bool { return strings.EqualFold(s, typ) }) {
		return true
	}
	return containsAny(typ, c.triggers.PreferredSubstrings)
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
