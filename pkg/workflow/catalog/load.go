package catalog

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/flowmend/pkg/errors"
)

//go:embed default.toml
var defaultRules []byte

// File is the on-disk TOML representation of a catalog.
type File struct {
	Fallback string            `toml:"fallback" json:"fallback"`
	Triggers TriggerRules      `toml:"triggers" json:"triggers"`
	Aliases  map[string]string `toml:"aliases" json:"aliases"`
	Families []Family          `toml:"families" json:"families"`
	Types    []NodeType        `toml:"types" json:"types"`
}

func (f File) validate() error {
	known := make(map[string]bool, len(f.Types))
	for i, t := range f.Types {
		if t.Type == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "catalog type #%d has no name", i)
		}
		known[t.Type] = true
	}
	if f.Fallback == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "catalog fallback type is required")
	}
	if !known[f.Fallback] {
		return errors.New(errors.ErrCodeInvalidConfig, "catalog fallback %q is not a known type", f.Fallback)
	}
	return nil
}

// Parse decodes TOML rule data into a catalog.
func Parse(data []byte) (*Catalog, error) {
	f, err := parseFile(data)
	if err != nil {
		return nil, err
	}
	return New(f)
}

func parseFile(data []byte) (File, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return File{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode catalog")
	}
	return f, nil
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Parse(defaultRules)
})

// Default returns the built-in catalog. It panics if the embedded rules are
// invalid, which can only happen with a broken build.
func Default() *Catalog {
	c, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid built-in rules: %v", err))
	}
	return c
}

// LoadFile reads a user rule file and layers it on top of the built-in
// catalog. Types and aliases in the file override built-in entries with the
// same name; families in the file are tried before built-in families; trigger
// rule lists are extended.
func LoadFile(path string) (*Catalog, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read catalog %s", path)
	}
	user, err := parseFile(data)
	if err != nil {
		return nil, err
	}
	return New(Extend(Default().File(), user))
}

// Extend layers override on top of base and returns the merged file.
func Extend(base, override File) File {
	out := File{
		Fallback: base.Fallback,
		Aliases:  maps.Clone(base.Aliases),
		Families: append(append([]Family{}, override.Families...), base.Families...),
		Triggers: TriggerRules{
			Categories:          append(append([]string{}, base.Triggers.Categories...), override.Triggers.Categories...),
			TypeSubstrings:      append(append([]string{}, base.Triggers.TypeSubstrings...), override.Triggers.TypeSubstrings...),
			Types:               append(append([]string{}, base.Triggers.Types...), override.Triggers.Types...),
			Preferred:           append(append([]string{}, override.Triggers.Preferred...), base.Triggers.Preferred...),
			PreferredSubstrings: append(append([]string{}, override.Triggers.PreferredSubstrings...), base.Triggers.PreferredSubstrings...),
		},
	}
	if override.Fallback != "" {
		out.Fallback = override.Fallback
	}
	if out.Aliases == nil {
		out.Aliases = make(map[string]string, len(override.Aliases))
	}
	maps.Copy(out.Aliases, override.Aliases)

	replaced := make(map[string]NodeType, len(override.Types))
	for _, t := range override.Types {
		replaced[t.Type] = t
	}
	for _, t := range base.Types {
		if r, ok := replaced[t.Type]; ok {
			out.Types = append(out.Types, r)
			delete(replaced, t.Type)
			continue
		}
		out.Types = append(out.Types, t)
	}
	for _, t := range override.Types {
		if _, ok := replaced[t.Type]; ok {
			out.Types = append(out.Types, t)
		}
	}
	return out
}
