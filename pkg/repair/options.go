package repair

import (
	"github.com/matzehuels/flowmend/pkg/idalloc"
	"github.com/matzehuels/flowmend/pkg/workflow/catalog"
)

// Layout defaults, in canvas units.
const (
	DefaultNodeWidth  = 240.0
	DefaultNodeHeight = 100.0
	DefaultHSpacing   = 80.0
	DefaultVSpacing   = 180.0
	DefaultOriginX    = 100.0
	DefaultOriginY    = 100.0
	DefaultPadding    = 40.0
)

// LayoutConfig holds the fixed geometry used to place nodes and detect
// overlaps. Every node is treated as a NodeWidth x NodeHeight box anchored at
// its position.
type LayoutConfig struct {
	NodeWidth  float64 `json:"node_width" toml:"node_width"`
	NodeHeight float64 `json:"node_height" toml:"node_height"`
	HSpacing   float64 `json:"h_spacing" toml:"h_spacing"`
	VSpacing   float64 `json:"v_spacing" toml:"v_spacing"`
	OriginX    float64 `json:"origin_x" toml:"origin_x"`
	OriginY    float64 `json:"origin_y" toml:"origin_y"`
	Padding    float64 `json:"padding" toml:"padding"`
}

// DefaultLayout returns the default layout geometry.
func DefaultLayout() LayoutConfig {
	return LayoutConfig{
		NodeWidth:  DefaultNodeWidth,
		NodeHeight: DefaultNodeHeight,
		HSpacing:   DefaultHSpacing,
		VSpacing:   DefaultVSpacing,
		OriginX:    DefaultOriginX,
		OriginY:    DefaultOriginY,
		Padding:    DefaultPadding,
	}
}

func (l *LayoutConfig) setDefaults() {
	d := DefaultLayout()
	if l.NodeWidth <= 0 {
		l.NodeWidth = d.NodeWidth
	}
	if l.NodeHeight <= 0 {
		l.NodeHeight = d.NodeHeight
	}
	if l.HSpacing <= 0 {
		l.HSpacing = d.HSpacing
	}
	if l.VSpacing <= 0 {
		l.VSpacing = d.VSpacing
	}
	if l.Padding <= 0 {
		l.Padding = d.Padding
	}
	if l.OriginX == 0 && l.OriginY == 0 {
		l.OriginX, l.OriginY = d.OriginX, d.OriginY
	}
}

// Options configures a repair call. The zero value uses the built-in catalog,
// a fresh UUID-backed allocator, and the default layout.
type Options struct {
	// Catalog is the read-only node type catalog.
	Catalog *catalog.Catalog

	// Allocator mints node and edge identifiers. A new allocator is created
	// per call when nil; callers inject one to force exhaustion in tests.
	Allocator *idalloc.Allocator

	// Layout is the node geometry used by the layout and validation passes.
	Layout LayoutConfig
}

// SetDefaults fills in unset options. It is idempotent.
func (o *Options) SetDefaults() {
	if o.Catalog == nil {
		o.Catalog = catalog.Default()
	}
	if o.Allocator == nil {
		o.Allocator = idalloc.New()
	}
	o.Layout.setDefaults()
}
