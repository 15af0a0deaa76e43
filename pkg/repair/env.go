package repair

import (
	"fmt"

	"github.com/matzehuels/flowmend/pkg/idalloc"
	"github.com/matzehuels/flowmend/pkg/workflow/catalog"
)

// Env is the per-call state threaded through the repair stages: the
// read-only catalog, the identifier allocator, the layout geometry, and the
// diagnostics collected so far. An Env belongs to exactly one repair call and
// is not safe for concurrent use.
type Env struct {
	Catalog     *catalog.Catalog
	Alloc       *idalloc.Allocator
	Layout      LayoutConfig
	Diagnostics Diagnostics

	stage string
}

// NewEnv returns an Env for opts, applying defaults to a copy of opts.
func NewEnv(opts Options) *Env {
	opts.SetDefaults()
	return &Env{
		Catalog: opts.Catalog,
		Alloc:   opts.Allocator,
		Layout:  opts.Layout,
	}
}

func (e *Env) enter(stage string) { e.stage = stage }

func (e *Env) report(sev Severity, code, nodeID, edgeID, format string, args ...any) {
	e.Diagnostics = append(e.Diagnostics, Diagnostic{
		Stage:    e.stage,
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		NodeID:   nodeID,
		EdgeID:   edgeID,
	})
}

func (e *Env) info(code, nodeID, edgeID, format string, args ...any) {
	e.report(SeverityInfo, code, nodeID, edgeID, format, args...)
}

func (e *Env) warn(code, nodeID, edgeID, format string, args ...any) {
	e.report(SeverityWarning, code, nodeID, edgeID, format, args...)
}
