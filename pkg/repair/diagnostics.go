package repair

import "fmt"

// Severity grades a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes emitted by the repair stages.
const (
	CodeDuplicateNodeDropped = "duplicate_node_dropped"
	CodeDanglingEdgeDropped  = "dangling_edge_dropped"
	CodeTypeResolved         = "type_resolved"
	CodeTriggerDropped       = "trigger_dropped"
	CodeChainEdgeAdded       = "chain_edge_added"
	CodePositionAssigned     = "position_assigned"
	CodePositionShifted      = "position_shifted"
	CodeAmbiguousBranch      = "ambiguous_branch_handle"
	CodeHandleCoerced        = "handle_coerced"
	CodeBranchMissing        = "branch_missing"
	CodeBranchAssigned       = "branch_assigned"
	CodeBranchEdgeDropped    = "branch_edge_dropped"
	CodeSinkEdgeRemoved      = "sink_edge_removed"
	CodeSinkSplit            = "sink_split"
	CodeSinkWired            = "sink_wired"
	CodeDuplicateEdgeDropped = "duplicate_edge_dropped"
	CodeEdgeIDReallocated    = "edge_id_reallocated"
)

// Diagnostic describes one fix applied, or one problem left in place, by a
// repair stage. Diagnostics are informational: the repaired graph is valid
// regardless of what they report.
type Diagnostic struct {
	Stage    string   `json:"stage"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	NodeID   string   `json:"node_id,omitempty"`
	EdgeID   string   `json:"edge_id,omitempty"`
}

// String formats the diagnostic for logs.
func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Stage, d.Code, d.Message)
}

// Diagnostics is an ordered list of diagnostics.
type Diagnostics []Diagnostic

// Warnings returns only warning-level diagnostics.
func (ds Diagnostics) Warnings() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many diagnostics carry the given code.
func (ds Diagnostics) Count(code string) int {
	n := 0
	for _, d := range ds {
		if d.Code == code {
			n++
		}
	}
	return n
}
