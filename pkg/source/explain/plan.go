package explain

import (
	"bytes"
	"encoding/json"

	errs "github.com/matzehuels/flametower/pkg/errors"
)

// Node is one plan node as printed by EXPLAIN (FORMAT JSON). Pointer fields
// are absent unless ANALYZE was used.
type Node struct {
	NodeType           string   `json:"Node Type"`
	RelationName       string   `json:"Relation Name,omitempty"`
	Alias              string   `json:"Alias,omitempty"`
	IndexName          string   `json:"Index Name,omitempty"`
	CTEName            string   `json:"CTE Name,omitempty"`
	SubplanName        string   `json:"Subplan Name,omitempty"`
	ParentRelationship string   `json:"Parent Relationship,omitempty"`
	StartupCost        float64  `json:"Startup Cost"`
	TotalCost          float64  `json:"Total Cost"`
	PlanRows           float64  `json:"Plan Rows"`
	ActualTotalTime    *float64 `json:"Actual Total Time,omitempty"`
	ActualRows         *float64 `json:"Actual Rows,omitempty"`
	ActualLoops        *float64 `json:"Actual Loops,omitempty"`
	WorkersPlanned     *int     `json:"Workers Planned,omitempty"`
	WorkersLaunched    *int     `json:"Workers Launched,omitempty"`
	Plans              []Node   `json:"Plans,omitempty"`
}

// Plan is the top-level EXPLAIN result.
type Plan struct {
	Root          Node     `json:"Plan"`
	PlanningTime  *float64 `json:"Planning Time,omitempty"`
	ExecutionTime *float64 `json:"Execution Time,omitempty"`
}

// Analyzed reports whether the plan carries ANALYZE timings.
func (p *Plan) Analyzed() bool {
	return p.Root.ActualTotalTime != nil
}

// Decode parses EXPLAIN JSON output. Both the array form and a bare plan
// object are accepted; only the first statement of an array is used.
func Decode(data []byte) (*Plan, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "empty explain output")
	}

	var plan Plan
	if trimmed[0] == '[' {
		var plans []Plan
		if err := json.Unmarshal(trimmed, &plans); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode explain output")
		}
		if len(plans) == 0 {
			return nil, errs.New(errs.ErrCodeInvalidInput, "explain output contains no plan")
		}
		plan = plans[0]
	} else if err := json.Unmarshal(trimmed, &plan); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode explain output")
	}

	if plan.Root.NodeType == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "explain output has no \"Plan\" node")
	}
	return &plan, nil
}
