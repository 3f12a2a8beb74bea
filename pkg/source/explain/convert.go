package explain

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
	fio "github.com/matzehuels/flametower/pkg/io"
)

// Metric selects the quantity used as interval width.
type Metric string

const (
	MetricTime Metric = "time"
	MetricCost Metric = "cost"
)

// ParseMetric accepts "time", "cost" or "" (auto).
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(s)); m {
	case "", MetricTime, MetricCost:
		return m, nil
	}
	return "", errs.New(errs.ErrCodeInvalidInput, "invalid metric: %q (must be 'time' or 'cost')", s)
}

// Unit returns the display unit for widths in this metric.
func (m Metric) Unit() string {
	if m == MetricTime {
		return "ms"
	}
	return ""
}

// Option configures [Convert].
type Option func(*converter)

type converter struct {
	metric Metric
	hints  bool
	logger *log.Logger
}

// WithMetric fixes the width metric. Without it, analyzed plans use time and
// plain plans use cost.
func WithMetric(m Metric) Option { return func(c *converter) { c.metric = m } }

// WithHints colors hotspot nodes with [AlertColor] or [WarnColor].
func WithHints(enabled bool) Option { return func(c *converter) { c.hints = enabled } }

// WithLogger logs the chosen metric and the hotspots found.
func WithLogger(l *log.Logger) Option { return func(c *converter) { c.logger = l } }

// Stats holds the derived numbers for one plan node.
type Stats struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Inclusive float64 `json:"inclusive"`
	Exclusive float64 `json:"exclusive"`
	Hint      *Hint   `json:"hint,omitempty"`
}

// Result is a converted plan.
type Result struct {
	Metric    Metric
	Total     float64
	Intervals []flame.Interval
	Stats     []Stats
}

// Document wraps the intervals in an [fio.Document] titled after the root node.
func (r *Result) Document() *fio.Document {
	title := "EXPLAIN"
	if len(r.Stats) > 0 {
		title = fmt.Sprintf("EXPLAIN %s (%s)", r.Stats[0].Label, r.Metric)
	}
	return &fio.Document{Title: title, Intervals: r.Intervals}
}

// Tooltip formats tooltips with the metric unit and share of the total.
func (r *Result) Tooltip() flame.LabelFunc {
	return flame.DurationTooltip(r.Total, r.Metric.Unit())
}

type planNode struct {
	id, parentID string
	label        string
	node         *Node
	incl, excl   float64
	children     []*planNode
}

// Convert turns a decoded plan into intervals in depth-first plan order.
func Convert(plan *Plan, opts ...Option) (*Result, error) {
	c := converter{}
	for _, opt := range opts {
		opt(&c)
	}
	if c.metric == "" {
		c.metric = MetricCost
		if plan.Analyzed() {
			c.metric = MetricTime
		}
	}
	if c.metric == MetricTime && !plan.Analyzed() {
		return nil, errs.New(errs.ErrCodeInvalidInput, "plan has no timings; run EXPLAIN ANALYZE or use the cost metric")
	}

	var nodes []*planNode
	root := c.walk(&plan.Root, "", 0, 0, &nodes)

	res := &Result{Metric: c.metric, Total: root.incl}
	res.Intervals = make([]flame.Interval, 0, len(nodes))
	place(root, 0, root.incl, &res.Intervals)

	hints := map[string]*Hint{}
	if c.hints {
		var exec float64
		if plan.ExecutionTime != nil {
			exec = *plan.ExecutionTime
		}
		hints = annotate(nodes, c.metric, exec)
	}

	res.Stats = make([]Stats, len(nodes))
	for i, n := range nodes {
		res.Stats[i] = Stats{ID: n.id, Label: n.label, Inclusive: n.incl, Exclusive: n.excl, Hint: hints[n.id]}
	}
	for i := range res.Intervals {
		if h := hints[res.Intervals[i].ID]; h != nil {
			res.Intervals[i].ColorOverride = h.Severity.Color()
			if c.logger != nil {
				c.logger.Info("plan hotspot", "node", res.Intervals[i].Label, "severity", h.Severity, "share", fmt.Sprintf("%.0f%%", h.Share*100))
			}
		}
	}

	if c.logger != nil {
		c.logger.Debug("converted plan", "nodes", len(nodes), "metric", c.metric, "total", res.Total)
	}
	return res, nil
}

// walk builds the node tree and computes inclusive and exclusive widths.
// nodes receives the nodes in depth-first pre-order.
func (c *converter) walk(n *Node, parentID string, index, gatherWorkers int, nodes *[]*planNode) *planNode {
	id := "root"
	if parentID != "" {
		id = fmt.Sprintf("%s-%d", parentID, index)
	}
	pn := &planNode{id: id, parentID: parentID, label: Label(n), node: n}
	*nodes = append(*nodes, pn)

	childWorkers := gatherWorkers
	if n.NodeType == "Gather" || n.NodeType == "Gather Merge" {
		if n.WorkersPlanned != nil && *n.WorkersPlanned > 0 {
			childWorkers = *n.WorkersPlanned
		} else if n.WorkersLaunched != nil && *n.WorkersLaunched > 0 {
			childWorkers = *n.WorkersLaunched
		}
	}

	var childSum float64
	for i := range n.Plans {
		child := &n.Plans[i]
		w := childWorkers
		if child.ParentRelationship == "InitPlan" || child.ParentRelationship == "SubPlan" {
			w = 0
		}
		cn := c.walk(child, id, i, w, nodes)
		pn.children = append(pn.children, cn)
		childSum += cn.incl
	}

	pn.incl = c.inclusive(n, gatherWorkers)
	pn.excl = max(pn.incl-childSum, 0)
	return pn
}

func (c *converter) inclusive(n *Node, gatherWorkers int) float64 {
	if c.metric == MetricCost {
		return n.TotalCost
	}
	loops := 1.0
	if n.ActualLoops != nil {
		loops = *n.ActualLoops
	}
	var total float64
	if n.ActualTotalTime != nil {
		total = *n.ActualTotalTime
	}
	return total * loops / float64(gatherWorkers+1)
}

// place assigns [start, start+width) to n and packs its children inside.
func place(n *planNode, start, width float64, out *[]flame.Interval) {
	*out = append(*out, flame.Interval{
		ID:       n.id,
		Label:    n.label,
		ParentID: n.parentID,
		Start:    start,
		End:      start + width,
	})

	var childSum float64
	for _, ch := range n.children {
		childSum += ch.incl
	}
	scale := 0.0
	if denom := max(n.incl, childSum); denom > 0 {
		scale = width / denom
	}

	cursor := start
	for _, ch := range n.children {
		w := ch.incl * scale
		place(ch, cursor, w, out)
		cursor += w
	}
}

// Label formats a node as "Node Type [using index] [on relation [alias]]".
func Label(n *Node) string {
	var b strings.Builder
	b.WriteString(n.NodeType)
	if b.Len() == 0 {
		b.WriteString("Node")
	}
	if n.IndexName != "" {
		b.WriteString(" using ")
		b.WriteString(n.IndexName)
	}
	switch {
	case n.RelationName != "":
		b.WriteString(" on ")
		b.WriteString(n.RelationName)
		if n.Alias != "" && n.Alias != n.RelationName {
			b.WriteString(" ")
			b.WriteString(n.Alias)
		}
	case n.CTEName != "":
		b.WriteString(" on ")
		b.WriteString(n.CTEName)
	}
	if n.SubplanName != "" {
		return n.SubplanName + ": " + b.String()
	}
	return b.String()
}
