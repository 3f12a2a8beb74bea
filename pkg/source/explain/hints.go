package explain

import (
	"math"
	"slices"
)

// Severity ranks a hotspot.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityAlert Severity = "alert"
)

// Hotspot colors used as interval overrides.
const (
	WarnColor  = "#e9a23b"
	AlertColor = "#d1242f"
)

// Color returns the override color for s.
func (s Severity) Color() string {
	if s == SeverityAlert {
		return AlertColor
	}
	return WarnColor
}

func (s Severity) rank() int {
	switch s {
	case SeverityAlert:
		return 2
	case SeverityWarn:
		return 1
	}
	return 0
}

// Hint flags a node whose exclusive time or cost dominates the plan.
type Hint struct {
	Severity Severity `json:"severity"`
	Self     float64  `json:"self"`
	Share    float64  `json:"share"`
}

// minSelfTime ignores nodes faster than 1ms.
const minSelfTime = 1.0

// annotate returns hints keyed by node id. For time, a node is flagged when
// its share of the total self time is >= 0.75 (alert) or >= 0.35 (warn), or
// failing that when it reaches the p95 (alert) or p90 (warn) of positive
// self times. execTime, when positive, replaces the summed self time as the
// total.
//
// For cost, the share of summed self cost (>= 0.5 alert, >= 0.25 warn) and
// the fraction of the largest Total Cost (>= 0.9 alert, >= 0.1 warn) both
// apply, keeping the higher severity; p95/p90 are consulted only if neither
// fires.
func annotate(nodes []*planNode, metric Metric, execTime float64) map[string]*Hint {
	if metric == MetricCost {
		return annotateCost(nodes)
	}
	return annotateTime(nodes, execTime)
}

func annotateTime(nodes []*planNode, execTime float64) map[string]*Hint {
	var total float64
	var values []float64
	for _, n := range nodes {
		total += n.excl
		if n.excl > 0 {
			values = append(values, n.excl)
		}
	}
	if execTime > 0 {
		total = execTime
	}
	p90, p95 := percentile(values, 0.9), percentile(values, 0.95)

	hints := map[string]*Hint{}
	for _, n := range nodes {
		self := n.excl
		if self < minSelfTime || total <= 0 {
			continue
		}
		share := self / total
		var sev Severity
		switch {
		case share >= 0.75:
			sev = SeverityAlert
		case share >= 0.35:
			sev = SeverityWarn
		case p95 >= minSelfTime && self >= p95:
			sev = SeverityAlert
		case p90 >= minSelfTime && self >= p90:
			sev = SeverityWarn
		}
		if sev != "" {
			hints[n.id] = &Hint{Severity: sev, Self: self, Share: share}
		}
	}
	return hints
}

func annotateCost(nodes []*planNode) map[string]*Hint {
	var total, maxTotal float64
	var values []float64
	for _, n := range nodes {
		maxTotal = max(maxTotal, n.node.TotalCost)
		if n.excl > 0 {
			total += n.excl
			values = append(values, n.excl)
		}
	}
	p90, p95 := percentile(values, 0.9), percentile(values, 0.95)

	hints := map[string]*Hint{}
	for _, n := range nodes {
		self := n.excl
		if self <= 0 {
			continue
		}
		var sev Severity
		raise := func(s Severity) {
			if s.rank() > sev.rank() {
				sev = s
			}
		}

		var share float64
		if total > 0 {
			share = self / total
			switch {
			case share >= 0.5:
				raise(SeverityAlert)
			case share >= 0.25:
				raise(SeverityWarn)
			}
		}
		if maxTotal > 0 {
			switch frac := self / maxTotal; {
			case frac >= 0.9:
				raise(SeverityAlert)
			case frac >= 0.1:
				raise(SeverityWarn)
			}
		}
		if sev == "" {
			switch {
			case p95 > 0 && self >= p95:
				raise(SeverityAlert)
			case p90 > 0 && self >= p90:
				raise(SeverityWarn)
			}
		}
		if sev != "" {
			hints[n.id] = &Hint{Severity: sev, Self: self, Share: share}
		}
	}
	return hints
}

// percentile returns the nearest-rank p-th percentile of values, or 0 for
// an empty slice.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	return sorted[min(max(rank, 0), len(sorted)-1)]
}
