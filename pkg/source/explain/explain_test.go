package explain

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
)

const hashJoinPlan = `[
  {
    "Plan": {
      "Node Type": "Hash Join", "Total Cost": 100, "Actual Total Time": 50, "Actual Loops": 1,
      "Plans": [
        {"Node Type": "Seq Scan", "Relation Name": "orders", "Alias": "o", "Parent Relationship": "Outer",
         "Total Cost": 60, "Actual Total Time": 30, "Actual Loops": 1},
        {"Node Type": "Hash", "Parent Relationship": "Inner", "Total Cost": 30, "Actual Total Time": 10, "Actual Loops": 1,
         "Plans": [
           {"Node Type": "Seq Scan", "Relation Name": "users", "Alias": "users", "Parent Relationship": "Outer",
            "Total Cost": 25, "Actual Total Time": 8, "Actual Loops": 1}
         ]}
      ]
    },
    "Planning Time": 0.4,
    "Execution Time": 51.2
  }
]`

func convert(t *testing.T, input string, opts ...Option) *Result {
	t.Helper()
	plan, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	res, err := Convert(plan, opts...)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	return res
}

func TestConvertTime(t *testing.T) {
	res := convert(t, hashJoinPlan)

	if res.Metric != MetricTime {
		t.Errorf("Metric = %q, want time", res.Metric)
	}
	want := []flame.Interval{
		{ID: "root", Label: "Hash Join", Start: 0, End: 50},
		{ID: "root-0", Label: "Seq Scan on orders o", ParentID: "root", Start: 0, End: 30},
		{ID: "root-1", Label: "Hash", ParentID: "root", Start: 30, End: 40},
		{ID: "root-1-0", Label: "Seq Scan on users", ParentID: "root-1", Start: 30, End: 38},
	}
	if diff := cmp.Diff(want, res.Intervals); diff != "" {
		t.Errorf("Convert() intervals mismatch (-want +got):\n%s", diff)
	}

	excl := map[string]float64{}
	for _, s := range res.Stats {
		excl[s.ID] = s.Exclusive
	}
	if diff := cmp.Diff(map[string]float64{"root": 10, "root-0": 30, "root-1": 2, "root-1-0": 8}, excl); diff != "" {
		t.Errorf("exclusive mismatch (-want +got):\n%s", diff)
	}

	l := flame.Build(res.Intervals)
	if !l.Valid() || len(l.Rects) != 4 || len(l.Diagnostics) != 0 {
		t.Errorf("Build() valid=%v rects=%d diags=%v", l.Valid(), len(l.Rects), l.Diagnostics)
	}
}

func TestConvertTimeHints(t *testing.T) {
	res := convert(t, hashJoinPlan, WithHints(true))

	got := map[string]string{}
	for _, iv := range res.Intervals {
		if iv.ColorOverride != "" {
			got[iv.ID] = iv.ColorOverride
		}
	}
	if diff := cmp.Diff(map[string]string{"root-0": WarnColor}, got); diff != "" {
		t.Errorf("hint colors mismatch (-want +got):\n%s", diff)
	}
	if h := res.Stats[1].Hint; h == nil || h.Severity != SeverityWarn || h.Self != 30 {
		t.Errorf("Stats[1].Hint = %+v, want warn with self 30", h)
	}
}

func TestConvertCost(t *testing.T) {
	res := convert(t, hashJoinPlan, WithMetric(MetricCost), WithHints(true))

	ends := map[string][2]float64{}
	sev := map[string]Severity{}
	for _, s := range res.Stats {
		if s.Hint != nil {
			sev[s.ID] = s.Hint.Severity
		}
	}
	for _, iv := range res.Intervals {
		ends[iv.ID] = [2]float64{iv.Start, iv.End}
	}
	wantEnds := map[string][2]float64{
		"root": {0, 100}, "root-0": {0, 60}, "root-1": {60, 90}, "root-1-0": {60, 85},
	}
	if diff := cmp.Diff(wantEnds, ends); diff != "" {
		t.Errorf("cost bounds mismatch (-want +got):\n%s", diff)
	}
	wantSev := map[string]Severity{"root": SeverityWarn, "root-0": SeverityAlert, "root-1-0": SeverityWarn}
	if diff := cmp.Diff(wantSev, sev); diff != "" {
		t.Errorf("cost hints mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertScalesOverflowingChildren(t *testing.T) {
	res := convert(t, `{"Plan": {"Node Type": "Nested Loop", "Actual Total Time": 10, "Actual Loops": 1,
	  "Plans": [{"Node Type": "Index Scan", "Index Name": "users_pkey", "Relation Name": "users",
	             "Actual Total Time": 5, "Actual Loops": 4}]}}`)

	child := res.Intervals[1]
	if child.Start != 0 || child.End != 10 {
		t.Errorf("child = [%g, %g], want [0, 10]", child.Start, child.End)
	}
	if child.Label != "Index Scan using users_pkey on users" {
		t.Errorf("child label = %q", child.Label)
	}
}

func TestConvertGatherWorkers(t *testing.T) {
	res := convert(t, `{"Plan": {"Node Type": "Gather", "Workers Planned": 2, "Actual Total Time": 32, "Actual Loops": 1,
	  "Plans": [
	    {"Node Type": "Parallel Seq Scan", "Relation Name": "events", "Actual Total Time": 30, "Actual Loops": 3},
	    {"Node Type": "Result", "Parent Relationship": "InitPlan", "Subplan Name": "InitPlan 1", "Actual Total Time": 1, "Actual Loops": 1}
	  ]}}`)

	if got := res.Stats[1].Inclusive; got != 30 {
		t.Errorf("parallel child inclusive = %g, want 30", got)
	}
	if got := res.Stats[2].Inclusive; got != 1 {
		t.Errorf("init plan inclusive = %g, want 1", got)
	}
	if got := res.Stats[2].Label; got != "InitPlan 1: Result" {
		t.Errorf("init plan label = %q", got)
	}
	if got := res.Stats[0].Exclusive; got != 1 {
		t.Errorf("gather exclusive = %g, want 1", got)
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  []Option
	}{
		{"empty", "", nil},
		{"empty array", "[]", nil},
		{"no plan", `{"Execution Time": 1}`, nil},
		{"malformed", `[{"Plan": `, nil},
		{"time without analyze", `{"Plan": {"Node Type": "Seq Scan", "Total Cost": 3}}`, []Option{WithMetric(MetricTime)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Decode([]byte(tt.input))
			if err == nil {
				_, err = Convert(plan, tt.opts...)
			}
			if !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Errorf("error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestConvertAutoMetricCost(t *testing.T) {
	res := convert(t, `{"Plan": {"Node Type": "Seq Scan", "Relation Name": "t", "Total Cost": 3.5}}`)
	if res.Metric != MetricCost || res.Total != 3.5 {
		t.Errorf("Metric, Total = %q, %g, want cost, 3.5", res.Metric, res.Total)
	}
	if doc := res.Document(); doc.Title != "EXPLAIN Seq Scan on t (cost)" {
		t.Errorf("Document().Title = %q", doc.Title)
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		values []float64
		p      float64
		want   float64
	}{
		{nil, 0.9, 0},
		{[]float64{5}, 0.9, 5},
		{[]float64{4, 1, 3, 2}, 0.5, 2},
		{[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9},
		{[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.95, 10},
	}
	for _, tt := range tests {
		if got := percentile(tt.values, tt.p); got != tt.want {
			t.Errorf("percentile(%v, %g) = %g, want %g", tt.values, tt.p, got, tt.want)
		}
	}
}

func TestParseMetric(t *testing.T) {
	for _, s := range []string{"", "time", "COST"} {
		if _, err := ParseMetric(s); err != nil {
			t.Errorf("ParseMetric(%q) error = %v", s, err)
		}
	}
	if _, err := ParseMetric("rows"); err == nil {
		t.Error("ParseMetric(rows) error = nil")
	}
}
