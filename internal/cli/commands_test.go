package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	errs "github.com/matzehuels/flametower/pkg/errors"
	fio "github.com/matzehuels/flametower/pkg/io"
	"github.com/matzehuels/flametower/pkg/pipeline"
	"github.com/matzehuels/flametower/pkg/source/explain"
)

const (
	validDoc = `{"title": "checkout", "intervals": [
  {"id": "root", "label": "handler", "start": 0, "end": 100},
  {"id": "db", "label": "query", "start": 20, "end": 90, "parent_id": "root"},
  {"id": "orphan", "label": "lost", "start": 0, "end": 5, "parent_id": "missing"}
]}`

	twoRootsDoc = `[{"id": "a", "start": 0, "end": 1}, {"id": "b", "start": 1, "end": 2}]`

	seqScanPlan = `[{"Plan": {"Node Type": "Hash Join", "Total Cost": 100, "Actual Total Time": 50, "Actual Loops": 1,
  "Plans": [{"Node Type": "Seq Scan", "Relation Name": "orders", "Parent Relationship": "Outer",
    "Total Cost": 90, "Actual Total Time": 45, "Actual Loops": 1}]}}]`
)

func TestRunValidate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		asJSON   bool
		wantCode errs.Code
	}{
		{"valid with diagnostics", validDoc, false, ""},
		{"valid json report", validDoc, true, ""},
		{"two roots", twoRootsDoc, false, errs.ErrCodeInvalidHierarchy},
		{"two roots json report", twoRootsDoc, true, errs.ErrCodeInvalidHierarchy},
		{"malformed", `{"intervals": [`, false, errs.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCLI(t)
			path := writeFile(t, "doc.json", tt.body)

			err := c.runValidate(context.Background(), path, "", tt.asJSON)
			if got := errs.GetCode(err); got != tt.wantCode {
				t.Errorf("runValidate() error = %v, want code %q", err, tt.wantCode)
			}
		})
	}
}

func TestRunRender(t *testing.T) {
	c := newTestCLI(t)
	path := writeFile(t, "trace.json", validDoc)
	out := filepath.Join(t.TempDir(), "graph")

	opts := pipeline.Options{Formats: []string{"svg", "json", "tree"}}
	c.applyConfig(&opts)
	if err := c.runRender(context.Background(), path, opts, out, "", false); err != nil {
		t.Fatalf("runRender() error: %v", err)
	}
	for _, ext := range []string{".svg", ".json", ".tree.svg"} {
		if _, err := os.Stat(out + ext); err != nil {
			t.Errorf("missing %s: %v", out+ext, err)
		}
	}

	// A second run is served from the cache.
	if err := c.runRender(context.Background(), path, opts, out, "", false); err != nil {
		t.Fatalf("cached runRender() error: %v", err)
	}
}

func TestRunRenderBadFormat(t *testing.T) {
	c := newTestCLI(t)
	path := writeFile(t, "trace.json", validDoc)

	opts := pipeline.Options{Formats: []string{"gif"}}
	err := c.runRender(context.Background(), path, opts, "", "", true)
	if !errs.IsValidation(err) {
		t.Errorf("runRender() error = %v, want validation error", err)
	}
}

func TestRunExplain(t *testing.T) {
	c := newTestCLI(t)
	path := writeFile(t, "plan.json", seqScanPlan)
	dir := t.TempDir()
	save := filepath.Join(dir, "plan.flame.yaml")
	out := filepath.Join(dir, "plan.svg")

	err := c.runExplain(context.Background(), path, explainParams{
		hints:  true,
		output: out,
		save:   save,
		opts:   pipeline.Options{Formats: []string{"svg"}},
	})
	if err != nil {
		t.Fatalf("runExplain() error: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("missing rendered plan: %v", err)
	}

	data, err := os.ReadFile(save)
	if err != nil {
		t.Fatalf("missing saved document: %v", err)
	}
	doc, err := fio.Decode(data, fio.FormatYAML)
	if err != nil {
		t.Fatalf("saved document does not decode: %v", err)
	}
	if got := len(doc.Intervals); got != 2 {
		t.Errorf("saved intervals = %d, want 2", got)
	}
}

func TestRunExplainCostMetric(t *testing.T) {
	c := newTestCLI(t)
	path := writeFile(t, "plan.json", seqScanPlan)
	out := filepath.Join(t.TempDir(), "plan.json")

	err := c.runExplain(context.Background(), path, explainParams{
		metric:  explain.MetricCost,
		output:  out,
		noCache: true,
		opts:    pipeline.Options{Formats: []string{"json"}},
	})
	if err != nil {
		t.Fatalf("runExplain() error: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("missing layout json: %v", err)
	}
}

func TestRunExplainMalformed(t *testing.T) {
	c := newTestCLI(t)
	path := writeFile(t, "plan.json", `[{"Plan": `)

	err := c.runExplain(context.Background(), path, explainParams{})
	if err == nil {
		t.Error("runExplain() expected error for malformed plan")
	}
}
