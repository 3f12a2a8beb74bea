package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/flametower/pkg/cache"
	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
	fio "github.com/matzehuels/flametower/pkg/io"
	"github.com/matzehuels/flametower/pkg/observability"
)

func sampleDoc() *fio.Document {
	return &fio.Document{
		Title:     "request",
		ColorMode: flame.ColorModeWidth,
		Intervals: []flame.Interval{
			{ID: "root", Label: "handler", Start: 0, End: 100},
			{ID: "auth", Label: "auth", ParentID: "root", Start: 0, End: 20},
			{ID: "db", Label: "query", ParentID: "root", Start: 20, End: 90},
			{ID: "scan", Label: "scan", ParentID: "db", Start: 25, End: 60},
		},
	}
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	return NewRunner(c, nil, nil)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantCode errs.Code
	}{
		{"defaults", Options{}, ""},
		{"width mode", Options{ColorMode: "WIDTH"}, ""},
		{"bad mode", Options{ColorMode: "rainbow"}, errs.ErrCodeInvalidColorMode},
		{"short palette", Options{Palette: []string{"#fff"}}, errs.ErrCodeInvalidPalette},
		{"bad format", Options{Formats: []string{"gif"}}, errs.ErrCodeInvalidFormat},
		{"negative width", Options{Width: -1}, errs.ErrCodeInvalidInput},
		{"huge width", Options{Width: MaxWidth + 1}, errs.ErrCodeInvalidInput},
		{"negative row height", Options{RowHeight: -4}, errs.ErrCodeInvalidInput},
		{"huge scale", Options{Scale: 9}, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			err := opts.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if got := errs.GetCode(err); got != tt.wantCode {
				t.Errorf("Validate() code = %q, want %q (err %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{ColorMode: "Width"}
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if opts.ColorMode != flame.ColorModeWidth {
		t.Errorf("ColorMode = %q, want %q", opts.ColorMode, flame.ColorModeWidth)
	}
	if diff := cmp.Diff([]string{"svg"}, opts.Formats); diff != "" {
		t.Errorf("Formats mismatch (-want +got):\n%s", diff)
	}
	if opts.Scale != DefaultScale {
		t.Errorf("Scale = %v, want %v", opts.Scale, DefaultScale)
	}
	if opts.Logger == nil {
		t.Error("Validate() should set a logger")
	}

	// Second call should be idempotent
	before := opts.String()
	if err := opts.Validate(); err != nil {
		t.Fatalf("second Validate() error = %v", err)
	}
	if after := opts.String(); after != before {
		t.Errorf("second Validate() changed options: %s -> %s", before, after)
	}
}

func TestBuildLayout(t *testing.T) {
	doc := sampleDoc()

	opts := Options{}
	if err := opts.Validate(); err != nil {
		t.Fatal(err)
	}
	l := BuildLayout(doc, opts)
	if l.ColorMode != flame.ColorModeWidth {
		t.Errorf("ColorMode = %q, want document mode %q", l.ColorMode, flame.ColorModeWidth)
	}
	if len(l.Rects) != 4 || l.MaxLevel != 2 {
		t.Errorf("got %d rects, max level %d; want 4 rects, max level 2", len(l.Rects), l.MaxLevel)
	}
	if l.Rects[0].Tooltip != "" {
		t.Errorf("Tooltip = %q without a unit, want empty", l.Rects[0].Tooltip)
	}

	opts = Options{ColorMode: flame.ColorModePeaks, Unit: "ms"}
	if err := opts.Validate(); err != nil {
		t.Fatal(err)
	}
	l = BuildLayout(doc, opts)
	if l.ColorMode != flame.ColorModePeaks {
		t.Errorf("ColorMode = %q, want option mode %q", l.ColorMode, flame.ColorModePeaks)
	}
	if got, want := l.Rects[2].Tooltip, "query (70ms, 70.0%)"; got != want {
		t.Errorf("Tooltip = %q, want %q", got, want)
	}
}

func TestSpan(t *testing.T) {
	tests := []struct {
		name  string
		items []flame.Interval
		want  float64
	}{
		{"empty", nil, 0},
		{"root width", sampleDoc().Intervals, 100},
		{"no root", []flame.Interval{{ID: "a", ParentID: "x", Start: 5, End: 10}, {ID: "b", ParentID: "x", Start: 2, End: 7}}, 8},
	}
	for _, tt := range tests {
		if got := span(tt.items); got != tt.want {
			t.Errorf("span(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRunnerRunCaches(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	opts := Options{Formats: []string{"svg", "json", "svg"}}

	first, err := r.Run(ctx, sampleDoc(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if first.CacheInfo.LayoutHit || first.CacheInfo.RenderHit {
		t.Errorf("first run CacheInfo = %+v, want no hits", first.CacheInfo)
	}
	if len(first.Artifacts) != 2 {
		t.Errorf("got %d artifacts, want 2 (duplicates dropped)", len(first.Artifacts))
	}
	if !bytes.Contains(first.Artifacts["svg"], []byte("request")) {
		t.Error("svg should carry the document title")
	}

	second, err := r.Run(ctx, sampleDoc(), opts)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if !second.CacheInfo.LayoutHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run CacheInfo = %+v, want layout and render hits", second.CacheInfo)
	}
	if diff := cmp.Diff(first.Artifacts, second.Artifacts); diff != "" {
		t.Errorf("cached artifacts differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Layout, second.Layout); diff != "" {
		t.Errorf("cached layout differs (-first +second):\n%s", diff)
	}
	if first.DocumentHash == "" || first.DocumentHash != second.DocumentHash {
		t.Errorf("DocumentHash = %q then %q, want equal and non-empty", first.DocumentHash, second.DocumentHash)
	}

	opts.Refresh = true
	third, err := r.Run(ctx, sampleDoc(), opts)
	if err != nil {
		t.Fatalf("refresh Run() error = %v", err)
	}
	if third.CacheInfo.LayoutHit || third.CacheInfo.RenderHit {
		t.Errorf("refresh CacheInfo = %+v, want no hits", third.CacheInfo)
	}
}

func TestRunnerLayoutLogsCachedDiagnostics(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	doc := sampleDoc()
	doc.Intervals = append(doc.Intervals, flame.Interval{ID: "lost", ParentID: "gone", Start: 1, End: 2})

	for i, wantHit := range []bool{false, true} {
		var buf bytes.Buffer
		opts := Options{Logger: log.New(&buf)}
		l, hit, err := r.LayoutWithCacheInfo(ctx, doc, opts)
		if err != nil {
			t.Fatalf("LayoutWithCacheInfo() #%d error = %v", i, err)
		}
		if hit != wantHit {
			t.Errorf("LayoutWithCacheInfo() #%d hit = %v, want %v", i, hit, wantHit)
		}
		if got := flame.CountKind(l.Diagnostics, flame.KindOrphan); got != 1 {
			t.Errorf("call #%d orphan diagnostics = %d, want 1", i, got)
		}
		if out := buf.String(); !strings.Contains(out, "missing parent") || !strings.Contains(out, "kind=orphan") {
			t.Errorf("call #%d log = %q, want the orphan warning", i, buf.String())
		}
	}
}

func TestRunnerRunOptionsChangeKey(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	if _, err := r.Run(ctx, sampleDoc(), Options{}); err != nil {
		t.Fatal(err)
	}
	res, err := r.Run(ctx, sampleDoc(), Options{ColorMode: flame.ColorModePeaks})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.LayoutHit {
		t.Error("a different color mode should not reuse the cached layout")
	}
	res, err = r.Run(ctx, sampleDoc(), Options{Width: 600})
	if err != nil {
		t.Fatal(err)
	}
	if !res.CacheInfo.LayoutHit || res.CacheInfo.RenderHit {
		t.Errorf("CacheInfo = %+v, want layout hit and render miss", res.CacheInfo)
	}
}

func TestRunnerRunInvalidHierarchy(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	doc := &fio.Document{Intervals: []flame.Interval{
		{ID: "a", Start: 0, End: 1},
		{ID: "b", Start: 1, End: 2},
	}}
	res, err := r.Run(context.Background(), doc, Options{Formats: []string{"svg", "term"}})
	if err != nil {
		t.Fatalf("Run() error = %v, invalid hierarchies are not errors", err)
	}
	if res.Layout.Valid() {
		t.Fatal("Layout.Valid() = true, want false")
	}
	if !strings.Contains(string(res.Artifacts["svg"]), "found more than 1 root item: a, b") {
		t.Errorf("svg should show the validation message:\n%s", res.Artifacts["svg"])
	}
	if !strings.Contains(string(res.Artifacts["term"]), "invalid hierarchy") {
		t.Errorf("term output = %q, want empty state", res.Artifacts["term"])
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	l := flame.Build(sampleDoc().Intervals)
	_, err := Render(context.Background(), l, Options{Formats: []string{"bmp"}})
	if !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("Render() error = %v, want INVALID_FORMAT", err)
	}
}

func TestRunnerExecuteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.yaml")
	if err := fio.ExportFile(sampleDoc(), path); err != nil {
		t.Fatal(err)
	}
	r := newTestRunner(t)
	res, err := r.Execute(context.Background(), path, Options{Formats: []string{"json"}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Stats.Intervals != 4 || res.Stats.Rects != 4 || res.Stats.Levels != 3 {
		t.Errorf("Stats = %+v, want 4 intervals, 4 rects, 3 levels", res.Stats)
	}
	if res.CacheInfo.SourceHit {
		t.Error("local files are never cached")
	}

	_, err = r.Execute(context.Background(), filepath.Join(t.TempDir(), "missing.json"), Options{})
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("Execute(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestRunnerExecuteRemoteCachesSource(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_ = fio.WriteJSON(sampleDoc(), w)
	}))
	defer srv.Close()

	r := newTestRunner(t)
	ctx := context.Background()
	url := srv.URL + "/trace.json"

	res, err := r.Execute(ctx, url, Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.CacheInfo.SourceHit {
		t.Error("first fetch should miss the cache")
	}
	res, err = r.Execute(ctx, url, Options{})
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if !res.CacheInfo.SourceHit {
		t.Error("second fetch should hit the cache")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
	if res.Document.Title != "request" {
		t.Errorf("Document.Title = %q, want %q", res.Document.Title, "request")
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	layouts []observability.LayoutStats
	renders [][]string
}

func (h *recordingHooks) OnLayoutComplete(_ context.Context, _ string, stats observability.LayoutStats, _ time.Duration) {
	h.layouts = append(h.layouts, stats)
}

func (h *recordingHooks) OnRenderComplete(_ context.Context, formats []string, _ time.Duration, _ error) {
	h.renders = append(h.renders, formats)
}

func TestRunnerEmitsHooks(t *testing.T) {
	defer observability.Reset()
	rec := &recordingHooks{}
	observability.SetPipelineHooks(rec)

	r := NewRunner(nil, nil, nil)
	if _, err := r.Run(context.Background(), sampleDoc(), Options{Formats: []string{"json"}}); err != nil {
		t.Fatal(err)
	}
	want := []observability.LayoutStats{{Valid: true, Rects: 4, Levels: 3}}
	if diff := cmp.Diff(want, rec.layouts); diff != "" {
		t.Errorf("layout events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"json"}}, rec.renders); diff != "" {
		t.Errorf("render events mismatch (-want +got):\n%s", diff)
	}
}
