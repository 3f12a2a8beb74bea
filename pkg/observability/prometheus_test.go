package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterSum gathers reg and sums every sample of the named counter whose
// labels include want.
func counterSum(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			match := true
			for k, v := range want {
				if labels[k] != v {
					match = false
				}
			}
			if match {
				sum += m.GetCounter().GetValue()
			}
		}
	}
	return sum
}

func TestPrometheusHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := NewPrometheusHooks(reg)
	if err != nil {
		t.Fatalf("NewPrometheusHooks() error = %v", err)
	}
	ctx := context.Background()

	h.OnLoadComplete(ctx, "remote", 4, time.Millisecond, nil)
	h.OnLoadComplete(ctx, "remote", 0, time.Millisecond, errors.New("boom"))
	h.OnLayoutComplete(ctx, "peaks", LayoutStats{Valid: true, Rects: 4, Diagnostics: 2}, time.Millisecond)
	h.OnLayoutComplete(ctx, "peaks", LayoutStats{Valid: false}, time.Millisecond)
	h.OnRenderComplete(ctx, []string{"svg", "json"}, time.Millisecond, nil)
	h.OnCacheHit(ctx, "layout")
	h.OnCacheMiss(ctx, "layout")
	h.OnCacheSet(ctx, "layout", 512)
	h.OnRequest(ctx, "GET", "", "/v1/layout")
	h.OnResponse(ctx, "GET", "", "/v1/layout", 200, time.Millisecond)

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"flametower_loads_total", map[string]string{"result": "ok"}, 1},
		{"flametower_loads_total", map[string]string{"result": "error"}, 1},
		{"flametower_layouts_total", map[string]string{"valid": "true"}, 1},
		{"flametower_layouts_total", map[string]string{"valid": "false"}, 1},
		{"flametower_layout_diagnostics_total", nil, 2},
		{"flametower_renders_total", map[string]string{"format": "svg"}, 1},
		{"flametower_renders_total", nil, 2},
		{"flametower_cache_events_total", map[string]string{"event": "hit"}, 1},
		{"flametower_cache_events_total", map[string]string{"event": "miss"}, 1},
		{"flametower_cache_written_bytes_total", nil, 512},
		{"flametower_http_requests_total", map[string]string{"code": "200"}, 1},
	}
	for _, tt := range tests {
		if got := counterSum(t, reg, tt.name, tt.labels); got != tt.want {
			t.Errorf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
		}
	}
}

func TestPrometheusHooksDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusHooks(reg); err != nil {
		t.Fatalf("NewPrometheusHooks() error = %v", err)
	}
	if _, err := NewPrometheusHooks(reg); err == nil {
		t.Error("second NewPrometheusHooks() on the same registry should fail")
	}
}

func TestPrometheusHooksInstall(t *testing.T) {
	defer Reset()
	h, err := NewPrometheusHooks(nil)
	if err != nil {
		t.Fatalf("NewPrometheusHooks(nil) error = %v", err)
	}
	h.Install()
	if Pipeline() != PipelineHooks(h) {
		t.Error("Install() should set pipeline hooks")
	}
	if Cache() != CacheHooks(h) {
		t.Error("Install() should set cache hooks")
	}
	if HTTP() != HTTPHooks(h) {
		t.Error("Install() should set HTTP hooks")
	}
}
