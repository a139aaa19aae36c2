package metrics

import (
	"testing"
	"time"

	"finboard/internal/cache"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountsConnectorTiers(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.ConnectorResult("dollar", "primary", 10*time.Millisecond)
	r.ConnectorResult("dollar", "fallback", 20*time.Millisecond)
	r.ConnectorResult("dollar", "fallback", 20*time.Millisecond)

	if got := testutil.ToFloat64(r.connectorResults.WithLabelValues("dollar", "fallback")); got != 2 {
		t.Fatalf("expected 2 fallback results, got %v", got)
	}
}

func TestRecorderWatchCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	c := cache.NewTTLCache()
	r.WatchCache("indicators", c)

	c.Set("k", 1, time.Minute)
	c.Get("k")
	c.Get("missing")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				found[mf.GetName()] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				found[mf.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	if found["finboard_cache_hits_total"] != 1 || found["finboard_cache_misses_total"] != 1 {
		t.Fatalf("unexpected cache metrics: %v", found)
	}
	if found["finboard_cache_entries"] != 1 {
		t.Fatalf("expected 1 entry, got %v", found["finboard_cache_entries"])
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ConnectorResult("x", "primary", time.Second)
	r.UpstreamError("x", "y")
	r.PipelineRun("success", time.Second)
	r.Article("accepted")
	r.FeedError("feed")
	r.WatchCache("c", cache.NewTTLCache())
}
