package prom

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/codecity/pkg/observability"
)

func TestMetricsRecordEvents(t *testing.T) {
	ctx := context.Background()
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}

	m.OnCacheHit(ctx, "layout")
	m.OnCacheHit(ctx, "layout")
	m.OnCacheMiss(ctx, "analysis")
	m.OnCacheSet(ctx, "artifact", 512)
	m.OnHover(ctx, "city", "r1")
	m.OnHover(ctx, "city", "")
	m.OnSelect(ctx, "repos", "r1")
	m.OnEmptyView(ctx, "dirs")
	m.OnLayoutComplete(ctx, "city", 42, time.Millisecond, nil)
	m.OnAnalyzeComplete(ctx, "/src", 0, time.Millisecond, errors.New("boom"))

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"cache hits", testutil.ToFloat64(m.cacheHits.WithLabelValues("layout")), 2},
		{"cache misses", testutil.ToFloat64(m.cacheMisses.WithLabelValues("analysis")), 1},
		{"cache bytes", testutil.ToFloat64(m.cacheBytes.WithLabelValues("artifact")), 512},
		{"hover", testutil.ToFloat64(m.hovers.WithLabelValues("city", "false")), 1},
		{"hover cleared", testutil.ToFloat64(m.hovers.WithLabelValues("city", "true")), 1},
		{"select", testutil.ToFloat64(m.selects.WithLabelValues("repos")), 1},
		{"empty view", testutil.ToFloat64(m.emptyViews.WithLabelValues("dirs")), 1},
		{"buildings", testutil.ToFloat64(m.buildings.WithLabelValues("city")), 42},
		{"analyze errors", testutil.ToFloat64(m.stageErrors.WithLabelValues("analyze")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestNewDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatal(err)
	}
	if _, err := New(reg); err == nil {
		t.Error("second registration on the same registry should fail")
	}
}

func TestInstallAndHandler(t *testing.T) {
	defer observability.Reset()

	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatal(err)
	}
	m.Install()
	if observability.Cache() != m {
		t.Fatal("Install did not register cache hooks")
	}

	observability.HTTP().OnResponse(context.Background(), "GET", "/api/city", http.StatusOK, time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `codecity_http_requests_total{method="GET",route="/api/city",status="200"} 1`) {
		t.Errorf("scrape output missing request counter:\n%s", body)
	}
}
