package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
	"github.com/matzehuels/codecity/pkg/observability"
	"github.com/matzehuels/codecity/pkg/observability/prom"
	"github.com/matzehuels/codecity/pkg/pipeline"
	"github.com/matzehuels/codecity/pkg/store"
)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, store.Store) {
	t.Helper()
	st := store.NewMemory()
	runner := pipeline.NewRunner(nil, nil, nil)
	ts := httptest.NewServer(New(runner, st, opts...).Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, buf.Bytes()
}

func errorCode(t *testing.T, body []byte) errors.Code {
	t.Helper()
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return e.Code
}

func gitRepo(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "demo")
	g, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"main.go":        "package main\n\nfunc main() {}\n",
		"pkg/util/u.go":  "package util\n",
		"app/run.py":     "print('hi')\nprint('there')\n",
	}
	w, err := g.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	for name, body := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Add(name); err != nil {
			t.Fatal(err)
		}
	}
	_, err = w.Commit("init", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: time.Now().Add(-72 * time.Hour)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := do(t, ts, http.MethodGet, "/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got map[string]string
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got["status"] != "ok" || got["version"] == "" {
		t.Errorf("health = %v", got)
	}
}

func TestAnalyzeLocalAndBrowse(t *testing.T) {
	ts, _ := newTestServer(t)
	dir := gitRepo(t)

	resp, body := do(t, ts, http.MethodPost, "/api/analyze/local", analyzeLocalRequest{Path: dir})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analyze status = %d: %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get(CacheHeader); got != "miss" {
		t.Errorf("%s = %q, want miss", CacheHeader, got)
	}
	var analyzed metrics.Repository
	if err := json.Unmarshal(body, &analyzed); err != nil {
		t.Fatal(err)
	}
	if analyzed.TotalLines != 6 || len(analyzed.Directories) == 0 {
		t.Fatalf("analyzed = %+v", analyzed)
	}
	id := analyzed.ID

	_, body = do(t, ts, http.MethodGet, "/api/repos", nil)
	var list []metrics.Repository
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != id || list[0].Name != "demo" {
		t.Fatalf("repos = %+v", list)
	}
	if len(list[0].Directories) != len(analyzed.Directories) {
		t.Errorf("listed %d directories, analyzed %d", len(list[0].Directories), len(analyzed.Directories))
	}

	_, body = do(t, ts, http.MethodGet, "/api/repos?summary=true", nil)
	if strings.Contains(string(body), `"directories"`) {
		t.Errorf("summary still carries directories: %s", body)
	}

	resp, body = do(t, ts, http.MethodGet, "/api/repo/"+id, nil)
	var one metrics.Repository
	if err := json.Unmarshal(body, &one); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || one.Name != "demo" || len(one.Directories) == 0 {
		t.Errorf("repo = %d %s", resp.StatusCode, body)
	}

	_, body = do(t, ts, http.MethodGet, "/api/repo/"+id+"/tree", nil)
	var tree []metrics.Directory
	if err := json.Unmarshal(body, &tree); err != nil {
		t.Fatal(err)
	}
	if len(tree) != 3 {
		t.Errorf("tree = %+v", tree)
	}
}

func TestRepoJSONShape(t *testing.T) {
	ts, st := newTestServer(t)
	repo := metrics.Repository{
		ID: "r1", Name: "alpha", Path: "/src/alpha", TotalLines: 10, AgeDays: 3,
		Directories: []metrics.Directory{{Name: "cmd", Path: "cmd", Lines: 10, AgeDays: 3}},
	}
	bare := metrics.Repository{ID: "r2", Name: "beta", Path: "/src/beta"}
	if err := store.PutAll(context.Background(), st, []metrics.Repository{repo, bare}); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/api/repos", "/api/repo/r1"} {
		_, body := do(t, ts, http.MethodGet, path, nil)
		if !strings.Contains(string(body), `"directories":[{"name":"cmd"`) {
			t.Errorf("%s lacks the directory tree: %s", path, body)
		}
	}

	_, body := do(t, ts, http.MethodGet, "/api/repo/r2", nil)
	for _, want := range []string{`"directories":[]`, `"languages":[]`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("/api/repo/r2 = %s, want %s", body, want)
		}
	}
}

func TestErrors(t *testing.T) {
	ts, _ := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   errors.Code
	}{
		{"missing path", http.MethodPost, "/api/analyze/local", analyzeLocalRequest{}, 400, errors.ErrCodeInvalidInput},
		{"unknown field", http.MethodPost, "/api/analyze/local", `{"dir":"x"}`, 400, errors.ErrCodeInvalidInput},
		{"malformed body", http.MethodPost, "/api/scan", `{`, 400, errors.ErrCodeInvalidInput},
		{"not a repo", http.MethodPost, "/api/analyze/local", analyzeLocalRequest{Path: t.TempDir()}, 400, errors.ErrCodeNotGitRepo},
		{"bad repo ref", http.MethodPost, "/api/analyze/github", analyzeGitHubRequest{Owner: "a/b", Repo: "c"}, 400, errors.ErrCodeInvalidRepoRef},
		{"empty scan", http.MethodPost, "/api/scan", scanRequest{Dir: t.TempDir()}, 422, errors.ErrCodeNoData},
		{"unknown repo", http.MethodGet, "/api/repo/nope", nil, 404, errors.ErrCodeRepoNotFound},
		{"unknown tree", http.MethodGet, "/api/repo/nope/tree", nil, 404, errors.ErrCodeRepoNotFound},
		{"empty city", http.MethodGet, "/api/city", nil, 422, errors.ErrCodeNoData},
		{"unknown route", http.MethodGet, "/api/nothing", nil, 404, errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, ts, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			if got := errorCode(t, body); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func seed(t *testing.T, st store.Store, repos ...metrics.Repository) {
	t.Helper()
	if err := store.PutAll(context.Background(), st, repos); err != nil {
		t.Fatal(err)
	}
}

func sampleRepo() metrics.Repository {
	return metrics.Repository{
		ID: "r1", Name: "alpha", TotalLines: 900, AgeDays: 120,
		Languages: []metrics.Language{{Name: "Go", Lines: 900, Percentage: 100, Color: "#00ADD8"}},
		Directories: []metrics.Directory{
			{Name: "cmd", Path: "cmd", Lines: 100, AgeDays: 30},
			{Name: "pkg", Path: "pkg", Lines: 800, AgeDays: 120},
		},
	}
}

func TestCity(t *testing.T) {
	ts, st := newTestServer(t)
	seed(t, st, sampleRepo(), metrics.Repository{ID: "r2", Name: "beta", TotalLines: 40})

	resp, body := do(t, ts, http.MethodGet, "/api/city?view=city", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("city status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(string(body), `"blocks"`) {
		t.Errorf("city json lacks blocks: %.200s", body)
	}

	resp, body = do(t, ts, http.MethodGet, "/api/city.svg?view=dirs&focus=r1&highlight=r1:cmd&popups=true", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("svg = %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.Contains(body, []byte("<svg")) {
		t.Errorf("svg body = %.80s", body)
	}

	resp, body = do(t, ts, http.MethodGet, "/api/city?view=skyline", nil)
	if resp.StatusCode != http.StatusBadRequest || errorCode(t, body) != errors.ErrCodeInvalidView {
		t.Errorf("bad view = %d %s", resp.StatusCode, body)
	}
	resp, _ = do(t, ts, http.MethodGet, "/api/city.svg?popups=maybe", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad popups status = %d", resp.StatusCode)
	}
}

func TestPick(t *testing.T) {
	ts, st := newTestServer(t)
	seed(t, st, sampleRepo())

	resp, body := do(t, ts, http.MethodPost, "/api/pick", pickRequest{X: 400, Y: 300, Width: 800, Height: 600})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pick status = %d: %s", resp.StatusCode, body)
	}
	var got pickResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Hit || got.Record == nil || got.Record.ID != "r1" {
		t.Fatalf("pick = %+v", got)
	}
	if got.Tooltip == nil || got.Tooltip.X != 415 || got.Tooltip.Y != 315 {
		t.Errorf("tooltip = %+v", got.Tooltip)
	}

	// Near the bottom-right corner the tooltip flips on both axes.
	resp, body = do(t, ts, http.MethodPost, "/api/pick", pickRequest{X: 400, Y: 300, Width: 500, Height: 380, TipWidth: 200, TipHeight: 100})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pick status = %d: %s", resp.StatusCode, body)
	}
	got = pickResponse{}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Hit && (got.Tooltip.X != 185 || got.Tooltip.Y != 185) {
		t.Errorf("flipped tooltip = %+v", got.Tooltip)
	}

	resp, _ = do(t, ts, http.MethodPost, "/api/pick", pickRequest{X: 1, Y: 1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("zero viewport status = %d", resp.StatusCode)
	}
}

type routeHooks struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
}

func (h *routeHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, method+" "+route)
}

func TestMetricsAndRouteHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := prom.New(reg)
	if err != nil {
		t.Fatal(err)
	}
	hooks := &routeHooks{}
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	ts, st := newTestServer(t, WithMetrics(prom.Handler(reg)))
	seed(t, st, sampleRepo())
	do(t, ts, http.MethodGet, "/api/repo/r1", nil)

	m.OnCacheHit(context.Background(), "layout")
	resp, body := do(t, ts, http.MethodGet, "/metrics", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "codecity_cache_hits_total") {
		t.Errorf("metrics = %d %.200s", resp.StatusCode, body)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.routes) == 0 || hooks.routes[0] != "GET /api/repo/{id}" {
		t.Errorf("routes = %v", hooks.routes)
	}
}
