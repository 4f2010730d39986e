package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/codecity/pkg/buildinfo"
	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/pick"
	"github.com/matzehuels/codecity/pkg/city/sink"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
	"github.com/matzehuels/codecity/pkg/pipeline"
	"github.com/matzehuels/codecity/pkg/store"
)

// =============================================================================
// Request and response bodies
// =============================================================================

type analyzeLocalRequest struct {
	Path    string `json:"path"`
	Refresh bool   `json:"refresh,omitempty"`
}

type analyzeGitHubRequest struct {
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	Refresh bool   `json:"refresh,omitempty"`
}

type scanRequest struct {
	Dir     string `json:"dir"`
	Refresh bool   `json:"refresh,omitempty"`
}

// CacheHeader tells analyze clients whether the result came from the cache.
const CacheHeader = "X-Codecity-Cache"

type pickRequest struct {
	View   string  `json:"view,omitempty"`
	Focus  string  `json:"focus,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// Tooltip size in pixels; defaults to DefaultTooltip.
	TipWidth  float64 `json:"tip_width,omitempty"`
	TipHeight float64 `json:"tip_height,omitempty"`
}

// DefaultTooltip is the tooltip size assumed by /api/pick.
var DefaultTooltip = pick.Size{W: 240, H: 96}

type pickResponse struct {
	Hit      bool            `json:"hit"`
	Record   *metrics.Record `json:"record,omitempty"`
	Distance float64         `json:"distance,omitempty"`
	Tooltip  *pick.Point     `json:"tooltip,omitempty"`
	Camera   pick.Camera     `json:"camera"`
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Get()})
}

func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	// ?summary=true drops the directory trees.
	if summary, _ := strconv.ParseBool(r.URL.Query().Get("summary")); summary {
		writeJSON(w, http.StatusOK, records(repos))
		return
	}
	writeJSON(w, http.StatusOK, wireRepos(repos))
}

func (s *Server) handleRepo(w http.ResponseWriter, r *http.Request) {
	repo, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wireRepo(repo))
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	dirs, err := store.Tree(r.Context(), s.store, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if dirs == nil {
		dirs = []metrics.Directory{}
	}
	writeJSON(w, http.StatusOK, dirs)
}

func (s *Server) handleAnalyzeLocal(w http.ResponseWriter, r *http.Request) {
	var req analyzeLocalRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Path == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "path is required"))
		return
	}
	s.analyze(w, r, pipeline.Options{Path: req.Path, Refresh: req.Refresh})
}

func (s *Server) handleAnalyzeGitHub(w http.ResponseWriter, r *http.Request) {
	var req analyzeGitHubRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := errors.ValidateRepoRef(req.Owner, req.Repo); err != nil {
		writeError(w, err)
		return
	}
	s.analyze(w, r, pipeline.Options{Owner: req.Owner, Repo: req.Repo, Refresh: req.Refresh})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Dir == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "dir is required"))
		return
	}
	s.analyze(w, r, pipeline.Options{ScanDir: req.Dir, Refresh: req.Refresh})
}

// analyze runs the analysis stage and stores every result. Local and GitHub
// sources answer with the repository itself, scans with the list.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request, opts pipeline.Options) {
	opts.Logger = s.logger
	repos, cached, err := s.runner.AnalyzeWithCacheInfo(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := store.PutAll(r.Context(), s.store, repos); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set(CacheHeader, cacheState(cached))
	if opts.Source() == pipeline.SourceScan {
		writeJSON(w, http.StatusOK, wireRepos(repos))
		return
	}
	writeJSON(w, http.StatusOK, wireRepo(repos[0]))
}

func (s *Server) handleCity(w http.ResponseWriter, r *http.Request) {
	s.city(w, r, sink.FormatJSON)
}

func (s *Server) handleCitySVG(w http.ResponseWriter, r *http.Request) {
	s.city(w, r, sink.FormatSVG)
}

// city lays out the stored repositories for ?view=&focus= and renders
// format. ?highlight= and ?popups= apply to SVG.
func (s *Server) city(w http.ResponseWriter, r *http.Request, format sink.Format) {
	q := r.URL.Query()
	opts := s.options(q.Get("view"), q.Get("focus"))
	opts.Formats = []string{string(format)}
	opts.Highlight = q.Get("highlight")
	if v := q.Get("popups"); v != "" {
		popups, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "popups must be a boolean"))
			return
		}
		opts.Popups = popups
	}

	repos, doc, err := s.layout(r, &opts)
	if err != nil {
		writeError(w, err)
		return
	}
	artifacts, err := s.runner.Render(r.Context(), doc, repos, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[string(format)])
}

func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	var req pickRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "width and height must be positive"))
		return
	}

	opts := s.options(req.View, req.Focus)
	_, doc, err := s.layout(r, &opts)
	if err != nil {
		writeError(w, err)
		return
	}

	snap := pick.NewSnapshot(doc.Result())
	resp := pickResponse{Camera: snap.Camera()}
	ray := snap.Camera().Ray(req.X, req.Y, req.Width, req.Height)
	if b, dist, ok := snap.Nearest(ray); ok {
		tip := DefaultTooltip
		if req.TipWidth > 0 && req.TipHeight > 0 {
			tip = pick.Size{W: req.TipWidth, H: req.TipHeight}
		}
		pos := pick.PlaceTooltip(pick.Point{X: req.X, Y: req.Y}, tip, pick.Size{W: req.Width, H: req.Height})
		rec := b.Record
		resp.Hit = true
		resp.Record = &rec
		resp.Distance = dist
		resp.Tooltip = &pos
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) options(view, focus string) pipeline.Options {
	return pipeline.Options{View: view, Focus: focus, Layout: s.viewCfg, Logger: s.logger}
}

// layout computes opts' view over every stored repository.
func (s *Server) layout(r *http.Request, opts *pipeline.Options) ([]metrics.Repository, layout.Document, error) {
	repos, err := s.store.List(r.Context())
	if err != nil {
		return nil, layout.Document{}, err
	}
	if len(repos) == 0 {
		return nil, layout.Document{}, errors.New(errors.ErrCodeNoData, "no repositories have been analyzed")
	}
	doc, err := s.runner.Layout(r.Context(), repos, *opts)
	return repos, doc, err
}

func cacheState(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// wireRepo encodes empty language and directory lists as [] rather than null.
func wireRepo(repo metrics.Repository) metrics.Repository {
	if repo.Languages == nil {
		repo.Languages = []metrics.Language{}
	}
	if repo.Directories == nil {
		repo.Directories = []metrics.Directory{}
	}
	return repo
}

func wireRepos(repos []metrics.Repository) []metrics.Repository {
	out := make([]metrics.Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, wireRepo(r))
	}
	return out
}

func records(repos []metrics.Repository) []metrics.Record {
	out := make([]metrics.Record, 0, len(repos))
	for _, r := range repos {
		out = append(out, r.Record())
	}
	return out
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func notFound(path string) error {
	return errors.New(errors.ErrCodeNotFound, "no route for %s", path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.HTTPStatus(err), errorResponse{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}
