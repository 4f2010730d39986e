package cache

import (
	"github.com/matzehuels/codecity/pkg/city/layout"
)

// Keyer derives cache keys for each pipeline stage.
type Keyer interface {
	AnalysisKey(source string, opts AnalysisKeyOpts) string
	LayoutKey(dataHash string, opts LayoutKeyOpts) string
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// AnalysisKeyOpts are the inputs that change an analysis result.
type AnalysisKeyOpts struct {
	Head   string   `json:"head,omitempty"` // commit hash the analysis ran against
	Tree   string   `json:"tree,omitempty"` // working tree fingerprint, local sources only
	Ignore []string `json:"ignore,omitempty"`
}

// LayoutKeyOpts are the inputs that change a layout.
type LayoutKeyOpts struct {
	View  string             `json:"view"`
	Focus string             `json:"focus,omitempty"`
	Flat  layout.Profile     `json:"flat"`
	Pack  layout.PackOptions `json:"pack"`
}

// ArtifactKeyOpts are the inputs that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format    string  `json:"format"`
	Popups    bool    `json:"popups,omitempty"`
	Highlight string  `json:"highlight,omitempty"`
	Scale     float64 `json:"scale,omitempty"`
	Depth     int     `json:"depth,omitempty"`
}

// DefaultKeyer produces "stage:sha256" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// AnalysisKey keys an analysis by its source (path or owner/repo).
func (DefaultKeyer) AnalysisKey(source string, opts AnalysisKeyOpts) string {
	return hashKey("analysis", source, opts)
}

// LayoutKey keys a layout by the hash of its input repositories.
func (DefaultKeyer) LayoutKey(dataHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", dataHash, opts)
}

// ArtifactKey keys a rendered artifact by the hash of its layout.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
