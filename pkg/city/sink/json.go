package sink

import (
	"encoding/json"

	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/pick"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// JSONOption configures [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	legend []metrics.Language
	camera bool
}

// WithLegend adds the language legend of repos to the output.
func WithLegend(repos []metrics.Repository) JSONOption {
	return func(r *jsonRenderer) { r.legend = metrics.Legend(repos) }
}

// WithCamera adds the fitted camera so clients can reproduce the viewpoint
// used for server-side picking.
func WithCamera() JSONOption { return func(r *jsonRenderer) { r.camera = true } }

type jsonOutput struct {
	layout.Document
	Camera *pick.Camera       `json:"camera,omitempty"`
	Legend []metrics.Language `json:"legend,omitempty"`
}

// RenderJSON exports a layout document as pretty-printed JSON. The output
// is readable with [layout.UnmarshalDocument]; extra fields are ignored.
func RenderJSON(doc layout.Document, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	out := jsonOutput{Document: doc, Legend: r.legend}
	if r.camera {
		cam := pick.Fit(doc.Buildings)
		out.Camera = &cam
	}
	return json.MarshalIndent(out, "", "  ")
}
