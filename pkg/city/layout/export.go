package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// Document is the serialized form of a layout pass, shared by the CLI,
// the HTTP API and the cache.
type Document struct {
	View      string     `json:"view" bson:"view"`
	Focus     string     `json:"focus,omitempty" bson:"focus,omitempty"`
	Width     float64    `json:"width" bson:"width"`
	Depth     float64    `json:"depth" bson:"depth"`
	Height    float64    `json:"height" bson:"height"`
	Buildings []Building `json:"buildings" bson:"buildings"`
	Blocks    []Block    `json:"blocks,omitempty" bson:"blocks,omitempty"`
}

// Export wraps a result into a document for the named view.
func (r Result) Export(view, focus string) Document {
	b := r.Bounds()
	return Document{
		View:      view,
		Focus:     focus,
		Width:     b.Width(),
		Depth:     b.Depth(),
		Height:    r.MaxHeight(),
		Buildings: r.Buildings,
		Blocks:    r.Blocks,
	}
}

// Result returns the layout carried by the document.
func (d Document) Result() Result {
	return Result{Buildings: d.Buildings, Blocks: d.Blocks}
}

// MarshalDocument serializes a document to indented JSON.
func MarshalDocument(d Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// UnmarshalDocument parses a document and checks its buildings.
func UnmarshalDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if d.View == "" {
		return Document{}, fmt.Errorf("layout has no view")
	}
	for i, b := range d.Buildings {
		if b.Record.ID == "" {
			return Document{}, fmt.Errorf("building %d has no id", i)
		}
		if b.Dimensions.Width <= 0 || b.Dimensions.Height <= 0 {
			return Document{}, fmt.Errorf("building %q has invalid dimensions", b.Record.ID)
		}
	}
	return d, nil
}

// WriteDocumentFile writes a document as JSON.
func WriteDocumentFile(d Document, path string) error {
	data, err := MarshalDocument(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadDocumentFile reads a document written by [WriteDocumentFile].
func ReadDocumentFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return UnmarshalDocument(data)
}
