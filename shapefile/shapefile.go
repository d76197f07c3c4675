// Package shapefile reads the declarative YAML document the CLI feeds
// into a generation run: initial shapes, per-shape attribute sets, the
// rule package and the encoder selection.
//
// Document format:
//
//	rulePackage: rules/extrusion.rpk
//	encoder: com.forma3d.codecs.CallbackEncoder
//	encoderOptions:
//	  outputPath: out
//	shapes:
//	  - vertices: [0,0,0, 0,0,100, 100,0,100, 100,0,0]
//	  - vertices: [...]
//	    indices: [0, 1, 2, 0, 2, 3]
//	    faceCounts: [3, 3]
//	  - file: footprints/candler.obj
//	attributes:
//	  - ruleFile: bin/extrusion.cgb
//	    startRule: Default$Generate
//	    seed: 1234
//	    minHeight: 10.5
package shapefile

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/forma3d/forma/errors"
	"github.com/forma3d/forma/shape"
)

// ShapeEntry is one shape in the document: inline geometry or a file
// reference, never both.
type ShapeEntry struct {
	Vertices   []float64 `yaml:"vertices,omitempty"`
	Indices    []uint32  `yaml:"indices,omitempty"`
	FaceCounts []uint32  `yaml:"faceCounts,omitempty"`
	File       string    `yaml:"file,omitempty"`
}

// Document is a parsed shapes file.
type Document struct {
	RulePackage    string           `yaml:"rulePackage,omitempty"`
	Encoder        string           `yaml:"encoder,omitempty"`
	EncoderOptions map[string]any   `yaml:"encoderOptions,omitempty"`
	Shapes         []ShapeEntry     `yaml:"shapes"`
	Attributes     []map[string]any `yaml:"attributes"`
}

// Load reads and validates a shapes document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read shapes file %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a shapes document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse shapes file")
	}

	if len(doc.Shapes) == 0 {
		return nil, errors.New("shapes file declares no shapes")
	}
	for i, entry := range doc.Shapes {
		inline := len(entry.Vertices) > 0
		if inline == (entry.File != "") {
			return nil, errors.Newf("shape %d must set exactly one of vertices or file", i)
		}
		if !inline && (len(entry.Indices) > 0 || len(entry.FaceCounts) > 0) {
			return nil, errors.Newf("shape %d mixes a file reference with inline topology", i)
		}
		if (len(entry.Indices) > 0) != (len(entry.FaceCounts) > 0) {
			return nil, errors.Newf("shape %d needs both indices and faceCounts or neither", i)
		}
	}

	return &doc, nil
}

// InitialShapes converts the document entries into shape values.
func (d *Document) InitialShapes() []shape.InitialShape {
	shapes := make([]shape.InitialShape, 0, len(d.Shapes))
	for _, entry := range d.Shapes {
		switch {
		case entry.File != "":
			shapes = append(shapes, shape.NewFromFile(entry.File))
		case len(entry.Indices) > 0:
			shapes = append(shapes, shape.NewIndexed(entry.Vertices, entry.Indices, entry.FaceCounts))
		default:
			shapes = append(shapes, shape.New(entry.Vertices))
		}
	}
	return shapes
}

// AttributeSets returns the per-shape attribute sets, defaulting to one
// empty set so single-shape documents can omit the attributes block.
func (d *Document) AttributeSets() []map[string]any {
	if len(d.Attributes) == 0 {
		return []map[string]any{{}}
	}
	return d.Attributes
}
