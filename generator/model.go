package generator

import "github.com/forma3d/forma/attrmap"

// Report is the per-shape mapping of rule-computed metrics. Values are
// tagged variants (text, float or flag) keyed by report name.
type Report map[string]attrmap.Value

// GeneratedModel is the immutable result for one initial shape: its
// 0-based originating index, the generated geometry and the accumulated
// report. Ownership transfers to the caller; the generator keeps no
// reference after Generate returns.
type GeneratedModel struct {
	index      int
	vertices   []float64
	indices    []uint32
	faceCounts []uint32
	report     Report
}

// InitialShapeIndex returns the 0-based index of the originating shape.
func (m GeneratedModel) InitialShapeIndex() int { return m.index }

// Vertices returns the flat vertex coordinate sequence.
func (m GeneratedModel) Vertices() []float64 { return m.vertices }

// Indices returns the face-vertex index sequence.
func (m GeneratedModel) Indices() []uint32 { return m.indices }

// FaceCounts returns the per-face vertex-count sequence.
func (m GeneratedModel) FaceCounts() []uint32 { return m.faceCounts }

// Report returns the accumulated rule report for the shape.
func (m GeneratedModel) Report() Report { return m.report }
