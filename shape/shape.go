// Package shape defines the initial shapes fed into a generation run.
//
// An InitialShape carries either inline polygon geometry or a path to an
// external geometry file, never both. Shapes are immutable after
// construction; no geometric validation happens here. Malformed geometry
// surfaces later as an engine-reported failure when the generator is built.
package shape

// InitialShape is one input shape for the rule engine.
//
// Vertices are a flat sequence of coordinate triples. Indices reference
// vertices per face, and FaceCounts gives the number of vertices in each
// face, in face order.
type InitialShape struct {
	vertices   []float64
	indices    []uint32
	faceCounts []uint32
	path       string
	fromPath   bool
}

// New creates a shape from a flat vertex coordinate list describing a
// single convex polygon: the face uses all vertices in order.
func New(vertices []float64) InitialShape {
	n := len(vertices) / 3
	indices := make([]uint32, n)
	for i := range indices {
		indices[i] = uint32(i)
	}
	return InitialShape{
		vertices:   append([]float64(nil), vertices...),
		indices:    indices,
		faceCounts: []uint32{uint32(n)},
	}
}

// NewIndexed creates a shape from explicit vertex, index and per-face
// vertex-count lists.
func NewIndexed(vertices []float64, indices, faceCounts []uint32) InitialShape {
	return InitialShape{
		vertices:   append([]float64(nil), vertices...),
		indices:    append([]uint32(nil), indices...),
		faceCounts: append([]uint32(nil), faceCounts...),
	}
}

// NewFromFile creates a shape whose geometry is resolved from an external
// geometry file at generator construction time.
func NewFromFile(path string) InitialShape {
	return InitialShape{path: path, fromPath: true}
}

// Vertices returns the flat vertex coordinate sequence.
func (s InitialShape) Vertices() []float64 { return s.vertices }

// Indices returns the face-vertex index sequence.
func (s InitialShape) Indices() []uint32 { return s.indices }

// FaceCounts returns the per-face vertex-count sequence.
func (s InitialShape) FaceCounts() []uint32 { return s.faceCounts }

// VertexCount returns the number of coordinate components (3 per vertex).
func (s InitialShape) VertexCount() int { return len(s.vertices) }

// IndexCount returns the number of face-vertex indices.
func (s InitialShape) IndexCount() int { return len(s.indices) }

// FaceCount returns the number of faces.
func (s InitialShape) FaceCount() int { return len(s.faceCounts) }

// Path returns the geometry file path for file-based shapes.
func (s InitialShape) Path() string { return s.path }

// FromFile reports whether the shape references an external geometry file.
func (s InitialShape) FromFile() bool { return s.fromPath }
