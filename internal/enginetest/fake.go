// Package enginetest provides an in-process fake rule engine for tests.
//
// The fake runs an identity rule: every shape's input geometry is echoed
// back through the callback sink, and the rule invocation parameters are
// echoed into the report. Tests can script per-shape behavior or inject
// failures at each engine boundary.
package enginetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/forma3d/forma/attrmap"
	"github.com/forma3d/forma/engine"
	"github.com/forma3d/forma/errors"
)

// Shape is the fake's finalized initial-shape handle. Exported fields let
// tests assert on what the orchestrator attached.
type Shape struct {
	Vertices   []float64
	Indices    []uint32
	FaceCounts []uint32

	RuleFile  string
	StartRule string
	Seed      int64
	ShapeName string
	Attrs     attrmap.Map
	Resolve   engine.ResolveMap
}

// Fake implements engine.Engine entirely in process.
type Fake struct {
	mu sync.Mutex

	// RulePackages maps resolvable rule package URIs to their asset
	// tables. CreateResolveMap fails for any URI not present.
	RulePackages map[string]map[string]string

	// Geometries maps geometry file URIs to precanned flat vertex lists
	// (single convex polygon). ResolveGeometry fails for unknown URIs.
	Geometries map[string][]float64

	// Script, when set, replaces the identity rule for each shape.
	Script func(shapeIndex int, s *Shape, cb engine.Callbacks)

	// GenerateErr forces Generate to fail after no callbacks.
	GenerateErr *engine.StatusError

	// ValidateErr forces ValidateEncoderOptions to fail for the given
	// encoder id.
	ValidateErr map[string]error

	// PanicOnGenerate makes Generate panic, for exercising the
	// orchestrator's recovery path.
	PanicOnGenerate bool

	// Recorded state from the last Generate call.
	LastEncoderIDs  []string
	LastEncoderOpts []attrmap.Map
	LastShapes      []*Shape
	GenerateCalls   int
	ValidatedIDs    []string
}

var _ engine.Engine = (*Fake)(nil)

// NewFake returns an empty fake engine.
func NewFake() *Fake {
	return &Fake{
		RulePackages: make(map[string]map[string]string),
		Geometries:   make(map[string][]float64),
		ValidateErr:  make(map[string]error),
	}
}

type cache struct {
	mu      sync.Mutex
	flushes int
}

func (c *cache) Flush() {
	c.mu.Lock()
	c.flushes++
	c.mu.Unlock()
}

// NewCache implements engine.Engine.
func (f *Fake) NewCache() engine.Cache { return &cache{} }

type resolveMap struct {
	assets map[string]string
}

func (r *resolveMap) Lookup(name string) (string, bool) {
	uri, ok := r.assets[name]
	return uri, ok
}

// CreateResolveMap implements engine.Engine.
func (f *Fake) CreateResolveMap(_ context.Context, uri string) (engine.ResolveMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	assets, ok := f.RulePackages[uri]
	if !ok {
		return nil, engine.NewStatusError(engine.StatusResolveFailed,
			fmt.Sprintf("no rule package at %s", uri))
	}
	return &resolveMap{assets: assets}, nil
}

type shapeBuilder struct {
	f *Fake
	s Shape
}

// NewShapeBuilder implements engine.Engine.
func (f *Fake) NewShapeBuilder() engine.ShapeBuilder {
	return &shapeBuilder{f: f}
}

func (b *shapeBuilder) SetGeometry(vertices []float64, indices, faceCounts []uint32) error {
	if len(vertices)%3 != 0 {
		return engine.NewStatusError(engine.StatusInvalidGeometry, "vertex count not a multiple of 3")
	}
	var total uint32
	for _, n := range faceCounts {
		total += n
	}
	if int(total) != len(indices) {
		return engine.NewStatusError(engine.StatusInvalidGeometry,
			fmt.Sprintf("face counts sum to %d but %d indices given", total, len(indices)))
	}
	vertexCount := uint32(len(vertices) / 3)
	for _, idx := range indices {
		if idx >= vertexCount {
			return engine.NewStatusError(engine.StatusInvalidGeometry,
				fmt.Sprintf("index %d out of range for %d vertices", idx, vertexCount))
		}
	}

	b.s.Vertices = append([]float64(nil), vertices...)
	b.s.Indices = append([]uint32(nil), indices...)
	b.s.FaceCounts = append([]uint32(nil), faceCounts...)
	return nil
}

func (b *shapeBuilder) ResolveGeometry(uri string, _ engine.ResolveMap, _ engine.Cache) error {
	b.f.mu.Lock()
	vertices, ok := b.f.Geometries[uri]
	b.f.mu.Unlock()

	if !ok {
		return engine.NewStatusError(engine.StatusResolveFailed,
			fmt.Sprintf("no geometry at %s", uri))
	}

	n := len(vertices) / 3
	indices := make([]uint32, n)
	for i := range indices {
		indices[i] = uint32(i)
	}
	b.s.Vertices = append([]float64(nil), vertices...)
	b.s.Indices = indices
	b.s.FaceCounts = []uint32{uint32(n)}
	return nil
}

func (b *shapeBuilder) SetAttributes(ruleFile, startRule string, seed int64, shapeName string, attrs attrmap.Map, rm engine.ResolveMap) {
	b.s.RuleFile = ruleFile
	b.s.StartRule = startRule
	b.s.Seed = seed
	b.s.ShapeName = shapeName
	b.s.Attrs = attrs.Clone()
	b.s.Resolve = rm
}

func (b *shapeBuilder) CreateShape() (engine.Shape, error) {
	snapshot := b.s
	snapshot.Vertices = append([]float64(nil), b.s.Vertices...)
	snapshot.Indices = append([]uint32(nil), b.s.Indices...)
	snapshot.FaceCounts = append([]uint32(nil), b.s.FaceCounts...)
	return &snapshot, nil
}

// ValidateEncoderOptions implements engine.Engine. The fake's schema check
// only records the call and clones the options.
func (f *Fake) ValidateEncoderOptions(encoderID string, options attrmap.Map) (attrmap.Map, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ValidatedIDs = append(f.ValidatedIDs, encoderID)
	if err, ok := f.ValidateErr[encoderID]; ok {
		return nil, err
	}
	return options.Clone(), nil
}

// Generate implements engine.Engine. Without a Script it runs the
// identity rule: AddIndex, geometry echo and a report echoing the rule
// invocation parameters, for every shape in order.
func (f *Fake) Generate(_ context.Context, shapes []engine.Shape, encoderIDs []string, encoderOptions []attrmap.Map, cb engine.Callbacks, _ engine.Cache) error {
	if f.PanicOnGenerate {
		panic("engine fault")
	}

	f.mu.Lock()
	f.GenerateCalls++
	f.LastEncoderIDs = append([]string(nil), encoderIDs...)
	f.LastEncoderOpts = append([]attrmap.Map(nil), encoderOptions...)
	f.LastShapes = f.LastShapes[:0]
	script := f.Script
	genErr := f.GenerateErr
	f.mu.Unlock()

	if genErr != nil {
		return genErr
	}

	for i, sh := range shapes {
		s, ok := sh.(*Shape)
		if !ok {
			return errors.Newf("foreign shape handle %T", sh)
		}
		f.mu.Lock()
		f.LastShapes = append(f.LastShapes, s)
		f.mu.Unlock()

		if script != nil {
			script(i, s, cb)
			continue
		}

		cb.AddIndex(i)
		cb.AddGeometry(i, s.Vertices, regroupFaces(s.Indices, s.FaceCounts))
		cb.AddReports(i,
			map[string]float64{"seed": float64(s.Seed)},
			map[string]string{"ruleFile": s.RuleFile, "startRule": s.StartRule},
			nil)
	}
	return nil
}

// regroupFaces splits a flat index list back into per-face groups.
func regroupFaces(indices, faceCounts []uint32) [][]uint32 {
	faces := make([][]uint32, 0, len(faceCounts))
	offset := 0
	for _, n := range faceCounts {
		end := offset + int(n)
		if end > len(indices) {
			end = len(indices)
		}
		faces = append(faces, append([]uint32(nil), indices[offset:end]...))
		offset = end
	}
	return faces
}

type fileSink struct {
	dir string
}

// NewFileSink implements engine.Engine. The fake's file encoder writes one
// Wavefront-style file per shape that received geometry.
func (f *Fake) NewFileSink(outputDir string) (engine.Callbacks, error) {
	info, err := os.Stat(outputDir)
	if err != nil || !info.IsDir() {
		return nil, engine.NewStatusError(engine.StatusEncoderFailed,
			fmt.Sprintf("not a directory: %s", outputDir))
	}
	return &fileSink{dir: outputDir}, nil
}

func (s *fileSink) AddGeometry(shapeIndex int, vertices []float64, faces [][]uint32) {
	path := filepath.Join(s.dir, fmt.Sprintf("shape_%d.obj", shapeIndex))
	var buf []byte
	for i := 0; i+2 < len(vertices); i += 3 {
		buf = append(buf, fmt.Sprintf("v %g %g %g\n", vertices[i], vertices[i+1], vertices[i+2])...)
	}
	for _, face := range faces {
		buf = append(buf, 'f')
		for _, idx := range face {
			buf = append(buf, fmt.Sprintf(" %d", idx+1)...)
		}
		buf = append(buf, '\n')
	}
	_ = os.WriteFile(path, buf, 0o644)
}

func (s *fileSink) AddReports(int, map[string]float64, map[string]string, map[string]bool) {}

func (s *fileSink) AddIndex(int) {}
