// Package engine defines the narrow interfaces through which forma drives
// an external procedural rule-execution engine.
//
// The engine itself (rule language, encoder implementations, caching
// internals) is an opaque collaborator. This package only fixes the
// contract the generation orchestration layer depends on: shape builders,
// resolve maps, encoder option validation, the single-shot Generate entry
// point and the callback sink it streams results into. The wasm subpackage
// provides the production adapter; tests use an in-process fake.
package engine

import (
	"context"

	"github.com/forma3d/forma/attrmap"
)

// Shape is an opaque, finalized initial-shape handle produced by a
// ShapeBuilder and consumed by Generate. Callers never inspect it.
type Shape any

// ResolveMap indexes a rule package: it maps logical asset names to
// resolvable URIs. Engine-owned and immutable once created.
type ResolveMap interface {
	// Lookup returns the URI registered for a logical asset name.
	Lookup(name string) (uri string, ok bool)
}

// Cache is an engine-owned memoization object. Reusing one cache across
// repeated Generate calls lets the engine skip re-parsing rule packages
// and assets.
type Cache interface {
	// Flush drops all memoized state.
	Flush()
}

// ShapeBuilder assembles one initial shape: geometry first, then rule
// attributes, then finalization into an immutable Shape handle. Builders
// are reusable; CreateShape snapshots the current state.
type ShapeBuilder interface {
	// SetGeometry installs inline polygon geometry. The engine rejects
	// structurally malformed buffers (index/face-count mismatch).
	SetGeometry(vertices []float64, indices, faceCounts []uint32) error

	// ResolveGeometry loads geometry from an external file URI, consulting
	// the resolve map and cache when present (both may be nil).
	ResolveGeometry(uri string, rm ResolveMap, cache Cache) error

	// SetAttributes attaches the rule invocation parameters and the full
	// converted attribute map plus the resolve map used to locate the
	// rule file.
	SetAttributes(ruleFile, startRule string, seed int64, shapeName string, attrs attrmap.Map, rm ResolveMap)

	// CreateShape finalizes the builder state into an immutable handle.
	CreateShape() (Shape, error)
}

// Callbacks is the sink contract for one Generate invocation. The engine
// may invoke these from its worker goroutines and in any order and
// interleaving across shape indices, but every callback completes before
// Generate returns.
type Callbacks interface {
	// AddGeometry stores or overwrites the geometry for a shape index.
	// faces holds one group of vertex indices per face, in face order.
	AddGeometry(shapeIndex int, vertices []float64, faces [][]uint32)

	// AddReports merges the typed report maps for a shape index. Keys are
	// globally unique across the three maps; later calls overwrite
	// earlier values per key.
	AddReports(shapeIndex int, floats map[string]float64, texts map[string]string, flags map[string]bool)

	// AddIndex marks a shape index as part of the result set even when no
	// geometry or report was produced for it.
	AddIndex(shapeIndex int)
}

// Engine is the generation entry point plus the factory surface for the
// handles a generation run needs. Implementations must be safe for a
// single orchestrator issuing one Generate at a time; concurrent Generate
// calls on one Engine are adapter-defined.
type Engine interface {
	// NewCache creates an engine-owned memoization cache.
	NewCache() Cache

	// NewShapeBuilder creates an empty initial-shape builder.
	NewShapeBuilder() ShapeBuilder

	// CreateResolveMap resolves a rule package URI into a resolve map.
	// Failures are reported as errors; adapters must also map native
	// panics into errors.
	CreateResolveMap(ctx context.Context, uri string) (ResolveMap, error)

	// ValidateEncoderOptions checks and normalizes a proposed option set
	// against the encoder's schema, returning the validated set.
	ValidateEncoderOptions(encoderID string, options attrmap.Map) (attrmap.Map, error)

	// Generate runs the rule engine once over all shapes with the given
	// encoder set, streaming results into cb. It blocks until every
	// callback has fired. Failures carry a *StatusError.
	Generate(ctx context.Context, shapes []Shape, encoderIDs []string, encoderOptions []attrmap.Map, cb Callbacks, cache Cache) error

	// NewFileSink returns a sink that writes encoder output into an
	// existing directory, for file-based encoders.
	NewFileSink(outputDir string) (Callbacks, error)
}
