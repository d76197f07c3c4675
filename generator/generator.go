// Package generator drives one generation request against a rule engine:
// it builds initial-shape handles, resolves rule packages, configures
// encoders and converts the engine's callback stream into GeneratedModel
// values in input order.
package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forma3d/forma/attrmap"
	"github.com/forma3d/forma/engine"
	"github.com/forma3d/forma/errors"
	"github.com/forma3d/forma/shape"
)

// Recognized shape attribute keys. Anything else in an attribute set is
// passed through to the engine unchanged and becomes a rule attribute.
const (
	AttrRuleFile  = "ruleFile"
	AttrStartRule = "startRule"
	AttrSeed      = "seed"
	AttrShapeName = "shapeName"
)

// ShapeDefaults holds the fallback rule-invocation parameters applied to
// every shape slot whose attribute set omits the corresponding key. It is
// an explicit configuration object: Generate reads it but never mutates
// it, so successive calls are isolated unless the caller changes it.
type ShapeDefaults struct {
	RuleFile  string
	StartRule string
	Seed      int64
	ShapeName string
}

// DefaultShapeDefaults returns the stock defaults.
func DefaultShapeDefaults() ShapeDefaults {
	return ShapeDefaults{
		RuleFile:  "bin/rule.cgb",
		StartRule: "default$init",
		Seed:      666,
		ShapeName: "InitialShape",
	}
}

// ModelGenerator owns the lifecycle of generation requests over a fixed
// ordered set of initial shapes. The engine handle, cache and resolve map
// live for the generator's lifetime; per-call handles (finalized shapes,
// the result collector) are scoped to one Generate invocation.
//
// A generator supports exactly one in-flight Generate at a time; it is
// not safe for concurrent use.
type ModelGenerator struct {
	eng engine.Engine
	log *zap.SugaredLogger

	builders []engine.ShapeBuilder
	cache    engine.Cache

	resolveMap  engine.ResolveMap
	encoderIDs  []string
	encoderOpts []attrmap.Map

	// Defaults supplies rule-invocation parameters for attribute keys a
	// shape's attribute set does not provide.
	Defaults ShapeDefaults

	// KeepUntouched includes shape indices the engine never reported
	// against as geometry-less models instead of omitting them.
	KeepUntouched bool

	valid bool
}

// New builds a generator over the given initial shapes. Geometry is
// installed (or resolved from file) eagerly; any failure marks the whole
// instance invalid, and every subsequent Generate fails fast without
// touching the engine. A nil logger disables logging.
func New(eng engine.Engine, shapes []shape.InitialShape, log *zap.SugaredLogger) *ModelGenerator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	g := &ModelGenerator{
		eng:      eng,
		log:      log,
		builders: make([]engine.ShapeBuilder, len(shapes)),
		cache:    eng.NewCache(),
		Defaults: DefaultShapeDefaults(),
		valid:    true,
	}

	for i, s := range shapes {
		isb := eng.NewShapeBuilder()

		if s.FromFile() {
			uri := fileURI(s.Path())
			if uri == "" {
				g.log.Errorw("could not read initial shape geometry, invalid path", "index", i)
				g.valid = false
				continue
			}
			g.log.Debugw("resolving initial shape geometry", "index", i, "uri", uri)
			if err := isb.ResolveGeometry(uri, g.resolveMap, g.cache); err != nil {
				g.log.Errorw("could not resolve geometry", "index", i, "uri", uri, "error", err)
				g.valid = false
				continue
			}
		} else {
			if err := isb.SetGeometry(s.Vertices(), s.Indices(), s.FaceCounts()); err != nil {
				g.log.Errorw("invalid initial geometry", "index", i, "error", err)
				g.valid = false
				continue
			}
		}

		g.builders[i] = isb
	}

	return g
}

// Valid reports whether construction succeeded for every initial shape.
func (g *ModelGenerator) Valid() bool { return g.valid }

// HasResolveMap reports whether a rule package has been resolved by a
// previous successful Generate call.
func (g *ModelGenerator) HasResolveMap() bool { return g.resolveMap != nil }

// Generate runs one generation pass.
//
// shapeAttrs supplies one attribute set per shape; a single set fans out
// to all shapes, extra sets are ignored with a warning, and any other
// shortfall fails the call. rulePackagePath, when non-empty, is resolved
// into a fresh resolve map; on resolution failure the previously
// successful resolve map is retained and the call fails. encoderID, when
// non-empty, rebuilds the encoder set; when empty the previous set is
// reused.
//
// Every failure is terminal for this call only: the generator remains
// valid and reusable, and the returned slice is empty alongside the
// error.
func (g *ModelGenerator) Generate(ctx context.Context, shapeAttrs []map[string]any, rulePackagePath, encoderID string, encoderOptions map[string]any) (models []GeneratedModel, err error) {
	// The engine call is opaque native-style code behind an adapter; a
	// panic escaping it must not take down the host application.
	defer func() {
		if r := recover(); r != nil {
			g.log.Errorw("generation aborted", "panic", r)
			models, err = nil, errors.Newf("engine panic: %v", r)
		}
	}()

	if !g.valid {
		g.log.Error("invalid ModelGenerator instance")
		return nil, errors.WithStack(errors.ErrInvalidGenerator)
	}

	if len(shapeAttrs) != 1 && len(shapeAttrs) < len(g.builders) {
		g.log.Errorw("not enough shape attribute sets",
			"attribute_sets", len(shapeAttrs), "shapes", len(g.builders))
		return nil, errors.Wrapf(errors.ErrAttributeCount,
			"%d attribute sets for %d shapes", len(shapeAttrs), len(g.builders))
	}
	if len(shapeAttrs) > len(g.builders) {
		g.log.Warnw("more attribute sets than initial shapes, extras ignored",
			"attribute_sets", len(shapeAttrs), "shapes", len(g.builders))
	}

	jobID := uuid.NewString()
	log := g.log.With("job_id", jobID)

	if rulePackagePath != "" {
		log.Infow("resolving rule package", "path", rulePackagePath)
		rm, rerr := g.eng.CreateResolveMap(ctx, fileURI(rulePackagePath))
		if rerr != nil {
			// The previous resolve map stays untouched so later calls with
			// defaults keep working against the last good rule package.
			log.Errorw("rule package resolution failed", "path", rulePackagePath, "error", rerr)
			return nil, errors.Wrapf(errors.ErrResolveFailed, "rule package %q: %v", rulePackagePath, rerr)
		}
		g.resolveMap = rm
	}

	shapes, err := g.createShapes(shapeAttrs, log)
	if err != nil {
		return nil, err
	}

	if encoderID != "" {
		if err := g.buildEncoderSet(encoderID, encoderOptions, log); err != nil {
			return nil, err
		}
	}
	if len(g.encoderIDs) == 0 {
		log.Error("no encoder configured and no previous encoder set to reuse")
		return nil, errors.WithStack(errors.ErrNoEncoder)
	}

	if g.encoderIDs[0] == engine.EncoderInMemory {
		collector := NewResultCollector(len(g.builders))

		if gerr := g.eng.Generate(ctx, shapes, g.encoderIDs, g.encoderOpts, collector, g.cache); gerr != nil {
			logEngineFailure(log, gerr)
			return nil, gerr
		}

		models = collector.Models(g.KeepUntouched)
		log.Infow("generation finished", "models", len(models), "shapes", len(g.builders))
		return models, nil
	}

	// File-based encoder: output is the side effect, no in-memory models.
	outputPath, _ := encoderOptions[engine.OptOutputPath].(string)
	info, serr := os.Stat(outputPath)
	if outputPath == "" || serr != nil || !info.IsDir() {
		log.Errorw("output directory is not valid or does not exist", "output_path", outputPath)
		return nil, errors.Wrapf(errors.ErrBadOutputPath, "outputPath %q", outputPath)
	}

	sink, ferr := g.eng.NewFileSink(outputPath)
	if ferr != nil {
		log.Errorw("could not create file output sink", "output_path", outputPath, "error", ferr)
		return nil, errors.Wrap(ferr, "file output sink")
	}

	if gerr := g.eng.Generate(ctx, shapes, g.encoderIDs, g.encoderOpts, sink, g.cache); gerr != nil {
		logEngineFailure(log, gerr)
		return nil, gerr
	}

	log.Infow("generation finished", "output_path", outputPath, "shapes", len(g.builders))
	return []GeneratedModel{}, nil
}

// GenerateWithDefaults reruns generation with the previously resolved rule
// package and previously configured encoder set. It fails immediately when
// no successful Generate established a resolve map yet.
func (g *ModelGenerator) GenerateWithDefaults(ctx context.Context, shapeAttrs []map[string]any) ([]GeneratedModel, error) {
	if g.resolveMap == nil {
		g.log.Error("generate with all required parameters first")
		return nil, errors.WithStack(errors.ErrMissingResolveMap)
	}
	return g.Generate(ctx, shapeAttrs, "", "", nil)
}

// createShapes attaches per-shape attributes and finalizes every builder
// into an immutable shape handle for this call.
func (g *ModelGenerator) createShapes(shapeAttrs []map[string]any, log *zap.SugaredLogger) ([]engine.Shape, error) {
	shapes := make([]engine.Shape, len(g.builders))

	for i, isb := range g.builders {
		raw := shapeAttrs[0]
		if len(shapeAttrs) > i {
			raw = shapeAttrs[i]
		}

		attrs, dropped := attrmap.FromAny(raw)
		for _, key := range dropped {
			log.Warnw("unsupported attribute type, dropped", "index", i, "key", key)
		}

		ruleFile := attrs.Text(AttrRuleFile, g.Defaults.RuleFile)
		startRule := attrs.Text(AttrStartRule, g.Defaults.StartRule)
		seed := attrs.Int(AttrSeed, g.Defaults.Seed)
		shapeName := attrs.Text(AttrShapeName, g.Defaults.ShapeName)

		isb.SetAttributes(ruleFile, startRule, seed, shapeName, attrs, g.resolveMap)

		sh, err := isb.CreateShape()
		if err != nil {
			log.Errorw("could not create initial shape", "index", i, "error", err)
			return nil, errors.Wrapf(err, "initial shape %d", i)
		}
		shapes[i] = sh
	}

	return shapes, nil
}

// buildEncoderSet validates and installs the encoder identifiers and
// option sets for this and subsequent calls. Any encoder other than the
// in-memory one is augmented with the report and print auxiliaries so
// side-channel output still reaches the sink.
func (g *ModelGenerator) buildEncoderSet(encoderID string, rawOptions map[string]any, log *zap.SugaredLogger) error {
	opts, dropped := attrmap.FromAny(rawOptions)
	for _, key := range dropped {
		log.Warnw("unsupported encoder option type, dropped", "key", key)
	}

	validated, err := g.eng.ValidateEncoderOptions(encoderID, opts)
	if err != nil {
		log.Errorw("encoder options rejected", "encoder", encoderID, "error", err)
		return errors.Wrapf(err, "encoder %q options", encoderID)
	}

	ids := []string{encoderID}
	allOpts := []attrmap.Map{validated}

	if encoderID != engine.EncoderInMemory {
		b := attrmap.NewBuilder()
		b.SetText(engine.OptName, engine.ReportFileName)
		reportOpts := b.CreateAndReset()
		printOpts := b.CreateAndReset()

		validReport, err := g.eng.ValidateEncoderOptions(engine.EncoderReport, reportOpts)
		if err != nil {
			return errors.Wrap(err, "report encoder options")
		}
		validPrint, err := g.eng.ValidateEncoderOptions(engine.EncoderPrint, printOpts)
		if err != nil {
			return errors.Wrap(err, "print encoder options")
		}

		ids = append(ids, engine.EncoderReport, engine.EncoderPrint)
		allOpts = append(allOpts, validReport, validPrint)
	}

	g.encoderIDs = ids
	g.encoderOpts = allOpts
	return nil
}

func logEngineFailure(log *zap.SugaredLogger, err error) {
	var statusErr *engine.StatusError
	if errors.As(err, &statusErr) {
		log.Errorw("engine generate failed",
			"status", statusErr.Description, "code", int(statusErr.Code))
		return
	}
	log.Errorw("engine generate failed", "error", err)
}

// fileURI converts a filesystem path into a file: URI for the engine's
// resolvers. Empty paths stay empty so callers can reject them.
func fileURI(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	return "file:" + abs
}
