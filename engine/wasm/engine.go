package wasm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tetratelabs/wazero/api"

	"github.com/forma3d/forma/attrmap"
	"github.com/forma3d/forma/engine"
	"github.com/forma3d/forma/errors"
	"github.com/forma3d/forma/logger"
)

var _ engine.Engine = (*Runtime)(nil)

// callbackSink is the in-memory callback contract of one generate call.
type callbackSink = engine.Callbacks

// fileWriter receives file output emitted by file-based encoders running
// inside the module.
type fileWriter interface {
	writeFile(name string, data []byte) error
}

type resolveMap struct {
	assets map[string]string
}

func (r *resolveMap) Lookup(name string) (string, bool) {
	uri, ok := r.assets[name]
	return uri, ok
}

type cache struct {
	rt *Runtime
	id uint64
}

func (c *cache) Flush() {
	if fn := c.rt.mod.ExportedFunction(fnCacheFlush); fn != nil {
		if _, err := fn.Call(context.Background(), c.id); err != nil {
			logger.Warnw("engine cache flush failed", "cache_id", c.id, "error", err)
		}
	}
}

// NewCache implements engine.Engine. The cache lives inside the module;
// the handle only carries its id.
func (rt *Runtime) NewCache() engine.Cache {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var id uint64
	if fn := rt.mod.ExportedFunction(fnCacheCreate); fn != nil {
		if results, err := fn.Call(context.Background()); err == nil && len(results) > 0 {
			id = results[0]
		}
	}
	return &cache{rt: rt, id: id}
}

type shapeBuilder struct {
	rt *Runtime
	s  wireShape
}

// NewShapeBuilder implements engine.Engine.
func (rt *Runtime) NewShapeBuilder() engine.ShapeBuilder {
	return &shapeBuilder{rt: rt}
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
		return engine.NewStatusError(engine.StatusInvalidGeometry, "face counts do not match index count")
	}
	vertexCount := uint32(len(vertices) / 3)
	for _, idx := range indices {
		if idx >= vertexCount {
			return engine.NewStatusError(engine.StatusInvalidGeometry, "face index out of range")
		}
	}

	b.s.Vertices = append([]float64(nil), vertices...)
	b.s.Indices = append([]uint32(nil), indices...)
	b.s.FaceCounts = append([]uint32(nil), faceCounts...)
	return nil
}

func (b *shapeBuilder) ResolveGeometry(uri string, rm engine.ResolveMap, _ engine.Cache) error {
	req := resolveGeometryRequest{URI: uri}
	if m, ok := rm.(*resolveMap); ok && m != nil {
		req.Assets = m.assets
	}

	var resp resolveGeometryResponse
	b.rt.mu.Lock()
	err := b.rt.callJSON(context.Background(), fnResolveGeometry, req, &resp)
	b.rt.mu.Unlock()
	if err != nil {
		return err
	}
	if err := resp.statusErr(); err != nil {
		return err
	}

	b.s.Vertices = resp.Vertices
	b.s.Indices = resp.Indices
	b.s.FaceCounts = resp.FaceCounts
	return nil
}

func (b *shapeBuilder) SetAttributes(ruleFile, startRule string, seed int64, shapeName string, attrs attrmap.Map, rm engine.ResolveMap) {
	b.s.RuleFile = ruleFile
	b.s.StartRule = startRule
	b.s.Seed = seed
	b.s.ShapeName = shapeName
	b.s.Attrs = toWireMap(attrs)
	if m, ok := rm.(*resolveMap); ok && m != nil {
		b.s.Assets = m.assets
	} else {
		b.s.Assets = nil
	}
}

func (b *shapeBuilder) CreateShape() (engine.Shape, error) {
	snapshot := b.s
	return &snapshot, nil
}

// CreateResolveMap implements engine.Engine.
func (rt *Runtime) CreateResolveMap(ctx context.Context, uri string) (engine.ResolveMap, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var resp resolveMapResponse
	if err := rt.callJSON(ctx, fnCreateResolve, resolveMapRequest{URI: uri}, &resp); err != nil {
		return nil, err
	}
	if err := resp.statusErr(); err != nil {
		return nil, err
	}
	return &resolveMap{assets: resp.Assets}, nil
}

// ValidateEncoderOptions implements engine.Engine.
func (rt *Runtime) ValidateEncoderOptions(encoderID string, options attrmap.Map) (attrmap.Map, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	req := validateOptionsRequest{Encoder: encoderID, Options: toWireMap(options)}
	var resp validateOptionsResponse
	if err := rt.callJSON(context.Background(), fnValidateOptions, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.statusErr(); err != nil {
		return nil, err
	}
	return fromWireMap(resp.Options), nil
}

// Generate implements engine.Engine. It blocks until the module returns;
// every host callback the module issues lands in cb (or the file sink)
// before that.
func (rt *Runtime) Generate(ctx context.Context, shapes []engine.Shape, encoderIDs []string, encoderOptions []attrmap.Map, cb engine.Callbacks, c engine.Cache) error {
	req := generateRequest{
		Shapes:   make([]wireShape, 0, len(shapes)),
		Encoders: make([]wireEncoder, 0, len(encoderIDs)),
	}
	for _, sh := range shapes {
		ws, ok := sh.(*wireShape)
		if !ok {
			return errors.Newf("foreign shape handle %T", sh)
		}
		req.Shapes = append(req.Shapes, *ws)
	}
	for i, id := range encoderIDs {
		enc := wireEncoder{ID: id}
		if i < len(encoderOptions) {
			enc.Options = toWireMap(encoderOptions[i])
		}
		req.Encoders = append(req.Encoders, enc)
	}
	if wc, ok := c.(*cache); ok && wc != nil {
		req.CacheID = wc.id
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.sink.callbacks = cb
	rt.sink.files, _ = cb.(fileWriter)
	defer func() { rt.sink = sinkState{} }()

	var resp generateResponse
	if err := rt.callJSON(ctx, fnGenerate, req, &resp); err != nil {
		return err
	}
	return resp.statusErr()
}

// FileSink writes file-based encoder output into a directory. It
// satisfies engine.Callbacks with no-ops; actual file content arrives via
// the emit_file host function.
type FileSink struct {
	dir string
}

// NewFileSink implements engine.Engine.
func (rt *Runtime) NewFileSink(outputDir string) (engine.Callbacks, error) {
	info, err := os.Stat(outputDir)
	if err != nil || !info.IsDir() {
		return nil, engine.NewStatusError(engine.StatusEncoderFailed, "not a directory: "+outputDir)
	}
	return &FileSink{dir: outputDir}, nil
}

// AddGeometry implements engine.Callbacks.
func (s *FileSink) AddGeometry(int, []float64, [][]uint32) {}

// AddReports implements engine.Callbacks.
func (s *FileSink) AddReports(int, map[string]float64, map[string]string, map[string]bool) {}

// AddIndex implements engine.Callbacks.
func (s *FileSink) AddIndex(int) {}

func (s *FileSink) writeFile(name string, data []byte) error {
	// Encoder-chosen names are flattened, the sink never writes outside
	// its directory.
	return os.WriteFile(filepath.Join(s.dir, filepath.Base(name)), data, 0o644)
}

// Host functions. Each reads a JSON payload out of module memory and
// forwards it to the sink of the in-flight generate call. They run on the
// module's calling goroutine while rt.mu is held by Generate.

func (rt *Runtime) hostAddGeometry(_ context.Context, m api.Module, ptr, size uint32) {
	var ev geometryEvent
	if !readEvent(m, ptr, size, &ev) {
		return
	}
	if rt.sink.callbacks != nil {
		rt.sink.callbacks.AddGeometry(ev.ShapeIndex, ev.Vertices, ev.Faces)
	}
}

func (rt *Runtime) hostAddReports(_ context.Context, m api.Module, ptr, size uint32) {
	var ev reportsEvent
	if !readEvent(m, ptr, size, &ev) {
		return
	}
	if rt.sink.callbacks != nil {
		rt.sink.callbacks.AddReports(ev.ShapeIndex, ev.Floats, ev.Strings, ev.Bools)
	}
}

func (rt *Runtime) hostAddIndex(_ context.Context, _ api.Module, shapeIndex uint32) {
	if rt.sink.callbacks != nil {
		rt.sink.callbacks.AddIndex(int(shapeIndex))
	}
}

func (rt *Runtime) hostEmitFile(_ context.Context, m api.Module, ptr, size uint32) {
	var ev fileEvent
	if !readEvent(m, ptr, size, &ev) {
		return
	}
	if rt.sink.files == nil {
		logger.Warnw("engine emitted a file without a file sink", "name", ev.Name)
		return
	}
	if err := rt.sink.files.writeFile(ev.Name, ev.Data); err != nil {
		logger.Errorw("could not write encoder output", "name", ev.Name, "error", err)
	}
}

func readEvent(m api.Module, ptr, size uint32, dst any) bool {
	payload, ok := m.Memory().Read(ptr, size)
	if !ok {
		logger.Errorw("engine callback payload out of range", "ptr", ptr, "size", size)
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		logger.Errorw("malformed engine callback payload", "error", err)
		return false
	}
	return true
}
