// Package wasm adapts a rule engine compiled to WebAssembly to the
// engine.Engine contract, through wazero (pure Go, no CGO).
//
// Memory protocol: request payloads cross the boundary as JSON in
// (ptr, len) pairs in WASM linear memory, return values are packed as
// (ptr << 32) | len in a u64. During forma_generate the module streams
// results back through host functions in the "forma" host module
// (add_geometry, add_reports, add_index, emit_file), which the runtime
// routes to the sink of the in-flight call. One Generate is in flight per
// Runtime at a time; a mutex serializes engine entry points.
package wasm

import (
	"context"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/forma3d/forma/errors"
)

// Runtime wraps a wazero runtime with a compiled and instantiated rule
// engine module. It implements engine.Engine.
type Runtime struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	mod      api.Module

	mu   sync.Mutex
	sink sinkState
}

// sinkState routes host-function traffic during one generate call.
type sinkState struct {
	callbacks callbackSink
	files     fileWriter
}

var (
	defaultRuntime *Runtime
	defaultMu      sync.Mutex
)

// Initialize loads the engine module at path into the package default
// runtime. It is idempotent: a second call while initialized is a no-op.
func Initialize(ctx context.Context, path string) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultRuntime != nil {
		return nil
	}
	rt, err := Open(ctx, path)
	if err != nil {
		return err
	}
	defaultRuntime = rt
	return nil
}

// IsInitialized reports whether the default runtime is up.
func IsInitialized() bool {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRuntime != nil
}

// Shutdown releases the default runtime and all engine-wide resources.
// It is a no-op when nothing is initialized.
func Shutdown(ctx context.Context) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultRuntime == nil {
		return nil
	}
	err := defaultRuntime.Close(ctx)
	defaultRuntime = nil
	return err
}

// Default returns the default runtime, or an error when Initialize has
// not run yet.
func Default() (*Runtime, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultRuntime == nil {
		return nil, errors.WithStack(errors.ErrEngineNotInitialized)
	}
	return defaultRuntime, nil
}

// Open reads an engine module from disk and instantiates it.
func Open(ctx context.Context, path string) (*Runtime, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read engine module %s", path)
	}
	return New(ctx, wasmBytes)
}

// New instantiates an engine module from raw bytes.
func New(ctx context.Context, wasmBytes []byte) (*Runtime, error) {
	r := wazero.NewRuntime(ctx)

	rt := &Runtime{runtime: r}

	// The module may use WASI for clocks and randomness.
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		r.Close(ctx)
		return nil, errors.Wrap(err, "instantiate WASI")
	}

	// Host module carrying the callback surface of the generate contract.
	_, err := r.NewHostModuleBuilder("forma").
		NewFunctionBuilder().WithFunc(rt.hostAddGeometry).Export("add_geometry").
		NewFunctionBuilder().WithFunc(rt.hostAddReports).Export("add_reports").
		NewFunctionBuilder().WithFunc(rt.hostAddIndex).Export("add_index").
		NewFunctionBuilder().WithFunc(rt.hostEmitFile).Export("emit_file").
		Instantiate(ctx)
	if err != nil {
		r.Close(ctx)
		return nil, errors.Wrap(err, "instantiate host module")
	}

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		r.Close(ctx)
		return nil, errors.Wrap(err, "wasm compile")
	}

	mod, err := r.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName("forma-engine"))
	if err != nil {
		r.Close(ctx)
		return nil, errors.Wrap(err, "wasm instantiate")
	}

	rt.compiled = compiled
	rt.mod = mod
	return rt, nil
}

// Close releases all WASM resources.
func (rt *Runtime) Close(ctx context.Context) error {
	return rt.runtime.Close(ctx)
}
