package wasm

import (
	"context"
	"encoding/json"

	"github.com/forma3d/forma/errors"
)

// Exported function names every engine module must provide.
const (
	fnAlloc           = "forma_alloc"
	fnFree            = "forma_free"
	fnCreateResolve   = "forma_create_resolve_map"
	fnResolveGeometry = "forma_resolve_geometry"
	fnValidateOptions = "forma_validate_encoder_options"
	fnGenerate        = "forma_generate"
	fnCacheCreate     = "forma_cache_create"
	fnCacheFlush      = "forma_cache_flush"
	fnCacheRelease    = "forma_cache_release"
)

// callJSON marshals req, hands it to the named export through linear
// memory and unmarshals the response envelope into resp. The module owns
// allocation; both buffers are freed before returning.
func (rt *Runtime) callJSON(ctx context.Context, fnName string, req, resp any) error {
	input, err := json.Marshal(req)
	if err != nil {
		return errors.Wrapf(err, "marshal %s request", fnName)
	}

	output, err := rt.callRaw(ctx, fnName, input)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(output, resp); err != nil {
		return errors.Wrapf(err, "unmarshal %s response", fnName)
	}
	return nil
}

// callRaw performs the shared-memory protocol for one bytes-in, bytes-out
// engine call.
func (rt *Runtime) callRaw(ctx context.Context, fnName string, input []byte) ([]byte, error) {
	allocFn := rt.mod.ExportedFunction(fnAlloc)
	freeFn := rt.mod.ExportedFunction(fnFree)
	targetFn := rt.mod.ExportedFunction(fnName)

	if allocFn == nil || freeFn == nil || targetFn == nil {
		return nil, errors.Newf("wasm: missing export %q", fnName)
	}

	inputSize := uint64(len(input))

	var inputPtr uint64
	if inputSize > 0 {
		results, err := allocFn.Call(ctx, inputSize)
		if err != nil {
			return nil, errors.Wrapf(err, "wasm alloc for %s (size=%d)", fnName, inputSize)
		}
		inputPtr = results[0]
		if inputPtr == 0 {
			return nil, errors.Newf("wasm alloc returned null for %s (size=%d)", fnName, inputSize)
		}

		if !rt.mod.Memory().Write(uint32(inputPtr), input) {
			if _, freeErr := freeFn.Call(ctx, inputPtr, inputSize); freeErr != nil {
				return nil, errors.Wrapf(freeErr, "wasm %s memory write out of range at ptr=%d size=%d (also failed to free)", fnName, inputPtr, inputSize)
			}
			return nil, errors.Newf("wasm %s memory write out of range at ptr=%d size=%d", fnName, inputPtr, inputSize)
		}
	}

	results, err := targetFn.Call(ctx, inputPtr, inputSize)
	if err != nil {
		if inputSize > 0 {
			if _, freeErr := freeFn.Call(ctx, inputPtr, inputSize); freeErr != nil {
				return nil, errors.Wrapf(err, "wasm call %s failed (also failed to free input: %v)", fnName, freeErr)
			}
		}
		return nil, errors.Wrapf(err, "wasm call %s", fnName)
	}

	if inputSize > 0 {
		if _, err := freeFn.Call(ctx, inputPtr, inputSize); err != nil {
			return nil, errors.Wrapf(err, "wasm %s failed to free input buffer at ptr=%d size=%d", fnName, inputPtr, inputSize)
		}
	}

	resultPtr, resultLen := unpackPtrLen(results[0])
	if resultPtr == 0 || resultLen == 0 {
		return nil, errors.Newf("wasm %s returned null result (ptr=%d, len=%d)", fnName, resultPtr, resultLen)
	}

	resultBytes, ok := rt.mod.Memory().Read(resultPtr, resultLen)
	if !ok {
		return nil, errors.Newf("wasm %s memory read out of range at ptr=%d len=%d", fnName, resultPtr, resultLen)
	}

	// Copy before freeing, the view is invalidated by forma_free.
	output := make([]byte, len(resultBytes))
	copy(output, resultBytes)

	if _, err := freeFn.Call(ctx, uint64(resultPtr), uint64(resultLen)); err != nil {
		return nil, errors.Wrapf(err, "wasm %s failed to free result buffer at ptr=%d size=%d", fnName, resultPtr, resultLen)
	}

	return output, nil
}

// unpackPtrLen splits the module's packed (ptr << 32) | len return value.
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed & 0xFFFFFFFF)
}
