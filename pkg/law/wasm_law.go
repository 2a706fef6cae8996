package law

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/driftlock/kernel/pkg/canonicalize"
	"github.com/driftlock/kernel/pkg/state"
)

// WasmLaw runs its predicate inside a wazero-hosted WebAssembly module with
// no host imports. That absence is load-bearing: a module with nothing to
// import has no path to a clock, a network socket, or any other ambient
// input, so purity is enforced by the sandbox rather than by convention.
//
// The module must export:
//
//	memory                              (the linear memory used for I/O)
//	alloc(size i32) -> (ptr i32)         allocate size bytes, return offset
//	evaluate(ptr i32, len i32) -> (packed i64)
//
// evaluate receives the canonical JSON encoding of {"state":...,"action":...}
// at the given offset/length and must write its canonical-JSON LawVerdict
// response into memory it owns, returning the response's (offset, length)
// packed into one i64 (offset in the high 32 bits, length in the low 32
// bits). This packed-return convention avoids a second host import for
// passing the response location back, keeping the module importless.
type WasmLaw[S state.State, A state.Action] struct {
	lawID string

	runtime  wazero.Runtime
	module   api.Module
	alloc    api.Function
	evaluate api.Function
}

// NewWasmLaw instantiates wasmBinary in a fresh, import-free wazero runtime
// and binds it to lawID. The returned WasmLaw owns the runtime and module;
// call Close when done with it.
func NewWasmLaw[S state.State, A state.Action](ctx context.Context, lawID string, wasmBinary []byte) (*WasmLaw[S, A], error) {
	runtime := wazero.NewRuntime(ctx)

	module, err := runtime.Instantiate(ctx, wasmBinary)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("law: wasm: instantiate %q: %w", lawID, err)
	}

	alloc := module.ExportedFunction("alloc")
	evaluate := module.ExportedFunction("evaluate")
	if alloc == nil || evaluate == nil {
		_ = module.Close(ctx)
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("law: wasm: %q must export alloc and evaluate", lawID)
	}

	return &WasmLaw[S, A]{lawID: lawID, runtime: runtime, module: module, alloc: alloc, evaluate: evaluate}, nil
}

// Close releases the wazero runtime and its module.
func (l *WasmLaw[S, A]) Close(ctx context.Context) error {
	if err := l.module.Close(ctx); err != nil {
		return err
	}
	return l.runtime.Close(ctx)
}

// ID implements Law.
func (l *WasmLaw[S, A]) ID() string { return l.lawID }

// Evaluate implements Law as a synchronous call into the sandboxed module.
// Any failure anywhere in the marshal/call/unmarshal path fails closed to
// Deny, matching CELLaw's fail-closed contract for declarative Laws.
func (l *WasmLaw[S, A]) Evaluate(s S, a A) Verdict {
	ctx := context.Background()

	input, err := canonicalize.Marshal(map[string]any{"state": s, "action": a})
	if err != nil {
		return Denied(l.lawID, "wasm: input canonicalization failed: "+err.Error())
	}

	packedPtr, err := l.alloc.Call(ctx, uint64(len(input)))
	if err != nil {
		return Denied(l.lawID, "wasm: alloc failed: "+err.Error())
	}
	ptr := uint32(packedPtr[0])

	mem := l.module.Memory()
	if !mem.Write(ptr, input) {
		return Denied(l.lawID, "wasm: write to linear memory out of range")
	}

	packed, err := l.evaluate.Call(ctx, uint64(ptr), uint64(len(input)))
	if err != nil {
		return Denied(l.lawID, "wasm: evaluate call failed: "+err.Error())
	}

	outPtr := uint32(packed[0] >> 32)
	outLen := uint32(packed[0])

	raw, ok := mem.Read(outPtr, outLen)
	if !ok {
		return Denied(l.lawID, "wasm: read of evaluate response out of range")
	}

	var verdict Verdict
	decoded, err := canonicalize.Unmarshal(raw)
	if err != nil {
		return Denied(l.lawID, "wasm: response decode failed: "+err.Error())
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return Denied(l.lawID, "wasm: response was not a JSON object")
	}
	if d, ok := obj["decision"].(string); ok {
		verdict.Decision = Decision(d)
	}
	if r, ok := obj["reason"].(string); ok {
		verdict.Reason = r
	}
	verdict.LawID = l.lawID

	switch verdict.Decision {
	case Allow, Deny, Escalate, Abstain:
		return verdict
	default:
		return Denied(l.lawID, fmt.Sprintf("wasm: response had unrecognized decision %q", verdict.Decision))
	}
}
