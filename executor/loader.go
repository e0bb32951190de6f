package executor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ruteri/carol-node/interfaces"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// CompiledBinary is a validated guest binary. It is immutable and shared by
// every machine built from it.
type CompiledBinary struct {
	id     interfaces.BinaryID
	module wazero.CompiledModule
	size   int
}

func (b *CompiledBinary) ID() interfaces.BinaryID { return b.id }

// Size is the length of the uploaded bytes.
func (b *CompiledBinary) Size() int { return b.size }

// StubBinary returns a binary with the given id and nothing to run. It lets
// code that only routes binaries be exercised without compiling wasm. Running
// a stub fails with a LoadError.
func StubBinary(id interfaces.BinaryID) *CompiledBinary {
	return &CompiledBinary{id: id}
}

type signature struct {
	params  []api.ValueType
	results []api.ValueType
}

var requiredExports = []struct {
	name string
	signature
}{
	{exportRealloc, signature{i32s(4), i32s(1)}},
	{exportActivate, signature{i32s(6), i32s(1)}},
	{exportHandleHTTP, signature{i32s(2), i32s(1)}},
	{exportDescribeAPI, signature{nil, i32s(1)}},
}

// Load validates wasm and compiles it. The same bytes always load or fail
// the same way. Nothing is registered.
func (e *Executor) Load(ctx context.Context, wasm []byte) (*CompiledBinary, error) {
	core, err := coreModule(wasm)
	if err != nil {
		return nil, err
	}

	compiled, err := e.runtime.CompileModule(ctx, core)
	if err != nil {
		return nil, &LoadError{Reason: "compiling module", Err: err}
	}
	if err := e.validate(compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	return &CompiledBinary{
		id:     interfaces.NewBinaryID(wasm),
		module: compiled,
		size:   len(wasm),
	}, nil
}

func (e *Executor) validate(compiled wazero.CompiledModule) error {
	if len(compiled.ImportedMemories()) > 0 {
		return &LoadError{Reason: "imported memories are not supported"}
	}
	if _, ok := compiled.ExportedMemories()[exportMemory]; !ok {
		return &LoadError{Reason: fmt.Sprintf("missing export %q", exportMemory)}
	}

	exports := compiled.ExportedFunctions()
	for _, want := range requiredExports {
		def, ok := exports[want.name]
		if !ok {
			return &LoadError{Reason: fmt.Sprintf("missing export %q", want.name)}
		}
		if !matches(def, want.signature) {
			return &LoadError{Reason: fmt.Sprintf("export %q has type %s, want %s",
				want.name, formatSignature(def.ParamTypes(), def.ResultTypes()), formatSignature(want.params, want.results))}
		}
	}

	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		want, ok := e.importSignature(module, name)
		if !ok {
			return &LoadError{Reason: fmt.Sprintf("unknown import %s#%s", module, name)}
		}
		if !matches(def, want) {
			return &LoadError{Reason: fmt.Sprintf("import %s#%s has type %s, want %s",
				module, name, formatSignature(def.ParamTypes(), def.ResultTypes()), formatSignature(want.params, want.results))}
		}
	}
	return nil
}

func (e *Executor) importSignature(module, name string) (signature, bool) {
	if module == wasi_snapshot_preview1.ModuleName {
		def, ok := e.wasi[name]
		if !ok {
			return signature{}, false
		}
		return signature{def.ParamTypes(), def.ResultTypes()}, true
	}
	c, ok := lookupCapability(module, name)
	if !ok {
		return signature{}, false
	}
	return signature{c.params, c.results}, true
}

func matches(def api.FunctionDefinition, want signature) bool {
	return slices.Equal(def.ParamTypes(), want.params) && slices.Equal(def.ResultTypes(), want.results)
}

func formatSignature(params, results []api.ValueType) string {
	names := func(types []api.ValueType) string {
		s := make([]string, len(types))
		for i, t := range types {
			s[i] = api.ValueTypeName(t)
		}
		return strings.Join(s, ",")
	}
	return fmt.Sprintf("(%s)->(%s)", names(params), names(results))
}
