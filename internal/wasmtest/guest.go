package wasmtest

import (
	"github.com/tetratelabs/wazero/api"
)

// Guest memory layout.
const (
	HeapPointer  = 8
	OutputRecord = 16
	ResultRecord = 32
	staticBase   = 64
	HeapBase     = 8192
)

var i32 = api.ValueTypeI32

func I32s(n int) []api.ValueType {
	types := make([]api.ValueType, n)
	for i := range types {
		types[i] = i32
	}
	return types
}

// Guest builds a binary implementing the carol:machine exports with a bump
// allocator. Entry points without a body trap.
type Guest struct {
	imports     []importEntry
	importSigs  [][2][]api.ValueType
	activate    []byte
	handleHTTP  []byte
	describeAPI []byte
	initialize  []byte
	static      []byte
	skipExports map[string]bool
}

func NewGuest() *Guest {
	return &Guest{skipExports: map[string]bool{}}
}

// Import declares a capability import taking params i32 arguments and
// returning nothing. It returns the function index to Call.
func (g *Guest) Import(module, name string, params int) uint32 {
	return g.ImportFunc(module, name, I32s(params), nil)
}

func (g *Guest) ImportFunc(module, name string, params, results []api.ValueType) uint32 {
	g.imports = append(g.imports, importEntry{module: module, name: name})
	g.importSigs = append(g.importSigs, [2][]api.ValueType{params, results})
	return uint32(len(g.imports) - 1)
}

// Static places b in the guest's static data and returns its address and length.
func (g *Guest) Static(b []byte) (ptr, length int32) {
	ptr = int32(staticBase + len(g.static))
	g.static = append(g.static, b...)
	for len(g.static)%8 != 0 {
		g.static = append(g.static, 0)
	}
	if staticBase+len(g.static) > HeapBase {
		panic("wasmtest: static data overflows into the heap")
	}
	return ptr, int32(len(b))
}

// Activate sets the body of activate(params_ptr, params_len, name_ptr,
// name_len, input_ptr, input_len) -> record_ptr.
func (g *Guest) Activate(instrs ...[]byte) *Guest {
	g.activate = concat(instrs...)
	return g
}

// HandleHTTP sets the body of handle-http(req_ptr, req_len) -> record_ptr.
func (g *Guest) HandleHTTP(instrs ...[]byte) *Guest {
	g.handleHTTP = concat(instrs...)
	return g
}

// DescribeAPI sets the body of describe-api() -> record_ptr.
func (g *Guest) DescribeAPI(instrs ...[]byte) *Guest {
	g.describeAPI = concat(instrs...)
	return g
}

// Initialize adds an _initialize export with the given body.
func (g *Guest) Initialize(instrs ...[]byte) *Guest {
	g.initialize = concat(instrs...)
	return g
}

// Without drops an export, for producing invalid binaries.
func (g *Guest) Without(export string) *Guest {
	g.skipExports[export] = true
	return g
}

func (g *Guest) Bytes() []byte {
	m := NewModule()
	m.SetMemoryPages(4)
	for i, imp := range g.imports {
		m.Import(imp.module, imp.name, g.importSigs[i][0], g.importSigs[i][1])
	}

	export := func(name string, idx uint32) {
		if !g.skipExports[name] {
			m.Export(name, idx)
		}
	}

	export("cabi_realloc", m.Func(I32s(4), I32s(1), I32s(1), bumpAllocator()))
	export("activate", m.Func(I32s(6), I32s(1), nil, orTrap(g.activate)))
	export("handle-http", m.Func(I32s(2), I32s(1), nil, orTrap(g.handleHTTP)))
	export("describe-api", m.Func(nil, I32s(1), nil, orTrap(g.describeAPI)))
	if g.initialize != nil {
		export("_initialize", m.Func(nil, nil, nil, g.initialize))
	}

	m.Data(HeapPointer, LE32(HeapBase))
	if len(g.static) > 0 {
		m.Data(staticBase, g.static)
	}
	return m.Bytes()
}

func orTrap(body []byte) []byte {
	if body == nil {
		return Unreachable
	}
	return body
}

// bumpAllocator never frees. new_size is local 3; local 4 holds the result.
func bumpAllocator() []byte {
	return concat(
		I32Const(HeapPointer), I32Load(0), LocalSet(4),
		I32Const(HeapPointer),
		LocalGet(4), LocalGet(3), I32Add, I32Const(7), I32Add, I32Const(-8), I32And,
		I32Store(0),
		LocalGet(4),
	)
}

// ReturnBytes writes an output record for (ptr, len) and leaves its address.
func ReturnBytes(ptr, length []byte) []byte {
	return concat(
		I32Const(OutputRecord), ptr, I32Store(0),
		I32Const(OutputRecord+4), length, I32Store(0),
		I32Const(OutputRecord),
	)
}

// ReturnStatic returns static data placed with Guest.Static.
func ReturnStatic(ptr, length int32) []byte {
	return ReturnBytes(I32Const(ptr), I32Const(length))
}

// Echo returns the activation input unchanged.
func Echo() []byte {
	return ReturnBytes(LocalGet(4), LocalGet(5))
}

// Panic reports the static message at (ptr, len) through setPanic, then traps.
func Panic(setPanic uint32, ptr, length int32) []byte {
	return concat(I32Const(ptr), I32Const(length), Call(setPanic), Unreachable)
}

// CallCapability calls fn with args followed by the result record pointer.
func CallCapability(fn uint32, args ...[]byte) []byte {
	return concat(concat(args...), I32Const(ResultRecord), Call(fn))
}

// Probe calls fn and returns what it produced. On success the output is the
// capability payload. On failure it is the four little-endian status bytes.
func Probe(fn uint32, args ...[]byte) []byte {
	return concat(
		CallCapability(fn, args...),
		I32Const(ResultRecord), I32Load(0),
		IfElseI32(
			concat(
				I32Const(OutputRecord), I32Const(ResultRecord), I32Store(0),
				I32Const(OutputRecord+4), I32Const(4), I32Store(0),
				I32Const(OutputRecord),
			),
			I32Const(ResultRecord+4),
		),
	)
}

// StatusIs leaves 1 if the last capability call returned status, else 0.
func StatusIs(status uint32) []byte {
	return concat(I32Const(ResultRecord), I32Load(0), I32Const(int32(status)), I32Eq)
}
