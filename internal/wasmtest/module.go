// Package wasmtest assembles small WebAssembly guests for engine tests.
package wasmtest

import (
	"encoding/binary"

	"github.com/tetratelabs/wazero/api"
)

const (
	sectionType     = 0x01
	sectionImport   = 0x02
	sectionFunction = 0x03
	sectionMemory   = 0x05
	sectionExport   = 0x07
	sectionCode     = 0x0a
	sectionData     = 0x0b

	exportKindFunc   = 0x00
	exportKindMemory = 0x02
)

type importEntry struct {
	module, name string
	typeIdx      uint32
}

type funcEntry struct {
	typeIdx uint32
	locals  []api.ValueType
	body    []byte
}

type exportEntry struct {
	name string
	kind byte
	idx  uint32
}

type dataEntry struct {
	offset uint32
	bytes  []byte
}

// Module is a core module under construction. Imports must be added
// before functions so that function indices stay stable.
type Module struct {
	types   [][]byte
	imports []importEntry
	funcs   []funcEntry
	exports []exportEntry
	data    []dataEntry
	pages   uint32
}

// NewModule returns a module with one page of memory exported as "memory".
func NewModule() *Module {
	return &Module{pages: 1}
}

// SetMemoryPages sets the exported memory size. Zero removes the memory.
func (m *Module) SetMemoryPages(pages uint32) {
	m.pages = pages
}

func (m *Module) typeIndex(params, results []api.ValueType) uint32 {
	var t []byte
	t = append(t, 0x60)
	t = append(t, valTypes(params)...)
	t = append(t, valTypes(results)...)
	for i, existing := range m.types {
		if string(existing) == string(t) {
			return uint32(i)
		}
	}
	m.types = append(m.types, t)
	return uint32(len(m.types) - 1)
}

// Import adds a function import and returns its function index.
func (m *Module) Import(module, name string, params, results []api.ValueType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmtest: imports must be added before functions")
	}
	m.imports = append(m.imports, importEntry{module: module, name: name, typeIdx: m.typeIndex(params, results)})
	return uint32(len(m.imports) - 1)
}

// Func adds a function whose body is the concatenation of instrs and
// returns its function index. The trailing end opcode is added here.
func (m *Module) Func(params, results, locals []api.ValueType, instrs ...[]byte) uint32 {
	var body []byte
	for _, in := range instrs {
		body = append(body, in...)
	}
	m.funcs = append(m.funcs, funcEntry{typeIdx: m.typeIndex(params, results), locals: locals, body: body})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

func (m *Module) Export(name string, funcIdx uint32) {
	m.exports = append(m.exports, exportEntry{name: name, kind: exportKindFunc, idx: funcIdx})
}

// Data places b at offset when the module is instantiated.
func (m *Module) Data(offset uint32, b []byte) {
	m.data = append(m.data, dataEntry{offset: offset, bytes: b})
}

// Bytes encodes the module.
func (m *Module) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	out = appendSection(out, sectionType, vec(len(m.types), func(i int) []byte { return m.types[i] }))

	if len(m.imports) > 0 {
		out = appendSection(out, sectionImport, vec(len(m.imports), func(i int) []byte {
			imp := m.imports[i]
			b := append(name(imp.module), name(imp.name)...)
			b = append(b, 0x00)
			return append(b, uleb(imp.typeIdx)...)
		}))
	}

	if len(m.funcs) > 0 {
		out = appendSection(out, sectionFunction, vec(len(m.funcs), func(i int) []byte {
			return uleb(m.funcs[i].typeIdx)
		}))
	}

	exports := m.exports
	if m.pages > 0 {
		out = appendSection(out, sectionMemory, vec(1, func(int) []byte {
			return append([]byte{0x00}, uleb(m.pages)...)
		}))
		exports = append([]exportEntry{{name: "memory", kind: exportKindMemory}}, exports...)
	}

	if len(exports) > 0 {
		out = appendSection(out, sectionExport, vec(len(exports), func(i int) []byte {
			b := append(name(exports[i].name), exports[i].kind)
			return append(b, uleb(exports[i].idx)...)
		}))
	}

	if len(m.funcs) > 0 {
		out = appendSection(out, sectionCode, vec(len(m.funcs), func(i int) []byte {
			f := m.funcs[i]
			code := vec(len(f.locals), func(j int) []byte { return []byte{0x01, byte(f.locals[j])} })
			code = append(code, f.body...)
			code = append(code, 0x0b)
			return append(uleb(uint32(len(code))), code...)
		}))
	}

	if len(m.data) > 0 {
		out = appendSection(out, sectionData, vec(len(m.data), func(i int) []byte {
			d := m.data[i]
			b := []byte{0x00}
			b = append(b, I32Const(int32(d.offset))...)
			b = append(b, 0x0b)
			b = append(b, uleb(uint32(len(d.bytes)))...)
			return append(b, d.bytes...)
		}))
	}

	return out
}

// Component wraps core modules in a layer 1 component envelope.
func Component(cores ...[]byte) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x0d, 0x00, 0x01, 0x00}
	for _, core := range cores {
		out = appendSection(out, 0x01, core)
	}
	return out
}

func appendSection(out []byte, id byte, content []byte) []byte {
	out = append(out, id)
	out = append(out, uleb(uint32(len(content)))...)
	return append(out, content...)
}

func vec(n int, item func(int) []byte) []byte {
	out := uleb(uint32(n))
	for i := 0; i < n; i++ {
		out = append(out, item(i)...)
	}
	return out
}

func valTypes(types []api.ValueType) []byte {
	return vec(len(types), func(i int) []byte { return []byte{byte(types[i])} })
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func uleb(v uint32) []byte {
	return binary.AppendUvarint(nil, uint64(v))
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

// LE32 is v in little-endian order, as guests store it.
func LE32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}
