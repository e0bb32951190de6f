package wasmtest

var (
	Unreachable = []byte{0x00}
	Drop        = []byte{0x1a}
	I32Add      = []byte{0x6a}
	I32And      = []byte{0x71}
	I32Eq       = []byte{0x46}
)

func I32Const(v int32) []byte { return append([]byte{0x41}, sleb(v)...) }

func LocalGet(i uint32) []byte { return append([]byte{0x20}, uleb(i)...) }

func LocalSet(i uint32) []byte { return append([]byte{0x21}, uleb(i)...) }

func Call(funcIdx uint32) []byte { return append([]byte{0x10}, uleb(funcIdx)...) }

// I32Load loads from the address on the stack plus offset.
func I32Load(offset uint32) []byte { return append([]byte{0x28, 0x02}, uleb(offset)...) }

// I32Store stores the value on top of the stack at the address below it plus offset.
func I32Store(offset uint32) []byte { return append([]byte{0x36, 0x02}, uleb(offset)...) }

// IfElseI32 pops a condition and runs then or els, each of which must leave one i32.
func IfElseI32(then, els []byte) []byte {
	out := []byte{0x04, 0x7f}
	out = append(out, then...)
	out = append(out, 0x05)
	out = append(out, els...)
	return append(out, 0x0b)
}

// LoopForever never returns on its own.
func LoopForever() []byte {
	return []byte{0x03, 0x40, 0x0c, 0x00, 0x0b}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
