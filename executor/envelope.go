package executor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

const (
	coreModuleVersion = 0x01

	componentSectionCoreModule = 1
	componentSectionComponent  = 4
)

// coreModule returns the core module inside wasm. Core modules are
// returned unchanged. A component envelope must wrap exactly one core module
// and no nested components.
func coreModule(wasm []byte) ([]byte, error) {
	if len(wasm) < 8 || !bytes.Equal(wasm[:4], wasmMagic) {
		return nil, &LoadError{Reason: "missing wasm magic header"}
	}

	version := wasm[4:8]
	if version[0] == coreModuleVersion && version[1] == 0 && version[2] == 0 && version[3] == 0 {
		return wasm, nil
	}
	// Components use version 0x0d with layer 1.
	if version[2] != 0x01 || version[3] != 0x00 {
		return nil, &LoadError{Reason: fmt.Sprintf("unsupported wasm version %x", version)}
	}

	var modules [][]byte
	rest := wasm[8:]
	for len(rest) > 0 {
		id := rest[0]
		size, n := binary.Uvarint(rest[1:])
		if n <= 0 {
			return nil, &LoadError{Reason: "malformed component section header"}
		}
		rest = rest[1+n:]
		if size > uint64(len(rest)) {
			return nil, &LoadError{Reason: fmt.Sprintf("component section %d overruns binary", id)}
		}
		section := rest[:size]
		rest = rest[size:]

		switch id {
		case componentSectionCoreModule:
			modules = append(modules, section)
		case componentSectionComponent:
			return nil, &LoadError{Reason: "nested components are not supported"}
		}
	}

	switch len(modules) {
	case 0:
		return nil, &LoadError{Reason: "component has no core module"}
	case 1:
		return modules[0], nil
	default:
		return nil, &LoadError{
			Reason: "component links multiple core modules",
			Err:    errors.New("only components wrapping a single core module can be loaded"),
		}
	}
}
