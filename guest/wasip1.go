//go:build wasip1

package guest

import (
	"fmt"
	"unsafe"

	"github.com/ruteri/carol-node/interfaces"
)

var served *Machine

// keep holds buffers handed to the host so the collector leaves them alone
// for the rest of the call.
var keep [][]byte

// Serve installs m behind the binary's exports. Call it from init: reactor
// binaries never run main. Handlers reached through handle-http see nil
// params and a host that refuses egress and signing.
func Serve(m *Machine) {
	served = m
}

// Capabilities is the host as seen from the running binary.
var Capabilities Host = wasiHost{}

//go:wasmexport cabi_realloc
func cabiRealloc(oldPtr, oldSize, align, newSize uint32) uint32 {
	if newSize == 0 {
		return align
	}
	buf := make([]byte, newSize)
	if oldPtr != 0 && oldSize != 0 {
		copy(buf, load(oldPtr, min(oldSize, newSize)))
	}
	keep = append(keep, buf)
	return pointer(buf)
}

//go:wasmexport activate
func exportActivate(paramsPtr, paramsLen, namePtr, nameLen, inputPtr, inputLen uint32) uint32 {
	defer reportPanic()
	out, err := machine().Activate(Capabilities, loadCopy(paramsPtr, paramsLen), string(load(namePtr, nameLen)), loadCopy(inputPtr, inputLen))
	if err != nil {
		panic(err.Error())
	}
	return output(out)
}

//go:wasmexport handle-http
func exportHandleHTTP(reqPtr, reqLen uint32) uint32 {
	defer reportPanic()
	var req interfaces.HTTPRequest
	if err := interfaces.UnmarshalWire(loadCopy(reqPtr, reqLen), &req); err != nil {
		panic("decoding request: " + err.Error())
	}
	resp := machine().HandleHTTP(Capabilities, nil, req)
	return marshalOutput(resp)
}

//go:wasmexport describe-api
func exportDescribeAPI() uint32 {
	defer reportPanic()
	return marshalOutput(machine().Describe())
}

func machine() *Machine {
	if served == nil {
		panic("guest: Serve was not called")
	}
	return served
}

func reportPanic() {
	if r := recover(); r != nil {
		msg := fmt.Sprint(r)
		setPanicMessage(pointer([]byte(msg)), uint32(len(msg)))
		panic(r)
	}
}

func marshalOutput(v any) uint32 {
	out, err := interfaces.MarshalWire(v)
	if err != nil {
		panic("encoding output: " + err.Error())
	}
	return output(out)
}

// output returns the address of an 8-byte (ptr, len) record for out.
func output(out []byte) uint32 {
	record := make([]uint32, 2)
	record[0] = pointer(out)
	record[1] = uint32(len(out))
	keep = append(keep, out, unsafe.Slice((*byte)(unsafe.Pointer(&record[0])), 8))
	return uint32(uintptr(unsafe.Pointer(&record[0])))
}

func pointer(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	return uint32(uintptr(unsafe.Pointer(&b[0])))
}

// load views guest memory at ptr. On wasm32 a pointer is an offset into the
// single linear memory, which the collector never moves, so any address the
// host passes in is valid for the duration of the call.
func load(ptr, length uint32) []byte {
	if length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
}

func loadCopy(ptr, length uint32) []byte {
	return append([]byte(nil), load(ptr, length)...)
}
