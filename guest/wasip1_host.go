//go:build wasip1

package guest

import (
	"unsafe"

	"github.com/ruteri/carol-node/interfaces"
)

//go:wasmimport carol:machine/log info
func logInfo(ptr, length uint32)

//go:wasmimport carol:machine/log set-panic-message
func setPanicMessage(ptr, length uint32)

//go:wasmimport carol:machine/global bls-static-pubkey
func blsStaticPubkey(ret uint32)

//go:wasmimport carol:machine/global bls-static-sign
func blsStaticSign(ptr, length, ret uint32)

//go:wasmimport carol:machine/http execute
func httpExecute(ptr, length, ret uint32)

//go:wasmimport carol:machine/machines self-activate
func selfActivate(namePtr, nameLen, inputPtr, inputLen, ret uint32)

//go:wasmimport carol:machine/machines activate-machine
func activateMachine(idPtr, idLen, namePtr, nameLen, inputPtr, inputLen, ret uint32)

// result is the 12-byte record capabilities write their outcome to.
type result struct {
	status uint32
	ptr    uint32
	len    uint32
}

func (r *result) addr() uint32 {
	return uint32(uintptr(unsafe.Pointer(r)))
}

func (r *result) take(capability string) ([]byte, error) {
	payload := loadCopy(r.ptr, r.len)
	if r.status != StatusOK {
		return nil, &CapabilityError{Capability: capability, Status: r.status, Message: string(payload)}
	}
	return payload, nil
}

type wasiHost struct{}

func (wasiHost) Log(message string) {
	b := []byte(message)
	logInfo(pointer(b), uint32(len(b)))
}

func (wasiHost) StaticPublicKey() ([]byte, error) {
	var r result
	blsStaticPubkey(r.addr())
	return r.take("bls-static-pubkey")
}

func (wasiHost) Sign(message []byte) ([]byte, error) {
	var r result
	blsStaticSign(pointer(message), uint32(len(message)), r.addr())
	return r.take("bls-static-sign")
}

func (wasiHost) HTTP(req interfaces.HTTPRequest) (interfaces.HTTPResponse, error) {
	encoded, err := interfaces.MarshalWire(req)
	if err != nil {
		return interfaces.HTTPResponse{}, err
	}
	var r result
	httpExecute(pointer(encoded), uint32(len(encoded)), r.addr())
	payload, err := r.take("http.execute")
	if err != nil {
		return interfaces.HTTPResponse{}, err
	}
	var resp interfaces.HTTPResponse
	if err := interfaces.UnmarshalWire(payload, &resp); err != nil {
		return interfaces.HTTPResponse{}, err
	}
	return resp, nil
}

func (wasiHost) SelfActivate(name string, input []byte) ([]byte, error) {
	n := []byte(name)
	var r result
	selfActivate(pointer(n), uint32(len(n)), pointer(input), uint32(len(input)), r.addr())
	return r.take("self-activate")
}

func (wasiHost) ActivateMachine(id interfaces.MachineID, name string, input []byte) ([]byte, error) {
	n := []byte(name)
	var r result
	activateMachine(pointer(id[:]), uint32(len(id)), pointer(n), uint32(len(n)), pointer(input), uint32(len(input)), r.addr())
	return r.take("activate-machine")
}
