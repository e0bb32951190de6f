package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

const (
	exportMemory      = "memory"
	exportRealloc     = "cabi_realloc"
	exportActivate    = "activate"
	exportHandleHTTP  = "handle-http"
	exportDescribeAPI = "describe-api"
	exportInitialize  = "_initialize"
)

var errGuestMemory = errors.New("guest memory access out of bounds")

func i32s(n int) []api.ValueType {
	types := make([]api.ValueType, n)
	for i := range types {
		types[i] = api.ValueTypeI32
	}
	return types
}

// guestAlloc reserves size bytes in guest memory through cabi_realloc.
func guestAlloc(ctx context.Context, mod api.Module, size uint32) (uint32, error) {
	realloc := mod.ExportedFunction(exportRealloc)
	if realloc == nil {
		return 0, fmt.Errorf("guest does not export %s", exportRealloc)
	}
	res, err := realloc.Call(ctx, 0, 0, 1, api.EncodeU32(size))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", exportRealloc, err)
	}
	return api.DecodeU32(res[0]), nil
}

// writeGuest copies data into freshly allocated guest memory.
func writeGuest(ctx context.Context, mod api.Module, data []byte) (ptr, length uint32, err error) {
	length = uint32(len(data))
	ptr, err = guestAlloc(ctx, mod, length)
	if err != nil {
		return 0, 0, err
	}
	if !mod.Memory().Write(ptr, data) {
		return 0, 0, errGuestMemory
	}
	return ptr, length, nil
}

// readGuest copies length bytes at ptr out of guest memory.
func readGuest(mod api.Module, ptr, length uint32) ([]byte, error) {
	buf, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return nil, errGuestMemory
	}
	return bytes.Clone(buf), nil
}

// readRecord follows the (ptr u32, len u32) record at addr.
func readRecord(mod api.Module, addr uint32) ([]byte, error) {
	mem := mod.Memory()
	ptr, ok := mem.ReadUint32Le(addr)
	if !ok {
		return nil, errGuestMemory
	}
	length, ok := mem.ReadUint32Le(addr + 4)
	if !ok {
		return nil, errGuestMemory
	}
	return readGuest(mod, ptr, length)
}

// writeResult fills the 12-byte capability result record at ret.
func writeResult(ctx context.Context, mod api.Module, ret uint32, status CapabilityStatus, payload []byte) error {
	ptr, length, err := writeGuest(ctx, mod, payload)
	if err != nil {
		return err
	}
	mem := mod.Memory()
	if !mem.WriteUint32Le(ret, uint32(status)) ||
		!mem.WriteUint32Le(ret+4, ptr) ||
		!mem.WriteUint32Le(ret+8, length) {
		return errGuestMemory
	}
	return nil
}
