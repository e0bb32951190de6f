package registry

import (
	"fmt"
	"sync"

	"github.com/ruteri/carol-node/executor"
	"github.com/ruteri/carol-node/interfaces"
)

// Registry is the in-memory binary and machine store.
type Registry struct {
	mutex    sync.RWMutex
	binaries map[interfaces.BinaryID]*executor.CompiledBinary
	machines map[interfaces.MachineID]interfaces.MachineRecord
}

var _ executor.Store = (*Registry)(nil)

func New() *Registry {
	return &Registry{
		binaries: make(map[interfaces.BinaryID]*executor.CompiledBinary),
		machines: make(map[interfaces.MachineID]interfaces.MachineRecord),
	}
}

// GetBinary returns the compiled binary or interfaces.ErrBinaryNotFound.
func (r *Registry) GetBinary(id interfaces.BinaryID) (*executor.CompiledBinary, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	binary, ok := r.binaries[id]
	if !ok {
		return nil, interfaces.ErrBinaryNotFound
	}
	return binary, nil
}

// HasBinary reports whether id is stored.
func (r *Registry) HasBinary(id interfaces.BinaryID) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.binaries[id]
	return ok
}

// InsertBinary stores binary under its id. If the id is already present
// the stored binary is kept and existed is true.
func (r *Registry) InsertBinary(binary *executor.CompiledBinary) (existed bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.binaries[binary.ID()]; ok {
		return true
	}
	r.binaries[binary.ID()] = binary
	return false
}

// GetMachine returns the machine record or interfaces.ErrMachineNotFound.
func (r *Registry) GetMachine(id interfaces.MachineID) (interfaces.MachineRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record, ok := r.machines[id]
	if !ok {
		return interfaces.MachineRecord{}, interfaces.ErrMachineNotFound
	}
	return record, nil
}

// InsertMachine creates the machine (binaryID, params) and returns its id.
// Creating the same machine again is a no-op that reports existed. The
// binary must already be stored.
func (r *Registry) InsertMachine(binaryID interfaces.BinaryID, params []byte) (id interfaces.MachineID, existed bool, err error) {
	id = interfaces.NewMachineID(binaryID, params)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.binaries[binaryID]; !ok {
		return id, false, fmt.Errorf("creating machine %s: %w", id, interfaces.ErrBinaryNotFound)
	}
	if _, ok := r.machines[id]; ok {
		return id, true, nil
	}
	r.machines[id] = interfaces.MachineRecord{
		BinaryID: binaryID,
		Params:   append([]byte{}, params...),
	}
	return id, false, nil
}

func (r *Registry) BinaryCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.binaries)
}

func (r *Registry) MachineCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.machines)
}
