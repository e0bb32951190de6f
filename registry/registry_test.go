package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ruteri/carol-node/executor"
	"github.com/ruteri/carol-node/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubBinary(content string) *executor.CompiledBinary {
	return executor.StubBinary(interfaces.NewBinaryID([]byte(content)))
}

func TestRegistry_Binaries(t *testing.T) {
	r := New()
	b := stubBinary("binary-1")

	_, err := r.GetBinary(b.ID())
	require.ErrorIs(t, err, interfaces.ErrBinaryNotFound)
	require.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.False(t, r.HasBinary(b.ID()))

	assert.False(t, r.InsertBinary(b), "first insert is new")
	assert.True(t, r.InsertBinary(stubBinary("binary-1")), "second insert reports existing")

	got, err := r.GetBinary(b.ID())
	require.NoError(t, err)
	assert.Same(t, b, got, "the first stored binary is kept")
	assert.True(t, r.HasBinary(b.ID()))
	assert.Equal(t, 1, r.BinaryCount())
}

func TestRegistry_MachinesRequireBinary(t *testing.T) {
	r := New()
	b := stubBinary("binary-1")

	_, _, err := r.InsertMachine(b.ID(), []byte("params"))
	require.ErrorIs(t, err, interfaces.ErrBinaryNotFound)
	assert.Equal(t, 0, r.MachineCount())
}

func TestRegistry_MachinesAreIdempotent(t *testing.T) {
	r := New()
	b := stubBinary("binary-1")
	r.InsertBinary(b)

	params := []byte("params")
	id1, existed, err := r.InsertMachine(b.ID(), params)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, interfaces.NewMachineID(b.ID(), params), id1)

	id2, existed, err := r.InsertMachine(b.ID(), []byte("params"))
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, id1, id2)

	id3, existed, err := r.InsertMachine(b.ID(), []byte("paramz"))
	require.NoError(t, err)
	assert.False(t, existed)
	assert.NotEqual(t, id1, id3)

	params[0] = 'X'
	record, err := r.GetMachine(id1)
	require.NoError(t, err)
	assert.Equal(t, interfaces.MachineRecord{BinaryID: b.ID(), Params: []byte("params")}, record, "stored params are a copy")

	_, err = r.GetMachine(interfaces.MachineID{})
	require.ErrorIs(t, err, interfaces.ErrMachineNotFound)
	assert.Equal(t, 2, r.MachineCount())
}

func TestRegistry_ConcurrentInserts(t *testing.T) {
	r := New()
	b := stubBinary("binary-1")
	r.InsertBinary(b)

	const workers = 16
	const machines = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < machines; i++ {
				_, existed, err := r.InsertMachine(b.ID(), []byte(fmt.Sprintf("m-%d", i)))
				if err != nil {
					t.Error(err)
					return
				}
				if !existed {
					mu.Lock()
					created++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, machines, created, "each machine is created exactly once")
	assert.Equal(t, machines, r.MachineCount())
}
