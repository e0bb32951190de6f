package registry

import (
	"github.com/ruteri/carol-node/executor"
	"github.com/ruteri/carol-node/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the Registry surface used by the HTTP layer.
type MockRegistry struct {
	mock.Mock
}

// GetBinary mocks the GetBinary method
func (m *MockRegistry) GetBinary(id interfaces.BinaryID) (*executor.CompiledBinary, error) {
	args := m.Called(id)
	binary, _ := args.Get(0).(*executor.CompiledBinary)
	return binary, args.Error(1)
}

// HasBinary mocks the HasBinary method
func (m *MockRegistry) HasBinary(id interfaces.BinaryID) bool {
	args := m.Called(id)
	return args.Bool(0)
}

// InsertBinary mocks the InsertBinary method
func (m *MockRegistry) InsertBinary(binary *executor.CompiledBinary) bool {
	args := m.Called(binary)
	return args.Bool(0)
}

// GetMachine mocks the GetMachine method
func (m *MockRegistry) GetMachine(id interfaces.MachineID) (interfaces.MachineRecord, error) {
	args := m.Called(id)
	return args.Get(0).(interfaces.MachineRecord), args.Error(1)
}

// InsertMachine mocks the InsertMachine method
func (m *MockRegistry) InsertMachine(binaryID interfaces.BinaryID, params []byte) (interfaces.MachineID, bool, error) {
	args := m.Called(binaryID, params)
	return args.Get(0).(interfaces.MachineID), args.Bool(1), args.Error(2)
}
