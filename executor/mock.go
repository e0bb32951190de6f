package executor

import (
	"context"

	"github.com/ruteri/carol-node/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockExecutor mocks the Executor surface used by the HTTP layer.
type MockExecutor struct {
	mock.Mock
}

// Load mocks the Load method
func (m *MockExecutor) Load(ctx context.Context, wasm []byte) (*CompiledBinary, error) {
	args := m.Called(ctx, wasm)
	binary, _ := args.Get(0).(*CompiledBinary)
	return binary, args.Error(1)
}

// Activate mocks the Activate method
func (m *MockExecutor) Activate(ctx context.Context, binary *CompiledBinary, params []byte, name string, input []byte) ([]byte, error) {
	args := m.Called(ctx, binary, params, name, input)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

// HandleHTTP mocks the HandleHTTP method
func (m *MockExecutor) HandleHTTP(ctx context.Context, binary *CompiledBinary, params []byte, req interfaces.HTTPRequest) (interfaces.HTTPResponse, error) {
	args := m.Called(ctx, binary, params, req)
	return args.Get(0).(interfaces.HTTPResponse), args.Error(1)
}

// DescribeAPI mocks the DescribeAPI method
func (m *MockExecutor) DescribeAPI(ctx context.Context, binary *CompiledBinary) ([]interfaces.ActivationDescriptor, error) {
	args := m.Called(ctx, binary)
	descriptors, _ := args.Get(0).([]interfaces.ActivationDescriptor)
	return descriptors, args.Error(1)
}
