package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ruteri/carol-node/interfaces"
)

// EnvironmentKind names the capability set linked into a guest call.
type EnvironmentKind int

const (
	// EnvActivation has every capability and is bound to the activated machine.
	EnvActivation EnvironmentKind = iota
	// EnvHTTP serves inbound HTTP: logging and activations only.
	EnvHTTP
	// EnvBinaryAPI describes a binary. It has logging only.
	EnvBinaryAPI
)

func (k EnvironmentKind) String() string {
	switch k {
	case EnvActivation:
		return "activation"
	case EnvHTTP:
		return "http"
	case EnvBinaryAPI:
		return "binary-api"
	default:
		return "unknown"
	}
}

// environment is the per-call host state. Capabilities beyond logging are
// expressed as optional interfaces that a variant either implements or not.
type environment interface {
	Kind() EnvironmentKind
	state() *callState
}

type signingCapability interface {
	StaticPublicKey() []byte
	StaticSign(message []byte) []byte
}

type egressCapability interface {
	Egress(ctx context.Context, req interfaces.HTTPRequest) (interfaces.HTTPResponse, error)
}

type activationCapability interface {
	SelfActivate(ctx context.Context, name string, input []byte) ([]byte, error)
	ActivateMachine(ctx context.Context, id interfaces.MachineID, name string, input []byte) ([]byte, error)
}

// callState is shared by all variants: logging and panic capture.
type callState struct {
	log *slog.Logger

	mu           sync.Mutex
	panicMessage *string
}

func (s *callState) state() *callState { return s }

func (s *callState) info(msg string) {
	s.log.Info(msg, "source", "guest")
}

func (s *callState) setPanicMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panicMessage = &msg
}

func (s *callState) panicked() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicMessage == nil {
		return "", false
	}
	return *s.panicMessage, true
}

// machineScope is what the machine-bound variants know about their machine.
type machineScope struct {
	exec    *Executor
	binary  *CompiledBinary
	params  []byte
	machine interfaces.MachineID
}

func (m *machineScope) SelfActivate(ctx context.Context, name string, input []byte) ([]byte, error) {
	return m.exec.Activate(ctx, m.binary, m.params, name, input)
}

func (m *machineScope) ActivateMachine(ctx context.Context, id interfaces.MachineID, name string, input []byte) ([]byte, error) {
	return m.exec.ActivateByID(ctx, id, name, input)
}

type activationEnv struct {
	callState
	machineScope
}

func (e *activationEnv) Kind() EnvironmentKind { return EnvActivation }

func (e *activationEnv) StaticPublicKey() []byte {
	return e.exec.signer.PublicKeyUncompressed()
}

func (e *activationEnv) StaticSign(message []byte) []byte {
	return e.exec.signer.Sign(e.machine, message)
}

func (e *activationEnv) Egress(ctx context.Context, req interfaces.HTTPRequest) (interfaces.HTTPResponse, error) {
	return e.exec.egress(ctx, req)
}

type httpEnv struct {
	callState
	machineScope
}

func (e *httpEnv) Kind() EnvironmentKind { return EnvHTTP }

type binaryAPIEnv struct {
	callState
}

func (e *binaryAPIEnv) Kind() EnvironmentKind { return EnvBinaryAPI }

func signingFor(env environment, capability string) (signingCapability, error) {
	c, ok := env.(signingCapability)
	if !ok {
		return nil, unavailable(env, capability)
	}
	return c, nil
}

func egressFor(env environment, capability string) (egressCapability, error) {
	c, ok := env.(egressCapability)
	if !ok {
		return nil, unavailable(env, capability)
	}
	return c, nil
}

func activationFor(env environment, capability string) (activationCapability, error) {
	c, ok := env.(activationCapability)
	if !ok {
		return nil, unavailable(env, capability)
	}
	return c, nil
}

func unavailable(env environment, capability string) error {
	return capabilityError(StatusUnavailable, capability, fmt.Errorf("not available in the %s environment", env.Kind()))
}

type environmentKey struct{}

type depthKey struct{}

func withEnvironment(ctx context.Context, env environment) context.Context {
	return context.WithValue(ctx, environmentKey{}, env)
}

func environmentFrom(ctx context.Context) (environment, bool) {
	env, ok := ctx.Value(environmentKey{}).(environment)
	return env, ok
}

// activationDepth is the number of activations on the current call chain.
func activationDepth(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

func withActivationDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}
