package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruteri/carol-node/interfaces"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

const (
	moduleLog      = "carol:machine/log"
	moduleGlobal   = "carol:machine/global"
	moduleHTTP     = "carol:machine/http"
	moduleMachines = "carol:machine/machines"
)

type hostFunction struct {
	module  string
	name    string
	params  []api.ValueType
	results []api.ValueType
	fn      api.GoModuleFunc
}

// capabilities is every host function a guest may import. Which of them
// succeed depends on the environment of the call.
var capabilities = []hostFunction{
	{moduleLog, "info", i32s(2), nil, hostLogInfo},
	{moduleLog, "set-panic-message", i32s(2), nil, hostSetPanicMessage},
	{moduleGlobal, "bls-static-pubkey", i32s(1), nil, hostBLSStaticPubkey},
	{moduleGlobal, "bls-static-sign", i32s(3), nil, hostBLSStaticSign},
	{moduleHTTP, "execute", i32s(3), nil, hostHTTPExecute},
	{moduleMachines, "self-activate", i32s(5), nil, hostSelfActivate},
	{moduleMachines, "activate-machine", i32s(7), nil, hostActivateMachine},
}

func lookupCapability(module, name string) (hostFunction, bool) {
	for _, c := range capabilities {
		if c.module == module && c.name == name {
			return c, true
		}
	}
	return hostFunction{}, false
}

// instantiateCapabilities registers one host module per capability namespace.
func instantiateCapabilities(ctx context.Context, r wazero.Runtime) error {
	builders := make(map[string]wazero.HostModuleBuilder)
	var order []string
	for _, c := range capabilities {
		b, ok := builders[c.module]
		if !ok {
			b = r.NewHostModuleBuilder(c.module)
			order = append(order, c.module)
		}
		builders[c.module] = b.NewFunctionBuilder().
			WithGoModuleFunction(c.fn, c.params, c.results).
			Export(c.name)
	}
	for _, module := range order {
		if _, err := builders[module].Instantiate(ctx); err != nil {
			return fmt.Errorf("instantiating host module %s: %w", module, err)
		}
	}
	return nil
}

// Host functions trap the guest by panicking; wazero turns the panic into
// an error returned from the guest call.

func mustEnvironment(ctx context.Context) environment {
	env, ok := environmentFrom(ctx)
	if !ok {
		panic(errors.New("host function called outside of a guest call"))
	}
	return env
}

func mustRead(mod api.Module, ptr, length uint64) []byte {
	b, err := readGuest(mod, api.DecodeU32(ptr), api.DecodeU32(length))
	if err != nil {
		panic(err)
	}
	return b
}

// complete writes the outcome of a capability into the guest's result record.
func complete(ctx context.Context, mod api.Module, env environment, ret uint64, payload []byte, err error) {
	status := StatusOK
	if err != nil {
		status = statusOf(err)
		payload = []byte(errorMessage(err))
		env.state().log.Debug("capability failed", "status", status.String(), "err", err)
	}
	if werr := writeResult(ctx, mod, api.DecodeU32(ret), status, payload); werr != nil {
		panic(werr)
	}
}

func statusOf(err error) CapabilityStatus {
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return StatusCalleePanicked
	}
	var faultErr *FaultError
	if errors.As(err, &faultErr) {
		return StatusCalleeFault
	}
	var capErr *CapabilityError
	if errors.As(err, &capErr) {
		return capErr.Status
	}
	if errors.Is(err, interfaces.ErrNotFound) {
		return StatusNotFound
	}
	return StatusUnexpected
}

func errorMessage(err error) string {
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return panicErr.Message
	}
	return err.Error()
}

func hostLogInfo(ctx context.Context, mod api.Module, stack []uint64) {
	env := mustEnvironment(ctx)
	env.state().info(string(mustRead(mod, stack[0], stack[1])))
}

func hostSetPanicMessage(ctx context.Context, mod api.Module, stack []uint64) {
	env := mustEnvironment(ctx)
	env.state().setPanicMessage(string(mustRead(mod, stack[0], stack[1])))
}

func hostBLSStaticPubkey(ctx context.Context, mod api.Module, stack []uint64) {
	env := mustEnvironment(ctx)
	signer, err := signingFor(env, "global.bls-static-pubkey")
	if err != nil {
		complete(ctx, mod, env, stack[0], nil, err)
		return
	}
	complete(ctx, mod, env, stack[0], signer.StaticPublicKey(), nil)
}

func hostBLSStaticSign(ctx context.Context, mod api.Module, stack []uint64) {
	env := mustEnvironment(ctx)
	message := mustRead(mod, stack[0], stack[1])
	signer, err := signingFor(env, "global.bls-static-sign")
	if err != nil {
		complete(ctx, mod, env, stack[2], nil, err)
		return
	}
	complete(ctx, mod, env, stack[2], signer.StaticSign(message), nil)
}

func hostHTTPExecute(ctx context.Context, mod api.Module, stack []uint64) {
	const capability = "http.execute"
	env := mustEnvironment(ctx)
	raw := mustRead(mod, stack[0], stack[1])
	ret := stack[2]

	client, err := egressFor(env, capability)
	if err != nil {
		complete(ctx, mod, env, ret, nil, err)
		return
	}

	var req interfaces.HTTPRequest
	if err := interfaces.UnmarshalWire(raw, &req); err != nil {
		complete(ctx, mod, env, ret, nil, capabilityError(StatusUnexpected, capability, fmt.Errorf("decoding request: %w", err)))
		return
	}

	resp, err := client.Egress(ctx, req)
	if err != nil {
		complete(ctx, mod, env, ret, nil, err)
		return
	}
	encoded, err := interfaces.MarshalWire(resp)
	if err != nil {
		complete(ctx, mod, env, ret, nil, capabilityError(StatusUnexpected, capability, err))
		return
	}
	complete(ctx, mod, env, ret, encoded, nil)
}

func hostSelfActivate(ctx context.Context, mod api.Module, stack []uint64) {
	env := mustEnvironment(ctx)
	name := string(mustRead(mod, stack[0], stack[1]))
	input := mustRead(mod, stack[2], stack[3])
	ret := stack[4]

	activator, err := activationFor(env, "machines.self-activate")
	if err != nil {
		complete(ctx, mod, env, ret, nil, err)
		return
	}
	out, err := activator.SelfActivate(ctx, name, input)
	complete(ctx, mod, env, ret, out, err)
}

func hostActivateMachine(ctx context.Context, mod api.Module, stack []uint64) {
	const capability = "machines.activate-machine"
	env := mustEnvironment(ctx)
	rawID := mustRead(mod, stack[0], stack[1])
	name := string(mustRead(mod, stack[2], stack[3]))
	input := mustRead(mod, stack[4], stack[5])
	ret := stack[6]

	activator, err := activationFor(env, capability)
	if err != nil {
		complete(ctx, mod, env, ret, nil, err)
		return
	}
	id, err := interfaces.MachineIDFromBytes(rawID)
	if err != nil {
		complete(ctx, mod, env, ret, nil, capabilityError(StatusUnexpected, capability, err))
		return
	}
	out, err := activator.ActivateMachine(ctx, id, name, input)
	complete(ctx, mod, env, ret, out, err)
}
