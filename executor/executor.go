package executor

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ruteri/carol-node/interfaces"
	"github.com/ruteri/carol-node/metrics"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Store is the read side of the registries. The engine uses it to resolve
// machines addressed by id from inside a guest.
type Store interface {
	GetBinary(id interfaces.BinaryID) (*CompiledBinary, error)
	GetMachine(id interfaces.MachineID) (interfaces.MachineRecord, error)
}

// Executor compiles guest binaries and runs them. Every call gets a fresh
// instance that is closed when the call returns. It is safe for concurrent use.
type Executor struct {
	cfg     Config
	runtime wazero.Runtime
	store   Store
	signer  interfaces.StaticSigner
	client  *http.Client
	log     *slog.Logger
	metrics *metrics.EngineMetrics
	wasi    map[string]api.FunctionDefinition
}

// New creates the wazero runtime and links the capability host modules into it.
func New(ctx context.Context, cfg Config, store Store, signer interfaces.StaticSigner, log *slog.Logger, m *metrics.EngineMetrics) (*Executor, error) {
	defaults := DefaultConfig()
	if cfg.MaxActivationDepth <= 0 {
		cfg.MaxActivationDepth = defaults.MaxActivationDepth
	}
	if cfg.MaxEgressResponseBytes <= 0 {
		cfg.MaxEgressResponseBytes = defaults.MaxEgressResponseBytes
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("instantiating wasi: %w", err)
	}
	if err := instantiateCapabilities(ctx, runtime); err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	client := cfg.EgressClient
	if client == nil {
		client = &http.Client{Timeout: cfg.EgressTimeout}
	}

	return &Executor{
		cfg:     cfg,
		runtime: runtime,
		store:   store,
		signer:  signer,
		client:  client,
		log:     log,
		metrics: m,
		wasi:    runtime.Module(wasi_snapshot_preview1.ModuleName).ExportedFunctionDefinitions(),
	}, nil
}

// Close releases the runtime and every compiled binary.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Activate runs the named activation of the machine (binary, params) on
// input. The machine id the guest is bound to is derived here, never taken
// from the caller.
//
// A guest failure is a *PanicError if the guest reported a panic message,
// otherwise a *FaultError. Other errors come from the host.
func (e *Executor) Activate(ctx context.Context, binary *CompiledBinary, params []byte, name string, input []byte) ([]byte, error) {
	depth := activationDepth(ctx) + 1
	if depth > e.cfg.MaxActivationDepth {
		return nil, capabilityError(StatusDepthExceeded, "activate",
			fmt.Errorf("depth %d exceeds limit %d", depth, e.cfg.MaxActivationDepth))
	}
	ctx = withActivationDepth(ctx, depth)

	machine := interfaces.NewMachineID(binary.ID(), params)
	log := e.log.With("machine_id", machine.String())
	env := &activationEnv{
		callState:    callState{log: log},
		machineScope: machineScope{exec: e, binary: binary, params: params, machine: machine},
	}

	log.Info("begin activation",
		"activation", name,
		"params", hexPrefix(params),
		"input", hexPrefix(input),
		"depth", depth)

	return e.run(ctx, binary, env, exportActivate, func(ctx context.Context, mod api.Module) ([]byte, error) {
		args := make([]uint64, 0, 6)
		for _, arg := range [][]byte{params, []byte(name), input} {
			ptr, length, err := writeGuest(ctx, mod, arg)
			if err != nil {
				return nil, err
			}
			args = append(args, api.EncodeU32(ptr), api.EncodeU32(length))
		}
		res, err := mod.ExportedFunction(exportActivate).Call(ctx, args...)
		if err != nil {
			return nil, err
		}
		return readRecord(mod, api.DecodeU32(res[0]))
	})
}

// ActivateByID looks the machine up in the store and activates it.
func (e *Executor) ActivateByID(ctx context.Context, id interfaces.MachineID, name string, input []byte) ([]byte, error) {
	record, err := e.store.GetMachine(id)
	if err != nil {
		return nil, err
	}
	binary, err := e.store.GetBinary(record.BinaryID)
	if err != nil {
		return nil, err
	}
	return e.Activate(ctx, binary, record.Params, name, input)
}

// HandleHTTP hands req to the guest's handle-http export. The response is
// returned as the guest produced it.
func (e *Executor) HandleHTTP(ctx context.Context, binary *CompiledBinary, params []byte, req interfaces.HTTPRequest) (interfaces.HTTPResponse, error) {
	machine := interfaces.NewMachineID(binary.ID(), params)
	env := &httpEnv{
		callState:    callState{log: e.log.With("machine_id", machine.String())},
		machineScope: machineScope{exec: e, binary: binary, params: params, machine: machine},
	}

	encoded, err := interfaces.MarshalWire(req)
	if err != nil {
		return interfaces.HTTPResponse{}, fmt.Errorf("encoding request: %w", err)
	}

	out, err := e.run(ctx, binary, env, exportHandleHTTP, func(ctx context.Context, mod api.Module) ([]byte, error) {
		ptr, length, err := writeGuest(ctx, mod, encoded)
		if err != nil {
			return nil, err
		}
		res, err := mod.ExportedFunction(exportHandleHTTP).Call(ctx, api.EncodeU32(ptr), api.EncodeU32(length))
		if err != nil {
			return nil, err
		}
		return readRecord(mod, api.DecodeU32(res[0]))
	})
	if err != nil {
		return interfaces.HTTPResponse{}, err
	}

	var resp interfaces.HTTPResponse
	if err := interfaces.UnmarshalWire(out, &resp); err != nil {
		env.log.Error("guest returned a malformed http response", "err", err)
		return interfaces.HTTPResponse{}, &FaultError{Err: fmt.Errorf("decoding response: %w", err)}
	}
	if resp.Status < 100 || resp.Status > 999 {
		return interfaces.HTTPResponse{}, &FaultError{Err: fmt.Errorf("guest returned invalid status %d", resp.Status)}
	}
	return resp, nil
}

// DescribeAPI lists the activations binary exposes. The guest runs without
// any capability besides logging.
func (e *Executor) DescribeAPI(ctx context.Context, binary *CompiledBinary) ([]interfaces.ActivationDescriptor, error) {
	env := &binaryAPIEnv{
		callState: callState{log: e.log.With("binary_id", binary.ID().String())},
	}

	out, err := e.run(ctx, binary, env, exportDescribeAPI, func(ctx context.Context, mod api.Module) ([]byte, error) {
		res, err := mod.ExportedFunction(exportDescribeAPI).Call(ctx)
		if err != nil {
			return nil, err
		}
		return readRecord(mod, api.DecodeU32(res[0]))
	})
	if err != nil {
		return nil, err
	}

	var descriptors []interfaces.ActivationDescriptor
	if err := interfaces.UnmarshalWire(out, &descriptors); err != nil {
		return nil, &FaultError{Err: fmt.Errorf("decoding api description: %w", err)}
	}
	return descriptors, nil
}

// run instantiates binary for a single call linked to env and runs invoke on it.
func (e *Executor) run(ctx context.Context, binary *CompiledBinary, env environment, entrypoint string, invoke func(context.Context, api.Module) ([]byte, error)) (out []byte, err error) {
	if e.cfg.ActivationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ActivationTimeout)
		defer cancel()
	}
	ctx = withEnvironment(ctx, env)

	start := time.Now()
	defer func() {
		e.metrics.ObserveCall(entrypoint, outcome(err), time.Since(start))
	}()
	defer func() {
		if r := recover(); r != nil {
			env.state().log.Error("host panic during guest call", "panic", r)
			out, err = nil, &FaultError{Err: fmt.Errorf("host panic: %v", r)}
		}
	}()

	if binary.module == nil {
		return nil, &LoadError{Reason: fmt.Sprintf("binary %s has no compiled module", binary.ID())}
	}
	mod, err := e.runtime.InstantiateModule(ctx, binary.module, e.moduleConfig())
	if err != nil {
		return nil, fmt.Errorf("instantiating binary %s: %w", binary.ID(), err)
	}
	defer mod.Close(context.Background())

	if initialize := mod.ExportedFunction(exportInitialize); initialize != nil {
		if _, err := initialize.Call(ctx); err != nil {
			return nil, e.guestFailure(ctx, env, exportInitialize, err)
		}
	}

	out, err = invoke(ctx, mod)
	if err != nil {
		return nil, e.guestFailure(ctx, env, entrypoint, err)
	}
	return out, nil
}

// guestFailure classifies an error raised while guest code ran: a recorded
// panic message makes it a PanicError, anything else is a FaultError.
func (e *Executor) guestFailure(ctx context.Context, env environment, entrypoint string, err error) error {
	if msg, ok := env.state().panicked(); ok {
		return e.panicError(env, msg, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	env.state().log.Error("guest fault", "entrypoint", entrypoint, "err", err)
	return &FaultError{Err: err}
}

func (e *Executor) moduleConfig() wazero.ModuleConfig {
	// Anonymous so that concurrent instances of the same binary do not collide.
	// _initialize is called by run so that its failures classify like any
	// other guest call.
	return wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions().
		WithRandSource(rand.Reader).
		WithSysWalltime().
		WithSysNanotime()
}

func (e *Executor) panicError(env environment, msg string, err error) error {
	env.state().log.Error("guest panicked", "message", msg)
	return &PanicError{Message: msg, Backtrace: wasmBacktrace(err)}
}

func outcome(err error) string {
	var panicErr *PanicError
	var faultErr *FaultError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &panicErr):
		return metrics.OutcomePanic
	case errors.As(err, &faultErr):
		return metrics.OutcomeFault
	default:
		return metrics.OutcomeError
	}
}

func hexPrefix(b []byte) string {
	return hex.EncodeToString(b[:min(len(b), 8)])
}
