// Package executor loads guest binaries and runs them with host capabilities.
//
// A binary is a WebAssembly core module, or a component wrapping exactly one
// core module, that implements the lowered carol:machine world:
//
//	exports:
//	    memory
//	    cabi_realloc(old_ptr, old_size, align, new_size i32) i32
//	    activate(params_ptr, params_len, name_ptr, name_len, input_ptr, input_len i32) i32
//	    handle-http(req_ptr, req_len i32) i32
//	    describe-api() i32
//
//	imports (any subset):
//	    carol:machine/log       info, set-panic-message
//	    carol:machine/global    bls-static-pubkey, bls-static-sign
//	    carol:machine/http      execute
//	    carol:machine/machines  self-activate, activate-machine
//	    wasi_snapshot_preview1  *
//
// The three entry points return a pointer to a (ptr u32, len u32) record
// describing their output. Structured values (HTTP requests and responses,
// the API description) are CBOR encoded.
//
// Capabilities that return data write a 12-byte (status, ptr, len) record at
// the ret pointer they are given, allocating the payload with cabi_realloc.
// A non-zero status is a CapabilityStatus and the payload is the error text.
//
// # Environments
//
// Each call links one of three environments:
//
//   - Activation: every capability, bound to the activated machine id
//   - HTTP: logging and activations, no egress and no signing
//   - BinaryAPI: logging only, used to describe a binary
//
// Calling a capability the environment lacks yields StatusUnavailable to the
// guest. Nested activations are bounded by Config.MaxActivationDepth.
//
// # Failures
//
// If a guest called set-panic-message before its call failed, the failure
// is a *PanicError carrying the message and the wasm backtrace. Any other
// failure of the guest is a *FaultError. Neither affects other calls: each
// call owns a fresh instance.
package executor
