package executor

import (
	"fmt"
	"strings"
)

// CapabilityStatus is the status word a host capability writes into the
// guest's result record. Zero means success.
type CapabilityStatus uint32

const (
	StatusOK CapabilityStatus = iota
	StatusUnavailable
	StatusInvalidURL
	StatusInvalidHeader
	StatusTimeout
	StatusConnection
	StatusUnexpected
	StatusCalleePanicked
	StatusNotFound
	StatusDepthExceeded
	StatusCalleeFault
)

var statusNames = map[CapabilityStatus]string{
	StatusOK:             "ok",
	StatusUnavailable:    "unavailable",
	StatusInvalidURL:     "invalid url",
	StatusInvalidHeader:  "invalid header",
	StatusTimeout:        "timeout",
	StatusConnection:     "connection",
	StatusUnexpected:     "unexpected",
	StatusCalleePanicked: "callee panicked",
	StatusNotFound:       "not found",
	StatusDepthExceeded:  "activation depth exceeded",
	StatusCalleeFault:    "callee fault",
}

func (s CapabilityStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint32(s))
}

// LoadError reports why bytes could not be accepted as a binary.
type LoadError struct {
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid binary: %s: %v", e.Reason, e.Err)
	}
	return "invalid binary: " + e.Reason
}

func (e *LoadError) Unwrap() error { return e.Err }

// PanicError is a guest-diagnosed failure: the guest reported a panic
// message before its call failed.
type PanicError struct {
	Message   string
	Backtrace string
}

func (e *PanicError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "guest panic '%s'", e.Message)
	if e.Backtrace != "" {
		b.WriteString("\n")
		b.WriteString(e.Backtrace)
	}
	return b.String()
}

// FaultError is a guest call that failed without a panic message: a trap,
// a malformed return value, memory exhaustion or cancellation.
type FaultError struct {
	Err error
}

func (e *FaultError) Error() string { return "guest fault: " + e.Err.Error() }

func (e *FaultError) Unwrap() error { return e.Err }

// CapabilityError is a typed capability failure. Guests see it as a
// non-zero status in the result record.
type CapabilityError struct {
	Status     CapabilityStatus
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Capability, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Capability, e.Status)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

func capabilityError(status CapabilityStatus, capability string, err error) *CapabilityError {
	return &CapabilityError{Status: status, Capability: capability, Err: err}
}

// wasmBacktrace extracts the stack trace wazero appends to trap errors.
func wasmBacktrace(err error) string {
	if err == nil {
		return ""
	}
	const marker = "wasm stack trace:"
	msg := err.Error()
	i := strings.Index(msg, marker)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(msg[i:])
}
