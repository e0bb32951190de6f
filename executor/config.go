package executor

import (
	"net/http"
	"time"
)

// Config holds engine limits.
type Config struct {
	// MaxActivationDepth bounds nested activations started through the
	// self-activate and activate-machine capabilities. The outermost
	// activation counts as depth 1.
	MaxActivationDepth int

	// ActivationTimeout bounds a single guest call. Zero means the call is
	// bounded only by the caller's context.
	ActivationTimeout time.Duration

	// EgressTimeout bounds outbound HTTP requests made on behalf of guests.
	EgressTimeout time.Duration

	// MaxEgressResponseBytes caps the body of an outbound response handed
	// back to a guest.
	MaxEgressResponseBytes int64

	// MemoryLimitPages caps guest linear memory, in 64KiB pages. Zero keeps
	// the wazero default.
	MemoryLimitPages uint32

	// EgressClient overrides the HTTP client used for guest egress.
	EgressClient *http.Client
}

// DefaultConfig returns the limits used by the node binary unless overridden.
func DefaultConfig() Config {
	return Config{
		MaxActivationDepth:     32,
		EgressTimeout:          30 * time.Second,
		MaxEgressResponseBytes: 16 << 20,
		MemoryLimitPages:       1024,
	}
}
