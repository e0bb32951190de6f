package guest

import (
	"fmt"

	"github.com/ruteri/carol-node/interfaces"
)

// Host is what a running guest can ask of the node. Availability depends on
// the entry point: handle-http has no egress or signing.
type Host interface {
	Log(message string)
	StaticPublicKey() ([]byte, error)
	Sign(message []byte) ([]byte, error)
	HTTP(req interfaces.HTTPRequest) (interfaces.HTTPResponse, error)
	SelfActivate(name string, input []byte) ([]byte, error)
	ActivateMachine(id interfaces.MachineID, name string, input []byte) ([]byte, error)
}

// Capability status codes returned by the host.
const (
	StatusOK uint32 = iota
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

// CapabilityError is a failed host call.
type CapabilityError struct {
	Capability string
	Status     uint32
	Message    string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Capability, e.Status, e.Message)
}
