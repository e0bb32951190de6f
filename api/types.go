package api

import (
	"github.com/ruteri/carol-node/interfaces"
)

// BinaryCreated is returned by POST /binaries.
type BinaryCreated struct {
	ID interfaces.BinaryID `json:"id"`
}

// MachineCreated is returned by POST /binaries/{binary_id}.
type MachineCreated struct {
	ID interfaces.MachineID `json:"id"`
	// Host is the hostname serving the machine when a base domain is set.
	Host string `json:"host,omitempty"`
}

// GetMachine is returned by GET /machines/{machine_id}. Params are hex.
type GetMachine struct {
	BinaryID interfaces.BinaryID `json:"binaryId"`
	Params   string              `json:"params"`
}

// ActivationDescription describes one activation of a binary. It carries no
// fields yet.
type ActivationDescription struct{}

// BinaryDescription is returned by GET /binaries/{binary_id}/api.
type BinaryDescription struct {
	Activations map[string]ActivationDescription `json:"activations"`
}

// RootInfo is returned by GET /.
type RootInfo struct {
	// PublicKey is the hex compressed BLS12-381 G1 key signing on behalf of
	// machines.
	PublicKey  string `json:"public_key"`
	BaseDomain string `json:"base_domain,omitempty"`
}

// ProblemBody is the error response body. Extra fields such as backtrace
// are inlined next to Error.
type ProblemBody struct {
	Error     string `json:"error"`
	Backtrace string `json:"backtrace,omitempty"`
}
