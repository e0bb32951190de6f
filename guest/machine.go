package guest

import (
	"fmt"
	"slices"

	"github.com/ruteri/carol-node/interfaces"
)

// Call is the context of one entry point invocation.
type Call struct {
	Host   Host
	Params []byte
}

// ActivationFunc handles a raw activation.
type ActivationFunc func(c *Call, input []byte) ([]byte, error)

// Machine is a guest's dispatch table.
type Machine struct {
	activations map[string]ActivationFunc
	router      router
}

func New() *Machine {
	return &Machine{activations: make(map[string]ActivationFunc)}
}

// HandleActivation registers fn under name. Registering a name twice panics.
func (m *Machine) HandleActivation(name string, fn ActivationFunc) {
	if _, ok := m.activations[name]; ok {
		panic(fmt.Sprintf("guest: activation %q registered twice", name))
	}
	m.activations[name] = fn
}

// Register adds a typed activation. Params and input are decoded from CBOR
// (empty bytes decode to the zero value) and the output is encoded to CBOR.
func Register[P, I, O any](m *Machine, name string, fn func(c *Call, params P, input I) (O, error)) {
	m.HandleActivation(name, func(c *Call, raw []byte) ([]byte, error) {
		var params P
		if err := decode(c.Params, &params); err != nil {
			return nil, fmt.Errorf("decoding params of %s: %w", name, err)
		}
		var input I
		if err := decode(raw, &input); err != nil {
			return nil, fmt.Errorf("decoding input of %s: %w", name, err)
		}
		out, err := fn(c, params, input)
		if err != nil {
			return nil, err
		}
		return interfaces.MarshalWire(out)
	})
}

func decode(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return interfaces.UnmarshalWire(data, v)
}

// Activate runs the activation registered under name.
func (m *Machine) Activate(host Host, params []byte, name string, input []byte) ([]byte, error) {
	fn, ok := m.activations[name]
	if !ok {
		return nil, fmt.Errorf("no activation named %q", name)
	}
	return fn(&Call{Host: host, Params: params}, input)
}

// Describe lists the registered activations by name.
func (m *Machine) Describe() []interfaces.ActivationDescriptor {
	names := make([]string, 0, len(m.activations))
	for name := range m.activations {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]interfaces.ActivationDescriptor, len(names))
	for i, name := range names {
		out[i] = interfaces.ActivationDescriptor{Name: name}
	}
	return out
}
