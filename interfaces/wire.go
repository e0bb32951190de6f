package interfaces

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Header is a single HTTP header line. Repeated names are allowed.
type Header struct {
	Name  string `cbor:"name"`
	Value string `cbor:"value"`
}

// HTTPRequest is the request value exchanged with guests, both for inbound
// requests forwarded to handle-http and for outbound egress requests.
type HTTPRequest struct {
	Method  string   `cbor:"method"`
	URI     string   `cbor:"uri"`
	Headers []Header `cbor:"headers"`
	Body    []byte   `cbor:"body"`
}

// HTTPResponse is the response value exchanged with guests.
type HTTPResponse struct {
	Status  uint16   `cbor:"status"`
	Headers []Header `cbor:"headers"`
	Body    []byte   `cbor:"body"`
}

// ActivationDescriptor names one activation a binary exposes.
type ActivationDescriptor struct {
	Name string `cbor:"name"`
}

// MachineRecord binds a machine to its binary and parameters.
// It is immutable once stored.
type MachineRecord struct {
	BinaryID BinaryID
	Params   []byte
}

// encMode uses Core Deterministic Encoding so the same value always
// produces the same bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("interfaces: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("interfaces: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalWire encodes a guest wire value.
func MarshalWire(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// UnmarshalWire decodes a guest wire value.
func UnmarshalWire(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
