// Package guest is the machine-side counterpart of the executor: a dispatch
// table a guest binary fills at start-up with its activations and HTTP
// routes.
//
// Activations are registered by name, either raw or with Register, which
// decodes params and input and encodes the output with the node's CBOR wire
// codec. Routes match a method and a path pattern whose segments may be
// {name} variables. Describe lists registered activations for the
// describe-api entry point.
//
// When built for GOOS=wasip1 with -buildmode=c-shared, Serve installs the
// table behind the carol:machine exports and Capabilities exposes the host
// imports. Errors returned by activations and Go panics are reported to the
// host as guest panics with their message.
package guest
