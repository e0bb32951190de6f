// Package interfaces defines the core types and interfaces shared by the
// machine host, separating definitions from implementations.
//
// # Identity Types
//
//   - BinaryID: SHA-256 digest of the raw component bytes
//   - MachineID: SHA-256 digest of BinaryID ‖ params
//
// Both are pure functions of their inputs. Their textual form is lowercase
// hex, which is also how they appear in URL paths and JSON bodies.
//
// # Registry Interfaces
//
// BinaryStore and MachineStore describe the process-wide registries holding
// compiled binaries and machine records. Entries are created once and read
// many times; there is no removal path.
//
// # Guest Wire Types
//
// HTTPRequest, HTTPResponse and ActivationDescriptor are the structured values
// exchanged with guests. They cross the guest boundary CBOR encoded (see
// MarshalWire and UnmarshalWire).
package interfaces
