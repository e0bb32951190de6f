// Package registry holds the node's content-addressed binaries and machines.
//
// Binaries are keyed by interfaces.BinaryID, the digest of their bytes, and
// stored compiled. Machines are keyed by interfaces.MachineID, the digest of
// the binary id and the creation parameters, and store just that pair. Both
// maps only grow: entries are never replaced or removed for the lifetime of
// the process.
//
// Registry is safe for concurrent use. Its critical sections are single map
// lookups or inserts and are never held while a guest runs.
//
// MockRegistry is a testify mock of the same surface for handler tests.
package registry
