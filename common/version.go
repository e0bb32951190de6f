// Package common holds process-wide helpers shared by the node's commands.
package common

var (
	// Version is set at build time with -ldflags "-X .../common.Version=...".
	Version = "dev"

	// PackageName namespaces the node's Prometheus metrics.
	PackageName = "carol_node"
)
