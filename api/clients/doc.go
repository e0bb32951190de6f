// Package clients is a typed Go client for the node's HTTP API: uploading
// binaries, creating and inspecting machines, describing binaries and
// running activations.
package clients
