// Package kms holds the node's static signing key.
//
// The node owns exactly one BLS12-381 key pair for its lifetime. Guests in
// the Activation environment can read its public half and request signatures
// that are domain-separated by their own machine id, so a signature is an
// attestation that a particular machine (binary plus parameters) asked the
// node to sign a message. API clients discover the public key from GET /.
//
// SimpleKMS implements interfaces.StaticSigner:
//
//	type StaticSigner interface {
//	    PublicKey() []byte
//	    PublicKeyUncompressed() []byte
//	    Sign(machine MachineID, message []byte) []byte
//	}
//
// A SimpleKMS is either derived deterministically from an operator-supplied
// seed (HKDF-SHA256, so restarts keep the same public key) or generated from
// fresh randomness, in which case the key is lost on restart.
package kms
