package interfaces

// StaticSigner holds the host-wide signing key pair. Signatures are domain
// separated by the MachineID of the machine that requested them.
type StaticSigner interface {
	// PublicKey returns the compressed public key.
	PublicKey() []byte

	// PublicKeyUncompressed returns the uncompressed public key, the form
	// handed to guests.
	PublicKeyUncompressed() []byte

	// Sign signs message on behalf of machine and returns the uncompressed
	// signature.
	Sign(machine MachineID, message []byte) []byte
}
