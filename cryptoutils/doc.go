// Package cryptoutils provides the BLS signature primitives used by the node.
//
// The node holds a single static BLS12-381 key pair in the "minimal public key
// size" variant: public keys live in G1 and signatures in G2. Every signature is
// domain-separated by the identity of the machine that requested it, so the
// hash-to-curve DST is the 32-byte machine id rather than a fixed ciphersuite
// string. A signature produced for one machine never verifies for another.
//
// # Encodings
//
//   - PublicKey: compressed G1 point (48 bytes), shown to API clients
//   - PublicKeyUncompressed: uncompressed G1 point (96 bytes), handed to guests
//   - Sign: uncompressed G2 point (192 bytes)
//
// VerifyBLS accepts either public key encoding and either signature encoding.
package cryptoutils
