package cryptoutils

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/ruteri/carol-node/interfaces"
	blst "github.com/supranational/blst/bindings/go"
)

const (
	// BLSSecretKeyLength is the serialized length of a BLS secret key scalar.
	BLSSecretKeyLength = 32

	BLSPublicKeyCompressedLength   = 48
	BLSPublicKeyUncompressedLength = 96
	BLSSignatureCompressedLength   = 96
	BLSSignatureUncompressedLength = 192
)

var (
	ErrShortKeyMaterial = errors.New("bls key material must be at least 32 bytes")
	ErrInvalidSecretKey = errors.New("invalid bls secret key")
	ErrInvalidPublicKey = errors.New("invalid bls public key")
	ErrInvalidSignature = errors.New("invalid bls signature")
)

// BLSKeyPair is a BLS12-381 min-pk key pair. It is safe for concurrent use.
type BLSKeyPair struct {
	sk *blst.SecretKey
	pk *blst.P1Affine
}

// NewBLSKeyPair derives a key pair from at least 32 bytes of input key material
// using the IETF KeyGen procedure.
func NewBLSKeyPair(ikm []byte) (*BLSKeyPair, error) {
	if len(ikm) < BLSSecretKeyLength {
		return nil, ErrShortKeyMaterial
	}
	sk := blst.KeyGen(ikm)
	if sk == nil {
		return nil, ErrInvalidSecretKey
	}
	return &BLSKeyPair{sk: sk, pk: new(blst.P1Affine).From(sk)}, nil
}

// GenerateBLSKeyPair creates a key pair from fresh randomness.
func GenerateBLSKeyPair() (*BLSKeyPair, error) {
	ikm := make([]byte, BLSSecretKeyLength)
	if _, err := rand.Read(ikm); err != nil {
		return nil, fmt.Errorf("reading randomness: %w", err)
	}
	return NewBLSKeyPair(ikm)
}

// BLSKeyPairFromSecret restores a key pair from a serialized secret key.
func BLSKeyPairFromSecret(secret []byte) (*BLSKeyPair, error) {
	if len(secret) != BLSSecretKeyLength {
		return nil, ErrInvalidSecretKey
	}
	sk := new(blst.SecretKey).Deserialize(secret)
	if sk == nil {
		return nil, ErrInvalidSecretKey
	}
	return &BLSKeyPair{sk: sk, pk: new(blst.P1Affine).From(sk)}, nil
}

// SecretBytes returns the serialized secret key.
func (kp *BLSKeyPair) SecretBytes() []byte {
	return kp.sk.Serialize()
}

// PublicKey returns the compressed G1 encoding of the public key.
func (kp *BLSKeyPair) PublicKey() []byte {
	return kp.pk.Compress()
}

// PublicKeyUncompressed returns the uncompressed G1 encoding of the public key.
func (kp *BLSKeyPair) PublicKeyUncompressed() []byte {
	return kp.pk.Serialize()
}

// Sign signs message on behalf of machine. The machine id is the
// hash-to-curve domain separation tag. The result is an uncompressed G2 point.
func (kp *BLSKeyPair) Sign(machine interfaces.MachineID, message []byte) []byte {
	sig := new(blst.P2Affine).Sign(kp.sk, message, machine[:])
	return sig.Serialize()
}

// ParseBLSPublicKey decodes a compressed or uncompressed G1 public key and
// checks that it is a valid, non-identity group element.
func ParseBLSPublicKey(b []byte) (*blst.P1Affine, error) {
	var pk *blst.P1Affine
	switch len(b) {
	case BLSPublicKeyCompressedLength:
		pk = new(blst.P1Affine).Uncompress(b)
	case BLSPublicKeyUncompressedLength:
		pk = new(blst.P1Affine).Deserialize(b)
	}
	if pk == nil || !pk.KeyValidate() {
		return nil, ErrInvalidPublicKey
	}
	return pk, nil
}

// ParseBLSSignature decodes a compressed or uncompressed G2 signature.
func ParseBLSSignature(b []byte) (*blst.P2Affine, error) {
	var sig *blst.P2Affine
	switch len(b) {
	case BLSSignatureCompressedLength:
		sig = new(blst.P2Affine).Uncompress(b)
	case BLSSignatureUncompressedLength:
		sig = new(blst.P2Affine).Deserialize(b)
	}
	if sig == nil {
		return nil, ErrInvalidSignature
	}
	return sig, nil
}

// VerifyBLS reports whether signature is a valid signature by pubkey over
// message in the domain of machine.
func VerifyBLS(pubkey []byte, machine interfaces.MachineID, message, signature []byte) bool {
	pk, err := ParseBLSPublicKey(pubkey)
	if err != nil {
		return false
	}
	sig, err := ParseBLSSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(true, pk, false, message, machine[:])
}
