package kms

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ruteri/carol-node/cryptoutils"
	"github.com/ruteri/carol-node/interfaces"
	"golang.org/x/crypto/hkdf"
)

const (
	seedSalt = "carol-node/kms"
	seedInfo = "bls-static-key/v1"
)

var ErrShortSeed = errors.New("seed must be at least 32 bytes")

// SimpleKMS provides the node's static BLS key pair.
type SimpleKMS struct {
	keys *cryptoutils.BLSKeyPair
}

var _ interfaces.StaticSigner = (*SimpleKMS)(nil)

// NewSimpleKMS derives the key pair from seed. The seed must be at least 32 bytes long.
func NewSimpleKMS(seed []byte) (*SimpleKMS, error) {
	if len(seed) < 32 {
		return nil, ErrShortSeed
	}

	ikm := make([]byte, cryptoutils.BLSSecretKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, []byte(seedSalt), []byte(seedInfo)), ikm); err != nil {
		return nil, fmt.Errorf("deriving key material: %w", err)
	}

	keys, err := cryptoutils.NewBLSKeyPair(ikm)
	if err != nil {
		return nil, err
	}
	return &SimpleKMS{keys: keys}, nil
}

// NewSimpleKMSFromHex is NewSimpleKMS for a hex-encoded seed, as passed on the command line.
func NewSimpleKMSFromHex(seedHex string) (*SimpleKMS, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("seed is not valid hex: %w", err)
	}
	return NewSimpleKMS(seed)
}

// NewSimpleKMSFromSecret restores the key pair from a serialized BLS secret key.
func NewSimpleKMSFromSecret(secret []byte) (*SimpleKMS, error) {
	keys, err := cryptoutils.BLSKeyPairFromSecret(secret)
	if err != nil {
		return nil, err
	}
	return &SimpleKMS{keys: keys}, nil
}

// LoadOrCreateKeyFile reads a hex-encoded secret key from path. If the file
// does not exist a random key is generated and written there, readable by
// the owner only. created reports whether the file was written.
func LoadOrCreateKeyFile(path string) (signer *SimpleKMS, created bool, err error) {
	data, err := os.ReadFile(path)
	if err == nil {
		secret, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, false, fmt.Errorf("key file %s is not valid hex: %w", path, err)
		}
		signer, err = NewSimpleKMSFromSecret(secret)
		if err != nil {
			return nil, false, fmt.Errorf("key file %s: %w", path, err)
		}
		return signer, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, fmt.Errorf("reading key file: %w", err)
	}

	signer, err = NewRandomKMS()
	if err != nil {
		return nil, false, err
	}
	encoded := hex.EncodeToString(signer.keys.SecretBytes()) + "\n"
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return nil, false, fmt.Errorf("writing key file: %w", err)
	}
	return signer, true, nil
}

// NewRandomKMS creates a SimpleKMS with a freshly generated key pair.
func NewRandomKMS() (*SimpleKMS, error) {
	keys, err := cryptoutils.GenerateBLSKeyPair()
	if err != nil {
		return nil, err
	}
	return &SimpleKMS{keys: keys}, nil
}

// PublicKey returns the compressed public key.
func (k *SimpleKMS) PublicKey() []byte {
	return k.keys.PublicKey()
}

// PublicKeyUncompressed returns the uncompressed public key, the encoding handed to guests.
func (k *SimpleKMS) PublicKeyUncompressed() []byte {
	return k.keys.PublicKeyUncompressed()
}

// Sign signs message in the domain of machine.
func (k *SimpleKMS) Sign(machine interfaces.MachineID, message []byte) []byte {
	return k.keys.Sign(machine, message)
}
