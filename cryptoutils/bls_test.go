package cryptoutils

import (
	"bytes"
	"testing"

	"github.com/ruteri/carol-node/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMachine(b byte) interfaces.MachineID {
	return interfaces.NewMachineID(interfaces.NewBinaryID([]byte{b}), []byte("params"))
}

func TestNewBLSKeyPair(t *testing.T) {
	_, err := NewBLSKeyPair(make([]byte, 16))
	require.ErrorIs(t, err, ErrShortKeyMaterial)

	ikm := bytes.Repeat([]byte{7}, 32)
	kp1, err := NewBLSKeyPair(ikm)
	require.NoError(t, err)
	kp2, err := NewBLSKeyPair(ikm)
	require.NoError(t, err)

	assert.Equal(t, kp1.PublicKey(), kp2.PublicKey(), "same ikm must give the same key")
	assert.Len(t, kp1.PublicKey(), BLSPublicKeyCompressedLength)
	assert.Len(t, kp1.PublicKeyUncompressed(), BLSPublicKeyUncompressedLength)
}

func TestBLSKeyPairFromSecret(t *testing.T) {
	kp, err := GenerateBLSKeyPair()
	require.NoError(t, err)

	restored, err := BLSKeyPairFromSecret(kp.SecretBytes())
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), restored.PublicKey())

	_, err = BLSKeyPairFromSecret([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidSecretKey)
}

func TestSignVerify(t *testing.T) {
	kp, err := GenerateBLSKeyPair()
	require.NoError(t, err)

	machine := testMachine(1)
	msg := []byte("hello")
	sig := kp.Sign(machine, msg)
	require.Len(t, sig, BLSSignatureUncompressedLength)

	assert.True(t, VerifyBLS(kp.PublicKey(), machine, msg, sig))
	assert.True(t, VerifyBLS(kp.PublicKeyUncompressed(), machine, msg, sig))

	parsed, err := ParseBLSSignature(sig)
	require.NoError(t, err)
	assert.True(t, VerifyBLS(kp.PublicKey(), machine, msg, parsed.Compress()))

	assert.False(t, VerifyBLS(kp.PublicKey(), machine, []byte("other"), sig), "message is bound")
	assert.False(t, VerifyBLS(kp.PublicKey(), testMachine(2), msg, sig), "machine id is the signing domain")

	other, err := GenerateBLSKeyPair()
	require.NoError(t, err)
	assert.False(t, VerifyBLS(other.PublicKey(), machine, msg, sig))
}

func TestSignDeterministic(t *testing.T) {
	kp, err := NewBLSKeyPair(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)
	machine := testMachine(9)
	assert.Equal(t, kp.Sign(machine, []byte("m")), kp.Sign(machine, []byte("m")))
	assert.NotEqual(t, kp.Sign(machine, []byte("m")), kp.Sign(testMachine(8), []byte("m")))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseBLSPublicKey([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidPublicKey)
	_, err = ParseBLSPublicKey(make([]byte, BLSPublicKeyCompressedLength))
	require.ErrorIs(t, err, ErrInvalidPublicKey)
	_, err = ParseBLSSignature(make([]byte, 5))
	require.ErrorIs(t, err, ErrInvalidSignature)
	assert.False(t, VerifyBLS(nil, testMachine(1), nil, nil))
}
