package kms

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/carol-node/cryptoutils"
	"github.com/ruteri/carol-node/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSimpleKMS(t *testing.T) {
	_, err := NewSimpleKMS(make([]byte, 31))
	require.ErrorIs(t, err, ErrShortSeed)

	seed := bytes.Repeat([]byte{0x42}, 32)
	k1, err := NewSimpleKMS(seed)
	require.NoError(t, err)
	k2, err := NewSimpleKMSFromHex(hex.EncodeToString(seed))
	require.NoError(t, err)
	assert.Equal(t, k1.PublicKey(), k2.PublicKey(), "seeded keys survive restarts")

	k3, err := NewSimpleKMS(bytes.Repeat([]byte{0x43}, 32))
	require.NoError(t, err)
	assert.NotEqual(t, k1.PublicKey(), k3.PublicKey())

	_, err = NewSimpleKMSFromHex("zz")
	require.Error(t, err)
}

func TestRandomKMS(t *testing.T) {
	k1, err := NewRandomKMS()
	require.NoError(t, err)
	k2, err := NewRandomKMS()
	require.NoError(t, err)
	assert.NotEqual(t, k1.PublicKey(), k2.PublicKey())
}

func TestSignaturesAreBoundToMachine(t *testing.T) {
	k, err := NewRandomKMS()
	require.NoError(t, err)

	bin := interfaces.NewBinaryID([]byte("binary"))
	machineA := interfaces.NewMachineID(bin, []byte("a"))
	machineB := interfaces.NewMachineID(bin, []byte("b"))

	msg := []byte("attest this")
	sig := k.Sign(machineA, msg)

	assert.True(t, cryptoutils.VerifyBLS(k.PublicKey(), machineA, msg, sig))
	assert.True(t, cryptoutils.VerifyBLS(k.PublicKeyUncompressed(), machineA, msg, sig))
	assert.False(t, cryptoutils.VerifyBLS(k.PublicKey(), machineB, msg, sig))
}

func TestLoadOrCreateKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signing.key")

	k1, created, err := LoadOrCreateKeyFile(path)
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	k2, created, err := LoadOrCreateKeyFile(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, k1.PublicKey(), k2.PublicKey(), "key file survives restarts")

	machine := interfaces.NewMachineID(interfaces.NewBinaryID([]byte("binary")), nil)
	sig := k2.Sign(machine, []byte("message"))
	assert.True(t, cryptoutils.VerifyBLS(k1.PublicKey(), machine, []byte("message"), sig))
}

func TestLoadOrCreateKeyFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	notHex := filepath.Join(dir, "not-hex.key")
	require.NoError(t, os.WriteFile(notHex, []byte("zz\n"), 0o600))
	_, _, err := LoadOrCreateKeyFile(notHex)
	require.ErrorContains(t, err, "not valid hex")

	short := filepath.Join(dir, "short.key")
	require.NoError(t, os.WriteFile(short, []byte("0102\n"), 0o600))
	_, _, err = LoadOrCreateKeyFile(short)
	require.ErrorIs(t, err, cryptoutils.ErrInvalidSecretKey)

	_, _, err = LoadOrCreateKeyFile(filepath.Join(dir, "missing-dir", "x.key"))
	require.Error(t, err)
}
