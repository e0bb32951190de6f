package interfaces

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// IDLength is the size in bytes of both BinaryID and MachineID.
const IDLength = 32

// BinaryID is the content address of an uploaded component.
type BinaryID [IDLength]byte

// NewBinaryID computes the identifier of a component from its raw bytes.
func NewBinaryID(binary []byte) BinaryID {
	return BinaryID(sha256.Sum256(binary))
}

// BinaryIDFromHex parses the 64 character hex form of a binary id.
func BinaryIDFromHex(source string) (BinaryID, error) {
	raw, err := decodeID(source)
	if err != nil {
		return BinaryID{}, fmt.Errorf("invalid binary id: %w", err)
	}
	return BinaryID(raw), nil
}

// String returns the lowercase hex representation.
func (id BinaryID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32-byte digest.
func (id BinaryID) Bytes() []byte {
	return id[:]
}

func (id BinaryID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *BinaryID) UnmarshalText(text []byte) error {
	parsed, err := BinaryIDFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MachineID identifies a machine: one binary bound to one parameter string.
type MachineID [IDLength]byte

// NewMachineID derives a machine identifier from the binary it runs and the
// parameters it was created with.
func NewMachineID(binaryID BinaryID, params []byte) MachineID {
	h := sha256.New()
	h.Write(binaryID[:])
	h.Write(params)

	var id MachineID
	copy(id[:], h.Sum(nil))
	return id
}

// MachineIDFromHex parses the 64 character hex form of a machine id.
func MachineIDFromHex(source string) (MachineID, error) {
	raw, err := decodeID(source)
	if err != nil {
		return MachineID{}, fmt.Errorf("invalid machine id: %w", err)
	}
	return MachineID(raw), nil
}

// MachineIDFromBytes converts a raw 32-byte slice into a MachineID.
func MachineIDFromBytes(source []byte) (MachineID, error) {
	if len(source) != IDLength {
		return MachineID{}, errors.New("invalid machine id: incorrect length")
	}
	var id MachineID
	copy(id[:], source)
	return id, nil
}

// String returns the lowercase hex representation.
func (id MachineID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32-byte digest.
func (id MachineID) Bytes() []byte {
	return id[:]
}

func (id MachineID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *MachineID) UnmarshalText(text []byte) error {
	parsed, err := MachineIDFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func decodeID(source string) ([IDLength]byte, error) {
	var out [IDLength]byte
	if len(source) != 2*IDLength {
		return out, errors.New("hex string must be 64 characters")
	}
	// Upper case input is accepted but ids are always rendered lower case.
	raw, err := hex.DecodeString(strings.ToLower(source))
	if err != nil {
		return out, fmt.Errorf("invalid hex format: %w", err)
	}
	copy(out[:], raw)
	return out, nil
}
