package resolver

import (
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ruteri/carol-node/interfaces"
)

const (
	// LabelHRP is the human-readable part of machine hostname labels.
	LabelHRP = "carol"

	bech32Separator = '1'
	bech32Charset   = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
)

var (
	ErrNotMachineLabel = errors.New("not a machine label")
	ErrInvalidLabel    = errors.New("invalid machine label")
)

// LabelForMachine renders the hostname label addressing a machine.
func LabelForMachine(id interfaces.MachineID) string {
	groups, err := bech32.ConvertBits(id.Bytes(), 8, 5, true)
	if err != nil {
		// unreachable for 8->5 with padding
		panic(err)
	}

	var sb strings.Builder
	sb.Grow(len(LabelHRP) + 1 + len(groups))
	sb.WriteString(LabelHRP)
	sb.WriteByte(bech32Separator)
	for _, g := range groups {
		sb.WriteByte(bech32Charset[g])
	}
	return sb.String()
}

// MachineFromLabel decodes a label produced by LabelForMachine. Labels are
// case-insensitive but must not mix cases.
func MachineFromLabel(label string) (interfaces.MachineID, error) {
	lower := strings.ToLower(label)
	if lower != label && strings.ToUpper(label) != label {
		return interfaces.MachineID{}, ErrInvalidLabel
	}

	sep := strings.LastIndexByte(lower, bech32Separator)
	if sep < 1 {
		return interfaces.MachineID{}, ErrNotMachineLabel
	}
	if lower[:sep] != LabelHRP {
		return interfaces.MachineID{}, ErrNotMachineLabel
	}

	data := lower[sep+1:]
	groups := make([]byte, len(data))
	for i := 0; i < len(data); i++ {
		v := strings.IndexByte(bech32Charset, data[i])
		if v < 0 {
			return interfaces.MachineID{}, ErrInvalidLabel
		}
		groups[i] = byte(v)
	}

	raw, err := bech32.ConvertBits(groups, 5, 8, false)
	if err != nil {
		return interfaces.MachineID{}, errors.Join(ErrInvalidLabel, err)
	}
	id, err := interfaces.MachineIDFromBytes(raw)
	if err != nil {
		return interfaces.MachineID{}, errors.Join(ErrInvalidLabel, err)
	}
	return id, nil
}
