// Package address derives campaign account addresses from public inputs so
// that any client or indexer can locate them without a directory.
package address

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Namespace tags separate the address spaces of different record kinds.
type Namespace string

const (
	NamespaceCampaign     Namespace = "campaign"
	NamespaceOpenCampaign Namespace = "open_campaign"

	registrySeed = "marketplace"
)

// Valid reports whether ns is a known namespace.
func (ns Namespace) Valid() bool {
	return ns == NamespaceCampaign || ns == NamespaceOpenCampaign
}

// Seeds returns the seed list for (ns, owner, sequence). The sequence is
// encoded as 8 little-endian bytes.
func Seeds(ns Namespace, owner solana.PublicKey, sequence uint64) [][]byte {
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], sequence)
	return [][]byte{[]byte(ns), owner.Bytes(), seq[:]}
}

// Derive returns the program-derived address and bump seed for
// (ns, owner, sequence) under programID.
func Derive(programID solana.PublicKey, ns Namespace, owner solana.PublicKey, sequence uint64) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(Seeds(ns, owner, sequence), programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive %s address: %w", ns, err)
	}
	return addr, bump, nil
}

// Registry returns the address of the singleton marketplace registry.
func Registry(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(registrySeed)}, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive registry address: %w", err)
	}
	return addr, bump, nil
}

// Deriver binds a program ID so callers need not carry it around.
type Deriver struct {
	ProgramID solana.PublicKey
}

func (d Deriver) Campaign(creator solana.PublicKey, counter uint64) (solana.PublicKey, error) {
	addr, _, err := Derive(d.ProgramID, NamespaceCampaign, creator, counter)
	return addr, err
}

func (d Deriver) OpenCampaign(creator solana.PublicKey, counter uint64) (solana.PublicKey, error) {
	addr, _, err := Derive(d.ProgramID, NamespaceOpenCampaign, creator, counter)
	return addr, err
}

func (d Deriver) Registry() (solana.PublicKey, error) {
	addr, _, err := Registry(d.ProgramID)
	return addr, err
}
