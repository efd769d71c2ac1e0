package pumpfun

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// CurveState is the decoded bonding-curve account.
type CurveState struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// curveStateMinLen is the discriminator plus five u64 fields plus the
// completion flag.
const curveStateMinLen = 8 + 5*8 + 1

// ParseCurveState decodes a bonding-curve account's binary data.
func ParseCurveState(data []byte) (*CurveState, error) {
	if len(data) < curveStateMinLen {
		return nil, fmt.Errorf("bonding curve data too short: %d bytes", len(data))
	}

	dec := bin.NewBorshDecoder(data[8:]) // skip account discriminator
	state := &CurveState{}
	if err := dec.Decode(state); err != nil {
		return nil, fmt.Errorf("failed to decode bonding curve: %w", err)
	}
	return state, nil
}

// GlobalAccount is the subset of the program's global configuration
// the bundler reads.
type GlobalAccount struct {
	Authority    solana.PublicKey
	FeeRecipient solana.PublicKey
}

// ParseGlobalAccount decodes the global configuration account. Layout:
// discriminator, initialized flag, authority, fee recipient.
func ParseGlobalAccount(data []byte) (*GlobalAccount, error) {
	if len(data) < 73 {
		return nil, fmt.Errorf("global account data too short: %d bytes", len(data))
	}
	return &GlobalAccount{
		Authority:    solana.PublicKeyFromBytes(data[9:41]),
		FeeRecipient: solana.PublicKeyFromBytes(data[41:73]),
	}, nil
}

// DeriveGlobal returns the program's global configuration PDA.
func DeriveGlobal() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedGlobal)}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive global account: %w", err)
	}
	return addr, nil
}

// DeriveBondingCurve returns the curve PDA and its associated token
// account for the given mint.
func DeriveBondingCurve(mint solana.PublicKey) (bondingCurve, associatedBondingCurve solana.PublicKey, err error) {
	bondingCurve, _, err = solana.FindProgramAddress(
		[][]byte{[]byte(seedBondingCurve), mint.Bytes()},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("failed to derive bonding curve: %w", err)
	}

	associatedBondingCurve, _, err = solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("failed to derive associated bonding curve: %w", err)
	}

	return bondingCurve, associatedBondingCurve, nil
}

// DeriveMetadata returns the token-metadata PDA for the mint.
func DeriveMetadata(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedMetadata), MetadataProgramID.Bytes(), mint.Bytes()},
		MetadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata account: %w", err)
	}
	return addr, nil
}

// InstructionAccounts carries the shared account set referenced by
// every curve instruction for one mint.
type InstructionAccounts struct {
	Global                 solana.PublicKey
	FeeRecipient           solana.PublicKey
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	EventAuthority         solana.PublicKey
	Program                solana.PublicKey
}

// AccountsForMint derives the full shared account set for one mint.
// FeeRecipient comes from the global account and must be filled by the
// caller after fetching it.
func AccountsForMint(mint solana.PublicKey) (InstructionAccounts, error) {
	global, err := DeriveGlobal()
	if err != nil {
		return InstructionAccounts{}, err
	}
	bondingCurve, associated, err := DeriveBondingCurve(mint)
	if err != nil {
		return InstructionAccounts{}, err
	}
	return InstructionAccounts{
		Global:                 global,
		Mint:                   mint,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: associated,
		EventAuthority:         EventAuthority,
		Program:                ProgramID,
	}, nil
}
