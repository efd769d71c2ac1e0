// Package pumpfun derives accounts and builds instructions for the
// bonding-curve issuance program. Everything here is pure address math
// and byte layout; no network calls.
package pumpfun

import "github.com/gagliardetto/solana-go"

// Known protocol addresses.
var (
	// ProgramID is the bonding-curve program.
	ProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// EventAuthority for the bonding-curve program.
	EventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")

	// MintAuthority signs freshly created curve mints.
	MintAuthority = solana.MustPublicKeyFromBase58("TSLvdd1pWpHVjahSpsvCXUbgwsL3JAcvokwaKt1eokM")

	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")

	MetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

	SysvarRentPubkey = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
)

// PDA seeds.
const (
	seedGlobal       = "global"
	seedBondingCurve = "bonding-curve"
	seedMetadata     = "metadata"
)

// Instruction discriminators (first 8 bytes of the instruction data).
var (
	createDiscriminator = []byte{24, 30, 200, 40, 5, 28, 7, 119}
	buyDiscriminator    = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	sellDiscriminator   = []byte{51, 230, 133, 164, 1, 127, 131, 173}
)
