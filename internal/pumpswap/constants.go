// Package pumpswap derives accounts and builds instructions for the
// constant-product pool a graduated token trades on.
package pumpswap

import "github.com/gagliardetto/solana-go"

var (
	// ProgramID is the pool swap program.
	ProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")

	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")

	// WSOLMint is the wrapped-SOL mint used as the pool quote asset.
	WSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

// PDA seeds.
const (
	seedGlobalConfig      = "global_config"
	seedEventAuthority    = "__event_authority"
	seedPool              = "pool"
	seedCreatorVault      = "creator_vault"
)

// Instruction discriminators extracted from the IDL.
var (
	buyDiscriminator  = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	sellDiscriminator = []byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// Account discriminators extracted from the IDL.
var (
	GlobalConfigDiscriminator = []byte{149, 8, 156, 202, 160, 252, 176, 217}
	PoolDiscriminator         = []byte{241, 154, 109, 4, 17, 177, 109, 188}
)

// Byte offsets of the mint fields inside a pool account, for memcmp
// pool discovery: discriminator, bump, index, creator precede them.
const (
	PoolBaseMintOffset  = 8 + 1 + 2 + 32
	PoolQuoteMintOffset = PoolBaseMintOffset + 32
)
