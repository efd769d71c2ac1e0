package pumpfun

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// TokenMetadata is the on-chain metadata embedded in a create call.
type TokenMetadata struct {
	Name   string
	Symbol string
	URI    string
}

func appendU64(data []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(data, buf[:]...)
}

func appendString(data []byte, s string) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(len(s)))
	data = append(data, buf[:]...)
	return append(data, s...)
}

// BuildCreateInstruction builds the curve-creation instruction. The
// mint keypair signs, so the resulting transaction must be signed by
// both the creator wallet and the mint.
func BuildCreateInstruction(
	accounts InstructionAccounts,
	creator solana.PublicKey,
	meta TokenMetadata,
) (solana.Instruction, error) {
	if meta.Name == "" || meta.Symbol == "" {
		return nil, fmt.Errorf("token name and symbol are required")
	}

	data := make([]byte, len(createDiscriminator))
	copy(data, createDiscriminator)
	data = appendString(data, meta.Name)
	data = appendString(data, meta.Symbol)
	data = appendString(data, meta.URI)
	data = append(data, creator.Bytes()...)

	metadata, err := DeriveMetadata(accounts.Mint)
	if err != nil {
		return nil, err
	}

	// Account list must be in the exact order expected by the program.
	insAccounts := []*solana.AccountMeta{
		{PublicKey: accounts.Mint, IsSigner: true, IsWritable: true},
		{PublicKey: MintAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Global, IsSigner: false, IsWritable: false},
		{PublicKey: MetadataProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: metadata, IsSigner: false, IsWritable: true},
		{PublicKey: creator, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: AssociatedTokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: SysvarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Program, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(accounts.Program, insAccounts, data), nil
}

// BuildBuyInstruction builds a buy for the given wallet. amount is the
// token output the wallet expects, maxSolCost the revert threshold on
// lamports spent.
func BuildBuyInstruction(
	accounts InstructionAccounts,
	user solana.PublicKey,
	amount, maxSolCost uint64,
) (solana.Instruction, error) {
	if accounts.FeeRecipient.IsZero() {
		return nil, fmt.Errorf("fee recipient not set")
	}

	data := make([]byte, len(buyDiscriminator))
	copy(data, buyDiscriminator)
	data = appendU64(data, amount)
	data = appendU64(data, maxSolCost)

	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, accounts.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}

	// Account list must be in the exact order expected by the program.
	insAccounts := []*solana.AccountMeta{
		{PublicKey: accounts.Global, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: associatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: user, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: SysvarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Program, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(accounts.Program, insAccounts, data), nil
}

// BuildSellInstruction builds a sell for the given wallet. amount is
// the token input, minSolOutput the revert threshold on lamports
// received.
func BuildSellInstruction(
	accounts InstructionAccounts,
	user solana.PublicKey,
	amount, minSolOutput uint64,
) (solana.Instruction, error) {
	if accounts.FeeRecipient.IsZero() {
		return nil, fmt.Errorf("fee recipient not set")
	}

	data := make([]byte, len(sellDiscriminator))
	copy(data, sellDiscriminator)
	data = appendU64(data, amount)
	data = appendU64(data, minSolOutput)

	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, accounts.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}

	// Account list must be in the exact order expected by the program.
	insAccounts := []*solana.AccountMeta{
		{PublicKey: accounts.Global, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: associatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: user, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: AssociatedTokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Program, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(accounts.Program, insAccounts, data), nil
}

// CreateATAIdempotentInstruction creates the wallet's associated token
// account for the mint. Safe to include in front of every swap: the
// idempotent variant is a no-op if the account already exists.
func CreateATAIdempotentInstruction(payer, owner, mint solana.PublicKey) solana.Instruction {
	ata, _, _ := solana.FindAssociatedTokenAddress(owner, mint)

	keys := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: ata, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
	}

	// Instruction code 1 selects CreateIdempotent.
	return solana.NewInstruction(AssociatedTokenProgramID, keys, []byte{1})
}
