package pumpswap

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// GlobalConfig is the decoded program-wide configuration account.
type GlobalConfig struct {
	Admin                  solana.PublicKey
	LPFeeBasisPoints       uint64
	ProtocolFeeBasisPoints uint64
	DisableFlags           uint8
	ProtocolFeeRecipients  [8]solana.PublicKey
}

// Pool is the decoded pool account.
type Pool struct {
	PoolBump              uint8
	Index                 uint16
	Creator               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LPMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	LPSupply              uint64
	// CoinCreator receives creator fees; zero on pools predating the
	// creator-fee rollout.
	CoinCreator solana.PublicKey
}

// ParseGlobalConfig parses account data into a GlobalConfig.
func ParseGlobalConfig(data []byte) (*GlobalConfig, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], GlobalConfigDiscriminator) {
		return nil, fmt.Errorf("invalid discriminator for GlobalConfig")
	}

	pos := 8
	if len(data) < pos+32+8+8+1+(32*8) {
		return nil, fmt.Errorf("data too short for GlobalConfig content")
	}

	config := &GlobalConfig{}
	config.Admin = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	config.LPFeeBasisPoints = binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8
	config.ProtocolFeeBasisPoints = binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8
	config.DisableFlags = data[pos]
	pos++
	for i := 0; i < 8; i++ {
		config.ProtocolFeeRecipients[i] = solana.PublicKeyFromBytes(data[pos : pos+32])
		pos += 32
	}

	return config, nil
}

// ParsePool parses account data into a Pool.
func ParsePool(data []byte) (*Pool, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], PoolDiscriminator) {
		return nil, fmt.Errorf("invalid discriminator for Pool")
	}

	pos := 8
	if len(data) < pos+1+2+32*6+8 {
		return nil, fmt.Errorf("data too short for Pool content")
	}

	pool := &Pool{}
	pool.PoolBump = data[pos]
	pos++
	pool.Index = binary.LittleEndian.Uint16(data[pos : pos+2])
	pos += 2
	pool.Creator = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.BaseMint = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.QuoteMint = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.LPMint = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.PoolBaseTokenAccount = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.PoolQuoteTokenAccount = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.LPSupply = binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8
	if len(data) >= pos+32 {
		pool.CoinCreator = solana.PublicKeyFromBytes(data[pos : pos+32])
	}

	return pool, nil
}

// DeriveGlobalConfig returns the program's global configuration PDA.
func DeriveGlobalConfig() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedGlobalConfig)}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive global config: %w", err)
	}
	return addr, nil
}

// DeriveEventAuthority returns the program's event authority PDA.
func DeriveEventAuthority() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedEventAuthority)}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive event authority: %w", err)
	}
	return addr, nil
}

// DeriveCreatorVault returns the coin creator's fee vault authority and
// its quote-token ATA.
func DeriveCreatorVault(creator, quoteMint solana.PublicKey) (authority, vaultATA solana.PublicKey, err error) {
	authority, _, err = solana.FindProgramAddress(
		[][]byte{[]byte(seedCreatorVault), creator.Bytes()},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("failed to derive creator vault authority: %w", err)
	}
	vaultATA, _, err = solana.FindAssociatedTokenAddress(authority, quoteMint)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("failed to derive creator vault ATA: %w", err)
	}
	return authority, vaultATA, nil
}

// DerivePool returns the canonical pool PDA for an index/creator/mint
// triple.
func DerivePool(index uint16, creator, baseMint, quoteMint solana.PublicKey) (solana.PublicKey, error) {
	var idx [2]byte
	binary.LittleEndian.PutUint16(idx[:], index)
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedPool), idx[:], creator.Bytes(), baseMint.Bytes(), quoteMint.Bytes()},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive pool: %w", err)
	}
	return addr, nil
}
