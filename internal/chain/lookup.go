package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// lookupTableMetaLen is the fixed-size header of an address lookup
// table account: discriminator, deactivation slot, last extended slot
// and start index, optional authority, padding.
const lookupTableMetaLen = 56

// addressLookupTableProgramID owns every lookup table account.
var addressLookupTableProgramID = solana.MustPublicKeyFromBase58("AddressLookupTab1e1111111111111111111111111")

// FetchLookupTable reads a lookup table account and returns the
// addresses it holds, for compiling versioned transactions.
func (c *Client) FetchLookupTable(ctx context.Context, table solana.PublicKey) (solana.PublicKeySlice, error) {
	account, err := c.GetAccountData(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lookup table %s: %w", table.String(), err)
	}
	if !account.Owner.Equals(addressLookupTableProgramID) {
		return nil, fmt.Errorf("account %s is not a lookup table (owner %s)", table.String(), account.Owner.String())
	}
	data := account.Data
	if len(data) < lookupTableMetaLen {
		return nil, fmt.Errorf("lookup table data too short: %d bytes", len(data))
	}
	body := data[lookupTableMetaLen:]
	if len(body)%32 != 0 {
		return nil, fmt.Errorf("lookup table address section not 32-byte aligned: %d bytes", len(body))
	}
	addresses := make(solana.PublicKeySlice, 0, len(body)/32)
	for off := 0; off < len(body); off += 32 {
		addresses = append(addresses, solana.PublicKeyFromBytes(body[off:off+32]))
	}
	return addresses, nil
}
