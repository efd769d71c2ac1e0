package pumpfun

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func curveAccountData(state CurveState) []byte {
	data := make([]byte, curveStateMinLen)
	pos := 8
	for _, v := range []uint64{
		state.VirtualTokenReserves,
		state.VirtualSolReserves,
		state.RealTokenReserves,
		state.RealSolReserves,
		state.TokenTotalSupply,
	} {
		binary.LittleEndian.PutUint64(data[pos:pos+8], v)
		pos += 8
	}
	if state.Complete {
		data[pos] = 1
	}
	return data
}

func TestParseCurveState(t *testing.T) {
	want := CurveState{
		VirtualTokenReserves: 1_073_000_000_000_000,
		VirtualSolReserves:   30_000_000_000,
		RealTokenReserves:    793_100_000_000_000,
		RealSolReserves:      0,
		TokenTotalSupply:     1_000_000_000_000_000,
		Complete:             false,
	}

	got, err := ParseCurveState(curveAccountData(want))
	require.NoError(t, err)
	assert.Equal(t, &want, got)
}

func TestParseCurveStateComplete(t *testing.T) {
	data := curveAccountData(CurveState{Complete: true})

	got, err := ParseCurveState(data)
	require.NoError(t, err)
	assert.True(t, got.Complete)
}

func TestParseCurveStateTooShort(t *testing.T) {
	_, err := ParseCurveState(make([]byte, curveStateMinLen-1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestDeriveBondingCurveDeterministic(t *testing.T) {
	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	curve1, ata1, err := DeriveBondingCurve(mint)
	require.NoError(t, err)
	curve2, ata2, err := DeriveBondingCurve(mint)
	require.NoError(t, err)

	assert.Equal(t, curve1, curve2)
	assert.Equal(t, ata1, ata2)
	assert.False(t, curve1.IsZero())
}
