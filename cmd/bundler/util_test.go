package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentOf(t *testing.T) {
	tests := []struct {
		name    string
		balance uint64
		percent uint64
		want    uint64
	}{
		{"full balance", 1_000, 100, 1_000},
		{"half of even balance", 1_000, 50, 500},
		{"half of odd balance keeps sub-hundred scale", 150, 50, 75},
		{"true floor", 99, 50, 49},
		{"one percent", 333, 1, 3},
		{"zero balance", 0, 50, 0},
		{"large balance does not overflow", 10_000_000_000_000_000_000, 99, 9_900_000_000_000_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, percentOf(tt.balance, tt.percent))
		})
	}
}

func TestSolToLamports(t *testing.T) {
	got, err := solToLamports(0.5)
	assert.NoError(t, err)
	assert.EqualValues(t, 500_000_000, got)

	_, err = solToLamports(0)
	assert.Error(t, err)
	_, err = solToLamports(-1)
	assert.Error(t, err)
	_, err = solToLamports(math.NaN())
	assert.Error(t, err)
}
