package wallet

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func writeCSV(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallets.csv")
	content := "Name,PrivateKey\n"
	for _, row := range rows {
		content += row + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPreservesFileOrder(t *testing.T) {
	keys := make([]solana.PrivateKey, 3)
	rows := make([]string, 3)
	for i := range keys {
		keys[i] = newKey(t)
		rows[i] = fmt.Sprintf("wallet%d,%s", i, keys[i].String())
	}

	wallets, err := Load(writeCSV(t, rows...))
	require.NoError(t, err)
	require.Len(t, wallets, 3)
	for i, w := range wallets {
		assert.Equal(t, fmt.Sprintf("wallet%d", i), w.Name)
		assert.Equal(t, keys[i].PublicKey(), w.PublicKey)
	}
}

func TestLoadRejectsDuplicates(t *testing.T) {
	key := newKey(t)
	_, err := Load(writeCSV(t,
		"a,"+key.String(),
		"b,"+key.String(),
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate wallet")
}

func TestNewRejectsShortKey(t *testing.T) {
	_, err := New("bad", "3yZe7d")
	require.Error(t, err)
}

func TestGetATACached(t *testing.T) {
	w, err := New("w", newKey(t).String())
	require.NoError(t, err)

	mint := newKey(t).PublicKey()
	want, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)

	got, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	again, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, want, again)
}

func TestSignerMatchesOnlyOwnKey(t *testing.T) {
	w, err := New("w", newKey(t).String())
	require.NoError(t, err)

	signer := w.Signer()
	require.NotNil(t, signer(w.PublicKey))
	assert.Nil(t, signer(newKey(t).PublicKey()))
}
