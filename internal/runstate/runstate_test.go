package runstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	rc := NewRunContext("So11111111111111111111111111111111111111112", "curve")
	rc.Plans = []WalletPlan{
		{Wallet: "w1", Direction: "buy", AmountIn: 100_000_000, ExpectedOut: 42, MinOut: 40, Confirmed: true},
		{Wallet: "w2", Direction: "buy", AmountIn: 100_000_000, ExpectedOut: 41, MinOut: 39},
	}
	rc.Bundles = []BundleRecord{{BundleID: "abc", Signatures: []string{"sig1", "sig2"}, Landed: true}}

	path := filepath.Join(t.TempDir(), "nested", "run.json")
	require.NoError(t, rc.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rc.RunID, loaded.RunID)
	assert.Equal(t, rc.Mint, loaded.Mint)
	assert.Equal(t, rc.VenueKind, loaded.VenueKind)
	assert.Equal(t, rc.Plans, loaded.Plans)
	assert.Equal(t, rc.Bundles, loaded.Bundles)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	rc := NewRunContext("mint", "pool")
	require.NoError(t, rc.Save(filepath.Join(dir, "run.json")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run.json", entries[0].Name())
}

func TestLoadRejectsMissingMint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"run_id":"x"}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing mint")
}

func TestPlanFor(t *testing.T) {
	rc := NewRunContext("mint", "curve")
	rc.Plans = []WalletPlan{{Wallet: "w1"}, {Wallet: "w2", MinOut: 7}}

	plan := rc.PlanFor("w2")
	require.NotNil(t, plan)
	assert.EqualValues(t, 7, plan.MinOut)
	assert.Nil(t, rc.PlanFor("w3"))
}
