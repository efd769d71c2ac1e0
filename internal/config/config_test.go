package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validConfigYAML = `
rpc_list:
  - https://api.mainnet-beta.solana.com
jito_endpoints:
  - https://mainnet.block-engine.jito.wtf/api/v1
wallets_file: wallets.csv
slippage_percent: 10
debug_logging: true
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "valid config with defaults filled in",
			content: validConfigYAML,
			check: func(t *testing.T, cfg *Config) {
				assert.Len(t, cfg.RPCList, 1)
				assert.EqualValues(t, 10, cfg.SlippagePercent)
				assert.True(t, cfg.DebugLogging)
				assert.EqualValues(t, DefaultTipLamports, cfg.TipLamports)
				assert.Equal(t, DefaultCurveBuyChunkSize, cfg.CurveBuyChunkSize)
				assert.Equal(t, DefaultCurveSellChunkSize, cfg.CurveSellChunkSize)
				assert.Equal(t, DefaultPoolChunkSize, cfg.PoolChunkSize)
				assert.Equal(t, DefaultStateDir, cfg.StateDir)
			},
		},
		{
			name:    "missing rpc_list",
			content: "wallets_file: wallets.csv\n",
			wantErr: true,
		},
		{
			name:    "non-http rpc url",
			content: "rpc_list:\n  - wss://api.mainnet-beta.solana.com\nwallets_file: wallets.csv\n",
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			content: "rpc_list: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeTestConfig(t, tt.content))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestValidateNumericParams(t *testing.T) {
	base := func() *Config {
		return &Config{
			RPCList:            []string{"https://test-rpc.com"},
			WalletsFile:        "wallets.csv",
			SlippagePercent:    DefaultSlippagePercent,
			TipLamports:        DefaultTipLamports,
			CurveBuyChunkSize:  DefaultCurveBuyChunkSize,
			CurveSellChunkSize: DefaultCurveSellChunkSize,
			PoolChunkSize:      DefaultPoolChunkSize,
			SubmitRetries:      DefaultSubmitRetries,
			ReconcileWaitMs:    DefaultReconcileWaitMs,
			ReconcilePollMs:    DefaultReconcilePollMs,
			RPCRateLimit:       DefaultRPCRateLimit,
		}
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{name: "defaults pass", mutate: func(cfg *Config) {}},
		{name: "slippage over 100", mutate: func(cfg *Config) { cfg.SlippagePercent = 101 }, wantErr: true},
		{name: "zero tip", mutate: func(cfg *Config) { cfg.TipLamports = 0 }, wantErr: true},
		{name: "zero chunk size", mutate: func(cfg *Config) { cfg.PoolChunkSize = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(cfg *Config) { cfg.SubmitRetries = -1 }, wantErr: true},
		{name: "zero poll interval", mutate: func(cfg *Config) { cfg.ReconcilePollMs = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
