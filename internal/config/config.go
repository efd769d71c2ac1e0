// Package config loads and validates the bundler configuration from a
// viper-backed file with environment overrides.
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	RPCList       []string `mapstructure:"rpc_list"`
	RPCRateLimit  float64  `mapstructure:"rpc_rate_limit"`
	JitoEndpoints []string `mapstructure:"jito_endpoints"`
	JitoUUID      string   `mapstructure:"jito_uuid"`

	WalletsFile string `mapstructure:"wallets_file"`
	StateDir    string `mapstructure:"state_dir"`
	LookupTable string `mapstructure:"lookup_table"`

	SlippagePercent uint64 `mapstructure:"slippage_percent"`
	TipLamports     uint64 `mapstructure:"tip_lamports"`

	ComputeUnitBase  uint32 `mapstructure:"compute_unit_base"`
	ComputeUnitPerOp uint32 `mapstructure:"compute_unit_per_op"`
	ComputeUnitPrice uint64 `mapstructure:"compute_unit_price"`

	CurveBuyChunkSize  int `mapstructure:"curve_buy_chunk_size"`
	CurveSellChunkSize int `mapstructure:"curve_sell_chunk_size"`
	PoolChunkSize      int `mapstructure:"pool_chunk_size"`

	SubmitRetries      int `mapstructure:"submit_retries"`
	ReconcileWaitMs    int `mapstructure:"reconcile_wait_ms"`
	ReconcilePollMs    int `mapstructure:"reconcile_poll_ms"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
}

const (
	DefaultRPCRateLimit       = 10.0
	DefaultSlippagePercent    = 5
	DefaultTipLamports        = 1_000_000
	DefaultComputeUnitBase    = 40_000
	DefaultComputeUnitPerOp   = 70_000
	DefaultComputeUnitPrice   = 1_000
	DefaultCurveBuyChunkSize  = 4
	DefaultCurveSellChunkSize = 5
	DefaultPoolChunkSize      = 3
	DefaultSubmitRetries      = 5
	DefaultReconcileWaitMs    = 10_000
	DefaultReconcilePollMs    = 500
	DefaultStateDir           = "runs"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"rpc_rate_limit":        DefaultRPCRateLimit,
		"slippage_percent":      DefaultSlippagePercent,
		"tip_lamports":          DefaultTipLamports,
		"compute_unit_base":     DefaultComputeUnitBase,
		"compute_unit_per_op":   DefaultComputeUnitPerOp,
		"compute_unit_price":    DefaultComputeUnitPrice,
		"curve_buy_chunk_size":  DefaultCurveBuyChunkSize,
		"curve_sell_chunk_size": DefaultCurveSellChunkSize,
		"pool_chunk_size":       DefaultPoolChunkSize,
		"submit_retries":        DefaultSubmitRetries,
		"reconcile_wait_ms":     DefaultReconcileWaitMs,
		"reconcile_poll_ms":     DefaultReconcilePollMs,
		"state_dir":             DefaultStateDir,
		"wallets_file":          "wallets.csv",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	for _, endpoint := range cfg.JitoEndpoints {
		if err := validateURLWithCache(endpoint, "http"); err != nil {
			return errors.New("invalid Jito endpoint protocol")
		}
	}
	if cfg.WalletsFile == "" {
		return errors.New("wallets_file is empty")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.SlippagePercent > 100 {
		return errors.New("invalid slippage_percent")
	}
	if cfg.TipLamports == 0 {
		return errors.New("invalid tip_lamports")
	}
	if cfg.CurveBuyChunkSize <= 0 || cfg.CurveSellChunkSize <= 0 || cfg.PoolChunkSize <= 0 {
		return errors.New("invalid chunk size")
	}
	if cfg.SubmitRetries < 0 {
		return errors.New("invalid submit_retries")
	}
	if cfg.ReconcileWaitMs <= 0 || cfg.ReconcilePollMs <= 0 {
		return errors.New("invalid reconcile timing")
	}
	if cfg.RPCRateLimit < 0 {
		return errors.New("invalid rpc_rate_limit")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("BUNDLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}

	envUUID := v.GetString("JITO_UUID")
	if envUUID != "" {
		cfg.JitoUUID = envUUID
	}
	return nil
}
