// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. SOLANA_LAUNCH_STORAGE_BACKEND.
const EnvPrefix = "SOLANA_LAUNCH"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendLevelDB  = "leveldb"
	BackendPostgres = "postgres"
)

type Config struct {
	Storage         StorageConfig `mapstructure:"storage"`
	PostgresURL     string        `mapstructure:"postgres_url"`
	ClickHouseURL   string        `mapstructure:"clickhouse_url"`
	RPCURL          string        `mapstructure:"rpc_url"`
	WalletKey       string        `mapstructure:"wallet_key"`
	CurveVault      string        `mapstructure:"curve_vault"`
	PriorityFee     uint64        `mapstructure:"priority_fee"`
	ComputeUnits    uint32        `mapstructure:"compute_units"`
	JournalPath     string        `mapstructure:"journal_path"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	Log             LogConfig     `mapstructure:"log"`
	ListConcurrency int           `mapstructure:"list_concurrency"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	Retries         int           `mapstructure:"retries"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`
	File      string `mapstructure:"file"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	Pretty    bool   `mapstructure:"pretty"`
}

const (
	DefaultStoragePath     = "./data/curves"
	DefaultRPCURL          = "https://api.devnet.solana.com"
	DefaultListConcurrency = 8
	DefaultRetries         = 3
	DefaultLogMaxSizeMB    = 100
	DefaultComputeUnits    = 200_000
	DefaultListenAddr      = ":8080"
)

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"backend":        "storage.backend",
	"data-dir":       "storage.path",
	"postgres-url":   "postgres_url",
	"clickhouse-url": "clickhouse_url",
	"rpc":            "rpc_url",
	"vault":          "curve_vault",
	"log-level":      "log.level",
	"log-file":       "log.file",
	"metrics-addr":   "metrics_addr",
	"journal":        "journal_path",
	"listen":         "listen_addr",
	"priority-fee":   "priority_fee",
}

// Load merges the config file, SOLANA_LAUNCH_* environment variables and
// flags into a validated Config. An empty path looks for an optional
// ./config.{json,yaml,toml}.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"storage.backend":  BackendLevelDB,
		"storage.path":     DefaultStoragePath,
		"postgres_url":     "",
		"clickhouse_url":   "",
		"rpc_url":          DefaultRPCURL,
		"wallet_key":       "",
		"curve_vault":      "",
		"priority_fee":     0,
		"compute_units":    DefaultComputeUnits,
		"journal_path":     "",
		"listen_addr":      DefaultListenAddr,
		"log.level":        "info",
		"log.file":         "",
		"log.max_size_mb":  DefaultLogMaxSizeMB,
		"log.pretty":       true,
		"list_concurrency": DefaultListConcurrency,
		"metrics_addr":     "",
		"retries":          DefaultRetries,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	return &cfg, validateConfig(&cfg)
}

// Simulated reports whether trades settle without a wallet.
func (c *Config) Simulated() bool {
	return c.WalletKey == ""
}

func validateConfig(cfg *Config) error {
	switch cfg.Storage.Backend {
	case BackendMemory:
	case BackendLevelDB:
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return errors.New("storage.path is required for the leveldb backend")
		}
	case BackendPostgres:
		if cfg.PostgresURL == "" {
			return errors.New("postgres_url is required for the postgres backend")
		}
		if err := validateURLWithCache(cfg.PostgresURL, "postgres"); err != nil {
			return errors.New("invalid postgres_url")
		}
	default:
		return errors.New("invalid storage.backend")
	}

	if cfg.ClickHouseURL != "" {
		if err := validateURLWithCache(cfg.ClickHouseURL, "clickhouse"); err != nil {
			return errors.New("invalid clickhouse_url")
		}
	}

	if cfg.RPCURL != "" {
		if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.WalletKey != "" {
		if cfg.CurveVault == "" {
			return errors.New("curve_vault is required when wallet_key is set")
		}
		if cfg.RPCURL == "" {
			return errors.New("rpc_url is required when wallet_key is set")
		}
	}
	if cfg.CurveVault != "" {
		if _, err := solana.PublicKeyFromBase58(cfg.CurveVault); err != nil {
			return errors.New("invalid curve_vault address")
		}
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return errors.New("invalid log.level")
	}

	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.ListConcurrency <= 0 {
		return errors.New("invalid list_concurrency")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.ComputeUnits > 1_400_000 {
		return errors.New("invalid compute_units")
	}
	if cfg.Log.MaxSizeMB <= 0 {
		return errors.New("invalid log.max_size_mb")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	key := protocol + "|" + rawURL
	if _, ok := urlCache.Load(key); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(key, parsed)
	return nil
}
