package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. LEASEX_RPC_ADDRESS.
const EnvPrefix = "leasex"

type Config struct {
	RPCAddress           string `toml:"RPCAddress" envconfig:"RPC_ADDRESS"`
	DataDir              string `toml:"DataDir" envconfig:"DATA_DIR"`
	DBBackend            string `toml:"DBBackend" envconfig:"DB_BACKEND"`
	GenesisFile          string `toml:"GenesisFile" envconfig:"GENESIS_FILE"`
	ResolverKeystorePath string `toml:"ResolverKeystorePath" envconfig:"RESOLVER_KEYSTORE"`

	Economics Economics `toml:"Economics" envconfig:"ECONOMICS"`
	RPC       RPC       `toml:"RPC" envconfig:"RPC"`
	Indexer   Indexer   `toml:"Indexer" envconfig:"INDEXER"`
	Telemetry Telemetry `toml:"Telemetry" envconfig:"TELEMETRY"`
}

// Default returns the configuration written when no file exists.
func Default() *Config {
	return &Config{
		RPCAddress: ":8545",
		DataDir:    "./leasex-data",
		DBBackend:  "leveldb",
		Economics: Economics{
			ProtectionFee:    50,
			VoterReward:      50,
			VotePrice:        1,
			MinimumVotes:     4,
			VotingPeriodSecs: 7 * 24 * 60 * 60,
			WeiPerToken:      10_000_000_000_000_000,
			Validators:       []string{},
		},
		RPC: RPC{
			JWTSecretEnv:      "LEASEX_JWT_SECRET",
			RequestsPerMinute: 120,
			Burst:             20,
			AllowedOrigins:    []string{},
			TrustedProxies:    []string{},
			ReadHeaderTimeout: 5,
		},
		Indexer: Indexer{
			DSN:       "leasex-data/events.db",
			ExportDir: "leasex-data/exports",
		},
	}
}

// Load loads the configuration from the given path, creating a default file
// when none exists. Environment overrides are applied after the file and the
// result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, key := range undecoded {
				keys[i] = key.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if cfg.Economics.Validators == nil {
		cfg.Economics.Validators = []string{}
	}
	if cfg.RPC.AllowedOrigins == nil {
		cfg.RPC.AllowedOrigins = []string{}
	}
	if cfg.RPC.TrustedProxies == nil {
		cfg.RPC.TrustedProxies = []string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
