package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"leasex/crypto"
)

func testAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key.PubKey().Address().String()
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != "leveldb" || cfg.RPCAddress != ":8545" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not persisted: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if again.Economics.ProtectionFee != cfg.Economics.ProtectionFee || again.Economics.MinimumVotes != 4 {
		t.Fatalf("reloaded economics differ: %+v", again.Economics)
	}
}

func TestLoadParsesSections(t *testing.T) {
	resolver := testAddress(t)
	validator := testAddress(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := fmt.Sprintf(`RPCAddress = "127.0.0.1:9000"
DataDir = "./data"
DBBackend = "bolt"
GenesisFile = "genesis.yaml"

[Economics]
ProtectionFee = 80
VoterReward = 40
VotePrice = 2
MinimumVotes = 3
VotingPeriodSecs = 3600
WeiPerToken = 1000
Validators = ["%s"]
Resolver = "%s"

[RPC]
JWTSecretEnv = "TEST_JWT"
RequestsPerMinute = 30
Burst = 5
AllowedOrigins = ["https://leasex.example"]

[Indexer]
DSN = "postgres://leasex@localhost/leasex"
ExportDir = "./exports"

[Telemetry]
Endpoint = "localhost:4318"
Insecure = true
Traces = true
`, validator, resolver)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != "bolt" || cfg.RPCAddress != "127.0.0.1:9000" {
		t.Fatalf("unexpected node section: %+v", cfg)
	}
	if cfg.Economics.ProtectionFee != 80 || cfg.Economics.MinimumVotes != 3 {
		t.Fatalf("unexpected economics: %+v", cfg.Economics)
	}
	if cfg.RPC.Burst != 5 || len(cfg.RPC.AllowedOrigins) != 1 {
		t.Fatalf("unexpected rpc section: %+v", cfg.RPC)
	}
	if !strings.HasPrefix(cfg.Indexer.DSN, "postgres://") {
		t.Fatalf("unexpected indexer dsn: %s", cfg.Indexer.DSN)
	}
	if !cfg.Telemetry.Traces || cfg.Telemetry.Metrics {
		t.Fatalf("unexpected telemetry: %+v", cfg.Telemetry)
	}

	nodeCfg, err := cfg.NodeConfig()
	if err != nil {
		t.Fatalf("node config: %v", err)
	}
	if nodeCfg.Escrow.ProtectionFee.Int64() != 80 || nodeCfg.Escrow.VotePrice.Int64() != 2 {
		t.Fatalf("unexpected escrow params: %+v", nodeCfg.Escrow)
	}
	if nodeCfg.Dispute.VotingPeriod != 3600 || len(nodeCfg.Dispute.Validators) != 1 {
		t.Fatalf("unexpected dispute params: %+v", nodeCfg.Dispute)
	}
	if crypto.Address(nodeCfg.Dispute.Resolver).String() != resolver {
		t.Fatalf("unexpected resolver")
	}
	if nodeCfg.WeiPerToken.Uint64() != 1000 {
		t.Fatalf("unexpected wei per token: %s", nodeCfg.WeiPerToken)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("ListenAddress = \":6001\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "ListenAddress") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("LEASEX_DB_BACKEND", "memory")
	t.Setenv("LEASEX_ECONOMICS_MINIMUM_VOTES", "2")
	t.Setenv("LEASEX_RPC_BURST", "9")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != "memory" {
		t.Fatalf("backend override not applied: %s", cfg.DBBackend)
	}
	if cfg.Economics.MinimumVotes != 2 {
		t.Fatalf("economics override not applied: %d", cfg.Economics.MinimumVotes)
	}
	if cfg.RPC.Burst != 9 {
		t.Fatalf("rpc override not applied: %d", cfg.RPC.Burst)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"backend":       func(c *Config) { c.DBBackend = "rocksdb" },
		"protection":    func(c *Config) { c.Economics.ProtectionFee = 0 },
		"minimum votes": func(c *Config) { c.Economics.MinimumVotes = 0 },
		"voting period": func(c *Config) { c.Economics.VotingPeriodSecs = 5 },
		"validator":     func(c *Config) { c.Economics.Validators = []string{"bogus"} },
		"resolver":      func(c *Config) { c.Economics.Resolver = "bogus" },
		"burst":         func(c *Config) { c.RPC.Burst = 0 },
		"proxy":         func(c *Config) { c.RPC.TrustedProxies = []string{"10.0.0.0/33"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestJWTSecret(t *testing.T) {
	rpc := RPC{JWTSecretEnv: "LEASEX_TEST_SECRET"}
	if _, err := rpc.JWTSecret(); err == nil {
		t.Fatalf("expected error for unset secret")
	}
	t.Setenv("LEASEX_TEST_SECRET", "s3cret")
	secret, err := rpc.JWTSecret()
	if err != nil || string(secret) != "s3cret" {
		t.Fatalf("unexpected secret %q: %v", secret, err)
	}
}
