package config

import (
	"fmt"
	"math/big"
	"net/netip"
	"os"
	"strings"

	"github.com/holiman/uint256"

	"leasex/core"
	"leasex/crypto"
	"leasex/native/dispute"
	"leasex/native/escrow"
)

var (
	MinVotingPeriodSeconds = uint64(60)

	backends = map[string]struct{}{"leveldb": {}, "bolt": {}, "memory": {}}
)

// Validate checks the economics, the storage backend and every configured
// address.
func (c *Config) Validate() error {
	if _, ok := backends[strings.ToLower(c.DBBackend)]; !ok {
		return fmt.Errorf("config: unknown DBBackend %q", c.DBBackend)
	}
	if strings.TrimSpace(c.DataDir) == "" && !strings.EqualFold(c.DBBackend, "memory") {
		return fmt.Errorf("config: DataDir must be set")
	}
	e := c.Economics
	switch {
	case e.ProtectionFee == 0:
		return fmt.Errorf("economics: ProtectionFee must be positive")
	case e.VoterReward == 0:
		return fmt.Errorf("economics: VoterReward must be positive")
	case e.VotePrice == 0:
		return fmt.Errorf("economics: VotePrice must be positive")
	case e.MinimumVotes == 0:
		return fmt.Errorf("economics: MinimumVotes must be at least 1")
	case e.WeiPerToken == 0:
		return fmt.Errorf("economics: WeiPerToken must be positive")
	}
	if e.VotingPeriodSecs != 0 && e.VotingPeriodSecs < MinVotingPeriodSeconds {
		return fmt.Errorf("economics: VotingPeriodSecs below %d", MinVotingPeriodSeconds)
	}
	for i, v := range e.Validators {
		if _, err := crypto.DecodeAddress(v); err != nil {
			return fmt.Errorf("economics: Validators[%d]: %w", i, err)
		}
	}
	if strings.TrimSpace(e.Resolver) != "" {
		if _, err := crypto.DecodeAddress(e.Resolver); err != nil {
			return fmt.Errorf("economics: Resolver: %w", err)
		}
	}
	if c.RPC.RequestsPerMinute > 0 && c.RPC.Burst == 0 {
		return fmt.Errorf("rpc: Burst must be positive when rate limiting is enabled")
	}
	for i, entry := range c.RPC.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if _, err := netip.ParsePrefix(entry); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			return fmt.Errorf("rpc: TrustedProxies[%d]: invalid address %q", i, entry)
		}
	}
	return nil
}

// NodeConfig converts the economics section into engine parameters.
func (c *Config) NodeConfig() (core.Config, error) {
	e := c.Economics
	cfg := core.Config{
		Escrow: escrow.Params{
			ProtectionFee: new(big.Int).SetUint64(e.ProtectionFee),
			VoterReward:   new(big.Int).SetUint64(e.VoterReward),
			VotePrice:     new(big.Int).SetUint64(e.VotePrice),
		},
		Dispute: dispute.Params{
			MinimumVotes: e.MinimumVotes,
			VotingPeriod: e.VotingPeriodSecs,
		},
		WeiPerToken: uint256.NewInt(e.WeiPerToken),
	}
	for i, v := range e.Validators {
		addr, err := crypto.DecodeAddress(v)
		if err != nil {
			return core.Config{}, fmt.Errorf("economics: Validators[%d]: %w", i, err)
		}
		cfg.Dispute.Validators = append(cfg.Dispute.Validators, [20]byte(addr))
	}
	if strings.TrimSpace(e.Resolver) != "" {
		addr, err := crypto.DecodeAddress(e.Resolver)
		if err != nil {
			return core.Config{}, fmt.Errorf("economics: Resolver: %w", err)
		}
		cfg.Dispute.Resolver = [20]byte(addr)
	}
	return cfg, nil
}

// JWTSecret reads the HS256 secret from the configured environment variable.
func (r RPC) JWTSecret() ([]byte, error) {
	name := strings.TrimSpace(r.JWTSecretEnv)
	if name == "" {
		return nil, fmt.Errorf("rpc: JWTSecretEnv not configured")
	}
	secret := strings.TrimSpace(os.Getenv(name))
	if secret == "" {
		return nil, fmt.Errorf("rpc: environment variable %s is empty", name)
	}
	return []byte(secret), nil
}
