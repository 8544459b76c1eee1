// Package genesis loads the initial allocation of a LeaseX node and writes it
// into an empty state store.
package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"

	"leasex/crypto"
)

// Spec is the YAML genesis document.
type Spec struct {
	GenesisTime string        `yaml:"genesisTime"`
	Accounts    []AccountSpec `yaml:"accounts"`
	Validators  []string      `yaml:"validators"`
	Resolver    string        `yaml:"resolver"`

	genesisTimestamp time.Time
	validators       [][20]byte
	resolver         [20]byte
	hash             [32]byte
}

// AccountSpec seeds one account. Amounts are base-10 strings.
type AccountSpec struct {
	Address string `yaml:"address"`
	XToken  string `yaml:"xtoken"`
	Wei     string `yaml:"wei"`

	addr   [20]byte
	xtoken *big.Int
	wei    *big.Int
}

// Load reads and validates the genesis file at path. Unknown keys are
// rejected.
func Load(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis %q: %w", path, err)
	}
	spec, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis %q: %w", path, err)
	}
	return spec, nil
}

// Parse decodes and validates a genesis document.
func Parse(raw []byte) (*Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	spec.hash = ethcrypto.Keccak256Hash(raw)
	return &spec, nil
}

func (s *Spec) validate() error {
	if strings.TrimSpace(s.GenesisTime) != "" {
		ts, err := time.Parse(time.RFC3339, s.GenesisTime)
		if err != nil {
			return fmt.Errorf("genesisTime: %w", err)
		}
		s.genesisTimestamp = ts.UTC()
	}

	seen := make(map[[20]byte]struct{}, len(s.Accounts))
	for i := range s.Accounts {
		acc := &s.Accounts[i]
		addr, err := crypto.DecodeAddress(acc.Address)
		if err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
		acc.addr = [20]byte(addr)
		if _, dup := seen[acc.addr]; dup {
			return fmt.Errorf("accounts[%d]: duplicate address %s", i, acc.Address)
		}
		seen[acc.addr] = struct{}{}
		if acc.xtoken, err = parseAmount(acc.XToken); err != nil {
			return fmt.Errorf("accounts[%d].xtoken: %w", i, err)
		}
		if acc.wei, err = parseAmount(acc.Wei); err != nil {
			return fmt.Errorf("accounts[%d].wei: %w", i, err)
		}
	}

	s.validators = s.validators[:0]
	dupValidators := make(map[[20]byte]struct{}, len(s.Validators))
	for i, v := range s.Validators {
		addr, err := crypto.DecodeAddress(v)
		if err != nil {
			return fmt.Errorf("validators[%d]: %w", i, err)
		}
		if _, dup := dupValidators[addr]; dup {
			return fmt.Errorf("validators[%d]: duplicate address %s", i, v)
		}
		dupValidators[addr] = struct{}{}
		s.validators = append(s.validators, [20]byte(addr))
	}

	if strings.TrimSpace(s.Resolver) != "" {
		addr, err := crypto.DecodeAddress(s.Resolver)
		if err != nil {
			return fmt.Errorf("resolver: %w", err)
		}
		s.resolver = [20]byte(addr)
	}
	return nil
}

func parseAmount(v string) (*big.Int, error) {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", v)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

// GenesisTimestamp returns the parsed genesis time, zero if unset.
func (s *Spec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// ValidatorAddresses returns the dispute validator allowlist.
func (s *Spec) ValidatorAddresses() [][20]byte {
	return append([][20]byte(nil), s.validators...)
}

// ResolverAddress returns the configured resolver and whether one is set.
func (s *Spec) ResolverAddress() ([20]byte, bool) {
	var zero [20]byte
	return s.resolver, s.resolver != zero
}

// Hash is the keccak256 digest of the raw document.
func (s *Spec) Hash() [32]byte { return s.hash }
