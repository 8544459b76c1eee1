package escrow

import (
	"fmt"
	"math/big"
)

// Params is the fee schedule fixed when the node is initialised.
type Params struct {
	ProtectionFee *big.Int
	VoterReward   *big.Int
	VotePrice     *big.Int
}

// DefaultParams returns the deployment defaults: protection fee 50, voter
// reward 50, vote price 1.
func DefaultParams() Params {
	return Params{
		ProtectionFee: big.NewInt(50),
		VoterReward:   big.NewInt(50),
		VotePrice:     big.NewInt(1),
	}
}

// Validate ensures every fee is set and positive.
func (p Params) Validate() error {
	for name, v := range map[string]*big.Int{
		"protection fee": p.ProtectionFee,
		"voter reward":   p.VoterReward,
		"vote price":     p.VotePrice,
	} {
		if v == nil || v.Sign() <= 0 {
			return fmt.Errorf("escrow: %s must be positive", name)
		}
	}
	return nil
}

// Clone returns a deep copy of the params.
func (p Params) Clone() Params {
	return Params{
		ProtectionFee: cloneBigInt(p.ProtectionFee),
		VoterReward:   cloneBigInt(p.VoterReward),
		VotePrice:     cloneBigInt(p.VotePrice),
	}
}

// ProtectionPool holds the landlord's protection fee for one listing.
type ProtectionPool struct {
	PropertyID uint64
	Landlord   [20]byte
	Collected  *big.Int
	Balance    *big.Int
	CreatedAt  uint64
}

// Clone returns a deep copy of the pool.
func (p *ProtectionPool) Clone() *ProtectionPool {
	if p == nil {
		return nil
	}
	out := *p
	out.Collected = cloneBigInt(p.Collected)
	out.Balance = cloneBigInt(p.Balance)
	return &out
}

// DisputePool collects the tenant's voter reward stake and every validator's
// vote price for a single dispute.
type DisputePool struct {
	DisputeID uint64
	Tenant    [20]byte
	Stakers   [][20]byte
	Balance   *big.Int
	Retained  *big.Int
	Settled   bool
}

// Clone returns a deep copy of the pool.
func (p *DisputePool) Clone() *DisputePool {
	if p == nil {
		return nil
	}
	out := *p
	out.Stakers = append([][20]byte(nil), p.Stakers...)
	out.Balance = cloneBigInt(p.Balance)
	out.Retained = cloneBigInt(p.Retained)
	return &out
}

// HasStaker reports whether addr already staked a vote on the pool.
func (p *DisputePool) HasStaker(addr [20]byte) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Stakers {
		if s == addr {
			return true
		}
	}
	return false
}

// HoldKind distinguishes deposit holds from monthly payment holds.
type HoldKind uint8

const (
	HoldKindDeposit HoldKind = iota
	HoldKindPayment
)

func (k HoldKind) String() string {
	switch k {
	case HoldKindDeposit:
		return "deposit"
	case HoldKindPayment:
		return "payment"
	default:
		return "unknown"
	}
}

// Hold is a tenant payment held in custody until the landlord accepts it or
// it is refunded.
type Hold struct {
	ID            uint64
	Kind          HoldKind
	PropertyID    uint64
	ApplicationID uint64
	Payer         [20]byte
	Amount        *big.Int
	Released      bool
	ReleasedTo    [20]byte
	CreatedAt     uint64
}

// Clone returns a deep copy of the hold.
func (h *Hold) Clone() *Hold {
	if h == nil {
		return nil
	}
	out := *h
	out.Amount = cloneBigInt(h.Amount)
	return &out
}

// Payout is a single transfer out of a dispute pool.
type Payout struct {
	To     [20]byte
	Amount *big.Int
}

// Settlement summarises a settled dispute pool.
type Settlement struct {
	DisputeID uint64
	Paid      *big.Int
	Retained  *big.Int
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
