package dispute

import (
	"math/big"

	"leasex/native/escrow"
)

// Outcome is the result of tallying a dispute.
type Outcome struct {
	Status Status
	// Payouts are paid from the dispute pool.
	Payouts []escrow.Payout
	// TenantReward is owed to the tenant from the property's protection pool.
	TenantReward *big.Int
}

// Tally decides the dispute and computes who is paid from the stake pool.
//
// APPROVED and REJECTED split the whole pool (voter reward plus every vote
// price) evenly between the winning voters, truncating the remainder. On
// APPROVED the tenant is also owed ProtectionFee / numOfTenants. A DRAW refunds
// every stake to whoever posted it.
func Tally(d *Dispute, fees Fees, numOfTenants uint64) Outcome {
	out := Outcome{TenantReward: big.NewInt(0)}
	approve, reject := d.ApproveVotes, d.RejectVotes
	switch {
	case approve > reject:
		out.Status = StatusApproved
	case reject > approve:
		out.Status = StatusRejected
	default:
		out.Status = StatusDraw
	}

	votePrice := orZero(fees.VotePrice)
	voterReward := orZero(fees.VoterReward)

	if out.Status == StatusDraw {
		for _, b := range d.Ballots {
			out.Payouts = append(out.Payouts, escrow.Payout{To: b.Validator, Amount: new(big.Int).Set(votePrice)})
		}
		out.Payouts = append(out.Payouts, escrow.Payout{To: d.Tenant, Amount: new(big.Int).Set(voterReward)})
		return out
	}

	winning, winners := VoteApprove, approve
	if out.Status == StatusRejected {
		winning, winners = VoteReject, reject
	}
	pool := new(big.Int).Mul(votePrice, new(big.Int).SetUint64(approve+reject))
	pool.Add(pool, voterReward)
	share := new(big.Int).Quo(pool, new(big.Int).SetUint64(winners))
	for _, b := range d.Ballots {
		if b.Vote == winning {
			out.Payouts = append(out.Payouts, escrow.Payout{To: b.Validator, Amount: new(big.Int).Set(share)})
		}
	}
	if out.Status == StatusApproved && numOfTenants > 0 {
		out.TenantReward = new(big.Int).Quo(orZero(fees.ProtectionFee), new(big.Int).SetUint64(numOfTenants))
	}
	return out
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
