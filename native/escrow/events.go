package escrow

import (
	"math/big"
	"strconv"

	"leasex/core/types"
	"leasex/crypto"
)

const (
	EventTypeProtectionCollected = "escrow.protection.collected"
	EventTypeProtectionRefunded  = "escrow.protection.refunded"
	EventTypeTenantRewarded      = "escrow.protection.rewarded"
	EventTypeHoldCreated         = "escrow.hold.created"
	EventTypeHoldReleased        = "escrow.hold.released"
	EventTypeDisputeStaked       = "escrow.dispute.staked"
	EventTypeDisputeSettled      = "escrow.dispute.settled"
)

func addr(a [20]byte) string { return crypto.Address(a).String() }

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

// NewProtectionCollectedEvent is emitted when a landlord stakes the protection
// fee for a listing.
func NewProtectionCollectedEvent(pool *ProtectionPool) *types.Event {
	return &types.Event{
		Type: EventTypeProtectionCollected,
		Attributes: map[string]string{
			"propertyId": u64(pool.PropertyID),
			"landlord":   addr(pool.Landlord),
			"amount":     amount(pool.Collected),
		},
	}
}

// NewProtectionRefundedEvent is emitted when a protection pool is closed.
func NewProtectionRefundedEvent(propertyID uint64, to [20]byte, amt *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeProtectionRefunded,
		Attributes: map[string]string{
			"propertyId": u64(propertyID),
			"to":         addr(to),
			"amount":     amount(amt),
		},
	}
}

// NewTenantRewardEvent is emitted when a tenant is paid from a protection pool.
func NewTenantRewardEvent(propertyID uint64, tenant [20]byte, amt *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTenantRewarded,
		Attributes: map[string]string{
			"propertyId": u64(propertyID),
			"tenant":     addr(tenant),
			"amount":     amount(amt),
		},
	}
}

// NewHoldCreatedEvent is emitted when a tenant payment enters custody.
func NewHoldCreatedEvent(h *Hold) *types.Event {
	return &types.Event{Type: EventTypeHoldCreated, Attributes: holdAttributes(h)}
}

// NewHoldReleasedEvent is emitted when a hold is paid out.
func NewHoldReleasedEvent(h *Hold) *types.Event {
	attrs := holdAttributes(h)
	attrs["to"] = addr(h.ReleasedTo)
	return &types.Event{Type: EventTypeHoldReleased, Attributes: attrs}
}

func holdAttributes(h *Hold) map[string]string {
	return map[string]string{
		"holdId":        u64(h.ID),
		"kind":          h.Kind.String(),
		"propertyId":    u64(h.PropertyID),
		"applicationId": u64(h.ApplicationID),
		"payer":         addr(h.Payer),
		"amount":        amount(h.Amount),
	}
}

// NewDisputeStakedEvent is emitted for every stake added to a dispute pool.
func NewDisputeStakedEvent(disputeID uint64, staker [20]byte, stake, balance *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeDisputeStaked,
		Attributes: map[string]string{
			"disputeId": u64(disputeID),
			"staker":    addr(staker),
			"amount":    amount(stake),
			"balance":   amount(balance),
		},
	}
}

// NewDisputeSettledEvent is emitted once a dispute pool is paid out.
func NewDisputeSettledEvent(s *Settlement, payouts int) *types.Event {
	return &types.Event{
		Type: EventTypeDisputeSettled,
		Attributes: map[string]string{
			"disputeId": u64(s.DisputeID),
			"paid":      amount(s.Paid),
			"retained":  amount(s.Retained),
			"payouts":   strconv.Itoa(payouts),
		},
	}
}
