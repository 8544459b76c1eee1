package state

import (
	"fmt"

	"leasex/native/escrow"
)

var escrowHoldSeqKey = []byte("escrow/hold/seq")

func escrowProtectionKey(propertyID uint64) []byte {
	return []byte(fmt.Sprintf("escrow/protection/%d", propertyID))
}

func escrowDisputeKey(disputeID uint64) []byte {
	return []byte(fmt.Sprintf("escrow/dispute/%d", disputeID))
}

func escrowHoldKey(id uint64) []byte {
	return []byte(fmt.Sprintf("escrow/hold/%d", id))
}

// EscrowProtectionPool loads the protection pool for a property.
func (m *Manager) EscrowProtectionPool(propertyID uint64) (*escrow.ProtectionPool, bool, error) {
	pool := new(escrow.ProtectionPool)
	ok, err := m.KVGet(escrowProtectionKey(propertyID), pool)
	if err != nil || !ok {
		return nil, ok, err
	}
	return pool, true, nil
}

// EscrowPutProtectionPool stores the protection pool.
func (m *Manager) EscrowPutProtectionPool(pool *escrow.ProtectionPool) error {
	if pool == nil {
		return fmt.Errorf("state: nil protection pool")
	}
	return m.KVPut(escrowProtectionKey(pool.PropertyID), pool.Clone())
}

// EscrowDisputePool loads the stake pool for a dispute.
func (m *Manager) EscrowDisputePool(disputeID uint64) (*escrow.DisputePool, bool, error) {
	pool := new(escrow.DisputePool)
	ok, err := m.KVGet(escrowDisputeKey(disputeID), pool)
	if err != nil || !ok {
		return nil, ok, err
	}
	return pool, true, nil
}

// EscrowPutDisputePool stores the stake pool.
func (m *Manager) EscrowPutDisputePool(pool *escrow.DisputePool) error {
	if pool == nil {
		return fmt.Errorf("state: nil dispute pool")
	}
	return m.KVPut(escrowDisputeKey(pool.DisputeID), pool.Clone())
}

// EscrowNextHoldID allocates a hold id starting at zero.
func (m *Manager) EscrowNextHoldID() (uint64, error) {
	return m.nextSequence(escrowHoldSeqKey, 0)
}

// EscrowHold loads a hold by id.
func (m *Manager) EscrowHold(id uint64) (*escrow.Hold, bool, error) {
	hold := new(escrow.Hold)
	ok, err := m.KVGet(escrowHoldKey(id), hold)
	if err != nil || !ok {
		return nil, ok, err
	}
	return hold, true, nil
}

// EscrowPutHold stores a hold.
func (m *Manager) EscrowPutHold(hold *escrow.Hold) error {
	if hold == nil {
		return fmt.Errorf("state: nil hold")
	}
	return m.KVPut(escrowHoldKey(hold.ID), hold.Clone())
}
