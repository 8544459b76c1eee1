package state

import (
	"fmt"

	"leasex/native/dispute"
)

var (
	disputeSeqKey   = []byte("dispute/seq")
	disputeIndexKey = []byte("dispute/index")
)

func disputeKey(id uint64) []byte {
	return []byte(fmt.Sprintf("dispute/%d", id))
}

func disputeTenantIndexKey(tenant [20]byte) []byte {
	return []byte(fmt.Sprintf("dispute/tenant/%x", tenant))
}

func disputeLandlordIndexKey(landlord [20]byte) []byte {
	return []byte(fmt.Sprintf("dispute/landlord/%x", landlord))
}

func disputeTenantPropertyKey(tenant [20]byte, propertyID uint64) []byte {
	return []byte(fmt.Sprintf("dispute/tenant-property/%x/%d", tenant, propertyID))
}

// DisputeNextID allocates dispute ids starting at one. Zero is reserved for
// "no dispute".
func (m *Manager) DisputeNextID() (uint64, error) {
	return m.nextSequence(disputeSeqKey, 1)
}

// DisputePut stores a dispute and indexes it on first write.
func (m *Manager) DisputePut(d *dispute.Dispute) error {
	if d == nil || d.ID == 0 {
		return fmt.Errorf("state: dispute id must be set")
	}
	exists, err := m.KVGet(disputeKey(d.ID), nil)
	if err != nil {
		return err
	}
	if err := m.KVPut(disputeKey(d.ID), d.Clone()); err != nil {
		return err
	}
	if exists {
		return nil
	}
	id := encodeID(d.ID)
	if err := m.KVAppend(disputeIndexKey, id); err != nil {
		return err
	}
	if err := m.KVAppend(disputeTenantIndexKey(d.Tenant), id); err != nil {
		return err
	}
	if err := m.KVAppend(disputeLandlordIndexKey(d.Landlord), id); err != nil {
		return err
	}
	return m.KVPut(disputeTenantPropertyKey(d.Tenant, d.PropertyID), d.ID)
}

// DisputeGet loads a dispute.
func (m *Manager) DisputeGet(id uint64) (*dispute.Dispute, bool, error) {
	d := new(dispute.Dispute)
	ok, err := m.KVGet(disputeKey(id), d)
	if err != nil || !ok {
		return nil, ok, err
	}
	return d, true, nil
}

func (m *Manager) DisputeIDs() ([]uint64, error) {
	return m.idList(disputeIndexKey)
}

func (m *Manager) DisputeIDsByTenant(tenant [20]byte) ([]uint64, error) {
	return m.idList(disputeTenantIndexKey(tenant))
}

func (m *Manager) DisputeIDsByLandlord(landlord [20]byte) ([]uint64, error) {
	return m.idList(disputeLandlordIndexKey(landlord))
}

// DisputeIDForTenantProperty returns the dispute the tenant filed against the
// property, if any.
func (m *Manager) DisputeIDForTenantProperty(tenant [20]byte, propertyID uint64) (uint64, bool, error) {
	var id uint64
	ok, err := m.KVGet(disputeTenantPropertyKey(tenant, propertyID), &id)
	if err != nil {
		return 0, false, err
	}
	return id, ok, nil
}
