package state

import (
	"encoding/binary"
	"fmt"
	"sort"

	"leasex/native/leaseproperty"
	"leasex/native/marketplace"
)

var (
	propertySeqKey   = []byte("lease/property/seq")
	propertyIndexKey = []byte("lease/property/index")
)

func propertyKey(id uint64) []byte {
	return []byte(fmt.Sprintf("lease/property/%d", id))
}

func propertyLandlordIndexKey(landlord [20]byte) []byte {
	return []byte(fmt.Sprintf("lease/property/landlord/%x", landlord))
}

func applicationSeqKey(propertyID uint64) []byte {
	return []byte(fmt.Sprintf("market/application/seq/%d", propertyID))
}

func applicationKey(propertyID, applicationID uint64) []byte {
	return []byte(fmt.Sprintf("market/application/%d/%d", propertyID, applicationID))
}

func applicationIndexKey(propertyID uint64) []byte {
	return []byte(fmt.Sprintf("market/application/index/%d", propertyID))
}

func tenantApplicationIndexKey(tenant [20]byte) []byte {
	return []byte(fmt.Sprintf("market/application/tenant/%x", tenant))
}

func encodeApplicationKey(k marketplace.ApplicationKey) []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], k.PropertyID)
	binary.BigEndian.PutUint64(buf[8:], k.ApplicationID)
	return buf[:]
}

// LeasePropertyNextID allocates a property id starting at zero.
func (m *Manager) LeasePropertyNextID() (uint64, error) {
	return m.nextSequence(propertySeqKey, 0)
}

// LeasePropertyPut stores a property and indexes it on first write.
func (m *Manager) LeasePropertyPut(p *leaseproperty.Property) error {
	if p == nil {
		return fmt.Errorf("state: nil property")
	}
	exists, err := m.KVGet(propertyKey(p.ID), nil)
	if err != nil {
		return err
	}
	if err := m.KVPut(propertyKey(p.ID), p.Clone()); err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := m.KVAppend(propertyIndexKey, encodeID(p.ID)); err != nil {
		return err
	}
	return m.KVAppend(propertyLandlordIndexKey(p.Landlord), encodeID(p.ID))
}

// LeasePropertyGet loads a property.
func (m *Manager) LeasePropertyGet(id uint64) (*leaseproperty.Property, bool, error) {
	p := new(leaseproperty.Property)
	ok, err := m.KVGet(propertyKey(id), p)
	if err != nil || !ok {
		return nil, ok, err
	}
	return p, true, nil
}

// LeasePropertyDelete removes a property and its index entries.
func (m *Manager) LeasePropertyDelete(id uint64) error {
	p, ok, err := m.LeasePropertyGet(id)
	if err != nil || !ok {
		return err
	}
	if err := m.KVRemove(propertyIndexKey, encodeID(id)); err != nil {
		return err
	}
	if err := m.KVRemove(propertyLandlordIndexKey(p.Landlord), encodeID(id)); err != nil {
		return err
	}
	return m.KVDelete(propertyKey(id))
}

// LeasePropertyIDs returns every property id in ascending order.
func (m *Manager) LeasePropertyIDs() ([]uint64, error) {
	return m.idList(propertyIndexKey)
}

// LeasePropertyIDsByLandlord returns the landlord's property ids.
func (m *Manager) LeasePropertyIDsByLandlord(landlord [20]byte) ([]uint64, error) {
	return m.idList(propertyLandlordIndexKey(landlord))
}

// MarketNextApplicationID allocates the next application id for a property.
func (m *Manager) MarketNextApplicationID(propertyID uint64) (uint64, error) {
	return m.nextSequence(applicationSeqKey(propertyID), 0)
}

// MarketPutApplication stores an application and indexes it on first write.
func (m *Manager) MarketPutApplication(app *marketplace.Application) error {
	if app == nil {
		return fmt.Errorf("state: nil application")
	}
	key := applicationKey(app.PropertyID, app.ID)
	exists, err := m.KVGet(key, nil)
	if err != nil {
		return err
	}
	if err := m.KVPut(key, app.Clone()); err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := m.KVAppend(applicationIndexKey(app.PropertyID), encodeID(app.ID)); err != nil {
		return err
	}
	ref := marketplace.ApplicationKey{PropertyID: app.PropertyID, ApplicationID: app.ID}
	return m.KVAppend(tenantApplicationIndexKey(app.Tenant), encodeApplicationKey(ref))
}

// MarketApplication loads an application.
func (m *Manager) MarketApplication(propertyID, applicationID uint64) (*marketplace.Application, bool, error) {
	app := new(marketplace.Application)
	ok, err := m.KVGet(applicationKey(propertyID, applicationID), app)
	if err != nil || !ok {
		return nil, ok, err
	}
	return app, true, nil
}

// MarketDeleteApplication removes an application and its index entries.
func (m *Manager) MarketDeleteApplication(propertyID, applicationID uint64) error {
	app, ok, err := m.MarketApplication(propertyID, applicationID)
	if err != nil || !ok {
		return err
	}
	if err := m.KVRemove(applicationIndexKey(propertyID), encodeID(applicationID)); err != nil {
		return err
	}
	ref := marketplace.ApplicationKey{PropertyID: propertyID, ApplicationID: applicationID}
	if err := m.KVRemove(tenantApplicationIndexKey(app.Tenant), encodeApplicationKey(ref)); err != nil {
		return err
	}
	return m.KVDelete(applicationKey(propertyID, applicationID))
}

// MarketApplicationIDs returns the open application ids of a property.
func (m *Manager) MarketApplicationIDs(propertyID uint64) ([]uint64, error) {
	return m.idList(applicationIndexKey(propertyID))
}

// MarketTenantApplications returns the tenant's open applications ordered by
// property then application id.
func (m *Manager) MarketTenantApplications(tenant [20]byte) ([]marketplace.ApplicationKey, error) {
	raw, err := m.loadList(tenantApplicationIndexKey(tenant))
	if err != nil {
		return nil, err
	}
	out := make([]marketplace.ApplicationKey, 0, len(raw))
	for _, b := range raw {
		if len(b) != 16 {
			return nil, fmt.Errorf("state: corrupt tenant application index")
		}
		out = append(out, marketplace.ApplicationKey{
			PropertyID:    binary.BigEndian.Uint64(b[:8]),
			ApplicationID: binary.BigEndian.Uint64(b[8:]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PropertyID != out[j].PropertyID {
			return out[i].PropertyID < out[j].PropertyID
		}
		return out[i].ApplicationID < out[j].ApplicationID
	})
	return out, nil
}
