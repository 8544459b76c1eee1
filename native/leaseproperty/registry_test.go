package leaseproperty

import (
	"errors"
	"math/big"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"leasex/core/events"
)

type mockState struct {
	next       uint64
	properties map[uint64]*Property
}

func newMockState() *mockState {
	return &mockState{properties: make(map[uint64]*Property)}
}

func (m *mockState) LeasePropertyNextID() (uint64, error) {
	id := m.next
	m.next++
	return id, nil
}

func (m *mockState) LeasePropertyPut(p *Property) error {
	m.properties[p.ID] = p.Clone()
	return nil
}

func (m *mockState) LeasePropertyGet(id uint64) (*Property, bool, error) {
	p, ok := m.properties[id]
	return p.Clone(), ok, nil
}

func (m *mockState) LeasePropertyDelete(id uint64) error {
	delete(m.properties, id)
	return nil
}

func (m *mockState) LeasePropertyIDs() ([]uint64, error) {
	ids := make([]uint64, 0, len(m.properties))
	for id := range m.properties {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockState) LeasePropertyIDsByLandlord(landlord [20]byte) ([]uint64, error) {
	all, _ := m.LeasePropertyIDs()
	var out []uint64
	for _, id := range all {
		if m.properties[id].Landlord == landlord {
			out = append(out, id)
		}
	}
	return out, nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func sampleDetails() Details {
	return Details{
		Location:      "10 Orchard Road",
		PostalCode:    "238826",
		UnitNumber:    "#12-01",
		Type:          PropertyTypeCondo,
		Description:   "two bedroom",
		NumOfTenants:  2,
		LeasePrice:    big.NewInt(20),
		LeaseDuration: 3,
	}
}

func newTestRegistry() (*Registry, *mockState, *captureEmitter) {
	state := newMockState()
	emitter := &captureEmitter{}
	r := NewRegistry()
	r.SetState(state)
	r.SetEmitter(emitter)
	r.SetNowFunc(func() int64 { return 42 })
	return r, state, emitter
}

func TestAddLeaseProperty(t *testing.T) {
	r, _, emitter := newTestRegistry()
	landlord := [20]byte{0x01}

	p, err := r.AddLeaseProperty(landlord, sampleDetails())
	require.NoError(t, err)
	require.Equal(t, uint64(0), p.ID)
	require.True(t, p.UpdateStatus)
	require.False(t, p.IsListed)
	require.Equal(t, uint64(42), p.CreatedAt)
	require.Len(t, emitter.events, 1)
	require.Equal(t, EventTypePropertyAdded, emitter.events[0].EventType())

	second, err := r.AddLeaseProperty(landlord, sampleDetails())
	require.NoError(t, err)
	require.Equal(t, uint64(1), second.ID)
}

func TestAddLeasePropertyValidation(t *testing.T) {
	r, _, _ := newTestRegistry()
	cases := map[string]func(*Details){
		"location":  func(d *Details) { d.Location = " " },
		"postal":    func(d *Details) { d.PostalCode = "" },
		"tenants":   func(d *Details) { d.NumOfTenants = 0 },
		"duration":  func(d *Details) { d.LeaseDuration = 0 },
		"price":     func(d *Details) { d.LeasePrice = big.NewInt(0) },
		"type":      func(d *Details) { d.Type = PropertyType(9) },
		"nil price": func(d *Details) { d.LeasePrice = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := sampleDetails()
			mutate(&d)
			_, err := r.AddLeaseProperty([20]byte{0x01}, d)
			require.ErrorIs(t, err, ErrInvalidDetails)
		})
	}
}

func TestUpdateAndDeleteGuards(t *testing.T) {
	r, state, _ := newTestRegistry()
	landlord := [20]byte{0x01}
	stranger := [20]byte{0x09}
	p, err := r.AddLeaseProperty(landlord, sampleDetails())
	require.NoError(t, err)

	d := sampleDetails()
	d.LeasePrice = big.NewInt(35)
	_, err = r.UpdateLeaseProperty(stranger, p.ID, d)
	require.ErrorIs(t, err, ErrUnauthorized)

	updated, err := r.UpdateLeaseProperty(landlord, p.ID, d)
	require.NoError(t, err)
	require.Equal(t, int64(35), updated.LeasePrice.Int64())

	require.NoError(t, r.SetUpdateStatus(p.ID, false))
	_, err = r.UpdateLeaseProperty(landlord, p.ID, d)
	if !errors.Is(err, ErrPropertyLocked) {
		t.Fatalf("expected ErrPropertyLocked, got %v", err)
	}
	require.ErrorIs(t, r.DeleteLeaseProperty(landlord, p.ID), ErrPropertyLocked)

	require.NoError(t, r.SetUpdateStatus(p.ID, true))
	require.NoError(t, r.SetListing(p.ID, true, big.NewInt(50), big.NewInt(50)))
	require.ErrorIs(t, r.DeleteLeaseProperty(landlord, p.ID), ErrPropertyLocked)

	require.NoError(t, r.SetListing(p.ID, false, big.NewInt(0), big.NewInt(0)))
	require.NoError(t, r.DeleteLeaseProperty(landlord, p.ID))
	_, ok := state.properties[p.ID]
	require.False(t, ok)
	_, err = r.GetLeaseProperty(p.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListQueries(t *testing.T) {
	r, _, _ := newTestRegistry()
	alice := [20]byte{0x01}
	bob := [20]byte{0x02}
	for i := 0; i < 3; i++ {
		_, err := r.AddLeaseProperty(alice, sampleDetails())
		require.NoError(t, err)
	}
	_, err := r.AddLeaseProperty(bob, sampleDetails())
	require.NoError(t, err)
	require.NoError(t, r.SetListing(1, true, big.NewInt(10), big.NewInt(50)))
	require.NoError(t, r.SetListing(3, true, big.NewInt(10), big.NewInt(50)))

	listed, err := r.ListByLandlord(alice, true)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, uint64(1), listed[0].ID)

	unlisted, err := r.ListByLandlord(alice, false)
	require.NoError(t, err)
	require.Len(t, unlisted, 2)

	all, err := r.ListListed()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, uint64(3), all[1].ID)
}

func TestParsePropertyType(t *testing.T) {
	pt, err := ParsePropertyType("landed")
	require.NoError(t, err)
	require.Equal(t, PropertyTypeLanded, pt)
	pt, err = ParsePropertyType("0")
	require.NoError(t, err)
	require.Equal(t, PropertyTypeHDB, pt)
	_, err = ParsePropertyType("castle")
	require.Error(t, err)

	text, err := PropertyTypeOther.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "Other", string(text))
}
