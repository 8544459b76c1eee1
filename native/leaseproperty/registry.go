package leaseproperty

import (
	"errors"
	"math/big"
	"strconv"
	"time"

	"leasex/core/events"
	"leasex/core/types"
	"leasex/crypto"
)

const (
	EventTypePropertyAdded   = "LeasePropertyAdded"
	EventTypePropertyUpdated = "LeasePropertyUpdated"
	EventTypePropertyDeleted = "LeasePropertyDeleted"
)

var (
	ErrNotFound       = errors.New("leaseproperty: lease property not found")
	ErrUnauthorized   = errors.New("leaseproperty: caller is not the landlord")
	ErrPropertyLocked = errors.New("leaseproperty: Lease Property cannot be updated or deleted")
	ErrInvalidDetails = errors.New("leaseproperty: invalid property details")

	errNilState = errors.New("leaseproperty: state not configured")
)

type registryState interface {
	LeasePropertyNextID() (uint64, error)
	LeasePropertyPut(p *Property) error
	LeasePropertyGet(id uint64) (*Property, bool, error)
	LeasePropertyDelete(id uint64) error
	LeasePropertyIDs() ([]uint64, error)
	LeasePropertyIDsByLandlord(landlord [20]byte) ([]uint64, error)
}

type propertyEvent struct {
	evt *types.Event
}

func (e propertyEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e propertyEvent) Event() *types.Event { return e.evt }

// Registry stores lease properties and enforces landlord ownership.
type Registry struct {
	state   registryState
	emitter events.Emitter
	nowFn   func() int64
}

func NewRegistry() *Registry {
	return &Registry{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

func (r *Registry) SetState(state registryState) { r.state = state }

func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

func (r *Registry) emit(eventType string, p *Property) {
	if r.emitter == nil || p == nil {
		return
	}
	r.emitter.Emit(propertyEvent{evt: &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"propertyId": strconv.FormatUint(p.ID, 10),
			"landlord":   crypto.Address(p.Landlord).String(),
		},
	}})
}

// AddLeaseProperty creates an unlisted property owned by landlord.
func (r *Registry) AddLeaseProperty(landlord [20]byte, d Details) (*Property, error) {
	if r.state == nil {
		return nil, errNilState
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	id, err := r.state.LeasePropertyNextID()
	if err != nil {
		return nil, err
	}
	p := &Property{
		ID:             id,
		Landlord:       landlord,
		UpdateStatus:   true,
		DepositFee:     big.NewInt(0),
		ProtectionPaid: big.NewInt(0),
		CreatedAt:      uint64(r.nowFn()),
	}
	p.apply(d)
	if err := r.state.LeasePropertyPut(p); err != nil {
		return nil, err
	}
	r.emit(EventTypePropertyAdded, p)
	return p.Clone(), nil
}

func (r *Registry) owned(landlord [20]byte, id uint64) (*Property, error) {
	p, err := r.load(id)
	if err != nil {
		return nil, err
	}
	if p.Landlord != landlord {
		return nil, ErrUnauthorized
	}
	return p, nil
}

func (r *Registry) load(id uint64) (*Property, error) {
	if r.state == nil {
		return nil, errNilState
	}
	p, ok, err := r.state.LeasePropertyGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// UpdateLeaseProperty replaces the editable details of a property with no
// active applications.
func (r *Registry) UpdateLeaseProperty(landlord [20]byte, id uint64, d Details) (*Property, error) {
	p, err := r.owned(landlord, id)
	if err != nil {
		return nil, err
	}
	if !p.UpdateStatus {
		return nil, ErrPropertyLocked
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	p.apply(d)
	if err := r.state.LeasePropertyPut(p); err != nil {
		return nil, err
	}
	r.emit(EventTypePropertyUpdated, p)
	return p.Clone(), nil
}

// DeleteLeaseProperty removes an unlisted property with no active
// applications.
func (r *Registry) DeleteLeaseProperty(landlord [20]byte, id uint64) error {
	p, err := r.owned(landlord, id)
	if err != nil {
		return err
	}
	if !p.UpdateStatus || p.IsListed {
		return ErrPropertyLocked
	}
	if err := r.state.LeasePropertyDelete(id); err != nil {
		return err
	}
	r.emit(EventTypePropertyDeleted, p)
	return nil
}

// GetLeaseProperty returns a copy of the property.
func (r *Registry) GetLeaseProperty(id uint64) (*Property, error) {
	p, err := r.load(id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// ListByLandlord returns the landlord's properties whose listing status
// matches listed.
func (r *Registry) ListByLandlord(landlord [20]byte, listed bool) ([]*Property, error) {
	if r.state == nil {
		return nil, errNilState
	}
	ids, err := r.state.LeasePropertyIDsByLandlord(landlord)
	if err != nil {
		return nil, err
	}
	return r.collect(ids, func(p *Property) bool { return p.IsListed == listed })
}

// ListListed returns every listed property in id order.
func (r *Registry) ListListed() ([]*Property, error) {
	if r.state == nil {
		return nil, errNilState
	}
	ids, err := r.state.LeasePropertyIDs()
	if err != nil {
		return nil, err
	}
	return r.collect(ids, func(p *Property) bool { return p.IsListed })
}

func (r *Registry) collect(ids []uint64, keep func(*Property) bool) ([]*Property, error) {
	out := make([]*Property, 0, len(ids))
	for _, id := range ids {
		p, ok, err := r.state.LeasePropertyGet(id)
		if err != nil {
			return nil, err
		}
		if ok && keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// SetListing records the listing state. Used by the marketplace.
func (r *Registry) SetListing(id uint64, listed bool, depositFee, protectionPaid *big.Int) error {
	p, err := r.load(id)
	if err != nil {
		return err
	}
	p.IsListed = listed
	p.DepositFee = cloneBigInt(depositFee)
	p.ProtectionPaid = cloneBigInt(protectionPaid)
	return r.state.LeasePropertyPut(p)
}

// SetUpdateStatus toggles whether the landlord may edit the property.
func (r *Registry) SetUpdateStatus(id uint64, updatable bool) error {
	p, err := r.load(id)
	if err != nil {
		return err
	}
	if p.UpdateStatus == updatable {
		return nil
	}
	p.UpdateStatus = updatable
	return r.state.LeasePropertyPut(p)
}
