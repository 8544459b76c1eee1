package marketplace

import (
	"errors"
	"math/big"
	"time"

	"leasex/core/events"
	"leasex/core/types"
	"leasex/native/leaseproperty"
)

var (
	ErrUnauthorized            = errors.New("marketplace: caller is not permitted to perform this action")
	ErrPropertyNotListed       = errors.New("marketplace: lease property is not listed")
	ErrPropertyAlreadyListed   = errors.New("marketplace: lease property is already listed")
	ErrPropertyNotVacant       = errors.New("marketplace: Lease property is not vacant")
	ErrPropertyFull            = errors.New("marketplace: lease property has no vacancy")
	ErrDuplicateApplication    = errors.New("marketplace: tenant already has an application for this lease property")
	ErrApplicationNotFound     = errors.New("marketplace: lease application not found")
	ErrInvalidStatus           = errors.New("marketplace: lease application is not in the required status")
	ErrPaymentNotMade          = errors.New("marketplace: Tenant has not made payment")
	ErrApplicationNotCompleted = errors.New("marketplace: Lease application is not completed")
	ErrInvalidDeposit          = errors.New("marketplace: deposit fee must not be negative")

	errNilState = errors.New("marketplace: state not configured")
)

type marketState interface {
	MarketNextApplicationID(propertyID uint64) (uint64, error)
	MarketPutApplication(app *Application) error
	MarketApplication(propertyID, applicationID uint64) (*Application, bool, error)
	MarketDeleteApplication(propertyID, applicationID uint64) error
	MarketApplicationIDs(propertyID uint64) ([]uint64, error)
	MarketTenantApplications(tenant [20]byte) ([]ApplicationKey, error)
}

type properties interface {
	GetLeaseProperty(id uint64) (*leaseproperty.Property, error)
	SetListing(id uint64, listed bool, depositFee, protectionPaid *big.Int) error
	SetUpdateStatus(id uint64, updatable bool) error
}

type custody interface {
	ProtectionFee() *big.Int
	CollectProtectionFee(landlord [20]byte, propertyID uint64) error
	RefundProtectionFee(propertyID uint64, to [20]byte) (*big.Int, error)
	HoldDeposit(tenant [20]byte, propertyID, applicationID uint64, amount *big.Int) (uint64, error)
	HoldPayment(tenant [20]byte, propertyID, applicationID uint64, amount *big.Int) (uint64, error)
	ReleaseHold(id uint64, to [20]byte) error
}

type ledger interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// Engine runs listings and the lease application state machine on top of the
// property registry and escrow custody.
type Engine struct {
	state      marketState
	properties properties
	custody    custody
	ledger     ledger
	emitter    events.Emitter
	nowFn      func() int64
}

func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

func (e *Engine) SetState(state marketState) { e.state = state }
func (e *Engine) SetProperties(p properties) { e.properties = p }
func (e *Engine) SetCustody(c custody) { e.custody = c }
func (e *Engine) SetLedger(l ledger) { e.ledger = l }
func (e *Engine) SetNowFunc(now func() int64) { e.nowFn = now }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: evt})
}

func (e *Engine) now() uint64 {
	if e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(e.nowFn())
}

func (e *Engine) ready() error {
	if e.state == nil || e.properties == nil || e.custody == nil || e.ledger == nil {
		return errNilState
	}
	return nil
}

// ListALeaseProperty stakes the protection fee and opens the property for
// applications.
func (e *Engine) ListALeaseProperty(landlord [20]byte, propertyID uint64, depositFee *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if depositFee == nil || depositFee.Sign() < 0 {
		return ErrInvalidDeposit
	}
	p, err := e.properties.GetLeaseProperty(propertyID)
	if err != nil {
		return err
	}
	if p.Landlord != landlord {
		return ErrUnauthorized
	}
	if p.IsListed {
		return ErrPropertyAlreadyListed
	}
	if err := e.custody.CollectProtectionFee(landlord, propertyID); err != nil {
		return err
	}
	if err := e.properties.SetListing(propertyID, true, depositFee, e.custody.ProtectionFee()); err != nil {
		return err
	}
	e.emit(newListedEvent(propertyID, landlord, depositFee))
	return nil
}

// UnlistALeaseProperty closes a vacant listing and returns the protection pool
// to the landlord.
func (e *Engine) UnlistALeaseProperty(landlord [20]byte, propertyID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	p, err := e.properties.GetLeaseProperty(propertyID)
	if err != nil {
		return err
	}
	if p.Landlord != landlord {
		return ErrUnauthorized
	}
	if !p.IsListed {
		return ErrPropertyNotListed
	}
	ids, err := e.state.MarketApplicationIDs(propertyID)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		return ErrPropertyNotVacant
	}
	refunded, err := e.custody.RefundProtectionFee(propertyID, landlord)
	if err != nil {
		return err
	}
	if err := e.properties.SetListing(propertyID, false, big.NewInt(0), big.NewInt(0)); err != nil {
		return err
	}
	e.emit(newUnlistedEvent(propertyID, landlord, refunded))
	return nil
}

// ApplyLeaseProperty holds the deposit from the tenant and files a pending
// application.
func (e *Engine) ApplyLeaseProperty(tenant [20]byte, propertyID uint64, applicant Applicant) (*Application, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	p, err := e.properties.GetLeaseProperty(propertyID)
	if err != nil {
		return nil, err
	}
	if !p.IsListed {
		return nil, ErrPropertyNotListed
	}
	if p.Landlord == tenant {
		return nil, ErrUnauthorized
	}
	apps, err := e.applications(propertyID)
	if err != nil {
		return nil, err
	}
	for _, existing := range apps {
		if existing.Tenant == tenant {
			return nil, ErrDuplicateApplication
		}
	}
	id, err := e.state.MarketNextApplicationID(propertyID)
	if err != nil {
		return nil, err
	}
	holdID, err := e.custody.HoldDeposit(tenant, propertyID, id, p.DepositFee)
	if err != nil {
		return nil, err
	}
	app := &Application{
		PropertyID:  propertyID,
		ID:          id,
		Tenant:      tenant,
		Landlord:    p.Landlord,
		TenantName:  applicant.Name,
		TenantEmail: applicant.Email,
		TenantPhone: applicant.Phone,
		Description: applicant.Description,
		Status:      StatusPending,
		Deposit:     cloneBigInt(p.DepositFee),
		PaymentIDs:  []uint64{holdID},
		CreatedAt:   e.now(),
	}
	if err := e.state.MarketPutApplication(app); err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		if err := e.properties.SetUpdateStatus(propertyID, false); err != nil {
			return nil, err
		}
	}
	e.emit(newApplicationEvent(EventTypeApplicationSubmitted, app))
	return app.Clone(), nil
}

// AcceptLeaseApplication releases the deposit to the landlord and starts the
// lease.
func (e *Engine) AcceptLeaseApplication(landlord [20]byte, propertyID, applicationID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	app, err := e.load(propertyID, applicationID)
	if err != nil {
		return err
	}
	if app.Landlord != landlord {
		return ErrUnauthorized
	}
	if app.Status != StatusPending {
		return ErrInvalidStatus
	}
	p, err := e.properties.GetLeaseProperty(propertyID)
	if err != nil {
		return err
	}
	occupied, err := e.occupancy(propertyID)
	if err != nil {
		return err
	}
	if occupied >= p.NumOfTenants {
		return ErrPropertyFull
	}
	if err := e.custody.ReleaseHold(app.PaymentIDs[0], landlord); err != nil {
		return err
	}
	app.Status = StatusOngoing
	if err := e.state.MarketPutApplication(app); err != nil {
		return err
	}
	e.emit(newApplicationEvent(EventTypeApplicationAccepted, app))
	return nil
}

// CancelOrRejectLeaseApplication refunds the deposit and removes a pending
// application. Either party may call it.
func (e *Engine) CancelOrRejectLeaseApplication(caller [20]byte, propertyID, applicationID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	app, err := e.load(propertyID, applicationID)
	if err != nil {
		return err
	}
	if caller != app.Tenant && caller != app.Landlord {
		return ErrUnauthorized
	}
	if app.Status != StatusPending {
		return ErrInvalidStatus
	}
	if err := e.custody.ReleaseHold(app.PaymentIDs[0], app.Tenant); err != nil {
		return err
	}
	if err := e.remove(app); err != nil {
		return err
	}
	e.emit(newApplicationEvent(EventTypeApplicationCancelOrRejected, app))
	return nil
}

// MakePayment holds one month of rent from the tenant.
func (e *Engine) MakePayment(tenant [20]byte, propertyID, applicationID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	app, err := e.load(propertyID, applicationID)
	if err != nil {
		return err
	}
	if app.Tenant != tenant {
		return ErrUnauthorized
	}
	if app.Status != StatusOngoing {
		return ErrInvalidStatus
	}
	p, err := e.properties.GetLeaseProperty(propertyID)
	if err != nil {
		return err
	}
	holdID, err := e.custody.HoldPayment(tenant, propertyID, applicationID, p.LeasePrice)
	if err != nil {
		return err
	}
	app.PaymentIDs = append(app.PaymentIDs, holdID)
	app.Status = StatusMadePayment
	if err := e.state.MarketPutApplication(app); err != nil {
		return err
	}
	e.emit(newPaymentEvent(EventTypePaymentMade, app, p.LeasePrice))
	return nil
}

// AcceptPayment releases the held rent to the landlord. The final month
// completes the lease.
func (e *Engine) AcceptPayment(landlord [20]byte, propertyID, applicationID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	app, err := e.load(propertyID, applicationID)
	if err != nil {
		return err
	}
	if app.Landlord != landlord {
		return ErrUnauthorized
	}
	if app.Status != StatusMadePayment {
		return ErrPaymentNotMade
	}
	holdID, ok := app.pendingHold()
	if !ok {
		return ErrPaymentNotMade
	}
	p, err := e.properties.GetLeaseProperty(propertyID)
	if err != nil {
		return err
	}
	if err := e.custody.ReleaseHold(holdID, landlord); err != nil {
		return err
	}
	app.MonthsPaid++
	if app.MonthsPaid >= p.LeaseDuration {
		app.Status = StatusCompleted
	} else {
		app.Status = StatusOngoing
	}
	if err := e.state.MarketPutApplication(app); err != nil {
		return err
	}
	e.emit(newPaymentEvent(EventTypePaymentAccepted, app, p.LeasePrice))
	return nil
}

// MoveOut returns the deposit from the landlord to the tenant and closes a
// completed lease.
func (e *Engine) MoveOut(tenant [20]byte, propertyID, applicationID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	app, err := e.load(propertyID, applicationID)
	if err != nil {
		return err
	}
	if app.Tenant != tenant {
		return ErrUnauthorized
	}
	if app.Status != StatusCompleted {
		return ErrApplicationNotCompleted
	}
	if err := e.ledger.Transfer(app.Landlord, app.Tenant, cloneBigInt(app.Deposit)); err != nil {
		return err
	}
	if err := e.remove(app); err != nil {
		return err
	}
	e.emit(newApplicationEvent(EventTypeTenantMovedOut, app))
	return nil
}

// MarkDisputed moves a completed application into DISPUTE.
func (e *Engine) MarkDisputed(propertyID, applicationID uint64) error {
	return e.transition(propertyID, applicationID, StatusCompleted, StatusDispute, ErrApplicationNotCompleted)
}

// ClearDispute returns a disputed application to COMPLETED.
func (e *Engine) ClearDispute(propertyID, applicationID uint64) error {
	return e.transition(propertyID, applicationID, StatusDispute, StatusCompleted, ErrInvalidStatus)
}

func (e *Engine) transition(propertyID, applicationID uint64, from, to ApplicationStatus, failure error) error {
	if e.state == nil {
		return errNilState
	}
	app, err := e.load(propertyID, applicationID)
	if err != nil {
		return err
	}
	if app.Status != from {
		return failure
	}
	app.Status = to
	return e.state.MarketPutApplication(app)
}

// GetLeaseApplication returns a copy of the application.
func (e *Engine) GetLeaseApplication(propertyID, applicationID uint64) (*Application, error) {
	if e.state == nil {
		return nil, errNilState
	}
	app, err := e.load(propertyID, applicationID)
	if err != nil {
		return nil, err
	}
	return app.Clone(), nil
}

// GetAllLeaseApplications returns the property's applications in id order.
func (e *Engine) GetAllLeaseApplications(propertyID uint64) ([]*Application, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.applications(propertyID)
}

// GetLeaseApplicationCount returns the number of applications on file.
func (e *Engine) GetLeaseApplicationCount(propertyID uint64) (uint64, error) {
	if e.state == nil {
		return 0, errNilState
	}
	ids, err := e.state.MarketApplicationIDs(propertyID)
	if err != nil {
		return 0, err
	}
	return uint64(len(ids)), nil
}

// GetLeaseApplicationsByTenant returns every open application of the tenant.
func (e *Engine) GetLeaseApplicationsByTenant(tenant [20]byte) ([]*Application, error) {
	if e.state == nil {
		return nil, errNilState
	}
	keys, err := e.state.MarketTenantApplications(tenant)
	if err != nil {
		return nil, err
	}
	out := make([]*Application, 0, len(keys))
	for _, k := range keys {
		app, ok, err := e.state.MarketApplication(k.PropertyID, k.ApplicationID)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, app.Clone())
		}
	}
	return out, nil
}

// GetDepositAmount returns the deposit fee of a listed property.
func (e *Engine) GetDepositAmount(propertyID uint64) (*big.Int, error) {
	if e.properties == nil {
		return nil, errNilState
	}
	p, err := e.properties.GetLeaseProperty(propertyID)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(p.DepositFee), nil
}

func (e *Engine) load(propertyID, applicationID uint64) (*Application, error) {
	app, ok, err := e.state.MarketApplication(propertyID, applicationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrApplicationNotFound
	}
	return app, nil
}

func (e *Engine) applications(propertyID uint64) ([]*Application, error) {
	ids, err := e.state.MarketApplicationIDs(propertyID)
	if err != nil {
		return nil, err
	}
	out := make([]*Application, 0, len(ids))
	for _, id := range ids {
		app, ok, err := e.state.MarketApplication(propertyID, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, app.Clone())
		}
	}
	return out, nil
}

func (e *Engine) occupancy(propertyID uint64) (uint64, error) {
	apps, err := e.applications(propertyID)
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, app := range apps {
		if app.Status.Occupying() {
			n++
		}
	}
	return n, nil
}

func (e *Engine) remove(app *Application) error {
	if err := e.state.MarketDeleteApplication(app.PropertyID, app.ID); err != nil {
		return err
	}
	remaining, err := e.state.MarketApplicationIDs(app.PropertyID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return e.properties.SetUpdateStatus(app.PropertyID, true)
	}
	return nil
}
