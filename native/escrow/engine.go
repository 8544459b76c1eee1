package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"leasex/core/events"
	"leasex/core/types"
	"leasex/crypto"
)

var (
	// ErrAlreadyVoted is returned when a validator stakes twice on one dispute.
	ErrAlreadyVoted = errors.New("escrow: Voter has already voted")
	// ErrPoolExists is returned when a pool is opened twice.
	ErrPoolExists = errors.New("escrow: pool already exists")
	// ErrPoolNotFound is returned when a pool does not exist.
	ErrPoolNotFound = errors.New("escrow: pool not found")
	// ErrPoolEmpty is returned when a protection pool holds nothing to refund.
	ErrPoolEmpty = errors.New("escrow: protection fee already refunded")
	// ErrPoolSettled is returned when a dispute pool is settled twice.
	ErrPoolSettled = errors.New("escrow: dispute pool already settled")
	// ErrPoolOverdrawn is returned when payouts exceed the pool balance.
	ErrPoolOverdrawn = errors.New("escrow: payouts exceed pool balance")
	// ErrHoldNotFound is returned when a hold does not exist.
	ErrHoldNotFound = errors.New("escrow: hold not found")
	// ErrHoldReleased is returned when a hold is released twice.
	ErrHoldReleased = errors.New("escrow: hold already released")

	errNilState  = errors.New("escrow engine: state not configured")
	errNilLedger = errors.New("escrow engine: ledger not configured")
)

// VaultAddress is the module account that custodies every pool and hold.
var VaultAddress = [20]byte(crypto.ModuleAddress("leasex/escrow/vault"))

type engineState interface {
	EscrowProtectionPool(propertyID uint64) (*ProtectionPool, bool, error)
	EscrowPutProtectionPool(pool *ProtectionPool) error
	EscrowDisputePool(disputeID uint64) (*DisputePool, bool, error)
	EscrowPutDisputePool(pool *DisputePool) error
	EscrowNextHoldID() (uint64, error)
	EscrowHold(id uint64) (*Hold, bool, error)
	EscrowPutHold(hold *Hold) error
}

type ledger interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine custodies protection fees, application holds and dispute stakes in
// the vault account and releases them only through its own operations.
type Engine struct {
	state   engineState
	ledger  ledger
	emitter events.Emitter
	params  Params
	nowFn   func() int64
}

// NewEngine creates an escrow engine with the default fee schedule and a
// no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		params:  DefaultParams(),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the token ledger funds move through.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetParams replaces the fee schedule.
func (e *Engine) SetParams(p Params) { e.params = p.Clone() }

// Params returns a copy of the fee schedule.
func (e *Engine) Params() Params { return e.params.Clone() }

// ProtectionFee returns the fee a landlord stakes to list a property.
func (e *Engine) ProtectionFee() *big.Int { return cloneBigInt(e.params.ProtectionFee) }

// VoterReward returns the stake a tenant posts to open a dispute.
func (e *Engine) VoterReward() *big.Int { return cloneBigInt(e.params.VoterReward) }

// VotePrice returns the stake a validator posts per vote.
func (e *Engine) VotePrice() *big.Int { return cloneBigInt(e.params.VotePrice) }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(e.nowFn())
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

// CollectProtectionFee debits the landlord the protection fee into the
// property's pool. The pool must be empty.
func (e *Engine) CollectProtectionFee(landlord [20]byte, propertyID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	existing, ok, err := e.state.EscrowProtectionPool(propertyID)
	if err != nil {
		return err
	}
	if ok && existing.Balance != nil && existing.Balance.Sign() > 0 {
		return ErrPoolExists
	}
	fee := cloneBigInt(e.params.ProtectionFee)
	if err := e.ledger.Transfer(landlord, VaultAddress, fee); err != nil {
		return err
	}
	pool := &ProtectionPool{
		PropertyID: propertyID,
		Landlord:   landlord,
		Collected:  fee,
		Balance:    cloneBigInt(fee),
		CreatedAt:  e.now(),
	}
	if err := e.state.EscrowPutProtectionPool(pool); err != nil {
		return err
	}
	e.emit(NewProtectionCollectedEvent(pool))
	return nil
}

// ProtectionBalance returns the amount still held for the property.
func (e *Engine) ProtectionBalance(propertyID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, ok, err := e.state.EscrowProtectionPool(propertyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return cloneBigInt(pool.Balance), nil
}

// RefundProtectionFee returns whatever remains in the property pool to `to`
// and empties the pool.
func (e *Engine) RefundProtectionFee(propertyID uint64, to [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pool, ok, err := e.state.EscrowProtectionPool(propertyID)
	if err != nil {
		return nil, err
	}
	if !ok || pool.Balance == nil || pool.Balance.Sign() == 0 {
		if ok && pool.Collected != nil && pool.Collected.Sign() > 0 {
			// Fully paid out to tenants; nothing left but the pool is closed.
			return e.closeProtectionPool(pool, to, big.NewInt(0))
		}
		return nil, ErrPoolEmpty
	}
	amount := cloneBigInt(pool.Balance)
	if err := e.ledger.Transfer(VaultAddress, to, amount); err != nil {
		return nil, err
	}
	return e.closeProtectionPool(pool, to, amount)
}

func (e *Engine) closeProtectionPool(pool *ProtectionPool, to [20]byte, amount *big.Int) (*big.Int, error) {
	pool.Balance = big.NewInt(0)
	pool.Collected = big.NewInt(0)
	if err := e.state.EscrowPutProtectionPool(pool); err != nil {
		return nil, err
	}
	e.emit(NewProtectionRefundedEvent(pool.PropertyID, to, amount))
	return amount, nil
}

// PayTenantReward pays up to amount from the property pool to the tenant and
// returns what was actually paid.
func (e *Engine) PayTenantReward(propertyID uint64, tenant [20]byte, amount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pool, ok, err := e.state.EscrowProtectionPool(propertyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	paid := cloneBigInt(amount)
	if paid.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	if paid.Cmp(pool.Balance) > 0 {
		paid = cloneBigInt(pool.Balance)
	}
	if paid.Sign() == 0 {
		return paid, nil
	}
	if err := e.ledger.Transfer(VaultAddress, tenant, paid); err != nil {
		return nil, err
	}
	pool.Balance = new(big.Int).Sub(pool.Balance, paid)
	if err := e.state.EscrowPutProtectionPool(pool); err != nil {
		return nil, err
	}
	e.emit(NewTenantRewardEvent(propertyID, tenant, paid))
	return paid, nil
}

// HoldDeposit holds an application deposit from the tenant.
func (e *Engine) HoldDeposit(tenant [20]byte, propertyID, applicationID uint64, amount *big.Int) (uint64, error) {
	return e.HoldFunds(HoldKindDeposit, tenant, propertyID, applicationID, amount)
}

// HoldPayment holds one month of rent from the tenant.
func (e *Engine) HoldPayment(tenant [20]byte, propertyID, applicationID uint64, amount *big.Int) (uint64, error) {
	return e.HoldFunds(HoldKindPayment, tenant, propertyID, applicationID, amount)
}

// HoldFunds moves amount from payer into a new hold tied to an application.
func (e *Engine) HoldFunds(kind HoldKind, payer [20]byte, propertyID, applicationID uint64, amount *big.Int) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return 0, fmt.Errorf("escrow: negative hold amount")
	}
	if err := e.ledger.Transfer(payer, VaultAddress, amt); err != nil {
		return 0, err
	}
	id, err := e.state.EscrowNextHoldID()
	if err != nil {
		return 0, err
	}
	hold := &Hold{
		ID:            id,
		Kind:          kind,
		PropertyID:    propertyID,
		ApplicationID: applicationID,
		Payer:         payer,
		Amount:        amt,
		CreatedAt:     e.now(),
	}
	if err := e.state.EscrowPutHold(hold); err != nil {
		return 0, err
	}
	e.emit(NewHoldCreatedEvent(hold))
	return id, nil
}

// GetHold returns a copy of the hold.
func (e *Engine) GetHold(id uint64) (*Hold, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	hold, ok, err := e.state.EscrowHold(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHoldNotFound
	}
	return hold.Clone(), nil
}

// ReleaseHold pays the held amount to `to`.
func (e *Engine) ReleaseHold(id uint64, to [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	hold, ok, err := e.state.EscrowHold(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrHoldNotFound
	}
	if hold.Released {
		return ErrHoldReleased
	}
	if err := e.ledger.Transfer(VaultAddress, to, cloneBigInt(hold.Amount)); err != nil {
		return err
	}
	hold.Released = true
	hold.ReleasedTo = to
	if err := e.state.EscrowPutHold(hold); err != nil {
		return err
	}
	e.emit(NewHoldReleasedEvent(hold))
	return nil
}

// StakeDisputeVoterReward opens the dispute pool with the tenant's stake.
func (e *Engine) StakeDisputeVoterReward(tenant [20]byte, disputeID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, ok, err := e.state.EscrowDisputePool(disputeID); err != nil {
		return err
	} else if ok {
		return ErrPoolExists
	}
	stake := cloneBigInt(e.params.VoterReward)
	if err := e.ledger.Transfer(tenant, VaultAddress, stake); err != nil {
		return err
	}
	pool := &DisputePool{
		DisputeID: disputeID,
		Tenant:    tenant,
		Balance:   stake,
		Retained:  big.NewInt(0),
	}
	if err := e.state.EscrowPutDisputePool(pool); err != nil {
		return err
	}
	e.emit(NewDisputeStakedEvent(disputeID, tenant, stake, pool.Balance))
	return nil
}

// StakeVote adds the validator's vote price to the dispute pool.
func (e *Engine) StakeVote(validator [20]byte, disputeID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	pool, err := e.loadDisputePool(disputeID)
	if err != nil {
		return err
	}
	if pool.Settled {
		return ErrPoolSettled
	}
	if pool.HasStaker(validator) {
		return ErrAlreadyVoted
	}
	price := cloneBigInt(e.params.VotePrice)
	if err := e.ledger.Transfer(validator, VaultAddress, price); err != nil {
		return err
	}
	pool.Stakers = append(pool.Stakers, validator)
	pool.Balance = new(big.Int).Add(pool.Balance, price)
	if err := e.state.EscrowPutDisputePool(pool); err != nil {
		return err
	}
	e.emit(NewDisputeStakedEvent(disputeID, validator, price, pool.Balance))
	return nil
}

// DisputePool returns a copy of the pool for disputeID.
func (e *Engine) DisputePool(disputeID uint64) (*DisputePool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, err := e.loadDisputePool(disputeID)
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

func (e *Engine) loadDisputePool(disputeID uint64) (*DisputePool, error) {
	pool, ok, err := e.state.EscrowDisputePool(disputeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPoolNotFound
	}
	return pool, nil
}

// SettleDispute pays out the dispute pool. Whatever the payouts leave behind
// is recorded as retained and stays in the vault; the spendable balance drops
// to zero.
func (e *Engine) SettleDispute(disputeID uint64, payouts []Payout) (*Settlement, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pool, err := e.loadDisputePool(disputeID)
	if err != nil {
		return nil, err
	}
	if pool.Settled {
		return nil, ErrPoolSettled
	}
	total := big.NewInt(0)
	for _, p := range payouts {
		if p.Amount == nil || p.Amount.Sign() < 0 {
			return nil, fmt.Errorf("escrow: invalid payout amount")
		}
		total.Add(total, p.Amount)
	}
	if total.Cmp(pool.Balance) > 0 {
		return nil, ErrPoolOverdrawn
	}
	for _, p := range payouts {
		if p.Amount.Sign() == 0 {
			continue
		}
		if err := e.ledger.Transfer(VaultAddress, p.To, cloneBigInt(p.Amount)); err != nil {
			return nil, err
		}
	}
	retained := new(big.Int).Sub(pool.Balance, total)
	pool.Retained = new(big.Int).Add(cloneBigInt(pool.Retained), retained)
	pool.Balance = big.NewInt(0)
	pool.Settled = true
	if err := e.state.EscrowPutDisputePool(pool); err != nil {
		return nil, err
	}
	settlement := &Settlement{DisputeID: disputeID, Paid: total, Retained: cloneBigInt(retained)}
	e.emit(NewDisputeSettledEvent(settlement, len(payouts)))
	return settlement, nil
}
