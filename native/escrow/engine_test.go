package escrow

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"leasex/core/events"
	"leasex/core/types"
	"leasex/native/xtoken"
)

type mockState struct {
	accounts   map[string]*types.Account
	protection map[uint64]*ProtectionPool
	disputes   map[uint64]*DisputePool
	holds      map[uint64]*Hold
	nextHold   uint64
}

func newMockState() *mockState {
	return &mockState{
		accounts:   make(map[string]*types.Account),
		protection: make(map[uint64]*ProtectionPool),
		disputes:   make(map[uint64]*DisputePool),
		holds:      make(map[uint64]*Hold),
	}
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	if acc, ok := m.accounts[string(addr)]; ok {
		return acc.Clone(), nil
	}
	return (&types.Account{}).EnsureDefaults(), nil
}

func (m *mockState) PutAccount(addr []byte, acc *types.Account) error {
	m.accounts[string(addr)] = acc.Clone()
	return nil
}

func (m *mockState) EscrowProtectionPool(id uint64) (*ProtectionPool, bool, error) {
	p, ok := m.protection[id]
	return p.Clone(), ok, nil
}

func (m *mockState) EscrowPutProtectionPool(p *ProtectionPool) error {
	m.protection[p.PropertyID] = p.Clone()
	return nil
}

func (m *mockState) EscrowDisputePool(id uint64) (*DisputePool, bool, error) {
	p, ok := m.disputes[id]
	return p.Clone(), ok, nil
}

func (m *mockState) EscrowPutDisputePool(p *DisputePool) error {
	m.disputes[p.DisputeID] = p.Clone()
	return nil
}

func (m *mockState) EscrowNextHoldID() (uint64, error) {
	id := m.nextHold
	m.nextHold++
	return id, nil
}

func (m *mockState) EscrowHold(id uint64) (*Hold, bool, error) {
	h, ok := m.holds[id]
	return h.Clone(), ok, nil
}

func (m *mockState) EscrowPutHold(h *Hold) error {
	m.holds[h.ID] = h.Clone()
	return nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func (c *captureEmitter) eventTypes() []string {
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.EventType()
	}
	return out
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

type fixture struct {
	engine  *Engine
	ledger  *xtoken.Ledger
	state   *mockState
	emitter *captureEmitter
}

func newFixture(t *testing.T, balances map[[20]byte]int64) *fixture {
	t.Helper()
	state := newMockState()
	ledger := xtoken.NewLedger()
	ledger.SetState(state)
	for addr, bal := range balances {
		if err := ledger.Seed(addr, big.NewInt(bal), nil); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	emitter := &captureEmitter{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetLedger(ledger)
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return &fixture{engine: engine, ledger: ledger, state: state, emitter: emitter}
}

func (f *fixture) balance(t *testing.T, addr [20]byte) int64 {
	t.Helper()
	bal, err := f.ledger.BalanceOf(addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal.Int64()
}

func TestProtectionFeeLifecycle(t *testing.T) {
	landlord := newTestAddress(0x01)
	tenant := newTestAddress(0x02)
	f := newFixture(t, map[[20]byte]int64{landlord: 100})

	if err := f.engine.CollectProtectionFee(landlord, 0); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got := f.balance(t, landlord); got != 50 {
		t.Fatalf("landlord balance: want 50 got %d", got)
	}
	if got := f.balance(t, VaultAddress); got != 50 {
		t.Fatalf("vault balance: want 50 got %d", got)
	}
	if err := f.engine.CollectProtectionFee(landlord, 0); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists, got %v", err)
	}

	paid, err := f.engine.PayTenantReward(0, tenant, big.NewInt(25))
	if err != nil {
		t.Fatalf("reward: %v", err)
	}
	if paid.Int64() != 25 || f.balance(t, tenant) != 25 {
		t.Fatalf("tenant reward not paid: %s", paid)
	}

	refunded, err := f.engine.RefundProtectionFee(0, landlord)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Int64() != 25 || f.balance(t, landlord) != 75 {
		t.Fatalf("unexpected refund %s landlord %d", refunded, f.balance(t, landlord))
	}
	if _, err := f.engine.RefundProtectionFee(0, landlord); !errors.Is(err, ErrPoolEmpty) {
		t.Fatalf("expected ErrPoolEmpty, got %v", err)
	}
	if f.balance(t, VaultAddress) != 0 {
		t.Fatalf("vault should be empty")
	}

	want := []string{EventTypeProtectionCollected, EventTypeTenantRewarded, EventTypeProtectionRefunded}
	got := f.emitter.eventTypes()
	if len(got) != len(want) {
		t.Fatalf("events: want %v got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: want %s got %s", i, want[i], got[i])
		}
	}
}

func TestCollectProtectionFeeInsufficientBalance(t *testing.T) {
	landlord := newTestAddress(0x01)
	f := newFixture(t, map[[20]byte]int64{landlord: 49})
	err := f.engine.CollectProtectionFee(landlord, 3)
	if !errors.Is(err, xtoken.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if _, ok := f.state.protection[3]; ok {
		t.Fatalf("pool must not be created on failure")
	}
	if len(f.emitter.events) != 0 {
		t.Fatalf("no events expected")
	}
}

func TestTenantRewardCappedAtPool(t *testing.T) {
	landlord := newTestAddress(0x01)
	tenant := newTestAddress(0x02)
	f := newFixture(t, map[[20]byte]int64{landlord: 50})
	if err := f.engine.CollectProtectionFee(landlord, 1); err != nil {
		t.Fatalf("collect: %v", err)
	}
	paid, err := f.engine.PayTenantReward(1, tenant, big.NewInt(80))
	if err != nil {
		t.Fatalf("reward: %v", err)
	}
	if paid.Int64() != 50 {
		t.Fatalf("expected reward capped at 50, got %s", paid)
	}
	paid, err = f.engine.PayTenantReward(1, tenant, big.NewInt(10))
	if err != nil {
		t.Fatalf("second reward: %v", err)
	}
	if paid.Sign() != 0 {
		t.Fatalf("empty pool should pay nothing, got %s", paid)
	}
	refunded, err := f.engine.RefundProtectionFee(1, landlord)
	if err != nil {
		t.Fatalf("refund of drained pool: %v", err)
	}
	if refunded.Sign() != 0 {
		t.Fatalf("expected zero refund, got %s", refunded)
	}
}

func TestHoldAndRelease(t *testing.T) {
	tenant := newTestAddress(0x02)
	landlord := newTestAddress(0x01)
	f := newFixture(t, map[[20]byte]int64{tenant: 30})

	id, err := f.engine.HoldFunds(HoldKindDeposit, tenant, 4, 0, big.NewInt(20))
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if f.balance(t, tenant) != 10 || f.balance(t, VaultAddress) != 20 {
		t.Fatalf("hold did not move funds")
	}
	hold, err := f.engine.GetHold(id)
	if err != nil {
		t.Fatalf("get hold: %v", err)
	}
	if hold.Kind != HoldKindDeposit || hold.Amount.Int64() != 20 || hold.CreatedAt != 1_700_000_000 {
		t.Fatalf("unexpected hold %+v", hold)
	}
	if err := f.engine.ReleaseHold(id, landlord); err != nil {
		t.Fatalf("release: %v", err)
	}
	if f.balance(t, landlord) != 20 || f.balance(t, VaultAddress) != 0 {
		t.Fatalf("release did not pay landlord")
	}
	if err := f.engine.ReleaseHold(id, landlord); !errors.Is(err, ErrHoldReleased) {
		t.Fatalf("expected ErrHoldReleased, got %v", err)
	}
	if err := f.engine.ReleaseHold(99, landlord); !errors.Is(err, ErrHoldNotFound) {
		t.Fatalf("expected ErrHoldNotFound, got %v", err)
	}
	if _, err := f.engine.HoldFunds(HoldKindPayment, tenant, 4, 0, big.NewInt(11)); !errors.Is(err, xtoken.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestDisputePoolSettlement(t *testing.T) {
	tenant := newTestAddress(0x02)
	v1, v2, v3 := newTestAddress(0x11), newTestAddress(0x12), newTestAddress(0x13)
	f := newFixture(t, map[[20]byte]int64{tenant: 100, v1: 5, v2: 5, v3: 5})

	if err := f.engine.StakeDisputeVoterReward(tenant, 1); err != nil {
		t.Fatalf("stake reward: %v", err)
	}
	if err := f.engine.StakeDisputeVoterReward(tenant, 1); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists, got %v", err)
	}
	for _, v := range [][20]byte{v1, v2, v3} {
		if err := f.engine.StakeVote(v, 1); err != nil {
			t.Fatalf("stake vote: %v", err)
		}
	}
	if err := f.engine.StakeVote(v1, 1); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
	pool, err := f.engine.DisputePool(1)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if pool.Balance.Int64() != 53 || len(pool.Stakers) != 3 {
		t.Fatalf("unexpected pool %+v", pool)
	}

	over := []Payout{{To: v1, Amount: big.NewInt(54)}}
	if _, err := f.engine.SettleDispute(1, over); !errors.Is(err, ErrPoolOverdrawn) {
		t.Fatalf("expected ErrPoolOverdrawn, got %v", err)
	}

	payouts := []Payout{{To: v1, Amount: big.NewInt(26)}, {To: v2, Amount: big.NewInt(26)}}
	settlement, err := f.engine.SettleDispute(1, payouts)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settlement.Paid.Int64() != 52 || settlement.Retained.Int64() != 1 {
		t.Fatalf("unexpected settlement %+v", settlement)
	}
	if f.balance(t, v1) != 30 || f.balance(t, v2) != 30 || f.balance(t, v3) != 4 {
		t.Fatalf("unexpected validator balances")
	}
	if f.balance(t, VaultAddress) != 1 {
		t.Fatalf("retained remainder should stay in the vault")
	}
	if _, err := f.engine.SettleDispute(1, nil); !errors.Is(err, ErrPoolSettled) {
		t.Fatalf("expected ErrPoolSettled, got %v", err)
	}
	if err := f.engine.StakeVote(newTestAddress(0x14), 1); !errors.Is(err, ErrPoolSettled) {
		t.Fatalf("expected ErrPoolSettled, got %v", err)
	}
	last := f.emitter.events[len(f.emitter.events)-1]
	if last.EventType() != EventTypeDisputeSettled {
		t.Fatalf("expected settled event, got %s", last.EventType())
	}
	if events.Payload(last).Attributes["retained"] != "1" {
		t.Fatalf("unexpected retained attribute")
	}
}

func TestStakeVoteUnknownPool(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.engine.StakeVote(newTestAddress(0x11), 7); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestEngineRequiresState(t *testing.T) {
	engine := NewEngine()
	if err := engine.CollectProtectionFee(newTestAddress(0x01), 0); err == nil {
		t.Fatalf("expected error without state")
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	p := DefaultParams()
	p.VotePrice = big.NewInt(0)
	if err := p.Validate(); err == nil {
		t.Fatalf("zero vote price should fail")
	}
}
