package xtoken

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"leasex/core/events"
	"leasex/core/types"
)

type mockLedgerState struct {
	accounts map[string]*types.Account
}

func newMockLedgerState() *mockLedgerState {
	return &mockLedgerState{accounts: make(map[string]*types.Account)}
}

func (m *mockLedgerState) GetAccount(addr []byte) (*types.Account, error) {
	if acc, ok := m.accounts[string(addr)]; ok {
		return acc.Clone(), nil
	}
	return (&types.Account{}).EnsureDefaults(), nil
}

func (m *mockLedgerState) PutAccount(addr []byte, account *types.Account) error {
	m.accounts[string(addr)] = account.Clone()
	return nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func newTestLedger(t *testing.T) (*Ledger, *mockLedgerState, *captureEmitter) {
	t.Helper()
	state := newMockLedgerState()
	emitter := &captureEmitter{}
	ledger := NewLedger()
	ledger.SetState(state)
	ledger.SetEmitter(emitter)
	return ledger, state, emitter
}

func mustBalance(t *testing.T, l *Ledger, addr [20]byte) int64 {
	t.Helper()
	bal, err := l.BalanceOf(addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal.Int64()
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func TestCreditDebitTransfer(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	alice := [20]byte{0x01}
	bob := [20]byte{0x02}

	if err := ledger.Credit(alice, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := ledger.Transfer(alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := mustBalance(t, ledger, alice); got != 60 {
		t.Fatalf("alice balance: want 60 got %d", got)
	}
	if got := mustBalance(t, ledger, bob); got != 40 {
		t.Fatalf("bob balance: want 40 got %d", got)
	}
}

func TestDebitInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	alice := [20]byte{0x01}
	bob := [20]byte{0x02}
	if err := ledger.Credit(alice, big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	err := ledger.Transfer(alice, bob, big.NewInt(11))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := mustBalance(t, ledger, alice); got != 10 {
		t.Fatalf("alice balance changed: %d", got)
	}
	if got := mustBalance(t, ledger, bob); got != 0 {
		t.Fatalf("bob balance changed: %d", got)
	}
}

func TestNegativeAmountsRejected(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	if err := ledger.Credit([20]byte{0x01}, big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := ledger.Debit([20]byte{0x01}, big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestBuyWithETHMintsAtRate(t *testing.T) {
	ledger, state, emitter := newTestLedger(t)
	tenant := [20]byte{0x03}
	if err := ledger.Seed(tenant, big.NewInt(0), ether(100)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	minted, err := ledger.BuyWithETH(tenant, ether(10))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if minted.Int64() != 1000 {
		t.Fatalf("expected 1000 tokens, got %s", minted)
	}
	acc := state.accounts[string(tenant[:])]
	if acc.BalanceWei.Cmp(ether(90)) != 0 {
		t.Fatalf("unexpected wei balance %s", acc.BalanceWei)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType() != EventTypeGetCredit {
		t.Fatalf("expected getCredit event, got %+v", emitter.events)
	}
	attrs := events.Payload(emitter.events[0]).Attributes
	if attrs["amount"] != "1000" {
		t.Fatalf("unexpected amount attribute %q", attrs["amount"])
	}
}

func TestBuyWithETHKeepsFractionalWei(t *testing.T) {
	ledger, state, _ := newTestLedger(t)
	addr := [20]byte{0x04}
	if err := ledger.Seed(addr, nil, ether(1)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	value := new(big.Int).Add(DefaultWeiPerToken.ToBig(), big.NewInt(5))
	minted, err := ledger.BuyWithETH(addr, value)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if minted.Int64() != 1 {
		t.Fatalf("expected 1 token, got %s", minted)
	}
	want := new(big.Int).Sub(ether(1), DefaultWeiPerToken.ToBig())
	if state.accounts[string(addr[:])].BalanceWei.Cmp(want) != 0 {
		t.Fatalf("fractional wei should remain with the account")
	}
}

func TestBuyWithETHRejections(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	addr := [20]byte{0x05}
	if _, err := ledger.BuyWithETH(addr, big.NewInt(1)); !errors.Is(err, ErrInsufficientValue) {
		t.Fatalf("expected ErrInsufficientValue, got %v", err)
	}
	if _, err := ledger.BuyWithETH(addr, ether(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestConvertToETH(t *testing.T) {
	ledger, state, emitter := newTestLedger(t)
	addr := [20]byte{0x06}
	if err := ledger.Seed(addr, big.NewInt(50), nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	wei, err := ledger.ConvertToETH(addr, big.NewInt(20))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(20), DefaultWeiPerToken.ToBig())
	if wei.Cmp(want) != 0 {
		t.Fatalf("want %s wei got %s", want, wei)
	}
	acc := state.accounts[string(addr[:])]
	if acc.BalanceXT.Int64() != 30 || acc.BalanceWei.Cmp(want) != 0 {
		t.Fatalf("unexpected balances after convert: %+v", acc)
	}
	if emitter.events[len(emitter.events)-1].EventType() != EventTypeRefundCredit {
		t.Fatalf("expected refundCredit event")
	}
	if _, err := ledger.ConvertToETH(addr, big.NewInt(31)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestSetWeiPerToken(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	ledger.SetWeiPerToken(uint256.NewInt(100))
	if ledger.WeiPerToken().Int64() != 100 {
		t.Fatalf("rate not applied")
	}
	ledger.SetWeiPerToken(nil)
	if ledger.WeiPerToken().Cmp(DefaultWeiPerToken.ToBig()) != 0 {
		t.Fatalf("rate not reset")
	}
}
