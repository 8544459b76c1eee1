package xtoken

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"leasex/core/events"
	"leasex/core/types"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the account balance.
	ErrInsufficientBalance = errors.New("xtoken: Payer does not have enough balance")
	// ErrInvalidAmount is returned for negative or missing amounts.
	ErrInvalidAmount = errors.New("xtoken: amount must not be negative")
	// ErrInsufficientValue is returned when less than one token's worth of wei is supplied.
	ErrInsufficientValue = errors.New("xtoken: value below the price of one token")
	// ErrAmountOverflow is returned when wei arithmetic exceeds 256 bits.
	ErrAmountOverflow = errors.New("xtoken: amount overflows 256 bits")

	errNilState = errors.New("xtoken: state not configured")
)

// DefaultWeiPerToken prices one XToken at 0.01 ETH.
var DefaultWeiPerToken = uint256.NewInt(10_000_000_000_000_000)

type ledgerState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

type ledgerEvent struct {
	evt *types.Event
}

func (e ledgerEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e ledgerEvent) Event() *types.Event { return e.evt }

// Ledger owns XToken balances. Every mutation goes through Credit and Debit so
// the non-negative balance invariant is enforced in one place.
type Ledger struct {
	state       ledgerState
	emitter     events.Emitter
	weiPerToken *uint256.Int
}

// NewLedger creates a ledger with a no-op emitter and the default exchange
// rate.
func NewLedger() *Ledger {
	return &Ledger{
		emitter:     events.NoopEmitter{},
		weiPerToken: new(uint256.Int).Set(DefaultWeiPerToken),
	}
}

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetEmitter configures the event emitter used by the ledger. Passing nil
// resets the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetWeiPerToken overrides the exchange rate. Zero or nil restores the default.
func (l *Ledger) SetWeiPerToken(rate *uint256.Int) {
	if rate == nil || rate.IsZero() {
		l.weiPerToken = new(uint256.Int).Set(DefaultWeiPerToken)
		return
	}
	l.weiPerToken = new(uint256.Int).Set(rate)
}

// WeiPerToken returns the configured exchange rate.
func (l *Ledger) WeiPerToken() *big.Int {
	return l.weiPerToken.ToBig()
}

func (l *Ledger) emit(evt *types.Event) {
	if l == nil || l.emitter == nil || evt == nil {
		return
	}
	l.emitter.Emit(ledgerEvent{evt: evt})
}

func (l *Ledger) load(addr [20]byte) (*types.Account, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	acc, err := l.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return acc.EnsureDefaults(), nil
}

func checkAmount(amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return new(big.Int).Set(amount), nil
}

// BalanceOf returns the XToken balance of addr.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	acc, err := l.load(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.BalanceXT), nil
}

// WeiBalanceOf returns the ETH-equivalent balance of addr.
func (l *Ledger) WeiBalanceOf(addr [20]byte) (*big.Int, error) {
	acc, err := l.load(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.BalanceWei), nil
}

// Credit adds amount to the balance of addr.
func (l *Ledger) Credit(addr [20]byte, amount *big.Int) error {
	amt, err := checkAmount(amount)
	if err != nil {
		return err
	}
	acc, err := l.load(addr)
	if err != nil {
		return err
	}
	if amt.Sign() == 0 {
		return nil
	}
	acc.BalanceXT = new(big.Int).Add(acc.BalanceXT, amt)
	return l.state.PutAccount(addr[:], acc)
}

// Debit subtracts amount from the balance of addr. The balance is left
// untouched when it does not cover the amount.
func (l *Ledger) Debit(addr [20]byte, amount *big.Int) error {
	amt, err := checkAmount(amount)
	if err != nil {
		return err
	}
	acc, err := l.load(addr)
	if err != nil {
		return err
	}
	if acc.BalanceXT.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	if amt.Sign() == 0 {
		return nil
	}
	acc.BalanceXT = new(big.Int).Sub(acc.BalanceXT, amt)
	return l.state.PutAccount(addr[:], acc)
}

// Transfer moves amount from one account to another. Self-transfers only
// check the balance.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if err := l.Debit(from, amount); err != nil {
		return err
	}
	if err := l.Credit(to, amount); err != nil {
		return fmt.Errorf("xtoken: credit after debit: %w", err)
	}
	return nil
}

// BuyWithETH exchanges wei for XToken at the configured rate. Wei that does
// not buy a whole token stays with the account. Returns the tokens minted.
func (l *Ledger) BuyWithETH(addr [20]byte, wei *big.Int) (*big.Int, error) {
	value, err := checkAmount(wei)
	if err != nil {
		return nil, err
	}
	valueU, overflow := uint256.FromBig(value)
	if overflow {
		return nil, ErrAmountOverflow
	}
	if valueU.Lt(l.weiPerToken) {
		return nil, ErrInsufficientValue
	}
	acc, err := l.load(addr)
	if err != nil {
		return nil, err
	}
	tokens := new(uint256.Int).Div(valueU, l.weiPerToken)
	cost, overflow := new(uint256.Int).MulOverflow(tokens, l.weiPerToken)
	if overflow {
		return nil, ErrAmountOverflow
	}
	costBig := cost.ToBig()
	if acc.BalanceWei.Cmp(costBig) < 0 {
		return nil, ErrInsufficientBalance
	}
	minted := tokens.ToBig()
	acc.BalanceWei = new(big.Int).Sub(acc.BalanceWei, costBig)
	acc.BalanceXT = new(big.Int).Add(acc.BalanceXT, minted)
	if err := l.state.PutAccount(addr[:], acc); err != nil {
		return nil, err
	}
	l.emit(NewGetCreditEvent(addr, minted, costBig))
	return minted, nil
}

// ConvertToETH burns tokens from addr and credits their wei value back.
// Returns the wei credited.
func (l *Ledger) ConvertToETH(addr [20]byte, tokens *big.Int) (*big.Int, error) {
	amount, err := checkAmount(tokens)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, ErrInvalidAmount
	}
	amountU, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrAmountOverflow
	}
	value, overflow := new(uint256.Int).MulOverflow(amountU, l.weiPerToken)
	if overflow {
		return nil, ErrAmountOverflow
	}
	acc, err := l.load(addr)
	if err != nil {
		return nil, err
	}
	if acc.BalanceXT.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	wei := value.ToBig()
	acc.BalanceXT = new(big.Int).Sub(acc.BalanceXT, amount)
	acc.BalanceWei = new(big.Int).Add(acc.BalanceWei, wei)
	if err := l.state.PutAccount(addr[:], acc); err != nil {
		return nil, err
	}
	l.emit(NewRefundCreditEvent(addr, amount, wei))
	return wei, nil
}

// Seed sets the opening balances of addr. Intended for genesis only.
func (l *Ledger) Seed(addr [20]byte, tokens, wei *big.Int) error {
	xt, err := checkAmount(tokens)
	if err != nil {
		return err
	}
	w, err := checkAmount(wei)
	if err != nil {
		return err
	}
	if l == nil || l.state == nil {
		return errNilState
	}
	return l.state.PutAccount(addr[:], &types.Account{BalanceXT: xt, BalanceWei: w})
}
