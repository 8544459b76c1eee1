package types

import "math/big"

// Account holds the spendable balances tracked for an address. BalanceXT is
// the marketplace credit; BalanceWei is the ETH-equivalent value the account
// can exchange for XToken.
type Account struct {
	BalanceXT  *big.Int `json:"balanceXT"`
	BalanceWei *big.Int `json:"balanceWei"`
}

// EnsureDefaults replaces nil balances with zero values.
func (a *Account) EnsureDefaults() *Account {
	if a == nil {
		a = &Account{}
	}
	if a.BalanceXT == nil {
		a.BalanceXT = big.NewInt(0)
	}
	if a.BalanceWei == nil {
		a.BalanceWei = big.NewInt(0)
	}
	return a
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return (&Account{}).EnsureDefaults()
	}
	out := &Account{}
	if a.BalanceXT != nil {
		out.BalanceXT = new(big.Int).Set(a.BalanceXT)
	}
	if a.BalanceWei != nil {
		out.BalanceWei = new(big.Int).Set(a.BalanceWei)
	}
	return out.EnsureDefaults()
}
