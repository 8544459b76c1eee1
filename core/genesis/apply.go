package genesis

import (
	"fmt"
	"sort"

	"leasex/core/types"
)

type allocState interface {
	GenesisApplied() (bool, error)
	MarkGenesisApplied(hash [32]byte) error
	PutAccount(addr []byte, account *types.Account) error
}

// Apply writes the account allocations once. It reports false when genesis
// had already been applied to the store.
func Apply(spec *Spec, st allocState) (bool, error) {
	if spec == nil {
		return false, fmt.Errorf("genesis spec must not be nil")
	}
	applied, err := st.GenesisApplied()
	if err != nil {
		return false, err
	}
	if applied {
		return false, nil
	}
	accounts := append([]AccountSpec(nil), spec.Accounts...)
	sort.Slice(accounts, func(i, j int) bool {
		return string(accounts[i].addr[:]) < string(accounts[j].addr[:])
	})
	for _, acc := range accounts {
		addr := acc.addr
		record := &types.Account{BalanceXT: acc.xtoken, BalanceWei: acc.wei}
		if err := st.PutAccount(addr[:], record.EnsureDefaults()); err != nil {
			return false, fmt.Errorf("allocate %s: %w", acc.Address, err)
		}
	}
	if err := st.MarkGenesisApplied(spec.Hash()); err != nil {
		return false, err
	}
	return true, nil
}
