package state

import (
	"encoding/binary"
	"fmt"
	"sort"

	"leasex/core/types"
)

var (
	genesisMarkerKey = []byte("meta/genesis")
)

func accountKey(addr []byte) []byte {
	return append([]byte("account/"), addr...)
}

// GetAccount returns the account stored for addr, or a zero account.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) != 20 {
		return nil, fmt.Errorf("state: account address must be 20 bytes, got %d", len(addr))
	}
	acc := new(types.Account)
	if _, err := m.KVGet(accountKey(addr), acc); err != nil {
		return nil, err
	}
	return acc.EnsureDefaults(), nil
}

// PutAccount persists the account for addr.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) != 20 {
		return fmt.Errorf("state: account address must be 20 bytes, got %d", len(addr))
	}
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	return m.KVPut(accountKey(addr), account.Clone().EnsureDefaults())
}

// GenesisApplied reports whether genesis allocations were written.
func (m *Manager) GenesisApplied() (bool, error) {
	return m.KVGet(genesisMarkerKey, nil)
}

// MarkGenesisApplied records that genesis allocations were written.
func (m *Manager) MarkGenesisApplied(hash [32]byte) error {
	return m.KVPut(genesisMarkerKey, hash)
}

func encodeID(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

// idList loads a list of 8-byte ids stored with KVAppend, sorted ascending.
func (m *Manager) idList(key []byte) ([]uint64, error) {
	raw, err := m.loadList(key)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, b := range raw {
		if len(b) != 8 {
			return nil, fmt.Errorf("state: corrupt id index %q", key)
		}
		ids = append(ids, binary.BigEndian.Uint64(b))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
