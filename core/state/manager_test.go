package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"leasex/core/types"
	"leasex/native/dispute"
	"leasex/native/escrow"
	"leasex/native/leaseproperty"
	"leasex/native/marketplace"
	"leasex/storage"
)

func TestOverlayCommitAndDiscard(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	addr := make([]byte, 20)
	addr[0] = 0x01

	require.NoError(t, m.PutAccount(addr, &types.Account{BalanceXT: big.NewInt(7)}))
	require.True(t, m.Dirty())
	require.Equal(t, 0, db.Len())

	acc, err := m.GetAccount(addr)
	require.NoError(t, err)
	require.Equal(t, int64(7), acc.BalanceXT.Int64())

	m.Discard()
	acc, err = m.GetAccount(addr)
	require.NoError(t, err)
	require.Equal(t, int64(0), acc.BalanceXT.Int64())

	require.NoError(t, m.PutAccount(addr, &types.Account{BalanceXT: big.NewInt(9)}))
	require.NoError(t, m.Commit())
	require.False(t, m.Dirty())

	fresh := NewManager(db)
	acc, err = fresh.GetAccount(addr)
	require.NoError(t, err)
	require.Equal(t, int64(9), acc.BalanceXT.Int64())
	require.Equal(t, int64(0), acc.BalanceWei.Int64())
}

func TestKVDeleteInOverlay(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	require.NoError(t, m.KVPut([]byte("k"), uint64(3)))
	require.NoError(t, m.Commit())

	require.NoError(t, m.KVDelete([]byte("k")))
	ok, err := m.KVGet([]byte("k"), nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, m.Commit())
	require.Equal(t, 0, db.Len())
}

func TestAccountAddressLength(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	_, err := m.GetAccount([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestSequences(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	for want := uint64(0); want < 3; want++ {
		id, err := m.LeasePropertyNextID()
		require.NoError(t, err)
		require.Equal(t, want, id)
	}
	first, err := m.DisputeNextID()
	require.NoError(t, err)
	require.Equal(t, uint64(1), first)

	a, err := m.MarketNextApplicationID(5)
	require.NoError(t, err)
	b, err := m.MarketNextApplicationID(6)
	require.NoError(t, err)
	require.Equal(t, uint64(0), a)
	require.Equal(t, uint64(0), b)
}

func TestPropertyIndexes(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	alice := [20]byte{0xA1}
	bob := [20]byte{0xB0}
	for i, owner := range [][20]byte{alice, bob, alice} {
		p := &leaseproperty.Property{
			ID:         uint64(i),
			Landlord:   owner,
			Location:   "somewhere",
			Type:       leaseproperty.PropertyTypeLanded,
			LeasePrice: big.NewInt(10),
		}
		require.NoError(t, m.LeasePropertyPut(p))
	}
	// Re-putting must not duplicate index entries.
	p, ok, err := m.LeasePropertyGet(0)
	require.NoError(t, err)
	require.True(t, ok)
	p.IsListed = true
	require.NoError(t, m.LeasePropertyPut(p))

	ids, err := m.LeasePropertyIDs()
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 2}, ids)
	ids, err = m.LeasePropertyIDsByLandlord(alice)
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 2}, ids)

	require.NoError(t, m.LeasePropertyDelete(0))
	_, ok, err = m.LeasePropertyGet(0)
	require.NoError(t, err)
	require.False(t, ok)
	ids, err = m.LeasePropertyIDsByLandlord(alice)
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, ids)
}

func TestApplicationRoundTripAndIndexes(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	tenant := [20]byte{0x22}
	app := &marketplace.Application{
		PropertyID: 3,
		ID:         1,
		Tenant:     tenant,
		Status:     marketplace.StatusMadePayment,
		Deposit:    big.NewInt(50),
		PaymentIDs: []uint64{4, 9},
		TenantName: "Tan",
	}
	require.NoError(t, m.MarketPutApplication(app))
	require.NoError(t, m.Commit())

	loaded, ok, err := m.MarketApplication(3, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, marketplace.StatusMadePayment, loaded.Status)
	require.Equal(t, []uint64{4, 9}, loaded.PaymentIDs)
	require.Equal(t, "Tan", loaded.TenantName)

	keys, err := m.MarketTenantApplications(tenant)
	require.NoError(t, err)
	require.Equal(t, []marketplace.ApplicationKey{{PropertyID: 3, ApplicationID: 1}}, keys)

	require.NoError(t, m.MarketDeleteApplication(3, 1))
	ids, err := m.MarketApplicationIDs(3)
	require.NoError(t, err)
	require.Empty(t, ids)
	keys, err = m.MarketTenantApplications(tenant)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestEscrowRecords(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	pool := &escrow.DisputePool{
		DisputeID: 1,
		Stakers:   [][20]byte{{0x01}, {0x02}},
		Balance:   big.NewInt(52),
		Retained:  big.NewInt(0),
	}
	require.NoError(t, m.EscrowPutDisputePool(pool))
	loaded, ok, err := m.EscrowDisputePool(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, loaded.HasStaker([20]byte{0x02}))
	require.Equal(t, int64(52), loaded.Balance.Int64())

	_, ok, err = m.EscrowProtectionPool(8)
	require.NoError(t, err)
	require.False(t, ok)

	id, err := m.EscrowNextHoldID()
	require.NoError(t, err)
	require.NoError(t, m.EscrowPutHold(&escrow.Hold{ID: id, Kind: escrow.HoldKindPayment, Amount: big.NewInt(3)}))
	hold, ok, err := m.EscrowHold(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, escrow.HoldKindPayment, hold.Kind)
}

func TestDisputeIndexes(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	tenant := [20]byte{0x22}
	landlord := [20]byte{0x11}
	d := &dispute.Dispute{
		ID:         1,
		PropertyID: 4,
		Tenant:     tenant,
		Landlord:   landlord,
		Reason:     "leak",
		Ballots:    []dispute.Ballot{{Validator: [20]byte{0x33}, Vote: dispute.VoteReject}},
	}
	require.NoError(t, m.DisputePut(d))
	require.NoError(t, m.DisputePut(d))

	id, ok, err := m.DisputeIDForTenantProperty(tenant, 4)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), id)
	_, ok, err = m.DisputeIDForTenantProperty(tenant, 5)
	require.NoError(t, err)
	require.False(t, ok)

	ids, err := m.DisputeIDsByLandlord(landlord)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids)
	ids, err = m.DisputeIDs()
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids)

	loaded, ok, err := m.DisputeGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, dispute.VoteReject, loaded.VoteOf([20]byte{0x33}))

	require.Error(t, m.DisputePut(&dispute.Dispute{}))
}

func TestGenesisMarker(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	applied, err := m.GenesisApplied()
	require.NoError(t, err)
	require.False(t, applied)
	require.NoError(t, m.MarkGenesisApplied([32]byte{1}))
	applied, err = m.GenesisApplied()
	require.NoError(t, err)
	require.True(t, applied)
}
