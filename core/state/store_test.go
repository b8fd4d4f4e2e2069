package state

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bnguyen2/merkle-drop/storage"
)

func testStores(t *testing.T) map[string]*Store {
	t.Helper()
	ldb, err := storage.NewLevelDB(filepath.Join(t.TempDir(), "drop"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, ldb.Close()) })
	return map[string]*Store{
		"memdb":   NewStore(storage.NewMemDB()),
		"leveldb": NewStore(ldb),
	}
}

func testAddr(b byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = b
	}
	return out
}

func TestClaimRecordRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			claimed, err := store.AirdropClaimed(testAddr(0x01))
			require.NoError(t, err)
			require.False(t, claimed)

			require.NoError(t, store.AirdropSetClaimed(testAddr(0x01), true))
			claimed, err = store.AirdropClaimed(testAddr(0x01))
			require.NoError(t, err)
			require.True(t, claimed)

			// Other identities are untouched.
			claimed, err = store.AirdropClaimed(testAddr(0x02))
			require.NoError(t, err)
			require.False(t, claimed)

			// Clearing (payout rollback) removes the record.
			require.NoError(t, store.AirdropSetClaimed(testAddr(0x01), false))
			claimed, err = store.AirdropClaimed(testAddr(0x01))
			require.NoError(t, err)
			require.False(t, claimed)
		})
	}
}

func TestSignaturesDisabledFlag(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			disabled, err := store.AirdropSignaturesDisabled()
			require.NoError(t, err)
			require.False(t, disabled)

			require.NoError(t, store.AirdropDisableSignatures())
			disabled, err = store.AirdropSignaturesDisabled()
			require.NoError(t, err)
			require.True(t, disabled)

			// Setting twice keeps the flag set.
			require.NoError(t, store.AirdropDisableSignatures())
			disabled, err = store.AirdropSignaturesDisabled()
			require.NoError(t, err)
			require.True(t, disabled)
		})
	}
}

func TestTokenBalances(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			balance, err := store.TokenBalance(testAddr(0x01))
			require.NoError(t, err)
			require.Equal(t, big.NewInt(0), balance)

			large := new(big.Int).Lsh(big.NewInt(1), 200)
			require.NoError(t, store.TokenSetBalance(testAddr(0x01), large))
			balance, err = store.TokenBalance(testAddr(0x01))
			require.NoError(t, err)
			require.Equal(t, large, balance)

			require.NoError(t, store.TokenSetBalance(testAddr(0x01), big.NewInt(0)))
			balance, err = store.TokenBalance(testAddr(0x01))
			require.NoError(t, err)
			require.Equal(t, big.NewInt(0), balance)

			require.Error(t, store.TokenSetBalance(testAddr(0x01), nil))
			require.Error(t, store.TokenSetBalance(testAddr(0x01), big.NewInt(-1)))
		})
	}
}

func TestStateIsSharedAcrossConcerns(t *testing.T) {
	// One store backs the claim record and the balances without key overlap.
	store := NewStore(storage.NewMemDB())

	require.NoError(t, store.AirdropSetClaimed(testAddr(0x01), true))
	require.NoError(t, store.TokenSetBalance(testAddr(0x01), big.NewInt(7)))

	claimed, err := store.AirdropClaimed(testAddr(0x01))
	require.NoError(t, err)
	require.True(t, claimed)

	balance, err := store.TokenBalance(testAddr(0x01))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(7), balance)
}
