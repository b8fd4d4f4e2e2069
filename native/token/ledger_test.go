package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockLedgerState struct {
	balances map[[20]byte]*big.Int
	setErr   map[[20]byte]error
}

func newMockLedgerState() *mockLedgerState {
	return &mockLedgerState{balances: make(map[[20]byte]*big.Int), setErr: make(map[[20]byte]error)}
}

func (m *mockLedgerState) TokenBalance(addr [20]byte) (*big.Int, error) {
	if balance, ok := m.balances[addr]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (m *mockLedgerState) TokenSetBalance(addr [20]byte, balance *big.Int) error {
	if err := m.setErr[addr]; err != nil {
		return err
	}
	m.balances[addr] = new(big.Int).Set(balance)
	return nil
}

func addr(b byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = b
	}
	return out
}

func TestFundCreditsPool(t *testing.T) {
	state := newMockLedgerState()
	ledger := NewLedger(state, addr(0x01))

	require.NoError(t, ledger.Fund(big.NewInt(100)))
	require.NoError(t, ledger.Fund(big.NewInt(50)))

	balance, err := ledger.BalanceOf(addr(0x01))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(150), balance)
}

func TestFundRejectsInvalidAmount(t *testing.T) {
	ledger := NewLedger(newMockLedgerState(), addr(0x01))
	require.ErrorIs(t, ledger.Fund(nil), ErrInvalidAmount)
	require.ErrorIs(t, ledger.Fund(big.NewInt(0)), ErrInvalidAmount)
	require.ErrorIs(t, ledger.Fund(big.NewInt(-1)), ErrInvalidAmount)
}

func TestTransferMovesFunds(t *testing.T) {
	state := newMockLedgerState()
	ledger := NewLedger(state, addr(0x01))
	require.NoError(t, ledger.Fund(big.NewInt(100)))

	require.NoError(t, ledger.Transfer(addr(0x02), big.NewInt(30)))

	pool, err := ledger.BalanceOf(addr(0x01))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(70), pool)

	recipient, err := ledger.BalanceOf(addr(0x02))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(30), recipient)
}

func TestTransferRejectsUnderfundedPool(t *testing.T) {
	state := newMockLedgerState()
	ledger := NewLedger(state, addr(0x01))
	require.NoError(t, ledger.Fund(big.NewInt(10)))

	err := ledger.Transfer(addr(0x02), big.NewInt(11))
	require.ErrorIs(t, err, ErrInsufficientPool)

	pool, err := ledger.BalanceOf(addr(0x01))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10), pool)
}

func TestTransferRejectsInvalidAmount(t *testing.T) {
	ledger := NewLedger(newMockLedgerState(), addr(0x01))
	require.ErrorIs(t, ledger.Transfer(addr(0x02), nil), ErrInvalidAmount)
	require.ErrorIs(t, ledger.Transfer(addr(0x02), big.NewInt(0)), ErrInvalidAmount)
}

func TestTransferRestoresPoolOnStorageFault(t *testing.T) {
	state := newMockLedgerState()
	ledger := NewLedger(state, addr(0x01))
	require.NoError(t, ledger.Fund(big.NewInt(100)))

	state.setErr[addr(0x02)] = errors.New("disk full")
	require.Error(t, ledger.Transfer(addr(0x02), big.NewInt(40)))

	pool, err := ledger.BalanceOf(addr(0x01))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), pool)
}
