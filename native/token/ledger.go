package token

import (
	"errors"
	"math/big"
	"sync"
)

var (
	// ErrInvalidAmount indicates a missing or non-positive transfer amount.
	ErrInvalidAmount = errors.New("token: amount must be positive")
	// ErrInsufficientPool indicates the payout pool cannot cover the transfer.
	ErrInsufficientPool = errors.New("token: payout pool underfunded")

	errNilState = errors.New("token: state not configured")
)

// LedgerState exposes the balance storage the ledger operates on.
type LedgerState interface {
	TokenBalance(addr [20]byte) (*big.Int, error)
	TokenSetBalance(addr [20]byte, balance *big.Int) error
}

// Ledger is the payout collaborator: a simple balance-transfer service that
// pays claims out of a pre-funded pool account. The claim engine only sees
// its Transfer method.
type Ledger struct {
	mu    sync.Mutex
	state LedgerState
	pool  [20]byte
}

// NewLedger constructs a ledger paying out of the supplied pool account.
func NewLedger(state LedgerState, pool [20]byte) *Ledger {
	return &Ledger{state: state, pool: pool}
}

// Pool returns the pool account address.
func (l *Ledger) Pool() [20]byte { return l.pool }

// Fund credits the pool account. Funding happens once at deployment; the
// method also serves tests that need a solvent or underfunded pool.
func (l *Ledger) Fund(amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, err := l.state.TokenBalance(l.pool)
	if err != nil {
		return err
	}
	return l.state.TokenSetBalance(l.pool, new(big.Int).Add(balance, amount))
}

// Transfer moves amount from the pool to the recipient. It fails without any
// partial effect when the pool cannot cover the amount.
func (l *Ledger) Transfer(to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	poolBalance, err := l.state.TokenBalance(l.pool)
	if err != nil {
		return err
	}
	if poolBalance.Cmp(amount) < 0 {
		return ErrInsufficientPool
	}
	toBalance, err := l.state.TokenBalance(to)
	if err != nil {
		return err
	}
	if err := l.state.TokenSetBalance(l.pool, new(big.Int).Sub(poolBalance, amount)); err != nil {
		return err
	}
	if err := l.state.TokenSetBalance(to, new(big.Int).Add(toBalance, amount)); err != nil {
		// Restore the pool so a storage fault cannot burn funds.
		_ = l.state.TokenSetBalance(l.pool, poolBalance)
		return err
	}
	return nil
}

// BalanceOf returns the current balance for the address.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.TokenBalance(addr)
}
