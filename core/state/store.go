package state

import (
	"encoding/hex"
	"errors"
	"math/big"

	"github.com/bnguyen2/merkle-drop/storage"
)

var (
	claimedPrefix = []byte("airdrop/claimed/")
	disabledKey   = []byte("airdrop/signatures-disabled")
	balancePrefix = []byte("token/balance/")
)

// Store persists the claim record, the kill-switch flag and token balances in
// a key-value database. It satisfies both the claim engine's State interface
// and the token ledger's LedgerState interface, so one store backs a whole
// drop instance.
type Store struct {
	db storage.Database
}

// NewStore wraps the supplied database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func claimedKey(addr [20]byte) []byte {
	return append(append([]byte(nil), claimedPrefix...), hex.EncodeToString(addr[:])...)
}

func balanceKey(addr [20]byte) []byte {
	return append(append([]byte(nil), balancePrefix...), hex.EncodeToString(addr[:])...)
}

// AirdropClaimed reports whether the identity has a committed claim.
func (s *Store) AirdropClaimed(addr [20]byte) (bool, error) {
	return s.db.Has(claimedKey(addr))
}

// AirdropSetClaimed flips the claim record. Clearing exists only for the
// engine's payout rollback within a single operation.
func (s *Store) AirdropSetClaimed(addr [20]byte, claimed bool) error {
	if claimed {
		return s.db.Put(claimedKey(addr), []byte{1})
	}
	return s.db.Delete(claimedKey(addr))
}

// AirdropSignaturesDisabled reports the kill-switch flag.
func (s *Store) AirdropSignaturesDisabled() (bool, error) {
	return s.db.Has(disabledKey)
}

// AirdropDisableSignatures sets the kill switch. The flag is monotonic; there
// is no clearing counterpart.
func (s *Store) AirdropDisableSignatures() error {
	return s.db.Put(disabledKey, []byte{1})
}

// TokenBalance returns the stored balance, zero when the account is unknown.
func (s *Store) TokenBalance(addr [20]byte) (*big.Int, error) {
	raw, err := s.db.Get(balanceKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

// TokenSetBalance stores the balance as big-endian bytes.
func (s *Store) TokenSetBalance(addr [20]byte, balance *big.Int) error {
	if balance == nil || balance.Sign() < 0 {
		return errors.New("state: balance must be non-negative")
	}
	return s.db.Put(balanceKey(addr), balance.Bytes())
}
