package airdrop

import (
	"fmt"
	"math/big"
)

// Params fixes the immutable configuration of a drop instance. Every field is
// set at construction and never changes afterwards.
type Params struct {
	// MerkleRoot commits to the full entitlement set.
	MerkleRoot [32]byte
	// TrustedSigner is the only identity whose signatures authorise a claim.
	TrustedSigner [20]byte
	// Authority is the only caller allowed to revoke the signature path.
	Authority [20]byte
	// ChainID and Instance bind signatures to exactly one deployment; they
	// feed the EIP-712 domain separator.
	ChainID  uint64
	Instance [20]byte
}

// Validate rejects configurations that could never authorise a claim.
func (p Params) Validate() error {
	if p.MerkleRoot == ([32]byte{}) {
		return fmt.Errorf("airdrop: merkle root required")
	}
	if p.TrustedSigner == ([20]byte{}) {
		return fmt.Errorf("airdrop: trusted signer required")
	}
	if p.Authority == ([20]byte{}) {
		return fmt.Errorf("airdrop: authority required")
	}
	if p.ChainID == 0 {
		return fmt.Errorf("airdrop: chain id required")
	}
	return nil
}

// Leaf is one entitlement in the committed set: this recipient may be paid
// this amount exactly once.
type Leaf struct {
	Recipient [20]byte
	Amount    *big.Int
}

// Encode renders the frozen 52-byte leaf encoding shared with the off-chain
// tree builder: recipient (20 bytes) followed by the amount as a 32-byte
// big-endian word. Changing anything here invalidates every issued proof.
func (l Leaf) Encode() ([]byte, error) {
	word, err := amountWord(l.Amount)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 52)
	out = append(out, l.Recipient[:]...)
	out = append(out, word...)
	return out, nil
}

// amountWord encodes a non-negative amount as a 32-byte big-endian word.
func amountWord(amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 256 {
		return nil, ErrInvalidAmount
	}
	word := make([]byte, 32)
	amount.FillBytes(word)
	return word, nil
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
