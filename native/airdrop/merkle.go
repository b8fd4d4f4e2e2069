package airdrop

import (
	"bytes"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// LeafHash computes keccak256 over the frozen leaf encoding.
func LeafHash(recipient [20]byte, amount *big.Int) ([32]byte, error) {
	var out [32]byte
	encoded, err := Leaf{Recipient: recipient, Amount: amount}.Encode()
	if err != nil {
		return out, err
	}
	copy(out[:], ethcrypto.Keccak256(encoded))
	return out, nil
}

// hashPair combines two nodes under the sorted-pair convention: the
// numerically smaller hash always goes first. The off-chain tree builder uses
// the identical ordering, so a proof is valid independently of which side of
// the pair the verifier's running hash happens to be.
func hashPair(a, b [32]byte) [32]byte {
	var out [32]byte
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	return out
}

// FoldProof folds the ordered proof path into the leaf hash.
func FoldProof(leaf [32]byte, proof [][32]byte) [32]byte {
	node := leaf
	for _, sibling := range proof {
		node = hashPair(node, sibling)
	}
	return node
}

// VerifyProof reports whether proof demonstrates the leaf's membership in the
// set committed to by root.
func VerifyProof(root [32]byte, leaf [32]byte, proof [][32]byte) bool {
	return FoldProof(leaf, proof) == root
}
