package airdrop

import "fmt"

// Tree builds the distribution's Merkle tree off-chain. The verifier never
// constructs trees; this exists for the distribution tooling and for tests,
// and shares the leaf and pair conventions with the verifier so the two can
// never drift apart.
type Tree struct {
	layers [][][32]byte
}

// NewTree hashes the supplied leaves and builds all layers up to the root.
// Odd nodes are promoted to the next layer unchanged.
func NewTree(leaves []Leaf) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("airdrop: tree requires at least one leaf")
	}
	layer := make([][32]byte, len(leaves))
	for i, leaf := range leaves {
		hash, err := LeafHash(leaf.Recipient, leaf.Amount)
		if err != nil {
			return nil, fmt.Errorf("airdrop: leaf %d: %w", i, err)
		}
		layer[i] = hash
	}
	layers := [][][32]byte{layer}
	for len(layer) > 1 {
		next := make([][32]byte, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			next = append(next, hashPair(layer[i], layer[i+1]))
		}
		layers = append(layers, next)
		layer = next
	}
	return &Tree{layers: layers}, nil
}

// Root returns the committed root hash.
func (t *Tree) Root() [32]byte {
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.layers[0])
}

// Prove returns the ordered sibling path for the leaf at index. Promoted odd
// nodes contribute no sibling at their layer.
func (t *Tree) Prove(index int) ([][32]byte, error) {
	if index < 0 || index >= t.Len() {
		return nil, fmt.Errorf("airdrop: leaf index %d out of range", index)
	}
	proof := make([][32]byte, 0, len(t.layers)-1)
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := index ^ 1
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		index /= 2
	}
	return proof, nil
}
