// Command dropgen prepares the off-chain distribution artifact for a drop.
// It reads a YAML allocation manifest, builds the Merkle tree under the same
// frozen conventions the verifier uses, and writes a JSON claims file with the
// root and one proof per recipient. Given a signer key it also attaches an
// EIP-712 claim signature per entry, so both proof mechanisms can be
// distributed from a single artifact.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bnguyen2/merkle-drop/crypto"
	"github.com/bnguyen2/merkle-drop/native/airdrop"
)

type manifestEntry struct {
	Address string `yaml:"address"`
	Amount  string `yaml:"amount"`
}

type manifest struct {
	Allocations []manifestEntry `yaml:"allocations"`
}

type claimEntry struct {
	Address   string   `json:"address"`
	Amount    string   `json:"amount"`
	Index     int      `json:"index"`
	Proof     []string `json:"proof"`
	Signature string   `json:"signature,omitempty"`
}

type claimsFile struct {
	MerkleRoot      string       `json:"merkleRoot"`
	DomainSeparator string       `json:"domainSeparator,omitempty"`
	Claims          []claimEntry `json:"claims"`
}

func main() {
	manifestPath := flag.String("manifest", "allocations.yaml", "YAML allocation manifest")
	outPath := flag.String("out", "claims.json", "output claims file")
	chainID := flag.Uint64("chain-id", 0, "chain id for the signing domain")
	instanceRaw := flag.String("instance", "", "drop instance address for the signing domain")
	signerKeyHex := flag.String("signer-key", "", "hex private key of the trusted signer (optional)")
	flag.Parse()

	if err := run(*manifestPath, *outPath, *chainID, *instanceRaw, *signerKeyHex); err != nil {
		log.Fatalf("dropgen: %v", err)
	}
}

func run(manifestPath, outPath string, chainID uint64, instanceRaw, signerKeyHex string) error {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return err
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Allocations) == 0 {
		return fmt.Errorf("manifest has no allocations")
	}

	leaves := make([]airdrop.Leaf, 0, len(m.Allocations))
	for i, entry := range m.Allocations {
		addr, err := crypto.ParseAddress(entry.Address)
		if err != nil {
			return fmt.Errorf("allocation %d: %w", i, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(entry.Amount), 10)
		if !ok || amount.Sign() <= 0 {
			return fmt.Errorf("allocation %d: invalid amount %q", i, entry.Amount)
		}
		leaves = append(leaves, airdrop.Leaf{Recipient: addr, Amount: amount})
	}

	tree, err := airdrop.NewTree(leaves)
	if err != nil {
		return err
	}
	root := tree.Root()

	var signerKey *crypto.PrivateKey
	var domainSeparator [32]byte
	if strings.TrimSpace(signerKeyHex) != "" {
		if chainID == 0 {
			return fmt.Errorf("-chain-id required when signing")
		}
		instance, err := crypto.ParseAddress(instanceRaw)
		if err != nil {
			return fmt.Errorf("-instance: %w", err)
		}
		signerKey, err = crypto.PrivateKeyFromHex(signerKeyHex)
		if err != nil {
			return err
		}
		domainSeparator = airdrop.DomainSeparator(chainID, instance)
	}

	out := claimsFile{
		MerkleRoot: "0x" + hex.EncodeToString(root[:]),
		Claims:     make([]claimEntry, 0, len(leaves)),
	}
	if signerKey != nil {
		out.DomainSeparator = "0x" + hex.EncodeToString(domainSeparator[:])
	}
	for i, leaf := range leaves {
		proof, err := tree.Prove(i)
		if err != nil {
			return err
		}
		encoded := make([]string, 0, len(proof))
		for _, node := range proof {
			encoded = append(encoded, "0x"+hex.EncodeToString(node[:]))
		}
		entry := claimEntry{
			Address: crypto.NewAddress(crypto.DropPrefix, leaf.Recipient[:]).String(),
			Amount:  leaf.Amount.String(),
			Index:   i,
			Proof:   encoded,
		}
		if signerKey != nil {
			sig, err := airdrop.SignClaim(signerKey, domainSeparator, leaf.Recipient, leaf.Amount)
			if err != nil {
				return fmt.Errorf("sign claim %d: %w", i, err)
			}
			entry.Signature = "0x" + hex.EncodeToString(sig)
		}
		out.Claims = append(out.Claims, entry)
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, append(encoded, '\n'), 0o600); err != nil {
		return err
	}
	fmt.Printf("root %s (%d claims) -> %s\n", out.MerkleRoot, len(out.Claims), outPath)
	return nil
}
