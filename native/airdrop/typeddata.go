package airdrop

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	repoCrypto "github.com/bnguyen2/merkle-drop/crypto"
)

// The EIP-712 surface is a frozen binary contract with the off-chain signer:
// a fixed domain (scheme name, version, chain id, instance address) and one
// struct type over (claimer, amount). Field order, type strings and 32-byte
// word padding must never change.
const (
	schemeName    = "MerkleDrop"
	schemeVersion = "1"

	domainType = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"
	claimType  = "Claim(address claimer,uint256 amount)"
)

var (
	domainTypeHash = ethcrypto.Keccak256([]byte(domainType))
	claimTypeHash  = ethcrypto.Keccak256([]byte(claimType))
	schemeNameHash = ethcrypto.Keccak256([]byte(schemeName))
	schemeVerHash  = ethcrypto.Keccak256([]byte(schemeVersion))
)

// DomainSeparator derives the domain hash binding signatures to exactly one
// deployed instance and network.
func DomainSeparator(chainID uint64, instance [20]byte) [32]byte {
	var out [32]byte
	encoded := make([]byte, 0, 5*32)
	encoded = append(encoded, domainTypeHash...)
	encoded = append(encoded, schemeNameHash...)
	encoded = append(encoded, schemeVerHash...)
	encoded = append(encoded, uintWord(chainID)...)
	encoded = append(encoded, addressWord(instance)...)
	copy(out[:], ethcrypto.Keccak256(encoded))
	return out
}

// ClaimDigest computes the double-hash structured digest the trusted signer
// signs: keccak256(0x19 0x01 || domainSeparator || structHash(claimer, amount)).
func ClaimDigest(domainSeparator [32]byte, claimer [20]byte, amount *big.Int) ([32]byte, error) {
	var out [32]byte
	word, err := amountWord(amount)
	if err != nil {
		return out, err
	}
	structEnc := make([]byte, 0, 3*32)
	structEnc = append(structEnc, claimTypeHash...)
	structEnc = append(structEnc, addressWord(claimer)...)
	structEnc = append(structEnc, word...)
	structHash := ethcrypto.Keccak256(structEnc)

	msg := make([]byte, 0, 2+2*32)
	msg = append(msg, 0x19, 0x01)
	msg = append(msg, domainSeparator[:]...)
	msg = append(msg, structHash...)
	copy(out[:], ethcrypto.Keccak256(msg))
	return out, nil
}

// RecoverClaimSigner recovers the address that signed the claim digest.
// Both 0/1 and 27/28 recovery identifiers are accepted so signatures produced
// by standard Ethereum tooling interoperate.
func RecoverClaimSigner(domainSeparator [32]byte, claimer [20]byte, amount *big.Int, sig []byte) ([20]byte, error) {
	var out [20]byte
	if len(sig) != 65 {
		return out, fmt.Errorf("airdrop: signature must be 65 bytes, got %d", len(sig))
	}
	digest, err := ClaimDigest(domainSeparator, claimer, amount)
	if err != nil {
		return out, err
	}
	normalized := append([]byte(nil), sig...)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pubKey, err := ethcrypto.SigToPub(digest[:], normalized)
	if err != nil {
		return out, fmt.Errorf("airdrop: recover signer: %w", err)
	}
	copy(out[:], ethcrypto.PubkeyToAddress(*pubKey).Bytes())
	return out, nil
}

// SignClaim produces the 65-byte signature the verifier accepts. Only the
// off-chain distribution tooling and tests sign; the engine never does.
func SignClaim(key *repoCrypto.PrivateKey, domainSeparator [32]byte, claimer [20]byte, amount *big.Int) ([]byte, error) {
	if key == nil || key.PrivateKey == nil {
		return nil, fmt.Errorf("airdrop: signing key required")
	}
	digest, err := ClaimDigest(domainSeparator, claimer, amount)
	if err != nil {
		return nil, err
	}
	return ethcrypto.Sign(digest[:], key.PrivateKey)
}

func addressWord(addr [20]byte) []byte {
	word := make([]byte, 32)
	copy(word[12:], addr[:])
	return word
}

func uintWord(v uint64) []byte {
	word := make([]byte, 32)
	new(big.Int).SetUint64(v).FillBytes(word)
	return word
}
