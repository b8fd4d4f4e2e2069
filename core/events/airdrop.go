package events

import (
	"math/big"

	"github.com/bnguyen2/merkle-drop/core/types"
	"github.com/bnguyen2/merkle-drop/crypto"
)

const (
	TypeAirdropMerkleClaim        = "airdrop.claim.merkle"
	TypeAirdropSignatureClaim     = "airdrop.claim.signature"
	TypeAirdropSignaturesDisabled = "airdrop.signatures.disabled"
)

// AirdropMerkleClaim is emitted when a Merkle-proof claim settles.
type AirdropMerkleClaim struct {
	Caller    [20]byte
	Recipient [20]byte
	Amount    *big.Int
}

func (AirdropMerkleClaim) EventType() string { return TypeAirdropMerkleClaim }

func (e AirdropMerkleClaim) Event() *types.Event {
	return &types.Event{
		Type: TypeAirdropMerkleClaim,
		Attributes: map[string]string{
			"caller":    crypto.NewAddress(crypto.DropPrefix, e.Caller[:]).String(),
			"recipient": crypto.NewAddress(crypto.DropPrefix, e.Recipient[:]).String(),
			"amount":    formatAmount(e.Amount),
		},
	}
}

// AirdropSignatureClaim is emitted when a signature-authorised claim settles.
type AirdropSignatureClaim struct {
	Caller    [20]byte
	Recipient [20]byte
	Amount    *big.Int
}

func (AirdropSignatureClaim) EventType() string { return TypeAirdropSignatureClaim }

func (e AirdropSignatureClaim) Event() *types.Event {
	return &types.Event{
		Type: TypeAirdropSignatureClaim,
		Attributes: map[string]string{
			"caller":    crypto.NewAddress(crypto.DropPrefix, e.Caller[:]).String(),
			"recipient": crypto.NewAddress(crypto.DropPrefix, e.Recipient[:]).String(),
			"amount":    formatAmount(e.Amount),
		},
	}
}

// AirdropSignaturesDisabled is emitted when the signature path is permanently
// revoked. It names the privileged caller that flipped the switch.
type AirdropSignaturesDisabled struct {
	Authority [20]byte
}

func (AirdropSignaturesDisabled) EventType() string { return TypeAirdropSignaturesDisabled }

func (e AirdropSignaturesDisabled) Event() *types.Event {
	return &types.Event{
		Type: TypeAirdropSignaturesDisabled,
		Attributes: map[string]string{
			"authority": crypto.NewAddress(crypto.DropPrefix, e.Authority[:]).String(),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
