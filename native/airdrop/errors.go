package airdrop

import "errors"

var (
	// ErrAlreadyClaimed indicates the caller's entitlement was settled in an
	// earlier operation. The claim record is permanent; there is no retry.
	ErrAlreadyClaimed = errors.New("airdrop: already claimed")
	// ErrInvalidProof indicates the supplied proof path does not fold to the
	// committed Merkle root.
	ErrInvalidProof = errors.New("airdrop: invalid merkle proof")
	// ErrInvalidSignature indicates the signature did not recover to the
	// configured trusted signer.
	ErrInvalidSignature = errors.New("airdrop: invalid signature")
	// ErrSignaturesDisabled indicates the signature path was permanently
	// revoked by the claim authority.
	ErrSignaturesDisabled = errors.New("airdrop: signature verification disabled")
	// ErrPayoutFailed indicates the payout collaborator rejected the transfer;
	// the claim record is left untouched.
	ErrPayoutFailed = errors.New("airdrop: payout failed")
	// ErrNotAuthorized indicates the caller does not hold the claim authority.
	ErrNotAuthorized = errors.New("airdrop: caller not authorized")
	// ErrInvalidAmount indicates a missing, negative or oversized amount.
	ErrInvalidAmount = errors.New("airdrop: invalid amount")

	errNilState  = errors.New("airdrop: state not configured")
	errNilPayout = errors.New("airdrop: payout token not configured")
)
