package airdrop

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/bnguyen2/merkle-drop/core/events"
)

// State is the one-time-claim record and kill-switch flag backing the engine.
// The claimed=false write exists solely so a failed payout can unwind the mark
// it just set inside the same operation; no external path ever resets a
// committed claim.
type State interface {
	AirdropClaimed(addr [20]byte) (bool, error)
	AirdropSetClaimed(addr [20]byte, claimed bool) error
	AirdropSignaturesDisabled() (bool, error)
	AirdropDisableSignatures() error
}

// PayoutToken is the external balance-transfer collaborator invoked after a
// successful claim. A non-nil error is fatal to the claim.
type PayoutToken interface {
	Transfer(to [20]byte, amount *big.Int) error
}

// Engine authorises one-time claims through two independent proof paths: a
// Merkle membership proof against the committed root, or an EIP-712 signature
// from the trusted signer. Both paths share the claim record, so each identity
// settles at most once regardless of which path it used.
type Engine struct {
	mu sync.Mutex

	params          Params
	domainSeparator [32]byte
	state           State
	payout          PayoutToken
	emitter         events.Emitter
}

// NewEngine constructs an engine from immutable parameters.
func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		params:          params,
		domainSeparator: DomainSeparator(params.ChainID, params.Instance),
		emitter:         events.NoopEmitter{},
	}, nil
}

// SetState configures the claim ledger backend.
func (e *Engine) SetState(state State) { e.state = state }

// SetPayoutToken configures the payout collaborator.
func (e *Engine) SetPayoutToken(token PayoutToken) { e.payout = token }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// ClaimWithProof settles a claim authorised by a Merkle membership proof for
// the (to, amount) leaf. Any caller holding a valid proof may direct the
// payout to the listed recipient; the claim record is keyed by the caller.
// This path stays available after the signature path is revoked.
func (e *Engine) ClaimWithProof(caller [20]byte, proof [][32]byte, to [20]byte, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	leaf, err := LeafHash(to, amount)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	claimed, err := e.state.AirdropClaimed(caller)
	if err != nil {
		return err
	}
	if claimed {
		return ErrAlreadyClaimed
	}
	if !VerifyProof(e.params.MerkleRoot, leaf, proof) {
		return ErrInvalidProof
	}
	if err := e.settle(caller, to, amount); err != nil {
		return err
	}
	e.emit(events.AirdropMerkleClaim{Caller: caller, Recipient: to, Amount: cloneAmount(amount)})
	return nil
}

// ClaimWithSignature settles a claim authorised by the trusted signer's
// EIP-712 signature over (claimer=caller, amount). The recipient parameter is
// not part of the signed payload and may differ from the caller.
func (e *Engine) ClaimWithSignature(caller [20]byte, sig []byte, to [20]byte, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 256 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	disabled, err := e.state.AirdropSignaturesDisabled()
	if err != nil {
		return err
	}
	if disabled {
		return ErrSignaturesDisabled
	}
	claimed, err := e.state.AirdropClaimed(caller)
	if err != nil {
		return err
	}
	if claimed {
		return ErrAlreadyClaimed
	}
	recovered, err := RecoverClaimSigner(e.domainSeparator, caller, amount, sig)
	if err != nil {
		return ErrInvalidSignature
	}
	// A malformed signature can recover to the zero address; rejecting it
	// explicitly keeps an unset trusted-signer field from ever matching.
	if recovered == ([20]byte{}) || recovered != e.params.TrustedSigner {
		return ErrInvalidSignature
	}
	if err := e.settle(caller, to, amount); err != nil {
		return err
	}
	e.emit(events.AirdropSignatureClaim{Caller: caller, Recipient: to, Amount: cloneAmount(amount)})
	return nil
}

// DisableSignatureVerification permanently revokes the signature path. Only
// the configured authority may call it; calling twice is harmless. There is
// no re-enable operation.
func (e *Engine) DisableSignatureVerification(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.params.Authority {
		return ErrNotAuthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.state.AirdropDisableSignatures(); err != nil {
		return err
	}
	e.emit(events.AirdropSignaturesDisabled{Authority: caller})
	return nil
}

// settle flips the claim record before invoking the payout so a reentrant
// call observes the claim as taken, then unwinds the mark if the payout
// collaborator fails. Callers hold e.mu.
func (e *Engine) settle(caller [20]byte, to [20]byte, amount *big.Int) error {
	if err := e.state.AirdropSetClaimed(caller, true); err != nil {
		return err
	}
	if err := e.payout.Transfer(to, cloneAmount(amount)); err != nil {
		if rbErr := e.state.AirdropSetClaimed(caller, false); rbErr != nil {
			return fmt.Errorf("%w: %v (rollback failed: %v)", ErrPayoutFailed, err, rbErr)
		}
		return fmt.Errorf("%w: %v", ErrPayoutFailed, err)
	}
	return nil
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.payout == nil {
		return errNilPayout
	}
	return nil
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

// MerkleRoot returns the committed root hash.
func (e *Engine) MerkleRoot() [32]byte { return e.params.MerkleRoot }

// TrustedSigner returns the only identity whose signatures authorise claims.
func (e *Engine) TrustedSigner() [20]byte { return e.params.TrustedSigner }

// Authority returns the privileged caller for the kill switch.
func (e *Engine) Authority() [20]byte { return e.params.Authority }

// DomainSeparator returns the instance's EIP-712 domain hash.
func (e *Engine) DomainSeparator() [32]byte { return e.domainSeparator }

// PayoutToken returns the configured payout collaborator handle.
func (e *Engine) PayoutToken() PayoutToken { return e.payout }

// SignatureVerificationDisabled reports whether the signature path has been
// revoked.
func (e *Engine) SignatureVerificationDisabled() (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.AirdropSignaturesDisabled()
}

// AlreadyClaimed reports whether the identity has settled a claim.
func (e *Engine) AlreadyClaimed(addr [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.AirdropClaimed(addr)
}
