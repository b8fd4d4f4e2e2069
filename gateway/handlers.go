package gateway

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bnguyen2/merkle-drop/crypto"
	"github.com/bnguyen2/merkle-drop/native/airdrop"
)

const maxBodyBytes = 1 << 20

type merkleClaimRequest struct {
	Recipient string   `json:"recipient"`
	Amount    string   `json:"amount"`
	Proof     []string `json:"proof"`
}

type signatureClaimRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
}

type claimResponse struct {
	Status    string `json:"status"`
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	disabled, err := s.engine.SignatureVerificationDisabled()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "state unavailable")
		return
	}
	root := s.engine.MerkleRoot()
	ds := s.engine.DomainSeparator()
	info := map[string]any{
		"merkleRoot":         "0x" + hex.EncodeToString(root[:]),
		"trustedSigner":      crypto.NewAddress(crypto.DropPrefix, addrBytes(s.engine.TrustedSigner())).String(),
		"authority":          crypto.NewAddress(crypto.DropPrefix, addrBytes(s.engine.Authority())).String(),
		"domainSeparator":    "0x" + hex.EncodeToString(ds[:]),
		"signaturesDisabled": disabled,
	}
	if pooler, ok := s.engine.PayoutToken().(interface{ Pool() [20]byte }); ok {
		info["payoutPool"] = crypto.NewAddress(crypto.DropPrefix, addrBytes(pooler.Pool())).String()
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleClaimStatus(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_ADDRESS", err.Error())
		return
	}
	claimed, err := s.engine.AlreadyClaimed(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "state unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": crypto.NewAddress(crypto.DropPrefix, addr[:]).String(),
		"claimed": claimed,
	})
}

func (s *Server) handleMerkleClaim(w http.ResponseWriter, r *http.Request) {
	body, caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req merkleClaimRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	recipient, amount, err := parseClaimFields(req.Recipient, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	proof, err := parseProof(req.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	err = s.engine.ClaimWithProof(caller, proof, recipient, amount)
	s.observe("merkle", err)
	if err != nil {
		s.writeClaimError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{
		Status:    "ok",
		Caller:    crypto.NewAddress(crypto.DropPrefix, caller[:]).String(),
		Recipient: crypto.NewAddress(crypto.DropPrefix, recipient[:]).String(),
		Amount:    amount.String(),
	})
}

func (s *Server) handleSignatureClaim(w http.ResponseWriter, r *http.Request) {
	body, caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req signatureClaimRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	recipient, amount, err := parseClaimFields(req.Recipient, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(req.Signature), "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "signature must be hex encoded")
		return
	}
	err = s.engine.ClaimWithSignature(caller, sig, recipient, amount)
	s.observe("signature", err)
	if err != nil {
		s.writeClaimError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{
		Status:    "ok",
		Caller:    crypto.NewAddress(crypto.DropPrefix, caller[:]).String(),
		Recipient: crypto.NewAddress(crypto.DropPrefix, recipient[:]).String(),
		Amount:    amount.String(),
	})
}

func (s *Server) handleDisableSignatures(w http.ResponseWriter, r *http.Request) {
	_, caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if err := s.engine.DisableSignatureVerification(caller); err != nil {
		s.writeClaimError(w, err)
		return
	}
	s.metrics.SetSignaturesDisabled(true)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"authority": crypto.NewAddress(crypto.DropPrefix, caller[:]).String(),
	})
}

// authenticate reads the body and recovers the caller from the signed
// envelope headers. On failure it writes the error response itself.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) ([]byte, [20]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to read body")
		return nil, [20]byte{}, false
	}
	caller, err := recoverCaller(r, body)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", err.Error())
		return nil, [20]byte{}, false
	}
	return body, caller, true
}

func (s *Server) observe(path string, err error) {
	switch {
	case err == nil:
		s.metrics.ObserveClaim(path, "ok")
	case errors.Is(err, airdrop.ErrAlreadyClaimed),
		errors.Is(err, airdrop.ErrInvalidProof),
		errors.Is(err, airdrop.ErrInvalidSignature),
		errors.Is(err, airdrop.ErrSignaturesDisabled),
		errors.Is(err, airdrop.ErrInvalidAmount):
		s.metrics.ObserveClaim(path, "rejected")
	default:
		s.metrics.ObserveClaim(path, "error")
	}
}

func (s *Server) writeClaimError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, airdrop.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, "ALREADY_CLAIMED", err.Error())
	case errors.Is(err, airdrop.ErrInvalidProof):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_PROOF", err.Error())
	case errors.Is(err, airdrop.ErrInvalidSignature):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_SIGNATURE", err.Error())
	case errors.Is(err, airdrop.ErrSignaturesDisabled):
		writeError(w, http.StatusForbidden, "SIGNATURES_DISABLED", err.Error())
	case errors.Is(err, airdrop.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "NOT_AUTHORIZED", err.Error())
	case errors.Is(err, airdrop.ErrPayoutFailed):
		writeError(w, http.StatusBadGateway, "PAYOUT_FAILED", err.Error())
	case errors.Is(err, airdrop.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", err.Error())
	default:
		s.log.Error("claim failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func parseClaimFields(recipient, amount string) ([20]byte, *big.Int, error) {
	addr, err := crypto.ParseAddress(recipient)
	if err != nil {
		return [20]byte{}, nil, fmt.Errorf("recipient: %w", err)
	}
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return [20]byte{}, nil, fmt.Errorf("amount required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return [20]byte{}, nil, fmt.Errorf("invalid amount %q", amount)
	}
	if value.Sign() < 0 {
		return [20]byte{}, nil, fmt.Errorf("amount must be non-negative")
	}
	return addr, value, nil
}

func parseProof(raw []string) ([][32]byte, error) {
	proof := make([][32]byte, 0, len(raw))
	for i, entry := range raw {
		decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(entry), "0x"))
		if err != nil {
			return nil, fmt.Errorf("proof[%d]: %w", i, err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("proof[%d]: must be 32 bytes, got %d", i, len(decoded))
		}
		var node [32]byte
		copy(node[:], decoded)
		proof = append(proof, node)
	}
	return proof, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func addrBytes(addr [20]byte) []byte {
	return addr[:]
}
