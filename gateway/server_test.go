package gateway

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bnguyen2/merkle-drop/core/state"
	repoCrypto "github.com/bnguyen2/merkle-drop/crypto"
	"github.com/bnguyen2/merkle-drop/native/airdrop"
	"github.com/bnguyen2/merkle-drop/native/token"
	"github.com/bnguyen2/merkle-drop/storage"
)

type serverFixture struct {
	server *Server
	engine *airdrop.Engine
	ledger *token.Ledger

	signerKey    *repoCrypto.PrivateKey
	claimerKey   *repoCrypto.PrivateKey
	authorityKey *repoCrypto.PrivateKey

	claimerAddr   [20]byte
	authorityAddr [20]byte
	tree          *airdrop.Tree
}

func newServerFixture(t *testing.T, limit RateLimit) *serverFixture {
	t.Helper()

	signerKey, err := repoCrypto.GeneratePrivateKey()
	require.NoError(t, err)
	claimerKey, err := repoCrypto.GeneratePrivateKey()
	require.NoError(t, err)
	authorityKey, err := repoCrypto.GeneratePrivateKey()
	require.NoError(t, err)

	f := &serverFixture{
		signerKey:     signerKey,
		claimerKey:    claimerKey,
		authorityKey:  authorityKey,
		claimerAddr:   claimerKey.PubKey().Address().Array(),
		authorityAddr: authorityKey.PubKey().Address().Array(),
	}

	var other [20]byte
	other[19] = 0x99
	f.tree, err = airdrop.NewTree([]airdrop.Leaf{
		{Recipient: f.claimerAddr, Amount: big.NewInt(100)},
		{Recipient: other, Amount: big.NewInt(200)},
	})
	require.NoError(t, err)

	store := state.NewStore(storage.NewMemDB())
	var pool [20]byte
	pool[0] = 0x01
	f.ledger = token.NewLedger(store, pool)
	require.NoError(t, f.ledger.Fund(big.NewInt(1_000_000)))

	f.engine, err = airdrop.NewEngine(airdrop.Params{
		MerkleRoot:    f.tree.Root(),
		TrustedSigner: signerKey.PubKey().Address().Array(),
		Authority:     f.authorityAddr,
		ChainID:       1881,
		Instance:      pool,
	})
	require.NoError(t, err)
	f.engine.SetState(store)
	f.engine.SetPayoutToken(f.ledger)

	f.server = New(Config{Engine: f.engine, RateLimit: limit})
	return f
}

// signedPost issues a POST carrying the envelope headers for the given key.
func (f *serverFixture) signedPost(t *testing.T, key *repoCrypto.PrivateKey, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	caller, sig, err := SignEnvelope(key, http.MethodPost, path, body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(headerCaller, caller)
	req.Header.Set(headerSignature, sig)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f *serverFixture) merklePayload(t *testing.T) merkleClaimRequest {
	t.Helper()
	proof, err := f.tree.Prove(0)
	require.NoError(t, err)
	encoded := make([]string, len(proof))
	for i, node := range proof {
		encoded[i] = "0x" + hex.EncodeToString(node[:])
	}
	return merkleClaimRequest{
		Recipient: "0x" + hex.EncodeToString(f.claimerAddr[:]),
		Amount:    "100",
		Proof:     encoded,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	f := newServerFixture(t, RateLimit{})
	rec := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestInfoReportsParameters(t *testing.T) {
	f := newServerFixture(t, RateLimit{})
	rec := f.get(t, "/v1/info")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	root := f.engine.MerkleRoot()
	require.Equal(t, "0x"+hex.EncodeToString(root[:]), body["merkleRoot"])
	require.Equal(t, false, body["signaturesDisabled"])
	require.Contains(t, body, "trustedSigner")
	require.Contains(t, body, "payoutPool")
}

func TestMerkleClaimEndToEnd(t *testing.T) {
	f := newServerFixture(t, RateLimit{})
	payload := f.merklePayload(t)

	rec := f.signedPost(t, f.claimerKey, "/v1/claims/merkle", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	balance, err := f.ledger.BalanceOf(f.claimerAddr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), balance)

	// Status endpoint reflects the committed claim.
	callerBech := f.claimerKey.PubKey().Address().String()
	rec = f.get(t, "/v1/claims/"+callerBech)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decodeBody(t, rec)["claimed"])

	// Replaying the same request conflicts.
	rec = f.signedPost(t, f.claimerKey, "/v1/claims/merkle", payload)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "ALREADY_CLAIMED", decodeBody(t, rec)["code"])
}

func TestMerkleClaimBadProofRejected(t *testing.T) {
	f := newServerFixture(t, RateLimit{})
	payload := f.merklePayload(t)
	payload.Amount = "101"

	rec := f.signedPost(t, f.claimerKey, "/v1/claims/merkle", payload)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "INVALID_PROOF", decodeBody(t, rec)["code"])
}

func TestClaimRequiresEnvelope(t *testing.T) {
	f := newServerFixture(t, RateLimit{})
	body, err := json.Marshal(f.merklePayload(t))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/claims/merkle", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnvelopeRejectsTamperedBody(t *testing.T) {
	f := newServerFixture(t, RateLimit{})
	payload := f.merklePayload(t)
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	caller, sig, err := SignEnvelope(f.claimerKey, http.MethodPost, "/v1/claims/merkle", body)
	require.NoError(t, err)

	payload.Amount = "999"
	tampered, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/claims/merkle", bytes.NewReader(tampered))
	req.Header.Set(headerCaller, caller)
	req.Header.Set(headerSignature, sig)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignatureClaimEndToEnd(t *testing.T) {
	f := newServerFixture(t, RateLimit{})
	sig, err := airdrop.SignClaim(f.signerKey, f.engine.DomainSeparator(), f.claimerAddr, big.NewInt(100))
	require.NoError(t, err)

	payload := signatureClaimRequest{
		Recipient: "0x" + hex.EncodeToString(f.claimerAddr[:]),
		Amount:    "100",
		Signature: "0x" + hex.EncodeToString(sig),
	}
	rec := f.signedPost(t, f.claimerKey, "/v1/claims/signature", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Second attempt hits the shared claim record.
	rec = f.signedPost(t, f.claimerKey, "/v1/claims/signature", payload)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignatureClaimUntrustedSignerRejected(t *testing.T) {
	f := newServerFixture(t, RateLimit{})
	sig, err := airdrop.SignClaim(f.claimerKey, f.engine.DomainSeparator(), f.claimerAddr, big.NewInt(100))
	require.NoError(t, err)

	payload := signatureClaimRequest{
		Recipient: "0x" + hex.EncodeToString(f.claimerAddr[:]),
		Amount:    "100",
		Signature: "0x" + hex.EncodeToString(sig),
	}
	rec := f.signedPost(t, f.claimerKey, "/v1/claims/signature", payload)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "INVALID_SIGNATURE", decodeBody(t, rec)["code"])
}

func TestDisableSignaturesFlow(t *testing.T) {
	f := newServerFixture(t, RateLimit{})

	// A non-authority caller is refused.
	rec := f.signedPost(t, f.claimerKey, "/v1/admin/disable-signatures", map[string]string{})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "NOT_AUTHORIZED", decodeBody(t, rec)["code"])

	rec = f.signedPost(t, f.authorityKey, "/v1/admin/disable-signatures", map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Signature claims are now refused outright.
	sig, err := airdrop.SignClaim(f.signerKey, f.engine.DomainSeparator(), f.claimerAddr, big.NewInt(100))
	require.NoError(t, err)
	payload := signatureClaimRequest{
		Recipient: "0x" + hex.EncodeToString(f.claimerAddr[:]),
		Amount:    "100",
		Signature: "0x" + hex.EncodeToString(sig),
	}
	rec = f.signedPost(t, f.claimerKey, "/v1/claims/signature", payload)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "SIGNATURES_DISABLED", decodeBody(t, rec)["code"])

	// The Merkle path still settles.
	rec = f.signedPost(t, f.claimerKey, "/v1/claims/merkle", f.merklePayload(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Info reflects the revocation.
	rec = f.get(t, "/v1/info")
	require.Equal(t, true, decodeBody(t, rec)["signaturesDisabled"])
}

func TestClaimRateLimited(t *testing.T) {
	f := newServerFixture(t, RateLimit{RequestsPerMinute: 60, Burst: 1})
	payload := f.merklePayload(t)

	first := f.signedPost(t, f.claimerKey, "/v1/claims/merkle", payload)
	require.Equal(t, http.StatusOK, first.Code)

	second := f.signedPost(t, f.claimerKey, "/v1/claims/merkle", payload)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestClaimStatusBadAddress(t *testing.T) {
	f := newServerFixture(t, RateLimit{})
	rec := f.get(t, "/v1/claims/not-an-address")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
