package gateway

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	repoCrypto "github.com/bnguyen2/merkle-drop/crypto"
)

// Claims carry the caller's identity the way a transaction sender would on
// chain: the request is signed by the caller's key and the gateway recovers
// the address from the envelope. The envelope covers method, path and a hash
// of the body, so a captured signature cannot be replayed against a different
// operation.
const (
	headerCaller    = "X-Drop-Caller"
	headerSignature = "X-Drop-Signature"

	envelopeDomain = "MERKLE_DROP_REQ_V1"
)

// EnvelopeDigest computes the digest the caller signs for a request.
func EnvelopeDigest(method, path string, body []byte) []byte {
	bodyHash := ethcrypto.Keccak256(body)
	payload := fmt.Sprintf("%s|%s|%s|%s",
		envelopeDomain,
		strings.ToUpper(strings.TrimSpace(method)),
		strings.TrimSpace(path),
		hex.EncodeToString(bodyHash),
	)
	return ethcrypto.Keccak256([]byte(payload))
}

// SignEnvelope produces the header values for an authenticated request. Used
// by clients and tests.
func SignEnvelope(key *repoCrypto.PrivateKey, method, path string, body []byte) (caller string, signature string, err error) {
	if key == nil || key.PrivateKey == nil {
		return "", "", fmt.Errorf("gateway: signing key required")
	}
	digest := EnvelopeDigest(method, path, body)
	sig, err := ethcrypto.Sign(digest, key.PrivateKey)
	if err != nil {
		return "", "", err
	}
	return key.PubKey().Address().String(), hex.EncodeToString(sig), nil
}

// recoverCaller validates the envelope headers against the request and
// returns the authenticated caller address.
func recoverCaller(r *http.Request, body []byte) ([20]byte, error) {
	var out [20]byte
	callerRaw := strings.TrimSpace(r.Header.Get(headerCaller))
	sigRaw := strings.TrimSpace(r.Header.Get(headerSignature))
	if callerRaw == "" || sigRaw == "" {
		return out, fmt.Errorf("gateway: missing %s or %s header", headerCaller, headerSignature)
	}
	claimed, err := repoCrypto.ParseAddress(callerRaw)
	if err != nil {
		return out, fmt.Errorf("gateway: caller header: %w", err)
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(sigRaw, "0x"))
	if err != nil {
		return out, fmt.Errorf("gateway: signature header: %w", err)
	}
	if len(sig) != 65 {
		return out, fmt.Errorf("gateway: signature must be 65 bytes, got %d", len(sig))
	}
	normalized := append([]byte(nil), sig...)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	digest := EnvelopeDigest(r.Method, r.URL.Path, body)
	pubKey, err := ethcrypto.SigToPub(digest, normalized)
	if err != nil {
		return out, fmt.Errorf("gateway: recover caller: %w", err)
	}
	copy(out[:], ethcrypto.PubkeyToAddress(*pubKey).Bytes())
	if out != claimed {
		return [20]byte{}, fmt.Errorf("gateway: signature does not match caller header")
	}
	return out, nil
}
