package auth

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// nonceKey is the first-frame field carrying the request nonce.
const nonceKey = "nonce"

// SecretLookup resolves the server-side secret associated with an api key.
// A nil return means the key is unknown. Implementations must be safe for
// concurrent use.
type SecretLookup func(apiKey string) []byte

// APIKey authenticates clients with an HMAC-signed first frame. The frame
// object carries the api key, an increasing nonce, a payload object and an
// HS512 signature over
//
//	uri_path || sha256_hex(nonce || sha256_hex(compact_json(payload)))
//
// computed with the secret registered for the key.
type APIKey struct {
	field  FrameField
	lookup SecretLookup
	nonces *NonceStore
}

// NewAPIKey builds an api-key mode. The frame field must name the signature
// and payload keys in addition to the key itself.
func NewAPIKey(field FrameField, lookup SecretLookup) (*APIKey, error) {
	if field.Key == "" || field.SignKey == "" || field.PayloadKey == "" {
		return nil, fmt.Errorf("api-key auth needs key, signature and payload field names")
	}
	if lookup == nil {
		return nil, fmt.Errorf("api-key auth needs a secret lookup")
	}
	return &APIKey{field: field, lookup: lookup, nonces: NewNonceStore()}, nil
}

func (a *APIKey) RequiresFirstFrame() bool { return true }

func (a *APIKey) ValidateRequest(http.Header) error {
	return Unauthorized("api key credentials travel in the first websocket frame")
}

func (a *APIKey) ValidateFrame(uriPath string, frame []byte) error {
	object, err := decodeObject(frame)
	if err != nil {
		return err
	}
	apiKey, err := stringValue(object, a.field.Key)
	if err != nil {
		return err
	}
	signatureHex, err := stringValue(object, a.field.SignKey)
	if err != nil {
		return err
	}
	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return Unauthorized("\"%s\" is not hex encoded", a.field.SignKey)
	}
	payload, ok := object[a.field.PayloadKey]
	if !ok {
		return Unauthorized("\"%s\" not found", a.field.PayloadKey)
	}
	var nonce uint64
	rawNonce, ok := object[nonceKey]
	if !ok {
		return Unauthorized("\"%s\" not found or it's not a positive integer", nonceKey)
	}
	if err := json.Unmarshal(rawNonce, &nonce); err != nil {
		return Unauthorized("\"%s\" not found or it's not a positive integer", nonceKey)
	}

	secret := a.lookup(apiKey)
	if secret == nil {
		return Unauthorized("unknown api key")
	}

	compact := &bytes.Buffer{}
	if err := json.Compact(compact, payload); err != nil {
		return Unauthorized("\"%s\" is not valid JSON", a.field.PayloadKey)
	}
	canonical := uriPath + sha256Hex(strconv.FormatUint(nonce, 10)+sha256Hex(compact.String()))
	if err := jwt.SigningMethodHS512.Verify(canonical, signature, secret); err != nil {
		return Unauthorized("signature mismatch")
	}

	// Signature first, nonce second: unauthenticated requests must not be
	// able to advance the nonce window.
	if !a.nonces.Advance(apiKey, nonce) {
		return Unauthorized("nonce replayed or not increasing")
	}
	return nil
}

func sha256Hex(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// NonceStore tracks the last nonce accepted per api key. A nonce equal to
// or lower than the last accepted one is a replay.
type NonceStore struct {
	mu   sync.Mutex
	last map[string]uint64
}

func NewNonceStore() *NonceStore {
	return &NonceStore{last: make(map[string]uint64)}
}

// Advance records nonce for apiKey if it is strictly greater than the last
// accepted one, reporting whether it was accepted.
func (s *NonceStore) Advance(apiKey string, nonce uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.last[apiKey]; ok && nonce <= prev {
		return false
	}
	s.last[apiKey] = nonce
	return true
}
