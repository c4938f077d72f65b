package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hmacSecret = []byte("correct horse battery staple")

func signHS256(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(hmacSecret)
	require.NoError(t, err)
	return token
}

func newHS256(t *testing.T, claims ClaimCodes) *JWT {
	t.Helper()
	mode, err := NewJWT(DefaultLocation(), hmacSecret, jwt.SigningMethodHS256, claims)
	require.NoError(t, err)
	return mode
}

func TestJWTValidateHS256(t *testing.T) {
	mode := newHS256(t, DisableAll())
	require.NoError(t, mode.Validate(signHS256(t, jwt.RegisteredClaims{})))
}

func TestJWTValidateRejectsTamperedSignature(t *testing.T) {
	mode := newHS256(t, DisableAll())
	token := signHS256(t, jwt.RegisteredClaims{})

	last := token[len(token)-1]
	flipped := byte('A')
	if last == 'A' {
		flipped = 'B'
	}
	tampered := token[:len(token)-1] + string(flipped)
	require.EqualError(t, mode.Validate(tampered), "wrong token")
}

func TestJWTValidateRejectsGarbage(t *testing.T) {
	mode := newHS256(t, DisableAll())
	require.EqualError(t, mode.Validate("notajwt"), "wrong token")
}

func TestJWTClaimCodes(t *testing.T) {
	now := time.Now()
	past := jwt.NewNumericDate(now.Add(-time.Hour))
	future := jwt.NewNumericDate(now.Add(time.Hour))

	tests := []struct {
		name    string
		codes   ClaimCodes
		claims  jwt.RegisteredClaims
		wantErr string
	}{
		{
			name:    "exp required but absent",
			codes:   ClaimCodes{Expiry: true},
			claims:  jwt.RegisteredClaims{},
			wantErr: "Client connection unauthorized because 'exp' claims code not found",
		},
		{
			name:   "exp required and in the future",
			codes:  ClaimCodes{Expiry: true},
			claims: jwt.RegisteredClaims{ExpiresAt: future},
		},
		{
			name:    "exp required and expired",
			codes:   ClaimCodes{Expiry: true},
			claims:  jwt.RegisteredClaims{ExpiresAt: past},
			wantErr: "token expired at " + past.Time.Format(time.RFC3339),
		},
		{
			name:   "expired token passes when exp code disabled",
			codes:  DisableAll(),
			claims: jwt.RegisteredClaims{ExpiresAt: past},
		},
		{
			name:    "nbf required but absent",
			codes:   ClaimCodes{NotBefore: true},
			claims:  jwt.RegisteredClaims{},
			wantErr: "Client connection unauthorized because 'nbf' claims code not found",
		},
		{
			name:   "nbf required and in the past",
			codes:  ClaimCodes{NotBefore: true},
			claims: jwt.RegisteredClaims{NotBefore: past},
		},
		{
			name:    "nbf required and in the future",
			codes:   ClaimCodes{NotBefore: true},
			claims:  jwt.RegisteredClaims{NotBefore: future},
			wantErr: "token not valid before " + future.Time.Format(time.RFC3339),
		},
		{
			name:   "future nbf passes when nbf code disabled",
			codes:  DisableAll(),
			claims: jwt.RegisteredClaims{NotBefore: future},
		},
		{
			name:   "both codes satisfied",
			codes:  ClaimCodes{NotBefore: true, Expiry: true},
			claims: jwt.RegisteredClaims{NotBefore: past, ExpiresAt: future},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode := newHS256(t, tt.codes)
			err := mode.Validate(signHS256(t, tt.claims))
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestJWTValidateRS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{}).SignedString(key)
	require.NoError(t, err)

	pkixDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	mode, err := DefaultJWT(pkixDER)
	require.NoError(t, err)
	require.NoError(t, mode.Validate(token))

	// PKCS#1 encoding of the same key is accepted too.
	pkcs1Mode, err := DefaultJWT(x509.MarshalPKCS1PublicKey(&key.PublicKey))
	require.NoError(t, err)
	require.NoError(t, pkcs1Mode.Validate(token))

	// A token from a different key fails verification.
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{}).SignedString(otherKey)
	require.NoError(t, err)
	require.EqualError(t, mode.Validate(foreign), "wrong token")
}

func TestJWTRejectsMethodConfusion(t *testing.T) {
	// The verifier pins the configured algorithm: an HS256 token signed with
	// the public key bytes must not pass an RS256 verifier.
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	mode, err := DefaultJWT(der)
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString(der)
	require.NoError(t, err)
	require.EqualError(t, mode.Validate(forged), "wrong token")
}

func TestNewJWTRejectsBadKeyMaterial(t *testing.T) {
	_, err := NewJWT(DefaultLocation(), []byte("not der"), jwt.SigningMethodRS256, DisableAll())
	require.Error(t, err)

	_, err = NewJWT(DefaultLocation(), []byte("secret"), jwt.SigningMethodES256, DisableAll())
	require.Error(t, err)
}

func TestJWTValidateRequest(t *testing.T) {
	mode := newHS256(t, DisableAll())

	header := http.Header{}
	header.Set("Authorization", "Bearer "+signHS256(t, jwt.RegisteredClaims{}))
	require.NoError(t, mode.ValidateRequest(header))

	require.EqualError(t, mode.ValidateRequest(http.Header{}), "Missing field 'Authorization'")
	assert.False(t, mode.RequiresFirstFrame())
}

func TestJWTValidateFrame(t *testing.T) {
	mode, err := NewJWT(FrameLocation(JWTFrameField("access_token")), hmacSecret, jwt.SigningMethodHS256, DisableAll())
	require.NoError(t, err)
	assert.True(t, mode.RequiresFirstFrame())

	frame := []byte(`{"access_token":"` + signHS256(t, jwt.RegisteredClaims{}) + `"}`)
	require.NoError(t, mode.ValidateFrame("/ws", frame))

	require.EqualError(t, mode.ValidateFrame("/ws", []byte(`{}`)), `"access_token" not found or it's not a 'string'`)

	// Header extraction is not available in frame mode and vice versa.
	require.Error(t, mode.ValidateRequest(http.Header{}))
	headerMode := newHS256(t, DisableAll())
	require.Error(t, headerMode.ValidateFrame("/ws", frame))
}
