package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// ClaimCodes marks which registered JWT claims must be both present and
// valid. A claim whose bit is clear may still appear in the token; it is
// then accepted without validation.
type ClaimCodes struct {
	NotBefore bool // nbf
	Expiry    bool // exp
}

// DisableAll returns claim codes with no claim required.
func DisableAll() ClaimCodes {
	return ClaimCodes{}
}

// JWT authenticates clients with a compact-serialised JSON Web Token found
// at the configured location. Secret is the HMAC shared secret for HS*
// methods, or the DER-encoded RSA public key for RS* methods.
type JWT struct {
	location Location
	method   jwt.SigningMethod
	claims   ClaimCodes
	key      interface{}
}

// NewJWT builds a JWT mode. The secret is parsed eagerly so a malformed key
// surfaces at startup, not on the first client.
func NewJWT(location Location, secret []byte, method jwt.SigningMethod, claims ClaimCodes) (*JWT, error) {
	key, err := parseVerifyKey(method, secret)
	if err != nil {
		return nil, err
	}
	return &JWT{location: location, method: method, claims: claims, key: key}, nil
}

// DefaultJWT validates an RS256 token from the Authorization: Bearer
// {token} header with no claim codes enabled.
func DefaultJWT(publicKeyDER []byte) (*JWT, error) {
	return NewJWT(DefaultLocation(), publicKeyDER, jwt.SigningMethodRS256, DisableAll())
}

func parseVerifyKey(method jwt.SigningMethod, secret []byte) (interface{}, error) {
	switch method.(type) {
	case *jwt.SigningMethodHMAC:
		return secret, nil
	case *jwt.SigningMethodRSA:
		if key, err := x509.ParsePKIXPublicKey(secret); err == nil {
			rsaKey, ok := key.(*rsa.PublicKey)
			if !ok {
				return nil, fmt.Errorf("DER public key is not RSA")
			}
			return rsaKey, nil
		}
		key, err := x509.ParsePKCS1PublicKey(secret)
		if err != nil {
			return nil, fmt.Errorf("secret is not a DER-encoded RSA public key: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported signing method %q", method.Alg())
	}
}

func (j *JWT) RequiresFirstFrame() bool {
	return j.location.FromFrame()
}

func (j *JWT) ValidateRequest(header http.Header) error {
	if j.location.header == nil {
		return Unauthorized("token location is the first websocket frame")
	}
	token, err := j.location.header.Extract(header)
	if err != nil {
		return err
	}
	return j.Validate(token)
}

func (j *JWT) ValidateFrame(_ string, frame []byte) error {
	if j.location.frame == nil {
		return Unauthorized("token location is an upgrade request header")
	}
	token, err := j.location.frame.ExtractToken(frame)
	if err != nil {
		return err
	}
	return j.Validate(token)
}

// Validate parses and verifies a compact-serialised token. Registered-claim
// validation is opt-in per claim code; the clock is read once per call.
func (j *JWT) Validate(token string) error {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return j.key, nil
	},
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return Unauthorized("wrong token")
	}

	now := time.Now()
	if j.claims.NotBefore {
		if claims.NotBefore == nil {
			log.Info().Msg("Client connection unauthorized because 'nbf' claims code not found")
			return Unauthorized("Client connection unauthorized because 'nbf' claims code not found")
		}
		if now.Before(claims.NotBefore.Time) {
			return Unauthorized("token not valid before %s", claims.NotBefore.Time.Format(time.RFC3339))
		}
		log.Info().Msgf("Client connection authorized not before %s", claims.NotBefore.Time.Format(time.RFC3339))
	}
	if j.claims.Expiry {
		if claims.ExpiresAt == nil {
			log.Info().Msg("Client connection unauthorized because 'exp' claims code not found")
			return Unauthorized("Client connection unauthorized because 'exp' claims code not found")
		}
		if !claims.ExpiresAt.Time.After(now) {
			return Unauthorized("token expired at %s", claims.ExpiresAt.Time.Format(time.RFC3339))
		}
		log.Info().Msgf("Client connection authorized expire at %s", claims.ExpiresAt.Time.Format(time.RFC3339))
	}
	return nil
}
