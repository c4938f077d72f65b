package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"
)

const tokenPlaceholder = "{token}"

// Location points at where the client credential travels: an HTTP header of
// the upgrade request, or a key inside the first websocket text frame.
// Exactly one of the two is set.
type Location struct {
	header *HeaderTemplate
	frame  *FrameField
}

// HeaderLocation places the credential in an upgrade request header.
func HeaderLocation(t *HeaderTemplate) Location {
	return Location{header: t}
}

// FrameLocation places the credential in the first websocket text frame.
func FrameLocation(f FrameField) Location {
	return Location{frame: &f}
}

// DefaultLocation is the Authorization: Bearer {token} header.
func DefaultLocation() Location {
	return HeaderLocation(DefaultHeaderTemplate())
}

// FromFrame reports whether the credential arrives in the first frame.
func (l Location) FromFrame() bool {
	return l.frame != nil
}

// HeaderTemplate is a declarative header-value template containing exactly
// one {token} placeholder flanked by literal prefix/suffix strings that are
// stripped during extraction.
type HeaderTemplate struct {
	Field  string
	prefix string
	suffix string
}

// NewHeaderTemplate parses a template like "Bearer {token}". The value must
// contain the placeholder exactly once, and at least one of the flanking
// substrings must be non-empty.
func NewHeaderTemplate(field, value string) (*HeaderTemplate, error) {
	trimmed := strings.TrimSpace(value)
	if strings.Count(trimmed, tokenPlaceholder) != 1 {
		return nil, Unauthorized("header template %q must contain exactly one %s placeholder", value, tokenPlaceholder)
	}
	prefix, suffix, _ := strings.Cut(trimmed, tokenPlaceholder)
	if prefix == "" && suffix == "" {
		return nil, Unauthorized("header template %q needs a non-empty prefix or suffix around %s", value, tokenPlaceholder)
	}
	return &HeaderTemplate{Field: field, prefix: prefix, suffix: suffix}, nil
}

// DefaultHeaderTemplate returns the Authorization: Bearer {token} template.
func DefaultHeaderTemplate() *HeaderTemplate {
	t, err := NewHeaderTemplate("Authorization", "Bearer "+tokenPlaceholder)
	if err != nil {
		panic(err)
	}
	return t
}

// Extract fetches the configured header and strips the template prefix and
// suffix, returning the raw token.
func (t *HeaderTemplate) Extract(header http.Header) (string, error) {
	values := header.Values(t.Field)
	if len(values) == 0 {
		return "", Unauthorized("Missing field '%s'", t.Field)
	}
	raw := values[0]
	if !utf8.ValidString(raw) {
		return "", Unauthorized("field '%s' is not valid UTF-8", t.Field)
	}
	token := strings.TrimPrefix(raw, t.prefix)
	token = strings.TrimSuffix(token, t.suffix)
	return token, nil
}

// FrameField names the keys looked up inside the first-frame JSON object.
// Key holds the token (JWT) or the api key; SignKey and PayloadKey are only
// used by the api-key flavor.
type FrameField struct {
	Key        string
	SignKey    string
	PayloadKey string
}

// JWTFrameField configures first-frame JWT extraction under the given key.
func JWTFrameField(key string) FrameField {
	return FrameField{Key: key}
}

// APIKeyFrameField configures first-frame api-key extraction: the key
// itself, the signature and the signed payload object.
func APIKeyFrameField(key, signKey, payloadKey string) FrameField {
	return FrameField{Key: key, SignKey: signKey, PayloadKey: payloadKey}
}

// decodeObject parses the first frame, rejecting anything that is not a
// JSON object.
func decodeObject(frame []byte) (map[string]json.RawMessage, error) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(frame, &object); err != nil {
		return nil, Unauthorized("request must be in type object")
	}
	return object, nil
}

// stringValue looks up a key that must hold a JSON string.
func stringValue(object map[string]json.RawMessage, key string) (string, error) {
	raw, ok := object[key]
	if !ok {
		return "", Unauthorized("\"%s\" not found or it's not a 'string'", key)
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", Unauthorized("\"%s\" not found or it's not a 'string'", key)
	}
	return value, nil
}

// ExtractToken pulls the token string out of a first-frame object.
func (f FrameField) ExtractToken(frame []byte) (string, error) {
	object, err := decodeObject(frame)
	if err != nil {
		return "", err
	}
	return stringValue(object, f.Key)
}
