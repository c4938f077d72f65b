package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoneAcceptsEverything(t *testing.T) {
	mode := None{}
	assert.False(t, mode.RequiresFirstFrame())
	assert.NoError(t, mode.ValidateRequest(http.Header{}))
	assert.NoError(t, mode.ValidateFrame("/anything", []byte("not even json")))
}

func TestUnauthorizedError(t *testing.T) {
	err := Unauthorized("Missing field '%s'", "Authorization")
	assert.EqualError(t, err, "Missing field 'Authorization'")
}
