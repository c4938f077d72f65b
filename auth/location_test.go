package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHeaderTemplate(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantErr    bool
		wantPrefix string
		wantSuffix string
	}{
		{name: "bearer", value: "Bearer {token}", wantPrefix: "Bearer ", wantSuffix: ""},
		{name: "suffix only", value: "{token};v=1", wantPrefix: "", wantSuffix: ";v=1"},
		{name: "both sides", value: "pre-{token}-post", wantPrefix: "pre-", wantSuffix: "-post"},
		{name: "outer whitespace trimmed", value: "  Bearer {token}  ", wantPrefix: "Bearer ", wantSuffix: ""},
		{name: "bare placeholder", value: "{token}", wantErr: true},
		{name: "no placeholder", value: "Bearer token", wantErr: true},
		{name: "double placeholder", value: "{token}{token}", wantErr: true},
		{name: "empty", value: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := NewHeaderTemplate("Authorization", tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Authorization", tmpl.Field)
			assert.Equal(t, tt.wantPrefix, tmpl.prefix)
			assert.Equal(t, tt.wantSuffix, tmpl.suffix)
		})
	}
}

func TestHeaderTemplateExtract(t *testing.T) {
	templates := []struct {
		value string
		token string
	}{
		{"Bearer {token}", "eyJhbGciOi.payload.sig"},
		{"pre-{token}-post", "abc123"},
		{"{token} trailing", "tok"},
		{"Token {token} ;v=1", "t"},
	}
	for _, tc := range templates {
		tmpl, err := NewHeaderTemplate("Authorization", tc.value)
		require.NoError(t, err, tc.value)

		header := http.Header{}
		header.Set("Authorization", tmpl.prefix+tc.token+tmpl.suffix)
		token, err := tmpl.Extract(header)
		require.NoError(t, err, tc.value)
		assert.Equal(t, tc.token, token, tc.value)
	}
}

func TestHeaderTemplateExtractMissingField(t *testing.T) {
	tmpl := DefaultHeaderTemplate()
	_, err := tmpl.Extract(http.Header{})
	require.EqualError(t, err, "Missing field 'Authorization'")
}

func TestDefaultHeaderTemplate(t *testing.T) {
	tmpl := DefaultHeaderTemplate()
	assert.Equal(t, "Authorization", tmpl.Field)
	assert.Equal(t, "Bearer ", tmpl.prefix)
	assert.Empty(t, tmpl.suffix)
}

func TestFrameFieldExtractToken(t *testing.T) {
	field := JWTFrameField("access_token")

	token, err := field.ExtractToken([]byte(`{"access_token":"abc.def.ghi"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)
}

func TestFrameFieldExtractTokenErrors(t *testing.T) {
	field := JWTFrameField("access_token")

	_, err := field.ExtractToken([]byte(`[1,2,3]`))
	require.EqualError(t, err, "request must be in type object")

	_, err = field.ExtractToken([]byte(`not json`))
	require.EqualError(t, err, "request must be in type object")

	_, err = field.ExtractToken([]byte(`{"other":"x"}`))
	require.EqualError(t, err, `"access_token" not found or it's not a 'string'`)

	_, err = field.ExtractToken([]byte(`{"access_token":42}`))
	require.EqualError(t, err, `"access_token" not found or it's not a 'string'`)
}

func TestLocationFromFrame(t *testing.T) {
	assert.False(t, DefaultLocation().FromFrame())
	assert.True(t, FrameLocation(JWTFrameField("t")).FromFrame())
}
