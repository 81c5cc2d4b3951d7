package session

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte("0123456789abcdef0123456789abcdef")},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(t, err)

	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	require.NoError(t, err)
	return token
}

func requestWithCookie(name, value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	r.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
	if name != "" {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return r
}

func TestEmailFromRequest(t *testing.T) {
	token := signToken(t, map[string]any{"sub": "42", "email": "ada@example.com"})
	metaToken := signToken(t, map[string]any{"sub": "43", "user_metadata": map[string]any{"email": "grace@example.com"}})
	noEmail := signToken(t, map[string]any{"sub": "44"})

	tests := []struct {
		name     string
		cookie   string
		value    string
		want     string
		signedIn bool
	}{
		{
			name:     "json session with access_token",
			cookie:   "sb-abcd-auth-token",
			value:    url.PathEscape(`{"access_token":"` + token + `","token_type":"bearer"}`),
			want:     "ada@example.com",
			signedIn: true,
		},
		{
			name:     "json session with currentSession",
			cookie:   "sb-abcd-auth-token",
			value:    url.PathEscape(`{"currentSession":{"access_token":"` + token + `"}}`),
			want:     "ada@example.com",
			signedIn: true,
		},
		{
			name:     "raw token",
			cookie:   "sb-project-ref-auth-token",
			value:    token,
			want:     "ada@example.com",
			signedIn: true,
		},
		{
			name:     "email from user_metadata",
			cookie:   "sb-abcd-auth-token",
			value:    metaToken,
			want:     "grace@example.com",
			signedIn: true,
		},
		{name: "token without email", cookie: "sb-abcd-auth-token", value: noEmail, signedIn: true},
		{name: "json without token", cookie: "sb-abcd-auth-token", value: url.PathEscape(`{"provider_token":"x"}`), signedIn: true},
		{name: "garbage token", cookie: "sb-abcd-auth-token", value: "not.a.jwt", signedIn: true},
		{name: "bad escape", cookie: "sb-abcd-auth-token", value: "%zz", signedIn: true},
		{name: "other cookie name", cookie: "sb-auth-token", value: token},
		{name: "no cookie"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, signedIn := EmailFromRequest(requestWithCookie(tt.cookie, tt.value))
			assert.Equal(t, tt.signedIn, signedIn)
			assert.Equal(t, tt.want, email)
		})
	}
}
