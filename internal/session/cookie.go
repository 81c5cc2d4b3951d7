package session

import (
	"net/http"
	"net/url"
	"regexp"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/tidwall/gjson"
)

// authCookie matches the session cookie written by the auth provider,
// e.g. sb-abcdefgh-auth-token.
var authCookie = regexp.MustCompile(`^sb-[^=]+-auth-token$`)

var signatureAlgorithms = []jose.SignatureAlgorithm{
	jose.HS256, jose.HS384, jose.HS512,
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.EdDSA,
}

type claims struct {
	Email        string `json:"email"`
	UserMetadata struct {
		Email string `json:"email"`
	} `json:"user_metadata"`
}

// EmailFromRequest reads the signed-in user's email from the auth provider's
// session cookie without calling the provider. The token signature is NOT
// verified, so the result is only fit for display.
//
// signedIn reports whether a session cookie is present at all; the email is
// empty when the cookie cannot be decoded or carries no email claim.
func EmailFromRequest(r *http.Request) (email string, signedIn bool) {
	for _, c := range r.Cookies() {
		if !authCookie.MatchString(c.Name) {
			continue
		}
		raw, err := url.PathUnescape(c.Value)
		if err != nil {
			return "", true
		}
		email, _ := emailFromToken(accessToken(raw))
		return email, true
	}
	return "", false
}

// accessToken accepts either a JSON session object or a bare token.
func accessToken(raw string) string {
	if !gjson.Valid(raw) {
		return raw
	}
	session := gjson.Parse(raw)
	if !session.IsObject() {
		return raw
	}
	if tok := session.Get("access_token").String(); tok != "" {
		return tok
	}
	return session.Get("currentSession.access_token").String()
}

func emailFromToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	parsed, err := jwt.ParseSigned(token, signatureAlgorithms)
	if err != nil {
		return "", false
	}

	var c claims
	if err := parsed.UnsafeClaimsWithoutVerification(&c); err != nil {
		return "", false
	}

	switch {
	case c.Email != "":
		return c.Email, true
	case c.UserMetadata.Email != "":
		return c.UserMetadata.Email, true
	}
	return "", false
}
