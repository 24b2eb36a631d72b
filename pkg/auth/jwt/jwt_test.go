package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rhuss/mediscribe/pkg/auth"
)

// testKeyPair holds the RSA key pair used throughout the tests.
var testKeyPair *rsa.PrivateKey

func init() {
	var err error
	testKeyPair, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(fmt.Sprintf("generating test RSA key: %v", err))
	}
}

const (
	testKID    = "test-key-1"
	testSecret = "sk_test_identity_secret"
	testIssuer = "https://clerk.example.com"
)

// jwksHandler serves the test public key as a JWKS and counts fetches.
func jwksHandler(fetchCount *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fetchCount != nil {
			fetchCount.Add(1)
		}

		pubKey := testKeyPair.PublicKey
		jwks := map[string]interface{}{
			"keys": []map[string]string{
				{
					"kty": "RSA",
					"kid": testKID,
					"use": "sig",
					"n":   base64.RawURLEncoding.EncodeToString(pubKey.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pubKey.E)).Bytes()),
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(jwks)
	}
}

// validClaims returns claims that pass issuer and expiry checks.
func validClaims(sub string) jwtlib.MapClaims {
	return jwtlib.MapClaims{
		"sub": sub,
		"iss": testIssuer,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
}

// signRSA creates a JWT signed with the test private key.
func signRSA(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	token.Header["kid"] = testKID

	tokenStr, err := token.SignedString(testKeyPair)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return tokenStr
}

// signHMAC creates a JWT signed with the given shared secret.
func signHMAC(t *testing.T, secret string, claims jwtlib.MapClaims) string {
	t.Helper()
	tokenStr, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return tokenStr
}

// newJWKSAuthenticator creates a test JWKS server and an RSA-only authenticator.
func newJWKSAuthenticator(t *testing.T, cfgOverride func(*Config), fetchCount *atomic.Int32) *Authenticator {
	t.Helper()

	server := httptest.NewServer(jwksHandler(fetchCount))
	t.Cleanup(server.Close)

	cfg := Config{
		Issuer:   testIssuer,
		JWKSURL:  server.URL + "/.well-known/jwks.json",
		CacheTTL: 1 * time.Hour,
	}
	if cfgOverride != nil {
		cfgOverride(&cfg)
	}

	authn, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return authn
}

// newSecretAuthenticator creates an HMAC-only authenticator.
func newSecretAuthenticator(t *testing.T, cfgOverride func(*Config)) *Authenticator {
	t.Helper()

	cfg := Config{
		Secret:        testSecret,
		Issuer:        testIssuer,
		SessionCookie: auth.DefaultSessionCookie,
	}
	if cfgOverride != nil {
		cfgOverride(&cfg)
	}

	authn, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return authn
}

func bearerRequest(token string) *http.Request {
	r := httptest.NewRequest("POST", "/api/consultation", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestJWT_NewRequiresKeySource(t *testing.T) {
	_, err := New(Config{Issuer: testIssuer})
	if !errors.Is(err, ErrNoKeySource) {
		t.Fatalf("err = %v, want ErrNoKeySource", err)
	}
}

func TestJWT_ValidRSAToken(t *testing.T) {
	authn := newJWKSAuthenticator(t, nil, nil)
	token := signRSA(t, validClaims("user_123"))

	result := authn.Authenticate(context.Background(), bearerRequest(token))

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes; err=%v", result.Decision, result.Err)
	}
	if result.Identity.Subject != "user_123" {
		t.Errorf("Subject = %q, want %q", result.Identity.Subject, "user_123")
	}
}

func TestJWT_ValidHMACToken(t *testing.T) {
	authn := newSecretAuthenticator(t, nil)
	claims := validClaims("user_456")
	claims["sid"] = "sess_abc"
	token := signHMAC(t, testSecret, claims)

	result := authn.Authenticate(context.Background(), bearerRequest(token))

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes; err=%v", result.Decision, result.Err)
	}
	if result.Identity.Subject != "user_456" {
		t.Errorf("Subject = %q, want %q", result.Identity.Subject, "user_456")
	}
	if got := result.Identity.Metadata["session_id"]; got != "sess_abc" {
		t.Errorf("session_id = %q, want %q", got, "sess_abc")
	}
}

func TestJWT_SessionCookieFallback(t *testing.T) {
	authn := newSecretAuthenticator(t, nil)
	token := signHMAC(t, testSecret, validClaims("user_789"))

	r := httptest.NewRequest("POST", "/api/consultation", nil)
	r.AddCookie(&http.Cookie{Name: auth.DefaultSessionCookie, Value: token})

	result := authn.Authenticate(context.Background(), r)
	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes; err=%v", result.Decision, result.Err)
	}
	if result.Identity.Subject != "user_789" {
		t.Errorf("Subject = %q, want %q", result.Identity.Subject, "user_789")
	}
}

func TestJWT_SessionCookieDisabled(t *testing.T) {
	authn := newSecretAuthenticator(t, func(c *Config) { c.SessionCookie = "" })
	token := signHMAC(t, testSecret, validClaims("user_789"))

	r := httptest.NewRequest("POST", "/api/consultation", nil)
	r.AddCookie(&http.Cookie{Name: auth.DefaultSessionCookie, Value: token})

	result := authn.Authenticate(context.Background(), r)
	if result.Decision != auth.Abstain {
		t.Fatalf("Decision = %d, want Abstain", result.Decision)
	}
}

func TestJWT_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"expired", func(t *testing.T) string {
			c := validClaims("user_1")
			c["exp"] = time.Now().Add(-1 * time.Hour).Unix()
			return signHMAC(t, testSecret, c)
		}},
		{"missing exp", func(t *testing.T) string {
			c := validClaims("user_1")
			delete(c, "exp")
			return signHMAC(t, testSecret, c)
		}},
		{"wrong secret", func(t *testing.T) string {
			return signHMAC(t, "some-other-secret", validClaims("user_1"))
		}},
		{"wrong issuer", func(t *testing.T) string {
			c := validClaims("user_1")
			c["iss"] = "https://evil.example.com"
			return signHMAC(t, testSecret, c)
		}},
		{"missing subject", func(t *testing.T) string {
			c := validClaims("")
			delete(c, "sub")
			return signHMAC(t, testSecret, c)
		}},
		{"RSA token without JWKS", func(t *testing.T) string {
			return signRSA(t, validClaims("user_1"))
		}},
		{"malformed", func(t *testing.T) string {
			return "not.a.jwt"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authn := newSecretAuthenticator(t, nil)
			result := authn.Authenticate(context.Background(), bearerRequest(tt.token(t)))
			if result.Decision != auth.No {
				t.Fatalf("Decision = %d, want No", result.Decision)
			}
			if result.Err == nil {
				t.Error("Err = nil, want rejection reason")
			}
		})
	}
}

func TestJWT_EmptyBearer(t *testing.T) {
	authn := newSecretAuthenticator(t, nil)
	r := httptest.NewRequest("POST", "/api/consultation", nil)
	r.Header.Set("Authorization", "Bearer ")

	result := authn.Authenticate(context.Background(), r)
	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No", result.Decision)
	}
	if !errors.Is(result.Err, auth.ErrEmptyCredential) {
		t.Errorf("Err = %v, want ErrEmptyCredential", result.Err)
	}
}

func TestJWT_NoCredentialAbstains(t *testing.T) {
	authn := newSecretAuthenticator(t, nil)
	r := httptest.NewRequest("POST", "/api/consultation", nil)

	result := authn.Authenticate(context.Background(), r)
	if result.Decision != auth.Abstain {
		t.Fatalf("Decision = %d, want Abstain", result.Decision)
	}
}

func TestJWT_WrongAudience(t *testing.T) {
	authn := newJWKSAuthenticator(t, func(c *Config) { c.Audience = "mediscribe" }, nil)
	claims := validClaims("user_123")
	claims["aud"] = "other-api"

	result := authn.Authenticate(context.Background(), bearerRequest(signRSA(t, claims)))
	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No (wrong audience)", result.Decision)
	}
}

func TestJWT_ScopesExtraction(t *testing.T) {
	tests := []struct {
		name  string
		scope interface{}
		want  []string
	}{
		{"space-separated string", "read write admin", []string{"read", "write", "admin"}},
		{"json array", []interface{}{"read", "write"}, []string{"read", "write"}},
		{"empty string", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authn := newJWKSAuthenticator(t, nil, nil)
			claims := validClaims("user_123")
			claims["scope"] = tt.scope

			result := authn.Authenticate(context.Background(), bearerRequest(signRSA(t, claims)))
			if result.Decision != auth.Yes {
				t.Fatalf("Decision = %d, want Yes; err=%v", result.Decision, result.Err)
			}
			if len(result.Identity.Scopes) != len(tt.want) {
				t.Fatalf("Scopes = %v, want %v", result.Identity.Scopes, tt.want)
			}
			for i, s := range tt.want {
				if result.Identity.Scopes[i] != s {
					t.Errorf("Scopes[%d] = %q, want %q", i, result.Identity.Scopes[i], s)
				}
			}
		})
	}
}

func TestJWT_CustomUserClaim(t *testing.T) {
	authn := newSecretAuthenticator(t, func(c *Config) { c.UserClaim = "user_id" })
	claims := validClaims("ignored")
	claims["user_id"] = "custom-user"

	result := authn.Authenticate(context.Background(), bearerRequest(signHMAC(t, testSecret, claims)))
	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes; err=%v", result.Decision, result.Err)
	}
	if result.Identity.Subject != "custom-user" {
		t.Errorf("Subject = %q, want %q", result.Identity.Subject, "custom-user")
	}
}

func TestJWT_JWKSCaching(t *testing.T) {
	var fetchCount atomic.Int32
	authn := newJWKSAuthenticator(t, nil, &fetchCount)
	token := signRSA(t, validClaims("user_123"))

	for i := 0; i < 5; i++ {
		result := authn.Authenticate(context.Background(), bearerRequest(token))
		if result.Decision != auth.Yes {
			t.Fatalf("request %d: Decision = %d, want Yes; err=%v", i, result.Decision, result.Err)
		}
	}

	if count := fetchCount.Load(); count != 1 {
		t.Errorf("JWKS fetch count = %d, want 1 (caching broken)", count)
	}
}

func TestJWT_BothKeySources(t *testing.T) {
	authn := newJWKSAuthenticator(t, func(c *Config) { c.Secret = testSecret }, nil)

	for name, token := range map[string]string{
		"rsa":  signRSA(t, validClaims("rsa-user")),
		"hmac": signHMAC(t, testSecret, validClaims("hmac-user")),
	} {
		result := authn.Authenticate(context.Background(), bearerRequest(token))
		if result.Decision != auth.Yes {
			t.Errorf("%s: Decision = %d, want Yes; err=%v", name, result.Decision, result.Err)
		}
	}
}
