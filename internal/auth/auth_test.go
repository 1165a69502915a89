package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Formentera-Operations/workflow-tracker/internal/config"

	"github.com/coreos/go-oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testIssuer   = "https://test-issuer.com"
	testClientID = "test-client"
)

// NoOpLogger for testing
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, args ...any) {}
func (l *NoOpLogger) Info(msg string, args ...any)  {}
func (l *NoOpLogger) Error(msg string, args ...any) {}

// MockKeySet satisfies oidc.KeySet to bypass signature verification
type MockKeySet struct{}

func (m *MockKeySet) VerifySignature(ctx context.Context, jwtToken string) ([]byte, error) {
	parts := strings.Split(jwtToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

func fakeToken(t *testing.T, email string) string {
	t.Helper()
	claims := map[string]interface{}{
		"iss":   testIssuer,
		"aud":   testClientID,
		"sub":   "user-" + email,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Add(-1 * time.Minute).Unix(),
		"email": email,
		"name":  "Test User",
	}
	headerData := map[string]interface{}{
		"alg": "RS256",
		"typ": "JWT",
		"kid": "test-key",
	}
	headerBytes, err := json.Marshal(headerData)
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(headerBytes) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("fakesignature"))
}

func testVerifier(skipClientID bool) *oidc.IDTokenVerifier {
	return oidc.NewVerifier(testIssuer, &MockKeySet{}, &oidc.Config{
		ClientID:          testClientID,
		SkipClientIDCheck: skipClientID,
	})
}

func newTestAuth(admins ...string) *Auth {
	a := &Auth{
		verifier:    testVerifier(false),
		apiVerifier: testVerifier(true),
		admins:      map[string]bool{},
		logger:      &NoOpLogger{},
	}
	for _, e := range admins {
		a.admins[e] = true
	}
	return a
}

func sessionEcho(t *testing.T, wantEmail string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFromContext(r.Context())
		assert.True(t, ok, "session should be in context")
		if ok {
			assert.Equal(t, wantEmail, s.Email)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_BearerToken(t *testing.T) {
	a := newTestAuth()
	req := httptest.NewRequest("GET", "/api/v1/workflows", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, "user@acme.com"))
	rec := httptest.NewRecorder()

	a.RequireAuth(sessionEcho(t, "user@acme.com")).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Logf("Response Body: %s", rec.Body.String())
	}
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_Cookie(t *testing.T) {
	a := newTestAuth()
	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: fakeToken(t, "admin@acme.com")})
	rec := httptest.NewRecorder()

	a.RequireAuth(sessionEcho(t, "admin@acme.com")).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	a := newTestAuth()
	req := httptest.NewRequest("GET", "/api/v1/workflows", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()

	a.RequireAuth(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_NoSession(t *testing.T) {
	a := newTestAuth()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run")
	})

	req := httptest.NewRequest("GET", "/api/v1/workflows", nil)
	rec := httptest.NewRecorder()
	a.RequireAuth(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec = httptest.NewRecorder()
	a.RequireAuth(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireAuth_AdminAllowlist(t *testing.T) {
	a := newTestAuth("ops@acme.com")

	req := httptest.NewRequest("GET", "/api/v1/workflows", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, "intern@acme.com"))
	rec := httptest.NewRecorder()
	a.RequireAuth(http.NotFoundHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest("GET", "/api/v1/workflows", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, "Ops@Acme.com"))
	rec = httptest.NewRecorder()
	a.RequireAuth(sessionEcho(t, "Ops@Acme.com")).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_BypassMode(t *testing.T) {
	cfg := &config.Config{
		Environment:   "DEV",
		DevModeBypass: true,
	}
	a, err := New(context.Background(), cfg, &NoOpLogger{})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/workflows", nil)
	rec := httptest.NewRecorder()

	a.RequireAuth(sessionEcho(t, "dev@localhost")).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_IncompleteConfig(t *testing.T) {
	cfg := &config.Config{Environment: "PROD", DevModeBypass: true}

	_, err := New(context.Background(), cfg, &NoOpLogger{})

	assert.EqualError(t, err, "auth configuration is incomplete")
}

func tokenServer(t *testing.T, email string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("password") != "correct horse" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     fakeToken(t, email),
		})
	}))
}

func TestSignIn_PasswordGrant(t *testing.T) {
	srv := tokenServer(t, "ops@acme.com")
	defer srv.Close()

	a := newTestAuth()
	a.oauth2Config = &oauth2.Config{
		ClientID:     testClientID,
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL},
		Scopes:       AllScopes,
	}

	session, raw, err := a.SignIn(context.Background(), "ops@acme.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ops@acme.com", session.Email)
	assert.Equal(t, "Test User", session.Name)
	assert.NotEmpty(t, raw)

	_, _, err = a.SignIn(context.Background(), "ops@acme.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = a.SignIn(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordLoginHandler(t *testing.T) {
	srv := tokenServer(t, "ops@acme.com")
	defer srv.Close()

	a := newTestAuth()
	a.oauth2Config = &oauth2.Config{
		ClientID: testClientID,
		Endpoint: oauth2.Endpoint{TokenURL: srv.URL},
	}

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"email":"ops@acme.com","password":"correct horse"}`))
	rec := httptest.NewRecorder()
	a.PasswordLoginHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req = httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"email":"ops@acme.com","password":"nope"}`))
	rec = httptest.NewRecorder()
	a.PasswordLoginHandler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestAuth().LogoutHandler(rec, httptest.NewRequest("GET", "/logout", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
