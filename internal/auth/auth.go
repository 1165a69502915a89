package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Formentera-Operations/workflow-tracker/internal/config"

	"github.com/coreos/go-oidc"
	"golang.org/x/oauth2"
)

const (
	stateCookie   = "oauthstate"
	sessionCookie = "id_token"
	devEmail      = "dev@localhost"
)

var (
	// ErrInvalidCredentials is returned by SignIn when the provider rejects
	// the email/password pair or returns an unusable token.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrForbidden is returned when a signed-in user is not an admin.
	ErrForbidden = errors.New("user is not an administrator")
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Auth contains configuration and helpers for performing OpenID Connect
// authentication against the configured identity provider.
type Auth struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	apiVerifier  *oidc.IDTokenVerifier
	admins       map[string]bool
	logger       Logger
	devMode      bool
	authBypass   bool
}

// New creates a new Auth object using values from the application
// configuration. It establishes a connection to the provider and prepares
// the ID token verifiers. In DEV with dev_mode_bypass set no provider is
// contacted and every request runs as dev@localhost.
func New(ctx context.Context, cfg *config.Config, logger Logger) (*Auth, error) {
	isDev := cfg.IsDev()
	shouldBypass := isDev && cfg.DevModeBypass

	a := &Auth{
		admins:     make(map[string]bool, len(cfg.Auth.AdminEmails)),
		logger:     logger,
		devMode:    isDev,
		authBypass: shouldBypass,
	}
	for _, e := range cfg.Auth.AdminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			a.admins[e] = true
		}
	}

	if shouldBypass {
		return a, nil
	}

	if cfg.Auth.Issuer == "" || cfg.Auth.ClientID == "" ||
		cfg.Auth.ClientSecret == "" || cfg.Auth.RedirectURL == "" {
		return nil, errors.New("auth configuration is incomplete")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Auth.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover identity provider: %w", err)
	}

	a.oauth2Config = &oauth2.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.Auth.RedirectURL,
		Scopes:       AllScopes,
	}

	a.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.Auth.ClientID})

	// Access tokens often carry a different audience (e.g. "api://default").
	a.apiVerifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})

	return a, nil
}

// SignIn exchanges an email and password for a verified ID token using the
// OAuth2 password grant. It returns the session and the raw token to store
// in the session cookie.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*Session, string, error) {
	if a.authBypass {
		return &Session{Subject: "dev", Email: devEmail}, "", nil
	}
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	token, err := a.oauth2Config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		a.logError("password sign-in failed", "email", email, "error", err)
		return nil, "", ErrInvalidCredentials
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, "", fmt.Errorf("%w: no id_token in token response", ErrInvalidCredentials)
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	session, err := a.sessionFromToken(idToken)
	if err != nil {
		return nil, "", err
	}
	return session, rawIDToken, nil
}

// PasswordLoginHandler handles POST /auth/login with a JSON body of
// {"email": "...", "password": "..."}. On success it sets the session cookie
// and returns the session as JSON.
func (a *Auth) PasswordLoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	session, rawIDToken, err := a.SignIn(r.Context(), strings.TrimSpace(creds.Email), creds.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		http.Error(w, "Failed to sign in", http.StatusUnauthorized)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	if rawIDToken != "" {
		setSessionCookie(w, r, rawIDToken)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// LoginHandler initiates the OAuth2 authorization code flow by redirecting the
// user to the provider's authorization endpoint. A random state value is
// stored in a cookie to mitigate CSRF attacks.
func (a *Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		HttpOnly: true,
		Path:     "/",
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler handles the redirect back from the provider. It verifies
// the state parameter, exchanges the code for tokens, validates the ID token,
// and sets a session cookie containing the raw ID token.
func (a *Auth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || r.URL.Query().Get("state") != cookie.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	token, err := a.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token in token response", http.StatusInternalServerError)
		return
	}

	idToken, err := a.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		http.Error(w, "failed to verify id token", http.StatusUnauthorized)
		return
	}
	if _, err := a.sessionFromToken(idToken); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	setSessionCookie(w, r, rawIDToken)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// RequireAuth is middleware that ensures a valid bearer token or ID token
// cookie is present and stores the caller's Session in the request context.
// Browsers without a session are redirected to the login page; other clients
// get a 401.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.authBypass {
			ctx := WithSession(r.Context(), &Session{Subject: "dev", Email: devEmail})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		var (
			token *oidc.IDToken
			err   error
		)

		// Check for Authorization header first (for Swagger/API clients)
		if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			rawToken := strings.TrimPrefix(authHeader, "Bearer ")
			token, err = a.apiVerifier.Verify(r.Context(), rawToken)
		} else {
			cookie, cookieErr := r.Cookie(sessionCookie)
			if cookieErr != nil {
				if strings.Contains(r.Header.Get("Accept"), "text/html") {
					http.Redirect(w, r, "/login", http.StatusSeeOther)
					return
				}
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			token, err = a.verifier.Verify(r.Context(), cookie.Value)
		}
		if err != nil {
			http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}

		session, err := a.sessionFromToken(token)
		if errors.Is(err, ErrForbidden) {
			a.logError("rejected non-admin user", "email", session.Email)
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// LogoutHandler clears the session cookie and redirects to the home page.
func (a *Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	SignOut(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SignOut expires the session cookie.
func SignOut(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// sessionFromToken extracts the caller's identity and applies the admin
// allowlist. The returned session is non-nil alongside ErrForbidden.
func (a *Auth) sessionFromToken(token *oidc.IDToken) (*Session, error) {
	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}
	if claims.Email == "" {
		return nil, errors.New("token has no email claim")
	}

	session := &Session{Subject: token.Subject, Email: claims.Email, Name: claims.Name}
	if len(a.admins) > 0 && !a.admins[strings.ToLower(claims.Email)] {
		return session, ErrForbidden
	}
	return session, nil
}

func (a *Auth) logError(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Error(msg, args...)
	}
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, rawIDToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    rawIDToken,
		HttpOnly: true,
		Path:     "/",
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
