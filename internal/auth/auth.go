package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/pitchperfect/waitlist/internal/config"
	"github.com/pitchperfect/waitlist/internal/pkg/httpretry"
	"github.com/pitchperfect/waitlist/internal/pkg/httputil"
	"github.com/pitchperfect/waitlist/internal/pkg/logger"
)

// DevActor is the author recorded for admin actions when auth is disabled.
const DevActor = "admin"

const (
	stateCookie    = "oauth_state"
	googleUserInfo = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleUserInfo represents the user info returned by Google
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	HD            string `json:"hd"` // Hosted domain (Workspace domain)
}

// Session represents an authenticated admin session
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ctxKey struct{}

// Manager handles Google OAuth login for the admin console and keeps
// sessions in memory.
type Manager struct {
	cfg          config.AuthConfig
	oauth2Config *oauth2.Config
	userInfoURL  string
	httpClient   httpretry.HTTPDoer
	sessions     map[string]*Session
	sessionMu    sync.RWMutex
	now          func() time.Time
}

// NewManager creates an authentication manager. When auth is enabled a
// client ID and an allowed domain are required.
func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.Enabled && (cfg.GoogleClientID == "" || cfg.AllowedDomain == "") {
		return nil, errors.New("auth enabled but google_client_id or allowed_domain is missing")
	}
	return &Manager{
		cfg: cfg,
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  strings.TrimRight(cfg.BaseURL, "/") + "/auth/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfo,
		httpClient:  httpretry.New(&http.Client{Timeout: 10 * time.Second}, 2),
		sessions:    make(map[string]*Session),
		now:         time.Now,
	}, nil
}

// Enabled reports whether admin routes require a login.
func (am *Manager) Enabled() bool { return am.cfg.Enabled }

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// HandleLogin initiates the Google OAuth flow
func (am *Manager) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomToken()
	if err != nil {
		httputil.InternalError(w, fmt.Errorf("generate oauth state: %w", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// hd narrows Google's account chooser to the allowed domain.
	target := am.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("hd", am.cfg.AllowedDomain))
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func failRedirect(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(reason), http.StatusTemporaryRedirect)
}

// HandleCallback processes the OAuth callback from Google
func (am *Manager) HandleCallback(w http.ResponseWriter, r *http.Request) {
	sc, err := r.Cookie(stateCookie)
	if err != nil || r.URL.Query().Get("state") != sc.Value {
		logger.Warn("oauth state mismatch")
		failRedirect(w, r, "invalid_state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		logger.Warn("google returned oauth error", "error", errMsg)
		failRedirect(w, r, errMsg)
		return
	}

	token, err := am.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		logger.Error("oauth code exchange failed", "error", err)
		failRedirect(w, r, "exchange_failed")
		return
	}

	info, err := am.getUserInfo(r.Context(), token)
	if err != nil {
		logger.Error("google userinfo failed", "error", err)
		failRedirect(w, r, "userinfo_failed")
		return
	}

	if !am.allowed(info) {
		logger.Warn("admin login rejected", "email", info.Email, "allowed_domain", am.cfg.AllowedDomain)
		failRedirect(w, r, "domain_not_allowed")
		return
	}

	sessionID, err := am.createSession(info)
	if err != nil {
		logger.Error("create session failed", "error", err)
		failRedirect(w, r, "session_failed")
		return
	}
	logger.Info("admin logged in", "email", info.Email)

	http.SetCookie(w, &http.Cookie{
		Name:     am.cfg.CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   am.cfg.CookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func (am *Manager) allowed(info *GoogleUserInfo) bool {
	if !info.VerifiedEmail {
		return false
	}
	_, domain, ok := strings.Cut(info.Email, "@")
	return ok && strings.EqualFold(domain, am.cfg.AllowedDomain)
}

func (am *Manager) createSession(info *GoogleUserInfo) (string, error) {
	id, err := randomToken()
	if err != nil {
		return "", err
	}
	now := am.now()
	am.sessionMu.Lock()
	am.sessions[id] = &Session{
		UserID:    info.ID,
		Email:     strings.ToLower(info.Email),
		Name:      info.Name,
		Picture:   info.Picture,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(am.cfg.CookieMaxAge) * time.Second),
	}
	am.sessionMu.Unlock()
	return id, nil
}

// HandleLogout logs out the user
func (am *Manager) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(am.cfg.CookieName); err == nil {
		am.sessionMu.Lock()
		delete(am.sessions, cookie.Value)
		am.sessionMu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: am.cfg.CookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// HandleUserInfo returns the current admin as JSON
func (am *Manager) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	if !am.cfg.Enabled {
		httputil.OK(w, map[string]any{"authenticated": true, "user": map[string]string{"email": DevActor}})
		return
	}
	session := am.GetSession(r)
	if session == nil {
		httputil.JSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
		return
	}
	httputil.OK(w, map[string]any{
		"authenticated": true,
		"user": map[string]string{
			"id":      session.UserID,
			"email":   session.Email,
			"name":    session.Name,
			"picture": session.Picture,
		},
	})
}

// GetSession returns the session for the current request, or nil if not authenticated
func (am *Manager) GetSession(r *http.Request) *Session {
	cookie, err := r.Cookie(am.cfg.CookieName)
	if err != nil {
		return nil
	}

	am.sessionMu.RLock()
	session, exists := am.sessions[cookie.Value]
	am.sessionMu.RUnlock()
	if !exists {
		return nil
	}

	if am.now().After(session.ExpiresAt) {
		am.sessionMu.Lock()
		delete(am.sessions, cookie.Value)
		am.sessionMu.Unlock()
		return nil
	}
	return session
}

// RequireAuth is middleware for admin routes. Unauthenticated requests get
// a 401 JSON error. The session is stored in the request context for Actor.
func (am *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !am.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}
		session := am.GetSession(r)
		if session == nil {
			httputil.Unauthorized(w, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, session)))
	})
}

// Actor returns the email of the admin making the request, or DevActor
// when auth is disabled.
func Actor(r *http.Request) string {
	if s, ok := r.Context().Value(ctxKey{}).(*Session); ok {
		return s.Email
	}
	return DevActor
}

func (am *Manager) getUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, am.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build user info request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := am.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google API error (HTTP %d): %s", resp.StatusCode, body)
	}

	var info GoogleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse user info: %w", err)
	}
	return &info, nil
}

// ValidateCredentials probes Google's token endpoint with a dummy code so
// rotated OAuth credentials are caught at boot instead of at first login.
// Google answers invalid_grant for a good client and invalid_client for a
// bad one.
func (am *Manager) ValidateCredentials(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {"validation_probe"},
		"client_id":     {am.oauth2Config.ClientID},
		"client_secret": {am.oauth2Config.ClientSecret},
		"redirect_uri":  {am.oauth2Config.RedirectURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, am.oauth2Config.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := am.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	s := string(body)
	switch {
	case strings.Contains(s, "invalid_grant"), strings.Contains(s, "invalid_request"), strings.Contains(s, "redirect_uri_mismatch"):
		return nil
	case strings.Contains(s, "invalid_client"):
		return errors.New("google oauth credentials rejected (invalid_client)")
	default:
		return fmt.Errorf("unexpected response from google token endpoint (HTTP %d): %s", resp.StatusCode, s)
	}
}

// CleanupExpiredSessions removes expired sessions every interval until ctx
// is done.
func (am *Manager) CleanupExpiredSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				am.removeExpired()
			}
		}
	}()
}

func (am *Manager) removeExpired() int {
	am.sessionMu.Lock()
	defer am.sessionMu.Unlock()
	now := am.now()
	n := 0
	for id, session := range am.sessions {
		if now.After(session.ExpiresAt) {
			delete(am.sessions, id)
			n++
		}
	}
	return n
}
