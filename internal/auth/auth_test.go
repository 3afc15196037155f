package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/pitchperfect/waitlist/internal/config"
)

func testConfig() config.AuthConfig {
	return config.AuthConfig{
		Enabled:            true,
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		AllowedDomain:      "pitchperfect.io",
		BaseURL:            "http://localhost:8080/",
		CookieName:         "waitlist_session",
		CookieMaxAge:       3600,
	}
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	am, err := NewManager(testConfig())
	require.NoError(t, err)
	return am
}

func actorHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(Actor(r)))
	})
}

func TestNewManager_RequiresClientAndDomain(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedDomain = ""
	_, err := NewManager(cfg)
	assert.Error(t, err)

	cfg.Enabled = false
	am, err := NewManager(cfg)
	require.NoError(t, err)
	assert.False(t, am.Enabled())

	am = newManager(t)
	assert.Equal(t, "http://localhost:8080/auth/callback", am.oauth2Config.RedirectURL)
}

func TestRequireAuth_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	am, err := NewManager(cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	am.RequireAuth(actorHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DevActor, rec.Body.String())
}

func TestRequireAuth_RejectsMissingSession(t *testing.T) {
	am := newManager(t)

	rec := httptest.NewRecorder()
	am.RequireAuth(actorHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.AddCookie(&http.Cookie{Name: "waitlist_session", Value: "forged"})
	rec = httptest.NewRecorder()
	am.RequireAuth(actorHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_SessionSetsActor(t *testing.T) {
	am := newManager(t)
	id, err := am.createSession(&GoogleUserInfo{ID: "u1", Email: "Ops@PitchPerfect.io", VerifiedEmail: true})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.AddCookie(&http.Cookie{Name: "waitlist_session", Value: id})
	rec := httptest.NewRecorder()
	am.RequireAuth(actorHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops@pitchperfect.io", rec.Body.String())
}

func TestGetSession_Expired(t *testing.T) {
	am := newManager(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	am.now = func() time.Time { return base }
	id, err := am.createSession(&GoogleUserInfo{Email: "ops@pitchperfect.io", VerifiedEmail: true})
	require.NoError(t, err)

	am.now = func() time.Time { return base.Add(2 * time.Hour) }
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "waitlist_session", Value: id})
	assert.Nil(t, am.GetSession(req))
	assert.Empty(t, am.sessions)
}

func TestRemoveExpired(t *testing.T) {
	am := newManager(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	am.now = func() time.Time { return base }
	_, err := am.createSession(&GoogleUserInfo{Email: "a@pitchperfect.io"})
	require.NoError(t, err)

	assert.Equal(t, 0, am.removeExpired())
	am.now = func() time.Time { return base.Add(2 * time.Hour) }
	assert.Equal(t, 1, am.removeExpired())
}

func TestAllowed(t *testing.T) {
	am := newManager(t)
	assert.True(t, am.allowed(&GoogleUserInfo{Email: "ops@PitchPerfect.io", VerifiedEmail: true}))
	assert.False(t, am.allowed(&GoogleUserInfo{Email: "ops@pitchperfect.io", VerifiedEmail: false}))
	assert.False(t, am.allowed(&GoogleUserInfo{Email: "ops@evil.io", VerifiedEmail: true}))
	assert.False(t, am.allowed(&GoogleUserInfo{Email: "ops@pitchperfect.io.evil.io", VerifiedEmail: true}))
}

func TestHandleLogin_SetsStateAndRedirects(t *testing.T) {
	am := newManager(t)
	rec := httptest.NewRecorder()
	am.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "accounts.google.com")
	assert.Contains(t, loc, "hd=pitchperfect.io")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, stateCookie, cookies[0].Name)
	assert.Contains(t, loc, "state="+cookies[0].Value[:8])
}

func TestHandleCallback_StateMismatch(t *testing.T) {
	am := newManager(t)
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=abc&code=x", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "other"})
	rec := httptest.NewRecorder()
	am.HandleCallback(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/?error=invalid_state", rec.Header().Get("Location"))
	assert.Empty(t, am.sessions)
}

func fakeGoogle(t *testing.T, email string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"42","email":"` + email + `","verified_email":true,"name":"Ops"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func callbackRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=s1&code=c1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s1"})
	return req
}

func TestHandleCallback_CreatesSession(t *testing.T) {
	srv := fakeGoogle(t, "ops@pitchperfect.io")
	am := newManager(t)
	am.oauth2Config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	am.userInfoURL = srv.URL + "/userinfo"

	rec := httptest.NewRecorder()
	am.HandleCallback(rec, callbackRequest())
	assert.Equal(t, "/", rec.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "waitlist_session" {
			session = c
		}
	}
	require.NotNil(t, session)

	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	am.HandleUserInfo(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"ops@pitchperfect.io"`)

	rec = httptest.NewRecorder()
	am.HandleLogout(rec, req)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Nil(t, am.GetSession(req))
}

func TestHandleCallback_RejectsOtherDomain(t *testing.T) {
	srv := fakeGoogle(t, "someone@gmail.com")
	am := newManager(t)
	am.oauth2Config.Endpoint = oauth2.Endpoint{TokenURL: srv.URL + "/token"}
	am.userInfoURL = srv.URL + "/userinfo"

	rec := httptest.NewRecorder()
	am.HandleCallback(rec, callbackRequest())
	assert.Equal(t, "/?error=domain_not_allowed", rec.Header().Get("Location"))
	assert.Empty(t, am.sessions)
}

func TestValidateCredentials(t *testing.T) {
	cases := map[string]bool{
		`{"error":"invalid_grant"}`:  true,
		`{"error":"invalid_client"}`: false,
		`{"error":"weird"}`:          false,
	}
	for body, ok := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(body))
		}))
		am := newManager(t)
		am.oauth2Config.Endpoint.TokenURL = srv.URL
		err := am.ValidateCredentials(context.Background())
		srv.Close()
		if ok {
			assert.NoError(t, err, body)
		} else {
			assert.Error(t, err, body)
			assert.True(t, strings.Contains(err.Error(), "invalid_client") || strings.Contains(err.Error(), "unexpected"))
		}
	}
}
