package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"horizonx-console/internal/adapters/http/middleware"
	redisstore "horizonx-console/internal/adapters/redis"
	"horizonx-console/internal/config"
	"horizonx-console/internal/domain"
	"horizonx-console/internal/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthClient struct {
	mu      sync.Mutex
	calls   []domain.Credentials
	session *domain.Session
	err     error

	// onCall, when set, answers instead of session and err.
	onCall func(ctx context.Context, call int) (*domain.Session, error)
}

func (f *fakeAuthClient) Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, creds)
	if f.onCall != nil {
		return f.onCall(ctx, len(f.calls))
	}
	return f.session, f.err
}

type consoleTest struct {
	handler http.Handler
	store   *redisstore.SessionStore
	auth    *fakeAuthClient
	cookies []*http.Cookie
	csrf    string
	sid     string
}

func newConsoleTest(t *testing.T, auth *fakeAuthClient) *consoleTest {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{SessionTTL: time.Hour}
	log := logger.Discard()
	store := redisstore.NewSessionStore(rdb, "console:session", time.Hour)

	pages, err := NewPages()
	require.NoError(t, err)

	handler := NewConsoleRouter(cfg, log, &ConsoleDeps{
		Login:    NewLoginHandler(store, auth, pages, cfg, log, time.Minute),
		Home:     NewHomeHandler(store, pages, cfg, log),
		Live:     http.NotFoundHandler(),
		Sessions: store,
	})

	ct := &consoleTest{handler: handler, store: store, auth: auth}

	rec := ct.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	ct.cookies = rec.Result().Cookies()
	for _, c := range ct.cookies {
		switch c.Name {
		case middleware.CSRFCookieName:
			ct.csrf = c.Value
		case middleware.SessionCookieName:
			ct.sid = c.Value
		}
	}
	require.NotEmpty(t, ct.csrf)
	require.NotEmpty(t, ct.sid)

	return ct
}

func (ct *consoleTest) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range ct.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ct.handler.ServeHTTP(rec, req)
	return rec
}

// adopt applies the cookies a response set, the way a browser would.
func (ct *consoleTest) adopt(rec *httptest.ResponseRecorder) {
	for _, set := range rec.Result().Cookies() {
		replaced := false
		for i, c := range ct.cookies {
			if c.Name == set.Name {
				ct.cookies[i] = set
				replaced = true
			}
		}
		if !replaced {
			ct.cookies = append(ct.cookies, set)
		}
		if set.Name == middleware.SessionCookieName {
			ct.sid = set.Value
		}
	}
}

func (ct *consoleTest) postLogin(email, password string) *httptest.ResponseRecorder {
	return ct.postLoginContext(context.Background(), email, password)
}

func (ct *consoleTest) postLoginContext(ctx context.Context, email, password string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("csrf_token", ct.csrf)
	form.Set("email", email)
	form.Set("password", password)

	req := httptest.NewRequestWithContext(ctx, http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ct.do(req)
}

func adaSession() *domain.Session {
	return &domain.Session{
		User: &domain.User{
			ID:    1,
			Name:  "Ada Lovelace",
			Email: "ada@example.com",
			Role:  &domain.Role{ID: 1, Name: "admin"},
		},
		AccessToken: "token",
	}
}

func TestShowLoginRendersForm(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{})

	rec := ct.do(httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="login-form"`)
	assert.Contains(t, body, `value="`+ct.csrf+`"`)
	assert.Contains(t, body, `href="/register"`)
	assert.NotContains(t, body, "field is required")
}

func TestSubmitLoginRequiresCSRF(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{})
	ct.csrf = "forged"

	rec := ct.postLogin("ada@example.com", "secret1")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, ct.auth.calls)
}

func TestSubmitLoginInvalidFormSkipsCall(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{})

	rec := ct.postLogin("not-an-email", "123")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "The Email must be a valid email address.")
	assert.Contains(t, body, "The Password must be at least 6 characters.")
	assert.Empty(t, ct.auth.calls)
}

func TestSubmitLoginSuccessStoresSessionAndRedirects(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{session: adaSession()})

	rec := ct.postLogin("ada@example.com", "secret1")

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.Len(t, ct.auth.calls, 1)
	assert.Equal(t, domain.Credentials{Email: "ada@example.com", Password: "secret1"}, ct.auth.calls[0])

	preLoginID := ct.sid
	ct.adopt(rec)
	assert.NotEqual(t, preLoginID, ct.sid, "session id is rotated on sign in")

	session, err := ct.store.Get(context.Background(), ct.sid)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", session.User.Email)

	home := ct.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), "Welcome, Ada Lovelace")

	again := ct.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusSeeOther, again.Code)
	assert.Equal(t, "/", again.Header().Get("Location"))
}

func TestSubmitLoginPreLoginIDDoesNotSignIn(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{session: adaSession()})
	planted := append([]*http.Cookie(nil), ct.cookies...)

	rec := ct.postLogin("ada@example.com", "secret1")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	ct.cookies = planted
	home := ct.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, home.Code)
	assert.Equal(t, "/login", home.Header().Get("Location"))
}

func TestSubmitLoginRetryAfterClientWentAway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auth := &fakeAuthClient{onCall: func(callCtx context.Context, call int) (*domain.Session, error) {
		if call == 1 {
			cancel()
			return nil, callCtx.Err()
		}
		return adaSession(), nil
	}}
	ct := newConsoleTest(t, auth)

	first := ct.postLoginContext(ctx, "ada@example.com", "secret1")
	assert.Equal(t, http.StatusBadGateway, first.Code)

	retry := ct.postLogin("ada@example.com", "secret1")
	assert.Equal(t, http.StatusSeeOther, retry.Code)
	assert.Len(t, auth.calls, 2)
}

func TestRebindSwapsSessionCookie(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{})
	ctx := context.Background()

	newID := "6b0e7a8c-1f2d-4c3b-9a8e-7d6c5b4a3f21"
	require.NoError(t, ct.store.For(ct.sid).SetCurrentUser(ctx, adaSession()))
	require.NoError(t, ct.store.Rotate(ctx, ct.sid, newID))
	token, err := ct.store.IssueRebind(ctx, ct.sid, newID, time.Minute)
	require.NoError(t, err)

	rec := ct.do(httptest.NewRequest(http.MethodGet, domain.RebindPath+"?token="+token, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	ct.adopt(rec)
	assert.Equal(t, newID, ct.sid)

	home := ct.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, home.Code)

	replay := ct.do(httptest.NewRequest(http.MethodGet, domain.RebindPath+"?token="+token, nil))
	assert.Equal(t, "/login", replay.Header().Get("Location"))
}

func TestSubmitLoginRejected(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{
		err: &domain.APIError{StatusCode: http.StatusUnauthorized, Message: "invalid credentials"},
	})

	rec := ct.postLogin("ada@example.com", "wrong-pass")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Invalid email or password.")
	assert.Contains(t, body, `value="ada@example.com"`)
	assert.NotContains(t, body, "wrong-pass")

	_, err := ct.store.Get(context.Background(), ct.sid)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSubmitLoginWhileInFlight(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{session: adaSession()})

	acquired, err := ct.store.Acquire(context.Background(), ct.sid, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	rec := ct.postLogin("ada@example.com", "secret1")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "A sign in request is already in progress.")
	assert.Empty(t, ct.auth.calls)
}

func TestSubmitLoginUpstreamFailure(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{
		err: &domain.APIError{StatusCode: http.StatusServiceUnavailable},
	})

	rec := ct.postLogin("ada@example.com", "secret1")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in failed (status 503).")
}

func TestValidateField(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{})

	req := httptest.NewRequest(http.MethodPost, "/login/validate", strings.NewReader(`{"field":"email","value":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CSRFHeaderName, ct.csrf)
	rec := ct.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"name":"email","label":"Email","error":"The Email must be a valid email address.","invalid":true,"touched":true}}`, rec.Body.String())
}

func TestValidateUnknownField(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{})

	req := httptest.NewRequest(http.MethodPost, "/login/validate", strings.NewReader(`{"field":"username","value":"x"}`))
	req.Header.Set(middleware.CSRFHeaderName, ct.csrf)
	rec := ct.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHomeRequiresSession(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{})

	rec := ct.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLogoutDropsSession(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{session: adaSession()})
	login := ct.postLogin("ada@example.com", "secret1")
	require.Equal(t, http.StatusSeeOther, login.Code)
	ct.adopt(login)

	form := url.Values{"csrf_token": {ct.csrf}}
	req := httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := ct.do(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	_, err := ct.store.Get(context.Background(), ct.sid)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRegisterLinksBackToLogin(t *testing.T) {
	ct := newConsoleTest(t, &fakeAuthClient{})

	rec := ct.do(httptest.NewRequest(http.MethodGet, "/register", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/login"`)
}
