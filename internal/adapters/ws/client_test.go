package ws

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
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionID = "3f1c4ad4-58b4-4c2b-9d8e-0a4f6c1d2e3b"

type fakeAuth struct {
	mu      sync.Mutex
	calls   int
	session *domain.Session
	err     error
}

func (f *fakeAuth) Login(_ context.Context, _ domain.Credentials) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.session, f.err
}

func (f *fakeAuth) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stateMessage struct {
	Type  string `json:"type"`
	Path  string `json:"path"`
	State struct {
		Fields []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
			Error string `json:"error"`
		} `json:"fields"`
		Submittable bool   `json:"submittable"`
		CanSubmit   bool   `json:"can_submit"`
		Status      string `json:"status"`
		Failure     string `json:"failure"`
	} `json:"state"`
}

func newLiveTest(t *testing.T, auth *fakeAuth) (*websocket.Conn, *redisstore.SessionStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := redisstore.NewSessionStore(rdb, "console:session", time.Hour)

	cfg := &config.Config{SessionTTL: time.Hour}
	handler := NewLoginHandler(store, auth, logger.Discard(), nil, time.Minute)
	srv := httptest.NewServer(middleware.SessionID(cfg)(handler))
	t.Cleanup(srv.Close)

	header := http.Header{}
	header.Set("Cookie", middleware.SessionCookieName+"="+testSessionID)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn, store
}

func read(t *testing.T, conn *websocket.Conn) stateMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg stateMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg domain.WsClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func TestLiveLoginSuccess(t *testing.T) {
	auth := &fakeAuth{session: &domain.Session{
		User:        &domain.User{ID: 1, Name: "Ada", Email: "ada@example.com"},
		AccessToken: "token",
	}}
	conn, store := newLiveTest(t, auth)

	initial := read(t, conn)
	assert.Equal(t, domain.WsMessageState, initial.Type)
	assert.Equal(t, "idle", initial.State.Status)
	assert.False(t, initial.State.Submittable)

	send(t, conn, domain.WsClientMessage{Type: domain.WsMessageChange, Field: domain.FieldEmail, Value: "ada@example.com"})
	read(t, conn)
	send(t, conn, domain.WsClientMessage{Type: domain.WsMessageChange, Field: domain.FieldPassword, Value: "secret1"})
	ready := read(t, conn)
	assert.True(t, ready.State.Submittable)
	assert.True(t, ready.State.CanSubmit)
	for _, f := range ready.State.Fields {
		if f.Name == "password" {
			assert.Empty(t, f.Value)
		}
	}

	send(t, conn, domain.WsClientMessage{Type: domain.WsMessageSubmit})
	submitting := read(t, conn)
	assert.Equal(t, "submitting", submitting.State.Status)
	assert.False(t, submitting.State.CanSubmit)

	nav := read(t, conn)
	assert.Equal(t, domain.WsMessageNavigate, nav.Type)
	assert.Equal(t, "success", read(t, conn).State.Status)
	assert.Equal(t, 1, auth.Calls())

	target, err := url.Parse(nav.Path)
	require.NoError(t, err)
	assert.Equal(t, domain.RebindPath, target.Path)

	ctx := context.Background()
	_, err = store.Get(ctx, testSessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "pre-login id must not carry the user")

	_, err = store.RedeemRebind(ctx, target.Query().Get("token"), "someone-else")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestLiveLoginRebindHandsOverRotatedSession(t *testing.T) {
	auth := &fakeAuth{session: &domain.Session{
		User:        &domain.User{ID: 1, Name: "Ada", Email: "ada@example.com"},
		AccessToken: "token",
	}}
	conn, store := newLiveTest(t, auth)
	read(t, conn)

	send(t, conn, domain.WsClientMessage{Type: domain.WsMessageChange, Field: domain.FieldEmail, Value: "ada@example.com"})
	read(t, conn)
	send(t, conn, domain.WsClientMessage{Type: domain.WsMessageChange, Field: domain.FieldPassword, Value: "secret1"})
	read(t, conn)
	send(t, conn, domain.WsClientMessage{Type: domain.WsMessageSubmit})
	read(t, conn)

	target, err := url.Parse(read(t, conn).Path)
	require.NoError(t, err)

	ctx := context.Background()
	newID, err := store.RedeemRebind(ctx, target.Query().Get("token"), testSessionID)
	require.NoError(t, err)
	assert.NotEqual(t, testSessionID, newID)

	session, err := store.Get(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", session.User.Email)
}

func TestLiveLoginInvalidSubmitSkipsCall(t *testing.T) {
	auth := &fakeAuth{}
	conn, _ := newLiveTest(t, auth)
	read(t, conn)

	send(t, conn, domain.WsClientMessage{Type: domain.WsMessageSubmit})
	msg := read(t, conn)

	assert.Equal(t, "idle", msg.State.Status)
	require.Len(t, msg.State.Fields, 2)
	assert.Equal(t, "The Email field is required.", msg.State.Fields[0].Error)
	assert.Equal(t, "The Password field is required.", msg.State.Fields[1].Error)
	assert.Zero(t, auth.Calls())
}

func TestLiveLoginRejected(t *testing.T) {
	auth := &fakeAuth{err: &domain.APIError{StatusCode: http.StatusUnauthorized, Message: "invalid credentials"}}
	conn, store := newLiveTest(t, auth)
	read(t, conn)

	send(t, conn, domain.WsClientMessage{Type: domain.WsMessageChange, Field: domain.FieldEmail, Value: "ada@example.com"})
	read(t, conn)
	send(t, conn, domain.WsClientMessage{Type: domain.WsMessageChange, Field: domain.FieldPassword, Value: "wrong-pass"})
	read(t, conn)
	send(t, conn, domain.WsClientMessage{Type: domain.WsMessageSubmit})
	read(t, conn)

	failed := read(t, conn)
	assert.Equal(t, "failed", failed.State.Status)
	assert.Equal(t, "Invalid email or password.", failed.State.Failure)
	assert.Equal(t, "ada@example.com", failed.State.Fields[0].Value)

	_, err := store.Get(context.Background(), testSessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestLiveLoginUnknownField(t *testing.T) {
	conn, _ := newLiveTest(t, &fakeAuth{})
	read(t, conn)

	send(t, conn, domain.WsClientMessage{Type: domain.WsMessageBlur, Field: "username"})
	msg := read(t, conn)

	assert.Equal(t, domain.WsMessageError, msg.Type)
}
