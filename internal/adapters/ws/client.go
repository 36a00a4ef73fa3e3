package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"horizonx-console/internal/application/login"
	"horizonx-console/internal/domain"
	"horizonx-console/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	rebindTTL = time.Minute
)

var errClientClosed = errors.New("ws: client closed")

type callResult struct {
	session *domain.Session
	err     error
}

// client is one mounted login view. The view is only touched from loop, so
// socket reads and the login call reach it through channels.
type client struct {
	conn     *websocket.Conn
	sessions domain.SessionRepository
	view     *login.View
	log      logger.Logger

	sessionID   string
	inflightTTL time.Duration

	// ctx is the connection scope, set before any goroutine starts.
	ctx context.Context

	send    chan []byte
	events  chan domain.WsClientMessage
	results chan callResult
}

func newClient(conn *websocket.Conn, sessions domain.SessionRepository, auth domain.AuthClient, sessionID string, inflightTTL time.Duration, log logger.Logger) *client {
	c := &client{
		conn:        conn,
		sessions:    sessions,
		log:         log,
		sessionID:   sessionID,
		inflightTTL: inflightTTL,
		send:        make(chan []byte, 16),
		events:      make(chan domain.WsClientMessage, 16),
		results:     make(chan callResult, 1),
	}

	c.view = login.NewView(login.Deps{
		Auth:     auth,
		Sessions: sessions.For(sessionID),
		Nav:      &navigator{c: c},
		Log:      log,
	})

	return c
}

func (c *client) run(parent context.Context) error {
	g, ctx := errgroup.WithContext(parent)
	c.ctx = ctx

	g.Go(func() error {
		defer c.conn.Close()
		return c.readPump(ctx)
	})
	g.Go(func() error {
		defer c.conn.Close()
		return c.writePump(ctx)
	})
	g.Go(func() error {
		return c.loop(ctx)
	})

	err := g.Wait()
	if errors.Is(err, errClientClosed) {
		return nil
	}
	return err
}

func (c *client) readPump(ctx context.Context) error {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("ws: client disconnected unexpected", "error", err)
			}
			return errClientClosed
		}

		var msg domain.WsClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.log.Warn("ws: invalid client message", "error", err)
			continue
		}

		select {
		case c.events <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *client) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return errClientClosed
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return fmt.Errorf("ws write: %w", err)
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ws ping: %w", err)
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// loop owns the view. It closes send when it returns so writePump can say
// goodbye to the client.
func (c *client) loop(ctx context.Context) error {
	defer close(c.send)

	if err := c.pushState(ctx); err != nil {
		return err
	}

	for {
		select {
		case msg := <-c.events:
			if err := c.handle(ctx, msg); err != nil {
				return err
			}

		case res := <-c.results:
			c.view.Complete(ctx, res.session, res.err)
			if err := c.pushState(ctx); err != nil {
				return err
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *client) handle(ctx context.Context, msg domain.WsClientMessage) error {
	switch msg.Type {
	case domain.WsMessageChange:
		if err := c.view.Change(msg.Field, msg.Value); err != nil {
			return c.push(ctx, domain.WsServerMessage{Type: domain.WsMessageError, Message: err.Error()})
		}

	case domain.WsMessageBlur:
		if err := c.view.Blur(msg.Field); err != nil {
			return c.push(ctx, domain.WsServerMessage{Type: domain.WsMessageError, Message: err.Error()})
		}

	case domain.WsMessageSubmit:
		creds, ok := c.view.Begin()
		if ok {
			go c.call(ctx, creds)
		}

	case domain.WsMessageState:

	default:
		c.log.Warn("ws: unknown client message type", "type", msg.Type)
		return nil
	}

	return c.pushState(ctx)
}

// call runs off the loop so the socket keeps answering while the auth API
// works. results has room for the single call Begin lets through.
func (c *client) call(ctx context.Context, creds domain.Credentials) {
	acquired, err := c.sessions.Acquire(ctx, c.sessionID, c.inflightTTL)
	switch {
	case err != nil:
		c.results <- callResult{err: err}
		return
	case !acquired:
		c.results <- callResult{err: domain.ErrSubmitInFlight}
		return
	}
	defer func() {
		if err := c.sessions.Release(context.WithoutCancel(ctx), c.sessionID); err != nil {
			c.log.Warn("ws: failed to release submit mark", "error", err)
		}
	}()

	session, err := c.view.Call(ctx, creds)
	c.results <- callResult{session: session, err: err}
}

func (c *client) pushState(ctx context.Context) error {
	return c.push(ctx, domain.WsServerMessage{Type: domain.WsMessageState, State: c.view.Snapshot()})
}

func (c *client) push(ctx context.Context, msg domain.WsServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ws marshal: %w", err)
	}

	select {
	case c.send <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// navigator is called from Complete, which only runs on loop.
type navigator struct {
	c *client
}

func (n *navigator) Navigate(dest domain.Destination) {
	path := dest.Path()
	if dest == domain.DestinationHome {
		path = n.c.rebindPath()
	}

	if err := n.c.push(n.c.ctx, domain.WsServerMessage{Type: domain.WsMessageNavigate, Path: path}); err != nil {
		n.c.log.Warn("ws: navigate dropped", "error", err)
	}
}

// rebindPath moves the fresh session to a new id and returns where the
// browser picks up the matching cookie. If that fails the session is dropped
// and the user lands back on the login page.
func (c *client) rebindPath() string {
	ctx := context.WithoutCancel(c.ctx)
	newID := uuid.NewString()

	if err := c.sessions.Rotate(ctx, c.sessionID, newID); err != nil {
		c.log.Error("ws: failed to rotate session id", "error", err)
		if err := c.sessions.Delete(ctx, c.sessionID); err != nil {
			c.log.Error("ws: failed to drop unrotated session", "error", err)
		}
		return domain.DestinationLogin.Path()
	}

	token, err := c.sessions.IssueRebind(ctx, c.sessionID, newID, rebindTTL)
	if err != nil {
		c.log.Error("ws: failed to issue rebind token", "error", err)
		return domain.DestinationLogin.Path()
	}

	return domain.RebindPath + "?token=" + url.QueryEscape(token)
}
