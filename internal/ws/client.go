package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/models"
)

const (
	writeTimeout         = 10 * time.Second
	wsReadLimit          = 4096
	clientSendBuffer     = 256
	maxConnLifetime      = 4 * time.Hour
	tokenRefreshInterval = 15 * time.Minute
	tokenRefreshTimeout  = 10 * time.Second
	pingInterval         = 30 * time.Second
	pingTimeout          = 10 * time.Second
	maxMissedPongs       = int32(2)
)

// UserValidator re-resolves the API key a connection was opened with.
type UserValidator interface {
	GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error)
}

// Client wraps a single WebSocket connection managed by the Hub.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	log         *logrus.Logger
	apiKey      string
	validator   UserValidator
	closeOnce   sync.Once
	connectedAt time.Time
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// NewClient creates a Client for an accepted connection.
func NewClient(hub *Hub, conn *websocket.Conn, validator UserValidator, apiKey string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, clientSendBuffer),
		log:         hub.log,
		apiKey:      apiKey,
		validator:   validator,
		connectedAt: time.Now(),
	}
}

// ReadPump reads client messages until the connection closes.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow() //nolint:errcheck // best-effort close on teardown
	}()

	c.conn.SetReadLimit(wsReadLimit)

	for {
		_, msgBytes, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.log.WithField("status", websocket.CloseStatus(err)).Debug("client disconnected")
			}

			return
		}

		c.handleMessage(msgBytes)
	}
}

// handleMessage serves subscribe requests; anything else is ignored.
func (c *Client) handleMessage(msgBytes []byte) {
	var msg SubscribeMsg
	if err := json.Unmarshal(msgBytes, &msg); err != nil || msg.Type != "subscribe" {
		return
	}

	if c.hub.ReplayEvents(c, msg.LastEventID) {
		return
	}

	resetMsg, err := json.Marshal(ResetMsg{
		Type:   "reset",
		Reason: "requested events no longer available",
	})
	if err != nil {
		return
	}

	select {
	case c.send <- resetMsg:
	default:
	}
}

// WritePump writes queued messages to the connection. It also pings the
// peer, re-validates the API key and enforces a maximum lifetime.
func (c *Client) WritePump(ctx context.Context) {
	defer c.conn.CloseNow() //nolint:errcheck // best-effort close on teardown

	lifetimeTimer := time.NewTimer(time.Until(c.connectedAt.Add(maxConnLifetime)))
	defer lifetimeTimer.Stop()

	refreshTicker := time.NewTicker(tokenRefreshInterval)
	defer refreshTicker.Stop()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	var missedPongs atomic.Int32

	for {
		select {
		case <-pingTicker.C:
			if c.sendPing(ctx, &missedPongs) {
				return
			}
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()

			if err != nil {
				c.log.WithError(err).Debug("write failed")
				return
			}
		case <-refreshTicker.C:
			if !c.refreshToken(ctx) {
				return
			}
		case <-lifetimeTimer.C:
			c.log.Info("closing WebSocket: max connection lifetime exceeded")
			c.conn.Close(websocket.StatusNormalClosure, "max connection lifetime exceeded") //nolint:errcheck // best-effort
			return
		}
	}
}

// sendPing reports whether the connection should be closed.
func (c *Client) sendPing(ctx context.Context, missedPongs *atomic.Int32) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := c.conn.Ping(pingCtx)
	cancel()

	if err == nil {
		missedPongs.Store(0)
		return false
	}

	if missedPongs.Add(1) >= maxMissedPongs {
		c.log.Debug("closing: consecutive missed pongs")
		return true
	}

	return false
}

// refreshToken reports whether the key still belongs to a user allowed to
// watch progress.
func (c *Client) refreshToken(ctx context.Context) bool {
	if c.validator == nil {
		return true
	}

	refreshCtx, cancel := context.WithTimeout(ctx, tokenRefreshTimeout)
	user, err := c.validator.GetUserByAPIKey(refreshCtx, c.apiKey)
	cancel()

	if err != nil || !user.Can(models.PermDatabaseRead) {
		c.log.Info("closing WebSocket: token refresh failed")
		c.conn.Close(websocket.StatusPolicyViolation, "authentication expired") //nolint:errcheck // best-effort
		return false
	}

	return true
}
