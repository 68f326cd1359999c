// Package discord provides a client for Discord's local IPC socket,
// enabling Rich Presence updates via the SET_ACTIVITY command.
//
// The [Client] type manages connection lifecycle and command framing.
// Platform-specific socket discovery is handled by conn_unix.go and
// conn_windows.go.
package discord

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"go.trai.ch/zerr"

	"tools.zach/dev/trackpad/internal/logger"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrNotConnected is returned when an operation requires an active connection.
var ErrNotConnected = errors.New("not connected")

// ErrClosed is returned when Discord sends a close frame. The client is
// disconnected afterwards.
var ErrClosed = errors.New("discord closed the connection")

// ErrRejected is returned when Discord answers a command with an ERROR event.
var ErrRejected = errors.New("discord rejected the command")

// DefaultTimeout bounds each request/response exchange with Discord.
const DefaultTimeout = 5 * time.Second

// ///////////////////////////////////////////////
// Wire Types
// ///////////////////////////////////////////////

// response is the subset of a Discord IPC reply the client inspects.
type response struct {
	Cmd   string `json:"cmd"`
	Evt   string `json:"evt"`
	Nonce string `json:"nonce"`
	Data  struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"data"`
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Dialer opens a raw connection to the Discord IPC socket.
type Dialer func() (net.Conn, error)

// Option configures a [Client].
type Option func(*Client)

// WithDialer replaces the platform socket discovery.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithTimeout sets the per-exchange deadline. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client manages a connection to Discord's IPC socket. It is safe for
// concurrent use.
type Client struct {
	// appID is the Discord application (OAuth2 client) identifier.
	appID string
	// dial opens the socket; defaults to platform discovery.
	dial Dialer
	// timeout bounds each write and the matching response read.
	timeout time.Duration

	// mu protects conn and nonce from concurrent access.
	mu sync.Mutex
	// conn is the active IPC socket connection, or nil when disconnected.
	conn net.Conn
	// nonce is a monotonically increasing counter used to tag each command frame.
	nonce uint64
}

// NewClient creates a new Discord IPC client for the given application ID.
func NewClient(appID string, opts ...Option) *Client {
	c := &Client{appID: appID, dial: connectToDiscord, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes a connection to Discord via IPC and sends the handshake.
// An existing connection is closed first.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropLocked()

	conn, err := c.dial()
	if err != nil {
		return err
	}
	c.conn = conn

	if err := c.handshake(); err != nil {
		c.dropLocked()
		return err
	}
	slog.Debug("connected to discord", "app_id", c.appID)
	return nil
}

// SetActivity sends a SET_ACTIVITY command and waits for Discord's reply.
func (c *Client) SetActivity(activity *Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sendCommand("SET_ACTIVITY", map[string]any{
		"pid":      os.Getpid(),
		"activity": activity,
	})
}

// ClearActivity sends a SET_ACTIVITY command with a null activity.
func (c *Client) ClearActivity() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.clearLocked()
}

// Close clears the activity and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	if err := c.clearLocked(); err != nil {
		slog.Debug("failed to clear activity before close", "error", err)
	}
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Connected reports whether the client has an active connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// ///////////////////////////////////////////////
// Protocol
// ///////////////////////////////////////////////

// clearLocked sends a null activity. The caller must hold c.mu.
func (c *Client) clearLocked() error {
	return c.sendCommand("SET_ACTIVITY", map[string]any{
		"pid":      os.Getpid(),
		"activity": nil,
	})
}

// dropLocked closes and forgets the connection. The caller must hold c.mu.
func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// handshake sends the initial handshake frame to Discord and validates the
// response. The caller must hold c.mu.
func (c *Client) handshake() error {
	payload, err := json.Marshal(map[string]any{
		"v":         1,
		"client_id": c.appID,
	})
	if err != nil {
		return zerr.Wrap(err, "marshal handshake")
	}
	if err := c.write(OpHandshake, payload); err != nil {
		return zerr.Wrap(err, "write handshake")
	}

	resp, err := c.read("")
	if err != nil {
		return zerr.Wrap(err, "handshake")
	}
	if resp.Evt != "READY" {
		return zerr.With(zerr.New("unexpected handshake response"), "evt", resp.Evt)
	}
	return nil
}

// sendCommand writes a command frame and reads until the matching reply.
// Transport failures drop the connection so callers can reconnect.
// The caller must hold c.mu.
func (c *Client) sendCommand(cmd string, args map[string]any) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	c.nonce++
	nonce := strconv.FormatUint(c.nonce, 10)

	payload, err := json.Marshal(map[string]any{
		"cmd":   cmd,
		"args":  args,
		"nonce": nonce,
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, "marshal command"), "cmd", cmd)
	}
	if err := c.write(OpFrame, payload); err != nil {
		c.dropLocked()
		return zerr.With(zerr.Wrap(err, "write command"), "cmd", cmd)
	}

	if _, err := c.read(nonce); err != nil {
		if !errors.Is(err, ErrRejected) {
			c.dropLocked()
		}
		return zerr.With(err, "cmd", cmd)
	}
	return nil
}

// write frames payload and writes it under the exchange deadline.
func (c *Client) write(op Opcode, payload []byte) error {
	frame, err := EncodeFrame(op, payload)
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()
	_, err = c.conn.Write(frame)
	return err
}

// read consumes frames until a reply carrying nonce arrives. An empty nonce
// accepts the first data frame (the handshake READY dispatch). Pings are
// answered and unrelated dispatches are skipped.
func (c *Client) read(nonce string) (response, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()

	for {
		op, data, err := DecodeFrame(c.conn)
		if err != nil {
			return response{}, err
		}

		switch op {
		case OpPing:
			if err := c.write(OpPong, data); err != nil {
				return response{}, zerr.Wrap(err, "write pong")
			}
			continue
		case OpClose:
			var resp response
			_ = json.Unmarshal(data, &resp)
			return response{}, zerr.With(zerr.Wrap(ErrClosed, resp.Data.Message), "code", resp.Data.Code)
		case OpFrame:
		default:
			slog.Debug("ignoring discord frame", "opcode", op)
			continue
		}

		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			return response{}, zerr.Wrap(err, "parse response")
		}
		if nonce != "" && resp.Nonce != nonce {
			logger.Trace(slog.Default(), "skipping unrelated discord frame", "evt", resp.Evt, "nonce", resp.Nonce)
			continue
		}
		if resp.Evt == "ERROR" {
			return resp, zerr.With(zerr.With(zerr.Wrap(ErrRejected, resp.Data.Message), "code", resp.Data.Code), "evt", resp.Evt)
		}
		return resp, nil
	}
}
