// Tests for the [Client] type covering handshake, activity commands and
// their replies, ping handling, nonce uniqueness, and connection lifecycle.
package discord

import (
	"encoding/json"
	"errors"
	"net"
	"os"
	"testing"
	"time"
)

// ///////////////////////////////////////////////
// Test Helpers
// ///////////////////////////////////////////////

// readFrame is a test helper that reads a single frame from a connection.
func readFrame(t *testing.T, conn net.Conn) (Opcode, map[string]any) {
	t.Helper()
	opcode, payload, err := DecodeFrame(conn)
	if err != nil {
		t.Errorf("failed to read frame: %v", err)
		return 0, nil
	}
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Errorf("failed to parse frame payload: %v", err)
		return 0, nil
	}
	return opcode, m
}

// writeJSON writes v as a frame with the given opcode.
func writeJSON(t *testing.T, conn net.Conn, op Opcode, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Errorf("failed to marshal frame: %v", err)
		return
	}
	frame, err := EncodeFrame(op, payload)
	if err != nil {
		t.Errorf("failed to encode frame: %v", err)
		return
	}
	if _, err := conn.Write(frame); err != nil {
		t.Errorf("failed to write frame: %v", err)
	}
}

// writeReadyResponse writes a READY event response frame to the connection.
func writeReadyResponse(t *testing.T, conn net.Conn) {
	t.Helper()
	writeJSON(t, conn, OpFrame, map[string]any{"cmd": "DISPATCH", "evt": "READY"})
}

// ack answers a command frame with a matching reply.
func ack(t *testing.T, conn net.Conn, cmd map[string]any) {
	t.Helper()
	writeJSON(t, conn, OpFrame, map[string]any{
		"cmd":   cmd["cmd"],
		"nonce": cmd["nonce"],
		"data":  map[string]any{},
	})
}

// connected returns a client wired to one end of a pipe and the server end.
func connected(t *testing.T, opts ...Option) (*Client, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() {
		serverConn.Close()
		clientConn.Close()
	})
	c := NewClient("test-app-id", opts...)
	// Inject the connection directly, bypassing socket discovery.
	c.conn = clientConn
	return c, serverConn
}

// ///////////////////////////////////////////////
// Client.handshake
// ///////////////////////////////////////////////

func TestClient_Handshake(t *testing.T) {
	c, server := connected(t)

	done := make(chan error, 1)
	go func() {
		done <- c.handshake()
	}()

	opcode, m := readFrame(t, server)
	if opcode != OpHandshake {
		t.Fatalf("expected opcode %d (HANDSHAKE), got %d", OpHandshake, opcode)
	}
	if v, ok := m["v"].(float64); !ok || int(v) != 1 {
		t.Fatalf("expected v=1, got %v", m["v"])
	}
	if m["client_id"] != "test-app-id" {
		t.Fatalf("expected client_id=test-app-id, got %v", m["client_id"])
	}

	writeReadyResponse(t, server)

	if err := <-done; err != nil {
		t.Fatalf("handshake returned error: %v", err)
	}
}

func TestClient_Handshake_ErrorResponse(t *testing.T) {
	c, server := connected(t)

	done := make(chan error, 1)
	go func() {
		done <- c.handshake()
	}()

	readFrame(t, server)
	writeJSON(t, server, OpFrame, map[string]any{
		"evt":  "ERROR",
		"data": map[string]any{"code": 4000, "message": "invalid client_id"},
	})

	err := <-done
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got: %v", err)
	}
}

func TestClient_Handshake_CloseFrame(t *testing.T) {
	c, server := connected(t)

	done := make(chan error, 1)
	go func() {
		done <- c.handshake()
	}()

	readFrame(t, server)
	writeJSON(t, server, OpClose, map[string]any{"code": 4000, "message": "Invalid Client ID"})

	err := <-done
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got: %v", err)
	}
}

func TestClient_Handshake_ServerGone(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	c := NewClient("test-app-id")
	c.conn = clientConn

	// Close the server side immediately so the handshake write fails.
	serverConn.Close()

	if err := c.handshake(); err == nil {
		t.Fatal("expected handshake to fail")
	}
	clientConn.Close()
}

// ///////////////////////////////////////////////
// Client.Connect
// ///////////////////////////////////////////////

func TestClient_Connect_WithDialer(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() {
		serverConn.Close()
		clientConn.Close()
	})

	dials := 0
	c := NewClient("test-app-id", WithDialer(func() (net.Conn, error) {
		dials++
		return clientConn, nil
	}))

	go func() {
		readFrame(t, serverConn)
		writeReadyResponse(t, serverConn)
	}()

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !c.Connected() {
		t.Error("expected Connected() after successful handshake")
	}
	if dials != 1 {
		t.Errorf("dialer called %d times, want 1", dials)
	}
}

func TestClient_Connect_DialError(t *testing.T) {
	c := NewClient("test-app-id", WithDialer(func() (net.Conn, error) {
		return nil, ErrIPCNotAvailable
	}))

	err := c.Connect()
	if !errors.Is(err, ErrIPCNotAvailable) {
		t.Fatalf("expected ErrIPCNotAvailable, got: %v", err)
	}
	if c.Connected() {
		t.Error("expected Connected() to be false after dial failure")
	}
}

func TestClient_Connect_HandshakeFailureDisconnects(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { serverConn.Close() })

	c := NewClient("test-app-id", WithDialer(func() (net.Conn, error) {
		return clientConn, nil
	}))

	go func() {
		readFrame(t, serverConn)
		writeJSON(t, serverConn, OpClose, map[string]any{"code": 4000})
	}()

	if err := c.Connect(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got: %v", err)
	}
	if c.Connected() {
		t.Error("expected Connected() to be false after rejected handshake")
	}
	if _, err := clientConn.Write([]byte("x")); err == nil {
		t.Error("expected client connection to be closed")
	}
}

func TestClient_Connect_ClosesOldConnection(t *testing.T) {
	oldServer, oldClient := net.Pipe()
	defer oldServer.Close()

	c := NewClient("test-app-id", WithDialer(func() (net.Conn, error) {
		return nil, ErrIPCNotAvailable
	}))
	c.conn = oldClient

	_ = c.Connect()

	if _, err := oldClient.Write([]byte("test")); err == nil {
		t.Error("expected old connection to be closed, but write succeeded")
	}
}

// ///////////////////////////////////////////////
// Client.SetActivity
// ///////////////////////////////////////////////

func TestClient_SetActivity(t *testing.T) {
	c, server := connected(t)

	activity := &Activity{
		Details:    "Working on trackpad",
		State:      "1,234 lines of code",
		Timestamps: &Timestamps{Start: 1000000},
		Assets: &Assets{
			LargeImage: "vscode",
			LargeText:  "Visual Studio Code",
		},
	}

	done := make(chan error, 1)
	go func() {
		done <- c.SetActivity(activity)
	}()

	opcode, m := readFrame(t, server)
	if opcode != OpFrame {
		t.Fatalf("expected opcode %d (FRAME), got %d", OpFrame, opcode)
	}
	if m["cmd"] != "SET_ACTIVITY" {
		t.Fatalf("expected cmd=SET_ACTIVITY, got %v", m["cmd"])
	}
	if nonce, ok := m["nonce"].(string); !ok || nonce == "" {
		t.Fatalf("expected non-empty nonce, got %v", m["nonce"])
	}

	args, ok := m["args"].(map[string]any)
	if !ok {
		t.Fatalf("expected args to be a map, got %T", m["args"])
	}
	if pid, ok := args["pid"].(float64); !ok || int(pid) != os.Getpid() {
		t.Fatalf("expected pid=%d, got %v", os.Getpid(), args["pid"])
	}

	act, ok := args["activity"].(map[string]any)
	if !ok {
		t.Fatalf("expected activity to be a map, got %T", args["activity"])
	}
	if act["details"] != "Working on trackpad" {
		t.Errorf("details = %v", act["details"])
	}
	if act["state"] != "1,234 lines of code" {
		t.Errorf("state = %v", act["state"])
	}
	if instance, ok := act["instance"].(bool); !ok || instance {
		t.Errorf("expected instance=false to be sent, got %v", act["instance"])
	}
	assets := act["assets"].(map[string]any)
	if _, ok := assets["small_image"]; ok {
		t.Error("empty small_image should be omitted")
	}

	ack(t, server, m)

	if err := <-done; err != nil {
		t.Fatalf("SetActivity returned error: %v", err)
	}
}

func TestClient_SetActivity_Rejected(t *testing.T) {
	c, server := connected(t)

	done := make(chan error, 1)
	go func() {
		done <- c.SetActivity(&Activity{Details: "x"})
	}()

	_, m := readFrame(t, server)
	writeJSON(t, server, OpFrame, map[string]any{
		"cmd":   "SET_ACTIVITY",
		"evt":   "ERROR",
		"nonce": m["nonce"],
		"data":  map[string]any{"code": 4002, "message": "child \"activity\" fails"},
	})

	err := <-done
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got: %v", err)
	}
	if !c.Connected() {
		t.Error("a rejected command should not drop the connection")
	}
}

func TestClient_SetActivity_AnswersPingAndSkipsDispatch(t *testing.T) {
	c, server := connected(t)

	done := make(chan error, 1)
	go func() {
		done <- c.SetActivity(&Activity{Details: "x"})
	}()

	_, m := readFrame(t, server)

	writeJSON(t, server, OpPing, map[string]any{"ping": 1})
	op, pong := readFrame(t, server)
	if op != OpPong {
		t.Fatalf("expected OpPong, got %d", op)
	}
	if pong["ping"] != float64(1) {
		t.Errorf("pong payload = %v, want echo of ping", pong)
	}

	writeJSON(t, server, OpFrame, map[string]any{"cmd": "DISPATCH", "evt": "ACTIVITY_JOIN"})
	ack(t, server, m)

	if err := <-done; err != nil {
		t.Fatalf("SetActivity returned error: %v", err)
	}
}

func TestClient_SetActivity_CloseFrameDisconnects(t *testing.T) {
	c, server := connected(t)

	done := make(chan error, 1)
	go func() {
		done <- c.SetActivity(&Activity{Details: "x"})
	}()

	readFrame(t, server)
	writeJSON(t, server, OpClose, map[string]any{"code": 1000, "message": "bye"})

	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got: %v", err)
	}
	if c.Connected() {
		t.Error("expected Connected() to be false after close frame")
	}
}

func TestClient_SetActivity_Timeout(t *testing.T) {
	c, server := connected(t, WithTimeout(50*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		done <- c.SetActivity(&Activity{Details: "x"})
	}()

	// Read the command but never answer it.
	readFrame(t, server)

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected timeout error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SetActivity did not honor the timeout")
	}
	if c.Connected() {
		t.Error("expected Connected() to be false after timeout")
	}
}

// ///////////////////////////////////////////////
// Client.ClearActivity
// ///////////////////////////////////////////////

func TestClient_ClearActivity(t *testing.T) {
	c, server := connected(t)

	done := make(chan error, 1)
	go func() {
		done <- c.ClearActivity()
	}()

	opcode, m := readFrame(t, server)
	if opcode != OpFrame {
		t.Fatalf("expected opcode %d (FRAME), got %d", OpFrame, opcode)
	}
	args := m["args"].(map[string]any)
	if v, present := args["activity"]; !present || v != nil {
		t.Fatalf("expected explicit null activity, got %v (present=%v)", v, present)
	}
	ack(t, server, m)

	if err := <-done; err != nil {
		t.Fatalf("ClearActivity returned error: %v", err)
	}
}

// ///////////////////////////////////////////////
// Client Nonce Uniqueness
// ///////////////////////////////////////////////

func TestClient_NonceUniqueness(t *testing.T) {
	c, server := connected(t)
	nonces := make(map[string]bool)

	for i := range 5 {
		done := make(chan error, 1)
		go func() {
			done <- c.SetActivity(&Activity{Details: "test"})
		}()

		_, m := readFrame(t, server)
		nonce := m["nonce"].(string)
		if nonces[nonce] {
			t.Fatalf("duplicate nonce on call %d: %s", i, nonce)
		}
		nonces[nonce] = true
		ack(t, server, m)

		if err := <-done; err != nil {
			t.Fatalf("SetActivity call %d returned error: %v", i, err)
		}
	}
}

// ///////////////////////////////////////////////
// Client.Close
// ///////////////////////////////////////////////

func TestClient_Close_NilConnection(t *testing.T) {
	c := NewClient("test-app-id")
	if err := c.Close(); err != nil {
		t.Fatalf("Close on nil connection should return nil, got: %v", err)
	}
}

func TestClient_Close_ClearsThenCloses(t *testing.T) {
	c, server := connected(t)

	done := make(chan error, 1)
	go func() {
		done <- c.Close()
	}()

	_, m := readFrame(t, server)
	args := m["args"].(map[string]any)
	if args["activity"] != nil {
		t.Errorf("expected clear before close, got %v", args["activity"])
	}
	ack(t, server, m)

	if err := <-done; err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.Connected() {
		t.Error("expected Connected() to be false after Close")
	}
}

// ///////////////////////////////////////////////
// Client.Connected / sendCommand
// ///////////////////////////////////////////////

func TestClient_Connected_ReturnsFalseInitially(t *testing.T) {
	c := NewClient("test-app-id")
	if c.Connected() {
		t.Fatal("expected Connected() to return false for new client")
	}
}

func TestClient_SendCommand_NotConnected(t *testing.T) {
	c := NewClient("test-app-id")
	err := c.sendCommand("SET_ACTIVITY", map[string]any{"pid": 1})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got: %v", err)
	}
}

func TestWithTimeout_IgnoresNonPositive(t *testing.T) {
	c := NewClient("test-app-id", WithTimeout(0), WithTimeout(-time.Second))
	if c.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, DefaultTimeout)
	}
}
