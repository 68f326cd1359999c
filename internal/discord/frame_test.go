package discord

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// rawFrame builds a frame by hand so decode tests do not depend on EncodeFrame.
func rawFrame(op uint32, length uint32, payload []byte) []byte {
	buf := make([]byte, 8, 8+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], op)
	binary.LittleEndian.PutUint32(buf[4:8], length)
	return append(buf, payload...)
}

// chunkReader returns at most n bytes per Read, like a socket under load.
type chunkReader struct {
	data []byte
	n    int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	k := min(r.n, len(p), len(r.data))
	copy(p, r.data[:k])
	r.data = r.data[k:]
	return k, nil
}

// ///////////////////////////////////////////////
// EncodeFrame
// ///////////////////////////////////////////////

func TestEncodeFrame_Layout(t *testing.T) {
	tests := []struct {
		name    string
		op      Opcode
		payload []byte
	}{
		{name: "handshake", op: OpHandshake, payload: []byte(`{"v":1,"client_id":"1"}`)},
		{name: "command", op: OpFrame, payload: []byte(`{"cmd":"SET_ACTIVITY"}`)},
		{name: "pong echoes ping body", op: OpPong, payload: []byte(`{"nonce":"7"}`)},
		{name: "empty payload", op: OpClose, payload: nil},
		{name: "max payload", op: OpFrame, payload: make([]byte, MaxPayloadSize)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := EncodeFrame(tt.op, tt.payload)
			if err != nil {
				t.Fatalf("EncodeFrame() error: %v", err)
			}
			want := rawFrame(uint32(tt.op), uint32(len(tt.payload)), tt.payload)
			if !bytes.Equal(frame, want) {
				t.Errorf("EncodeFrame() header = %x, want %x", frame[:8], want[:8])
			}
		})
	}
}

func TestEncodeFrame_TooLarge(t *testing.T) {
	_, err := EncodeFrame(OpFrame, make([]byte, MaxPayloadSize+1))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("EncodeFrame() error = %v, want ErrPayloadTooLarge", err)
	}
}

// ///////////////////////////////////////////////
// DecodeFrame
// ///////////////////////////////////////////////

func TestDecodeFrame(t *testing.T) {
	body := []byte(`{"cmd":"DISPATCH","evt":"READY"}`)

	tests := []struct {
		name    string
		input   []byte
		wantOp  Opcode
		wantErr error
	}{
		{name: "frame", input: rawFrame(1, uint32(len(body)), body), wantOp: OpFrame},
		{name: "ping", input: rawFrame(3, uint32(len(body)), body), wantOp: OpPing},
		{name: "empty payload", input: rawFrame(2, 0, nil), wantOp: OpClose},
		{name: "length over limit", input: rawFrame(1, MaxPayloadSize+1, nil), wantErr: ErrPayloadTooLarge},
		{name: "no bytes", input: nil, wantErr: io.EOF},
		{name: "short header", input: []byte{1, 0, 0}, wantErr: io.ErrUnexpectedEOF},
		{name: "short payload", input: rawFrame(1, 10, []byte("abc")), wantErr: io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, payload, err := DecodeFrame(bytes.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeFrame() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeFrame() error: %v", err)
			}
			if op != tt.wantOp {
				t.Errorf("opcode = %d, want %d", op, tt.wantOp)
			}
			if want := tt.input[8:]; !bytes.Equal(payload, want) {
				t.Errorf("payload = %q, want %q", payload, want)
			}
		})
	}
}

func TestDecodeFrame_ChunkedReads(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 4096)
	r := &chunkReader{data: rawFrame(1, uint32(len(body)), body), n: 3}

	_, payload, err := DecodeFrame(r)
	if err != nil {
		t.Fatalf("DecodeFrame() error: %v", err)
	}
	if !bytes.Equal(payload, body) {
		t.Errorf("payload length = %d, want %d", len(payload), len(body))
	}
}

func TestDecodeFrame_Sequential(t *testing.T) {
	var stream bytes.Buffer
	ops := []Opcode{OpHandshake, OpFrame, OpPing, OpPong, OpClose}
	for i, op := range ops {
		frame, err := EncodeFrame(op, []byte{byte('a' + i)})
		if err != nil {
			t.Fatalf("EncodeFrame() error: %v", err)
		}
		stream.Write(frame)
	}

	for i, want := range ops {
		op, payload, err := DecodeFrame(&stream)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if op != want || string(payload) != string(rune('a'+i)) {
			t.Errorf("frame %d = (%d, %q), want (%d, %q)", i, op, payload, want, string(rune('a'+i)))
		}
	}
	if _, _, err := DecodeFrame(&stream); !errors.Is(err, io.EOF) {
		t.Errorf("after last frame: error = %v, want io.EOF", err)
	}
}
