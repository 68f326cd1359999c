package discord

import (
	"encoding/binary"
	"errors"
	"io"

	"go.trai.ch/zerr"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Opcode represents a Discord IPC frame opcode.
type Opcode uint32

const (
	// OpHandshake opens the session and carries the application ID.
	OpHandshake Opcode = 0
	// OpFrame carries a JSON command or response.
	OpFrame Opcode = 1
	// OpClose is sent by Discord before it drops the socket.
	OpClose Opcode = 2
	// OpPing asks the peer to echo the payload back with OpPong.
	OpPing Opcode = 3
	// OpPong answers an OpPing.
	OpPong Opcode = 4

	// frameHeaderSize is the 4-byte LE opcode plus the 4-byte LE length.
	frameHeaderSize = 8

	// MaxPayloadSize is the maximum allowed payload size (1 MB).
	MaxPayloadSize = 1 << 20

	// maxIPCSlots is the number of IPC socket slots Discord may listen on (0-9).
	maxIPCSlots = 10
)

// ErrPayloadTooLarge is returned when a frame payload exceeds MaxPayloadSize.
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrIPCNotAvailable is returned when no Discord IPC socket can be reached.
var ErrIPCNotAvailable = errors.New("discord IPC not available")

// ///////////////////////////////////////////////
// Frame Encoding
// ///////////////////////////////////////////////

// EncodeFrame builds a Discord IPC frame: [4-byte LE opcode][4-byte LE length][payload].
func EncodeFrame(opcode Opcode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, zerr.With(zerr.Wrap(ErrPayloadTooLarge, "encode frame"), "size", len(payload))
	}
	frame := make([]byte, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], uint32(opcode))
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[frameHeaderSize:], payload)
	return frame, nil
}

// ///////////////////////////////////////////////
// Frame Decoding
// ///////////////////////////////////////////////

// DecodeFrame reads one frame from r, tolerating partial reads.
func DecodeFrame(r io.Reader) (Opcode, []byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, zerr.Wrap(err, "read frame header")
	}

	opcode := Opcode(binary.LittleEndian.Uint32(header[0:4]))
	length := binary.LittleEndian.Uint32(header[4:8])
	if length > MaxPayloadSize {
		return 0, nil, zerr.With(zerr.Wrap(ErrPayloadTooLarge, "decode frame"), "size", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, zerr.With(zerr.Wrap(err, "read frame payload"), "size", length)
	}
	return opcode, payload, nil
}
