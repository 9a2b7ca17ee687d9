package control

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Opcode represents a control frame opcode.
type Opcode uint32

const (
	// OpCommand carries a JSON [Request] from client to daemon.
	OpCommand Opcode = 0
	// OpResult carries a JSON [Response] from daemon to client.
	OpResult Opcode = 1
	// OpClose signals an orderly end of the conversation.
	OpClose Opcode = 2

	// frameHeaderSize is the byte length of the control frame header
	// consisting of a 4-byte little-endian opcode followed by a
	// 4-byte little-endian payload length.
	frameHeaderSize = 8

	// MaxPayloadSize is the maximum allowed payload size (1 MB). Dump
	// responses are the largest payloads and stay well under this.
	MaxPayloadSize = 1 << 20
)

// ErrPayloadTooLarge is returned when a frame payload exceeds MaxPayloadSize.
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrNotAvailable is returned when the daemon's control endpoint cannot be
// reached, which usually means the daemon is not running.
var ErrNotAvailable = errors.New("control endpoint not available")

// ///////////////////////////////////////////////
// Frame Encoding
// ///////////////////////////////////////////////

// EncodeFrame builds a control frame: [4-byte LE opcode][4-byte LE length][payload].
func EncodeFrame(opcode Opcode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	frame := make([]byte, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], uint32(opcode))
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[8:], payload)
	return frame, nil
}

// ///////////////////////////////////////////////
// Frame Decoding
// ///////////////////////////////////////////////

// DecodeFrame reads a single control frame from reader.
// It handles partial reads via io.ReadFull.
func DecodeFrame(reader io.Reader) (opcode Opcode, payload []byte, err error) {
	header := make([]byte, frameHeaderSize)
	if _, err = io.ReadFull(reader, header); err != nil {
		return 0, nil, fmt.Errorf("reading frame header: %w", err)
	}

	opcode = Opcode(binary.LittleEndian.Uint32(header[0:4]))
	length := binary.LittleEndian.Uint32(header[4:8])

	if length > MaxPayloadSize {
		return 0, nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, length, MaxPayloadSize)
	}

	payload = make([]byte, length)
	if _, err = io.ReadFull(reader, payload); err != nil {
		return 0, nil, fmt.Errorf("reading frame payload: %w", err)
	}

	return opcode, payload, nil
}
