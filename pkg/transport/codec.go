package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hashicorp/go-msgpack/v2/codec"

	"github.com/jirenz/dist-scheduler/pkg/types"
)

// maxFrameSize bounds a single encoded Envelope. Any larger frame is
// treated as a protocol error rather than an attempt to allocate an
// unbounded buffer for a corrupt or malicious length prefix.
const maxFrameSize = 64 << 20 // 64 MiB

var msgpackHandle = &codec.MsgpackHandle{}

// writeEnvelope msgpack-encodes env and writes it to w as a
// length-prefixed frame.
func writeEnvelope(w io.Writer, env types.Envelope) error {
	var buf []byte
	enc := codec.NewEncoderBytes(&buf, msgpackHandle)
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if len(buf) > maxFrameSize {
		return fmt.Errorf("encode envelope: frame of %d bytes exceeds limit", len(buf))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(buf)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// writeHandshake writes name as a raw length-prefixed frame, sent once
// by a Client immediately after connecting so the Server can pin the
// connection's Identity to a caller-chosen name instead of the
// ephemeral remote address. An empty name still writes a zero-length
// frame so the framing stays in lockstep regardless of whether the
// caller asked for a stable identity.
func writeHandshake(w io.Writer, name string) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(name)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write handshake header: %w", err)
	}
	if len(name) > 0 {
		if _, err := w.Write([]byte(name)); err != nil {
			return fmt.Errorf("write handshake body: %w", err)
		}
	}
	return nil
}

// readHandshake reads the name frame a Client writes right after
// connecting. Returns "" if the caller dialed without a name.
func readHandshake(r io.Reader) (string, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n == 0 {
		return "", nil
	}
	if n > maxFrameSize {
		return "", fmt.Errorf("read handshake: length %d exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read handshake body: %w", err)
	}
	return string(buf), nil
}

// readEnvelope reads one length-prefixed frame from r and
// msgpack-decodes it into an Envelope.
func readEnvelope(r io.Reader) (types.Envelope, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return types.Envelope{}, err // EOF/io.ErrUnexpectedEOF propagate as-is for callers to detect disconnect
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameSize {
		return types.Envelope{}, fmt.Errorf("read frame: length %d exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return types.Envelope{}, fmt.Errorf("read frame body: %w", err)
	}
	var env types.Envelope
	dec := codec.NewDecoderBytes(buf, msgpackHandle)
	if err := dec.Decode(&env); err != nil {
		return types.Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
