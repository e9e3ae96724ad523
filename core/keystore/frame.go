// Package keystore persists trip records on the driver's key through a
// framed, retrying single-byte handshake.
package keystore

import (
	"bytes"
	"errors"
)

// Control bytes of the key-store protocol.
const (
	ControlStart        byte = 0x02 // STX, opens an exchange
	ControlEnd          byte = 0x03 // ETX, closes a data frame
	ControlAck          byte = 0x10 // DLE, proceed or stored
	ControlRetry        byte = 0x15 // NAK, repeat the exchange
	ControlCapacityFull byte = 0x19 // EM, device cannot take more data
)

// MaxAttempts bounds the exchanges per write.
const MaxAttempts = 3

var (
	// ErrEmptyPayload is returned when framing an empty payload.
	ErrEmptyPayload = errors.New("keystore: empty payload")
	// ErrFraming is returned for payloads containing the frame trailer or
	// frames with a missing trailer.
	ErrFraming = errors.New("keystore: invalid frame")
	// ErrChecksum is returned when a frame's checksum does not match.
	ErrChecksum = errors.New("keystore: checksum mismatch")
)

var trailer = []byte{ControlAck, ControlEnd}

// Checksum returns the XOR of all bytes. The checksum of no bytes is 0.
func Checksum(b []byte) byte {
	var c byte
	for _, v := range b {
		c ^= v
	}
	return c
}

// DataFrame is the payload part of an exchange: payload, DLE, ETX, checksum.
type DataFrame struct {
	Payload []byte
}

// MarshalBinary encodes the frame.
func (f DataFrame) MarshalBinary() ([]byte, error) {
	if len(f.Payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if bytes.Contains(f.Payload, trailer) {
		return nil, ErrFraming
	}
	out := make([]byte, 0, len(f.Payload)+3)
	out = append(out, f.Payload...)
	out = append(out, ControlAck, ControlEnd, Checksum(f.Payload))
	return out, nil
}

// UnmarshalBinary decodes a complete frame and verifies its checksum.
func (f *DataFrame) UnmarshalBinary(b []byte) error {
	if len(b) < 4 || !bytes.Equal(b[len(b)-3:len(b)-1], trailer) {
		return ErrFraming
	}
	payload := b[:len(b)-3]
	if Checksum(payload) != b[len(b)-1] {
		return ErrChecksum
	}
	f.Payload = append([]byte(nil), payload...)
	return nil
}
