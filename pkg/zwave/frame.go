package zwave

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Frame type bytes seen at the start of a frame.
const (
	SOF           byte = 0x01
	ACK           byte = 0x06
	NAK           byte = 0x15
	CAN           byte = 0x18
	BLMenu        byte = 0x0D
	BLBeginUpload byte = 0x43
)

// Data frame TYPE values.
const (
	TypeRequest  byte = 0x00
	TypeResponse byte = 0x01
)

// Serial API commands the proxy issues itself.
const (
	// CmdGetNetworkIDs queries the home ID and node ID of the module.
	CmdGetNetworkIDs byte = 0x20
)

const (
	// MaxFrameSize is the largest data frame, SOF and checksum included.
	MaxFrameSize = 257
	// MinFrameLength is the smallest LEN: TYPE, CMD and CHECKSUM.
	MinFrameLength = 3
	// MaxPayloadSize is the largest payload a data frame carries.
	MaxPayloadSize = 0xff - MinFrameLength
	// HomeIDSize is the size of a home ID.
	HomeIDSize = 4
)

// IsResponse reports whether b is one of the link-layer responses.
func IsResponse(b byte) bool {
	return b == ACK || b == NAK || b == CAN
}

// ControlName names the single-byte frames.
func ControlName(b byte) string {
	switch b {
	case ACK:
		return "ACK"
	case NAK:
		return "NAK"
	case CAN:
		return "CAN"
	case BLBeginUpload:
		return "BL_BEGIN_UPLOAD"
	case BLMenu:
		return "BL_MENU"
	case SOF:
		return "SOF"
	}
	return fmt.Sprintf("0x%02X", b)
}

// Checksum computes the checksum of a data frame. frame starts with SOF
// and may or may not include the trailing checksum byte; only the bytes
// from LEN through the last payload byte are covered.
func Checksum(frame []byte) byte {
	cs := byte(0xff)
	if len(frame) < 2 {
		return cs
	}
	end := int(frame[1]) + 1
	if end > len(frame) {
		end = len(frame)
	}
	for _, b := range frame[1:end] {
		cs ^= b
	}
	return cs
}

// Frame is a decoded data frame.
type Frame struct {
	Type    byte
	Command byte
	Payload []byte
}

// Bytes encodes the frame with LEN and CHECKSUM.
func (f *Frame) Bytes() ([]byte, error) {
	return EncodeFrame(f.Type, f.Command, f.Payload)
}

// String implements fmt.Stringer.
func (f *Frame) String() string {
	kind := "REQ"
	if f.Type == TypeResponse {
		kind = "RES"
	}
	return fmt.Sprintf("%s cmd=0x%02X payload=[%s]", kind, f.Command, FormatHex(f.Payload, ' '))
}

// EncodeFrame builds a data frame.
func EncodeFrame(typ, cmd byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	b := make([]byte, len(payload)+MinFrameLength+2)
	b[0], b[1], b[2], b[3] = SOF, byte(len(payload)+MinFrameLength), typ, cmd
	copy(b[4:], payload)
	b[len(b)-1] = Checksum(b)
	return b, nil
}

// ParseFrame decodes a complete data frame and verifies its checksum.
func ParseFrame(b []byte) (*Frame, error) {
	if len(b) < MinFrameLength+2 || b[0] != SOF {
		return nil, ErrShortFrame
	}
	l := int(b[1])
	if l < MinFrameLength {
		return nil, &FramingError{Reason: "invalid length", Value: b[1]}
	}
	if len(b) != l+2 {
		return nil, &FramingError{Reason: "length mismatch", Value: b[1]}
	}
	if cs := Checksum(b); cs != b[l+1] {
		return nil, &FramingError{Reason: "bad checksum", Value: b[l+1]}
	}
	f := &Frame{Type: b[2], Command: b[3]}
	if l > MinFrameLength {
		f.Payload = append([]byte(nil), b[4:l+1]...)
	}
	return f, nil
}

// TYPE, CMD, home ID, 8-bit node ID and CHECKSUM.
const minNetworkIDsLength = MinFrameLength + HomeIDSize + 1

// HomeID identifies the Z-Wave network of the module.
type HomeID [HomeIDSize]byte

// Uint32 returns the big-endian value of the home ID.
func (h HomeID) Uint32() uint32 {
	return binary.BigEndian.Uint32(h[:])
}

// IsZero indicates the home ID is not learned yet.
func (h HomeID) IsZero() bool {
	return h == HomeID{}
}

// String formats the home ID as aa:bb:cc:dd.
func (h HomeID) String() string {
	return strings.ToLower(FormatHex(h[:], ':'))
}

// NetworkIDsFrom extracts the home ID from a GetNetworkIDs response:
// SOF LEN RES 0x20 HOMEID[4] NODEID[1 or 2] CHECKSUM.
func NetworkIDsFrom(frame []byte) (id HomeID, ok bool) {
	if len(frame) < 4+HomeIDSize || frame[0] != SOF || frame[1] < minNetworkIDsLength ||
		frame[2] != TypeResponse || frame[3] != CmdGetNetworkIDs {
		return
	}
	copy(id[:], frame[4:4+HomeIDSize])
	return id, true
}

// FormatHex formats bytes as upper-case hex joined by sep.
func FormatHex(b []byte, sep byte) string {
	const digits = "0123456789ABCDEF"
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(b)*3 - 1)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(sep)
		}
		sb.WriteByte(digits[c>>4])
		sb.WriteByte(digits[c&0xf])
	}
	return sb.String()
}

// ParseHex parses hex bytes written the way FormatHex prints them.
// Spaces, colons and dashes between bytes are ignored.
func ParseHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '-', '\t':
			return -1
		}
		return r
	}, s)
	return hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
}
