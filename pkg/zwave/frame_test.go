package zwave

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	testCases := []struct {
		name   string
		frame  []byte
		expect byte
	}{
		{"get network ids", []byte{0x01, 0x03, 0x00, 0x20}, 0xdc},
		{"with checksum byte", []byte{0x01, 0x03, 0x00, 0x20, 0xdc}, 0xdc},
		{"one byte payload", []byte{0x01, 0x04, 0x10, 0x20, 0xab}, 0x60},
		{"too short", []byte{0x01}, 0xff},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, Checksum(tc.frame))
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	b, err := EncodeFrame(TypeRequest, CmdGetNetworkIDs, nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x03, 0x00, 0x20, 0xdc}, b)

	b, err = EncodeFrame(0x10, 0x20, []byte{0xab})
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x04, 0x10, 0x20, 0xab, 0x60}, b)

	b, err = EncodeFrame(TypeRequest, 0x13, make([]byte, MaxPayloadSize))
	require.NoError(t, err)
	require.Len(t, b, MaxFrameSize)

	_, err = EncodeFrame(TypeRequest, 0x13, make([]byte, MaxPayloadSize+1))
	require.Equal(t, ErrPayloadTooLarge, err)
}

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte{0x01, 0x04, 0x10, 0x20, 0xab, 0x60})
	require.NoError(t, err)
	require.Equal(t, &Frame{Type: 0x10, Command: 0x20, Payload: []byte{0xab}}, f)
	b, err := f.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x04, 0x10, 0x20, 0xab, 0x60}, b)

	f, err = ParseFrame([]byte{0x01, 0x03, 0x00, 0x20, 0xdc})
	require.NoError(t, err)
	require.Nil(t, f.Payload)

	_, err = ParseFrame([]byte{0x06})
	require.Equal(t, ErrShortFrame, err)
	_, err = ParseFrame([]byte{0x01, 0x04, 0x10, 0x20, 0xab, 0x61})
	require.IsType(t, &FramingError{}, err)
	_, err = ParseFrame([]byte{0x01, 0x05, 0x10, 0x20, 0xab, 0x60})
	require.IsType(t, &FramingError{}, err)
	_, err = ParseFrame([]byte{0x01, 0x02, 0x10, 0x20, 0xab})
	require.IsType(t, &FramingError{}, err)
}

func TestNetworkIDsFrom(t *testing.T) {
	frame, err := EncodeFrame(TypeResponse, CmdGetNetworkIDs, []byte{0xc0, 0xff, 0xee, 0x42, 0x01})
	require.NoError(t, err)
	id, ok := NetworkIDsFrom(frame)
	require.True(t, ok)
	require.Equal(t, HomeID{0xc0, 0xff, 0xee, 0x42}, id)
	require.Equal(t, uint32(0xc0ffee42), id.Uint32())
	require.Equal(t, "c0:ff:ee:42", id.String())
	require.False(t, id.IsZero())

	// request, not response
	frame, err = EncodeFrame(TypeRequest, CmdGetNetworkIDs, []byte{0xc0, 0xff, 0xee, 0x42, 0x01})
	require.NoError(t, err)
	_, ok = NetworkIDsFrom(frame)
	require.False(t, ok)

	// too short for home ID and node ID
	frame, err = EncodeFrame(TypeResponse, CmdGetNetworkIDs, []byte{0xc0, 0xff})
	require.NoError(t, err)
	_, ok = NetworkIDsFrom(frame)
	require.False(t, ok)
}

func TestControlName(t *testing.T) {
	require.Equal(t, "ACK", ControlName(ACK))
	require.Equal(t, "NAK", ControlName(NAK))
	require.Equal(t, "CAN", ControlName(CAN))
	require.Equal(t, "0x7F", ControlName(0x7f))
	require.True(t, IsResponse(CAN))
	require.False(t, IsResponse(BLBeginUpload))
}

func TestFormatHex(t *testing.T) {
	require.Equal(t, "", FormatHex(nil, ' '))
	require.Equal(t, "01 0A FF", FormatHex([]byte{1, 10, 255}, ' '))
}

func TestParseHex(t *testing.T) {
	for _, s := range []string{"01 03 00 20 DC", "010300 20dc", "01:03:00:20:dc", "0x01030020DC"} {
		b, err := ParseHex(s)
		require.NoError(t, err, s)
		require.Equal(t, []byte{0x01, 0x03, 0x00, 0x20, 0xdc}, b, s)
	}
	_, err := ParseHex("01 0")
	require.Error(t, err)
	_, err = ParseHex("zz")
	require.Error(t, err)
}
