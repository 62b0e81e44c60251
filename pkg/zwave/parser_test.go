package zwave

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// feed feeds every byte and returns the results with an event or error.
func feed(p *Parser, in ...byte) (results []ParseResult) {
	for _, b := range in {
		pr := p.Feed(b)
		if pr.Event != EventNone || pr.Err != nil {
			if pr.Frame != nil {
				pr.Frame = append([]byte(nil), pr.Frame...)
			}
			results = append(results, pr)
		}
		if _, ok := p.PendingResponse(); ok {
			p.ResponseSent()
		}
	}
	return
}

func mustEncode(t *testing.T, typ, cmd byte, payload ...byte) []byte {
	b, err := EncodeFrame(typ, cmd, payload)
	require.NoError(t, err)
	return b
}

func TestParserStates(t *testing.T) {
	testCases := []struct {
		name   string
		in     []byte
		states []ParseState
	}{
		{
			name: "frame with payload",
			in:   []byte{0x01, 0x05, 0x10, 0x20, 0xab, 0xcd, 0xac},
			states: []ParseState{
				StateWaitLength, StateWaitType, StateWaitCommandID,
				StateWaitPayload, StateWaitPayload, StateWaitChecksum, StateSendAck,
			},
		},
		{
			name: "frame without payload",
			in:   []byte{0x01, 0x03, 0x00, 0x20, 0xdc},
			states: []ParseState{
				StateWaitLength, StateWaitType, StateWaitCommandID, StateWaitChecksum, StateSendAck,
			},
		},
		{
			name: "bad checksum",
			in:   []byte{0x01, 0x03, 0x00, 0x20, 0xdd},
			states: []ParseState{
				StateWaitLength, StateWaitType, StateWaitCommandID, StateWaitChecksum, StateSendNak,
			},
		},
		{
			name:   "invalid length",
			in:     []byte{0x01, 0x02},
			states: []ParseState{StateWaitLength, StateSendNak},
		},
		{
			name:   "control bytes and noise",
			in:     []byte{ACK, NAK, CAN, BLBeginUpload, 0x7f, 0x00},
			states: []ParseState{StateWaitStart, StateWaitStart, StateWaitStart, StateWaitStart, StateWaitStart, StateWaitStart},
		},
		{
			name:   "bootloader",
			in:     []byte{BLMenu, 'a', SOF, 0x00},
			states: []ParseState{StateBootloader, StateBootloader, StateBootloader, StateBootloader},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewParser(nil)
			require.Equal(t, StateWaitStart, p.State())
			for n, b := range tc.in {
				pr := p.Feed(b)
				require.Equalf(t, tc.states[n], pr.State, "in[%d]=0x%02X", n, b)
				require.Equal(t, pr.State, p.State())
			}
		})
	}
}

func TestParserFrameReady(t *testing.T) {
	frame := []byte{0x01, 0x04, 0x10, 0x20, 0xab, 0x60}
	p := NewParser(nil)
	var pr ParseResult
	for i, b := range frame {
		pr = p.Feed(b)
		if i+1 < len(frame) {
			require.Equal(t, EventNone, pr.Event)
			require.Nil(t, pr.Err)
		}
	}
	require.Equal(t, EventFrameReady, pr.Event)
	require.Equal(t, frame, pr.Frame)
	f, err := ParseFrame(pr.Frame)
	require.NoError(t, err)
	require.Equal(t, []byte{0xab}, f.Payload)

	resp, ok := p.PendingResponse()
	require.True(t, ok)
	require.Equal(t, ACK, resp)
	p.ResponseSent()
	require.Equal(t, StateWaitStart, p.State())
	_, ok = p.PendingResponse()
	require.False(t, ok)
}

func TestParserBadChecksum(t *testing.T) {
	p := NewParser(nil)
	results := feed(p, 0x01, 0x04, 0x10, 0x20, 0xab, 0x60^0xff)
	require.Len(t, results, 1)
	require.Equal(t, EventNone, results[0].Event)
	require.Equal(t, StateSendNak, results[0].State)
	require.IsType(t, &FramingError{}, results[0].Err)
	require.Equal(t, StateWaitStart, p.State())
}

func TestParserBackToBack(t *testing.T) {
	p := NewParser(nil)
	f1 := mustEncode(t, TypeResponse, 0x15, []byte("Z-Wave 7.18")...)
	f2 := mustEncode(t, TypeRequest, 0x04, 0x00, 0x02, 0x03, 0x20, 0x01, 0xff)
	in := append(append(append([]byte{0x55, ACK}, f1...), 0x00), f2...)
	results := feed(p, in...)
	require.Len(t, results, 3)
	require.Equal(t, EventControl, results[0].Event)
	require.Equal(t, ACK, results[0].Control)
	require.Equal(t, EventFrameReady, results[1].Event)
	require.Equal(t, f1, results[1].Frame)
	require.Equal(t, EventFrameReady, results[2].Event)
	require.Equal(t, f2, results[2].Frame)
}

func TestParserLengthExceedsCapacity(t *testing.T) {
	p := NewParser(NewFrameBuffer(16))
	require.Equal(t, 16, p.Capacity())

	pr := p.Feed(SOF)
	require.Equal(t, StateWaitLength, pr.State)
	pr = p.Feed(0x20)
	require.Equal(t, StateWaitStart, pr.State)
	require.IsType(t, &FramingError{}, pr.Err)
	_, ok := p.PendingResponse()
	require.False(t, ok)

	// whatever follows must never overflow the buffer.
	for i := 0; i < 1024; i++ {
		feed(p, byte(i*7))
		require.True(t, p.buf.Len() <= p.Capacity())
	}

	p.Reset()
	frame := mustEncode(t, TypeRequest, 0x02, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11)
	require.Len(t, frame, 16)
	results := feed(p, frame...)
	require.Len(t, results, 1)
	require.Equal(t, EventFrameReady, results[0].Event)
	require.Equal(t, frame, results[0].Frame)

	// one byte longer doesn't fit.
	frame = mustEncode(t, TypeRequest, 0x02, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	results = feed(p, frame[:2]...)
	require.Len(t, results, 1)
	require.IsType(t, &FramingError{}, results[0].Err)
	require.Equal(t, StateWaitStart, p.State())
}

func TestParserInvalidLength(t *testing.T) {
	for l := byte(0); l < MinFrameLength; l++ {
		t.Run(fmt.Sprintf("len %d", l), func(t *testing.T) {
			p := NewParser(nil)
			p.Feed(SOF)
			pr := p.Feed(l)
			require.Equal(t, StateSendNak, pr.State)
			resp, ok := p.PendingResponse()
			require.True(t, ok)
			require.Equal(t, NAK, resp)
		})
	}
}

func TestParserControl(t *testing.T) {
	p := NewParser(nil)
	for _, b := range []byte{ACK, NAK, CAN, BLBeginUpload} {
		pr := p.Feed(b)
		require.Equal(t, EventControl, pr.Event)
		require.Equal(t, b, pr.Control)
		require.Equal(t, StateWaitStart, pr.State)
	}
	pr := p.Feed(0x42)
	require.Equal(t, EventNone, pr.Event)
	require.Equal(t, StateWaitStart, pr.State)
}

func TestParserAckPending(t *testing.T) {
	p := NewParser(nil)
	frame := mustEncode(t, TypeRequest, 0x04, 0x00, 0x02, 0x01, 0x20)

	p.ExpectAck()
	require.True(t, p.AwaitingAck())
	results := feed(p, frame[:len(frame)-1]...)
	require.Empty(t, results)
	pr := p.Feed(frame[len(frame)-1])
	require.Equal(t, EventNone, pr.Event)
	require.Equal(t, ErrAckPending, pr.Err)
	resp, ok := p.PendingResponse()
	require.True(t, ok)
	require.Equal(t, CAN, resp)
	p.ResponseSent()

	// the ACK from the peer ends the wait.
	results = feed(p, ACK)
	require.Len(t, results, 1)
	require.False(t, p.AwaitingAck())
	results = feed(p, frame...)
	require.Len(t, results, 1)
	require.Equal(t, EventFrameReady, results[0].Event)

	p.ExpectAck()
	p.ClearAckWait()
	require.False(t, p.AwaitingAck())
}

func TestParserBootloader(t *testing.T) {
	p := NewParser(nil)
	pr := p.Feed(BLMenu)
	require.Equal(t, EventBootloader, pr.Event)
	require.True(t, p.InBootloader())

	menu := []byte("\nGecko Bootloader v1.12.0\r\n1. upload gbl\r\nBL >\x00")
	results := feed(p, menu...)
	require.Len(t, results, 1)
	require.Equal(t, EventBootloaderData, results[0].Event)
	require.Equal(t, append([]byte{BLMenu}, menu...), results[0].Frame)

	// the sentinel is raw data while in bootloader mode.
	results = feed(p, BLMenu, SOF, 0x03, 0x01, 0x20, 0xdc)
	require.Empty(t, results)
	require.Equal(t, []byte{BLMenu, SOF, 0x03, 0x01, 0x20, 0xdc}, p.TakeBootloaderBytes())
	require.Nil(t, p.TakeBootloaderBytes())
	require.True(t, p.InBootloader())

	require.True(t, p.ExitBootloader())
	require.False(t, p.ExitBootloader())
	require.False(t, p.InBootloader())
	results = feed(p, 0x01, 0x03, 0x00, 0x20, 0xdc)
	require.Len(t, results, 1)
	require.Equal(t, EventFrameReady, results[0].Event)

	// entering again reports the event again.
	pr = p.Feed(BLMenu)
	require.Equal(t, EventBootloader, pr.Event)
}

func TestParserBootloaderFull(t *testing.T) {
	p := NewParser(NewFrameBuffer(8))
	results := feed(p, BLMenu, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	require.Len(t, results, 2)
	require.Equal(t, EventBootloader, results[0].Event)
	require.Equal(t, EventBootloaderData, results[1].Event)
	require.Equal(t, []byte{BLMenu, 1, 2, 3, 4, 5, 6, 7}, results[1].Frame)
	require.Equal(t, []byte{8, 9}, p.TakeBootloaderBytes())
}

func TestParserReset(t *testing.T) {
	p := NewParser(nil)
	feed(p, 0x01, 0x06, 0x00, 0x13, 0xee, 0xee)
	require.Equal(t, StateWaitPayload, p.State())
	p.Reset()
	require.Equal(t, StateWaitStart, p.State())
	require.Zero(t, p.buf.Len())

	frame := mustEncode(t, TypeResponse, 0x20, 0xc0, 0xff, 0xee, 0x42, 0x01)
	results := feed(p, frame...)
	require.Len(t, results, 1)
	require.Equal(t, frame, results[0].Frame)

	p.Feed(BLMenu)
	p.Reset()
	require.False(t, p.InBootloader())
}

func TestParserPendingResponseNotSent(t *testing.T) {
	p := NewParser(nil)
	for _, b := range []byte{0x01, 0x03, 0x00, 0x20, 0xdc} {
		p.Feed(b)
	}
	require.Equal(t, StateSendAck, p.State())
	pr := p.Feed(SOF)
	require.Equal(t, StateWaitLength, pr.State)
}

func TestParseStateString(t *testing.T) {
	require.Equal(t, "WAIT_START", StateWaitStart.String())
	require.Equal(t, "SEND_NAK", StateSendNak.String())
	require.Equal(t, "ParseState(42)", ParseState(42).String())
	require.True(t, StateSendCan.IsResponsePending())
	require.False(t, StateWaitChecksum.IsResponsePending())
}
