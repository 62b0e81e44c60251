package zwave

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
)

// ParseState is the position of the parser within a frame.
type ParseState int

// Parser states.
const (
	StateWaitStart     ParseState = iota // waiting for SOF or a control byte
	StateWaitLength                      // waiting for LEN
	StateWaitType                        // waiting for TYPE
	StateWaitCommandID                   // waiting for CMD
	StateWaitPayload                     // waiting for payload bytes
	StateWaitChecksum                    // waiting for CHECKSUM
	StateSendAck                         // frame accepted, ACK pending
	StateSendCan                         // frame cancelled, CAN pending
	StateSendNak                         // frame rejected, NAK pending
	StateBootloader                      // raw bootloader bytes
)

var stateNames = [...]string{
	StateWaitStart:     "WAIT_START",
	StateWaitLength:    "WAIT_LENGTH",
	StateWaitType:      "WAIT_TYPE",
	StateWaitCommandID: "WAIT_COMMAND_ID",
	StateWaitPayload:   "WAIT_PAYLOAD",
	StateWaitChecksum:  "WAIT_CHECKSUM",
	StateSendAck:       "SEND_ACK",
	StateSendCan:       "SEND_CAN",
	StateSendNak:       "SEND_NAK",
	StateBootloader:    "BOOTLOADER",
}

// String implements fmt.Stringer.
func (s ParseState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("ParseState(%d)", int(s))
}

// IsResponsePending indicates a link-layer response must be sent.
func (s ParseState) IsResponsePending() bool {
	return s == StateSendAck || s == StateSendCan || s == StateSendNak
}

// Event is what a parsed byte produced.
type Event int

// Parse events.
const (
	// EventNone means the byte was consumed without completing anything.
	EventNone Event = iota
	// EventFrameReady means a valid data frame is in ParseResult.Frame.
	EventFrameReady
	// EventControl means a single-byte frame is in ParseResult.Control.
	EventControl
	// EventBootloader means the module entered bootloader mode.
	EventBootloader
	// EventBootloaderData means raw bootloader bytes are in ParseResult.Frame.
	EventBootloaderData
)

// ErrAckPending is reported when a data frame arrives while the peer
// still owes an ACK.
var ErrAckPending = errors.New("data frame received while waiting for ACK")

const menuTerminator byte = 0x00

// ParseResult indicates the result after one parsing step.
type ParseResult struct {
	Event   Event
	State   ParseState
	Control byte
	// Frame is a view of the receive buffer, valid until the next Feed.
	Frame []byte
	// Err tells why a frame was discarded.
	Err error
}

// Parser reconstructs frames from the link one byte at a time.
// It is not safe for concurrent use.
type Parser struct {
	buf          *FrameBuffer
	state        ParseState
	inBootloader bool
	awaitingAck  bool
	restart      bool
}

// NewParser creates a Parser writing into buf.
func NewParser(buf *FrameBuffer) *Parser {
	if buf == nil {
		buf = NewFrameBuffer(MaxFrameSize)
	}
	return &Parser{buf: buf}
}

// State gets the current state.
func (p *Parser) State() ParseState {
	return p.state
}

// InBootloader indicates the module is in bootloader mode.
func (p *Parser) InBootloader() bool {
	return p.inBootloader
}

// Capacity returns the capacity of the receive buffer.
func (p *Parser) Capacity() int {
	return p.buf.Capacity()
}

// Reset drops any partial frame and pending response, and
// leaves bootloader mode.
func (p *Parser) Reset() {
	p.buf.Reset()
	p.state = StateWaitStart
	p.inBootloader, p.awaitingAck, p.restart = false, false, false
}

// ExitBootloader leaves bootloader mode, dropping pass-through bytes.
func (p *Parser) ExitBootloader() bool {
	if !p.inBootloader {
		return false
	}
	p.inBootloader, p.restart = false, false
	p.buf.Reset()
	p.state = StateWaitStart
	return true
}

// ExpectAck records that a data frame was sent and the peer owes an ACK.
func (p *Parser) ExpectAck() {
	p.awaitingAck = true
}

// AwaitingAck indicates the peer owes an ACK.
func (p *Parser) AwaitingAck() bool {
	return p.awaitingAck
}

// ClearAckWait gives up waiting for the ACK.
func (p *Parser) ClearAckWait() {
	p.awaitingAck = false
}

// PendingResponse returns the response to send for the last frame.
func (p *Parser) PendingResponse() (byte, bool) {
	switch p.state {
	case StateSendAck:
		return ACK, true
	case StateSendCan:
		return CAN, true
	case StateSendNak:
		return NAK, true
	}
	return 0, false
}

// ResponseSent moves on after the pending response is written.
func (p *Parser) ResponseSent() {
	if p.state.IsResponsePending() {
		p.state = StateWaitStart
	}
}

// TakeBootloaderBytes returns the pass-through bytes not reported yet.
func (p *Parser) TakeBootloaderBytes() []byte {
	if p.state != StateBootloader || p.restart || p.buf.Len() == 0 {
		return nil
	}
	return p.buf.Take()
}

// Feed consumes one byte.
func (p *Parser) Feed(b byte) (pr ParseResult) {
	pr = p.parseByte(b)
	pr.State = p.state
	return
}

func (p *Parser) parseByte(b byte) (pr ParseResult) {
	if p.restart {
		p.buf.Reset()
		p.restart = false
	}
	switch p.state {
	case StateWaitStart:
		return p.parseStart(b)
	case StateSendAck, StateSendCan, StateSendNak:
		glog.Warningf("%s not sent before next byte", p.state)
		p.state = StateWaitStart
		return p.parseStart(b)
	case StateWaitLength:
		l := int(b)
		if l < MinFrameLength {
			p.buf.Reset()
			p.state = StateSendNak
			pr.Err = &FramingError{Reason: "invalid length", Value: b}
			return
		}
		// LEN itself and the LEN bytes following it.
		if !p.buf.Fits(l + 1) {
			p.buf.Reset()
			p.state = StateWaitStart
			pr.Err = &FramingError{Reason: "length exceeds buffer", Value: b}
			return
		}
		p.buf.MarkEnd(l)
		p.buf.Append(b)
		p.state = StateWaitType
	case StateWaitType:
		p.buf.Append(b)
		p.state = StateWaitCommandID
	case StateWaitCommandID:
		p.buf.Append(b)
		if p.buf.PayloadDone() {
			p.state = StateWaitChecksum
		} else {
			p.state = StateWaitPayload
		}
	case StateWaitPayload:
		p.buf.Append(b)
		if p.buf.PayloadDone() {
			p.state = StateWaitChecksum
		}
	case StateWaitChecksum:
		if cs := Checksum(p.buf.Bytes()); cs != b {
			p.buf.Reset()
			p.state = StateSendNak
			pr.Err = &FramingError{Reason: fmt.Sprintf("bad checksum, expect 0x%02X", cs), Value: b}
			return
		}
		p.buf.Append(b)
		if p.awaitingAck {
			p.buf.Reset()
			p.state = StateSendCan
			pr.Err = ErrAckPending
			return
		}
		p.state = StateSendAck
		pr.Event, pr.Frame = EventFrameReady, p.buf.Bytes()
	case StateBootloader:
		p.buf.Append(b)
		if b == menuTerminator || p.buf.Full() {
			pr.Event, pr.Frame = EventBootloaderData, p.buf.Bytes()
			p.restart = true
		}
	default:
		glog.Warningf("bad parser state %v, resetting", p.state)
		p.buf.Reset()
		p.state = StateWaitStart
	}
	return
}

func (p *Parser) parseStart(b byte) (pr ParseResult) {
	p.buf.Reset()
	switch b {
	case SOF:
		p.buf.Append(b)
		p.state = StateWaitLength
	case BLMenu:
		p.inBootloader = true
		p.buf.Append(b)
		p.state = StateBootloader
		pr.Event = EventBootloader
	case ACK, NAK, CAN:
		p.awaitingAck = false
		pr.Event, pr.Control = EventControl, b
	case BLBeginUpload:
		pr.Event, pr.Control = EventControl, b
	default:
		glog.V(4).Infof("discard 0x%02X at %s", b, StateWaitStart)
	}
	return
}
