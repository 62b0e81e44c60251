package proxy

import (
	"fmt"

	fx "github.com/robotalks/zwproxy/pkg/framework"
)

// Link is the serial link to the Z-Wave module.
type Link interface {
	// ReadAvailableByte returns the next received byte without blocking.
	ReadAvailableByte() (byte, bool)
	// WriteBytes writes raw bytes to the module.
	WriteBytes([]byte) error
}

// Client is a remote client of the proxy.
type Client interface {
	fx.Named
	// DeliverFrame sends bytes received from the module. The slice is
	// only valid during the call.
	DeliverFrame([]byte) error
	// DeliverStatus sends the proxy status.
	DeliverStatus(Status) error
}

// FeatureProxyEnabled is reported in Status.FeatureFlags.
const FeatureProxyEnabled uint32 = 1

// Status is reported to clients.
type Status struct {
	HomeID       uint32
	FeatureFlags uint32
	InBootloader bool
	// Subscribed tells whether the receiving client is the subscriber.
	Subscribed bool
}

// RequestType enumerates the client requests.
type RequestType int

// Request types.
const (
	RequestSubscribe RequestType = iota + 1
	RequestUnsubscribe
	RequestQueryStatus
	RequestResetCache
	RequestExitBootloader
)

// String implements fmt.Stringer.
func (t RequestType) String() string {
	switch t {
	case RequestSubscribe:
		return "SUBSCRIBE"
	case RequestUnsubscribe:
		return "UNSUBSCRIBE"
	case RequestQueryStatus:
		return "QUERY_STATUS"
	case RequestResetCache:
		return "RESET_CACHE"
	case RequestExitBootloader:
		return "EXIT_BOOTLOADER"
	}
	return fmt.Sprintf("RequestType(%d)", int(t))
}

// FrameMsg carries raw bytes from a client to the module.
type FrameMsg struct {
	Client Client
	Data   []byte
}

// NewMessage implements Message.
func (m *FrameMsg) NewMessage() fx.Message { return &FrameMsg{} }

// RequestMsg carries a client request.
type RequestMsg struct {
	Client Client
	Type   RequestType
	// Done is called with the result once the request is processed.
	// Without Done, the Status is delivered to the client.
	Done func(Status, error)
}

// NewMessage implements Message.
func (m *RequestMsg) NewMessage() fx.Message { return &RequestMsg{} }

// ClientClosedMsg is posted when a client connection is gone.
type ClientClosedMsg struct {
	Client Client
}

// NewMessage implements Message.
func (m *ClientClosedMsg) NewMessage() fx.Message { return &ClientClosedMsg{} }

// LinkStateMsg is posted when the link to the module is (re)opened or lost.
type LinkStateMsg struct {
	Connected bool
}

// NewMessage implements Message.
func (m *LinkStateMsg) NewMessage() fx.Message { return &LinkStateMsg{} }
