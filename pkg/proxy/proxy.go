// Package proxy relays Z-Wave frames between the serial link and a
// single subscribed client.
package proxy

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/zwproxy/pkg/framework"
	"github.com/robotalks/zwproxy/pkg/zwave"
)

// DefaultAckTimeout is how long the module gets to ACK a frame sent to it.
const DefaultAckTimeout = 1600 * time.Millisecond

// Options configures a Proxy.
type Options struct {
	// AckTimeout limits the wait for the ACK of a frame sent to the
	// module. Zero disables the limit.
	AckTimeout time.Duration
	// BufferSize limits the receive buffer, MaxFrameSize when zero.
	BufferSize int
	// Clock returns the current time, time.Now when nil.
	Clock func() time.Time
}

// DefaultOptions returns the default Options.
func DefaultOptions() Options {
	return Options{AckTimeout: DefaultAckTimeout}
}

// Proxy is the relay controller. All methods must be called from the
// loop goroutine.
type Proxy struct {
	link       Link
	parser     *zwave.Parser
	ackTimeout time.Duration
	clock      func() time.Time

	homeID       zwave.HomeID
	lastResponse byte
	subscriber   Client
	ackDeadline  time.Time
	started      bool
}

// New creates a Proxy on link.
func New(link Link, opts Options) *Proxy {
	p := &Proxy{
		link:       link,
		parser:     zwave.NewParser(zwave.NewFrameBuffer(opts.BufferSize)),
		ackTimeout: opts.AckTimeout,
		clock:      opts.Clock,
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	return p
}

// Start queries the network IDs so the home ID gets learned.
func (p *Proxy) Start() error {
	p.started = true
	return p.SendCommand(zwave.TypeRequest, zwave.CmdGetNetworkIDs, nil)
}

// HomeID returns the learned home ID, 0 if unknown.
func (p *Proxy) HomeID() uint32 {
	return p.homeID.Uint32()
}

// FeatureFlags returns the feature flags reported to clients.
func (p *Proxy) FeatureFlags() uint32 {
	return FeatureProxyEnabled
}

// InBootloader indicates the module is in bootloader mode.
func (p *Proxy) InBootloader() bool {
	return p.parser.InBootloader()
}

// Subscriber returns the subscribed client, nil if none.
func (p *Proxy) Subscriber() Client {
	return p.subscriber
}

// Parser exposes the parser state for inspection.
func (p *Proxy) Parser() *zwave.Parser {
	return p.parser
}

// StatusFor builds the Status reported to client.
func (p *Proxy) StatusFor(client Client) Status {
	return Status{
		HomeID:       p.HomeID(),
		FeatureFlags: p.FeatureFlags(),
		InBootloader: p.InBootloader(),
		Subscribed:   client != nil && client == p.subscriber,
	}
}

// ResetCache drops the partial frame and returns to waiting for a new
// one. The home ID is kept.
func (p *Proxy) ResetCache() {
	p.parser.Reset()
	p.ackDeadline = time.Time{}
	glog.V(2).Info("parser reset")
}

// ExitBootloader returns to normal framing after bootloader mode.
func (p *Proxy) ExitBootloader() bool {
	if !p.parser.ExitBootloader() {
		return false
	}
	glog.Info("bootloader mode left")
	return true
}

// Poll drains the bytes available on the link through the parser.
func (p *Proxy) Poll() error {
	var errs fx.AggregatedError
	for {
		b, ok := p.link.ReadAvailableByte()
		if !ok {
			break
		}
		glog.V(4).Infof("RX 0x%02X", b)
		pr := p.parser.Feed(b)
		if pr.Err != nil {
			glog.V(2).Infof("frame dropped: %v", pr.Err)
		}
		// the response goes out before the frame is relayed.
		if resp, ok := p.parser.PendingResponse(); ok {
			errs.Add(p.sendResponse(resp))
		}
		errs.Add(p.handleResult(pr))
	}
	if data := p.parser.TakeBootloaderBytes(); data != nil {
		errs.Add(p.deliver(data))
	}
	return errs.Aggregate()
}

func (p *Proxy) sendResponse(resp byte) error {
	err := p.link.WriteBytes([]byte{resp})
	p.parser.ResponseSent()
	if err != nil {
		return fmt.Errorf("send %s: %w", zwave.ControlName(resp), err)
	}
	p.lastResponse = resp
	glog.V(2).Infof("TX %s", zwave.ControlName(resp))
	return nil
}

func (p *Proxy) handleResult(pr zwave.ParseResult) error {
	switch pr.Event {
	case zwave.EventFrameReady:
		if glog.V(2) {
			glog.Infof("RX [%s]", zwave.FormatHex(pr.Frame, ' '))
		}
		if id, ok := zwave.NetworkIDsFrom(pr.Frame); ok {
			p.learnHomeID(id)
		}
		return p.deliver(pr.Frame)
	case zwave.EventControl:
		glog.V(2).Infof("RX %s", zwave.ControlName(pr.Control))
		return p.deliver([]byte{pr.Control})
	case zwave.EventBootloader:
		glog.Info("bootloader mode entered")
		p.ackDeadline = time.Time{}
		p.parser.ClearAckWait()
		return p.notify()
	case zwave.EventBootloaderData:
		return p.deliver(pr.Frame)
	}
	return nil
}

func (p *Proxy) learnHomeID(id zwave.HomeID) {
	if id == p.homeID {
		return
	}
	p.homeID = id
	glog.Infof("home ID %s", id)
	if err := p.notify(); err != nil {
		glog.Warning(err)
	}
}

func (p *Proxy) deliver(data []byte) error {
	if p.subscriber == nil {
		glog.V(4).Infof("no subscriber, %d bytes dropped", len(data))
		return nil
	}
	if err := p.subscriber.DeliverFrame(data); err != nil {
		return fmt.Errorf("deliver to %s: %w", p.subscriber.Name(), err)
	}
	return nil
}

func (p *Proxy) notify() error {
	if p.subscriber == nil {
		return nil
	}
	if err := p.subscriber.DeliverStatus(p.StatusFor(p.subscriber)); err != nil {
		return fmt.Errorf("notify %s: %w", p.subscriber.Name(), err)
	}
	return nil
}

// SendFrame writes raw client bytes to the module. A single byte equal
// to the last response the proxy sent itself is skipped, as the module
// already got it.
func (p *Proxy) SendFrame(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyFrame
	}
	if len(data) == 1 && zwave.IsResponse(data[0]) && data[0] == p.lastResponse {
		glog.V(2).Infof("skip duplicated %s", zwave.ControlName(data[0]))
		return nil
	}
	return p.write(data)
}

// SendCommand builds a data frame and writes it to the module.
func (p *Proxy) SendCommand(typ, cmd byte, payload []byte) error {
	frame, err := zwave.EncodeFrame(typ, cmd, payload)
	if err != nil {
		return err
	}
	return p.write(frame)
}

func (p *Proxy) write(data []byte) error {
	if glog.V(2) {
		glog.Infof("TX [%s]", zwave.FormatHex(data, ' '))
	}
	if err := p.link.WriteBytes(data); err != nil {
		return fmt.Errorf("write link: %w", err)
	}
	if data[0] == zwave.SOF && !p.parser.InBootloader() {
		p.parser.ExpectAck()
		if p.ackTimeout > 0 {
			p.ackDeadline = p.clock().Add(p.ackTimeout)
		}
	}
	return nil
}

// ExpireAckWait stops waiting for the ACK once the deadline passed.
func (p *Proxy) ExpireAckWait(now time.Time) bool {
	if !p.parser.AwaitingAck() || p.ackDeadline.IsZero() || now.Before(p.ackDeadline) {
		return false
	}
	p.parser.ClearAckWait()
	p.ackDeadline = time.Time{}
	glog.Warning("no ACK from module")
	return true
}

// Request handles a client request and returns the resulting Status
// for the client.
func (p *Proxy) Request(client Client, typ RequestType) (Status, error) {
	switch typ {
	case RequestSubscribe:
		if p.subscriber != nil && p.subscriber != client {
			return Status{}, ErrAlreadySubscribed
		}
		if p.subscriber == nil {
			glog.Infof("%s subscribed", client.Name())
		}
		p.subscriber = client
	case RequestUnsubscribe:
		if p.subscriber != client {
			return Status{}, ErrNotSubscribed
		}
		p.subscriber = nil
		glog.Infof("%s unsubscribed", client.Name())
	case RequestQueryStatus:
	case RequestResetCache:
		if err := p.checkOwner(client); err != nil {
			return Status{}, err
		}
		p.ResetCache()
	case RequestExitBootloader:
		if err := p.checkOwner(client); err != nil {
			return Status{}, err
		}
		p.ExitBootloader()
	default:
		return Status{}, fmt.Errorf("%w: %v", ErrUnknownRequest, typ)
	}
	return p.StatusFor(client), nil
}

// checkOwner rejects changes from a client while another one is subscribed.
func (p *Proxy) checkOwner(client Client) error {
	if p.subscriber != nil && p.subscriber != client {
		return ErrNotSubscribed
	}
	return nil
}

// ClientClosed drops the subscription held by client.
func (p *Proxy) ClientClosed(client Client) {
	if p.subscriber == client {
		p.subscriber = nil
		glog.Infof("%s closed, subscription dropped", client.Name())
	}
}

// Control implements Controller.
func (p *Proxy) Control(cc fx.ControlContext) error {
	var errs fx.AggregatedError
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		switch m := mctx.CurrentMessage().(type) {
		case *FrameMsg:
			mctx.MessageTaken()
			errs.Add(p.handleFrameMsg(m))
		case *RequestMsg:
			mctx.MessageTaken()
			status, err := p.Request(m.Client, m.Type)
			if err != nil {
				glog.Warningf("%s %s: %v", m.Client.Name(), m.Type, err)
			}
			if m.Done != nil {
				m.Done(status, err)
			} else if err == nil {
				errs.Add(m.Client.DeliverStatus(status))
			}
		case *ClientClosedMsg:
			mctx.MessageTaken()
			p.ClientClosed(m.Client)
		case *LinkStateMsg:
			mctx.MessageTaken()
			errs.Add(p.handleLinkState(m))
		}
	}))
	if !p.started {
		errs.Add(p.Start())
	}
	errs.Add(p.Poll())
	p.ExpireAckWait(cc.Time())
	return errs.Aggregate()
}

func (p *Proxy) handleFrameMsg(m *FrameMsg) error {
	if err := p.checkOwner(m.Client); err != nil {
		return fmt.Errorf("frame from %s: %w", m.Client.Name(), err)
	}
	return p.SendFrame(m.Data)
}

func (p *Proxy) handleLinkState(m *LinkStateMsg) error {
	p.ResetCache()
	if !m.Connected {
		glog.Warning("link lost")
		return nil
	}
	glog.Info("link connected")
	return p.Start()
}

// AddToLoop implements LoopAdder.
func (p *Proxy) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvControl, p)
}
