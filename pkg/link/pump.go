package link

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/zwproxy/pkg/framework"
	"github.com/robotalks/zwproxy/pkg/proxy"
)

// ErrNotConnected is returned when writing while the link is down.
var ErrNotConnected = errors.New("link not connected")

// Defaults of Pump.
const (
	DefaultReconnectDelay = 2 * time.Second
	DefaultQueueSize      = 4096
)

var _ proxy.Link = (*Pump)(nil)

// Pump reads the link in the background and queues the bytes for
// the loop. It implements proxy.Link.
type Pump struct {
	Open           OpenFunc
	ReconnectDelay time.Duration

	rxCh chan byte
	conn io.ReadWriteCloser
	lock sync.Mutex
}

// NewPump creates a Pump.
func NewPump(open OpenFunc) *Pump {
	return &Pump{
		Open:           open,
		ReconnectDelay: DefaultReconnectDelay,
		rxCh:           make(chan byte, DefaultQueueSize),
	}
}

// Name implements Named.
func (p *Pump) Name() string {
	return "link"
}

// ReadAvailableByte implements proxy.Link.
func (p *Pump) ReadAvailableByte() (byte, bool) {
	select {
	case b := <-p.rxCh:
		return b, true
	default:
		return 0, false
	}
}

// WriteBytes implements proxy.Link.
func (p *Pump) WriteBytes(data []byte) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.conn == nil {
		return ErrNotConnected
	}
	_, err := p.conn.Write(data)
	return err
}

// Run implements Runnable.
func (p *Pump) Run(ctx context.Context) error {
	loopCtl := fx.LoopCtlFrom(ctx)
	for {
		conn, err := p.Open(ctx)
		if err != nil {
			glog.Errorf("open link: %v", err)
		} else {
			p.drain()
			p.setConn(conn)
			loopCtl.PostMessage(&proxy.LinkStateMsg{Connected: true})
			loopCtl.TriggerNext()
			err = fx.RunWithContextCloser(ctx, conn, func() error {
				return p.readLoop(ctx, loopCtl, conn)
			})
			p.setConn(nil)
			loopCtl.PostMessage(&proxy.LinkStateMsg{Connected: false})
			loopCtl.TriggerNext()
			if err != nil && err != context.Canceled {
				glog.Errorf("link error: %v", err)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.ReconnectDelay):
		}
	}
}

func (p *Pump) setConn(conn io.ReadWriteCloser) {
	p.lock.Lock()
	p.conn = conn
	p.lock.Unlock()
}

func (p *Pump) drain() {
	for {
		select {
		case <-p.rxCh:
		default:
			return
		}
	}
}

func (p *Pump) readLoop(ctx context.Context, loopCtl fx.LoopControl, r io.Reader) error {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			select {
			case p.rxCh <- b:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if n > 0 {
			loopCtl.TriggerNext()
		}
		if err != nil {
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
}

// AddToLoop implements LoopAdder.
func (p *Pump) AddToLoop(l *fx.Loop) {
	l.AddRunnable(p)
}
