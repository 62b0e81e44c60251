package comm

import (
	"context"
	"errors"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/zwproxy/pkg/api/msgs"
	fx "github.com/robotalks/zwproxy/pkg/framework"
	"github.com/robotalks/zwproxy/pkg/proxy"
)

var _ proxy.Client = (*Session)(nil)

// Session serves one client connection. Received messages are posted
// to the loop, and it implements proxy.Client.
type Session struct {
	name string
	pipe Pipe
}

// NewSession creates a Session.
func NewSession(name string, rw PacketReadWriter) *Session {
	s := &Session{name: name}
	s.pipe.ReadWriter = rw
	s.pipe.Handler = msgs.HandleTypedMsgFunc(s.handleTypedMsg)
	return s
}

// Name implements Named.
func (s *Session) Name() string {
	return s.name
}

// DeliverFrame implements proxy.Client.
func (s *Session) DeliverFrame(data []byte) error {
	return s.pipe.SendEventMsg(&msgs.ZWaveFrame{Data: data})
}

// DeliverStatus implements proxy.Client.
func (s *Session) DeliverStatus(status proxy.Status) error {
	return s.pipe.SendEventMsg(&msgs.ZWaveStatusEvent{ZWaveStatus: StatusMsg(status)})
}

// Run implements Runnable. It returns nil when the client goes away.
func (s *Session) Run(ctx context.Context) error {
	loopCtl := fx.LoopCtlFrom(ctx)
	glog.Infof("%s connected", s.name)
	err := fx.RunWithContextCloser(ctx, &s.pipe, func() error {
		return s.pipe.Run(ctx)
	})
	loopCtl.PostMessage(&proxy.ClientClosedMsg{Client: s})
	loopCtl.TriggerNext()
	if err == io.EOF || errors.Is(err, context.Canceled) {
		err = nil
	}
	glog.Infof("%s disconnected: %v", s.name, err)
	return err
}

func (s *Session) handleTypedMsg(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	loopCtl := fx.LoopCtlFrom(ctx)
	switch m := msg.(type) {
	case *msgs.ZWaveFrame:
		loopCtl.PostMessage(&proxy.FrameMsg{Client: s, Data: m.Data})
	case *msgs.ZWaveRequest:
		seq := typed.Sequence
		loopCtl.PostMessage(&proxy.RequestMsg{
			Client: s,
			Type:   proxy.RequestType(m.Type),
			Done: func(status proxy.Status, err error) {
				s.reply(seq, status, err)
			},
		})
	default:
		if typed.IsCommand() && !typed.IsReply() {
			return s.pipe.SendCommandMsg(msgs.NewCommandErr(msgs.ErrUnsupportedCommand), typed.Sequence)
		}
		return nil
	}
	loopCtl.TriggerNext()
	return nil
}

func (s *Session) reply(seq uint32, status proxy.Status, err error) {
	var msg fx.Message
	if err != nil {
		msg = msgs.NewCommandErr(err)
	} else {
		st := StatusMsg(status)
		msg = &st
	}
	if err := s.pipe.SendCommandMsg(msg, seq); err != nil {
		glog.Warningf("%s reply: %v", s.name, err)
	}
}

// StatusMsg converts proxy.Status to its wire form.
func StatusMsg(status proxy.Status) msgs.ZWaveStatus {
	return msgs.ZWaveStatus{
		HomeId:       status.HomeID,
		FeatureFlags: status.FeatureFlags,
		InBootloader: status.InBootloader,
		Subscribed:   status.Subscribed,
	}
}
