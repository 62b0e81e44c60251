package mqtt

import (
	"context"
	"encoding/json"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/zwproxy/pkg/api"
	"github.com/robotalks/zwproxy/pkg/api/comm"
	fx "github.com/robotalks/zwproxy/pkg/framework"
)

// RetryDelay is the delay between attempts to reach the broker.
var RetryDelay = 5 * time.Second

// Endpoint exposes the proxy on an MQTT broker. The retained meta topic
// announces the proxy and is cleared by the last will when it goes away.
// The whole broker acts as a single client session.
type Endpoint struct {
	Queue *Queue
	Info  api.ProxyInfo

	metaJSON []byte
	rw       *ReadWriter
	session  *comm.Session
}

// NewEndpoint creates an Endpoint.
func NewEndpoint(brokerURL string, info api.ProxyInfo) (*Endpoint, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+metaTopic(info.Ref), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("zwproxy:" + info.Ref.ID)
	}
	e := &Endpoint{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: meta,
	}
	e.Queue.OnConnect = func(*Queue) { e.publishMeta(e.metaJSON) }
	e.rw = NewPacketReadWriter(e.Queue).ForProxy(info.Ref)
	e.session = comm.NewSession("mqtt:"+info.Ref.Name(), e.rw)
	return e, nil
}

// Session returns the client session served over the broker.
func (e *Endpoint) Session() *comm.Session {
	return e.session
}

// AddToLoop implements LoopAdder.
func (e *Endpoint) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(e.rw, e)
}

// Run implements Runnable. The broker is retried until the first
// connection succeeds, the client reconnects by itself afterwards.
func (e *Endpoint) Run(ctx context.Context) error {
	for {
		err := e.Queue.ConnectAndWait()
		if err == nil {
			break
		}
		glog.Warningf("connect broker: %v", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(RetryDelay):
		}
	}
	glog.Infof("%s announced", e.Info.Ref.Name())
	// a malformed packet ends the session, serve again until canceled.
	for ctx.Err() == nil {
		if err := e.session.Run(ctx); err != nil {
			glog.Warningf("%s: %v", e.session.Name(), err)
		}
	}
	e.publishMeta(nil).Wait()
	e.Queue.Close()
	return nil
}

func (e *Endpoint) publishMeta(meta []byte) paho.Token {
	return e.Queue.PubWith(metaTopic(e.Info.Ref), meta, 1, true)
}

func metaTopic(ref api.ProxyRef) string {
	return ref.Name() + "/meta"
}
