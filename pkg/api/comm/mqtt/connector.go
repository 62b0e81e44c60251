package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/zwproxy/pkg/api"
	"github.com/robotalks/zwproxy/pkg/api/comm"
)

// Connector implements api.Connector using MQTT.
type Connector struct {
	DiscoverTimeout time.Duration

	brokerURL string
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	if _, _, err := ClientOptionsFromURL(brokerURL); err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		brokerURL:       brokerURL,
	}, nil
}

// InfoFromMeta parses a retained meta message. ok is false when the
// topic isn't a meta topic or the proxy is gone.
func InfoFromMeta(topic string, payload []byte) (info api.ProxyInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[0] != api.TopicRoot || items[2] != "meta" || len(payload) == 0 {
		return
	}
	info.Ref.ID = items[1]
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.V(2).Infof("bad meta %q: %v", topic, err)
	}
	return info, true
}

// Discover implements Connector.
func (c *Connector) Discover(ctx context.Context) (res []api.ProxyInfo, err error) {
	q, err := NewQueueFromURL(c.brokerURL)
	if err != nil {
		return nil, err
	}
	if err = q.ConnectAndWait(); err != nil {
		return nil, err
	}
	defer q.Close()
	resCh := make(chan api.ProxyInfo, 16)
	sub := q.Sub(api.TopicRoot+"/+/meta", Handler(func(topic string, payload []byte) {
		if info, ok := InfoFromMeta(topic, payload); ok {
			select {
			case resCh <- info:
			case <-time.After(time.Second):
			}
		}
	}))
	defer sub.Close()

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	seen := make(map[string]bool)
	for {
		select {
		case info := <-resCh:
			// retained messages come again when the topic is resubscribed.
			if !seen[info.Ref.ID] {
				seen[info.Ref.ID] = true
				res = append(res, info)
			}
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Connect implements Connector.
func (c *Connector) Connect(ctx context.Context, ref api.ProxyRef) (api.Conn, error) {
	q, err := NewQueueFromURL(c.brokerURL)
	if err != nil {
		return nil, err
	}
	conn := &Conn{Queue: q, rw: NewPacketReadWriter(q).ForClient(ref)}
	conn.Init(conn.rw)
	if err := q.ConnectAndWait(); err != nil {
		return nil, err
	}
	return conn, nil
}

// Conn is a client connection over MQTT.
type Conn struct {
	comm.Conn
	Queue *Queue

	rw *ReadWriter
}

// Close disconnects from the broker.
func (c *Conn) Close() error {
	return c.Queue.Close()
}
