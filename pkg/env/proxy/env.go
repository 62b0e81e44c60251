// Package proxy sets up the environment of the proxy daemon.
package proxy

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/zwproxy/pkg/api"
	"github.com/robotalks/zwproxy/pkg/api/comm/mqtt"
	"github.com/robotalks/zwproxy/pkg/api/server"
	"github.com/robotalks/zwproxy/pkg/env"
	fx "github.com/robotalks/zwproxy/pkg/framework"
	"github.com/robotalks/zwproxy/pkg/link"
	zwproxy "github.com/robotalks/zwproxy/pkg/proxy"
)

// Config provides the options of the proxy daemon.
type Config struct {
	Info api.ProxyInfo

	// Link is the Z-Wave module, e.g. /dev/ttyUSB0,
	// serial:///dev/ttyACM0?baud=115200 or tcp://host:port.
	Link string
	// Listen is the TCP address for clients, empty disables.
	Listen string
	// WebSocketListen is the HTTP address for WebSocket clients, empty disables.
	WebSocketListen string
	// MQTTBrokerURL specifies the MQTT broker to announce on, empty disables.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string

	AckTimeout     time.Duration
	ReconnectDelay time.Duration
	BufferSize     int
}

// DefaultListen is the default TCP address for clients.
const DefaultListen = ":4196"

var defaultConfig = Config{
	Info: api.ProxyInfo{
		Meta: api.ProxyMeta{Description: "Z-Wave serial proxy"},
	},
	Link:           "/dev/ttyUSB0",
	Listen:         DefaultListen,
	AckTimeout:     zwproxy.DefaultAckTimeout,
	ReconnectDelay: link.DefaultReconnectDelay,
}

func init() {
	if val := os.Getenv("ZWPROXY_LINK"); val != "" {
		defaultConfig.Link = val
	}
	if val, ok := os.LookupEnv("ZWPROXY_LISTEN"); ok {
		defaultConfig.Listen = val
	}
	if val := os.Getenv("ZWPROXY_WS_LISTEN"); val != "" {
		defaultConfig.WebSocketListen = val
	}
	if val := os.Getenv("ZWPROXY_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("ZWPROXY_ID"); val != "" {
		defaultConfig.Info.Ref.ID = val
	} else {
		defaultConfig.Info.Ref.ID = env.MachineID("zwproxy")
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Proxy ID")
	flag.StringVar(&defaultConfig.Info.Meta.Description, "desc", defaultConfig.Info.Meta.Description, "Proxy description")
	flag.StringVar(&defaultConfig.Link, "link", defaultConfig.Link, "Z-Wave module link")
	flag.StringVar(&defaultConfig.Listen, "listen", defaultConfig.Listen, "TCP address for clients")
	flag.StringVar(&defaultConfig.WebSocketListen, "ws-listen", defaultConfig.WebSocketListen, "HTTP address for WebSocket clients")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.DurationVar(&defaultConfig.AckTimeout, "ack-timeout", defaultConfig.AckTimeout, "Wait for ACK from module, 0 to wait forever")
	flag.DurationVar(&defaultConfig.ReconnectDelay, "reconnect-delay", defaultConfig.ReconnectDelay, "Delay before reopening the link")
	flag.IntVar(&defaultConfig.BufferSize, "buffer-size", defaultConfig.BufferSize, "Receive buffer size, 0 for the largest frame")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is the running environment of the proxy.
type Env struct {
	Config   *Config
	Pump     *link.Pump
	Proxy    *zwproxy.Proxy
	Servers  []fx.LoopAdder
	Endpoint *mqtt.Endpoint
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	open, err := link.Opener(c.Link)
	if err != nil {
		return nil, fmt.Errorf("invalid link %q: %w", c.Link, err)
	}
	c.Info.Meta.Link = c.Link
	e := &Env{Config: c, Pump: link.NewPump(open)}
	if c.ReconnectDelay > 0 {
		e.Pump.ReconnectDelay = c.ReconnectDelay
	}
	opts := zwproxy.DefaultOptions()
	opts.AckTimeout = c.AckTimeout
	opts.BufferSize = c.BufferSize
	e.Proxy = zwproxy.New(e.Pump, opts)

	if c.Listen != "" {
		srv, err := server.ListenTCP(c.Listen)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", c.Listen, err)
		}
		e.Servers = append(e.Servers, srv)
	}
	if c.WebSocketListen != "" {
		srv, err := server.ListenWebSocket(c.WebSocketListen)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", c.WebSocketListen, err)
		}
		e.Servers = append(e.Servers, srv)
	}
	if c.MQTTBrokerURL != "" {
		if !c.Info.Ref.IsValid() {
			return nil, fmt.Errorf("proxy id must be specified for MQTT")
		}
		if e.Endpoint, err = mqtt.NewEndpoint(c.MQTTBrokerURL, c.Info); err != nil {
			return nil, fmt.Errorf("create MQTT endpoint error: %w", err)
		}
		e.Servers = append(e.Servers, e.Endpoint)
	}
	if len(e.Servers) == 0 {
		return nil, fmt.Errorf("at least one client endpoint is required")
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		glog.Exit(err)
	}
	return e
}

// AddToLoop adds controllers/runners to loop.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Pump, e.Proxy)
	loop.Add(e.Servers...)
	loop.Add(fx.DropUnhandled{})
}
