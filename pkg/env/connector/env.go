// Package connector sets up connections from clients to a proxy.
package connector

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/zwproxy/pkg/api"
	"github.com/robotalks/zwproxy/pkg/api/comm"
	"github.com/robotalks/zwproxy/pkg/api/comm/mqtt"
	"github.com/robotalks/zwproxy/pkg/api/comm/stream"
	"github.com/robotalks/zwproxy/pkg/api/comm/websocket"
)

// Config provides common options to setup Connectors.
type Config struct {
	Ref api.ProxyRef

	// URL locates the proxy, e.g. tcp://host:4196, ws://host/zwave
	// or mqtt://host:port/topic-prefix.
	URL string
}

var defaultConfig = Config{
	URL: "tcp://localhost:4196",
}

func init() {
	if val := os.Getenv("ZWPROXY_ID"); val != "" {
		defaultConfig.Ref.ID = val
	}
	if val := os.Getenv("ZWPROXY_URL"); val != "" {
		defaultConfig.URL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.ID, "proxy-id", defaultConfig.Ref.ID, "Proxy ID to connect, required for MQTT.")
	flag.StringVar(&defaultConfig.URL, "proxy-url", defaultConfig.URL, "Proxy URL.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a Connector using current config.
func (c *Config) NewConnector() (api.Connector, error) {
	return NewConnector(c.URL)
}

// NewConnector creates a Connector from a URL.
func NewConnector(proxyURL string) (api.Connector, error) {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	switch parsedURL.Scheme {
	case "mqtt", "mqtts":
		return mqtt.NewConnector(proxyURL)
	case "tcp":
		return &directConnector{url: parsedURL, dial: dialTCP}, nil
	case "ws", "wss":
		return &directConnector{url: parsedURL, dial: dialWebSocket}, nil
	default:
		return nil, fmt.Errorf("unknown proxy URL scheme: %q", parsedURL.Scheme)
	}
}

// MustNewConnector creates a Connector and fails on error.
func (c *Config) MustNewConnector() api.Connector {
	conn, err := c.NewConnector()
	if err != nil {
		glog.Exit(err)
	}
	return conn
}

// Connect directly connects to the proxy.
func (c *Config) Connect(ctx context.Context) (api.Conn, error) {
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	return connector.Connect(ctx, c.Ref)
}

type dialFunc func(ctx context.Context, u *url.URL) (comm.PacketReadWriter, error)

// directConnector reaches a single proxy by its address.
type directConnector struct {
	url  *url.URL
	dial dialFunc
}

func (c *directConnector) Discover(context.Context) ([]api.ProxyInfo, error) {
	return []api.ProxyInfo{{
		Ref:  api.ProxyRef{ID: c.url.Host},
		Meta: api.ProxyMeta{Link: c.url.String()},
	}}, nil
}

func (c *directConnector) Connect(ctx context.Context, _ api.ProxyRef) (api.Conn, error) {
	rw, err := c.dial(ctx, c.url)
	if err != nil {
		return nil, err
	}
	return comm.NewConn(rw), nil
}

func dialTCP(ctx context.Context, u *url.URL) (comm.PacketReadWriter, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		return nil, err
	}
	return stream.New(conn), nil
}

func dialWebSocket(_ context.Context, u *url.URL) (comm.PacketReadWriter, error) {
	return websocket.Dial(u.String())
}
