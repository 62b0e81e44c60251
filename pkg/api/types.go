// Package api defines how clients find and talk to a proxy.
package api

import (
	"context"

	fx "github.com/robotalks/zwproxy/pkg/framework"
)

// TopicRoot is the first topic level of every proxy on a broker.
const TopicRoot = "zwave"

// ProxyRef is a reference to a proxy instance.
type ProxyRef struct {
	// ID is unique ID of the proxy, the machine ID by default.
	ID string
}

// Name retrieves the name from ref.
func (r ProxyRef) Name() string {
	return TopicRoot + "/" + r.ID
}

// IsValid indicates ProxyRef is valid.
func (r ProxyRef) IsValid() bool {
	return r.ID != ""
}

// ProxyMeta provides metadata of a proxy.
type ProxyMeta struct {
	Description string            `json:"description,omitempty"`
	Link        string            `json:"link,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// ProxyInfo provides information of a proxy.
type ProxyInfo struct {
	Ref  ProxyRef
	Meta ProxyMeta
}

// Result represents result of a command.
type Result struct {
	Msg fx.Message
	Err error
}

// CommandFuture is the future of sent command.
type CommandFuture interface {
	ResultChan() <-chan Result
}

// Conn is a client connection to a proxy.
type Conn interface {
	// DoCommand executes a command.
	DoCommand(fx.Message) CommandFuture
	// SendEvent sends an event, e.g. a frame.
	SendEvent(fx.Message) error
}

// Connector is used by clients to find and connect to a proxy.
type Connector interface {
	// Discover enumerates registered proxies.
	Discover(context.Context) ([]ProxyInfo, error)
	// Connect connects to the specified proxy.
	Connect(context.Context, ProxyRef) (Conn, error)
}
