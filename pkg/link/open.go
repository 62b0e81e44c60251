// Package link connects the proxy to the Z-Wave module.
package link

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"

	"go.bug.st/serial"
)

// DefaultBaudRate is the baud rate of the Z-Wave serial API.
const DefaultBaudRate = 115200

// OpenFunc opens a connection to the module.
type OpenFunc func(context.Context) (io.ReadWriteCloser, error)

// Opener creates an OpenFunc from a link URL:
//
//	serial:///dev/ttyUSB0?baud=115200
//	tcp://host:port
//
// A plain path is a serial port.
func Opener(linkURL string) (OpenFunc, error) {
	u, err := url.Parse(linkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %w", err)
	}
	switch u.Scheme {
	case "", "serial":
		path := u.Path
		if u.Scheme == "" {
			path = linkURL
		} else if u.Host != "" {
			path = u.Host + u.Path
		}
		mode := &serial.Mode{
			BaudRate: DefaultBaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		if val := u.Query().Get("baud"); val != "" {
			if mode.BaudRate, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid baud rate %q: %w", val, err)
			}
		}
		return func(context.Context) (io.ReadWriteCloser, error) {
			return serial.Open(path, mode)
		}, nil
	case "tcp":
		if u.Host == "" {
			return nil, fmt.Errorf("missing host in link URL %q", linkURL)
		}
		return func(ctx context.Context) (io.ReadWriteCloser, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", u.Host)
		}, nil
	}
	return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
}
