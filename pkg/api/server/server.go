// Package server accepts client connections for the proxy.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/zwproxy/pkg/api/comm"
	"github.com/robotalks/zwproxy/pkg/api/comm/stream"
	wsrw "github.com/robotalks/zwproxy/pkg/api/comm/websocket"
	fx "github.com/robotalks/zwproxy/pkg/framework"
)

// serve runs a session until the client goes away.
func serve(ctx context.Context, name string, rw comm.PacketReadWriter) {
	if err := comm.NewSession(name, rw).Run(ctx); err != nil {
		glog.Warningf("%s: %v", name, err)
	}
}

// TCPServer serves clients over TCP using length prefixed packets.
type TCPServer struct {
	listener net.Listener
	wg       sync.WaitGroup
}

// ListenTCP creates a TCPServer listening on addr.
func ListenTCP(addr string) (*TCPServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPServer{listener: ln}, nil
}

// Addr returns the listening address.
func (s *TCPServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Name implements Named.
func (s *TCPServer) Name() string {
	return "tcp:" + s.Addr().String()
}

// Run implements Runnable.
func (s *TCPServer) Run(ctx context.Context) error {
	glog.Infof("listening on %s", s.Addr())
	defer s.wg.Wait()
	return fx.RunWithContextCloser(ctx, s.listener, func() error {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				return err
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				serve(ctx, "tcp:"+conn.RemoteAddr().String(), stream.New(conn))
			}()
		}
	})
}

// Close stops listening.
func (s *TCPServer) Close() error {
	return s.listener.Close()
}

// AddToLoop implements LoopAdder.
func (s *TCPServer) AddToLoop(l *fx.Loop) {
	l.AddRunnable(s)
}

// WebSocketServer serves clients over WebSocket, one packet per
// binary message.
type WebSocketServer struct {
	// Path is where the WebSocket endpoint is mounted.
	Path string

	listener net.Listener
}

// DefaultWebSocketPath is the default path of the WebSocket endpoint.
const DefaultWebSocketPath = "/zwave"

// ListenWebSocket creates a WebSocketServer listening on addr.
func ListenWebSocket(addr string) (*WebSocketServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &WebSocketServer{Path: DefaultWebSocketPath, listener: ln}, nil
}

// Addr returns the listening address.
func (s *WebSocketServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Name implements Named.
func (s *WebSocketServer) Name() string {
	return "ws:" + s.Addr().String()
}

// Run implements Runnable.
func (s *WebSocketServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.Path, websocket.Handler(func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		serve(ctx, "ws:"+conn.Request().RemoteAddr, wsrw.New(conn))
	}))
	srv := &http.Server{Handler: mux}
	glog.Infof("listening on %s%s", s.Addr(), s.Path)
	err := fx.RunWithContextCancel(ctx, func() {
		srv.Close()
	}, func() error {
		return srv.Serve(s.listener)
	})
	if err == http.ErrServerClosed {
		err = nil
	}
	return err
}

// AddToLoop implements LoopAdder.
func (s *WebSocketServer) AddToLoop(l *fx.Loop) {
	l.AddRunnable(s)
}
