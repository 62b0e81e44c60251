package connector

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/zwproxy/pkg/api"
	"github.com/robotalks/zwproxy/pkg/api/comm"
	"github.com/robotalks/zwproxy/pkg/api/comm/mqtt"
)

func TestNewConnector(t *testing.T) {
	c, err := NewConnector("mqtt://localhost:1883/home")
	require.NoError(t, err)
	require.IsType(t, &mqtt.Connector{}, c)

	c, err = NewConnector("ws://localhost:8080/zwave")
	require.NoError(t, err)
	infos, err := c.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, api.ProxyRef{ID: "localhost:8080"}, infos[0].Ref)

	_, err = NewConnector("udp://localhost:1")
	require.Error(t, err)
}

func TestConnectTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if conn, err := ln.Accept(); err == nil {
			conn.Close()
		}
	}()

	conf := NewConfig()
	conf.URL = "tcp://" + ln.Addr().String()
	conn, err := conf.Connect(context.Background())
	require.NoError(t, err)
	require.IsType(t, &comm.Conn{}, conn)
	require.NoError(t, conn.(*comm.Conn).Close())
}
