package proxy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/zwproxy/pkg/api/server"
)

func TestNewEnv(t *testing.T) {
	conf := NewConfig()
	conf.Link = "tcp://127.0.0.1:1"
	conf.Listen = "127.0.0.1:0"
	conf.AckTimeout = 0
	e, err := conf.NewEnv()
	require.NoError(t, err)
	require.Len(t, e.Servers, 1)
	srv, ok := e.Servers[0].(*server.TCPServer)
	require.True(t, ok)
	defer srv.Close()
	require.Equal(t, "tcp://127.0.0.1:1", conf.Info.Meta.Link)
	require.Nil(t, e.Endpoint)
}

func TestNewEnvErrors(t *testing.T) {
	conf := NewConfig()
	conf.Link = "udp://somewhere"
	_, err := conf.NewEnv()
	require.Error(t, err)

	conf = NewConfig()
	conf.Link = "/dev/null"
	conf.Listen = ""
	conf.WebSocketListen = ""
	conf.MQTTBrokerURL = ""
	_, err = conf.NewEnv()
	require.Error(t, err)

	conf.MQTTBrokerURL = "mqtt://localhost:1883"
	conf.Info.Ref.ID = ""
	_, err = conf.NewEnv()
	require.Error(t, err)
}
