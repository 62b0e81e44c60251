package link

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/zwproxy/pkg/framework"
	"github.com/robotalks/zwproxy/pkg/proxy"
)

func TestOpener(t *testing.T) {
	for _, linkURL := range []string{"/dev/ttyUSB0", "serial:///dev/ttyACM0", "serial:///dev/ttyACM0?baud=9600", "tcp://localhost:3333"} {
		open, err := Opener(linkURL)
		require.NoError(t, err, linkURL)
		require.NotNil(t, open)
	}
	for _, linkURL := range []string{"tcp://", "udp://localhost:1", "serial:///dev/ttyACM0?baud=fast"} {
		_, err := Opener(linkURL)
		require.Error(t, err, linkURL)
	}
}

func TestOpenTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if conn, err := ln.Accept(); err == nil {
			conn.Write([]byte{0x06})
			conn.Close()
		}
	}()
	open, err := Opener("tcp://" + ln.Addr().String())
	require.NoError(t, err)
	conn, err := open(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	buf := make([]byte, 1)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	require.Equal(t, byte(0x06), buf[0])
}

func TestWriteNotConnected(t *testing.T) {
	p := NewPump(nil)
	require.Equal(t, ErrNotConnected, p.WriteBytes([]byte{0x06}))
	_, ok := p.ReadAvailableByte()
	require.False(t, ok)
}

func TestPump(t *testing.T) {
	local, remote := net.Pipe()
	pump := NewPump(func(context.Context) (io.ReadWriteCloser, error) {
		return local, nil
	})
	pump.ReconnectDelay = time.Hour

	var (
		lock   sync.Mutex
		rx     []byte
		states []bool
	)
	loop := fx.NewLoop().AddRunnable(pump)
	loop.AddController(fx.PrLvControl, fx.ControlFunc(func(cc fx.ControlContext) error {
		lock.Lock()
		defer lock.Unlock()
		cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
			if m, ok := mctx.CurrentMessage().(*proxy.LinkStateMsg); ok {
				mctx.MessageTaken()
				states = append(states, m.Connected)
			}
		}))
		for {
			b, ok := pump.ReadAvailableByte()
			if !ok {
				break
			}
			rx = append(rx, b)
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	doneCh := make(chan error, 1)
	go func() { doneCh <- loop.Run(ctx) }()

	frame := []byte{0x01, 0x03, 0x00, 0x20, 0xdc}
	_, err := remote.Write(frame)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return bytes.Equal(rx, frame)
	}, time.Second, 5*time.Millisecond)

	go pump.WriteBytes([]byte{0x06})
	buf := make([]byte, 1)
	_, err = io.ReadFull(remote, buf)
	require.NoError(t, err)
	require.Equal(t, byte(0x06), buf[0])

	remote.Close()
	require.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(states) == 2
	}, time.Second, 5*time.Millisecond)
	lock.Lock()
	require.Equal(t, []bool{true, false}, states)
	lock.Unlock()
	require.Equal(t, ErrNotConnected, pump.WriteBytes([]byte{0x06}))

	cancel()
	require.Equal(t, context.Canceled, <-doneCh)
}
