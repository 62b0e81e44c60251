package zwave

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameBuffer(t *testing.T) {
	b := NewFrameBuffer(4)
	require.Equal(t, 4, b.Capacity())
	require.True(t, b.Fits(4))
	require.False(t, b.Fits(5))
	for i := byte(1); i <= 4; i++ {
		require.True(t, b.Append(i))
	}
	require.True(t, b.Full())
	require.False(t, b.Append(5))
	require.Equal(t, []byte{1, 2, 3, 4}, b.Bytes())

	out := b.Take()
	require.Equal(t, []byte{1, 2, 3, 4}, out)
	require.Zero(t, b.Len())
	require.Empty(t, b.Bytes())
}

func TestFrameBufferCapacity(t *testing.T) {
	require.Equal(t, MaxFrameSize, NewFrameBuffer(0).Capacity())
	require.Equal(t, MaxFrameSize, NewFrameBuffer(MaxFrameSize+100).Capacity())
	var b FrameBuffer
	require.Equal(t, MaxFrameSize, b.Capacity())
}

func TestFrameBufferEnd(t *testing.T) {
	b := NewFrameBuffer(0)
	b.Append(SOF)
	b.MarkEnd(3)
	require.Equal(t, 4, b.EndFrameAfter())
	require.False(t, b.PayloadDone())
	b.Append(3)
	b.Append(0)
	b.Append(0x20)
	require.True(t, b.PayloadDone())
	b.Reset()
	require.Zero(t, b.EndFrameAfter())
}
