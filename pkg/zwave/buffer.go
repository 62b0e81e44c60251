package zwave

// FrameBuffer is a fixed-size receive buffer. Its capacity never
// exceeds MaxFrameSize and it never grows.
type FrameBuffer struct {
	data          [MaxFrameSize]byte
	limit         int
	index         int
	endFrameAfter int
}

// NewFrameBuffer creates a FrameBuffer limited to capacity bytes.
// capacity <= 0 or above MaxFrameSize means MaxFrameSize.
func NewFrameBuffer(capacity int) *FrameBuffer {
	b := &FrameBuffer{}
	b.SetCapacity(capacity)
	return b
}

// SetCapacity changes the limit and clears the buffer.
func (b *FrameBuffer) SetCapacity(capacity int) {
	if capacity <= 0 || capacity > MaxFrameSize {
		capacity = MaxFrameSize
	}
	b.limit = capacity
	b.Reset()
}

// Capacity returns the number of bytes the buffer holds at most.
func (b *FrameBuffer) Capacity() int {
	if b.limit == 0 {
		return MaxFrameSize
	}
	return b.limit
}

// Len returns the number of bytes written.
func (b *FrameBuffer) Len() int {
	return b.index
}

// Full indicates no more bytes can be appended.
func (b *FrameBuffer) Full() bool {
	return b.index >= b.Capacity()
}

// Append writes one byte at the cursor. It returns false when full.
func (b *FrameBuffer) Append(c byte) bool {
	if b.Full() {
		return false
	}
	b.data[b.index] = c
	b.index++
	return true
}

// Fits indicates n more bytes can be appended.
func (b *FrameBuffer) Fits(n int) bool {
	return b.index+n <= b.Capacity()
}

// MarkEnd records the index after which the payload is complete.
func (b *FrameBuffer) MarkEnd(n int) {
	b.endFrameAfter = b.index + n
}

// EndFrameAfter returns the index recorded by MarkEnd.
func (b *FrameBuffer) EndFrameAfter() int {
	return b.endFrameAfter
}

// PayloadDone indicates the cursor reached the recorded end.
func (b *FrameBuffer) PayloadDone() bool {
	return b.index >= b.endFrameAfter
}

// Bytes returns the written bytes. The slice is only valid until the
// next change to the buffer.
func (b *FrameBuffer) Bytes() []byte {
	return b.data[:b.index]
}

// Take returns a copy of the written bytes and clears the buffer.
func (b *FrameBuffer) Take() []byte {
	out := append([]byte(nil), b.data[:b.index]...)
	b.Reset()
	return out
}

// Reset clears the buffer.
func (b *FrameBuffer) Reset() {
	for i := 0; i < b.index; i++ {
		b.data[i] = 0
	}
	b.index, b.endFrameAfter = 0, 0
}
