package zwave

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge indicates the payload doesn't fit in a data frame.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrShortFrame indicates the bytes are too short to be a data frame.
	ErrShortFrame = errors.New("short frame")
)

// FramingError describes why a data frame was rejected.
type FramingError struct {
	Reason string
	Value  byte
}

// Error implements error.
func (e *FramingError) Error() string {
	return fmt.Sprintf("framing error: %s (0x%02X)", e.Reason, e.Value)
}
