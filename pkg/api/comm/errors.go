package comm

import "errors"

var (
	errNotCommand = errors.New("message is not a command")
	errNotEvent   = errors.New("message is not an event")
)
