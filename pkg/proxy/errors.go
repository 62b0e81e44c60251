package proxy

import "errors"

var (
	// ErrAlreadySubscribed indicates another client holds the subscription.
	ErrAlreadySubscribed = errors.New("another client is subscribed")
	// ErrNotSubscribed indicates the client is not the subscriber.
	ErrNotSubscribed = errors.New("not subscribed")
	// ErrEmptyFrame indicates nothing to send.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrUnknownRequest indicates the request type is not supported.
	ErrUnknownRequest = errors.New("unknown request")
)
