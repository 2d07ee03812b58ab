package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client send queue is full")
	ErrInvalidEvent    = errors.New("invalid event payload")
	ErrUnknownEvent    = errors.New("unknown event")
)
