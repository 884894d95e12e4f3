// Package broker carries a typed JSON-RPC 2.0 conversation between the
// host orchestrator and a tool server over one of several transports,
// tolerating transient transport errors while never retrying a semantic
// one.
package broker

import "errors"

var (
	ErrWrongState       = errors.New("broker: call is not legal in the current connection state")
	ErrProtocolViolation = errors.New("broker: response violates the JSON-RPC result/error XOR invariant")
	ErrMismatchedID     = errors.New("broker: response id does not match the request it was read for")
	ErrTransport        = errors.New("broker: transport I/O failed")
	ErrRemote           = errors.New("broker: server returned an error response")
	ErrNotConnected     = errors.New("broker: transport reports not connected")
	ErrRetriesExhausted = errors.New("broker: retry attempts exhausted")
)
