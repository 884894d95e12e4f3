package broker

import "context"

// Transport is the three-operation contract every broker transport
// implements: send a framed request, receive exactly one framed response,
// and report whether the underlying channel is still usable. All
// transports are single-threaded from the broker's perspective — the
// broker never interleaves concurrent send/recv pairs on the same
// transport instance.
type Transport interface {
	Send(ctx context.Context, req *Request) error
	Recv(ctx context.Context) (*Response, error)
	IsConnected() bool
	// Close releases the transport's underlying resources. For a
	// subprocess transport this kills the child process.
	Close() error
}
