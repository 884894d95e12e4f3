package broker

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ironclaw/runtime/internal/errx"
	"github.com/ironclaw/runtime/pkg/logging"
)

// Broker carries a typed JSON-RPC 2.0 conversation over one Transport,
// enforcing the four-state connection machine and, when a RetryConfig is
// attached, wrapping each call's send/recv pair in a bounded, classified
// retry loop.
type Broker struct {
	mu        sync.Mutex
	transport Transport
	state     ClientState
	nextID    atomic.Uint64

	Retry   *RetryConfig
	Emitter *logging.Emitter
	ClientInfo ClientInfo

	capabilities json.RawMessage
}

// NewBroker wraps transport in a Broker in the Created state. retry may be
// nil to disable the retry engine entirely (every call attempted exactly
// once).
func NewBroker(transport Transport, retry *RetryConfig, clientInfo ClientInfo) *Broker {
	return &Broker{
		transport:  transport,
		state:      StateCreated,
		Retry:      retry,
		ClientInfo: clientInfo,
	}
}

// State returns the broker's current connection phase.
func (b *Broker) State() ClientState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Broker) setState(s ClientState) {
	b.mu.Lock()
	from := b.state
	b.state = s
	b.mu.Unlock()
	if b.Emitter != nil {
		_ = b.Emitter.Emit(logging.EventStateTransition, string(from)+" -> "+string(s), "", nil, &logging.StateTransitionData{
			From: string(from), To: string(s),
		})
	}
}

func (b *Broker) nextRequestID() uint64 {
	return b.nextID.Add(1)
}

// Initialize performs the initialize handshake. Legal only from Created;
// calling it twice (or from any other state) is ErrWrongState with no I/O
// performed. A successful response stores the negotiated capabilities and
// moves the connection to Ready; an error response or I/O failure moves it
// to Disconnected.
func (b *Broker) Initialize(ctx context.Context) (*InitializeResult, error) {
	b.mu.Lock()
	if b.state != StateCreated {
		b.mu.Unlock()
		return nil, ErrWrongState
	}
	b.state = StateInitializing
	b.mu.Unlock()
	if b.Emitter != nil {
		_ = b.Emitter.Emit(logging.EventStateTransition, "created -> initializing", "", nil, &logging.StateTransitionData{
			From: string(StateCreated), To: string(StateInitializing),
		})
	}

	params, err := json.Marshal(InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      b.ClientInfo,
	})
	if err != nil {
		b.setState(StateDisconnected)
		return nil, errx.Wrap(ErrTransport, err)
	}

	// A send/recv failure before any response arrives is always safe to
	// retry, even for initialize: the server never acted on a request it
	// never received intact. A well-formed error response is a different
	// matter and is never retried (checked below).
	resp, err := b.call(ctx, "initialize", params, true)
	if err != nil {
		b.setState(StateDisconnected)
		return nil, err
	}
	if resp.Error != nil {
		b.setState(StateDisconnected)
		return nil, errx.Wrap(ErrRemote, resp.Error)
	}

	var result InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		b.setState(StateDisconnected)
		return nil, errx.Wrap(ErrTransport, err)
	}

	b.capabilities = result.Capabilities
	b.setState(StateReady)
	return &result, nil
}

// ListTools lists the server's available tools. Legal only from Ready.
// Idempotent: always safe to retry on transport failure.
func (b *Broker) ListTools(ctx context.Context) (*ListToolsResult, error) {
	resp, err := b.callReady(ctx, "tools/list", nil, true)
	if err != nil {
		return nil, err
	}
	var result ListToolsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, errx.Wrap(ErrTransport, err)
	}
	return &result, nil
}

// CallTool invokes a named tool. Legal only from Ready. Retried only on
// transport-level failures; a server-returned error response is never
// retried, since the server has already made and communicated its
// semantic decision.
func (b *Broker) CallTool(ctx context.Context, name string, arguments json.RawMessage) (json.RawMessage, error) {
	params, err := json.Marshal(CallToolParams{Name: name, Arguments: arguments})
	if err != nil {
		return nil, errx.Wrap(ErrTransport, err)
	}
	resp, err := b.callReady(ctx, "tools/call", params, true)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// callReady enforces the Ready-only precondition shared by tools/list and
// tools/call before delegating to call.
func (b *Broker) callReady(ctx context.Context, method string, params json.RawMessage, retryTransportErrors bool) (*Response, error) {
	b.mu.Lock()
	state := b.state
	b.mu.Unlock()
	if !legalFrom(state, method) {
		return nil, ErrWrongState
	}

	resp, err := b.call(ctx, method, params, retryTransportErrors)
	if err != nil {
		b.setState(StateDisconnected)
		return nil, err
	}
	if resp.Error != nil {
		// A semantic error response does not disconnect the broker —
		// the transport is fine, the call just failed at the server.
		return resp, errx.Wrap(ErrRemote, resp.Error)
	}
	return resp, nil
}

// call sends one request and awaits its response, wrapped in the retry
// engine's attempt loop when b.Retry is set and retryTransportErrors
// allows it. Transport I/O errors are eligible for retry per
// ShouldRetry; a well-formed remote error response is returned as-is to
// the caller, never retried here (callers decide per-method whether a
// remote error is retryable, and tools/call and initialize never are).
func (b *Broker) call(ctx context.Context, method string, params json.RawMessage, retryTransportErrors bool) (*Response, error) {
	id := b.nextRequestID()
	req := NewRequest(id, method, params)

	maxAttempts := 1
	var retry RetryConfig
	if retryTransportErrors && b.Retry != nil {
		retry = *b.Retry
		if retry.MaxAttempts >= 1 {
			maxAttempts = retry.MaxAttempts
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := b.roundTrip(ctx, req)
		if err == nil {
			if verr := resp.Validate(); verr != nil {
				return nil, verr
			}
			if resp.ID != req.ID {
				return nil, ErrMismatchedID
			}
			return resp, nil
		}

		lastErr = err
		retryable := retryTransportErrors && ShouldRetry(err) && attempt < maxAttempts
		var delay time.Duration
		if retryable {
			delay = retry.CalculateDelay(attempt, rand.New(rand.NewSource(time.Now().UnixNano())))
		}
		if b.Emitter != nil {
			_ = b.Emitter.Emit(logging.EventRetryAttempt, method+": attempt failed", "", nil, &logging.RetryAttemptData{
				Method: method, Attempt: attempt, MaxAttempt: maxAttempts,
				DelayMS: delay.Milliseconds(), Error: err.Error(), Retryable: retryable,
			})
		}
		if !retryable {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errx.Wrap(ErrTransport, ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, errx.Wrap(ErrTransport, lastErr)
}

func (b *Broker) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	if !b.transport.IsConnected() {
		return nil, ErrNotConnected
	}
	if err := b.transport.Send(ctx, req); err != nil {
		return nil, err
	}
	resp, err := b.transport.Recv(ctx)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Close releases the broker's transport and moves the connection to
// Disconnected regardless of its prior state.
func (b *Broker) Close() error {
	b.setState(StateDisconnected)
	return b.transport.Close()
}
