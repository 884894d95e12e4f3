package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initializeOK(mt *MockTransport) {
	mt.Handler = func(req *Request) (*Response, error) {
		switch req.Method {
		case "initialize":
			result, _ := json.Marshal(InitializeResult{ProtocolVersion: ProtocolVersion, ServerInfo: ServerInfo{Name: "test-server"}})
			return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}, nil
		default:
			return &Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}, nil
		}
	}
}

func TestBroker_InitializeMovesCreatedToReady(t *testing.T) {
	mt := NewMockTransport()
	initializeOK(mt)
	b := NewBroker(mt, nil, ClientInfo{Name: "ironclawd", Version: "0.1.0"})

	result, err := b.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, StateReady, b.State())
}

func TestBroker_InitializeTwiceIsWrongState(t *testing.T) {
	mt := NewMockTransport()
	initializeOK(mt)
	b := NewBroker(mt, nil, ClientInfo{Name: "ironclawd"})

	_, err := b.Initialize(context.Background())
	require.NoError(t, err)

	outboxLen := len(mt.Outbox)
	_, err = b.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrWrongState)
	assert.Equal(t, outboxLen, len(mt.Outbox), "no I/O should occur on an illegal call")
}

func TestBroker_ListToolsBeforeInitializeIsWrongState(t *testing.T) {
	mt := NewMockTransport()
	b := NewBroker(mt, nil, ClientInfo{Name: "ironclawd"})

	_, err := b.ListTools(context.Background())
	assert.ErrorIs(t, err, ErrWrongState)
	assert.Empty(t, mt.Outbox)
}

func TestBroker_ListToolsAfterInitializeSucceeds(t *testing.T) {
	mt := NewMockTransport()
	mt.Handler = func(req *Request) (*Response, error) {
		switch req.Method {
		case "initialize":
			result, _ := json.Marshal(InitializeResult{ProtocolVersion: ProtocolVersion})
			return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}, nil
		case "tools/list":
			result, _ := json.Marshal(ListToolsResult{Tools: []Tool{{Name: "read_file"}}})
			return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}, nil
		}
		return nil, errors.New("unexpected method")
	}
	b := NewBroker(mt, nil, ClientInfo{Name: "ironclawd"})
	_, err := b.Initialize(context.Background())
	require.NoError(t, err)

	result, err := b.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "read_file", result.Tools[0].Name)
}

func TestBroker_CallToolSemanticErrorDoesNotDisconnect(t *testing.T) {
	mt := NewMockTransport()
	mt.Handler = func(req *Request) (*Response, error) {
		switch req.Method {
		case "initialize":
			result, _ := json.Marshal(InitializeResult{})
			return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}, nil
		case "tools/call":
			return &Response{JSONRPC: "2.0", ID: req.ID, Error: &Error{Code: ErrCodeInvalidParams, Message: "bad args"}}, nil
		}
		return nil, errors.New("unexpected method")
	}
	b := NewBroker(mt, nil, ClientInfo{Name: "ironclawd"})
	_, err := b.Initialize(context.Background())
	require.NoError(t, err)

	_, err = b.CallTool(context.Background(), "read_file", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemote)
	assert.Equal(t, StateReady, b.State(), "a semantic error must not disconnect the broker")
}

func TestBroker_TransportFailureDisconnects(t *testing.T) {
	mt := NewMockTransport()
	mt.Handler = func(req *Request) (*Response, error) {
		if req.Method == "initialize" {
			result, _ := json.Marshal(InitializeResult{})
			return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}, nil
		}
		return nil, errors.New("unauthorized")
	}
	b := NewBroker(mt, nil, ClientInfo{Name: "ironclawd"})
	_, err := b.Initialize(context.Background())
	require.NoError(t, err)

	_, err = b.ListTools(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, b.State())
}

func TestBroker_RetriesTransientFailureThenSucceeds(t *testing.T) {
	mt := NewMockTransport()
	failuresLeft := 2
	mt.Handler = func(req *Request) (*Response, error) {
		switch req.Method {
		case "initialize":
			result, _ := json.Marshal(InitializeResult{})
			return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}, nil
		case "tools/list":
			if failuresLeft > 0 {
				failuresLeft--
				return nil, errors.New("connection reset")
			}
			result, _ := json.Marshal(ListToolsResult{})
			return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}, nil
		}
		return nil, errors.New("unexpected method")
	}
	retry := RetryConfig{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Jitter: 0}
	b := NewBroker(mt, &retry, ClientInfo{Name: "ironclawd"})
	_, err := b.Initialize(context.Background())
	require.NoError(t, err)

	_, err = b.ListTools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, failuresLeft)
	assert.Equal(t, StateReady, b.State())
}

func TestBroker_RetriesExhaustedDisconnects(t *testing.T) {
	mt := NewMockTransport()
	mt.Handler = func(req *Request) (*Response, error) {
		if req.Method == "initialize" {
			result, _ := json.Marshal(InitializeResult{})
			return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}, nil
		}
		return nil, errors.New("connection reset")
	}
	retry := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Jitter: 0}
	b := NewBroker(mt, &retry, ClientInfo{Name: "ironclawd"})
	_, err := b.Initialize(context.Background())
	require.NoError(t, err)

	_, err = b.ListTools(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, b.State())
}

func TestBroker_InitializeRetriesTransportFailureThenSucceeds(t *testing.T) {
	mt := NewMockTransport()
	attempts := 0
	failuresLeft := 2
	mt.Handler = func(req *Request) (*Response, error) {
		attempts++
		if failuresLeft > 0 {
			failuresLeft--
			return nil, errors.New("connection refused")
		}
		result, _ := json.Marshal(InitializeResult{ProtocolVersion: ProtocolVersion})
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}, nil
	}
	retry := RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Jitter: 0}
	b := NewBroker(mt, &retry, ClientInfo{Name: "ironclawd"})

	_, err := b.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "two transport failures then a success must total three attempts")
	assert.Equal(t, StateReady, b.State())
}

func TestBroker_InitializeSemanticErrorIsNeverRetried(t *testing.T) {
	mt := NewMockTransport()
	attempts := 0
	mt.Handler = func(req *Request) (*Response, error) {
		attempts++
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &Error{Code: ErrCodeInternal, Message: "boom"}}, nil
	}
	retry := RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Jitter: 0}
	b := NewBroker(mt, &retry, ClientInfo{Name: "ironclawd"})

	_, err := b.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemote)
	assert.Equal(t, 1, attempts, "a well-formed error response must never be retried")
	assert.Equal(t, StateDisconnected, b.State())
}

func TestBroker_ProtocolViolationOnBothResultAndError(t *testing.T) {
	mt := NewMockTransport()
	mt.Handler = func(req *Request) (*Response, error) {
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`), Error: &Error{Code: ErrCodeInternal, Message: "x"}}, nil
	}
	b := NewBroker(mt, nil, ClientInfo{Name: "ironclawd"})
	_, err := b.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestBroker_MismatchedIDIsRejected(t *testing.T) {
	mt := NewMockTransport()
	mt.Handler = func(req *Request) (*Response, error) {
		result, _ := json.Marshal(InitializeResult{})
		return &Response{JSONRPC: "2.0", ID: req.ID + 1, Result: result}, nil
	}
	b := NewBroker(mt, nil, ClientInfo{Name: "ironclawd"})
	_, err := b.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrMismatchedID)
}

func TestBroker_CloseDisconnectsAndClosesTransport(t *testing.T) {
	mt := NewMockTransport()
	initializeOK(mt)
	b := NewBroker(mt, nil, ClientInfo{Name: "ironclawd"})
	_, err := b.Initialize(context.Background())
	require.NoError(t, err)

	require.NoError(t, b.Close())
	assert.Equal(t, StateDisconnected, b.State())
	assert.False(t, mt.IsConnected())
}
