package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/ironclaw/runtime/internal/errx"
)

// HTTPTransport issues one POST per call against a local tool-server URL,
// for tool servers that run as ordinary host processes behind an HTTP
// listener rather than inside a VM. Send buffers the encoded request and
// issues the POST immediately; Recv returns the buffered decoded response.
// Like every transport, it is single-threaded from the broker's
// perspective: a Send must be followed by exactly one Recv before the
// next Send.
type HTTPTransport struct {
	mu         sync.Mutex
	url        string
	client     *http.Client
	lastResp   *Response
	lastErr    error
	haveResult bool
	closed     bool
}

// NewHTTPTransport returns a transport that POSTs each call to url.
func NewHTTPTransport(url string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{url: url, client: client}
}

func (t *HTTPTransport) Send(ctx context.Context, req *Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrNotConnected
	}

	body, err := json.Marshal(req)
	if err != nil {
		t.lastErr = errx.Wrap(ErrTransport, err)
		t.haveResult = true
		return nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		t.lastErr = errx.Wrap(ErrTransport, err)
		t.haveResult = true
		return nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		t.lastErr = errx.Wrap(ErrTransport, err)
		t.haveResult = true
		return nil
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		t.lastErr = errx.With(ErrTransport, ": status %d", httpResp.StatusCode)
		t.haveResult = true
		return nil
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		t.lastErr = errx.Wrap(ErrTransport, err)
		t.haveResult = true
		return nil
	}
	t.lastResp = &resp
	t.haveResult = true
	return nil
}

// Recv returns the response buffered by the most recent Send. Transport
// errors observed during Send are surfaced here (not from Send itself) so
// the retry engine's classification logic — which operates on the error
// returned by the send/recv pair as a whole — sees the same failure shape
// regardless of which half of the round trip actually failed.
func (t *HTTPTransport) Recv(ctx context.Context) (*Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.haveResult {
		return nil, ErrNotConnected
	}
	t.haveResult = false
	if t.lastErr != nil {
		err := t.lastErr
		t.lastErr = nil
		return nil, err
	}
	return t.lastResp, nil
}

func (t *HTTPTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

func (t *HTTPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
