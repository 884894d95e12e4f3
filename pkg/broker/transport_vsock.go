package broker

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ironclaw/runtime/internal/errx"
)

// VsockTransport frames NDJSON requests/responses over the host-side side
// of a VM's vsock bridge. Firecracker (and Virtualization.framework's
// vsock device) exposes the guest's vsock port as a host Unix domain
// socket rather than a raw AF_VSOCK endpoint, so this transport dials a
// plain "unix" network address — the socket path the hypervisor adapter
// already derives per VM — instead of using AF_VSOCK syscalls directly.
type VsockTransport struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	closed bool
}

// DialVsock connects to the VM's side-channel socket at path with the
// given dial timeout.
func DialVsock(path string, timeout time.Duration) (*VsockTransport, error) {
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, errx.Wrap(ErrTransport, err)
	}
	return &VsockTransport{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, 64*1024),
	}, nil
}

func (t *VsockTransport) Send(ctx context.Context, req *Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrNotConnected
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(dl)
	}
	line, err := json.Marshal(req)
	if err != nil {
		return errx.Wrap(ErrTransport, err)
	}
	line = append(line, '\n')
	if _, err := t.conn.Write(line); err != nil {
		return errx.Wrap(ErrTransport, err)
	}
	return nil
}

func (t *VsockTransport) Recv(ctx context.Context) (*Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrNotConnected
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = t.conn.SetReadDeadline(dl)
	}
	line, err := t.reader.ReadBytes('\n')
	if err != nil {
		t.closed = true
		if err == io.EOF {
			return nil, ErrNotConnected
		}
		return nil, errx.Wrap(ErrTransport, err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, errx.Wrap(ErrTransport, err)
	}
	return &resp, nil
}

func (t *VsockTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

func (t *VsockTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}
