package broker

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	shellquote "github.com/kballard/go-shellquote"

	"github.com/ironclaw/runtime/internal/errx"
)

// SubprocessTransport frames NDJSON requests/responses over a spawned
// child process's stdin/stdout. It owns the child: Close kills it.
type SubprocessTransport struct {
	mu          sync.Mutex
	cmd         *exec.Cmd
	commandLine string
	stdin       io.WriteCloser
	reader      *bufio.Reader

	closed bool
}

// NewSubprocessTransport starts name with args and wires a line-framed
// JSON-RPC conversation over its stdin/stdout. Stderr is drained to avoid
// blocking the child on a full pipe, matching the teacher client's
// background-drain pattern.
func NewSubprocessTransport(name string, args ...string) (*SubprocessTransport, error) {
	cmd := exec.Command(name, args...)
	commandLine := shellquote.Join(append([]string{name}, args...)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errx.With(ErrTransport, ": starting %s: %w", commandLine, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errx.With(ErrTransport, ": starting %s: %w", commandLine, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errx.With(ErrTransport, ": starting %s: %w", commandLine, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errx.With(ErrTransport, ": starting %s: %w", commandLine, err)
	}
	go io.Copy(io.Discard, stderr)

	return &SubprocessTransport{
		cmd:         cmd,
		commandLine: commandLine,
		stdin:       stdin,
		reader:      bufio.NewReaderSize(stdout, 64*1024),
	}, nil
}

// CommandLine returns the shell-quoted rendering of the tool-server
// command this transport spawned, for diagnostics and logging.
func (t *SubprocessTransport) CommandLine() string {
	return t.commandLine
}

// NewPTYSubprocessTransport starts name with args under a pseudo-terminal
// instead of plain pipes, for tool servers that require a controlling
// terminal (interactive shells, tools that branch on stdio being a TTY).
// Framing is identical NDJSON lines; only the underlying file descriptor
// differs.
func NewPTYSubprocessTransport(name string, args ...string) (*SubprocessTransport, error) {
	cmd := exec.Command(name, args...)
	commandLine := shellquote.Join(append([]string{name}, args...)...)
	f, err := pty.Start(cmd)
	if err != nil {
		return nil, errx.With(ErrTransport, ": starting %s: %w", commandLine, err)
	}
	return &SubprocessTransport{
		cmd:         cmd,
		commandLine: commandLine,
		stdin:       f,
		reader:      bufio.NewReaderSize(f, 64*1024),
	}, nil
}

func (t *SubprocessTransport) Send(ctx context.Context, req *Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrNotConnected
	}
	line, err := json.Marshal(req)
	if err != nil {
		return errx.Wrap(ErrTransport, err)
	}
	line = append(line, '\n')
	if _, err := t.stdin.Write(line); err != nil {
		return errx.Wrap(ErrTransport, err)
	}
	return nil
}

func (t *SubprocessTransport) Recv(ctx context.Context) (*Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrNotConnected
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

func (t *SubprocessTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Close kills the child process; the subprocess transport owns it and
// must never leave it running after drop.
func (t *SubprocessTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	_ = t.stdin.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	_ = t.cmd.Wait()
	return nil
}
