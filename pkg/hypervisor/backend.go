// Package hypervisor adapts a host's native virtualization facility —
// Firecracker microVMs on Linux, Virtualization.framework on Darwin — to a
// single Backend/Machine interface so the VM lifecycle manager never
// branches on platform.
package hypervisor

import (
	"context"
	"errors"

	"github.com/ironclaw/runtime/pkg/vmconfig"
)

var (
	ErrLaunchFailed     = errors.New("failed to launch hypervisor")
	ErrWaitReadyTimeout = errors.New("timed out waiting for hypervisor api socket")
	ErrUnsupported      = errors.New("hypervisor backend unavailable on this platform")
)

// Backend launches a jailed hypervisor process for a validated VmConfig,
// already confined by the jailer's chroot/cgroup/namespace setup.
type Backend interface {
	// Launch starts the hypervisor child inside jcfg's jail and blocks
	// until it is ready (the Linux backend waits for its API socket, the
	// Darwin backend for the running state), giving up after a fixed 2s
	// wait or when ctx is done.
	Launch(ctx context.Context, jcfg *vmconfig.JailerConfig, vmcfg *vmconfig.VmConfig) (Machine, error)
	// Name identifies the backend for logging ("firecracker",
	// "virtualization.framework").
	Name() string
}

// Machine is a running hypervisor process.
type Machine interface {
	// Shutdown sends a graceful stop request (SIGTERM on Linux, the VM
	// framework's graceful stop on Darwin).
	Shutdown(ctx context.Context) error
	// Kill forcibly terminates the hypervisor process.
	Kill() error
	// Wait blocks until the hypervisor process has exited.
	Wait(ctx context.Context) error
	// PID is the host process id of the hypervisor, for cgroup attachment.
	PID() int
	// SocketPath is the host-reachable path to the hypervisor's API
	// socket, used by the protocol broker's transport.
	SocketPath() string
}
