package vmhandle

import (
	"sync"

	"github.com/ironclaw/runtime/pkg/firewall"
	"github.com/ironclaw/runtime/pkg/hypervisor"
	"github.com/ironclaw/runtime/pkg/rootfs"
	"github.com/ironclaw/runtime/pkg/vmconfig"
)

// State is one of VmHandle's five lifecycle phases. Transitions are
// monotonic: Destroyed is terminal and no state is ever revisited.
type State string

const (
	StateCreated   State = "created"
	StateSpawning  State = "spawning"
	StateRunning   State = "running"
	StateDraining  State = "draining"
	StateDestroyed State = "destroyed"
)

// VmHandle is the owning object returned to the orchestrator for one
// spawned microVM. It exclusively owns the hypervisor child process, the
// firewall rule, the jail root directory, the overlay workdir/upperdir,
// and the side-channel socket path. It is move-only in spirit: callers
// must not spawn a second handle sharing any of these resources, and must
// call Destroy exactly once.
type VmHandle struct {
	mu sync.Mutex

	id      string
	state   State
	vmcfg   *vmconfig.VmConfig
	jcfg    *vmconfig.JailerConfig
	machine hypervisor.Machine
	fw      *firewall.Controller
	overlay *rootfs.OverlaySpec

	degradedIsolation bool
	jailed            bool
}

// ID is this handle's VM identifier.
func (h *VmHandle) ID() string {
	return h.id
}

// State returns the handle's current lifecycle phase.
func (h *VmHandle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// SocketPath is the host-reachable path to the hypervisor's API socket.
func (h *VmHandle) SocketPath() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.machine == nil {
		return ""
	}
	return h.machine.SocketPath()
}

// DegradedIsolation reports whether this VM is running without a verified
// firewall chain because the operator explicitly opted into degraded mode
// (spec step 4: absence of privilege must not silently continue with an
// unisolated VM otherwise).
func (h *VmHandle) DegradedIsolation() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.degradedIsolation
}

func (h *VmHandle) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}
