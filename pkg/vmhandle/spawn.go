package vmhandle

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ironclaw/runtime/internal/errx"
	"github.com/ironclaw/runtime/pkg/firewall"
	"github.com/ironclaw/runtime/pkg/hypervisor"
	"github.com/ironclaw/runtime/pkg/jailer"
	"github.com/ironclaw/runtime/pkg/logging"
	"github.com/ironclaw/runtime/pkg/rootfs"
	"github.com/ironclaw/runtime/pkg/seccomp"
	"github.com/ironclaw/runtime/pkg/vmconfig"
)

// ReadyTimeout bounds how long Spawn waits for the hypervisor's API socket
// to appear before treating the launch as failed.
const ReadyTimeout = 10 * time.Second

// Manager builds and tears down VmHandles, wiring together config
// validation, rootfs integrity, firewall isolation, the jail builder, and
// the platform hypervisor backend.
type Manager struct {
	Backend hypervisor.Backend
	Emitter *logging.Emitter

	// AllowDegradedIsolation opts into spawning without a verified
	// firewall chain (e.g. a host lacking CAP_NET_ADMIN). Left false,
	// a firewall failure aborts the spawn per step 4.
	AllowDegradedIsolation bool
}

// NewManager selects the platform hypervisor backend and returns a Manager
// ready to spawn VmHandles. emitter may be nil.
func NewManager(emitter *logging.Emitter) (*Manager, error) {
	backend, err := hypervisor.Select()
	if err != nil {
		return nil, err
	}
	return &Manager{Backend: backend, Emitter: emitter}, nil
}

func (m *Manager) emit(eventType, summary string, data interface{}) {
	if m.Emitter == nil {
		return
	}
	_ = m.Emitter.Emit(eventType, summary, "", nil, data)
}

func (m *Manager) step(vmID, step, outcome, reason string) {
	m.emit(logging.EventSpawnStep, step+": "+outcome, &logging.SpawnStepData{
		VMID: vmID, Step: step, Outcome: outcome, Reason: reason,
	})
}

func (m *Manager) transition(vmID string, from, to State) {
	m.emit(logging.EventStateTransition, vmID+": "+string(from)+" -> "+string(to), &logging.StateTransitionData{
		VMID: vmID, From: string(from), To: string(to),
	})
}

// Spawn runs the eight-step ordered spawn algorithm: validate config,
// default the seccomp policy, verify rootfs integrity, create the per-VM
// firewall chain, build the jail, launch the hypervisor child inside it,
// wait bounded for its API socket, then construct the returned VmHandle.
// Any failure past step 3 rolls back every resource acquired so far; the
// host is left exactly as Spawn found it on error.
func Spawn(ctx context.Context, m *Manager, vmcfg *vmconfig.VmConfig, jcfg *vmconfig.JailerConfig) (*VmHandle, error) {
	start := time.Now()
	h := &VmHandle{id: vmcfg.ID, state: StateCreated, vmcfg: vmcfg, jcfg: jcfg}
	m.transition(h.id, "", StateCreated)
	h.setState(StateSpawning)
	m.transition(h.id, StateCreated, StateSpawning)

	// Step 1: validate both configs.
	if err := vmcfg.Validate(); err != nil {
		m.step(h.id, "validate_config", "failed", err.Error())
		return nil, errx.Wrap(ErrSpawnValidateConfig, err)
	}
	if err := jcfg.Validate(); err != nil {
		m.step(h.id, "validate_config", "failed", err.Error())
		return nil, errx.Wrap(ErrSpawnValidateConfig, err)
	}
	m.step(h.id, "validate_config", "ok", "")

	// Step 2: default the seccomp policy if unset (Validate already
	// defaults SeccompPolicy to Basic on an empty string, so this is a
	// belt-and-suspenders check for callers that bypassed Validate).
	if vmcfg.SeccompPolicy == "" {
		vmcfg.SeccompPolicy = vmconfig.SeccompBasic
	}
	m.step(h.id, "default_seccomp_policy", "ok", string(vmcfg.SeccompPolicy))

	// Step 3: verify rootfs integrity.
	integrityCfg := rootfs.IntegrityConfig{
		SignaturePath: vmcfg.RootfsSignaturePath,
		PublicKeyPath: vmcfg.RootfsPublicKeyPath,
		HashTreePath:  vmcfg.HashTreePath,
	}
	if err := rootfs.VerifyIntegrity(vmcfg.RootfsPath, integrityCfg); err != nil {
		m.step(h.id, "verify_rootfs_integrity", "failed", err.Error())
		m.emit(logging.EventIntegrityFailure, "rootfs integrity check failed", &logging.IntegrityFailureData{
			RootfsPath: vmcfg.RootfsPath, Check: "signature_or_hash_tree", Detail: err.Error(),
		})
		return nil, errx.Wrap(ErrSpawnIntegrity, err)
	}
	m.step(h.id, "verify_rootfs_integrity", "ok", "")

	// From here on, any failure must roll back every resource already
	// acquired. rollback runs registered undo actions in reverse order,
	// swallowing errors after logging them (best-effort, matching the
	// teardown contract) so every step still runs.
	var undo []func()
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}
	fail := func(sentinel error, step string, err error) (*VmHandle, error) {
		m.step(h.id, step, "failed", err.Error())
		rollback()
		return nil, errx.Wrap(sentinel, err)
	}

	// Step 4: create the per-VM firewall chain and drop rules.
	fw, err := firewall.New(h.id)
	if err != nil {
		if !m.AllowDegradedIsolation {
			return fail(ErrSpawnFirewall, "create_firewall_chain", err)
		}
		m.step(h.id, "create_firewall_chain", "skipped", "degraded isolation mode: "+err.Error())
		h.degradedIsolation = true
	} else if err := fw.ConfigureIsolation(); err != nil {
		if !m.AllowDegradedIsolation {
			return fail(ErrSpawnFirewall, "create_firewall_chain", err)
		}
		m.step(h.id, "create_firewall_chain", "skipped", "degraded isolation mode: "+err.Error())
		h.degradedIsolation = true
	} else {
		h.fw = fw
		undo = append(undo, func() {
			if err := fw.Cleanup(); err != nil {
				m.step(h.id, "rollback_firewall_chain", "failed", err.Error())
			} else {
				m.step(h.id, "rollback_firewall_chain", "ok", "")
			}
		})
		if !fw.VerifyIsolation() {
			if !m.AllowDegradedIsolation {
				return fail(ErrSpawnFirewall, "create_firewall_chain", ErrSpawnFirewall)
			}
			m.emit(logging.EventIsolationFault, "firewall chain present but unverified", &logging.IsolationFaultData{
				VMID: h.id, Domain: "network", Detail: "verify_isolation returned false",
			})
			h.degradedIsolation = true
		}
		m.step(h.id, "create_firewall_chain", "ok", "")
	}

	// Step 5: build the jail — chroot, hard-linked artifacts, cgroup.
	// The chroot/cgroup/overlay jail is the Firecracker backend's
	// confinement mechanism; the Virtualization.framework backend relies
	// on the framework's own process-level sandboxing and disk-image
	// read-only attachment instead, so this step is a no-op there.
	jailed := m.Backend.Name() == "firecracker"
	h.jailed = jailed
	if jailed {
		if err := jailer.BuildChroot(jcfg, vmcfg); err != nil {
			return fail(ErrSpawnJail, "build_chroot", err)
		}
		undo = append(undo, func() {
			if err := jailer.TeardownChroot(jcfg); err != nil {
				m.step(h.id, "rollback_chroot", "failed", err.Error())
			} else {
				m.step(h.id, "rollback_chroot", "ok", "")
			}
		})
		m.step(h.id, "build_chroot", "ok", "")

		if err := jailer.CreateCgroup(jcfg); err != nil {
			return fail(ErrSpawnJail, "create_cgroup", err)
		}
		undo = append(undo, func() {
			if err := jailer.DestroyCgroup(jcfg); err != nil {
				m.step(h.id, "rollback_cgroup", "failed", err.Error())
			} else {
				m.step(h.id, "rollback_cgroup", "ok", "")
			}
		})
		m.step(h.id, "create_cgroup", "ok", "")

		overlay := &rootfs.OverlaySpec{
			LowerDir: filepath.Dir(vmcfg.RootfsPath),
			UpperDir: filepath.Join(jcfg.ChrootDir(), ".overlay-upper"),
			WorkDir:  filepath.Join(jcfg.ChrootDir(), ".overlay-work"),
			Target:   filepath.Join(jcfg.ChrootDir(), "tmp"),
		}
		if err := os.MkdirAll(overlay.Target, 0700); err != nil {
			return fail(ErrSpawnJail, "mount_overlay", err)
		}
		if err := rootfs.MountOverlay(*overlay); err != nil {
			return fail(ErrSpawnJail, "mount_overlay", err)
		}
		h.overlay = overlay
		undo = append(undo, func() {
			if err := rootfs.UnmountOverlay(*overlay); err != nil {
				m.step(h.id, "rollback_overlay", "failed", err.Error())
			} else {
				m.step(h.id, "rollback_overlay", "ok", "")
			}
		})
		m.step(h.id, "mount_overlay", "ok", "")
	} else {
		m.step(h.id, "build_chroot", "skipped", "backend provides its own confinement")
		m.step(h.id, "create_cgroup", "skipped", "backend provides its own confinement")
		m.step(h.id, "mount_overlay", "skipped", "backend provides its own confinement")
	}

	if _, err := seccomp.Compile(vmcfg.SeccompPolicy); err != nil {
		return fail(ErrSpawnJail, "compile_seccomp", err)
	}
	if vmcfg.SeccompPolicy == vmconfig.SeccompNone {
		m.step(h.id, "compile_seccomp", "ok", "advisory policy: no syscalls filtered")
	} else {
		m.step(h.id, "compile_seccomp", "ok", "")
	}

	// Step 6 & 7: launch the hypervisor child inside the jail (the
	// jailer's stage1 re-exec installs the compiled filter before
	// exec'ing the hypervisor binary) and wait bounded for its API
	// socket.
	launchCtx, cancel := context.WithTimeout(ctx, ReadyTimeout)
	defer cancel()
	machine, err := m.Backend.Launch(launchCtx, jcfg, vmcfg)
	if err != nil {
		if launchCtx.Err() != nil {
			return fail(ErrSpawnTimeout, "wait_hypervisor_ready", err)
		}
		return fail(ErrSpawnLaunch, "launch_hypervisor", err)
	}
	undo = append(undo, func() {
		if err := machine.Kill(); err != nil {
			m.step(h.id, "rollback_hypervisor", "failed", err.Error())
		} else {
			m.step(h.id, "rollback_hypervisor", "ok", "")
		}
	})
	m.step(h.id, "launch_hypervisor", "ok", "")

	if jailed {
		if err := jailer.AddProcess(jcfg, machine.PID()); err != nil {
			return fail(ErrSpawnJail, "attach_cgroup", err)
		}
		m.step(h.id, "attach_cgroup", "ok", "")
	}
	m.step(h.id, "wait_hypervisor_ready", "ok", "")

	// Step 8: record spawn duration, construct and return the handle.
	h.machine = machine
	h.setState(StateRunning)
	m.transition(h.id, StateSpawning, StateRunning)
	m.step(h.id, "spawn_complete", "ok", time.Since(start).String())

	return h, nil
}
