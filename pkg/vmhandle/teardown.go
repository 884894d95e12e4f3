package vmhandle

import (
	"context"
	"time"

	"github.com/ironclaw/runtime/pkg/jailer"
	"github.com/ironclaw/runtime/pkg/logging"
	"github.com/ironclaw/runtime/pkg/rootfs"
)

// ShutdownGrace bounds how long Destroy waits for a graceful hypervisor
// stop before escalating to Kill.
const ShutdownGrace = 5 * time.Second

// Destroy tears down h on a best-effort, idempotent basis: every step runs
// regardless of whether an earlier step failed, each failure is logged but
// never halts the sequence, and calling Destroy twice on the same handle is
// safe. It releases the same resources as Spawn's rollback path, run
// unconditionally instead of only on error, with a graceful stop first.
// Step failures are reported only as teardown_step events; Destroy itself
// always returns nil once every step has been attempted.
func (m *Manager) Destroy(ctx context.Context, h *VmHandle) error {
	h.mu.Lock()
	if h.state == StateDestroyed {
		h.mu.Unlock()
		return nil
	}
	from := h.state
	h.state = StateDraining
	h.mu.Unlock()
	m.transition(h.id, from, StateDraining)

	record := func(step string, err error) {
		if err != nil {
			m.emit(logging.EventTeardownStep, step+": failed", &logging.TeardownStepData{
				VMID: h.id, Step: step, Outcome: "failed", Reason: err.Error(),
			})
			return
		}
		m.emit(logging.EventTeardownStep, step+": ok", &logging.TeardownStepData{
			VMID: h.id, Step: step, Outcome: "ok",
		})
	}
	skip := func(step, reason string) {
		m.emit(logging.EventTeardownStep, step+": skipped", &logging.TeardownStepData{
			VMID: h.id, Step: step, Outcome: "skipped", Reason: reason,
		})
	}

	if h.machine != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, ShutdownGrace)
		err := h.machine.Shutdown(shutdownCtx)
		cancel()
		if err == nil {
			waitCtx, cancel := context.WithTimeout(ctx, ShutdownGrace)
			err = h.machine.Wait(waitCtx)
			cancel()
		}
		if err != nil {
			if killErr := h.machine.Kill(); killErr != nil {
				record("stop_hypervisor", killErr)
			} else {
				record("stop_hypervisor", nil)
			}
		} else {
			record("stop_hypervisor", nil)
		}
	} else {
		skip("stop_hypervisor", "no hypervisor process recorded")
	}

	jailed := h.jailed
	if jailed {
		if err := jailer.DestroyCgroup(h.jcfg); err != nil {
			record("destroy_cgroup", err)
		} else {
			record("destroy_cgroup", nil)
		}
	} else {
		skip("destroy_cgroup", "backend provides its own confinement")
	}

	if h.overlay != nil {
		if err := rootfs.UnmountOverlay(*h.overlay); err != nil {
			record("unmount_overlay", err)
		} else {
			record("unmount_overlay", nil)
		}
	} else {
		skip("unmount_overlay", "no overlay was mounted")
	}

	if jailed {
		if err := jailer.TeardownChroot(h.jcfg); err != nil {
			record("teardown_chroot", err)
		} else {
			record("teardown_chroot", nil)
		}
	} else {
		skip("teardown_chroot", "backend provides its own confinement")
	}

	if h.fw != nil {
		if err := h.fw.Cleanup(); err != nil {
			record("cleanup_firewall", err)
		} else {
			record("cleanup_firewall", nil)
		}
	} else {
		skip("cleanup_firewall", "no firewall chain was configured")
	}

	h.setState(StateDestroyed)
	m.transition(h.id, StateDraining, StateDestroyed)

	return nil
}
