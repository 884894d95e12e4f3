//go:build linux

package jailer

import (
	"os/exec"
	"syscall"

	"github.com/ironclaw/runtime/internal/errx"
	"github.com/ironclaw/runtime/pkg/vmconfig"
)

// Launch starts the jailed hypervisor child: a fresh network namespace
// (empty — no interfaces) and mount namespace, chrooted into cfg's jail
// directory, running as the jail's unprivileged target identity. The
// child's first action is the stage1 re-exec helper (hard-linked into the
// chroot as /stage1 by BuildChroot), which installs the compiled seccomp
// filter and then execs /hypervisor — matching the spawn algorithm's
// "fork inside the jail; child performs pivot-root, drops to target
// UID/GID, installs the compiled seccomp filter, then execs the
// hypervisor" step. Chroot stands in for pivot-root here: entering a
// mount namespace and chrooting gives the child the same opaque view of
// the host filesystem pivot-root would, without requiring a second
// privileged re-exec stage purely to relocate the root mount.
func Launch(cfg *vmconfig.JailerConfig, vm *vmconfig.VmConfig, hypervisorArgs []string) (*exec.Cmd, error) {
	argv := append([]string{"/hypervisor"}, hypervisorArgs...)

	cmd := &exec.Cmd{
		Path: "/stage1",
		Args: append([]string{"/stage1"}, argv...),
		Env: []string{
			Stage1Env + "=1",
			SeccompPresetEnv + "=" + string(vm.SeccompPolicy),
		},
		SysProcAttr: &syscall.SysProcAttr{
			Chroot:     cfg.ChrootDir(),
			Cloneflags: syscall.CLONE_NEWNET | syscall.CLONE_NEWNS,
			Credential: &syscall.Credential{
				Uid: uint32(cfg.TargetUID),
				Gid: uint32(cfg.TargetGID),
			},
		},
	}

	if err := cmd.Start(); err != nil {
		return nil, errx.Wrap(ErrLaunchChild, err)
	}
	return cmd, nil
}
