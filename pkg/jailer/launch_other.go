//go:build !linux

package jailer

import (
	"os/exec"

	"github.com/ironclaw/runtime/internal/errx"
	"github.com/ironclaw/runtime/pkg/vmconfig"
)

// Launch always fails: the chroot/namespace/seccomp jail is Linux-only.
// Non-Linux hosts use the hypervisor backend's native isolation instead
// (see pkg/hypervisor), not this package.
func Launch(cfg *vmconfig.JailerConfig, vm *vmconfig.VmConfig, hypervisorArgs []string) (*exec.Cmd, error) {
	return nil, errx.With(ErrLaunchChild, ": jailer is only supported on linux")
}
