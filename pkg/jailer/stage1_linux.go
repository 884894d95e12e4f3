//go:build linux

package jailer

import (
	"os"
	"syscall"

	"github.com/ironclaw/runtime/internal/errx"
	"github.com/ironclaw/runtime/pkg/seccomp"
	"github.com/ironclaw/runtime/pkg/vmconfig"
)

// RunStage1 installs the seccomp filter named by SeccompPresetEnv and execs
// argv[0] with argv as its argument list. It must run after chroot,
// namespace entry, and UID/GID drop have already happened, which the
// runtime applies via SysProcAttr before this process image is even
// loaded — RunStage1 only has the seccomp install and final exec left to
// do. It never returns on success.
func RunStage1(argv []string) error {
	preset := vmconfig.SeccompPreset(os.Getenv(SeccompPresetEnv))
	policy, err := seccomp.Compile(preset)
	if err != nil {
		return errx.Wrap(ErrStage1, err)
	}
	program, err := seccomp.CompileProgram(policy)
	if err != nil {
		return errx.Wrap(ErrStage1, err)
	}
	if err := seccomp.Install(program); err != nil {
		return errx.Wrap(ErrStage1, err)
	}

	if len(argv) == 0 {
		return errx.With(ErrStage1, ": empty argv")
	}
	if err := syscall.Exec(argv[0], argv, os.Environ()); err != nil {
		return errx.With(ErrStage1, ": exec %s: %v", argv[0], err)
	}
	return nil
}
