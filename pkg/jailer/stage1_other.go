//go:build !linux

package jailer

import "github.com/ironclaw/runtime/internal/errx"

// RunStage1 always fails: the seccomp + chroot jail stage only exists on
// Linux hosts.
func RunStage1(argv []string) error {
	return errx.With(ErrStage1, ": jail stage1 is only supported on linux")
}
