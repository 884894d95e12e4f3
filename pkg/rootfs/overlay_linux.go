//go:build linux

package rootfs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/ironclaw/runtime/internal/errx"
)

// OverlaySpec describes the three host directories that back a writable
// /tmp overlay stacked on top of a read-only rootfs mount: lowerDir holds
// the read-only base contents, upperDir receives writes, and workDir is
// overlayfs's required scratch directory (same filesystem as upperDir).
type OverlaySpec struct {
	LowerDir string
	UpperDir string
	WorkDir  string
	Target   string // mountpoint the merged view is mounted at, e.g. <chroot>/tmp
}

// MountOverlay creates upperDir/workDir if missing and mounts an overlayfs
// at spec.Target with spec.LowerDir as the read-only base. The rootfs image
// itself is never written to; only the overlay's upperDir accumulates
// writes, and that upperDir is discarded at teardown by UnmountOverlay.
func MountOverlay(spec OverlaySpec) error {
	if spec.LowerDir == "" || spec.UpperDir == "" || spec.WorkDir == "" || spec.Target == "" {
		return errx.With(ErrOverlayMount, ": incomplete overlay spec")
	}

	for _, dir := range []string{spec.UpperDir, spec.WorkDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return errx.Wrap(ErrOverlayMount, err)
		}
	}

	options := fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s", spec.LowerDir, spec.UpperDir, spec.WorkDir)
	if err := unix.Mount("overlay", spec.Target, "overlay", 0, options); err != nil {
		return errx.With(ErrOverlayMount, ": %s: %v", spec.Target, err)
	}
	return nil
}

// UnmountOverlay lazily unmounts spec.Target and discards the upperdir and
// workdir, matching the "discard the upperdir on teardown" mount policy.
// Every step is attempted regardless of earlier failures and the first
// error encountered is returned, so callers performing best-effort teardown
// still see every resource released.
func UnmountOverlay(spec OverlaySpec) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := unix.Unmount(spec.Target, unix.MNT_DETACH); err != nil && err != unix.EINVAL && err != unix.ENOENT {
		record(errx.With(ErrOverlayUnmount, ": %s: %v", spec.Target, err))
	}
	if err := os.RemoveAll(spec.UpperDir); err != nil {
		record(errx.Wrap(ErrOverlayUnmount, err))
	}
	if err := os.RemoveAll(spec.WorkDir); err != nil {
		record(errx.Wrap(ErrOverlayUnmount, err))
	}
	return firstErr
}
