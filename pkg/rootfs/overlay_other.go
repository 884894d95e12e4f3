//go:build !linux

package rootfs

import "github.com/ironclaw/runtime/internal/errx"

// OverlaySpec mirrors the Linux definition so callers compile on every
// platform; only Linux can actually mount overlayfs.
type OverlaySpec struct {
	LowerDir string
	UpperDir string
	WorkDir  string
	Target   string
}

// MountOverlay always fails: overlayfs mounts are Linux-only.
func MountOverlay(spec OverlaySpec) error {
	return errx.With(ErrOverlayMount, ": overlay mounts are only supported on linux")
}

// UnmountOverlay always fails: overlayfs mounts are Linux-only.
func UnmountOverlay(spec OverlaySpec) error {
	return errx.With(ErrOverlayUnmount, ": overlay mounts are only supported on linux")
}
