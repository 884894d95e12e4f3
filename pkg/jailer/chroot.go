package jailer

import (
	"os"
	"path/filepath"

	"github.com/ironclaw/runtime/internal/errx"
	"github.com/ironclaw/runtime/pkg/vmconfig"
)

// BuildChroot creates the per-VM chroot directory owned by cfg's target
// identity and hard-links the hypervisor binary, kernel, and rootfs image
// into it. Hard links are used instead of copies so the jail shares the
// same inode as the host-side artifact with no duplication cost, matching
// the spawn algorithm's "hard-link the hypervisor binary, kernel, and
// rootfs image into the chroot" step.
func BuildChroot(cfg *vmconfig.JailerConfig, vm *vmconfig.VmConfig) (retErr error) {
	chrootDir := cfg.ChrootDir()
	if err := os.MkdirAll(chrootDir, 0700); err != nil {
		return errx.Wrap(ErrBuildChroot, err)
	}
	if err := os.Chown(chrootDir, cfg.TargetUID, cfg.TargetGID); err != nil {
		os.RemoveAll(chrootDir)
		return errx.Wrap(ErrBuildChroot, err)
	}
	defer func() {
		if retErr != nil {
			os.RemoveAll(chrootDir)
		}
	}()

	self, err := os.Executable()
	if err != nil {
		return errx.Wrap(ErrBuildChroot, err)
	}

	links := map[string]string{
		cfg.HypervisorBinary: filepath.Join(chrootDir, "hypervisor"),
		vm.KernelPath:        filepath.Join(chrootDir, "kernel"),
		vm.RootfsPath:        filepath.Join(chrootDir, "rootfs.img"),
		self:                 filepath.Join(chrootDir, "stage1"),
	}
	for src, dst := range links {
		if err := linkArtifact(src, dst); err != nil {
			return err
		}
	}
	return nil
}

func linkArtifact(src, dst string) error {
	if err := os.Link(src, dst); err != nil {
		return errx.With(ErrLinkArtifact, ": %s -> %s: %v", src, dst, err)
	}
	return nil
}

// TeardownChroot removes the chroot directory tree. It is idempotent: a
// missing directory is not an error, matching teardown's best-effort
// contract.
func TeardownChroot(cfg *vmconfig.JailerConfig) error {
	if err := os.RemoveAll(cfg.ChrootDir()); err != nil {
		return errx.Wrap(ErrTeardownChroot, err)
	}
	return nil
}
