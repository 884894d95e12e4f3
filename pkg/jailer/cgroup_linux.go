//go:build linux

package jailer

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/opencontainers/cgroups"

	"github.com/ironclaw/runtime/internal/errx"
	"github.com/ironclaw/runtime/pkg/vmconfig"
)

const cgroupRoot = "/sys/fs/cgroup"

// CgroupPath returns the cgroup directory this VM's jail is confined to:
// <cgroup-root>/<cgroup-parent>/<vm-id>.
func CgroupPath(cfg *vmconfig.JailerConfig) string {
	parent := cfg.CgroupParent
	if parent == "" {
		parent = "ironclaw"
	}
	return filepath.Join(cgroupRoot, parent, cfg.VMID)
}

// CreateCgroup creates the per-VM cgroup directory and applies cfg.Limits.
// It targets the unified (v2) hierarchy, which every host this runtime
// supports runs; cgroups.IsCgroup2UnifiedMode reports whether that
// hierarchy is actually mounted, and a v1-only host fails loudly instead of
// silently skipping limits.
func CreateCgroup(cfg *vmconfig.JailerConfig) error {
	if !cgroups.IsCgroup2UnifiedMode() {
		return errx.With(ErrCreateCgroup, ": host is not running the unified cgroup v2 hierarchy")
	}

	path := CgroupPath(cfg)
	if err := os.MkdirAll(path, 0755); err != nil {
		return errx.Wrap(ErrCreateCgroup, err)
	}

	limits := map[string]string{
		"memory.max":    strconv.FormatUint(cfg.Limits.MemoryBytes, 10),
		"pids.max":      strconv.FormatInt(cfg.Limits.PidsMax, 10),
		"cpu.weight":    strconv.FormatUint(cgroupCPUWeight(cfg.Limits.CPUShares), 10),
		"io.bfq.weight": strconv.FormatUint(uint64(cfg.Limits.BlkioWeight), 10),
	}
	for file, value := range limits {
		if err := writeCgroupFile(path, file, value); err != nil {
			// io.bfq.weight is only present when the bfq I/O scheduler is
			// active; its absence must not abort the whole cgroup setup.
			if file == "io.bfq.weight" {
				continue
			}
			os.Remove(path)
			return errx.With(ErrSetCgroupLimit, ": %s: %v", file, err)
		}
	}
	return nil
}

// cgroupCPUWeight rescales the legacy v1 cpu.shares range (2-262144,
// default 1024) onto the v2 cpu.weight range (1-10000, default 100).
func cgroupCPUWeight(cpuShares uint64) uint64 {
	if cpuShares == 0 {
		return 100
	}
	weight := cpuShares * 10000 / 262144
	if weight < 1 {
		weight = 1
	}
	if weight > 10000 {
		weight = 10000
	}
	return weight
}

func writeCgroupFile(cgroupPath, file, value string) error {
	return os.WriteFile(filepath.Join(cgroupPath, file), []byte(value), 0644)
}

// AddProcess moves pid into the VM's cgroup by writing it to cgroup.procs.
func AddProcess(cfg *vmconfig.JailerConfig, pid int) error {
	path := CgroupPath(cfg)
	if err := writeCgroupFile(path, "cgroup.procs", strconv.Itoa(pid)); err != nil {
		return errx.With(ErrSetCgroupLimit, ": add pid %d: %v", pid, err)
	}
	return nil
}

// DestroyCgroup removes the per-VM cgroup directory. The kernel refuses to
// rmdir a cgroup with live processes, so callers must ensure the jailed
// child has already exited or been killed.
func DestroyCgroup(cfg *vmconfig.JailerConfig) error {
	path := CgroupPath(cfg)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errx.With(ErrDestroyCgroup, ": %s: %v", path, err)
	}
	return nil
}
