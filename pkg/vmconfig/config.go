// Package vmconfig defines the immutable, validated configuration surface
// for a single microVM: VmConfig (hypervisor-facing parameters) and
// JailerConfig (host-side confinement parameters). Both types are built via
// a constructor plus Validate(); no VM is ever spawned from an unvalidated
// config.
package vmconfig

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ironclaw/runtime/internal/errx"
)

const (
	MinVCPUs    = 1
	MinMemoryMB = 128

	DefaultRuntimeDir = "/var/run/ironclaw"
	DefaultJailRoot   = "/var/lib/ironclaw/jails"
)

// SeccompPreset names one of the three compiled seccomp policy presets.
type SeccompPreset string

const (
	SeccompNone   SeccompPreset = "none"
	SeccompBasic  SeccompPreset = "basic"
	SeccompStrict SeccompPreset = "strict"
)

// VmConfig is the immutable, hypervisor-facing configuration for one microVM.
// Construct with New, then call Validate before passing to the VM lifecycle
// manager; an unvalidated config must never reach spawn.
type VmConfig struct {
	ID         string
	VCPUs      int
	MemoryMB   int
	KernelPath string
	RootfsPath string

	// EnableNetworking must be false; present so an explicit attempt to
	// turn networking on fails validation loudly instead of silently.
	EnableNetworking bool
	// RootfsReadOnly must be true.
	RootfsReadOnly bool

	SeccompPolicy SeccompPreset

	// RootfsSignaturePath and RootfsPublicKeyPath, when both set, enable
	// the Ed25519 content-signature check during rootfs integrity
	// verification.
	RootfsSignaturePath string
	RootfsPublicKeyPath string

	// HashTreePath, when set, enables the fixed-block Merkle hash-tree
	// check during rootfs integrity verification.
	HashTreePath string

	// RuntimeDir is the host directory under which the derived side-
	// channel socket path is created.
	RuntimeDir string
}

// New returns a VmConfig with the given id and the spec-mandated security
// defaults: networking disabled, rootfs read-only, Basic seccomp.
func New(id string, kernelPath, rootfsPath string) *VmConfig {
	if id == "" {
		id = "vm-" + uuid.New().String()[:8]
	}
	return &VmConfig{
		ID:               id,
		VCPUs:            MinVCPUs,
		MemoryMB:         MinMemoryMB * 4,
		KernelPath:       kernelPath,
		RootfsPath:       rootfsPath,
		EnableNetworking: false,
		RootfsReadOnly:   true,
		SeccompPolicy:    SeccompBasic,
		RuntimeDir:       DefaultRuntimeDir,
	}
}

// SocketPath derives the host-side side-channel socket path for this VM.
func (c *VmConfig) SocketPath() string {
	dir := c.RuntimeDir
	if dir == "" {
		dir = DefaultRuntimeDir
	}
	return filepath.Join(dir, c.ID+".sock")
}

// Validate rejects any config that would violate the isolation invariants:
// networking must stay off, rootfs must stay read-only, resource minimums
// must be met, and every required path must be present.
func (c *VmConfig) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errx.With(ErrInvalidConfig, ": id is required")
	}
	if c.EnableNetworking {
		return errx.With(ErrNetworkingEnabled, ": vm %s requested networking", c.ID)
	}
	if !c.RootfsReadOnly {
		return errx.With(ErrRootfsNotReadonly, ": vm %s", c.ID)
	}
	if c.VCPUs < MinVCPUs {
		return errx.With(ErrInvalidConfig, ": vcpus must be >= %d, got %d", MinVCPUs, c.VCPUs)
	}
	if c.MemoryMB < MinMemoryMB {
		return errx.With(ErrInvalidConfig, ": memory_mb must be >= %d, got %d", MinMemoryMB, c.MemoryMB)
	}
	if strings.TrimSpace(c.KernelPath) == "" {
		return errx.With(ErrMissingPath, ": kernel_path")
	}
	if strings.TrimSpace(c.RootfsPath) == "" {
		return errx.With(ErrMissingPath, ": rootfs_path")
	}
	switch c.SeccompPolicy {
	case SeccompNone, SeccompBasic, SeccompStrict:
	case "":
		c.SeccompPolicy = SeccompBasic
	default:
		return errx.With(ErrInvalidConfig, ": unknown seccomp preset %q", c.SeccompPolicy)
	}
	hasSig := c.RootfsSignaturePath != ""
	hasKey := c.RootfsPublicKeyPath != ""
	if hasSig != hasKey {
		return errx.With(ErrInvalidConfig, ": rootfs signature path and public key path must both be set or both be empty")
	}
	return nil
}

// CgroupLimits bounds the resources available to a jailed VM process.
type CgroupLimits struct {
	CPUShares   uint64
	MemoryBytes uint64
	PidsMax     int64
	BlkioWeight uint16
}

// JailerConfig binds to a VmConfig by id and adds the host-side confinement
// parameters: the hypervisor binary location, the unprivileged target
// identity, cgroup limits, optional NUMA pin, and the chroot base.
type JailerConfig struct {
	VMID             string
	HypervisorBinary string
	TargetUID        int
	TargetGID        int
	CgroupParent     string
	Limits           CgroupLimits
	NUMANode         *int
	JailRoot         string
}

// NewJailerConfig returns a JailerConfig bound to vmID with the spec-mandated
// non-zero unprivileged identity and default resource limits.
func NewJailerConfig(vmID, hypervisorBinary string, targetUID, targetGID int) *JailerConfig {
	return &JailerConfig{
		VMID:             vmID,
		HypervisorBinary: hypervisorBinary,
		TargetUID:        targetUID,
		TargetGID:        targetGID,
		CgroupParent:     "ironclaw",
		Limits: CgroupLimits{
			CPUShares:   1024,
			MemoryBytes: 512 * 1024 * 1024,
			PidsMax:     64,
			BlkioWeight: 500,
		},
		JailRoot: DefaultJailRoot,
	}
}

// ChrootDir returns the per-VM chroot base directory: <jail-root>/<vm-id>/root.
func (j *JailerConfig) ChrootDir() string {
	root := j.JailRoot
	if root == "" {
		root = DefaultJailRoot
	}
	return filepath.Join(root, j.VMID, "root")
}

// Validate enforces that the jail never runs as root and always carries
// cgroup limits.
func (j *JailerConfig) Validate() error {
	if strings.TrimSpace(j.VMID) == "" {
		return errx.With(ErrInvalidJailConfig, ": vm_id is required")
	}
	if strings.TrimSpace(j.HypervisorBinary) == "" {
		return errx.With(ErrMissingPath, ": hypervisor_binary")
	}
	if j.TargetUID == 0 || j.TargetGID == 0 {
		return errx.With(ErrInvalidJailConfig, ": target uid/gid must be non-zero, got uid=%d gid=%d", j.TargetUID, j.TargetGID)
	}
	if j.Limits == (CgroupLimits{}) {
		return errx.With(ErrInvalidJailConfig, ": cgroup limits are required")
	}
	return nil
}
