package vmconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *VmConfig {
	return New("t1", "/boot/vmlinux", "/images/rootfs.img")
}

func TestNew_AppliesSecurityDefaults(t *testing.T) {
	c := validConfig()
	assert.False(t, c.EnableNetworking)
	assert.True(t, c.RootfsReadOnly)
	assert.Equal(t, SeccompBasic, c.SeccompPolicy)
	require.NoError(t, c.Validate())
}

func TestNew_GeneratesIDWhenEmpty(t *testing.T) {
	c := New("", "/boot/vmlinux", "/images/rootfs.img")
	assert.NotEmpty(t, c.ID)
}

func TestSocketPath_DerivedFromRuntimeDirAndID(t *testing.T) {
	c := validConfig()
	c.RuntimeDir = "/var/run/ironclaw"
	assert.Equal(t, "/var/run/ironclaw/t1.sock", c.SocketPath())
}

func TestValidate_RejectsNetworkingEnabled(t *testing.T) {
	c := validConfig()
	c.EnableNetworking = true
	err := c.Validate()
	assert.True(t, errors.Is(err, ErrNetworkingEnabled))
}

func TestValidate_RejectsWritableRootfs(t *testing.T) {
	c := validConfig()
	c.RootfsReadOnly = false
	err := c.Validate()
	assert.True(t, errors.Is(err, ErrRootfsNotReadonly))
}

func TestValidate_RejectsZeroVCPUs(t *testing.T) {
	c := validConfig()
	c.VCPUs = 0
	err := c.Validate()
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestValidate_RejectsLowMemory(t *testing.T) {
	c := validConfig()
	c.MemoryMB = 64
	err := c.Validate()
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestValidate_RejectsMissingKernelPath(t *testing.T) {
	c := validConfig()
	c.KernelPath = ""
	err := c.Validate()
	assert.True(t, errors.Is(err, ErrMissingPath))
}

func TestValidate_RejectsMissingRootfsPath(t *testing.T) {
	c := validConfig()
	c.RootfsPath = ""
	err := c.Validate()
	assert.True(t, errors.Is(err, ErrMissingPath))
}

func TestValidate_DefaultsEmptySeccompToBasic(t *testing.T) {
	c := validConfig()
	c.SeccompPolicy = ""
	require.NoError(t, c.Validate())
	assert.Equal(t, SeccompBasic, c.SeccompPolicy)
}

func TestValidate_RejectsUnknownSeccompPreset(t *testing.T) {
	c := validConfig()
	c.SeccompPolicy = "paranoid"
	err := c.Validate()
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestValidate_RejectsSignatureWithoutPublicKey(t *testing.T) {
	c := validConfig()
	c.RootfsSignaturePath = "/images/rootfs.sig"
	err := c.Validate()
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestValidate_AcceptsSignatureAndPublicKeyTogether(t *testing.T) {
	c := validConfig()
	c.RootfsSignaturePath = "/images/rootfs.sig"
	c.RootfsPublicKeyPath = "/keys/rootfs.pub"
	assert.NoError(t, c.Validate())
}

func validJailerConfig() *JailerConfig {
	return NewJailerConfig("t1", "/opt/ironclaw/firecracker", 1000, 1000)
}

func TestNewJailerConfig_Defaults(t *testing.T) {
	j := validJailerConfig()
	require.NoError(t, j.Validate())
	assert.NotZero(t, j.Limits.CPUShares)
	assert.NotZero(t, j.Limits.MemoryBytes)
}

func TestJailerConfig_ChrootDir(t *testing.T) {
	j := validJailerConfig()
	j.JailRoot = "/var/lib/ironclaw/jails"
	assert.Equal(t, "/var/lib/ironclaw/jails/t1/root", j.ChrootDir())
}

func TestJailerConfig_RejectsRootUID(t *testing.T) {
	j := validJailerConfig()
	j.TargetUID = 0
	err := j.Validate()
	assert.True(t, errors.Is(err, ErrInvalidJailConfig))
}

func TestJailerConfig_RejectsRootGID(t *testing.T) {
	j := validJailerConfig()
	j.TargetGID = 0
	err := j.Validate()
	assert.True(t, errors.Is(err, ErrInvalidJailConfig))
}

func TestJailerConfig_RejectsMissingHypervisorBinary(t *testing.T) {
	j := validJailerConfig()
	j.HypervisorBinary = ""
	err := j.Validate()
	assert.True(t, errors.Is(err, ErrMissingPath))
}

func TestJailerConfig_RejectsZeroLimits(t *testing.T) {
	j := validJailerConfig()
	j.Limits = CgroupLimits{}
	err := j.Validate()
	assert.True(t, errors.Is(err, ErrInvalidJailConfig))
}
