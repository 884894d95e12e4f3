// Package runtimecfg loads the host-level operating parameters for
// ironclawd: runtime/jail directory layout, the hypervisor binary
// location, default resource limits, and logging destination. Values are
// resolved from (in ascending priority) defaults, a config file, the
// IRONCLAW_ environment namespace, and command-line flags bound via
// viper.BindPFlag.
package runtimecfg

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/ironclaw/runtime/pkg/vmconfig"
)

// RuntimeConfig is the resolved, flattened view of every host-level knob
// ironclawd needs before it can construct a vmconfig.VmConfig/JailerConfig
// pair and a vmhandle.Manager.
type RuntimeConfig struct {
	RuntimeDir string
	JailRoot   string

	HypervisorBinary string
	KernelPath       string
	RootfsPath       string

	TargetUID int
	TargetGID int

	VCPUs         int
	MemoryMB      int
	SeccompPolicy string

	CgroupParent string

	AllowDegradedIsolation bool
	SpawnTimeoutSeconds    int

	LogPath string
	RunID   string
}

// Defaults populates v with ironclawd's baseline configuration. Call
// before BindPFlags/ReadInConfig so flags and file values can override
// these without a nil-vs-zero ambiguity.
func Defaults(v *viper.Viper) {
	v.SetDefault("runtime_dir", vmconfig.DefaultRuntimeDir)
	v.SetDefault("jail_root", vmconfig.DefaultJailRoot)
	v.SetDefault("hypervisor_binary", "/usr/local/bin/firecracker")
	v.SetDefault("kernel_path", "")
	v.SetDefault("rootfs_path", "")
	v.SetDefault("target_uid", 10000)
	v.SetDefault("target_gid", 10000)
	v.SetDefault("vcpus", vmconfig.MinVCPUs)
	v.SetDefault("memory_mb", vmconfig.MinMemoryMB*4)
	v.SetDefault("seccomp_policy", string(vmconfig.SeccompBasic))
	v.SetDefault("cgroup_parent", "ironclaw")
	v.SetDefault("allow_degraded_isolation", false)
	v.SetDefault("spawn_timeout_seconds", 10)
	v.SetDefault("log_path", "")
	v.SetDefault("run_id", "")
}

// New builds a *viper.Viper wired to defaults, the IRONCLAW_ environment
// namespace, and (if present) a config file named "ironclaw" found on the
// given search paths.
func New(configSearchPaths ...string) (*viper.Viper, error) {
	v := viper.New()
	Defaults(v)

	v.SetEnvPrefix("IRONCLAW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("ironclaw")
	v.SetConfigType("yaml")
	for _, p := range configSearchPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	return v, nil
}

// Load reads every RuntimeConfig field out of v.
func Load(v *viper.Viper) *RuntimeConfig {
	return &RuntimeConfig{
		RuntimeDir:             v.GetString("runtime_dir"),
		JailRoot:               v.GetString("jail_root"),
		HypervisorBinary:       v.GetString("hypervisor_binary"),
		KernelPath:             v.GetString("kernel_path"),
		RootfsPath:             v.GetString("rootfs_path"),
		TargetUID:              v.GetInt("target_uid"),
		TargetGID:              v.GetInt("target_gid"),
		VCPUs:                  v.GetInt("vcpus"),
		MemoryMB:               v.GetInt("memory_mb"),
		SeccompPolicy:          v.GetString("seccomp_policy"),
		CgroupParent:           v.GetString("cgroup_parent"),
		AllowDegradedIsolation: v.GetBool("allow_degraded_isolation"),
		SpawnTimeoutSeconds:    v.GetInt("spawn_timeout_seconds"),
		LogPath:                v.GetString("log_path"),
		RunID:                  v.GetString("run_id"),
	}
}

// VmConfig builds a vmconfig.VmConfig for a new VM with the given id from
// this RuntimeConfig's resolved defaults.
func (c *RuntimeConfig) VmConfig(id string) *vmconfig.VmConfig {
	cfg := vmconfig.New(id, c.KernelPath, c.RootfsPath)
	cfg.VCPUs = c.VCPUs
	cfg.MemoryMB = c.MemoryMB
	cfg.RuntimeDir = c.RuntimeDir
	if c.SeccompPolicy != "" {
		cfg.SeccompPolicy = vmconfig.SeccompPreset(c.SeccompPolicy)
	}
	return cfg
}

// JailerConfig builds a vmconfig.JailerConfig bound to vmID from this
// RuntimeConfig's resolved defaults.
func (c *RuntimeConfig) JailerConfig(vmID string) *vmconfig.JailerConfig {
	jcfg := vmconfig.NewJailerConfig(vmID, c.HypervisorBinary, c.TargetUID, c.TargetGID)
	jcfg.CgroupParent = c.CgroupParent
	jcfg.JailRoot = c.JailRoot
	return jcfg
}
