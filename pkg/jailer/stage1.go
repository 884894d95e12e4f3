package jailer

import "os"

// Stage1Env, when set in the child's environment, tells the binary's entry
// point to run as the jail's stage1 helper instead of its normal command:
// install the compiled seccomp filter, then exec the hypervisor. Any binary
// that embeds this package must check IsStage1 first thing in main().
const Stage1Env = "IRONCLAW_JAIL_STAGE1"

// SeccompPresetEnv carries the seccomp preset name the stage1 helper should
// install before it execs the hypervisor.
const SeccompPresetEnv = "IRONCLAW_JAIL_SECCOMP_PRESET"

// IsStage1 reports whether the current process was launched as a jail's
// stage1 helper.
func IsStage1() bool {
	return os.Getenv(Stage1Env) == "1"
}
