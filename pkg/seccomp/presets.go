// Package seccomp compiles the three named presets from vmconfig
// (None/Basic/Strict) into a syscall action table, and on Linux installs the
// compiled result as a classic BPF program via prctl(2).
package seccomp

import (
	"runtime"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/ironclaw/runtime/internal/errx"
	"github.com/ironclaw/runtime/pkg/vmconfig"
)

// arches mirrors the seccomp architecture table every compiled filter must
// declare support for, keyed on the host's GOARCH.
func arches() []specs.Arch {
	switch runtime.GOARCH {
	case "amd64":
		return []specs.Arch{specs.ArchX86_64, specs.ArchX86, specs.ArchX32}
	case "arm64":
		return []specs.Arch{specs.ArchARM, specs.ArchAARCH64}
	default:
		return []specs.Arch{}
	}
}

// steadyStateSyscalls is the minimal set a jailed hypervisor process needs
// once it is past exec: file and memory I/O, its vsock/TAP-less socket
// plumbing, signal delivery, and process bookkeeping. No networking
// syscalls beyond AF_UNIX/AF_VSOCK are included — the VM carries no network
// device.
var steadyStateSyscalls = []string{
	"read", "write", "readv", "writev", "pread64", "pwrite64",
	"close", "fcntl", "fstat", "newfstatat", "lseek",
	"mmap", "munmap", "mprotect", "madvise", "brk",
	"epoll_create1", "epoll_ctl", "epoll_wait", "epoll_pwait",
	"poll", "ppoll", "select", "pselect6",
	"socket", "connect", "bind", "listen", "accept4", "shutdown",
	"getsockopt", "setsockopt", "getsockname", "getpeername",
	"sendmsg", "recvmsg", "sendto", "recvfrom",
	"rt_sigaction", "rt_sigprocmask", "rt_sigreturn", "sigaltstack",
	"futex", "clone", "clone3", "exit", "exit_group", "wait4",
	"getpid", "gettid", "getppid", "sched_yield", "sched_getaffinity",
	"nanosleep", "clock_gettime", "clock_nanosleep", "clock_getres",
	"openat", "unlinkat", "pipe2", "dup", "dup3", "eventfd2",
	"ioctl", "prctl", "getrandom", "set_tid_address", "set_robust_list",
	"rseq", "uname", "arch_prctl", "restart_syscall",
}

// strictDrops lists what Strict removes from steadyStateSyscalls; Strict
// is Basic minus syscalls that are not provably required by the Firecracker
// and vz steady-state loops: "clone3" and "ioctl" are dropped since the
// guest's supervisor does not invoke them after the initial setup phase.
var strictDrops = map[string]bool{
	"clone3": true,
	"ioctl":  true,
}

// Compile builds the syscall action table for preset. None returns a
// LinuxSeccomp with DefaultAction ActAllow (advisory only, logged loudly by
// the caller — never select this preset for a production spawn).
func Compile(preset vmconfig.SeccompPreset) (*specs.LinuxSeccomp, error) {
	switch preset {
	case vmconfig.SeccompNone:
		return &specs.LinuxSeccomp{
			DefaultAction: specs.ActAllow,
			Architectures: arches(),
		}, nil
	case vmconfig.SeccompBasic:
		return &specs.LinuxSeccomp{
			DefaultAction: specs.ActErrno,
			Architectures:  arches(),
			Syscalls:       syscallRules(steadyStateSyscalls),
		}, nil
	case vmconfig.SeccompStrict:
		names := make([]string, 0, len(steadyStateSyscalls))
		for _, n := range steadyStateSyscalls {
			if !strictDrops[n] {
				names = append(names, n)
			}
		}
		return &specs.LinuxSeccomp{
			DefaultAction: specs.ActErrno,
			Architectures:  arches(),
			Syscalls:       syscallRules(names),
		}, nil
	default:
		return nil, errx.With(ErrUnknownPreset, ": %q", preset)
	}
}

func syscallRules(names []string) []specs.LinuxSyscall {
	return []specs.LinuxSyscall{
		{Names: names, Action: specs.ActAllow},
	}
}
