package seccomp

import (
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/ironclaw/runtime/internal/errx"
)

// Program is a compiled classic BPF seccomp filter, ready to be handed to
// the jailed child before exec via prctl(PR_SET_SECCOMP).
type Program struct {
	// allowed holds the syscall numbers to allow; the encoded BPF
	// program body is platform-specific (linux/amd64 uses
	// unix.SockFilter) and is built by the Filter() accessor on Linux
	// builds so this type stays buildable on Darwin too.
	allowed []uint32
	kill    bool
}

// CompileProgram flattens a LinuxSeccomp action table into the syscall
// numbers to allow, for the host's GOARCH. The DefaultAction determines
// whether a syscall outside the allow-list is killed (ActKill/ActErrno
// under Strict) or simply not filtered (ActAllow, i.e. the None preset).
func CompileProgram(policy *specs.LinuxSeccomp) (*Program, error) {
	if policy == nil {
		return &Program{}, nil
	}
	if policy.DefaultAction == specs.ActAllow {
		return &Program{}, nil
	}

	nums := make([]uint32, 0, 64)
	for _, rule := range policy.Syscalls {
		for _, name := range rule.Names {
			n, ok := syscallNumber(name)
			if !ok {
				return nil, errx.With(ErrUnsupportedArch, ": syscall %q has no number table entry", name)
			}
			nums = append(nums, n)
		}
	}
	return &Program{allowed: nums, kill: policy.DefaultAction == specs.ActKill}, nil
}

// AllowedSyscalls returns the flattened list of allowed syscall numbers.
func (p *Program) AllowedSyscalls() []uint32 {
	return p.allowed
}

// Advisory reports whether this program performs no filtering (the None
// preset). Callers must log loudly before installing an advisory program.
func (p *Program) Advisory() bool {
	return len(p.allowed) == 0 && !p.kill
}
