//go:build linux

package seccomp

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ironclaw/runtime/internal/errx"
)

const (
	// syscallNRAddr is the offset of seccomp_data.nr within the struct
	// the kernel hands to a cBPF program: a 32-bit syscall number at
	// offset 0, matching the layout seccomp(2) documents.
	syscallNRAddr = 0
)

// Filter encodes the allow-list as a classic BPF program: load the syscall
// number, compare against each allowed value in turn, RET_ALLOW on match,
// fall through to RET_KILL_PROCESS. An advisory program encodes as a single
// RET_ALLOW and is never installed.
func (p *Program) Filter() unix.SockFprog {
	if p.Advisory() {
		prog := []unix.SockFilter{
			{Code: unix.BPF_RET | unix.BPF_K, K: uint32(seccompRetAllow)},
		}
		return toFprog(prog)
	}

	prog := make([]unix.SockFilter, 0, len(p.allowed)*2+2)
	prog = append(prog, unix.SockFilter{
		Code: unix.BPF_LD | unix.BPF_W | unix.BPF_ABS,
		K:    syscallNRAddr,
	})
	for _, nr := range p.allowed {
		prog = append(prog, unix.SockFilter{
			Code: unix.BPF_JMP | unix.BPF_JEQ | unix.BPF_K,
			K:    nr,
			Jt:   0, // match: fall through to the RET_ALLOW below
			Jf:   1, // no match: skip RET_ALLOW, land on the next JEQ (or the trailing RET_KILL)
		})
		prog = append(prog, unix.SockFilter{
			Code: unix.BPF_RET | unix.BPF_K,
			K:    uint32(seccompRetAllow),
		})
	}
	prog = append(prog, unix.SockFilter{
		Code: unix.BPF_RET | unix.BPF_K,
		K:    uint32(seccompRetKillProcess),
	})
	return toFprog(prog)
}

func toFprog(filters []unix.SockFilter) unix.SockFprog {
	return unix.SockFprog{
		Len:    uint16(len(filters)),
		Filter: &filters[0],
	}
}

// These mirror the kernel's SECCOMP_RET_* constants; x/sys/unix does not
// export them as of this module's pinned version, so they are named here
// exactly as linux/seccomp.h defines them.
const (
	seccompRetKillProcess = 0x80000000
	seccompRetAllow       = 0x7fff0000
)

// Install sets PR_SET_NO_NEW_PRIVS then installs the compiled program via
// prctl(PR_SET_SECCOMP, SECCOMP_MODE_FILTER, ...). Must be called from the
// jailed child after chroot and UID/GID drop, immediately before exec.
func Install(p *Program) error {
	if p.Advisory() {
		return nil
	}
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return errx.Wrap(ErrNoNewPrivsFailed, err)
	}
	fprog := p.Filter()
	if _, _, errno := unix.Syscall(unix.SYS_PRCTL, unix.PR_SET_SECCOMP, unix.SECCOMP_MODE_FILTER, uintptr(unsafe.Pointer(&fprog))); errno != 0 {
		return errx.Wrap(ErrInstallFailed, errno)
	}
	return nil
}
