//go:build linux && amd64

package seccomp

import "golang.org/x/sys/unix"

// syscallNumbers maps syscall names to their amd64 syscall table numbers.
// Only the names referenced by steadyStateSyscalls need entries; a name
// missing from this table makes syscallNumber report false, and
// CompileProgram returns ErrUnsupportedArch for it.
var syscallNumbers = map[string]uint32{
	"read": unix.SYS_READ, "write": unix.SYS_WRITE,
	"readv": unix.SYS_READV, "writev": unix.SYS_WRITEV,
	"pread64": unix.SYS_PREAD64, "pwrite64": unix.SYS_PWRITE64,
	"close": unix.SYS_CLOSE, "fcntl": unix.SYS_FCNTL,
	"fstat": unix.SYS_FSTAT, "newfstatat": unix.SYS_NEWFSTATAT,
	"lseek": unix.SYS_LSEEK,
	"mmap":  unix.SYS_MMAP, "munmap": unix.SYS_MUNMAP,
	"mprotect": unix.SYS_MPROTECT, "madvise": unix.SYS_MADVISE, "brk": unix.SYS_BRK,
	"epoll_create1": unix.SYS_EPOLL_CREATE1, "epoll_ctl": unix.SYS_EPOLL_CTL,
	"epoll_wait": unix.SYS_EPOLL_WAIT, "epoll_pwait": unix.SYS_EPOLL_PWAIT,
	"poll": unix.SYS_POLL, "ppoll": unix.SYS_PPOLL,
	"select": unix.SYS_SELECT, "pselect6": unix.SYS_PSELECT6,
	"socket": unix.SYS_SOCKET, "connect": unix.SYS_CONNECT,
	"bind": unix.SYS_BIND, "listen": unix.SYS_LISTEN,
	"accept4": unix.SYS_ACCEPT4, "shutdown": unix.SYS_SHUTDOWN,
	"getsockopt": unix.SYS_GETSOCKOPT, "setsockopt": unix.SYS_SETSOCKOPT,
	"getsockname": unix.SYS_GETSOCKNAME, "getpeername": unix.SYS_GETPEERNAME,
	"sendmsg": unix.SYS_SENDMSG, "recvmsg": unix.SYS_RECVMSG,
	"sendto": unix.SYS_SENDTO, "recvfrom": unix.SYS_RECVFROM,
	"rt_sigaction": unix.SYS_RT_SIGACTION, "rt_sigprocmask": unix.SYS_RT_SIGPROCMASK,
	"rt_sigreturn": unix.SYS_RT_SIGRETURN, "sigaltstack": unix.SYS_SIGALTSTACK,
	"futex": unix.SYS_FUTEX, "clone": unix.SYS_CLONE, "clone3": unix.SYS_CLONE3,
	"exit": unix.SYS_EXIT, "exit_group": unix.SYS_EXIT_GROUP, "wait4": unix.SYS_WAIT4,
	"getpid": unix.SYS_GETPID, "gettid": unix.SYS_GETTID, "getppid": unix.SYS_GETPPID,
	"sched_yield": unix.SYS_SCHED_YIELD, "sched_getaffinity": unix.SYS_SCHED_GETAFFINITY,
	"nanosleep": unix.SYS_NANOSLEEP, "clock_gettime": unix.SYS_CLOCK_GETTIME,
	"clock_nanosleep": unix.SYS_CLOCK_NANOSLEEP, "clock_getres": unix.SYS_CLOCK_GETRES,
	"openat": unix.SYS_OPENAT, "unlinkat": unix.SYS_UNLINKAT,
	"pipe2": unix.SYS_PIPE2, "dup": unix.SYS_DUP, "dup3": unix.SYS_DUP3,
	"eventfd2": unix.SYS_EVENTFD2, "ioctl": unix.SYS_IOCTL, "prctl": unix.SYS_PRCTL,
	"getrandom": unix.SYS_GETRANDOM, "set_tid_address": unix.SYS_SET_TID_ADDRESS,
	"set_robust_list": unix.SYS_SET_ROBUST_LIST, "rseq": unix.SYS_RSEQ,
	"uname": unix.SYS_UNAME, "arch_prctl": unix.SYS_ARCH_PRCTL,
	"restart_syscall": unix.SYS_RESTART_SYSCALL,
}
