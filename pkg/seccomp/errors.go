package seccomp

import "errors"

var (
	ErrUnknownPreset    = errors.New("unknown seccomp preset")
	ErrUnsupportedArch  = errors.New("unsupported architecture for seccomp compilation")
	ErrInstallFailed    = errors.New("seccomp filter installation failed")
	ErrNoNewPrivsFailed = errors.New("failed to set no_new_privs")
)
