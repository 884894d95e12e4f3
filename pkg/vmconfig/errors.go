package vmconfig

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid vm configuration")
	ErrInvalidJailConfig = errors.New("invalid jailer configuration")
	ErrMissingPath       = errors.New("required path is missing")
	ErrNetworkingEnabled = errors.New("networking MUST be disabled")
	ErrRootfsNotReadonly = errors.New("rootfs must be mounted read-only")
)
