// Package vmhandle implements the VM lifecycle manager: spawn builds a
// fully isolated, running microVM or leaves the host exactly as it found
// it, and destroy tears one down on a best-effort basis, one step at a
// time, never halting partway through.
package vmhandle

import "errors"

var (
	ErrInvalidState        = errors.New("vm handle is not in a valid state for this operation")
	ErrSpawnValidateConfig = errors.New("spawn: config validation failed")
	ErrSpawnIntegrity      = errors.New("spawn: rootfs integrity verification failed")
	ErrSpawnFirewall       = errors.New("spawn: firewall isolation setup failed")
	ErrSpawnJail           = errors.New("spawn: jail construction failed")
	ErrSpawnLaunch         = errors.New("spawn: hypervisor launch failed")
	ErrSpawnTimeout        = errors.New("spawn: timed out waiting for hypervisor readiness")
)
