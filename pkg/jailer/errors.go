// Package jailer builds and tears down the host-side confinement a VM runs
// inside: a chroot populated with hard-linked artifacts, a cgroup enforcing
// resource limits, and the network/mount namespaces the hypervisor child is
// launched into. It also carries the re-exec stage that installs the
// compiled seccomp filter inside that child immediately before it execs the
// hypervisor binary.
package jailer

import "errors"

var (
	ErrBuildChroot    = errors.New("failed to build chroot")
	ErrLinkArtifact   = errors.New("failed to link artifact into chroot")
	ErrCreateCgroup   = errors.New("failed to create cgroup")
	ErrSetCgroupLimit = errors.New("failed to set cgroup limit")
	ErrDestroyCgroup  = errors.New("failed to destroy cgroup")
	ErrTeardownChroot = errors.New("failed to tear down chroot")
	ErrLaunchChild    = errors.New("failed to launch jailed child")
	ErrStage1         = errors.New("jail stage1 failed")
)
