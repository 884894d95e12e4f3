//go:build !linux

package jailer

import (
	"github.com/ironclaw/runtime/internal/errx"
	"github.com/ironclaw/runtime/pkg/vmconfig"
)

// CgroupPath is unavailable outside Linux; cgroups are a Linux-only concept.
func CgroupPath(cfg *vmconfig.JailerConfig) string {
	return ""
}

func CreateCgroup(cfg *vmconfig.JailerConfig) error {
	return errx.With(ErrCreateCgroup, ": cgroups are only supported on linux")
}

func AddProcess(cfg *vmconfig.JailerConfig, pid int) error {
	return errx.With(ErrSetCgroupLimit, ": cgroups are only supported on linux")
}

func DestroyCgroup(cfg *vmconfig.JailerConfig) error {
	return errx.With(ErrDestroyCgroup, ": cgroups are only supported on linux")
}
