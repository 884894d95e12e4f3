//go:build linux

package hypervisor

func selectPlatform() (Backend, error) {
	return NewLinuxBackend(), nil
}
