//go:build darwin

package hypervisor

func selectPlatform() (Backend, error) {
	return NewDarwinBackend(), nil
}
