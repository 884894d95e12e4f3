package hypervisor

// Select returns the Backend appropriate for the host this process is
// running on: Firecracker on Linux, Virtualization.framework on Darwin.
// Each platform's file provides its own New*Backend constructor behind a
// build tag, so this function's body itself is platform-specific — see
// select_linux.go, select_darwin.go, select_other.go.
func Select() (Backend, error) {
	return selectPlatform()
}
