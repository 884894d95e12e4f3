//go:build !(linux && amd64)

package seccomp

// syscallNumber has no table on platforms other than linux/amd64: the
// hypervisor jail itself (pkg/jailer) is Linux-only, so seccomp compilation
// on other platforms exists only so this package stays importable from
// shared code paths and always reports an empty table.
func syscallNumber(string) (uint32, bool) {
	return 0, false
}
