//go:build linux

package hypervisor

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ironclaw/runtime/internal/errx"
	"github.com/ironclaw/runtime/pkg/jailer"
	"github.com/ironclaw/runtime/pkg/vmconfig"
)

// LinuxBackend launches a Firecracker microVM inside a jailer-built chroot.
// No network device is configured: §4.1 forbids the guest any network
// interface at all, so the config this backend writes carries no
// "network-interfaces" section, unlike a general-purpose Firecracker setup.
type LinuxBackend struct{}

func NewLinuxBackend() *LinuxBackend {
	return &LinuxBackend{}
}

func (b *LinuxBackend) Name() string {
	return "firecracker"
}

// Launch writes a Firecracker config file referencing the jail's
// chroot-relative artifact paths (/kernel, /rootfs.img — the names
// jailer.BuildChroot hard-links them under), starts the jailed child via
// jailer.Launch, and waits for the API socket to appear.
func (b *LinuxBackend) Launch(ctx context.Context, jcfg *vmconfig.JailerConfig, vmcfg *vmconfig.VmConfig) (Machine, error) {
	chrootDir := jcfg.ChrootDir()
	configPath := filepath.Join(chrootDir, "firecracker-config.json")
	hostSocketPath := filepath.Join(chrootDir, "api.sock")

	config := fmt.Sprintf(`{
  "boot-source": {
    "kernel_image_path": "/kernel",
    "boot_args": "console=ttyS0 reboot=k panic=1 pci=off ip=off"
  },
  "drives": [
    {
      "drive_id": "rootfs",
      "path_on_host": "/rootfs.img",
      "is_root_device": true,
      "is_read_only": true
    }
  ],
  "machine-config": {
    "vcpu_count": %d,
    "mem_size_mib": %d
  }
}`, vmcfg.VCPUs, vmcfg.MemoryMB)

	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}

	cmd, err := jailer.Launch(jcfg, vmcfg, []string{
		"--api-sock", "/api.sock",
		"--config-file", "/firecracker-config.json",
	})
	if err != nil {
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}

	if err := waitForSocket(ctx, hostSocketPath, 2*time.Second); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, errx.Wrap(ErrWaitReadyTimeout, err)
	}

	return &linuxMachine{cmd: cmd, socketPath: hostSocketPath}, nil
}

func waitForSocket(ctx context.Context, path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if conn, err := net.DialTimeout("unix", path, 20*time.Millisecond); err == nil {
			conn.Close()
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return fmt.Errorf("socket %s did not appear within %s", path, timeout)
}

type linuxMachine struct {
	cmd        *exec.Cmd
	socketPath string
}

func (m *linuxMachine) Shutdown(ctx context.Context) error {
	return m.cmd.Process.Signal(syscall.SIGTERM)
}

func (m *linuxMachine) Kill() error {
	return m.cmd.Process.Kill()
}

func (m *linuxMachine) Wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- m.cmd.Wait() }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (m *linuxMachine) PID() int {
	return m.cmd.Process.Pid
}

func (m *linuxMachine) SocketPath() string {
	return m.socketPath
}
