//go:build darwin

package hypervisor

import (
	"context"
	"os"
	"time"

	"github.com/Code-Hex/vz/v3"

	"github.com/ironclaw/runtime/internal/errx"
	"github.com/ironclaw/runtime/pkg/vmconfig"
)

// DarwinBackend runs a microVM via Virtualization.framework. Unlike a
// general-purpose vz setup, no network device is attached to the
// configuration at all — §4.1 forbids the guest any network interface —
// and the rootfs disk attachment is always read-only.
type DarwinBackend struct{}

func NewDarwinBackend() *DarwinBackend {
	return &DarwinBackend{}
}

func (b *DarwinBackend) Name() string {
	return "virtualization.framework"
}

func (b *DarwinBackend) Launch(ctx context.Context, jcfg *vmconfig.JailerConfig, vmcfg *vmconfig.VmConfig) (Machine, error) {
	bootLoader, err := vz.NewLinuxBootLoader(vmcfg.KernelPath,
		vz.WithCommandLine("console=hvc0 root=/dev/vda ro reboot=k panic=1 ip=off"),
	)
	if err != nil {
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}

	vzConfig, err := vz.NewVirtualMachineConfiguration(bootLoader, uint(vmcfg.VCPUs), uint64(vmcfg.MemoryMB)*1024*1024)
	if err != nil {
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}

	diskAttachment, err := vz.NewDiskImageStorageDeviceAttachmentWithCacheAndSync(
		vmcfg.RootfsPath, true, vz.DiskImageCachingModeAutomatic, vz.DiskImageSynchronizationModeFsync,
	)
	if err != nil {
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}
	storageConfig, err := vz.NewVirtioBlockDeviceConfiguration(diskAttachment)
	if err != nil {
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}
	vzConfig.SetStorageDevicesVirtualMachineConfiguration([]vz.StorageDeviceConfiguration{storageConfig})

	vsockConfig, err := vz.NewVirtioSocketDeviceConfiguration()
	if err != nil {
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}
	vzConfig.SetSocketDevicesVirtualMachineConfiguration([]vz.SocketDeviceConfiguration{vsockConfig})

	nullRead, err := os.Open("/dev/null")
	if err != nil {
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}
	nullWrite, err := os.OpenFile("/dev/null", os.O_WRONLY, 0)
	if err != nil {
		nullRead.Close()
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}
	serialAttachment, err := vz.NewFileHandleSerialPortAttachment(nullRead, nullWrite)
	if err != nil {
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}
	consoleConfig, err := vz.NewVirtioConsoleDeviceSerialPortConfiguration(serialAttachment)
	if err != nil {
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}
	vzConfig.SetSerialPortsVirtualMachineConfiguration([]*vz.VirtioConsoleDeviceSerialPortConfiguration{consoleConfig})

	if ok, err := vzConfig.Validate(); err != nil || !ok {
		return nil, errx.With(ErrLaunchFailed, ": configuration validation failed: %v", err)
	}

	vm, err := vz.NewVirtualMachine(vzConfig)
	if err != nil {
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}

	if err := vm.Start(); err != nil {
		return nil, errx.Wrap(ErrLaunchFailed, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for vm.State() != vz.VirtualMachineStateRunning && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if vm.State() != vz.VirtualMachineStateRunning {
		vm.Stop()
		return nil, ErrWaitReadyTimeout
	}

	return &darwinMachine{vm: vm, socketPath: jcfg.ChrootDir() + "/api.sock"}, nil
}

type darwinMachine struct {
	vm         *vz.VirtualMachine
	socketPath string
}

func (m *darwinMachine) Shutdown(ctx context.Context) error {
	if !m.vm.CanRequestStop() {
		return m.Kill()
	}
	_, err := m.vm.RequestStop()
	return err
}

func (m *darwinMachine) Kill() error {
	return m.vm.Stop()
}

func (m *darwinMachine) Wait(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-m.vm.StateChangedNotify():
			if !ok || state == vz.VirtualMachineStateStopped || state == vz.VirtualMachineStateError {
				return nil
			}
		}
	}
}

func (m *darwinMachine) PID() int {
	return 0
}

func (m *darwinMachine) SocketPath() string {
	return m.socketPath
}
