package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ironclaw/runtime/pkg/logging"
	"github.com/ironclaw/runtime/pkg/runtimecfg"
	"github.com/ironclaw/runtime/pkg/vmhandle"
)

var spawnCmd = &cobra.Command{
	Use:   "spawn",
	Short: "Spawn one jailed microVM and wait for it to be signaled down",
	Long: `Spawn builds a VmConfig and JailerConfig from the resolved runtime
configuration, spawns one microVM through the VM lifecycle manager, and
blocks until SIGINT/SIGTERM, then tears it down. It exists for manual
exercise of the lifecycle manager, not as a production supervisor loop.`,
	RunE: runSpawn,
}

func init() {
	spawnCmd.Flags().String("kernel", "", "Kernel image path (overrides config)")
	spawnCmd.Flags().String("rootfs", "", "Rootfs image path (overrides config)")
	spawnCmd.Flags().Bool("allow-degraded-isolation", false, "Permit spawning without a verified firewall chain")
	viper.BindPFlag("kernel_path", spawnCmd.Flags().Lookup("kernel"))
	viper.BindPFlag("rootfs_path", spawnCmd.Flags().Lookup("rootfs"))
	viper.BindPFlag("allow_degraded_isolation", spawnCmd.Flags().Lookup("allow-degraded-isolation"))

	rootCmd.AddCommand(spawnCmd)
}

func runSpawn(cmd *cobra.Command, args []string) error {
	v, err := runtimecfg.New(".", "/etc/ironclaw")
	if err != nil {
		return fmt.Errorf("loading runtime config: %w", err)
	}
	v.BindPFlag("kernel_path", cmd.Flags().Lookup("kernel"))
	v.BindPFlag("rootfs_path", cmd.Flags().Lookup("rootfs"))
	v.BindPFlag("allow_degraded_isolation", cmd.Flags().Lookup("allow-degraded-isolation"))
	rcfg := runtimecfg.Load(v)

	id := "vm-" + uuid.New().String()[:8]

	var sinks []logging.Sink
	if rcfg.LogPath != "" {
		w, err := logging.NewJSONLWriter(rcfg.LogPath)
		if err != nil {
			return fmt.Errorf("opening log sink: %w", err)
		}
		defer w.Close()
		sinks = append(sinks, w)
	}
	runID := rcfg.RunID
	if runID == "" {
		runID = id
	}
	emitter := logging.NewEmitter(logging.EmitterConfig{RunID: runID, AgentSystem: "ironclawd"}, sinks...)

	mgr, err := vmhandle.NewManager(emitter)
	if err != nil {
		return fmt.Errorf("selecting hypervisor backend: %w", err)
	}
	mgr.AllowDegradedIsolation = rcfg.AllowDegradedIsolation

	vmcfg := rcfg.VmConfig(id)
	jcfg := rcfg.JailerConfig(id)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	handle, err := vmhandle.Spawn(ctx, mgr, vmcfg, jcfg)
	if err != nil {
		return fmt.Errorf("spawning vm: %w", err)
	}
	fmt.Printf("spawned %s (socket: %s, isolation verified: %v)\n", handle.ID(), handle.SocketPath(), handle.VerifyIsolation())

	<-ctx.Done()

	destroyCtx, destroyCancel := context.WithTimeout(context.Background(), vmhandle.ShutdownGrace+5*time.Second)
	defer destroyCancel()
	if err := mgr.Destroy(destroyCtx, handle); err != nil {
		return fmt.Errorf("destroying vm: %w", err)
	}
	fmt.Printf("destroyed %s\n", handle.ID())
	return nil
}
