package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironclaw/runtime/pkg/jailer"
)

var rootCmd = &cobra.Command{
	Use:   "ironclawd",
	Short: "ironclawd spawns and supervises isolated microVM agent sandboxes",
}

func main() {
	// Every binary built on pkg/jailer must check IsStage1 before any
	// other logic: the jail re-execs this same binary as its stage1
	// helper to install the seccomp filter inside the new network/mount
	// namespaces (no separate PID namespace is created) before handing off
	// to the hypervisor. os.Args[0] is /stage1 itself; the rest is the
	// hypervisor's own argv.
	if jailer.IsStage1() {
		if err := jailer.RunStage1(os.Args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
