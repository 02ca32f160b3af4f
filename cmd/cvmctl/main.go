// Command cvmctl is the host-side driver for CockpitVM: it loads a
// compiled program image into the simulated target and runs it, or drives
// the bootloader wire protocol to flash a new image.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	var verbose bool

	root := &cobra.Command{
		Use:   "cvmctl",
		Short: "Host-side driver for the CockpitVM hypervisor and bootloader",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a cockpitvm.toml configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	logger := func() *zap.Logger {
		cfg := zap.NewDevelopmentConfig()
		if !verbose {
			cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
		l, err := cfg.Build()
		if err != nil {
			return zap.NewNop()
		}
		return l
	}

	root.AddCommand(newRunCmd(&cfgPath, logger))
	root.AddCommand(newStepCmd(&cfgPath, logger))
	root.AddCommand(newFlashCmd(&cfgPath, logger))
	return root
}
