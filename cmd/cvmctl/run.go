package main

import (
	"fmt"
	"os"

	"github.com/cockpit-vm/cockpitvm/internal/config"
	"github.com/cockpit-vm/cockpitvm/internal/hal"
	"github.com/cockpit-vm/cockpitvm/internal/hypervisor"
	"github.com/cockpit-vm/cockpitvm/internal/image"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(cfgPath *string, logger func() *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "run <image>",
		Short: "Load a program image into the simulated target and execute it to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrDefault(*cfgPath)
			if err != nil {
				return err
			}
			prog, err := loadImage(args[0])
			if err != nil {
				return err
			}

			log := logger()
			defer log.Sync()

			h := hal.NewSimHAL(cfg.Flash.BankABase, cfg.Flash.BankSize)
			hv := hypervisor.New(h, cfg.Engine.StackCells, cfg.Engine.BankInstructions, log)

			if err := hv.LoadProgram(prog.Instructions, prog.Strings); err != nil {
				return fmt.Errorf("load program: %w", err)
			}
			if err := hv.ExecuteProgram(); err != nil {
				m := hv.Metrics()
				fmt.Fprintf(os.Stderr, "fault after %d instructions: %v\n", m.InstructionsExecuted, err)
				return err
			}

			m := hv.Metrics()
			fmt.Printf("halted: instructions=%d io_ops=%d memory_ops=%d elapsed_ms=%d\n",
				m.InstructionsExecuted, m.IOOperations, m.MemoryOperations, m.ElapsedMillis)
			return nil
		},
	}
}

func loadConfigOrDefault(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func loadImage(path string) (image.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Program{}, err
	}
	defer f.Close()
	return image.DecodeProgram(f)
}
