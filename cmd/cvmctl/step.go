package main

import (
	"fmt"

	"github.com/cockpit-vm/cockpitvm/internal/hal"
	"github.com/cockpit-vm/cockpitvm/internal/hypervisor"
	"github.com/cockpit-vm/cockpitvm/internal/image"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newStepCmd(cfgPath *string, logger func() *zap.Logger) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "step <image>",
		Short: "Single-step a program image for debugging, printing engine state after each instruction",
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
				return err
			}

			for i := 0; (count <= 0 || i < count) && !hv.Halted(); i++ {
				instr, ok := hv.CurrentInstruction()
				line := "<end of program>"
				if ok {
					line = image.Disassemble(instr)
				}
				if err := hv.ExecuteSingleStep(); err != nil {
					fmt.Printf("step %d: %-20s fault: %v\n", i, line, err)
					return err
				}
				fmt.Printf("step %d: %-20s ok\n", i, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "maximum number of instructions to step (0 = until halted)")
	return cmd
}
