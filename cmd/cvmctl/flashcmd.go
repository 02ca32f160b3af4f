package main

import (
	"fmt"
	"hash/crc32"
	"os"

	"github.com/cockpit-vm/cockpitvm/internal/bootloader"
	"github.com/cockpit-vm/cockpitvm/internal/config"
	"github.com/cockpit-vm/cockpitvm/internal/flash"
	"github.com/cockpit-vm/cockpitvm/internal/frame"
	"github.com/cockpit-vm/cockpitvm/internal/hal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newFlashCmd(cfgPath *string, logger func() *zap.Logger) *cobra.Command {
	flashRoot := &cobra.Command{
		Use:   "flash",
		Short: "Drive the bootloader wire protocol against a simulated target",
	}
	flashRoot.AddCommand(newFlashSendCmd(cfgPath, logger))
	flashRoot.AddCommand(newFlashStatusCmd(cfgPath))
	return flashRoot
}

func flashLayoutOf(cfg config.Config) flash.Layout {
	return flash.Layout{
		BankABase:    cfg.Flash.BankABase,
		BankBBase:    cfg.Flash.BankBBase,
		BankSize:     cfg.Flash.BankSize,
		MetadataBase: cfg.Flash.MetadataBase,
		MetadataSize: cfg.Flash.MetadataSize,
	}
}

func bootloaderTimeoutsOf(cfg config.Config) bootloader.Timeouts {
	return bootloader.Timeouts{
		Session:       cfg.Timeouts.Session(),
		InterFrame:    cfg.Timeouts.InterFrame(),
		Handshake:     cfg.Timeouts.Handshake(),
		TriggerWindow: cfg.Timeouts.TriggerWindow(),
		MaxRetries:    cfg.Timeouts.MaxRetries,
	}
}

// newFlashSendCmd exercises the bootloader Serve loop end to end against a
// single-process simulated target: it frames the whole image as a single
// DATA command and reports the resulting outcome. An image too large for
// one frame payload (over 1023 bytes) gets no DATA frame at all, so the
// session does not complete. Since the simulated flash and UART
// exist only for this process's lifetime, this is a protocol exerciser,
// not a tool that reaches real hardware.
func newFlashSendCmd(cfgPath *string, logger func() *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "send <image>",
		Short: "Simulate a bootloader update session carrying image into the inactive bank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrDefault(*cfgPath)
			if err != nil {
				return err
			}
			layout := flashLayoutOf(cfg)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if uint32(len(data)) > layout.BankSize {
				return fmt.Errorf("image is %d bytes, exceeds bank size %d", len(data), layout.BankSize)
			}

			span := (layout.MetadataBase + layout.MetadataSize) - layout.BankABase
			h := hal.NewSimHAL(layout.BankABase, span)
			fm := flash.NewManager(h, layout)
			if err := fm.CommitMetadata(flash.Metadata{
				Magic:      flash.MetadataMagic,
				Version:    1,
				Size:       0,
				CRC32:      0,
				ActiveBank: flash.BankA,
			}); err != nil {
				return err
			}

			session := bootloader.NewSessionWithTimeouts(h, fm, bootloaderTimeoutsOf(cfg))

			feedSessionFrames(h, data)

			outcome := session.Serve(16)
			switch outcome {
			case bootloader.OutcomeComplete:
				fmt.Println("update complete: new bank active")
			case bootloader.OutcomeAbort:
				fmt.Printf("update aborted: %s\n", session.LastError())
			default:
				fmt.Println("session ended without completing")
			}
			return nil
		},
	}
}

func feedSessionFrames(h *hal.SimHAL, image []byte) {
	handshake, _ := frame.Encode([]byte{bootloader.CmdHandshake, 'c', 'v', 'm', 'c', 't', 'l'})
	h.FeedUART(handshake)

	var sizeBuf [4]byte
	sizeBuf[0] = byte(len(image) >> 24)
	sizeBuf[1] = byte(len(image) >> 16)
	sizeBuf[2] = byte(len(image) >> 8)
	sizeBuf[3] = byte(len(image))
	prepare, _ := frame.Encode(append([]byte{bootloader.CmdPrepareFlash}, sizeBuf[:]...))
	h.FeedUART(prepare)

	dataFrame, _ := frame.Encode(append([]byte{bootloader.CmdData}, image...))
	h.FeedUART(dataFrame)

	crc := crc32.ChecksumIEEE(image)
	var crcBuf [4]byte
	crcBuf[0] = byte(crc >> 24)
	crcBuf[1] = byte(crc >> 16)
	crcBuf[2] = byte(crc >> 8)
	crcBuf[3] = byte(crc)
	verify, _ := frame.Encode(append(append([]byte{bootloader.CmdVerify}, sizeBuf[:]...), crcBuf[:]...))
	h.FeedUART(verify)
}

func newFlashStatusCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report which bank a freshly initialized simulated target considers active",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrDefault(*cfgPath)
			if err != nil {
				return err
			}
			layout := flashLayoutOf(cfg)
			span := (layout.MetadataBase + layout.MetadataSize) - layout.BankABase
			h := hal.NewSimHAL(layout.BankABase, span)
			fm := flash.NewManager(h, layout)
			active, err := fm.GetActiveBank()
			if err != nil {
				fmt.Println("no committed metadata: treated as absent")
				return nil
			}
			fmt.Printf("active bank: %d\n", active)
			return nil
		},
	}
}
