// Package config loads the TOML-backed platform configuration: flash bank
// geometry, UART parameters, and the timeouts/capacities that parameterize
// the Hypervisor and Bootloader.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root document loaded from a TOML file: UART baud, frame
// timeouts, and dual-bank flash layout.
type Config struct {
	Flash FlashConfig `toml:"flash"`
	UART  UARTConfig  `toml:"uart"`
	Timeouts TimeoutConfig `toml:"timeouts"`
	Engine EngineConfig `toml:"engine"`
}

// FlashConfig mirrors internal/flash.Layout in serializable form.
type FlashConfig struct {
	BankABase    uint32 `toml:"bank_a_base"`
	BankBBase    uint32 `toml:"bank_b_base"`
	BankSize     uint32 `toml:"bank_size"`
	MetadataBase uint32 `toml:"metadata_base"`
	MetadataSize uint32 `toml:"metadata_size"`
}

// UARTConfig captures the bootloader wire protocol's line parameters:
// 8N1, 115200 baud by default.
type UARTConfig struct {
	BaudRate int `toml:"baud_rate"`
}

// TimeoutConfig overrides the bootloader's default timeouts, expressed
// in milliseconds in the file and converted to time.Duration on load.
type TimeoutConfig struct {
	SessionMS       int `toml:"session_ms"`
	InterFrameMS    int `toml:"inter_frame_ms"`
	HandshakeMS     int `toml:"handshake_ms"`
	TriggerWindowMS int `toml:"trigger_window_ms"`
	MaxRetries      int `toml:"max_retries"`
}

// EngineConfig overrides stack capacity and program bank capacity.
type EngineConfig struct {
	StackCells       int `toml:"stack_cells"`
	BankInstructions int `toml:"bank_instructions"`
}

// Default returns the built-in configuration: a 128 KB dual-bank flash
// layout, 115200 baud, and the default bootloader timeouts.
func Default() Config {
	return Config{
		Flash: FlashConfig{
			BankABase:    0x0801_0000,
			BankBBase:    0x0801_8000,
			BankSize:     32 * 1024,
			MetadataBase: 0x0801_F800,
			MetadataSize: 2 * 1024,
		},
		UART: UARTConfig{BaudRate: 115200},
		Timeouts: TimeoutConfig{
			SessionMS:       30_000,
			InterFrameMS:    500,
			HandshakeMS:     2_000,
			TriggerWindowMS: 5_000,
			MaxRetries:      3,
		},
		Engine: EngineConfig{
			StackCells:       1024,
			BankInstructions: 8192,
		},
	}
}

// Load reads and decodes a TOML configuration file at path, falling back
// to Default for any table entirely omitted from the file.
func Load(path string) (Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (t TimeoutConfig) Session() time.Duration {
	return time.Duration(t.SessionMS) * time.Millisecond
}

func (t TimeoutConfig) InterFrame() time.Duration {
	return time.Duration(t.InterFrameMS) * time.Millisecond
}

func (t TimeoutConfig) Handshake() time.Duration {
	return time.Duration(t.HandshakeMS) * time.Millisecond
}

func (t TimeoutConfig) TriggerWindow() time.Duration {
	return time.Duration(t.TriggerWindowMS) * time.Millisecond
}
