package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cockpitvm.toml")
	contents := `
[uart]
baud_rate = 230400

[timeouts]
session_ms = 45000
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 230400, cfg.UART.BaudRate)
	require.Equal(t, 45000, cfg.Timeouts.SessionMS)
	// Untouched tables keep their defaults.
	require.EqualValues(t, 32*1024, cfg.Flash.BankSize)
}

func TestDefaultTimeoutsMatchSpec(t *testing.T) {
	cfg := Default()
	require.Equal(t, int64(30_000), cfg.Timeouts.Session().Milliseconds())
	require.Equal(t, int64(500), cfg.Timeouts.InterFrame().Milliseconds())
	require.Equal(t, int64(2_000), cfg.Timeouts.Handshake().Milliseconds())
}
