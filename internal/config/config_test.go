package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingInterfaceReturnsErrHelp(t *testing.T) {
	_, err := Load([]string{}, "")
	require.ErrorIs(t, err, flag.ErrHelp)
}

func TestLoad_DefaultsWithoutINIFile(t *testing.T) {
	cfg, err := Load([]string{"-i", "wlan0"}, "")
	require.NoError(t, err)
	assert.Equal(t, "wlan0", cfg.Interface)
	assert.Equal(t, 14, cfg.MaxChannel)
	assert.Equal(t, []string{"beacon", "probe_req", "mgmt", "ctrl", "data"}, cfg.FrameTypes)
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestLoad_ParsesINIFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dot11sentry.ini")
	contents := `
[DEFAULT]
log_level = debug
log_interval = 2.5
frm_queue_max_size = 512
num_event_handlers = 8

[DOT11]
frame_types = beacon,mgmt
max_channel = 11
beacon_sample_rate = 0.1

[MYSQL]
driver = mysql
host = db.internal
port = 3307
mac_update_interval = 30

[BLUETOOTH]
uuid = 0000dec2-0000-1000-8000-00805f9b34fb
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load([]string{"-i", "wlan1"}, path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2500*time.Millisecond, cfg.LogInterval)
	assert.Equal(t, 512, cfg.FrameQueueSize)
	assert.Equal(t, 8, cfg.NumEventHandlers)
	assert.Equal(t, []string{"beacon", "mgmt"}, cfg.FrameTypes)
	assert.Equal(t, 11, cfg.MaxChannel)
	assert.InDelta(t, 0.1, cfg.BeaconSampleRate, 1e-9)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "db.internal", cfg.MySQLHost)
	assert.Equal(t, 3307, cfg.MySQLPort)
	assert.Equal(t, 30*time.Second, cfg.MACUpdateInterval)
	assert.Equal(t, "0000dec2-0000-1000-8000-00805f9b34fb", cfg.ServiceUUID)
}
