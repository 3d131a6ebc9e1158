package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonConfig = `{
    "spi": { "backend": "rpio", "port": "0", "cs_pin": "8", "reset_pin": "25" },
    "reset_settle_ms": 250,
    "data_ready": 2,
    "interval_ms": 2000,
    "sensor_type": "real",
    "outputs": [{"type":"console"}],
    "nodes": [
        {"address": 1, "enabled": true, "range": 5, "mode": "time", "capture": true},
        {"address": 2, "enabled": false, "join": true, "update_interval": 600, "interval_scale": 1}
    ]
}`

const yamlConfig = `
spi:
  backend: ft232h
  port: "0"
  cs_pin: "C0"
  reset_pin: "C1"
interval_ms: 500
log:
  level: debug
  format: json
nodes:
  - address: 3
    enabled: true
    range: 20
    save: true
outputs:
  - type: mqtt
    interval_ms: 5000
    mqtt:
      server: tcp://broker:1883
      state_topic: adis16000/node/%d
`

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestUnmarshalConfigJSON(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(jsonConfig), &cfg))

	assert.Equal(t, "rpio", cfg.SPI.Backend)
	assert.Equal(t, 250, cfg.ResetSettleMs)
	assert.Equal(t, 2, cfg.DataReady)
	require.Len(t, cfg.Nodes, 2)
	assert.Equal(t, NodeConfig{Address: 1, Enabled: true, Range: 5, Mode: "time", Capture: true}, cfg.Nodes[0])
	assert.Equal(t, uint16(600), cfg.Nodes[1].Interval)
	assert.Equal(t, uint8(1), cfg.Nodes[1].Scale)
	assert.True(t, cfg.Nodes[1].Join)
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeTemp(t, "gateway.yaml", yamlConfig)

	cfg, err := Load([]string{"-config", path})
	require.NoError(t, err)

	assert.Equal(t, SPIConfig{Backend: "ft232h", Port: "0", CSPin: "C0", ResetPin: "C1"}, cfg.SPI)
	assert.Equal(t, 500, cfg.IntervalMs)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	require.Len(t, cfg.Nodes, 1)
	assert.Equal(t, uint8(3), cfg.Nodes[0].Address)
	assert.Equal(t, 20, cfg.Nodes[0].Range)
	assert.True(t, cfg.Nodes[0].Save)
	require.Len(t, cfg.Outputs, 1)
	assert.Equal(t, 5000, cfg.Outputs[0].IntervalMs)
	assert.Equal(t, "adis16000/node/%d", cfg.Outputs[0].MQTT.StateTopic)
	// untouched fields keep their defaults
	assert.Equal(t, 500, cfg.ResetSettleMs)
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeTemp(t, "gateway.json", jsonConfig)

	cfg, err := Load([]string{
		"-config", path,
		"-spi-backend", "periph",
		"-interval-ms", "750",
		"-node-ranges", "1=10",
		"-node-capture", "1=false",
		"-outputs", "console,mqtt",
		"-output-intervals", "mqtt=3000",
		"-mqtt-server", "tcp://10.0.0.1:1883",
		"-log-level", "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "periph", cfg.SPI.Backend)
	assert.Equal(t, "0", cfg.SPI.Port)
	assert.Equal(t, 750, cfg.IntervalMs)
	assert.Equal(t, 10, cfg.Nodes[0].Range)
	assert.False(t, cfg.Nodes[0].Capture)
	require.Len(t, cfg.Outputs, 2)
	assert.Equal(t, 750, cfg.Outputs[0].IntervalMs)
	assert.Equal(t, 3000, cfg.Outputs[1].IntervalMs)
	require.NotNil(t, cfg.Outputs[1].MQTT)
	assert.Equal(t, "tcp://10.0.0.1:1883", cfg.Outputs[1].MQTT.Server)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestFlagNodesReplaceDefaults(t *testing.T) {
	cfg, err := Load([]string{"-nodes", "2,3", "-node-join", "3=true"})
	require.NoError(t, err)
	require.Len(t, cfg.Nodes, 2)
	assert.Equal(t, uint8(2), cfg.Nodes[0].Address)
	assert.False(t, cfg.Nodes[0].Join)
	assert.True(t, cfg.Nodes[1].Join)
	assert.Equal(t, 1, cfg.Nodes[1].Range)
}

func TestMQTTFlagsCreateOutput(t *testing.T) {
	cfg, err := Load([]string{"-mqtt-server", "tcp://broker:1883", "-mqtt-topic", "vib"})
	require.NoError(t, err)
	require.Len(t, cfg.Outputs, 2)
	assert.Equal(t, "mqtt", cfg.Outputs[1].Type)
	assert.Equal(t, "vib", cfg.Outputs[1].MQTT.StateTopic)
	assert.Equal(t, cfg.IntervalMs, cfg.Outputs[1].IntervalMs)
}

func TestNodeLeaveAndAvailabilityFlags(t *testing.T) {
	cfg, err := Load([]string{"-nodes", "1,3", "-node-leave", "3=true", "-mqtt-availability-topic", "vib/status"})
	require.NoError(t, err)
	assert.False(t, cfg.Nodes[0].Leave)
	assert.True(t, cfg.Nodes[1].Leave)
	require.Len(t, cfg.Outputs, 2)
	assert.Equal(t, "vib/status", cfg.Outputs[1].MQTT.AvailabilityTopic)

	_, err = Load([]string{"-node-leave", "x"})
	assert.ErrorContains(t, err, "node-leave")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := DefaultConfig()
	bad.IntervalMs = 0
	bad.DataReady = 3
	bad.Nodes = []NodeConfig{{Address: 0}, {Address: 1, Range: 7}, {Address: 1, Mode: "rms"}}
	err := bad.Validate()
	require.Error(t, err)
	for _, want := range []string{"interval-ms", "data-ready", "gateway page", "listed twice", "range must be", "mode must be"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load([]string{"-config", filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorContains(t, err, "read config")

	path := writeTemp(t, "broken.yml", "nodes: [")
	_, err = Load([]string{"-config", path})
	assert.ErrorContains(t, err, "parse config")

	_, err = Load([]string{"-node-ranges", "oops"})
	assert.ErrorContains(t, err, "node-ranges")
}
