package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type MQTTConfig struct {
	Server            string `json:"server" yaml:"server"`
	Username          string `json:"username" yaml:"username"`
	Password          string `json:"password" yaml:"password"`
	ClientID          string `json:"client_id" yaml:"client_id"`
	StateTopic        string `json:"state_topic" yaml:"state_topic"`
	DiscoveryTopic    string `json:"discovery_topic" yaml:"discovery_topic"`
	DiscoveryName     string `json:"discovery_name" yaml:"discovery_name"`
	DiscoveryUniqueID string `json:"discovery_unique_id" yaml:"discovery_unique_id"`
	AvailabilityTopic string `json:"availability_topic" yaml:"availability_topic"`
}

type OutputConfig struct {
	Type       string      `json:"type" yaml:"type"`
	IntervalMs int         `json:"interval_ms,omitempty" yaml:"interval_ms,omitempty"`
	MQTT       *MQTTConfig `json:"mqtt,omitempty" yaml:"mqtt,omitempty"`
}

// SPIConfig selects the bus backend and where the gateway hangs off it.
type SPIConfig struct {
	Backend  string `json:"backend" yaml:"backend"` // periph | rpio | ft232h
	Port     string `json:"port" yaml:"port"`       // periph port name, rpio bus number or ft232h index
	CSPin    string `json:"cs_pin" yaml:"cs_pin"`
	ResetPin string `json:"reset_pin" yaml:"reset_pin"`
}

// NodeConfig describes one remote sensor node.
type NodeConfig struct {
	Address  uint8  `json:"address" yaml:"address"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Join     bool   `json:"join,omitempty" yaml:"join,omitempty"`
	Leave    bool   `json:"leave,omitempty" yaml:"leave,omitempty"` // removed from the network before any join
	Range    int    `json:"range,omitempty" yaml:"range,omitempty"` // g: 1, 5, 10, 20
	Mode     string `json:"mode,omitempty" yaml:"mode,omitempty"`   // fft | time
	Capture  bool   `json:"capture,omitempty" yaml:"capture,omitempty"`
	Interval uint16 `json:"update_interval,omitempty" yaml:"update_interval,omitempty"`
	Scale    uint8  `json:"interval_scale,omitempty" yaml:"interval_scale,omitempty"`
	Save     bool   `json:"save,omitempty" yaml:"save,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type Config struct {
	SPI           SPIConfig      `json:"spi" yaml:"spi"`
	ResetSettleMs int            `json:"reset_settle_ms" yaml:"reset_settle_ms"`
	DataReady     int            `json:"data_ready,omitempty" yaml:"data_ready,omitempty"`
	SaveGateway   bool           `json:"save_gateway,omitempty" yaml:"save_gateway,omitempty"`
	Nodes         []NodeConfig   `json:"nodes" yaml:"nodes"`
	Outputs       []OutputConfig `json:"outputs" yaml:"outputs"`
	SensorType    string         `json:"sensor_type" yaml:"sensor_type"`
	IntervalMs    int            `json:"interval_ms" yaml:"interval_ms"`
	Log           LogConfig      `json:"log" yaml:"log"`
}

func DefaultConfig() Config {
	return Config{
		SPI: SPIConfig{
			Backend:  "periph",
			Port:     "/dev/spidev0.0",
			CSPin:    "GPIO8",
			ResetPin: "GPIO25",
		},
		ResetSettleMs: 500,
		Outputs:       []OutputConfig{{Type: "console", IntervalMs: 1000}},
		SensorType:    "real",
		Nodes:         []NodeConfig{{Address: 1, Enabled: true, Range: 1, Mode: "fft"}},
		IntervalMs:    1000,
		Log:           LogConfig{Level: "info", Format: "text"},
	}
}

// LoadFromFlags loads configuration from os.Args.
func LoadFromFlags() (Config, error) {
	return Load(os.Args[1:])
}

// Load reads an optional JSON or YAML config file and applies flags on top.
// Flags override values present in the file.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("adis16000-to-mqtt", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to JSON or YAML config file")
	flagBackend := fs.String("spi-backend", "", "SPI backend: periph|rpio|ft232h")
	flagPort := fs.String("spi-port", "", "SPI port (e.g. /dev/spidev0.0, rpio bus 0, ft232h index)")
	flagCS := fs.String("cs-pin", "", "Chip select GPIO name")
	flagRst := fs.String("reset-pin", "", "Reset GPIO name")
	flagSettle := fs.Int("reset-settle-ms", -1, "Wait after hardware reset in ms")
	flagDataReady := fs.Int("data-ready", -1, "Data ready DIO line: 1 or 2 (0 leaves it untouched)")
	flagNodes := fs.String("nodes", "", "Comma-separated node addresses e.g. 1,2,3")
	flagRanges := fs.String("node-ranges", "", "Per node range in g e.g. 1=5,2=20")
	flagJoin := fs.String("node-join", "", "Per node join on start e.g. 1=true,2=false")
	flagLeave := fs.String("node-leave", "", "Per node removal on start e.g. 3=true")
	flagCapture := fs.String("node-capture", "", "Per node buffer capture e.g. 1=true")
	flagOutputs := fs.String("outputs", "", "Comma-separated outputs (console,mqtt)")
	flagOutputIntervals := fs.String("output-intervals", "", "Comma-separated output intervals e.g. console=1000,mqtt=5000")
	flagMQTTServer := fs.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := fs.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := fs.String("mqtt-pass", "", "MQTT password")
	flagClientID := fs.String("mqtt-client-id", "", "MQTT client id")
	flagTopic := fs.String("mqtt-topic", "", "MQTT state topic")
	flagAvail := fs.String("mqtt-availability-topic", "", "MQTT availability topic (online/offline)")
	flagSensorType := fs.String("sensor-type", "", "sensor type: real|simulation")
	flagInterval := fs.Int("interval-ms", -1, "Sample interval in ms")
	flagLogLevel := fs.String("log-level", "", "Log level (debug traces register access)")
	flagLogFormat := fs.String("log-format", "", "Log format: text|json")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()

	if *cfgPath != "" {
		if err := readFile(*cfgPath, &cfg); err != nil {
			return cfg, err
		}
	}

	if *flagBackend != "" {
		cfg.SPI.Backend = *flagBackend
	}
	if *flagPort != "" {
		cfg.SPI.Port = *flagPort
	}
	if *flagCS != "" {
		cfg.SPI.CSPin = *flagCS
	}
	if *flagRst != "" {
		cfg.SPI.ResetPin = *flagRst
	}
	if *flagSettle != -1 {
		cfg.ResetSettleMs = *flagSettle
	}
	if *flagDataReady != -1 {
		cfg.DataReady = *flagDataReady
	}
	if *flagNodes != "" {
		addrs, err := parseNodes(*flagNodes)
		if err != nil {
			return cfg, err
		}
		nodes := make([]NodeConfig, 0, len(addrs))
		for _, a := range addrs {
			nodes = append(nodes, NodeConfig{Address: a, Enabled: true, Range: 1, Mode: "fft"})
		}
		cfg.Nodes = nodes
	}
	if *flagRanges != "" {
		m, err := parseKeyIntMap(*flagRanges)
		if err != nil {
			return cfg, fmt.Errorf("node-ranges: %w", err)
		}
		for i := range cfg.Nodes {
			if v, ok := m[int(cfg.Nodes[i].Address)]; ok {
				cfg.Nodes[i].Range = v
			}
		}
	}
	if *flagJoin != "" {
		m, err := parseKeyBoolMap(*flagJoin)
		if err != nil {
			return cfg, fmt.Errorf("node-join: %w", err)
		}
		for i := range cfg.Nodes {
			if v, ok := m[int(cfg.Nodes[i].Address)]; ok {
				cfg.Nodes[i].Join = v
			}
		}
	}
	if *flagLeave != "" {
		m, err := parseKeyBoolMap(*flagLeave)
		if err != nil {
			return cfg, fmt.Errorf("node-leave: %w", err)
		}
		for i := range cfg.Nodes {
			if v, ok := m[int(cfg.Nodes[i].Address)]; ok {
				cfg.Nodes[i].Leave = v
			}
		}
	}
	if *flagCapture != "" {
		m, err := parseKeyBoolMap(*flagCapture)
		if err != nil {
			return cfg, fmt.Errorf("node-capture: %w", err)
		}
		for i := range cfg.Nodes {
			if v, ok := m[int(cfg.Nodes[i].Address)]; ok {
				cfg.Nodes[i].Capture = v
			}
		}
	}
	if *flagInterval != -1 {
		cfg.IntervalMs = *flagInterval
	}
	if *flagOutputs != "" {
		parts := parseCSV(*flagOutputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: p, IntervalMs: cfg.IntervalMs})
		}
		cfg.Outputs = outs
	}
	if *flagOutputIntervals != "" {
		outIntervals, err := parseKeyStringIntMap(*flagOutputIntervals)
		if err != nil {
			return cfg, fmt.Errorf("output-intervals: %w", err)
		}
		for i := range cfg.Outputs {
			if v, ok := outIntervals[cfg.Outputs[i].Type]; ok {
				cfg.Outputs[i].IntervalMs = v
			}
		}
	}
	// mqtt flags apply to every mqtt output; one is created if none exists
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagClientID != "" || *flagTopic != "" || *flagAvail != "" {
		apply := func(m *MQTTConfig) {
			if *flagMQTTServer != "" {
				m.Server = *flagMQTTServer
			}
			if *flagMQTTUser != "" {
				m.Username = *flagMQTTUser
			}
			if *flagMQTTPass != "" {
				m.Password = *flagMQTTPass
			}
			if *flagClientID != "" {
				m.ClientID = *flagClientID
			}
			if *flagTopic != "" {
				m.StateTopic = *flagTopic
			}
			if *flagAvail != "" {
				m.AvailabilityTopic = *flagAvail
			}
		}
		applied := false
		for i := range cfg.Outputs {
			if strings.ToLower(cfg.Outputs[i].Type) == "mqtt" {
				if cfg.Outputs[i].MQTT == nil {
					cfg.Outputs[i].MQTT = &MQTTConfig{}
				}
				apply(cfg.Outputs[i].MQTT)
				applied = true
			}
		}
		if !applied {
			mqttOut := OutputConfig{Type: "mqtt", IntervalMs: cfg.IntervalMs, MQTT: &MQTTConfig{}}
			apply(mqttOut.MQTT)
			cfg.Outputs = append(cfg.Outputs, mqttOut)
		}
	}
	if *flagSensorType != "" {
		cfg.SensorType = *flagSensorType
	}
	if *flagLogLevel != "" {
		cfg.Log.Level = *flagLogLevel
	}
	if *flagLogFormat != "" {
		cfg.Log.Format = *flagLogFormat
	}
	for i := range cfg.Outputs {
		if cfg.Outputs[i].IntervalMs == 0 {
			cfg.Outputs[i].IntervalMs = cfg.IntervalMs
		}
	}

	return cfg, cfg.Validate()
}

// Validate rejects settings the gateway cannot honour.
func (c Config) Validate() error {
	var errs []error
	if c.IntervalMs <= 0 {
		errs = append(errs, errors.New("interval-ms must be > 0"))
	}
	if c.DataReady != 0 && c.DataReady != 1 && c.DataReady != 2 {
		errs = append(errs, fmt.Errorf("data-ready must be 0, 1 or 2, got %d", c.DataReady))
	}
	seen := map[uint8]bool{}
	for _, n := range c.Nodes {
		if n.Address == 0 {
			errs = append(errs, errors.New("node address 0 is the gateway page"))
		}
		if seen[n.Address] {
			errs = append(errs, fmt.Errorf("node %d listed twice", n.Address))
		}
		seen[n.Address] = true
		switch n.Range {
		case 0, 1, 5, 10, 20:
		default:
			errs = append(errs, fmt.Errorf("node %d: range must be 1, 5, 10 or 20 g, got %d", n.Address, n.Range))
		}
		switch strings.ToLower(n.Mode) {
		case "", "fft", "time":
		default:
			errs = append(errs, fmt.Errorf("node %d: mode must be fft or time, got %q", n.Address, n.Mode))
		}
	}
	return errors.Join(errs...)
}

func readFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(b, cfg)
	default:
		err = json.Unmarshal(b, cfg)
	}
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func parseIntOrHex(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 0)
		return int(v), err
	}
	return strconv.Atoi(s)
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseNodes(s string) ([]uint8, error) {
	parts := parseCSV(s)
	out := make([]uint8, 0, len(parts))
	for _, p := range parts {
		v, err := parseIntOrHex(p)
		if err != nil {
			return nil, fmt.Errorf("invalid node '%s': %w", p, err)
		}
		if v < 1 || v > 0xFF {
			return nil, fmt.Errorf("invalid node '%s': out of range", p)
		}
		out = append(out, uint8(v))
	}
	return out, nil
}

func splitKV(p string) (string, string, error) {
	kv := strings.SplitN(p, "=", 2)
	if len(kv) != 2 {
		return "", "", fmt.Errorf("expected key=value, got '%s'", p)
	}
	return strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1]), nil
}

func parseKeyIntMap(s string) (map[int]int, error) {
	out := map[int]int{}
	for _, p := range parseCSV(s) {
		k, v, err := splitKV(p)
		if err != nil {
			return nil, err
		}
		ki, err := parseIntOrHex(k)
		if err != nil {
			return nil, err
		}
		vi, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		out[ki] = vi
	}
	return out, nil
}

func parseKeyBoolMap(s string) (map[int]bool, error) {
	out := map[int]bool{}
	for _, p := range parseCSV(s) {
		k, v, err := splitKV(p)
		if err != nil {
			return nil, err
		}
		ki, err := parseIntOrHex(k)
		if err != nil {
			return nil, err
		}
		vb, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		out[ki] = vb
	}
	return out, nil
}

func parseKeyStringIntMap(s string) (map[string]int, error) {
	out := map[string]int{}
	for _, p := range parseCSV(s) {
		k, v, err := splitKV(p)
		if err != nil {
			return nil, err
		}
		vi, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		out[k] = vi
	}
	return out, nil
}
