package sensor

import (
	"strings"

	"github.com/ericogr/adis16000-to-mqtt/pkg/adis16000"
	"github.com/ericogr/adis16000-to-mqtt/pkg/config"
)

// enabledNodes returns the configured nodes that should be sampled.
func enabledNodes(cfg config.Config) []config.NodeConfig {
	out := make([]config.NodeConfig, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		if n.Enabled {
			out = append(out, n)
		}
	}
	return out
}

func nodeRange(n config.NodeConfig) adis16000.Range {
	r := adis16000.Range(n.Range)
	if !r.Valid() {
		return adis16000.Range1G
	}
	return r
}

// scaler picks the conversion for a node's capture record.
func scaler(n config.NodeConfig) func(int16) float64 {
	r := nodeRange(n)
	if strings.ToLower(n.Mode) == "time" {
		return func(raw int16) float64 { return adis16000.ScaleTime(raw, r) }
	}
	return func(raw int16) float64 { return adis16000.ScaleFFT(raw, r) }
}
