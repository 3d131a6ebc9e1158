package console

import (
	"fmt"
	"time"

	"github.com/ericogr/adis16000-to-mqtt/pkg/output"
	"github.com/ericogr/adis16000-to-mqtt/pkg/sensor"
)

type ConsoleOutput struct{}

func NewConsole() output.Output { return &ConsoleOutput{} }

func (c *ConsoleOutput) Publish(readings []sensor.Reading) error {
	for _, r := range readings {
		if r.Derived {
			fmt.Printf("%s node=%d %s=%.6f %s\n", r.Timestamp.Format(time.RFC3339), r.Node, r.Quantity, r.Value, r.Unit)
			continue
		}
		fmt.Printf("%s node=%d %s=%.6f %s raw=%d\n", r.Timestamp.Format(time.RFC3339), r.Node, r.Quantity, r.Value, r.Unit, r.Raw)
	}
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }
