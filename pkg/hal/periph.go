package hal

import (
	"fmt"

	"github.com/ericogr/adis16000-to-mqtt/pkg/config"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

func openPeriph(cfg config.SPIConfig) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	cs, err := periphPin(cfg.CSPin)
	if err != nil {
		return nil, err
	}
	rst, err := periphPin(cfg.ResetPin)
	if err != nil {
		return nil, err
	}
	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("open spi: %w", err)
	}
	return &Bus{
		Port:  port,
		CS:    cs,
		Reset: rst,
		Name:  "periph:" + port.String(),
	}, nil
}

func periphPin(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, errNoPin
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("hal: failed to find pin %s", name)
	}
	return p, nil
}
