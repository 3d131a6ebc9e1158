//go:build ft232h

package hal

import (
	"fmt"
	"strconv"

	"github.com/ericogr/adis16000-to-mqtt/pkg/config"
	"github.com/yunginnanet/ft232h"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// ftPort runs SPI over an FT232H MPSSE engine. Chip select and reset are
// C-bus GPIO lines, so transfers go out with start/stop disabled.
type ftPort struct {
	ft *ft232h.FT232H
}

func (p *ftPort) String() string { return fmt.Sprintf("ft232h:%s", p.ft.Serial()) }

func (p *ftPort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, fmt.Errorf("ft232h: unsupported bits per word %d", bits)
	}
	cfg := p.ft.SPI.GetConfig()
	switch f {
	case 1 * physic.MegaHertz:
		cfg.Clock = 1000000
	case 2 * physic.MegaHertz:
		cfg.Clock = 2000000
	default:
		return nil, fmt.Errorf("ft232h: unsupported clock %s", f)
	}
	switch mode & spi.Mode3 {
	case spi.Mode0:
		cfg.Mode = 0
	case spi.Mode1:
		cfg.Mode = 1
	case spi.Mode2:
		cfg.Mode = 2
	case spi.Mode3:
		cfg.Mode = 3
	}
	apply := func() error { return p.ft.SPI.Config(cfg) }
	if err := apply(); err != nil {
		return nil, fmt.Errorf("ft232h: spi config: %w", err)
	}
	return &ftConn{port: p, apply: apply}, nil
}

type ftConn struct {
	port  *ftPort
	apply func() error
}

// Configure implements adis16000.Configurer.
func (c *ftConn) Configure() error {
	if err := c.apply(); err != nil {
		return fmt.Errorf("ft232h: spi config: %w", err)
	}
	return nil
}

func (c *ftConn) String() string { return c.port.String() }

func (c *ftConn) Duplex() conn.Duplex { return conn.Half }

// Tx writes w, or clocks len(r) bytes in when r is set. The read phase of
// the gateway only ever sends fill bytes, so half duplex is enough.
func (c *ftConn) Tx(w, r []byte) error {
	if len(r) == 0 {
		_, err := c.port.ft.SPI.Write(w, false, false)
		return err
	}
	b, err := c.port.ft.SPI.Read(uint(len(r)), false, false)
	if err != nil {
		return err
	}
	copy(r, b)
	return nil
}

func (c *ftConn) TxPackets(p []spi.Packet) error {
	for _, pk := range p {
		if err := c.Tx(pk.W, pk.R); err != nil {
			return err
		}
	}
	return nil
}

type ftPin struct {
	ft  *ft232h.FT232H
	pin ft232h.CPin
}

func (p ftPin) Out(l gpio.Level) error {
	return p.ft.GPIO.Set(p.pin, bool(l))
}

func openFT232H(cfg config.SPIConfig) (*Bus, error) {
	csN, err := pinNumber(cfg.CSPin, "C")
	if err != nil {
		return nil, err
	}
	rstN, err := pinNumber(cfg.ResetPin, "C")
	if err != nil {
		return nil, err
	}
	if csN > 7 || rstN > 7 {
		return nil, fmt.Errorf("ft232h: pins must be C0..C7")
	}

	mask := new(ft232h.Mask)
	if cfg.Port != "" {
		if _, err := strconv.Atoi(cfg.Port); err != nil {
			mask.Serial = cfg.Port
		} else {
			mask.Index = cfg.Port
		}
	}
	ft, err := ft232h.OpenMask(mask)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to FT232H: %w", err)
	}

	cs := ft232h.CPin(1 << csN)
	rst := ft232h.CPin(1 << rstN)
	if err := ft.GPIO.ConfigPin(cs, ft232h.Output, true); err != nil {
		ft.Close()
		return nil, fmt.Errorf("ft232h: cs pin: %w", err)
	}
	if err := ft.GPIO.ConfigPin(rst, ft232h.Output, true); err != nil {
		ft.Close()
		return nil, fmt.Errorf("ft232h: reset pin: %w", err)
	}

	port := &ftPort{ft: ft}
	return &Bus{
		Port:  port,
		CS:    ftPin{ft: ft, pin: cs},
		Reset: ftPin{ft: ft, pin: rst},
		Name:  port.String(),
		close: ft.Close,
	}, nil
}
