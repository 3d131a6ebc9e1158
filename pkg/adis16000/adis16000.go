// Package adis16000 drives the Analog Devices ADIS16000 wireless vibration
// sensing gateway over SPI.
//
// Design notes (datasheet references):
//   - SPI mode 3, MSB first, 1 MHz here (2 MHz device maximum).
//   - 16-bit registers written one byte at a time: two address|data words per write.
//   - Reads are two-phase: select the register, then clock the value out.
//   - Minimum stall between frames: 15 µs after a read phase, 25 µs after a write.
//   - Paged register map: page 0 is the gateway, pages 1..n are remote nodes.
//
// The driver is synchronous and does no locking. Callers sharing one bus
// between several devices must serialize access themselves.
package adis16000

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	// BusFrequency is the SPI clock used for every transfer.
	BusFrequency = 1 * physic.MegaHertz
	// BusMode is clock idle high, data sampled on the falling edge. Chip
	// select is driven by the driver so it can span several bytes.
	BusMode = spi.Mode3 | spi.NoCS
	busBits = 8
)

// Device timing.
const (
	ReadStall  = 15 * time.Microsecond
	WriteStall = 25 * time.Microsecond
	ResetPulse = 100 * time.Millisecond
	JoinStall  = 500 * time.Microsecond
)

// Port is the serial bus the gateway is attached to. A periph spi.Port
// satisfies it.
type Port interface {
	Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error)
}

// Pin is an output line driven by the driver. A periph gpio.PinOut
// satisfies it.
type Pin interface {
	Out(l gpio.Level) error
}

// Configurer is implemented by connections whose bus parameters live on a
// controller shared with other devices. ConfigureBus calls Configure to put
// the gateway's parameters back after another device changed them.
type Configurer interface {
	Configure() error
}

// Clock blocks the caller for the device's timing requirements.
type Clock interface {
	Sleep(d time.Duration)
}

type wallClock struct{}

func (wallClock) Sleep(d time.Duration) { time.Sleep(d) }

// Opts holds optional collaborators. The zero value uses the wall clock and
// discards log output.
type Opts struct {
	Clock  Clock
	Logger *zerolog.Logger
}

// Device is a handle on one ADIS16000 gateway. It owns the chip select and
// reset lines and a reference to the bus; it must not be copied.
type Device struct {
	port  Port
	conn  spi.Conn
	cs    Pin
	rst   Pin
	clock Clock
	log   zerolog.Logger

	closed bool

	// Fixed frames to avoid per-call allocations.
	w [4]byte
	r [2]byte
}

// New configures the bus and parks chip select and reset high.
func New(port Port, cs, rst Pin, opts *Opts) (*Device, error) {
	if port == nil || cs == nil || rst == nil {
		return nil, errors.New("adis16000: port, cs and rst are required")
	}
	d := &Device{
		port:  port,
		cs:    cs,
		rst:   rst,
		clock: wallClock{},
		log:   zerolog.Nop(),
	}
	if opts != nil {
		if opts.Clock != nil {
			d.clock = opts.Clock
		}
		if opts.Logger != nil {
			d.log = *opts.Logger
		}
	}
	if err := d.ConfigureBus(); err != nil {
		return nil, err
	}
	if err := cs.Out(gpio.High); err != nil {
		return nil, errors.Join(fmt.Errorf("adis16000: init cs: %w", err), d.Close())
	}
	if err := rst.Out(gpio.High); err != nil {
		return nil, errors.Join(fmt.Errorf("adis16000: init rst: %w", err), d.Close())
	}
	return d, nil
}

// ConfigureBus connects to the port with the gateway's bus parameters. Once
// connected, calling it again reapplies them on connections that implement
// Configurer; callers do so after another device on the same controller
// changed clock or mode.
func (d *Device) ConfigureBus() error {
	if d.closed {
		return ErrClosed
	}
	if d.conn != nil {
		c, ok := d.conn.(Configurer)
		if !ok {
			return nil
		}
		if err := c.Configure(); err != nil {
			return fmt.Errorf("adis16000: reconfigure bus: %w", err)
		}
		d.log.Debug().Str("conn", d.conn.String()).Msg("bus reconfigured")
		return nil
	}
	c, err := d.port.Connect(BusFrequency, BusMode, busBits)
	if err != nil {
		return fmt.Errorf("adis16000: configure bus: %w", err)
	}
	d.conn = c
	d.log.Debug().Str("conn", c.String()).Msg("bus configured")
	return nil
}

// Close releases the bus. The device is unusable afterwards.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.conn = nil
	if c, ok := d.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reset pulses the reset line low for ResetPulse, releases it and waits
// settle for the gateway to boot.
func (d *Device) Reset(settle time.Duration) error {
	if d.closed {
		return ErrClosed
	}
	if err := d.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("adis16000: reset low: %w", err)
	}
	d.clock.Sleep(ResetPulse)
	if err := d.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("adis16000: reset high: %w", err)
	}
	d.clock.Sleep(settle)
	d.log.Debug().Dur("settle", settle).Msg("hardware reset")
	return nil
}
