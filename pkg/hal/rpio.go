package hal

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ericogr/adis16000-to-mqtt/pkg/config"
	"github.com/stianeikeland/go-rpio/v4"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// rpioPort drives a Raspberry Pi SPI controller through /dev/gpiomem,
// for hosts without spidev.
type rpioPort struct {
	dev       rpio.SpiDev
	begin     func(rpio.SpiDev) error
	configure func(speed int, cpol, cpha uint8)
	exchange  func([]byte)
	end       func(rpio.SpiDev)
	open      bool
	applied   rpioSettings
}

// rpioSettings is what the controller is clocking with. Speed and mode are
// controller wide, shared by every device on the bus.
type rpioSettings struct {
	speed      int
	cpol, cpha uint8
}

func (p *rpioPort) apply(s rpioSettings) {
	p.configure(s.speed, s.cpol, s.cpha)
	p.applied = s
}

func newRPIOPort(dev rpio.SpiDev) *rpioPort {
	return &rpioPort{
		dev:   dev,
		begin: rpio.SpiBegin,
		configure: func(speed int, cpol, cpha uint8) {
			rpio.SpiSpeed(speed)
			rpio.SpiMode(cpol, cpha)
		},
		exchange: rpio.SpiExchange,
		end:      rpio.SpiEnd,
	}
}

func (p *rpioPort) String() string { return fmt.Sprintf("rpio-spi%d", p.dev) }

// Connect implements spi.Port. The controller's own CE line still toggles;
// the gateway's chip select is a separate GPIO.
func (p *rpioPort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, fmt.Errorf("rpio: unsupported bits per word %d", bits)
	}
	if mode&spi.LSBFirst != 0 {
		return nil, errors.New("rpio: LSB first is not supported")
	}
	if !p.open {
		if err := p.begin(p.dev); err != nil {
			return nil, fmt.Errorf("rpio: spi begin: %w", err)
		}
		p.open = true
	}
	cpol, cpha := modeBits(mode)
	s := rpioSettings{speed: int(f / physic.Hertz), cpol: cpol, cpha: cpha}
	p.apply(s)
	return &rpioConn{port: p, settings: s}, nil
}

// Close implements io.Closer.
func (p *rpioPort) Close() error {
	if p.open {
		p.end(p.dev)
		p.open = false
	}
	return nil
}

// modeBits splits an SPI mode into clock polarity and phase.
func modeBits(mode spi.Mode) (cpol, cpha uint8) {
	m := mode & spi.Mode3
	return uint8(m>>1) & 1, uint8(m) & 1
}

type rpioConn struct {
	port     *rpioPort
	settings rpioSettings
	buf      []byte
}

// Configure implements adis16000.Configurer: it writes this connection's
// speed and mode back to the controller.
func (c *rpioConn) Configure() error {
	if !c.port.open {
		return errors.New("rpio: spi closed")
	}
	c.port.apply(c.settings)
	return nil
}

func (c *rpioConn) String() string { return c.port.String() }

func (c *rpioConn) Duplex() conn.Duplex { return conn.Full }

func (c *rpioConn) Tx(w, r []byte) error {
	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	if cap(c.buf) < n {
		c.buf = make([]byte, n)
	}
	if c.port.applied != c.settings {
		c.port.apply(c.settings)
	}
	b := c.buf[:n]
	clear(b)
	copy(b, w)
	c.port.exchange(b)
	copy(r, b)
	return nil
}

func (c *rpioConn) TxPackets(p []spi.Packet) error {
	for _, pk := range p {
		if err := c.Tx(pk.W, pk.R); err != nil {
			return err
		}
	}
	return nil
}

type rpioPin struct{ pin rpio.Pin }

func (p rpioPin) Out(l gpio.Level) error {
	if l == gpio.High {
		p.pin.High()
	} else {
		p.pin.Low()
	}
	return nil
}

func openRPIO(cfg config.SPIConfig) (*Bus, error) {
	csN, err := pinNumber(cfg.CSPin, "GPIO")
	if err != nil {
		return nil, err
	}
	rstN, err := pinNumber(cfg.ResetPin, "GPIO")
	if err != nil {
		return nil, err
	}
	dev := rpio.Spi0
	if cfg.Port != "" {
		n, err := strconv.Atoi(cfg.Port)
		if err != nil || n < 0 || n > 2 {
			return nil, fmt.Errorf("rpio: bad spi bus %q", cfg.Port)
		}
		dev = rpio.SpiDev(n)
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open rpio: %w", err)
	}
	cs := rpio.Pin(csN)
	cs.Output()
	rst := rpio.Pin(rstN)
	rst.Output()
	return &Bus{
		Port:  newRPIOPort(dev),
		CS:    rpioPin{cs},
		Reset: rpioPin{rst},
		Name:  fmt.Sprintf("rpio:spi%d", dev),
		close: rpio.Close,
	}, nil
}
