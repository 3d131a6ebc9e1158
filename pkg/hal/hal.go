// Package hal opens the SPI bus and the chip select / reset lines the
// gateway is wired to, on one of several host backends.
package hal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ericogr/adis16000-to-mqtt/pkg/adis16000"
	"github.com/ericogr/adis16000-to-mqtt/pkg/config"
)

// Bus is an opened backend. Port is handed to adis16000.New, which closes
// it with the device; Close tears down whatever the backend holds beyond
// the port.
type Bus struct {
	Port  adis16000.Port
	CS    adis16000.Pin
	Reset adis16000.Pin
	Name  string

	close func() error
}

func (b *Bus) String() string { return b.Name }

// Close releases the backend.
func (b *Bus) Close() error {
	if b.close == nil {
		return nil
	}
	err := b.close()
	b.close = nil
	return err
}

// Open dispatches on cfg.Backend.
func Open(cfg config.SPIConfig) (*Bus, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "periph":
		return openPeriph(cfg)
	case "rpio":
		return openRPIO(cfg)
	case "ft232h":
		return openFT232H(cfg)
	default:
		return nil, fmt.Errorf("hal: unknown backend %q", cfg.Backend)
	}
}

var errNoPin = errors.New("hal: pin name required")

// pinNumber accepts "25", "GPIO25" or a backend specific prefix such as "C3".
func pinNumber(name string, prefixes ...string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	if s == "" {
		return 0, errNoPin
	}
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			s = s[len(p):]
			break
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("hal: bad pin %q", name)
	}
	return n, nil
}
