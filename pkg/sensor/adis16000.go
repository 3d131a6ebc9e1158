package sensor

import (
	"errors"
	"fmt"
	"time"

	"github.com/ericogr/adis16000-to-mqtt/pkg/adis16000"
	"github.com/ericogr/adis16000-to-mqtt/pkg/config"
	"github.com/ericogr/adis16000-to-mqtt/pkg/hal"
	"github.com/rs/zerolog"
)

// gateway is the part of *adis16000.Device the sensor uses.
type gateway interface {
	Reset(settle time.Duration) error
	ProductID() (uint16, error)
	AddSensor(node uint8) error
	RemoveSensor(node uint8) error
	SetPeriodicMode(interval uint16, scale uint8, node uint8) error
	SetDataReady(ch adis16000.DataReadyChannel) (adis16000.DataReadyChannel, error)
	SaveSensorSettings(node uint8) error
	SaveGatewaySettings() error
	ReadTemperature(node uint8) (int16, error)
	ReadSupply(node uint8) (int16, error)
	ReadFFTBuffer(node uint8) ([]int16, error)
	Close() error
}

type ADIS16000Sensor struct {
	dev   gateway
	bus   *hal.Bus
	nodes []config.NodeConfig
	log   zerolog.Logger
	now   func() time.Time
}

// NewADIS16000Sensor opens the configured backend, resets the gateway and
// provisions its nodes.
func NewADIS16000Sensor(cfg config.Config, log zerolog.Logger) (Sensor, error) {
	bus, err := hal.Open(cfg.SPI)
	if err != nil {
		return nil, err
	}
	dev, err := adis16000.New(bus.Port, bus.CS, bus.Reset, &adis16000.Opts{Logger: &log})
	if err != nil {
		return nil, errors.Join(err, bus.Close())
	}
	log.Info().Str("bus", bus.String()).Msg("gateway bus open")

	s, err := newADIS16000Sensor(dev, cfg, log)
	if err != nil {
		return nil, errors.Join(err, dev.Close(), bus.Close())
	}
	s.bus = bus
	return s, nil
}

func newADIS16000Sensor(dev gateway, cfg config.Config, log zerolog.Logger) (*ADIS16000Sensor, error) {
	s := &ADIS16000Sensor{
		dev:   dev,
		nodes: enabledNodes(cfg),
		log:   log,
		now:   time.Now,
	}
	if err := dev.Reset(time.Duration(cfg.ResetSettleMs) * time.Millisecond); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	id, err := dev.ProductID()
	if err != nil {
		return nil, fmt.Errorf("product id: %w", err)
	}
	if id != adis16000.ProductID {
		log.Warn().Uint16("prod_id", id).Msg("unexpected product id, is an ADIS16000 attached?")
	}
	if err := Provision(dev, cfg, log); err != nil {
		return nil, err
	}
	return s, nil
}

// Provision applies the node and gateway settings from cfg: leaves, joins,
// periodic mode, data ready routing and flash commits. A node that leaves
// without rejoining gets no further settings.
func Provision(dev gateway, cfg config.Config, log zerolog.Logger) error {
	for _, n := range cfg.Nodes {
		if n.Leave {
			if err := dev.RemoveSensor(n.Address); err != nil {
				return fmt.Errorf("remove node %d: %w", n.Address, err)
			}
			log.Info().Uint8("node", n.Address).Msg("node removed")
			if !n.Join {
				continue
			}
		}
		if n.Join {
			if err := dev.AddSensor(n.Address); err != nil {
				return fmt.Errorf("join node %d: %w", n.Address, err)
			}
			log.Info().Uint8("node", n.Address).Msg("join requested")
		}
		if n.Interval > 0 {
			if err := dev.SetPeriodicMode(n.Interval, n.Scale, n.Address); err != nil {
				return fmt.Errorf("periodic mode node %d: %w", n.Address, err)
			}
			log.Info().Uint8("node", n.Address).Uint16("interval", n.Interval).Uint8("scale", n.Scale).Msg("periodic mode")
		}
		if n.Save {
			if err := dev.SaveSensorSettings(n.Address); err != nil {
				return fmt.Errorf("save node %d: %w", n.Address, err)
			}
		}
	}
	if cfg.DataReady != 0 {
		ch, err := dev.SetDataReady(adis16000.DataReadyChannel(cfg.DataReady))
		if err != nil {
			return fmt.Errorf("data ready: %w", err)
		}
		log.Info().Uint8("dio", uint8(ch)).Msg("data ready routed")
	}
	if cfg.SaveGateway {
		if err := dev.SaveGatewaySettings(); err != nil {
			return fmt.Errorf("save gateway: %w", err)
		}
	}
	return nil
}

func (s *ADIS16000Sensor) Close() error {
	err := s.dev.Close()
	if s.bus != nil {
		err = errors.Join(err, s.bus.Close())
	}
	return err
}

func (s *ADIS16000Sensor) Read() ([]Reading, error) {
	out := make([]Reading, 0, len(s.nodes)*6)
	now := s.now()
	for _, n := range s.nodes {
		rs, err := s.readNode(n, now)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", n.Address, err)
		}
		out = append(out, rs...)
	}
	return out, nil
}

func (s *ADIS16000Sensor) readNode(n config.NodeConfig, now time.Time) ([]Reading, error) {
	temp, err := s.dev.ReadTemperature(n.Address)
	if err != nil {
		return nil, err
	}
	supply, err := s.dev.ReadSupply(n.Address)
	if err != nil {
		return nil, err
	}
	out := []Reading{
		{Node: n.Address, Quantity: QuantityTemperature, Unit: "°C", Raw: temp, Value: adis16000.ScaleTemperature(temp), Timestamp: now},
		{Node: n.Address, Quantity: QuantitySupply, Unit: "V", Raw: supply, Value: adis16000.ScaleSupply(supply), Timestamp: now},
	}
	if !n.Capture {
		return out, nil
	}

	buf, err := s.dev.ReadFFTBuffer(n.Address)
	if err != nil {
		return nil, err
	}
	scale := scaler(n)
	x := summarize(buf[:adis16000.AxisLen], scale)
	y := summarize(buf[adis16000.AxisLen:], scale)
	s.log.Debug().Uint8("node", n.Address).Float64("x_peak", x.Peak).Float64("y_peak", y.Peak).Msg("capture")
	return append(out,
		Reading{Node: n.Address, Quantity: QuantityXRMS, Unit: "mg", Value: x.RMS, Timestamp: now, Derived: true},
		Reading{Node: n.Address, Quantity: QuantityXPeak, Unit: "mg", Raw: x.PeakRaw, Value: x.Peak, Timestamp: now},
		Reading{Node: n.Address, Quantity: QuantityYRMS, Unit: "mg", Value: y.RMS, Timestamp: now, Derived: true},
		Reading{Node: n.Address, Quantity: QuantityYPeak, Unit: "mg", Raw: y.PeakRaw, Value: y.Peak, Timestamp: now},
	), nil
}
