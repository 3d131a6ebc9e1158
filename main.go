package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ericogr/adis16000-to-mqtt/pkg/config"
	"github.com/ericogr/adis16000-to-mqtt/pkg/logging"
	"github.com/ericogr/adis16000-to-mqtt/pkg/output"
	"github.com/ericogr/adis16000-to-mqtt/pkg/output/console"
	"github.com/ericogr/adis16000-to-mqtt/pkg/output/mqtt"
	"github.com/ericogr/adis16000-to-mqtt/pkg/sensor"
	"github.com/rs/zerolog"
)

// Rough bus cost of one sampling cycle, in ms.
const (
	nodeCostMs    = 2  // TEMP_OUT and SUPPLY_OUT
	captureCostMs = 70 // full 512 entry record
	fallbackMs    = 1000
)

type outputEntry struct {
	Type       string
	Output     output.Output
	IntervalMs int
	last       time.Time
}

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	var (
		s   sensor.Sensor
		err error
	)
	switch strings.ToLower(cfg.SensorType) {
	case "simulation", "fake":
		s, err = sensor.NewFakeSensor(cfg)
	default:
		s, err = sensor.NewADIS16000Sensor(cfg, log)
	}
	if err != nil {
		return fmt.Errorf("sensor: %w", err)
	}
	defer s.Close()

	interval := computeSensorInterval(cfg)
	outputs, err := initOutputs(&cfg, interval, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, o := range outputs {
			if err := o.Output.Close(); err != nil {
				log.Warn().Err(err).Str("output", o.Type).Msg("close")
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Int("interval_ms", interval).Int("outputs", len(outputs)).Msg("sampling")
	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return nil
		case now := <-ticker.C:
			readings, err := s.Read()
			if err != nil {
				log.Error().Err(err).Msg("read")
				continue
			}
			dispatch(outputs, readings, now, log)
		}
	}
}

// dispatch hands readings to every output whose own interval has elapsed.
func dispatch(outputs []*outputEntry, readings []sensor.Reading, now time.Time, log zerolog.Logger) {
	for _, o := range outputs {
		if !o.last.IsZero() && now.Sub(o.last) < time.Duration(o.IntervalMs)*time.Millisecond {
			continue
		}
		o.last = now
		if err := o.Output.Publish(readings); err != nil {
			log.Error().Err(err).Str("output", o.Type).Msg("publish")
		}
	}
}

// computeSensorInterval returns the sampling period in ms: the configured
// interval, stretched to cover the bus time the enabled nodes need.
func computeSensorInterval(cfg config.Config) int {
	cost := 0
	for _, n := range cfg.Nodes {
		if !n.Enabled {
			continue
		}
		cost += nodeCostMs
		if n.Capture {
			cost += captureCostMs
		}
	}
	interval := cfg.IntervalMs
	if interval <= 0 {
		interval = fallbackMs
	}
	if cost > interval {
		return cost
	}
	return interval
}

// initOutputs builds the configured outputs. Outputs without their own
// interval inherit the sampling interval.
func initOutputs(cfg *config.Config, interval int, log zerolog.Logger) ([]*outputEntry, error) {
	var entries []*outputEntry
	for i := range cfg.Outputs {
		oc := &cfg.Outputs[i]
		if oc.IntervalMs <= 0 {
			oc.IntervalMs = interval
		}
		var (
			o   output.Output
			err error
		)
		switch strings.ToLower(oc.Type) {
		case "console":
			o = console.NewConsole()
		case "mqtt":
			mc := config.MQTTConfig{}
			if oc.MQTT != nil {
				mc = *oc.MQTT
			}
			o, err = mqtt.NewMQTT(mc, cfg.Nodes, log)
		default:
			err = fmt.Errorf("unknown output type %q", oc.Type)
		}
		if err != nil {
			for _, e := range entries {
				_ = e.Output.Close()
			}
			return nil, err
		}
		entries = append(entries, &outputEntry{Type: oc.Type, Output: o, IntervalMs: oc.IntervalMs})
	}
	return entries, nil
}
