package sensor

import (
	"math/rand"
	"sync"
	"time"

	"github.com/ericogr/adis16000-to-mqtt/pkg/adis16000"
	"github.com/ericogr/adis16000-to-mqtt/pkg/config"
)

// FakeSensor produces plausible node readings without hardware.
type FakeSensor struct {
	nodes []config.NodeConfig
	rnd   *rand.Rand
	mu    sync.Mutex
}

func NewFakeSensor(cfg config.Config) (Sensor, error) {
	return &FakeSensor{nodes: enabledNodes(cfg), rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}, nil
}

func (f *FakeSensor) Read() ([]Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	out := make([]Reading, 0, len(f.nodes)*6)
	for _, n := range f.nodes {
		// ~25 °C and ~3.3 V in device counts
		temp := int16(300 + f.rnd.Intn(20))
		supply := int16(7400 + f.rnd.Intn(200))
		out = append(out,
			Reading{Node: n.Address, Quantity: QuantityTemperature, Unit: "°C", Raw: temp, Value: adis16000.ScaleTemperature(temp), Timestamp: now},
			Reading{Node: n.Address, Quantity: QuantitySupply, Unit: "V", Raw: supply, Value: adis16000.ScaleSupply(supply), Timestamp: now},
		)
		if !n.Capture {
			continue
		}
		scale := scaler(n)
		x := summarize(f.record(), scale)
		y := summarize(f.record(), scale)
		out = append(out,
			Reading{Node: n.Address, Quantity: QuantityXRMS, Unit: "mg", Value: x.RMS, Timestamp: now, Derived: true},
			Reading{Node: n.Address, Quantity: QuantityXPeak, Unit: "mg", Raw: x.PeakRaw, Value: x.Peak, Timestamp: now},
			Reading{Node: n.Address, Quantity: QuantityYRMS, Unit: "mg", Value: y.RMS, Timestamp: now, Derived: true},
			Reading{Node: n.Address, Quantity: QuantityYPeak, Unit: "mg", Raw: y.PeakRaw, Value: y.Peak, Timestamp: now},
		)
	}
	return out, nil
}

func (f *FakeSensor) record() []int16 {
	r := make([]int16, adis16000.AxisLen)
	for i := range r {
		r[i] = int16(f.rnd.Intn(2000))
	}
	return r
}

func (f *FakeSensor) Close() error { return nil }
