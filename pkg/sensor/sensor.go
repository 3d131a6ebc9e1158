package sensor

import "time"

// Quantities reported per node.
const (
	QuantityTemperature = "temperature"
	QuantitySupply      = "supply"
	QuantityXRMS        = "x_rms"
	QuantityXPeak       = "x_peak"
	QuantityYRMS        = "y_rms"
	QuantityYPeak       = "y_peak"
)

type Reading struct {
	Node      uint8     `json:"node"`
	Quantity  string    `json:"quantity"`
	Unit      string    `json:"unit"`
	Raw       int16     `json:"raw"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	// Derived readings are computed over a whole record and carry no raw count.
	Derived bool `json:"derived,omitempty"`
}

type Sensor interface {
	Read() ([]Reading, error)
	Close() error
}
