package adis16000

// Range is the full-scale acceleration range in g.
type Range int

const (
	Range1G  Range = 1
	Range5G  Range = 5
	Range10G Range = 10
	Range20G Range = 20
)

// Valid reports whether r is a range the device supports.
func (r Range) Valid() bool {
	switch r {
	case Range1G, Range5G, Range10G, Range20G:
		return true
	}
	return false
}

// Sensitivities per LSB. Unknown ranges fall back to the 1 g entry.
var (
	timeLSB = map[Range]float64{Range1G: 0.0305, Range5G: 0.1526, Range10G: 0.3052, Range20G: 0.6104}
	fftLSB  = map[Range]float64{Range1G: 0.0153, Range5G: 0.0763, Range10G: 0.1526, Range20G: 0.3052}
)

const (
	supplyLSB      = 0.00044 // V
	temperatureLSB = 0.0815  // °C
)

// signed applies the device library's sign handling: with bit 15 set the
// count is offset by 0xFFFF, so 0xFFFF maps to 0 and 0x8000 to -32767.
func signed(raw int16) float64 {
	v := int32(uint16(raw))
	if v&0x8000 != 0 {
		v -= 0xFFFF
	}
	return float64(v)
}

func lsb(table map[Range]float64, r Range) float64 {
	if v, ok := table[r]; ok {
		return v
	}
	return table[Range1G]
}

// ScaleTime converts a time-domain sample to mg.
func ScaleTime(raw int16, r Range) float64 {
	return signed(raw) * lsb(timeLSB, r)
}

// ScaleFFT converts an FFT magnitude sample to mg.
func ScaleFFT(raw int16, r Range) float64 {
	return signed(raw) * lsb(fftLSB, r)
}

// ScaleSupply converts SUPPLY_OUT to volts.
func ScaleSupply(raw int16) float64 {
	return signed(raw) * supplyLSB
}

// ScaleTemperature converts TEMP_OUT to degrees Celsius.
func ScaleTemperature(raw int16) float64 {
	return signed(raw) * temperatureLSB
}
