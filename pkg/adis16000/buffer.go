package adis16000

// ReadFFTBuffer triggers a capture on node and returns the record: X samples
// in [0, AxisLen), Y samples in [AxisLen, BufferLen). The gateway advances
// BUF_PNTR after each X/Y pair. The returned slice belongs to the caller.
func (d *Device) ReadFFTBuffer(node uint8) ([]int16, error) {
	if err := d.writeSeq(
		regWrite{RegPageID, uint16(node)},
		regWrite{RegBufPntr, 0},
		regWrite{RegGlobCmdS, SensorCmdStartCapture},
		regWrite{RegGlobCmdG, GatewayCmdTransmit},
	); err != nil {
		return nil, err
	}

	buf := make([]int16, BufferLen)
	for i := 0; i < AxisLen; i++ {
		x, err := d.ReadRegister(RegXBuf)
		if err != nil {
			return nil, err
		}
		y, err := d.ReadRegister(RegYBuf)
		if err != nil {
			return nil, err
		}
		buf[i] = x
		buf[i+AxisLen] = y
	}
	return buf, nil
}

// ReadFFTSample reads one X/Y pair at index from node's record.
func (d *Device) ReadFFTSample(index uint16, node uint8) ([2]int16, error) {
	var out [2]int16
	if err := d.writeSeq(
		regWrite{RegPageID, uint16(node)},
		regWrite{RegBufPntr, index},
	); err != nil {
		return out, err
	}
	x, err := d.ReadRegister(RegXBuf)
	if err != nil {
		return out, err
	}
	y, err := d.ReadRegister(RegYBuf)
	if err != nil {
		return out, err
	}
	out[0], out[1] = x, y
	return out, nil
}
