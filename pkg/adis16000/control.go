package adis16000

// DataReadyChannel selects the gateway DIO line that signals data ready.
type DataReadyChannel uint8

const (
	DIO1 DataReadyChannel = 1
	DIO2 DataReadyChannel = 2
)

// writeSeq issues register writes in order and stops at the first failure.
func (d *Device) writeSeq(seq ...regWrite) error {
	for _, w := range seq {
		if err := d.WriteRegister(w.reg, w.data); err != nil {
			return err
		}
	}
	return nil
}

type regWrite struct {
	reg  Register
	data uint16
}

// AddSensor opens the join window and hands the gateway the node address.
func (d *Device) AddSensor(node uint8) error {
	if err := d.WriteRegister(RegGlobCmdG, GatewayCmdStartJoin); err != nil {
		return err
	}
	d.clock.Sleep(JoinStall)
	return d.WriteRegister(RegCmdData, uint16(node))
}

// RemoveSensor drops node from the gateway's network.
func (d *Device) RemoveSensor(node uint8) error {
	return d.writeSeq(
		regWrite{RegCmdData, uint16(node)},
		regWrite{RegGlobCmdG, GatewayCmdRemove},
	)
}

// SaveGatewaySettings commits the gateway registers to flash.
func (d *Device) SaveGatewaySettings() error {
	return d.writeSeq(
		regWrite{RegPageID, GatewayPage},
		regWrite{RegGlobCmdG, GatewayCmdFlashUpdate},
	)
}

// SaveSensorSettings commits node's page to flash and has the gateway push
// it to the node.
func (d *Device) SaveSensorSettings(node uint8) error {
	return d.writeSeq(
		regWrite{RegPageID, uint16(node)},
		regWrite{RegGlobCmdS, SensorCmdFlashUpdate},
		regWrite{RegPageID, GatewayPage},
		regWrite{RegGlobCmdG, GatewayCmdTransmit},
	)
}

// SetPeriodicMode programs node's update interval and interval scale, then
// starts periodic acquisition.
func (d *Device) SetPeriodicMode(interval uint16, scale uint8, node uint8) error {
	return d.writeSeq(
		regWrite{RegPageID, uint16(node)},
		regWrite{RegUpdatInt, interval},
		regWrite{RegIntScl, uint16(scale)},
		regWrite{RegGlobCmdS, SensorCmdStartCapture},
	)
}

// SetDataReady routes the data ready signal to ch and returns it.
func (d *Device) SetDataReady(ch DataReadyChannel) (DataReadyChannel, error) {
	var pattern uint16
	switch ch {
	case DIO1:
		pattern = gpoDataReadyDIO1
	case DIO2:
		pattern = gpoDataReadyDIO2
	default:
		return 0, ErrInvalidChannel
	}
	if err := d.writeSeq(
		regWrite{RegPageID, GatewayPage},
		regWrite{RegGPOCtrl, pattern},
	); err != nil {
		return 0, err
	}
	return ch, nil
}

// ProductID reads PROD_ID from the gateway page.
func (d *Device) ProductID() (uint16, error) {
	if err := d.WriteRegister(RegPageID, GatewayPage); err != nil {
		return 0, err
	}
	v, err := d.ReadRegister(RegProdID)
	return uint16(v), err
}

// ReadTemperature returns node's raw TEMP_OUT. Scale with ScaleTemperature.
func (d *Device) ReadTemperature(node uint8) (int16, error) {
	return d.readNode(node, RegTempOut)
}

// ReadSupply returns node's raw SUPPLY_OUT. Scale with ScaleSupply.
func (d *Device) ReadSupply(node uint8) (int16, error) {
	return d.readNode(node, RegSupplyOut)
}

func (d *Device) readNode(node uint8, reg Register) (int16, error) {
	if err := d.WriteRegister(RegPageID, uint16(node)); err != nil {
		return 0, err
	}
	return d.ReadRegister(reg)
}
