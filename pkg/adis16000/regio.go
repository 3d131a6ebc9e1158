package adis16000

import (
	"errors"

	"periph.io/x/conn/v3/gpio"
)

// tx runs one chip-select framed transfer.
func (d *Device) tx(w, r []byte) error {
	if d.closed {
		return ErrClosed
	}
	if d.conn == nil {
		return ErrNotConfigured
	}
	if err := d.cs.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx(w, r); err != nil {
		return errors.Join(err, d.cs.Out(gpio.High))
	}
	return d.cs.Out(gpio.High)
}

// ReadRegister returns the signed 16-bit content of reg.
func (d *Device) ReadRegister(reg Register) (int16, error) {
	d.w[0], d.w[1] = byte(reg), 0x00
	if err := d.tx(d.w[:2], nil); err != nil {
		return 0, d.busErr("read", reg, err)
	}
	d.clock.Sleep(ReadStall)

	d.w[0], d.w[1] = 0x00, 0x00
	d.r[0], d.r[1] = 0x00, 0x00
	if err := d.tx(d.w[:2], d.r[:]); err != nil {
		return 0, d.busErr("read", reg, err)
	}
	d.clock.Sleep(ReadStall)

	v := int16(uint16(d.r[0])<<8 | uint16(d.r[1]))
	d.log.Debug().Str("reg", reg.String()).Uint8("addr", uint8(reg)).Int16("value", v).Msg("read")
	return v, nil
}

// WriteRegister stores data in reg. The device takes 16-bit registers as two
// byte writes: the low byte to reg and the high byte to reg+1. Both words go
// out in one chip-select frame, the low-byte word first. Each word is sent
// MSB first, so its address byte precedes its data byte:
//
//	[0x80|reg, data&0xFF, 0x80|(reg+1), data>>8]
func (d *Device) WriteRegister(reg Register, data uint16) error {
	lo, hi := encodeWrite(reg, data)
	d.w[0], d.w[1] = byte(lo>>8), byte(lo)
	d.w[2], d.w[3] = byte(hi>>8), byte(hi)
	if err := d.tx(d.w[:4], nil); err != nil {
		return d.busErr("write", reg, err)
	}
	d.clock.Sleep(WriteStall)

	d.log.Debug().Str("reg", reg.String()).Uint8("addr", uint8(reg)).Uint16("value", data).Msg("write")
	return nil
}

// encodeWrite packs a register write into its two address|data words. Bit 15
// flags a write.
func encodeWrite(reg Register, data uint16) (lo, hi uint16) {
	addr := (uint16(reg)&0x7F | 0x80) << 8
	lo = addr | data&0xFF
	hi = addr | 0x100 | (data>>8)&0xFF
	return lo, hi
}

func (d *Device) busErr(op string, reg Register, err error) error {
	if errors.Is(err, ErrClosed) || errors.Is(err, ErrNotConfigured) {
		return err
	}
	return &BusError{Op: op, Reg: reg, Err: err}
}
