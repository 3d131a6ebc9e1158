package adis16000

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("adis16000: device closed")
	// ErrNotConfigured is returned when the bus has no connection yet.
	ErrNotConfigured = errors.New("adis16000: bus not configured")
	// ErrInvalidChannel is returned by SetDataReady for a channel other than DIO1 or DIO2.
	ErrInvalidChannel = errors.New("adis16000: invalid data ready channel")
)

// BusError reports a transport failure while accessing a register. It lets
// callers tell a dead bus apart from a register holding unexpected content.
type BusError struct {
	Op  string
	Reg Register
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("adis16000: %s 0x%02X (%s): %v", e.Op, uint8(e.Reg), e.Reg, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }
