package adis16000

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

func TestNew(t *testing.T) {
	r, err := newRig()
	require.NoError(t, err)

	assert.Equal(t, 1, r.port.connects)
	assert.Equal(t, BusFrequency, r.port.freq)
	assert.Equal(t, spi.Mode3|spi.NoCS, r.port.mode)
	assert.Zero(t, r.port.mode&spi.LSBFirst, "bus must be MSB first")
	assert.Equal(t, 8, r.port.bits)
	assert.Equal(t, gpio.High, r.cs.level)
	assert.Equal(t, gpio.High, r.rst.level)

	t.Run("MissingCollaborators", func(t *testing.T) {
		_, err := New(nil, r.cs, r.rst, nil)
		assert.Error(t, err)
	})

	t.Run("ConnectFailure", func(t *testing.T) {
		boom := errors.New("busy")
		p := &fakePort{gw: r.gw, err: boom}
		_, err := New(p, r.cs, r.rst, nil)
		assert.ErrorIs(t, err, boom)
	})
}

func TestConfigureBusIdempotent(t *testing.T) {
	r, err := newRig()
	require.NoError(t, err)

	require.NoError(t, r.dev.ConfigureBus())
	require.NoError(t, r.dev.ConfigureBus())
	assert.Equal(t, 1, r.port.connects)
}

func TestConfigureBusReapplies(t *testing.T) {
	tr := &trace{}
	conn := &sharedConn{gateway: newGateway(tr)}
	port := &fakePort{gw: conn.gateway, conn: conn}
	dev, err := New(port, &fakePin{name: "cs", tr: tr}, &fakePin{name: "rst", tr: tr}, &Opts{Clock: &fakeClock{tr: tr}})
	require.NoError(t, err)
	assert.Zero(t, conn.configures)

	require.NoError(t, dev.ConfigureBus())
	require.NoError(t, dev.ConfigureBus())
	assert.Equal(t, 2, conn.configures)
	assert.Equal(t, 1, port.connects)

	conn.err = errors.New("controller busy")
	assert.ErrorIs(t, dev.ConfigureBus(), conn.err)
}

func TestNewClosesPortOnPinFailure(t *testing.T) {
	for _, name := range []string{"cs", "rst"} {
		t.Run(name, func(t *testing.T) {
			tr := &trace{}
			gw := newGateway(tr)
			port := &fakePort{gw: gw}
			cs := &fakePin{name: "cs", tr: tr}
			rst := &fakePin{name: "rst", tr: tr}
			boom := errors.New("gpio gone")
			if name == "cs" {
				cs.err = boom
			} else {
				rst.err = boom
			}

			dev, err := New(port, cs, rst, nil)
			assert.Nil(t, dev)
			assert.ErrorIs(t, err, boom)
			assert.True(t, port.closed)
		})
	}
}

func TestClose(t *testing.T) {
	r, err := newRig()
	require.NoError(t, err)

	require.NoError(t, r.dev.Close())
	assert.True(t, r.port.closed)
	require.NoError(t, r.dev.Close())

	_, err = r.dev.ReadRegister(RegProdID)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.dev.WriteRegister(RegPageID, 0), ErrClosed)
	assert.ErrorIs(t, r.dev.Reset(0), ErrClosed)
	assert.ErrorIs(t, r.dev.ConfigureBus(), ErrClosed)
	assert.Empty(t, r.tr.kinds("tx"))
}

func TestReset(t *testing.T) {
	r, err := newRig()
	require.NoError(t, err)

	settle := 50 * time.Millisecond
	require.NoError(t, r.dev.Reset(settle))

	ev := r.tr.events
	require.Len(t, ev, 4)
	assert.Equal(t, event{Kind: "rst", Level: gpio.Low}, ev[0])
	assert.Equal(t, "sleep", ev[1].Kind)
	assert.GreaterOrEqual(t, ev[1].Sleep, 100*time.Millisecond)
	assert.Equal(t, event{Kind: "rst", Level: gpio.High}, ev[2])
	assert.Equal(t, event{Kind: "sleep", Sleep: settle}, ev[3])
	assert.Equal(t, gpio.High, r.rst.level)
}

func TestResetPinFailure(t *testing.T) {
	r, err := newRig()
	require.NoError(t, err)

	boom := errors.New("gpio gone")
	r.rst.err = boom
	assert.ErrorIs(t, r.dev.Reset(0), boom)
}
