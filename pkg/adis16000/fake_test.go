package adis16000

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// event is one entry of the shared bus/pin/clock trace.
type event struct {
	Kind  string // "cs", "rst", "tx", "sleep", "write", "read"
	Level gpio.Level
	W     []byte
	Sleep time.Duration
	Page  uint8
	Reg   Register
	Value uint16
}

type trace struct{ events []event }

func (t *trace) add(e event) { t.events = append(t.events, e) }

func (t *trace) kinds(kind string) []event {
	var out []event
	for _, e := range t.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// gateway emulates the register side of the device: a paged register file
// with two-phase reads and the capture record behind X_BUF/Y_BUF.
type gateway struct {
	tr *trace

	page    uint8
	regs    map[uint8]map[Register]uint16
	pending *Register

	x, y map[uint8][]int16 // capture record per node
	ptr  map[uint8]uint16

	failTx error
}

func newGateway(tr *trace) *gateway {
	return &gateway{
		tr:   tr,
		regs: map[uint8]map[Register]uint16{},
		x:    map[uint8][]int16{},
		y:    map[uint8][]int16{},
		ptr:  map[uint8]uint16{},
	}
}

func (g *gateway) set(page uint8, reg Register, v uint16) {
	if g.regs[page] == nil {
		g.regs[page] = map[Register]uint16{}
	}
	g.regs[page][reg] = v
}

func (g *gateway) get(page uint8, reg Register) uint16 {
	return g.regs[page][reg]
}

func (g *gateway) String() string { return "fake-adis16000" }

func (g *gateway) Duplex() conn.Duplex { return conn.Full }

func (g *gateway) TxPackets(p []spi.Packet) error {
	for _, pk := range p {
		if err := g.Tx(pk.W, pk.R); err != nil {
			return err
		}
	}
	return nil
}

func (g *gateway) Tx(w, r []byte) error {
	g.tr.add(event{Kind: "tx", W: append([]byte(nil), w...)})
	if g.failTx != nil {
		return g.failTx
	}
	switch len(w) {
	case 4:
		return g.write(w)
	case 2:
		if g.pending == nil {
			reg := Register(w[0] & 0x7F)
			g.pending = &reg
			return nil
		}
		reg := *g.pending
		g.pending = nil
		v := g.read(reg)
		if len(r) >= 2 {
			r[0], r[1] = byte(v>>8), byte(v)
		}
		return nil
	}
	return fmt.Errorf("unexpected frame length %d", len(w))
}

func (g *gateway) write(w []byte) error {
	lo := uint16(w[0])<<8 | uint16(w[1])
	hi := uint16(w[2])<<8 | uint16(w[3])
	if lo&0x8000 == 0 || hi&0x8000 == 0 {
		return errors.New("write flag missing")
	}
	reg := Register((lo >> 8) & 0x7F)
	if Register((hi>>8)&0x7F) != reg+1 {
		return errors.New("high word does not address reg+1")
	}
	v := hi&0xFF<<8 | lo&0xFF
	g.tr.add(event{Kind: "write", Page: g.page, Reg: reg, Value: v})
	if reg == RegPageID {
		g.page = uint8(v)
		return nil
	}
	if reg == RegBufPntr {
		g.ptr[g.page] = v
	}
	g.set(g.page, reg, v)
	return nil
}

func (g *gateway) read(reg Register) uint16 {
	g.tr.add(event{Kind: "read", Page: g.page, Reg: reg})
	switch {
	case reg == RegPageID:
		return uint16(g.page)
	case reg == RegXBuf && g.x[g.page] != nil:
		return uint16(g.x[g.page][g.ptr[g.page]])
	case reg == RegYBuf && g.y[g.page] != nil:
		v := uint16(g.y[g.page][g.ptr[g.page]])
		g.ptr[g.page]++
		return v
	}
	return g.get(g.page, reg)
}

type fakePort struct {
	gw       *gateway
	connects int
	freq     physic.Frequency
	mode     spi.Mode
	bits     int
	closed   bool
	err      error
	conn     spi.Conn // returned instead of gw when set
}

func (p *fakePort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.connects++
	p.freq, p.mode, p.bits = f, mode, bits
	if p.conn != nil {
		return p.conn, nil
	}
	return p.gw, nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

type fakePin struct {
	name  string
	tr    *trace
	level gpio.Level
	err   error
}

func (p *fakePin) Out(l gpio.Level) error {
	if p.err != nil {
		return p.err
	}
	p.level = l
	p.tr.add(event{Kind: p.name, Level: l})
	return nil
}

type fakeClock struct {
	tr    *trace
	total time.Duration
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.total += d
	c.tr.add(event{Kind: "sleep", Sleep: d})
}

type rig struct {
	tr    *trace
	gw    *gateway
	port  *fakePort
	cs    *fakePin
	rst   *fakePin
	clock *fakeClock
	dev   *Device
}

func newRig() (*rig, error) {
	tr := &trace{}
	gw := newGateway(tr)
	r := &rig{
		tr:    tr,
		gw:    gw,
		port:  &fakePort{gw: gw},
		cs:    &fakePin{name: "cs", tr: tr},
		rst:   &fakePin{name: "rst", tr: tr},
		clock: &fakeClock{tr: tr},
	}
	dev, err := New(r.port, r.cs, r.rst, &Opts{Clock: r.clock})
	if err != nil {
		return nil, err
	}
	r.dev = dev
	tr.events = nil
	return r, nil
}

// sharedConn is a gateway connection on a controller that can lose its
// settings to other devices.
type sharedConn struct {
	*gateway
	configures int
	err        error
}

func (c *sharedConn) Configure() error {
	c.configures++
	return c.err
}
