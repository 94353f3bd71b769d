package c64

import "github.com/cyberplant/c64py/internal/bitmask"

// CIA register offsets, identical layout for CIA1 and CIA2.
const (
	ciaPRA = 0x0
	ciaPRB = 0x1
	ciaDDRA = 0x2
	ciaDDRB = 0x3
	ciaTALo = 0x4
	ciaTAHi = 0x5
	ciaTBLo = 0x6
	ciaTBHi = 0x7
	ciaTODTenths = 0x8
	ciaTODSec    = 0x9
	ciaTODMin    = 0xA
	ciaTODHour   = 0xB
	ciaSDR  = 0xC
	ciaICR  = 0xD
	ciaCRA  = 0xE
	ciaCRB  = 0xF
)

// ICR bits (both the write-mask form at $0D and the read/pending form).
const (
	icrTA    = 1 << 0
	icrTB    = 1 << 1
	icrAlarm = 1 << 2
	icrSP    = 1 << 3
	icrFlag  = 1 << 4
	icrIR    = 1 << 7 // read-side: "an interrupt occurred"
	icrSet   = 1 << 7 // write-side: SETCLR, set the masked bits rather than clear them
)

type ciaTimer struct {
	latch   uint16
	counter uint16
	running bool
	oneShot bool
	irq     bool // pending, cleared when ICR is read
}

// tick advances the timer by one CPU cycle and reports whether it underflowed.
func (t *ciaTimer) tick() bool {
	if !t.running {
		return false
	}
	if t.counter == 0 {
		t.counter = t.latch
		if t.oneShot {
			t.running = false
		}
		return true
	}
	t.counter--
	return false
}

// KeyMatrix is an 8x8 grid of key states: row bit set means that key is
// currently held. Column index selects the matrix column (0-7); CIA1's PRA
// selects columns for output, PRB reads the rows, as flga-vnes/nes/
// controller.go's strobe/shift-register Controller does for a single
// 8-button row, generalized here to 8 columns.
type KeyMatrix [8]byte

func (k *KeyMatrix) Press(col, row int)   { k[col] |= 1 << uint(row) }
func (k *KeyMatrix) Release(col, row int) { k[col] &^= 1 << uint(row) }

// CIA is one 6526 Complex Interface Adapter: two 8-bit ports, two 16-bit
// timers, a TOD stub (its registers hold what was last written; the clock
// does not advance and ALARM is not implemented), a serial shift register,
// and an interrupt control register. CIA1 drives the keyboard matrix and raises
// IRQ; CIA2 drives the VIC bank select and IEC bus lines and raises NMI.
type CIA struct {
	pra, prb   byte
	ddra, ddrb byte

	ta, tb ciaTimer

	icrMask    byte // enabled interrupt sources (written via SETCLR)
	icrPending byte // latched, read-and-clear at $0D

	todTenths, todSec, todMin, todHour byte
	todRunning                        bool

	sdr byte

	// RaiseInterrupt is called with the OR of all enabled+pending ICR
	// bits each time it is recomputed (every Tick and every ICR read or
	// write), whether or not it changed; CIA1 wires this to
	// CPU6502.SetIRQ, CIA2 to CPU6502.PulseNMI/ReleaseNMI, which latch
	// only the 0->1 edge.
	RaiseInterrupt func(asserted bool)

	// Keys is non-nil only on CIA1; Read of PRB consults it when PRA is
	// configured as the column-select output.
	Keys *KeyMatrix

	// IEC is non-nil only on CIA2; PRA bits 3-5 drive it and bits 6-7
	// read it back, per the C64's CIA2-to-serial-port wiring.
	IEC *IECDriver
}

func NewCIA() *CIA {
	return &CIA{RaiseInterrupt: func(bool) {}}
}

func (c *CIA) Read(reg uint16) byte {
	switch reg {
	case ciaPRA:
		v := c.pra | ^c.ddra
		if c.IEC != nil {
			// bits 6-7 sense the CLK/DATA lines: 0 while a line is held low
			v = bitmask.Assign(v, bitmask.Bit6, !c.IEC.CLK())
			v = bitmask.Assign(v, bitmask.Bit7, !c.IEC.DATA())
		}
		return v
	case ciaPRB:
		return c.readPRB()
	case ciaDDRA:
		return c.ddra
	case ciaDDRB:
		return c.ddrb
	case ciaTALo:
		return byte(c.ta.counter)
	case ciaTAHi:
		return byte(c.ta.counter >> 8)
	case ciaTBLo:
		return byte(c.tb.counter)
	case ciaTBHi:
		return byte(c.tb.counter >> 8)
	case ciaTODTenths:
		return c.todTenths
	case ciaTODSec:
		return c.todSec
	case ciaTODMin:
		return c.todMin
	case ciaTODHour:
		return c.todHour
	case ciaSDR:
		return c.sdr
	case ciaICR:
		v := c.icrPending
		if v&(icrTA|icrTB|icrAlarm|icrSP|icrFlag) != 0 {
			v |= icrIR
		}
		c.icrPending = 0 // reading $0D clears all latched flags
		c.updateInterrupt()
		return v
	case ciaCRA:
		return c.craValue()
	case ciaCRB:
		return c.crbValue()
	}
	return 0xFF
}

func (c *CIA) readPRB() byte {
	base := c.prb | ^c.ddrb
	if c.Keys == nil {
		return base
	}
	selected := c.pra | ^c.ddra // columns driven low are "selected"
	var rows byte
	for col := 0; col < 8; col++ {
		if bitmask.IsSet(selected, bitmask.Pos(col)) {
			continue // column not asserted (driven low) by the scan
		}
		rows |= c.Keys[col]
	}
	return base &^ rows // pressed keys pull their row line low
}

func (c *CIA) Write(reg uint16, v byte) {
	switch reg {
	case ciaPRA:
		c.pra = v
		c.applyIEC()
	case ciaPRB:
		c.prb = v
	case ciaDDRA:
		c.ddra = v
		c.applyIEC()
	case ciaDDRB:
		c.ddrb = v
	case ciaTALo:
		c.ta.latch = c.ta.latch&0xFF00 | uint16(v)
	case ciaTAHi:
		c.ta.latch = c.ta.latch&0x00FF | uint16(v)<<8
		c.ta.counter = c.ta.latch
	case ciaTBLo:
		c.tb.latch = c.tb.latch&0xFF00 | uint16(v)
	case ciaTBHi:
		c.tb.latch = c.tb.latch&0x00FF | uint16(v)<<8
		c.tb.counter = c.tb.latch
	case ciaTODTenths:
		c.todTenths = v
	case ciaTODSec:
		c.todSec = v
	case ciaTODMin:
		c.todMin = v
	case ciaTODHour:
		c.todHour = v
	case ciaSDR:
		c.sdr = v
	case ciaICR:
		if v&icrSet != 0 {
			c.icrMask |= v &^ icrSet
		} else {
			c.icrMask &^= v
		}
		c.updateInterrupt()
	case ciaCRA:
		c.ta.running = v&0x01 != 0
		c.ta.oneShot = v&0x08 != 0
		if v&0x10 != 0 {
			c.ta.counter = c.ta.latch
		}
	case ciaCRB:
		c.tb.running = v&0x01 != 0
		c.tb.oneShot = v&0x08 != 0
		if v&0x10 != 0 {
			c.tb.counter = c.tb.latch
		}
	}
}

func (c *CIA) craValue() byte {
	v := bitmask.Assign(0, bitmask.Bit0, c.ta.running)
	return bitmask.Assign(v, bitmask.Bit3, c.ta.oneShot)
}

func (c *CIA) crbValue() byte {
	v := bitmask.Assign(0, bitmask.Bit0, c.tb.running)
	return bitmask.Assign(v, bitmask.Bit3, c.tb.oneShot)
}

// applyIEC updates the three driven IEC lines (ATN, CLK, DATA) from CIA2's
// port A whenever PRA or its DDR changes; Read(ciaPRA) senses the CLK and
// DATA lines back on bits 6-7.
func (c *CIA) applyIEC() {
	if c.IEC == nil {
		return
	}
	out := c.pra | ^c.ddra
	// CIA2 PRA: bit3 ATN-out, bit4 CLK-out, bit5 DATA-out (all active-low
	// through the 7406 inverters on the real board; asserted means 0).
	c.IEC.SetATN(out&0x08 == 0)
	c.IEC.SetCLK(out&0x10 == 0)
	c.IEC.SetDATA(out&0x20 == 0)
}

// Tick advances both timers by one CPU cycle, latches underflow interrupts,
// and recomputes the CPU-visible interrupt line. Called once per CPU cycle
// from Executive.Tick.
func (c *CIA) Tick() {
	if c.ta.tick() {
		c.icrPending |= icrTA
	}
	if c.tb.tick() {
		c.icrPending |= icrTB
	}
	c.updateInterrupt()
}

func (c *CIA) updateInterrupt() {
	c.RaiseInterrupt(c.icrPending&c.icrMask != 0)
}

// VICBank returns the 16 KiB VIC-II memory bank currently selected by
// CIA2 PRA bits 0-1 (active-low, inverted from the raw bit value).
func (c *CIA) VICBank() uint16 {
	sel := bitmask.Range(c.pra|^c.ddra, bitmask.Bit0, bitmask.Bit1)
	return uint16(3-sel) * 0x4000
}
