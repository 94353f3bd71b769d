package c64

// MemoryMap is the C64's banked 64 KiB address space. All of RAM physically
// exists underneath every bank; LORAM/HIRAM/CHAREN in the processor port at
// $0001 only changes what a CPU *read* sees, and every CPU write lands in
// RAM regardless of what's currently banked in for reads, except writes to
// the processor port itself and to the I/O window while it is visible.
type MemoryMap struct {
	RAM      [65536]byte
	ColorRAM [1024]byte // nibble RAM at $D800-$DBFF, top nibble undefined on real hw

	BasicROM  [8192]byte // $A000-$BFFF
	KernalROM [8192]byte // $E000-$FFFF
	CharROM   [4096]byte // $D000-$DFFF when banked in for CPU reads

	CIA1 *CIA
	CIA2 *CIA
	VIC  *VICII
	SID  *SID

	// ddr/port are the data-direction register and output latch behind
	// the $0000/$0001 processor port. Bits with ddr=0 (input) read back
	// whatever's pulled on the line; on a real C64 that's a weak pull-up,
	// modeled here as 1.
	ddr  byte
	port byte
}

func NewMemoryMap() *MemoryMap {
	m := &MemoryMap{
		ddr:  0x2F, // power-on default: bits 0-3,5 output, rest input
		port: 0x37, // LORAM=HIRAM=CHAREN=1 (all ROM banked in) at reset
	}
	return m
}

// portValue reconstructs what a CPU read of $0001 observes: driven bits
// reflect the latch, floating (input) bits read back as 1 (pull-up).
func (m *MemoryMap) portValue() byte {
	return m.port&m.ddr | ^m.ddr
}

func (m *MemoryMap) loram() bool  { return m.portValue()&0x01 != 0 }
func (m *MemoryMap) hiram() bool  { return m.portValue()&0x02 != 0 }
func (m *MemoryMap) charen() bool { return m.portValue()&0x04 != 0 }

// Read implements Bus for the main CPU6502, applying the bank-switch table
// from the banking bits before falling through to RAM.
func (m *MemoryMap) Read(addr uint16) byte {
	switch {
	case addr == 0x0000:
		return m.ddr
	case addr == 0x0001:
		return m.portValue()

	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.loram() && m.hiram() {
			return m.BasicROM[addr-0xA000]
		}
		return m.RAM[addr]

	case addr >= 0xD000 && addr <= 0xDFFF:
		switch {
		case m.charen() && (m.loram() || m.hiram()):
			return m.readIO(addr)
		case !m.charen() && (m.loram() || m.hiram()):
			return m.CharROM[addr-0xD000]
		default:
			return m.RAM[addr]
		}

	case addr >= 0xE000:
		if m.hiram() {
			return m.KernalROM[addr-0xE000]
		}
		return m.RAM[addr]

	default:
		return m.RAM[addr]
	}
}

// Write always lands in RAM (spec.md's write-through-to-RAM-always rule),
// except for the I/O window and the processor port itself, which intercept
// writes regardless of banking.
func (m *MemoryMap) Write(addr uint16, v byte) {
	switch {
	case addr == 0x0000:
		m.ddr = v
	case addr == 0x0001:
		m.port = v

	case addr >= 0xD000 && addr <= 0xDFFF && m.charen() && (m.loram() || m.hiram()):
		m.writeIO(addr, v)

	default:
		m.RAM[addr] = v
	}
}

// readIO/writeIO route the $D000-$DFFF window: VIC-II mirrored every 64
// bytes through $D3FF, SID mirrored every 32 bytes through $D7FF, color RAM
// at $D800-$DBFF, the two CIAs at $DC00/$DD00.
func (m *MemoryMap) readIO(addr uint16) byte {
	switch {
	case addr <= 0xD3FF:
		return m.VIC.Read(addr & 0x3F)
	case addr <= 0xD7FF:
		return m.SID.Read(addr & 0x1F)
	case addr <= 0xDBFF:
		return m.ColorRAM[addr-0xD800]&0x0F | 0xF0
	case addr <= 0xDCFF:
		return m.CIA1.Read(addr & 0x0F)
	case addr <= 0xDDFF:
		return m.CIA2.Read(addr & 0x0F)
	default:
		return 0xFF // $DE00-$DFFF: no I/O-1/I/O-2 expansion device attached
	}
}

func (m *MemoryMap) writeIO(addr uint16, v byte) {
	switch {
	case addr <= 0xD3FF:
		m.VIC.Write(addr&0x3F, v)
	case addr <= 0xD7FF:
		m.SID.Write(addr&0x1F, v)
	case addr <= 0xDBFF:
		m.ColorRAM[addr-0xD800] = v & 0x0F
	case addr <= 0xDCFF:
		m.CIA1.Write(addr&0x0F, v)
	case addr <= 0xDDFF:
		m.CIA2.Write(addr&0x0F, v)
	}
}

// Peek is the backdoor raw-RAM read the renderer and monitor memory dump
// use: it bypasses bank-switching entirely, always returning the RAM byte
// underneath, per SPEC_FULL.md's "Backdoor peek" glossary entry.
func (m *MemoryMap) Peek(addr uint16) byte { return m.RAM[addr] }

// PeekColorRAM exposes the raw color-RAM nibble at a screen cell offset
// (0-999), for the renderer.
func (m *MemoryMap) PeekColorRAM(offset int) byte { return m.ColorRAM[offset] & 0x0F }
