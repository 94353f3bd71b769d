package c64

import "testing"

func newTestMemoryMap() *MemoryMap {
	m := NewMemoryMap()
	m.CIA1, m.CIA2 = NewCIA(), NewCIA()
	m.VIC = NewVICII(PAL)
	m.VIC.AttachMemory(m)
	m.SID = NewSID()
	return m
}

func TestBasicROMBankedInByDefault(t *testing.T) {
	m := newTestMemoryMap()
	m.BasicROM[0] = 0xAA
	m.RAM[0xA000] = 0x55
	if got := m.Read(0xA000); got != 0xAA {
		t.Fatalf("Read($A000)=%02X, want BASIC ROM byte AA", got)
	}
}

func TestWriteAlwaysGoesToRAM(t *testing.T) {
	m := newTestMemoryMap()
	m.BasicROM[0] = 0xAA
	m.Write(0xA000, 0x55)
	if m.RAM[0xA000] != 0x55 {
		t.Fatalf("write to banked-ROM address did not land in RAM")
	}
	// ROM still reads back until banking changes.
	if got := m.Read(0xA000); got != 0xAA {
		t.Fatalf("Read($A000)=%02X after write, want ROM byte AA still visible", got)
	}
}

func TestBankSwitchRevealsRAMUnderneath(t *testing.T) {
	m := newTestMemoryMap()
	m.BasicROM[0] = 0xAA
	m.Write(0xA000, 0x55)
	m.Write(0x0001, 0x30) // LORAM=0: BASIC ROM banked out
	if got := m.Read(0xA000); got != 0x55 {
		t.Fatalf("Read($A000)=%02X after bank switch, want RAM byte 55", got)
	}
}

func TestProcessorPortInputBitsReadAsOne(t *testing.T) {
	m := newTestMemoryMap()
	m.Write(0x0000, 0x00) // all bits input
	if got := m.Read(0x0001); got != 0xFF {
		t.Fatalf("Read($0001)=%02X, want FF with DDR all-input", got)
	}
}

func TestColorRAMUpperNibbleReadsAsOnes(t *testing.T) {
	m := newTestMemoryMap()
	m.Write(0x0001, 0x35) // CHAREN=1, I/O window visible
	m.ColorRAM[0] = 0x0A
	if got := m.Read(0xD800); got&0xF0 != 0xF0 {
		t.Fatalf("color RAM upper nibble=%02X, want all ones", got&0xF0)
	}
	if got := m.Read(0xD800) & 0x0F; got != 0x0A {
		t.Fatalf("color RAM low nibble=%X, want A", got)
	}
}

func TestPeekBypassesBanking(t *testing.T) {
	m := newTestMemoryMap()
	m.RAM[0xA000] = 0x55
	if got := m.Peek(0xA000); got != 0x55 {
		t.Fatalf("Peek($A000)=%02X, want raw RAM byte 55 regardless of banking", got)
	}
}
