package c64

import "testing"

// flatRAM is the simplest possible Bus: 64 KiB of plain RAM, used to
// exercise CPU6502 in isolation from banking/peripherals.
type flatRAM [65536]byte

func (r *flatRAM) Read(addr uint16) byte     { return r[addr] }
func (r *flatRAM) Write(addr uint16, v byte) { r[addr] = v }

func newTestCPU(program []byte, pc uint16) (*CPU6502, *flatRAM) {
	bus := &flatRAM{}
	copy(bus[pc:], program)
	bus[0xFFFC] = byte(pc)
	bus[0xFFFD] = byte(pc >> 8)
	cpu := NewCPU6502()
	cpu.Reset(bus)
	return cpu, bus
}

func TestLDAImmediateSetsZeroAndNegative(t *testing.T) {
	cpu, bus := newTestCPU([]byte{0xA9, 0x00}, 0x0800) // LDA #$00
	cpu.Step(bus)
	if cpu.A != 0 || cpu.P&FlagZ == 0 || cpu.P&FlagN != 0 {
		t.Fatalf("A=%02X P=%08b, want A=0 Z=1 N=0", cpu.A, cpu.P)
	}

	cpu, bus = newTestCPU([]byte{0xA9, 0x80}, 0x0800) // LDA #$80
	cpu.Step(bus)
	if cpu.A != 0x80 || cpu.P&FlagN == 0 {
		t.Fatalf("A=%02X P=%08b, want N=1", cpu.A, cpu.P)
	}
}

func TestADCBinaryOverflow(t *testing.T) {
	// LDA #$50; CLC; ADC #$50 -> A=$A0, V=1, N=1, C=0
	cpu, bus := newTestCPU([]byte{0xA9, 0x50, 0x18, 0x69, 0x50}, 0x0800)
	cpu.Step(bus)
	cpu.Step(bus)
	cpu.Step(bus)
	if cpu.A != 0xA0 {
		t.Fatalf("A=%02X, want A0", cpu.A)
	}
	if cpu.P&FlagV == 0 {
		t.Fatalf("expected overflow set")
	}
	if cpu.P&FlagC != 0 {
		t.Fatalf("expected carry clear")
	}
}

func TestADCDecimalMode(t *testing.T) {
	// SED; CLC; LDA #$15; ADC #$27 -> A=$42 BCD, C=0, Z=0
	cpu, bus := newTestCPU([]byte{0xF8, 0x18, 0xA9, 0x15, 0x69, 0x27}, 0x0800)
	for i := 0; i < 4; i++ {
		cpu.Step(bus)
	}
	if cpu.A != 0x42 {
		t.Fatalf("A=%02X, want 42 (BCD)", cpu.A)
	}
	if cpu.P&FlagC != 0 {
		t.Fatalf("expected carry clear")
	}
	if cpu.P&FlagZ != 0 {
		t.Fatalf("expected zero clear")
	}
}

func TestSBCDecimalMode(t *testing.T) {
	// SED; SEC; LDA #$42; SBC #$27 -> A=$15 BCD, C=1 (no borrow)
	cpu, bus := newTestCPU([]byte{0xF8, 0x38, 0xA9, 0x42, 0xE9, 0x27}, 0x0800)
	for i := 0; i < 4; i++ {
		cpu.Step(bus)
	}
	if cpu.A != 0x15 {
		t.Fatalf("A=%02X, want 15 (BCD)", cpu.A)
	}
	if cpu.P&FlagC == 0 {
		t.Fatalf("expected carry set (no borrow)")
	}
}

func TestJMPIndirectPageWrapBug(t *testing.T) {
	cpu, bus := newTestCPU(nil, 0x0800)
	bus[0x0800] = 0x6C // JMP ($30FF)
	bus[0x0801] = 0xFF
	bus[0x0802] = 0x30
	bus[0x30FF] = 0x00 // low byte of target
	bus[0x3000] = 0x80 // high byte is (mis)read from $3000, not $3100
	bus[0x3100] = 0xFF // if the bug were absent, this would be read instead

	cpu.Step(bus)
	if cpu.PC != 0x8000 {
		t.Fatalf("PC=%04X, want 8000 (page-wrap bug)", cpu.PC)
	}
}

func TestBranchTakenAddsCycle(t *testing.T) {
	cpu, bus := newTestCPU([]byte{0xA9, 0x00, 0xF0, 0x02}, 0x0800) // LDA #0; BEQ +2
	cpu.Step(bus)
	before := cpu.Cycles
	cpu.Step(bus)
	if cpu.Cycles-before < 3 {
		t.Fatalf("branch-taken should cost at least 3 cycles, got %d", cpu.Cycles-before)
	}
	if cpu.PC != 0x0806 {
		t.Fatalf("PC=%04X, want 0806", cpu.PC)
	}
}

func TestStackPushPull(t *testing.T) {
	cpu, bus := newTestCPU([]byte{0xA9, 0x42, 0x48, 0xA9, 0x00, 0x68}, 0x0800) // LDA #$42; PHA; LDA #0; PLA
	for i := 0; i < 4; i++ {
		cpu.Step(bus)
	}
	if cpu.A != 0x42 {
		t.Fatalf("A=%02X, want 42 after PLA", cpu.A)
	}
}

func TestIRQIgnoredWhenMasked(t *testing.T) {
	cpu, bus := newTestCPU([]byte{0xEA}, 0x0800) // NOP
	cpu.P |= FlagI
	cpu.SetIRQ(true)
	startPC := cpu.PC
	cpu.Step(bus)
	if cpu.PC != startPC+1 {
		t.Fatalf("IRQ should have been masked, PC=%04X", cpu.PC)
	}
}

func TestNMIAlwaysServiced(t *testing.T) {
	cpu, bus := newTestCPU([]byte{0xEA}, 0x0800)
	bus[0xFFFA] = 0x00
	bus[0xFFFB] = 0x90
	cpu.P |= FlagI
	cpu.PulseNMI()
	cpu.Step(bus)
	if cpu.PC != 0x9000 {
		t.Fatalf("PC=%04X, want 9000 (NMI vector)", cpu.PC)
	}
}
