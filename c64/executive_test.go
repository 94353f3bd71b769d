package c64

import (
	"errors"
	"testing"
)

func newTestExecutive(t *testing.T) *Executive {
	t.Helper()
	exec, err := NewExecutive(ExecutiveConfig{
		Region:    PAL,
		BasicROM:  make([]byte, basicROMSize),
		KernalROM: make([]byte, kernalROMSize),
		CharROM:   make([]byte, charROMSize),
	})
	if err != nil {
		t.Fatalf("NewExecutive: %v", err)
	}
	return exec
}

func TestNewExecutiveRejectsMissingROM(t *testing.T) {
	_, err := NewExecutive(ExecutiveConfig{Region: PAL})
	if !errors.Is(err, ErrROMMissing) {
		t.Fatalf("expected ErrROMMissing, got %v", err)
	}
}

func TestNewExecutiveRejectsWrongROMSize(t *testing.T) {
	_, err := NewExecutive(ExecutiveConfig{
		Region:    PAL,
		BasicROM:  make([]byte, 100),
		KernalROM: make([]byte, kernalROMSize),
		CharROM:   make([]byte, charROMSize),
	})
	if !errors.Is(err, ErrROMSizeMismatch) {
		t.Fatalf("expected ErrROMSizeMismatch, got %v", err)
	}
}

func TestPokeThenPeekRoundTrips(t *testing.T) {
	exec := newTestExecutive(t)
	exec.WithLock(func() { exec.Mem.Write(0x0400, 0x42) })
	var got byte
	exec.WithLock(func() { got = exec.Mem.Read(0x0400) })
	if got != 0x42 {
		t.Fatalf("got %02X, want 42", got)
	}
}

func TestPeekROMThenBankOutRevealsRAM(t *testing.T) {
	exec := newTestExecutive(t)
	exec.Mem.BasicROM[0] = 0x11
	exec.WithLock(func() { exec.Mem.Write(0xA000, 0x22) })
	var beforeBank, afterBank byte
	exec.WithLock(func() { beforeBank = exec.Mem.Read(0xA000) })
	exec.WithLock(func() { exec.Mem.Write(0x0001, 0x34) }) // LORAM=0
	exec.WithLock(func() { afterBank = exec.Mem.Read(0xA000) })
	if beforeBank != 0x11 {
		t.Fatalf("before bank switch, got %02X, want ROM byte 11", beforeBank)
	}
	if afterBank != 0x22 {
		t.Fatalf("after bank switch, got %02X, want RAM byte 22", afterBank)
	}
}

func TestAttachD64ValidationLeavesPriorImageInPlace(t *testing.T) {
	exec := newTestExecutive(t)
	good, err := AttachD64("good.d64", buildTestImage())
	if err != nil {
		t.Fatalf("AttachD64: %v", err)
	}
	if err := exec.AttachDisk(good); err != nil {
		t.Fatalf("AttachDisk: %v", err)
	}

	_, err = AttachD64("bad.d64", make([]byte, 10))
	if !errors.Is(err, ErrBadSize) {
		t.Fatalf("expected ErrBadSize, got %v", err)
	}
	// A rejected attach never reaches exec.AttachDisk, so the good image
	// mounted above stays in place.
	if exec.hookDrive.image != good {
		t.Fatalf("previously attached image was replaced")
	}
}

func TestTypeStringFillsKeyboardBuffer(t *testing.T) {
	exec := newTestExecutive(t)
	exec.TypeString("LOAD")
	if exec.Mem.RAM[keyboardCount] != 4 {
		t.Fatalf("keyboard count=%d, want 4", exec.Mem.RAM[keyboardCount])
	}
	if exec.Mem.RAM[keyboardBuffer] != 'L' {
		t.Fatalf("first buffered byte=%q, want L", exec.Mem.RAM[keyboardBuffer])
	}
}

func TestTickAdvancesCycleCount(t *testing.T) {
	exec := newTestExecutive(t)
	before := exec.CPU.Cycles
	exec.Tick()
	if exec.CPU.Cycles <= before {
		t.Fatalf("Tick did not advance CPU cycles")
	}
}
