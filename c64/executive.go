package c64

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
)

// Sentinel boot errors, checked with errors.Is by cmd/c64 to choose an
// exit code, mirroring flga-vnes/cmd/vnes's distinction between fatal boot
// errors and runtime ones.
var (
	ErrROMMissing       = errors.New("c64: required ROM file not found")
	ErrROMSizeMismatch  = errors.New("c64: ROM file is the wrong size")
)

// knownROMDigests are the SHA-1 sums of the stock KERNAL/BASIC/Character
// ROMs. A mismatch is logged, not fatal: a minor revision or a NTSC/PAL
// variant can still boot.
var knownROMDigests = map[string]string{
	"basic":  "79015323128650c742a3694c9429aa91f355905e",
	"kernal": "1d503e56df85a62fee696e7618dc5b4e781df1bb",
	"char":   "adc7c31e18c7c7413c54802ef2f4193da14711aa",
}

const (
	basicROMSize  = 8192
	kernalROMSize = 8192
	charROMSize   = 4096
)

// ExecutiveConfig carries the boot-time options spec.md §6 lists as CLI
// flags, gathered into one struct so cmd/c64 can populate it directly from
// cobra flags.
type ExecutiveConfig struct {
	Region    Region
	BasicROM  []byte
	KernalROM []byte
	CharROM   []byte
	DOSROM    []byte // optional; non-nil selects the second-CPU drive path
	Logger    *log.Logger
}

// Executive owns every subcomponent of the machine and is the single point
// of synchronization: Tick (and WithLock) hold Executive.mu for their
// duration, so the TCP/UDP server and the optional renderer never observe
// a half-stepped machine.
type Executive struct {
	mu sync.Mutex

	Mem  *MemoryMap
	CPU  *CPU6502
	CIA1 *CIA
	CIA2 *CIA
	VIC  *VICII
	SID  *SID
	IEC  *IECBus

	Drive     DriveHandle
	hookDrive *hookDrive // non-nil only when Drive is the hook fallback

	region Region
	logger *log.Logger

	cycleBudget uint64
	autoQuit    bool
	quit        bool

	loadPending bool // $FFD5 trap armed, waiting for a filename in $BB/$B7
}

// NewExecutive wires every subcomponent together exactly once, the way
// flga-vnes/nes/console.go's NewConsole assembles cpu/ppu/apu/cartridge
// into one bus before returning.
func NewExecutive(cfg ExecutiveConfig) (*Executive, error) {
	if err := checkROM(cfg.BasicROM, basicROMSize, "basic"); err != nil {
		return nil, err
	}
	if err := checkROM(cfg.KernalROM, kernalROMSize, "kernal"); err != nil {
		return nil, err
	}
	if err := checkROM(cfg.CharROM, charROMSize, "char"); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "c64: ", log.LstdFlags)
	}
	verifyDigest(logger, "basic", cfg.BasicROM)
	verifyDigest(logger, "kernal", cfg.KernalROM)
	verifyDigest(logger, "char", cfg.CharROM)

	mem := NewMemoryMap()
	copy(mem.BasicROM[:], cfg.BasicROM)
	copy(mem.KernalROM[:], cfg.KernalROM)
	copy(mem.CharROM[:], cfg.CharROM)

	cpu := NewCPU6502()
	cia1 := NewCIA()
	cia2 := NewCIA()
	vic := NewVICII(cfg.Region)
	sid := NewSID()
	iec := NewIECBus()

	cia1.Keys = &KeyMatrix{}
	cia1.RaiseInterrupt = func(asserted bool) {
		cpu.SetIRQ(asserted || vicIRQPending(vic))
	}

	cia2.IEC = iec.NewDriver()
	cia2.RaiseInterrupt = func(asserted bool) {
		if asserted {
			cpu.PulseNMI()
		} else {
			cpu.ReleaseNMI()
		}
	}

	vic.AttachMemory(mem)
	vic.BankSelect = cia2.VICBank
	vic.RaiseIRQ = func(asserted bool) {
		cpu.SetIRQ(asserted || cia1IRQPending(cia1))
	}

	mem.CIA1, mem.CIA2, mem.VIC, mem.SID = cia1, cia2, vic, sid

	e := &Executive{
		Mem: mem, CPU: cpu, CIA1: cia1, CIA2: cia2, VIC: vic, SID: sid, IEC: iec,
		region: cfg.Region,
		logger: logger,
	}

	if len(cfg.DOSROM) > 0 {
		drive := NewDrive1541(iec)
		drive.LoadDOSROM(cfg.DOSROM)
		e.Drive = drive
	} else {
		hd := newHookDrive()
		e.hookDrive = hd
		e.Drive = hd
	}

	cpu.Reset(mem)
	return e, nil
}

func checkROM(data []byte, wantSize int, name string) error {
	if len(data) == 0 {
		return fmt.Errorf("%s ROM: %w", name, ErrROMMissing)
	}
	if len(data) != wantSize {
		return fmt.Errorf("%s ROM: %w (got %d, want %d)", name, ErrROMSizeMismatch, len(data), wantSize)
	}
	return nil
}

func verifyDigest(logger *log.Logger, name string, data []byte) {
	want, ok := knownROMDigests[name]
	if !ok {
		return
	}
	sum := sha1.Sum(data)
	got := hex.EncodeToString(sum[:])
	if got != want {
		logger.Printf("warning: %s ROM digest does not match known-good image (got %s)", name, got)
	}
}

// cia1IRQPending folds CIA1's own interrupt state into VIC's combined
// SetIRQ call, since both sources share one physical IRQ line into the CPU
// and the last writer to SetIRQ otherwise wins rather than OR-ing.
func cia1IRQPending(cia1 *CIA) bool {
	return cia1.icrPending&cia1.icrMask != 0
}

// vicIRQPending mirrors cia1IRQPending for the other direction of the same
// shared-line fold: CIA1 asserting must not clobber VIC's own contribution.
func vicIRQPending(vic *VICII) bool {
	return vic.Registers[vicIRQ]&vic.Registers[vicIRQEn]&0x0F != 0
}

// WithLock runs fn with the Executive's mutex held, the single serialization
// point the server and the monitor go through instead of touching fields
// directly. The renderer reads VIC and memory from the same goroutine that
// calls Tick, between Ticks, without taking the lock.
func (e *Executive) WithLock(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Tick retires exactly one CPU instruction and advances every peripheral by
// the matching number of cycles, the coarse per-instruction granularity
// spec.md §4.9 specifies (as opposed to flga-vnes's per-clock-edge PPU/APU
// ticking, which this core deliberately does not replicate).
func (e *Executive) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loadPending {
		e.serviceLoadTrap()
	}

	cycles := e.CPU.Step(e.Mem)
	for i := uint64(0); i < cycles; i++ {
		e.CIA1.Tick()
		e.CIA2.Tick()
		e.VIC.Tick()
	}
	e.cycleBudget += cycles

	// The 1541 runs on its own clock, woken asynchronously by IEC ATN
	// edges; give it the same number of cycles the main CPU just spent so
	// it stays roughly phase-locked with the host machine.
	if e.Drive != nil {
		e.Drive.RunCycles(cycles)
	}

	if e.CPU.PC == 0xFFD5 {
		e.loadPending = true
	}

	if e.autoQuit && e.readyPromptVisible() {
		e.quit = true
	}

	return cycles
}

// Quit reports whether AutoQuit has observed the KERNAL's READY. prompt at
// the start of the bottom screen row; it does not track whether a LOAD or
// RUN was injected first.
func (e *Executive) Quit() bool { return e.quit }

// EnableAutoQuit arms the READY.-prompt detector, per spec.md §6.
func (e *Executive) EnableAutoQuit() { e.autoQuit = true }

var readyBytes = []byte{0x12, 0x05, 0x01, 0x04, 0x19, 0x2e} // screen-code "READY."

// readyPromptVisible scans the bottom line of screen RAM (via the backdoor
// peek path) for the KERNAL's READY. banner.
func (e *Executive) readyPromptVisible() bool {
	screen := e.VIC.PeekScreen()
	row := 24 * 40 // bottom row on a standard 25x40 text screen
	if row+len(readyBytes) > len(screen) {
		return false
	}
	for i, b := range readyBytes {
		if screen[row+i] != b {
			return false
		}
	}
	return true
}

// serviceLoadTrap runs only when the hook-fallback drive is active and PC
// has landed on the KERNAL's $FFD5 LOAD vector: it reads the filename the
// KERNAL staged at $B7/$BB, serves it from the mounted D64Image, and
// returns to LOAD's caller the way the KERNAL routine's RTS would, as if
// DOS ROM code had run the real bitbanged IEC protocol.
func (e *Executive) serviceLoadTrap() {
	e.loadPending = false
	if e.hookDrive == nil {
		return
	}
	// Return to LOAD's caller the way the KERNAL routine's RTS would.
	defer func() { e.CPU.PC = e.CPU.pullAddress(e.Mem) + 1 }()
	nameLen := e.Mem.Peek(0xB7)
	nameAddr := uint16(e.Mem.Peek(0xBB)) | uint16(e.Mem.Peek(0xBC))<<8
	name := make([]byte, nameLen)
	for i := range name {
		name[i] = e.Mem.Peek(nameAddr + uint16(i))
	}

	addr, body, err := e.hookDrive.LoadByName(PETSCIIToASCII(name))
	if err != nil {
		e.logger.Printf("LOAD %q failed: %v", name, err)
		e.CPU.P |= FlagC // KERNAL convention: carry set on LOAD failure
		return
	}
	for i, b := range body {
		e.Mem.RAM[addr+uint16(i)] = b
	}
	end := addr + uint16(len(body))
	e.Mem.RAM[0xAE] = byte(end)
	e.Mem.RAM[0xAF] = byte(end >> 8)
	// BASIC's VARTAB/ARYTAB/STREND all move to just past the loaded
	// region, same as the KERNAL's own LOAD routine leaves them so a
	// loaded program can RUN immediately.
	e.Mem.RAM[0x2D] = byte(end)
	e.Mem.RAM[0x2E] = byte(end >> 8)
	e.Mem.RAM[0x2F] = byte(end)
	e.Mem.RAM[0x30] = byte(end >> 8)
	e.Mem.RAM[0x31] = byte(end)
	e.Mem.RAM[0x32] = byte(end >> 8)
	e.CPU.P &^= FlagC
}

// AttachDisk mounts img on whichever drive path is active.
func (e *Executive) AttachDisk(img *D64Image) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Drive.AttachDisk(img)
}

// DetachDisk unmounts any currently mounted image.
func (e *Executive) DetachDisk() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Drive.DetachDisk()
}

// PressKey/ReleaseKey inject a keypress into CIA1's matrix. The server's KEY
// command and the boot auto-inject use TypeString instead.
func (e *Executive) PressKey(col, row int)   { e.CIA1.Keys.Press(col, row) }
func (e *Executive) ReleaseKey(col, row int) { e.CIA1.Keys.Release(col, row) }
