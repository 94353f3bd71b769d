package c64

// DriveHandle is the interface the Executive drives a peripheral disk unit
// through, regardless of whether it's backed by a full second CPU6502 (the
// real hardware path) or the KERNAL LOAD-hook fallback. Unifying the two
// means the tick loop and the server's ATTACH-DISK/DETACH-DISKS commands
// never special-case which is active, per spec.md §9's "Drive coupling"
// Open Question.
type DriveHandle interface {
	AttachDisk(img *D64Image) error
	DetachDisk()
	RunCycles(cycles uint64)
}

// driveBus is the private 64 KiB address space a 1541's own CPU6502 sees:
// 2 KiB of RAM mirrored across $0000-$17FF, two VIAs mirrored across their
// own 1 KiB windows, and 16 KiB of DOS ROM at $C000-$FFFF.
type driveBus struct {
	ram      [2048]byte
	via1     *VIA // VIA1: IEC handshake lines (ATN/CLK/DATA), device addressing
	via2     *VIA // VIA2: stepper motor, write-protect sense, LED, head read/write
	dosROM   [16384]byte
	romLoaded bool

	image        *D64Image
	track        int  // current head position, 1-35; stepped by VIA2 ORB bits 0-1
	stepperPhase byte
}

// sectorBufferAddr is where the stock 1541 DOS ROM keeps its first sector
// buffer in the drive's own RAM; maybeLoadSector fills it in place of the
// real GCR head-read/deserialize pipeline this core does not model.
const sectorBufferAddr = 0x0300

// stepTrack decodes a VIA2 ORB write as a stepper-motor phase change: the
// real 1541 moves the head one half-track per phase transition in the
// sequence the firmware drives bits 0-1 through. Only whole-track steps are
// modeled; both directions collapse to inward/outward since this bus never
// exposes which half-track the head is nominally on.
func (b *driveBus) stepTrack(orb byte) {
	phase := orb & 0x03
	if phase == b.stepperPhase {
		return
	}
	if phase == (b.stepperPhase+1)&0x03 {
		if b.track < 35 {
			b.track++
		}
	} else if b.track > 1 {
		b.track--
	}
	b.stepperPhase = phase
}

// maybeLoadSector treats a high-bit-set VIA2 ORA write as a synthetic
// "fetch sector" strobe (bits 0-4 select the sector on the currently
// stepped track): it reads the whole sector from the attached D64Image
// straight into the $0300 buffer and self-clears the strobe bit, standing
// in for the real drive's serial bit-shift-into-RAM sequence per spec.md's
// "synthetic sector-buffer region in drive RAM."
func (b *driveBus) maybeLoadSector(ora byte) {
	if ora&0x80 == 0 || b.image == nil {
		return
	}
	data, err := b.image.ReadSector(byte(b.track), ora&0x1F)
	if err != nil {
		return
	}
	copy(b.ram[sectorBufferAddr:sectorBufferAddr+bytesPerSector], data[:])
	b.via2.ora &^= 0x80
}

func (b *driveBus) onVIA2PortWrite(orb, ora byte) {
	b.stepTrack(orb)
	b.maybeLoadSector(ora)
}

func (b *driveBus) Read(addr uint16) byte {
	switch {
	case addr < 0x1800:
		return b.ram[addr&0x07FF]
	case addr >= 0x1800 && addr < 0x1C00:
		return b.via1.Read(addr & 0x0F)
	case addr >= 0x1C00 && addr < 0x2000:
		return b.via2.Read(addr & 0x0F)
	case addr >= 0xC000:
		return b.dosROM[addr-0xC000]
	default:
		return 0xFF
	}
}

func (b *driveBus) Write(addr uint16, v byte) {
	switch {
	case addr < 0x1800:
		b.ram[addr&0x07FF] = v
	case addr >= 0x1800 && addr < 0x1C00:
		b.via1.Write(addr&0x0F, v)
	case addr >= 0x1C00 && addr < 0x2000:
		b.via2.Write(addr&0x0F, v)
	}
}

// Drive1541 is the full hardware-accurate peripheral: its own CPU6502
// fetching and executing the 1541's DOS ROM against a private bus, woken
// by ATN edges on the shared IECBus exactly like real hardware.
type Drive1541 struct {
	CPU *CPU6502
	bus *driveBus
}

// NewDrive1541 attaches to iec (the shared serial bus) as the Nth device
// and returns an idle drive; LoadDOSROM must be called with real ROM bytes
// before RunCycles does anything useful.
func NewDrive1541(iec *IECBus) *Drive1541 {
	via1 := NewVIA()
	via2 := NewVIA()
	via1.IEC = iec.NewDriver()

	d := &Drive1541{
		CPU: NewCPU6502(),
		bus: &driveBus{via1: via1, via2: via2, track: 1},
	}
	via2.OnPortWrite = d.bus.onVIA2PortWrite
	iec.OnATNEdge(func(asserted bool) {
		if asserted {
			d.CPU.PulseNMI()
		} else {
			d.CPU.ReleaseNMI()
		}
	})
	return d
}

// LoadDOSROM installs the 16 KiB 1541 DOS ROM image and resets the drive
// CPU from its vector, mirroring how Executive loads the main KERNAL.
func (d *Drive1541) LoadDOSROM(rom []byte) {
	copy(d.bus.dosROM[:], rom)
	d.bus.romLoaded = len(rom) > 0
	d.CPU.Reset(d.bus)
}

func (d *Drive1541) AttachDisk(img *D64Image) error {
	d.bus.image = img
	return nil
}

func (d *Drive1541) DetachDisk() { d.bus.image = nil }

// RunCycles retires CPU6502 steps (each costing a variable number of
// cycles) until at least `cycles` worth of drive-clock time has elapsed,
// ticking both VIAs once per CPU cycle in between.
func (d *Drive1541) RunCycles(cycles uint64) {
	if !d.bus.romLoaded {
		return
	}
	var spent uint64
	for spent < cycles {
		before := d.CPU.Cycles
		d.CPU.Step(d.bus)
		step := d.CPU.Cycles - before
		spent += step
		for i := uint64(0); i < step; i++ {
			d.bus.via1.Tick()
			d.bus.via2.Tick()
		}
	}
}

// hookDrive is the KERNAL LOAD-hook fallback: rather than running a second
// CPU against DOS ROM, it intercepts the KERNAL's LOAD vector at $FFD5 (see
// Executive.Tick, which arms serviceLoadTrap when PC reaches $FFD5) and
// serves file reads directly out of the
// attached D64Image. This is the production default per spec.md §9.
type hookDrive struct {
	image *D64Image
}

func newHookDrive() *hookDrive { return &hookDrive{} }

func (h *hookDrive) AttachDisk(img *D64Image) error {
	h.image = img
	return nil
}

func (h *hookDrive) DetachDisk() { h.image = nil }

// RunCycles is a no-op: the hook path has no independent clock, it only
// acts synchronously when the Executive's $FFD5 trap fires.
func (h *hookDrive) RunCycles(uint64) {}

// LoadByName resolves a KERNAL LOAD request against the mounted image,
// returning the PRG's load address (its first two bytes) and body.
func (h *hookDrive) LoadByName(name string) (loadAddr uint16, body []byte, err error) {
	if h.image == nil {
		return 0, nil, ErrBadChain
	}
	entries, err := h.image.Directory()
	if err != nil {
		return 0, nil, err
	}
	for _, e := range entries {
		if PETSCIIToASCII(e.Name[:]) == name || name == "$" {
			data, err := h.image.ReadFile(e)
			if err != nil {
				return 0, nil, err
			}
			if len(data) < 2 {
				return 0, nil, ErrBadChain
			}
			addr := uint16(data[0]) | uint16(data[1])<<8
			return addr, data[2:], nil
		}
	}
	return 0, nil, ErrBadChain
}
