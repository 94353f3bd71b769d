package c64

// execute dispatches a fetched opcode to its handler. A flat switch over the
// grouped opcode values is the dispatch shape spec.md §9 asks for: one table
// lookup (the instructions array) plus one jump, rather than nested
// conditionals per addressing mode.
func (c *CPU6502) execute(bus Bus, opcode byte, mode AddressingMode, addr uint16) {
	switch opcode {
	case 0x04, 0x0C, 0x14, 0x1A, 0x1C, 0x34, 0x3A, 0x3C, 0x44, 0x54, 0x5A,
		0x5C, 0x64, 0x74, 0x7A, 0x7C, 0x80, 0x82, 0x89, 0xC2, 0xD4, 0xDA,
		0xDC, 0xE2, 0xEA, 0xF4, 0xFA, 0xFC:
		c.nop(bus, mode, addr)
	case 0x61, 0x65, 0x69, 0x6D, 0x71, 0x75, 0x79, 0x7D:
		c.adc(bus, addr)
	case 0x93, 0x9F:
		c.ahx(bus, addr)
	case 0x4B:
		c.alr(bus, addr)
	case 0x0B, 0x2B:
		c.anc(bus, addr)
	case 0x21, 0x25, 0x29, 0x2D, 0x31, 0x35, 0x39, 0x3D:
		c.and(bus, addr)
	case 0x6B:
		c.arr(bus, addr)
	case 0x06, 0x0E, 0x16, 0x1E:
		c.asl(bus, addr)
	case 0x0A:
		c.aslA()
	case 0xCB:
		c.axs(bus, addr)
	case 0x90:
		c.branchIf(c.P&FlagC == 0, addr)
	case 0xB0:
		c.branchIf(c.P&FlagC != 0, addr)
	case 0xF0:
		c.branchIf(c.P&FlagZ != 0, addr)
	case 0x24, 0x2C:
		c.bit(bus, addr)
	case 0x30:
		c.branchIf(c.P&FlagN != 0, addr)
	case 0xD0:
		c.branchIf(c.P&FlagZ == 0, addr)
	case 0x10:
		c.branchIf(c.P&FlagN == 0, addr)
	case 0x00:
		c.brk(bus)
	case 0x50:
		c.branchIf(c.P&FlagV == 0, addr)
	case 0x70:
		c.branchIf(c.P&FlagV != 0, addr)
	case 0x18:
		c.P &^= FlagC
	case 0xD8:
		c.P &^= FlagD
	case 0x58:
		c.P &^= FlagI
	case 0xB8:
		c.P &^= FlagV
	case 0xC1, 0xC5, 0xC9, 0xCD, 0xD1, 0xD5, 0xD9, 0xDD:
		c.compare(c.A, c.read(bus, addr))
	case 0xE0, 0xE4, 0xEC:
		c.compare(c.X, c.read(bus, addr))
	case 0xC0, 0xC4, 0xCC:
		c.compare(c.Y, c.read(bus, addr))
	case 0xC3, 0xC7, 0xCF, 0xD3, 0xD7, 0xDB, 0xDF:
		c.dcp(bus, addr)
	case 0xC6, 0xCE, 0xD6, 0xDE:
		c.rmw(bus, addr, c.doDec)
	case 0xCA:
		c.X = c.setNZ(c.X - 1)
	case 0x88:
		c.Y = c.setNZ(c.Y - 1)
	case 0x41, 0x45, 0x49, 0x4D, 0x51, 0x55, 0x59, 0x5D:
		c.A = c.setNZ(c.A ^ c.read(bus, addr))
	case 0xE6, 0xEE, 0xF6, 0xFE:
		c.rmw(bus, addr, c.doInc)
	case 0xE8:
		c.X = c.setNZ(c.X + 1)
	case 0xC8:
		c.Y = c.setNZ(c.Y + 1)
	case 0xE3, 0xE7, 0xEF, 0xF3, 0xF7, 0xFB, 0xFF:
		c.isc(bus, addr)
	case 0x4C:
		c.PC = addr
	case 0x6C:
		c.PC = addr
	case 0x20:
		c.jsr(bus, addr)
	case 0x02, 0x12, 0x22, 0x32, 0x42, 0x52, 0x62, 0x72, 0x92, 0xB2, 0xD2, 0xF2:
		c.halted = true
	case 0xBB:
		c.las(bus, addr)
	case 0xA3, 0xA7, 0xAB, 0xAF, 0xB3, 0xB7, 0xBF:
		c.lax(bus, addr)
	case 0xA1, 0xA5, 0xA9, 0xAD, 0xB1, 0xB5, 0xB9, 0xBD:
		c.A = c.setNZ(c.read(bus, addr))
	case 0xA2, 0xA6, 0xAE, 0xB6, 0xBE:
		c.X = c.setNZ(c.read(bus, addr))
	case 0xA0, 0xA4, 0xAC, 0xB4, 0xBC:
		c.Y = c.setNZ(c.read(bus, addr))
	case 0x46, 0x4E, 0x56, 0x5E:
		c.lsr(bus, addr)
	case 0x4A:
		c.lsrA()
	case 0x01, 0x05, 0x09, 0x0D, 0x11, 0x15, 0x19, 0x1D:
		c.A = c.setNZ(c.A | c.read(bus, addr))
	case 0x48:
		c.push(bus, c.A)
	case 0x08:
		c.push(bus, byte(c.P|FlagU|FlagB))
	case 0x68:
		c.clock() // dummy stack-pointer increment before the pull
		c.A = c.setNZ(c.pull(bus))
	case 0x28:
		c.clock() // dummy stack-pointer increment before the pull
		c.P = Status(c.pull(bus))&^FlagB | FlagU
	case 0x23, 0x27, 0x2F, 0x33, 0x37, 0x3B, 0x3F:
		c.rla(bus, addr)
	case 0x26, 0x2E, 0x36, 0x3E:
		c.rol(bus, addr)
	case 0x2A:
		c.rolA()
	case 0x66, 0x6E, 0x76, 0x7E:
		c.ror(bus, addr)
	case 0x6A:
		c.rorA()
	case 0x63, 0x67, 0x6F, 0x73, 0x77, 0x7B, 0x7F:
		c.rra(bus, addr)
	case 0x40:
		c.rti(bus)
	case 0x60:
		c.rts(bus)
	case 0x83, 0x87, 0x8F, 0x97:
		bus.Write(addr, c.A&c.X)
	case 0xE1, 0xE5, 0xE9, 0xEB, 0xED, 0xF1, 0xF5, 0xF9, 0xFD:
		c.sbc(bus, addr)
	case 0x38:
		c.P |= FlagC
	case 0xF8:
		c.P |= FlagD
	case 0x78:
		c.P |= FlagI
	case 0x9E:
		c.shx(bus, addr)
	case 0x9C:
		c.shy(bus, addr)
	case 0x03, 0x07, 0x0F, 0x13, 0x17, 0x1B, 0x1F:
		c.slo(bus, addr)
	case 0x43, 0x47, 0x4F, 0x53, 0x57, 0x5B, 0x5F:
		c.sre(bus, addr)
	case 0x81, 0x85, 0x8D, 0x91, 0x95, 0x99, 0x9D:
		c.write(bus, addr, c.A)
	case 0x86, 0x8E, 0x96:
		c.write(bus, addr, c.X)
	case 0x84, 0x8C, 0x94:
		c.write(bus, addr, c.Y)
	case 0x9B:
		c.tas(bus, addr)
	case 0xAA:
		c.X = c.setNZ(c.A)
	case 0xA8:
		c.Y = c.setNZ(c.A)
	case 0xBA:
		c.X = c.setNZ(c.SP)
	case 0x8A:
		c.A = c.setNZ(c.X)
	case 0x9A:
		c.SP = c.X
	case 0x98:
		c.A = c.setNZ(c.Y)
	case 0x8B:
		c.A = c.setNZ((c.A | 0xEE) & c.X & c.read(bus, addr))
	}
}

func (c *CPU6502) nop(bus Bus, mode AddressingMode, addr uint16) {
	if mode != Implied {
		_ = c.read(bus, addr)
	}
}

// binaryAdd performs a plain (non-decimal) ADC, the arithmetic both ADC and
// SBC (via one's-complement of the operand) reduce to outside decimal mode.
func (c *CPU6502) binaryAdd(v byte) {
	a := uint16(c.A)
	m := uint16(v)
	carryIn := uint16(c.P & FlagC)
	result := a + m + carryIn

	if result&0x100 != 0 {
		c.P |= FlagC
	} else {
		c.P &^= FlagC
	}
	if a&0x80 == m&0x80 && a&0x80 != result&0x80 {
		c.P |= FlagV
	} else {
		c.P &^= FlagV
	}
	c.A = byte(result)
	c.updateZero(c.A)
	c.updateNegative(c.A)
}

// doAdd implements ADC, including NMOS decimal-mode correction: Z reflects
// the binary sum, N and V reflect the nibble sum before the final high-digit
// fixup, and C and A reflect the fully BCD-corrected result.
func (c *CPU6502) doAdd(v byte) {
	if c.P&FlagD == 0 {
		c.binaryAdd(v)
		return
	}

	a := c.A
	carryIn := byte(c.P & FlagC)

	lo := (a & 0x0F) + (v & 0x0F) + carryIn
	hi := (a >> 4) + (v >> 4)
	if lo > 9 {
		lo += 6
		hi++
	}

	nibbleResult := (hi<<4)&0xF0 | lo&0x0F
	binResult := uint16(a) + uint16(v) + uint16(carryIn)

	c.updateZero(byte(binResult))
	c.updateNegative(nibbleResult)
	if uint16(a)&0x80 == uint16(v)&0x80 && uint16(a)&0x80 != uint16(nibbleResult)&0x80 {
		c.P |= FlagV
	} else {
		c.P &^= FlagV
	}

	if hi > 9 {
		hi += 6
	}
	if hi > 15 {
		c.P |= FlagC
	} else {
		c.P &^= FlagC
	}
	c.A = (hi<<4)&0xF0 | lo&0x0F
}

// doSub implements SBC. Flags always come from the equivalent binary
// subtraction (ADC of the one's complement); in decimal mode only the digit
// value written back to A differs, per the documented NMOS behavior.
func (c *CPU6502) doSub(v byte) {
	if c.P&FlagD == 0 {
		c.binaryAdd(v ^ 0xFF)
		return
	}

	savedA := c.A
	carryIn := c.P & FlagC
	c.binaryAdd(v ^ 0xFF) // sets N,V,Z,C correctly; c.A is now the wrong (binary) value

	lo := int16(savedA&0x0F) - int16(v&0x0F) - int16(1-uint16(carryIn))
	hi := int16(savedA>>4) - int16(v>>4)
	if lo < 0 {
		lo += 10
		hi--
	}
	if hi < 0 {
		hi += 10
	}
	c.A = byte(hi<<4)&0xF0 | byte(lo)&0x0F
}

func (c *CPU6502) adc(bus Bus, addr uint16) { c.doAdd(c.read(bus, addr)) }
func (c *CPU6502) sbc(bus Bus, addr uint16) { c.doSub(c.read(bus, addr)) }

func (c *CPU6502) and(bus Bus, addr uint16) { c.A = c.setNZ(c.A & c.read(bus, addr)) }

func (c *CPU6502) doAsl(v byte) byte {
	if v&0x80 != 0 {
		c.P |= FlagC
	} else {
		c.P &^= FlagC
	}
	return c.setNZ(v << 1)
}

func (c *CPU6502) doLsr(v byte) byte {
	if v&0x01 != 0 {
		c.P |= FlagC
	} else {
		c.P &^= FlagC
	}
	return c.setNZ(v >> 1)
}

func (c *CPU6502) doRol(v byte) byte {
	carryIn := byte(c.P & FlagC)
	if v&0x80 != 0 {
		c.P |= FlagC
	} else {
		c.P &^= FlagC
	}
	return c.setNZ(v<<1 | carryIn)
}

func (c *CPU6502) doRor(v byte) byte {
	carryIn := byte(c.P&FlagC) << 7
	if v&0x01 != 0 {
		c.P |= FlagC
	} else {
		c.P &^= FlagC
	}
	return c.setNZ(v>>1 | carryIn)
}

func (c *CPU6502) doDec(v byte) byte { return c.setNZ(v - 1) }
func (c *CPU6502) doInc(v byte) byte { return c.setNZ(v + 1) }

// rmw implements the read-modify-write shape shared by ASL/LSR/ROL/ROR/
// INC/DEC in their memory forms: read, apply fn, write back.
func (c *CPU6502) rmw(bus Bus, addr uint16, fn func(byte) byte) {
	v := c.read(bus, addr)
	c.write(bus, addr, v) // the 6502 writes the unmodified value back first
	c.lastRMW = fn(v)
	c.write(bus, addr, c.lastRMW)
}

func (c *CPU6502) asl(bus Bus, addr uint16) { c.rmw(bus, addr, c.doAsl) }
func (c *CPU6502) lsr(bus Bus, addr uint16) { c.rmw(bus, addr, c.doLsr) }
func (c *CPU6502) rol(bus Bus, addr uint16) { c.rmw(bus, addr, c.doRol) }
func (c *CPU6502) ror(bus Bus, addr uint16) { c.rmw(bus, addr, c.doRor) }

func (c *CPU6502) aslA() { c.A = c.doAsl(c.A) }
func (c *CPU6502) lsrA() { c.A = c.doLsr(c.A) }
func (c *CPU6502) rolA() { c.A = c.doRol(c.A) }
func (c *CPU6502) rorA() { c.A = c.doRor(c.A) }

func (c *CPU6502) bit(bus Bus, addr uint16) {
	v := c.read(bus, addr)
	c.updateZero(c.A & v)
	c.P = c.P&^(FlagN|FlagV) | Status(v&0xC0)
}

// compare is shared by CMP/CPX/CPY: C set on a≥b unsigned.
func (c *CPU6502) compare(a, b byte) {
	if a >= b {
		c.P |= FlagC
	} else {
		c.P &^= FlagC
	}
	c.setNZ(a - b)
}

func (c *CPU6502) branchIf(taken bool, addr uint16) {
	if !taken {
		return
	}
	if pageOf(c.PC) != pageOf(addr) {
		c.clock()
	}
	c.clock()
	c.PC = addr
}

func (c *CPU6502) brk(bus Bus) {
	c.PC++ // BRK's second byte is a padding signature byte, skipped
	c.serviceInterrupt(bus, irqVector, true)
}

func (c *CPU6502) jsr(bus Bus, addr uint16) {
	c.clock() // internal cycle between the operand fetch and the first push
	c.pushAddress(bus, c.PC-1)
	c.PC = addr
}

func (c *CPU6502) rts(bus Bus) {
	c.clock() // dummy stack-pointer increment before the pulls
	c.PC = c.pullAddress(bus) + 1
	c.clock()
}

func (c *CPU6502) rti(bus Bus) {
	c.clock() // dummy stack-pointer increment before the pulls
	c.P = Status(c.pull(bus))&^FlagB | FlagU
	c.PC = c.pullAddress(bus)
}

// Undocumented opcodes: implemented where their behavior is well-known and
// stable across NMOS chips; spec.md only requires they not be fatal, so the
// less-stable ones (XAA/AHX/TAS/LAS/SHX/SHY) use the commonly cited
// approximations.

func (c *CPU6502) lax(bus Bus, addr uint16) {
	v := c.read(bus, addr)
	c.A = c.setNZ(v)
	c.X = c.A
}

func (c *CPU6502) dcp(bus Bus, addr uint16) {
	c.rmw(bus, addr, c.doDec)
	c.compare(c.A, c.lastRMW)
}

func (c *CPU6502) isc(bus Bus, addr uint16) {
	c.rmw(bus, addr, c.doInc)
	c.doSub(c.lastRMW)
}

func (c *CPU6502) slo(bus Bus, addr uint16) {
	c.rmw(bus, addr, c.doAsl)
	c.A = c.setNZ(c.A | c.lastRMW)
}

func (c *CPU6502) rla(bus Bus, addr uint16) {
	c.rmw(bus, addr, c.doRol)
	c.A = c.setNZ(c.A & c.lastRMW)
}

func (c *CPU6502) sre(bus Bus, addr uint16) {
	c.rmw(bus, addr, c.doLsr)
	c.A = c.setNZ(c.A ^ c.lastRMW)
}

func (c *CPU6502) rra(bus Bus, addr uint16) {
	c.rmw(bus, addr, c.doRor)
	c.doAdd(c.lastRMW)
}

func (c *CPU6502) alr(bus Bus, addr uint16) {
	c.A &= c.read(bus, addr)
	c.A = c.doLsr(c.A)
}

func (c *CPU6502) anc(bus Bus, addr uint16) {
	c.A = c.setNZ(c.A & c.read(bus, addr))
	if c.P&FlagN != 0 {
		c.P |= FlagC
	} else {
		c.P &^= FlagC
	}
}

func (c *CPU6502) arr(bus Bus, addr uint16) {
	c.A &= c.read(bus, addr)
	c.A = c.doRor(c.A)
	bit6, bit5 := c.A&0x40 != 0, c.A&0x20 != 0
	if bit6 {
		c.P |= FlagC
	} else {
		c.P &^= FlagC
	}
	if bit6 != bit5 {
		c.P |= FlagV
	} else {
		c.P &^= FlagV
	}
}

func (c *CPU6502) axs(bus Bus, addr uint16) {
	v := c.read(bus, addr)
	r := (c.A & c.X) - v
	if (c.A & c.X) >= v {
		c.P |= FlagC
	} else {
		c.P &^= FlagC
	}
	c.X = c.setNZ(r)
}

func (c *CPU6502) las(bus Bus, addr uint16) {
	v := c.read(bus, addr) & c.SP
	c.A = v
	c.X = v
	c.SP = v
	c.setNZ(v)
}

func (c *CPU6502) shx(bus Bus, addr uint16) {
	bus.Write(addr, c.X&byte(addr>>8+1))
}

func (c *CPU6502) shy(bus Bus, addr uint16) {
	bus.Write(addr, c.Y&byte(addr>>8+1))
}

func (c *CPU6502) ahx(bus Bus, addr uint16) {
	bus.Write(addr, c.A&c.X&byte(addr>>8+1))
}

func (c *CPU6502) tas(bus Bus, addr uint16) {
	c.SP = c.A & c.X
	bus.Write(addr, c.SP&byte(addr>>8+1))
}

