package c64

import (
	"fmt"
	"io"
)

// modeNames mirrors the mnemonic-suffix conventions used by every common
// 6502 disassembler (VICE's mon included): a bare operand for Absolute,
// ",X"/",Y" suffixes for indexed modes, and the "(...)" forms for indirect
// addressing.
var modeNames = [...]string{
	Implied:         "",
	Accumulator:     "A",
	Immediate:       "#$%02X",
	ZeroPage:        "$%02X",
	ZeroPageX:       "$%02X,X",
	ZeroPageY:       "$%02X,Y",
	Absolute:        "$%04X",
	AbsoluteX:       "$%04X,X",
	AbsoluteY:       "$%04X,Y",
	Indirect:        "($%04X)",
	IndexedIndirect: "($%02X,X)",
	IndirectIndexed: "($%02X),Y",
	Relative:        "$%04X",
}

// Disassemble renders the instruction at pc without advancing any CPU
// state, used by the disasm CLI subcommand.
func (c *CPU6502) Disassemble(bus Bus, pc uint16) string {
	opcode := bus.Read(pc)
	inst := instructions[opcode]

	var operandText string
	switch inst.Size {
	case 1:
		operandText = modeNames[inst.Mode]
	case 2:
		operand := bus.Read(pc + 1)
		addr := operand
		if inst.Mode == Relative {
			target := pc + 2 + uint16(int8(operand))
			operandText = fmt.Sprintf(modeNames[inst.Mode], target)
		} else {
			operandText = fmt.Sprintf(modeNames[inst.Mode], addr)
		}
	case 3:
		lo := bus.Read(pc + 1)
		hi := bus.Read(pc + 2)
		operandText = fmt.Sprintf(modeNames[inst.Mode], uint16(hi)<<8|uint16(lo))
	}

	name := inst.Name
	if inst.Illegal {
		name = "." + name
	}
	if operandText == "" {
		return fmt.Sprintf("$%04X: %02X       %s", pc, opcode, name)
	}
	return fmt.Sprintf("$%04X: %02X       %s %s", pc, opcode, name, operandText)
}

// disassembleInto writes a trace line for the instruction CPU6502.Step just
// fetched (PC, mnemonic and the resolved effective address or immediate
// value; no register state), in the column layout flga-vnes's disasembler.go uses for its own
// `-trace` output.
func disassembleInto(w io.Writer, bus Bus, pc uint16, inst Instruction, addr uint16) {
	name := inst.Name
	if inst.Illegal {
		name = "." + name
	}
	fmt.Fprintf(w, "$%04X: %-4s", pc, name)
	switch inst.Mode {
	case Implied, Accumulator:
	case Immediate:
		fmt.Fprintf(w, " #$%02X", bus.Read(addr))
	case Relative:
		fmt.Fprintf(w, " $%04X", addr)
	default:
		fmt.Fprintf(w, " $%04X", addr)
	}
	fmt.Fprintln(w)
}
