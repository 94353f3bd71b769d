// Package monitor implements the interactive peek/poke/step TUI described
// in spec.md §6, modeled on hejops-gone/cpu/debugger.go's bubbletea
// single-stepper: a page-table memory dump plus a register/flags panel,
// redrawn after every keypress. Unlike that NES debugger it also exposes
// an EVAL command, backed by an embedded otto JavaScript evaluator bound
// to peek/poke/register helpers.
package monitor

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/robertkrimen/otto"

	"github.com/cyberplant/c64py/c64"
)

type model struct {
	exec   *c64.Executive
	offset uint16 // page-table scroll position

	input   string // accumulated command line text
	history []string
	vm      *otto.Otto
}

func newModel(exec *c64.Executive) model {
	return model{exec: exec, vm: newEvalVM(exec)}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.history = append(m.history, "> "+m.input)
			m.history = append(m.history, m.runCommand(m.input))
			m.input = ""
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
		case tea.KeyRunes:
			m.input += string(msg.Runes)
		case tea.KeySpace:
			m.input += " "
		}
	}
	return m, nil
}

// runCommand handles the monitor's own command set: STEP, BREAK, PEEK,
// POKE, REGS, and EVAL (the otto extension), returning the reply line
// shown in the monitor.
func (m *model) runCommand(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	switch strings.ToUpper(fields[0]) {
	case "STEP":
		var cycles uint64
		m.exec.WithLock(func() { cycles = m.exec.CPU.Step(m.exec.Mem) })
		return fmt.Sprintf("stepped %d cycles, PC=$%04X", cycles, m.exec.CPU.PC)
	case "BREAK":
		if len(fields) != 2 {
			return "usage: BREAK $addr"
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "$"), 16, 16)
		if err != nil {
			return "bad address"
		}
		m.exec.CPU.SetBreakpoint(uint16(addr), true)
		return fmt.Sprintf("breakpoint set at $%04X", addr)
	case "PEEK":
		if len(fields) != 2 {
			return "usage: PEEK $addr"
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "$"), 16, 16)
		if err != nil {
			return "bad address"
		}
		var v byte
		m.exec.WithLock(func() { v = m.exec.Mem.Read(uint16(addr)) })
		return fmt.Sprintf("$%04X = $%02X", addr, v)
	case "POKE":
		if len(fields) != 3 {
			return "usage: POKE $addr $val"
		}
		addr, err1 := strconv.ParseUint(strings.TrimPrefix(fields[1], "$"), 16, 16)
		val, err2 := strconv.ParseUint(strings.TrimPrefix(fields[2], "$"), 16, 8)
		if err1 != nil || err2 != nil {
			return "bad number"
		}
		m.exec.WithLock(func() { m.exec.Mem.Write(uint16(addr), byte(val)) })
		return "ok"
	case "REGS":
		return m.registerLine()
	case "EVAL":
		out, err := EvalExpr(m.vm, strings.TrimPrefix(line, fields[0]+" "))
		if err != nil {
			return "eval error: " + err.Error()
		}
		return out
	default:
		return "unknown command: " + fields[0]
	}
}

func (m model) registerLine() string {
	c := m.exec.CPU
	return fmt.Sprintf("PC=$%04X A=$%02X X=$%02X Y=$%02X SP=$%02X P=%08b",
		c.PC, c.A, c.X, c.Y, c.SP, byte(c.P))
}

// renderPage mirrors debugger.go's renderPage, highlighting PC's byte.
func (m model) renderPage(start uint16) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%04X | ", start)
	for i := uint16(0); i < 16; i++ {
		addr := start + i
		v := m.exec.Mem.Peek(addr)
		if addr == m.exec.CPU.PC {
			fmt.Fprintf(&b, "[%02X] ", v)
		} else {
			fmt.Fprintf(&b, " %02X  ", v)
		}
	}
	return b.String()
}

func (m model) pageTable() string {
	var lines []string
	for row := uint16(0); row < 8; row++ {
		lines = append(lines, m.renderPage(m.offset+row*16))
	}
	return strings.Join(lines, "\n")
}

func (m model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.pageTable(),
		"",
		m.registerLine(),
		"",
		strings.Join(lastLines(m.history, 10), "\n"),
		"> "+m.input,
	)
}

func lastLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

// Run starts the interactive monitor against exec, blocking until the user
// quits (Esc/Ctrl-C).
func Run(exec *c64.Executive) error {
	_, err := tea.NewProgram(newModel(exec)).Run()
	return err
}
