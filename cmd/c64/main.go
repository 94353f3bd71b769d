// Command c64 is the front end for the emulation core: `run` boots a
// machine (optionally serving the TCP/UDP command protocol and/or a
// graphical window), `monitor` opens the interactive peek/poke/step TUI,
// and `disasm` statically disassembles a PRG file. Flag layout
// follows oisee-z80-optimizer/cmd/z80opt/main.go's cobra root-plus-
// subcommands shape.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyberplant/c64py/c64"
	"github.com/cyberplant/c64py/internal/monitor"
	"github.com/cyberplant/c64py/internal/server"
	"github.com/cyberplant/c64py/internal/video"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes a missing/malformed ROM (a configuration error,
// not a program bug) from every other failure.
func exitCode(err error) int {
	switch {
	case errors.Is(err, c64.ErrROMMissing), errors.Is(err, c64.ErrROMSizeMismatch):
		return 2
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "c64",
		Short: "A Commodore 64 emulation core",
	}

	root.AddCommand(newRunCmd(), newMonitorCmd(), newDisasmCmd())
	return root
}

type romFlags struct {
	basicPath, kernalPath, charPath, dosPath string
}

func (f *romFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.basicPath, "basic-rom", "roms/basic.901226-01.bin", "path to the BASIC ROM")
	cmd.Flags().StringVar(&f.kernalPath, "kernal-rom", "roms/kernal.901227-03.bin", "path to the KERNAL ROM")
	cmd.Flags().StringVar(&f.charPath, "char-rom", "roms/characters.901225-01.bin", "path to the character ROM")
	cmd.Flags().StringVar(&f.dosPath, "dos-rom", "", "path to the 1541 DOS ROM (enables the second-CPU drive path)")
}

func (f *romFlags) load() (basic, kernal, char, dos []byte, err error) {
	if basic, err = os.ReadFile(f.basicPath); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("%w: %s", c64.ErrROMMissing, err)
	}
	if kernal, err = os.ReadFile(f.kernalPath); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("%w: %s", c64.ErrROMMissing, err)
	}
	if char, err = os.ReadFile(f.charPath); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("%w: %s", c64.ErrROMMissing, err)
	}
	if f.dosPath != "" {
		if dos, err = os.ReadFile(f.dosPath); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("%w: %s", c64.ErrROMMissing, err)
		}
	}
	return basic, kernal, char, dos, nil
}

func newRunCmd() *cobra.Command {
	var roms romFlags
	var (
		maxCycles        uint64
		autoQuit         bool
		diskPath         string
		tcpPort, udpPort int
		graphics         bool
		noColor          bool
		ntsc             bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot a machine and run it",
		RunE: func(cmd *cobra.Command, args []string) error {
			basic, kernal, char, dos, err := roms.load()
			if err != nil {
				return err
			}

			region := c64.PAL
			if ntsc {
				region = c64.NTSC
			}

			exec, err := c64.NewExecutive(c64.ExecutiveConfig{
				Region: region, BasicROM: basic, KernalROM: kernal, CharROM: char, DOSROM: dos,
			})
			if err != nil {
				return err
			}

			if autoQuit {
				exec.EnableAutoQuit()
			}

			if diskPath != "" {
				raw, err := os.ReadFile(diskPath)
				if err != nil {
					return err
				}
				img, err := c64.AttachD64(diskPath, raw)
				if err != nil {
					return err
				}
				if err := exec.AttachDisk(img); err != nil {
					return err
				}
				exec.AutoInjectLoad()
			}

			if tcpPort != 0 {
				srv := server.New(exec)
				if err := srv.ListenTCP(fmt.Sprintf(":%d", tcpPort)); err != nil {
					return err
				}
			}
			if udpPort != 0 {
				srv := server.New(exec)
				if err := srv.ListenUDP(fmt.Sprintf(":%d", udpPort)); err != nil {
					return err
				}
			}

			var renderer *video.Renderer
			if graphics {
				renderer, err = video.New("c64", 2)
				if err != nil {
					return err
				}
				defer renderer.Close()
			}

			return runLoop(exec, maxCycles, renderer)
		},
	}

	roms.register(cmd)
	cmd.Flags().Uint64Var(&maxCycles, "max-cycles", 0, "stop after this many CPU cycles (0 = unlimited)")
	cmd.Flags().BoolVar(&autoQuit, "autoquit", false, "exit once the KERNAL's READY. prompt reappears after auto-boot")
	cmd.Flags().StringVar(&diskPath, "disk", "", "D64 image to attach and auto-boot at startup")
	cmd.Flags().IntVar(&tcpPort, "tcp-port", 0, "serve the command protocol over TCP on this port (0 = disabled)")
	cmd.Flags().IntVar(&udpPort, "udp-port", 0, "serve the command protocol over UDP on this port (0 = disabled)")
	cmd.Flags().BoolVar(&graphics, "graphics", false, "open an SDL2 window rendering the text-mode screen")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI color in terminal output")
	cmd.Flags().BoolVar(&noColor, "no-colors", false, "alias for --no-color")
	cmd.Flags().BoolVar(&ntsc, "ntsc", false, "use NTSC raster timing instead of PAL")
	return cmd
}

func runLoop(exec *c64.Executive, maxCycles uint64, renderer *video.Renderer) error {
	var total uint64
	for {
		total += exec.Tick()
		if exec.Quit() {
			return nil
		}
		if maxCycles != 0 && total >= maxCycles {
			return nil
		}
		if renderer != nil {
			if renderer.PollQuit() {
				return nil
			}
			if err := renderer.Frame(exec.VIC, exec.Mem); err != nil {
				return err
			}
		}
	}
}

func newMonitorCmd() *cobra.Command {
	var roms romFlags
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Open the interactive peek/poke/step monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			basic, kernal, char, dos, err := roms.load()
			if err != nil {
				return err
			}
			exec, err := c64.NewExecutive(c64.ExecutiveConfig{
				Region: c64.PAL, BasicROM: basic, KernalROM: kernal, CharROM: char, DOSROM: dos,
			})
			if err != nil {
				return err
			}
			return monitor.Run(exec)
		},
	}
	roms.register(cmd)
	return cmd
}

func newDisasmCmd() *cobra.Command {
	var startAddr uint16
	cmd := &cobra.Command{
		Use:   "disasm [file]",
		Short: "Statically disassemble a PRG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if len(data) < 2 {
				return fmt.Errorf("disasm: file too short to contain a load address")
			}
			loadAddr := uint16(data[0]) | uint16(data[1])<<8
			if cmd.Flags().Changed("start") {
				loadAddr = startAddr
			}
			body := data[2:]

			bus := &flatBus{base: loadAddr, data: body}
			cpu := c64.NewCPU6502()
			pc := loadAddr
			for int(pc-loadAddr) < len(body) {
				line := cpu.Disassemble(bus, pc)
				fmt.Println(line)
				size := c64.InstructionSize(bus.Read(pc))
				if size == 0 {
					size = 1
				}
				pc += uint16(size)
			}
			return nil
		},
	}
	cmd.Flags().Uint16Var(&startAddr, "start", 0, "override the load address read from the PRG header")
	return cmd
}

// flatBus serves a disassembly-only read-only view over a PRG's body at
// its load address, with everything else reading as zero.
type flatBus struct {
	base uint16
	data []byte
}

func (b *flatBus) Read(addr uint16) byte {
	if addr < b.base || int(addr-b.base) >= len(b.data) {
		return 0
	}
	return b.data[addr-b.base]
}

func (b *flatBus) Write(addr uint16, v byte) {}
