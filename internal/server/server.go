// Package server implements the line-oriented TCP and UDP command
// protocols spec.md §6 describes: POKE/PEEK/KEY/LOAD/ATTACH-DISK/
// DETACH-DISKS/RESET/HELP/QUIT/EVAL, each handled by calling back into the
// Executive under its own lock rather than touching machine state
// directly.
package server

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/cyberplant/c64py/c64"
)

// Server owns the Executive and an optional EVAL evaluator; nil Eval means
// the EVAL command responds with an error instead of a panic.
type Server struct {
	Exec   *c64.Executive
	Eval   func(expr string) (string, error)
	Logger *log.Logger
}

func New(exec *c64.Executive) *Server {
	return &Server{Exec: exec, Logger: log.New(os.Stderr, "server: ", log.LstdFlags)}
}

// ListenTCP serves one newline-terminated command per connection line,
// looping until the client disconnects or sends QUIT.
func (s *Server) ListenTCP(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				s.Logger.Printf("accept: %v", err)
				return
			}
			go s.serveConn(conn)
		}
	}()
	return nil
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply := s.dispatch(line)
		fmt.Fprintln(conn, reply)
		if reply == "BYE" {
			return
		}
	}
}

// ListenUDP serves one command per datagram, replying to the sender.
func (s *Server) ListenUDP(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	go func() {
		buf := make([]byte, 1024)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				s.Logger.Printf("read: %v", err)
				return
			}
			reply := s.dispatch(strings.TrimSpace(string(buf[:n])))
			conn.WriteToUDP([]byte(reply+"\n"), from)
		}
	}()
	return nil
}

func (s *Server) dispatch(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "ERR: empty command"
	}
	cmd := strings.ToUpper(fields[0])
	args := fields[1:]

	switch cmd {
	case "POKE":
		return s.cmdPoke(args)
	case "PEEK":
		return s.cmdPeek(args)
	case "KEY":
		return s.cmdKey(args)
	case "LOAD":
		return s.cmdLoad(args)
	case "ATTACH-DISK":
		return s.cmdAttach(args)
	case "DETACH-DISKS":
		s.Exec.DetachDisk()
		return "OK"
	case "RESET":
		s.Exec.WithLock(func() { s.Exec.CPU.Reset(s.Exec.Mem) })
		return "OK"
	case "EVAL":
		return s.cmdEval(strings.TrimPrefix(line, fields[0]+" "))
	case "HELP":
		return "POKE addr val | PEEK addr | KEY char | LOAD path | ATTACH-DISK path | DETACH-DISKS | RESET | EVAL expr | QUIT"
	case "QUIT":
		return "BYE"
	default:
		return "ERR: unknown command " + cmd
	}
}

func (s *Server) cmdPoke(args []string) string {
	if len(args) != 2 {
		return "ERR: usage POKE addr val"
	}
	addr, err1 := strconv.ParseUint(args[0], 0, 16)
	val, err2 := strconv.ParseUint(args[1], 0, 8)
	if err1 != nil || err2 != nil {
		return "ERR: bad number"
	}
	s.Exec.WithLock(func() { s.Exec.Mem.Write(uint16(addr), byte(val)) })
	return "OK"
}

func (s *Server) cmdPeek(args []string) string {
	if len(args) != 1 {
		return "ERR: usage PEEK addr"
	}
	addr, err := strconv.ParseUint(args[0], 0, 16)
	if err != nil {
		return "ERR: bad number"
	}
	var v byte
	s.Exec.WithLock(func() { v = s.Exec.Mem.Read(uint16(addr)) })
	return fmt.Sprintf("%d", v)
}

func (s *Server) cmdKey(args []string) string {
	if len(args) != 1 {
		return "ERR: usage KEY text"
	}
	s.Exec.TypeString(args[0])
	return "OK"
}

func (s *Server) cmdLoad(args []string) string {
	if len(args) != 1 {
		return "ERR: usage LOAD path"
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return "ERR: " + err.Error()
	}
	if len(raw) < 2 {
		return "ERR: PRG file too short to contain a load address"
	}
	addr := uint16(raw[0]) | uint16(raw[1])<<8
	s.Exec.WithLock(func() {
		for i, b := range raw[2:] {
			s.Exec.Mem.RAM[addr+uint16(i)] = b
		}
	})
	return "OK"
}

func (s *Server) cmdAttach(args []string) string {
	if len(args) != 1 {
		return "ERR: usage ATTACH-DISK path"
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return "ERR: " + err.Error()
	}
	img, err := c64.AttachD64(args[0], raw)
	if err != nil {
		return "ERR: " + err.Error()
	}
	if err := s.Exec.AttachDisk(img); err != nil {
		return "ERR: " + err.Error()
	}
	return "OK"
}

func (s *Server) cmdEval(expr string) string {
	if s.Eval == nil {
		return "ERR: EVAL not available"
	}
	out, err := s.Eval(expr)
	if err != nil {
		return "ERR: " + err.Error()
	}
	return out
}
