// debug_cpu_z80.go - Z80 debug adapter: registers, breakpoints, memory

package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

type RegisterInfo struct {
	Name     string // "PC", "A", "IX"
	BitWidth int    // 8 or 16
	Value    uint64
	Group    string // "general", "pair", "index", "status", "shadow", "flags"
}

// DebugZ80 drives a machine one instruction at a time for the -break and
// -dump front-end options.
type DebugZ80 struct {
	m *Machine

	bpMu        sync.RWMutex
	breakpoints map[uint16]*z80Breakpoint
}

type z80Breakpoint struct {
	cond *BreakpointCondition
	hits uint64
}

func NewDebugZ80(m *Machine) *DebugZ80 {
	return &DebugZ80{
		m:           m,
		breakpoints: make(map[uint16]*z80Breakpoint),
	}
}

func (d *DebugZ80) GetRegisters() []RegisterInfo {
	c := d.m.CPU
	return []RegisterInfo{
		{Name: "A", BitWidth: 8, Value: uint64(c.A), Group: "general"},
		{Name: "F", BitWidth: 8, Value: uint64(c.F), Group: "flags"},
		{Name: "B", BitWidth: 8, Value: uint64(c.B), Group: "general"},
		{Name: "C", BitWidth: 8, Value: uint64(c.C), Group: "general"},
		{Name: "D", BitWidth: 8, Value: uint64(c.D), Group: "general"},
		{Name: "E", BitWidth: 8, Value: uint64(c.E), Group: "general"},
		{Name: "H", BitWidth: 8, Value: uint64(c.H), Group: "general"},
		{Name: "L", BitWidth: 8, Value: uint64(c.L), Group: "general"},
		{Name: "AF", BitWidth: 16, Value: uint64(c.AF()), Group: "pair"},
		{Name: "BC", BitWidth: 16, Value: uint64(c.BC()), Group: "pair"},
		{Name: "DE", BitWidth: 16, Value: uint64(c.DE()), Group: "pair"},
		{Name: "HL", BitWidth: 16, Value: uint64(c.HL()), Group: "pair"},
		{Name: "AF'", BitWidth: 16, Value: uint64(c.AF2()), Group: "shadow"},
		{Name: "BC'", BitWidth: 16, Value: uint64(c.BC2()), Group: "shadow"},
		{Name: "DE'", BitWidth: 16, Value: uint64(c.DE2()), Group: "shadow"},
		{Name: "HL'", BitWidth: 16, Value: uint64(c.HL2()), Group: "shadow"},
		{Name: "IX", BitWidth: 16, Value: uint64(c.IX), Group: "index"},
		{Name: "IY", BitWidth: 16, Value: uint64(c.IY), Group: "index"},
		{Name: "SP", BitWidth: 16, Value: uint64(c.SP), Group: "general"},
		{Name: "PC", BitWidth: 16, Value: uint64(c.PC), Group: "general"},
		{Name: "WZ", BitWidth: 16, Value: uint64(c.WZ), Group: "status"},
		{Name: "I", BitWidth: 8, Value: uint64(c.I), Group: "status"},
		{Name: "R", BitWidth: 8, Value: uint64(c.R), Group: "status"},
		{Name: "IM", BitWidth: 8, Value: uint64(c.IM), Group: "status"},
	}
}

func (d *DebugZ80) GetRegister(name string) (uint64, bool) {
	name = strings.ToUpper(name)
	for _, r := range d.GetRegisters() {
		if r.Name == name {
			return r.Value, true
		}
	}
	return 0, false
}

func (d *DebugZ80) SetRegister(name string, value uint64) bool {
	c := d.m.CPU
	switch strings.ToUpper(name) {
	case "A":
		c.A = byte(value)
	case "F":
		c.F = byte(value)
	case "B":
		c.B = byte(value)
	case "C":
		c.C = byte(value)
	case "D":
		c.D = byte(value)
	case "E":
		c.E = byte(value)
	case "H":
		c.H = byte(value)
	case "L":
		c.L = byte(value)
	case "BC":
		c.SetBC(uint16(value))
	case "DE":
		c.SetDE(uint16(value))
	case "HL":
		c.SetHL(uint16(value))
	case "IX":
		c.IX = uint16(value)
	case "IY":
		c.IY = uint16(value)
	case "SP":
		c.SP = uint16(value)
	case "PC":
		c.PC = uint16(value)
	case "I":
		c.I = byte(value)
	case "R":
		c.R = byte(value)
	default:
		return false
	}
	return true
}

func (d *DebugZ80) GetPC() uint16 { return d.m.CPU.PC }

// Step runs one machine step and returns the cycles it took.
func (d *DebugZ80) Step() int {
	return d.m.Step()
}

// RunToBreakpoint steps until PC reaches a breakpoint, the machine stops
// or ctx is done. maxCycles of 0 means no limit. It reports whether a
// breakpoint was hit.
func (d *DebugZ80) RunToBreakpoint(ctx context.Context, maxCycles uint64) (bool, error) {
	for steps := 0; ; steps++ {
		if steps&0x3FF == 0 {
			if err := ctx.Err(); err != nil {
				return false, err
			}
		}
		if d.m.Stopped() || d.m.dead() {
			return false, nil
		}
		if maxCycles > 0 && d.m.CPU.Cycles >= maxCycles {
			return false, ErrCycleLimit
		}
		d.m.Step()
		if d.breakpointFires(d.m.CPU.PC) {
			return true, nil
		}
	}
}

func (d *DebugZ80) Disassemble(addr uint16, count int) []DisassembledLine {
	return disassembleZ80(d.m.Memory, addr, count)
}

func (d *DebugZ80) SetBreakpoint(addr uint16) bool {
	return d.SetConditionalBreakpoint(addr, nil)
}

// SetConditionalBreakpoint stops at addr only when cond holds. A nil
// condition always holds. Setting an existing breakpoint resets its hits.
func (d *DebugZ80) SetConditionalBreakpoint(addr uint16, cond *BreakpointCondition) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	d.breakpoints[addr] = &z80Breakpoint{cond: cond}
	return true
}

// breakpointFires counts a hit at pc and evaluates the condition.
func (d *DebugZ80) breakpointFires(pc uint16) bool {
	d.bpMu.Lock()
	bp, ok := d.breakpoints[pc]
	var hits uint64
	if ok {
		bp.hits++
		hits = bp.hits
	}
	d.bpMu.Unlock()
	return ok && bp.cond.evaluate(d, hits)
}

// BreakpointHits reports how often PC has reached addr since it was set.
func (d *DebugZ80) BreakpointHits(addr uint16) uint64 {
	d.bpMu.RLock()
	defer d.bpMu.RUnlock()
	if bp, ok := d.breakpoints[addr]; ok {
		return bp.hits
	}
	return 0
}

func (d *DebugZ80) ClearBreakpoint(addr uint16) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	if _, ok := d.breakpoints[addr]; ok {
		delete(d.breakpoints, addr)
		return true
	}
	return false
}

func (d *DebugZ80) ClearAllBreakpoints() {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	d.breakpoints = make(map[uint16]*z80Breakpoint)
}

func (d *DebugZ80) ListBreakpoints() []uint16 {
	d.bpMu.RLock()
	defer d.bpMu.RUnlock()
	result := make([]uint16, 0, len(d.breakpoints))
	for addr := range d.breakpoints {
		result = append(result, addr)
	}
	slices.Sort(result)
	return result
}

func (d *DebugZ80) HasBreakpoint(addr uint16) bool {
	d.bpMu.RLock()
	defer d.bpMu.RUnlock()
	_, ok := d.breakpoints[addr]
	return ok
}

func (d *DebugZ80) ReadMemory(addr uint16, size int) []byte {
	return d.m.Memory.ReadBlock(addr, size)
}

func (d *DebugZ80) WriteMemory(addr uint16, data []byte) {
	d.m.Memory.WriteBlock(addr, data)
}

// Dump writes the registers, flags and the next few instructions to w.
func (d *DebugZ80) Dump(w io.Writer) {
	c := d.m.CPU
	fmt.Fprintf(w, "AF=%04X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X SP=%04X PC=%04X\n",
		c.AF(), c.BC(), c.DE(), c.HL(), c.IX, c.IY, c.SP, c.PC)
	fmt.Fprintf(w, "AF'=%04X BC'=%04X DE'=%04X HL'=%04X I=%02X R=%02X IM=%d IFF1=%t IFF2=%t\n",
		c.AF2(), c.BC2(), c.DE2(), c.HL2(), c.I, c.R, c.IM, c.IFF1, c.IFF2)
	fmt.Fprintf(w, "flags=%s halted=%t cycles=%d\n", z80FlagString(c.F), c.Halted, c.Cycles)
	for _, line := range d.Disassemble(c.PC, 4) {
		fmt.Fprintln(w, line)
	}
}

func z80FlagString(f byte) string {
	const names = "SZYHXPNC"
	var sb strings.Builder
	for i := range 8 {
		if f&(0x80>>i) != 0 {
			sb.WriteByte(names[i])
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
