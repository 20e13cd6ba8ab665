package main

import (
	"io"
	"log/slog"
	"testing"
)

type z80TestBus struct {
	mem [0x10000]byte
	io  [0x10000]byte

	outs []z80PortWrite
}

type z80PortWrite struct {
	port  uint16
	value byte
}

func (b *z80TestBus) Read(addr uint16) byte {
	return b.mem[addr]
}

func (b *z80TestBus) Write(addr uint16, value byte) {
	b.mem[addr] = value
}

func (b *z80TestBus) Read16(addr uint16) uint16 {
	return uint16(b.mem[addr]) | uint16(b.mem[addr+1])<<8
}

func (b *z80TestBus) Write16(addr uint16, value uint16) {
	b.mem[addr] = byte(value)
	b.mem[addr+1] = byte(value >> 8)
}

func (b *z80TestBus) ReadSigned(addr uint16) int8 {
	return int8(b.mem[addr])
}

func (b *z80TestBus) In(port uint16) byte {
	return b.io[port]
}

func (b *z80TestBus) Out(port uint16, value byte) {
	b.io[port] = value
	b.outs = append(b.outs, z80PortWrite{port, value})
}

type cpuZ80TestRig struct {
	bus   *z80TestBus
	chain *DaisyChain
	cpu   *CPU_Z80
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCPUZ80TestRig() *cpuZ80TestRig {
	r := &cpuZ80TestRig{}
	r.resetAndLoad(0x0000, nil)
	return r
}

func (r *cpuZ80TestRig) resetAndLoad(start uint16, program []byte) {
	r.bus = &z80TestBus{}
	r.chain = NewDaisyChain()
	r.cpu = NewCPU_Z80OnBus(r.bus, r.chain)
	r.cpu.SetLogger(quietLogger())
	for i, value := range program {
		r.bus.mem[start+uint16(i)] = value
	}
	r.cpu.PC = start
}

// step runs one instruction followed by an acknowledge check, the way a
// board drives the core.
func (r *cpuZ80TestRig) step() {
	r.cpu.Step()
	r.cpu.HandleIRQ()
}

// stepCycles runs one instruction and returns the T-states it took.
func (r *cpuZ80TestRig) stepCycles() int {
	before := r.cpu.Cycles
	r.cpu.Step()
	return int(r.cpu.Cycles - before)
}

func requireZ80EqualU16(t *testing.T, name string, got, want uint16) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = 0x%04X, want 0x%04X", name, got, want)
	}
}

func requireZ80EqualU8(t *testing.T, name string, got, want byte) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = 0x%02X, want 0x%02X", name, got, want)
	}
}

func requireZ80Cycles(t *testing.T, name string, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("%s took %d T-states, want %d", name, got, want)
	}
}
