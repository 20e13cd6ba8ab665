package main

import "testing"

func TestZ80LDIFlags(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xA0}) // LDI
	rig.cpu.A = 0x10
	rig.cpu.F = z80FlagS | z80FlagC
	rig.cpu.SetHL(0x4000)
	rig.cpu.SetDE(0x5000)
	rig.cpu.SetBC(2)
	rig.bus.mem[0x4000] = 0x22

	requireZ80Cycles(t, "LDI", rig.stepCycles(), 16)
	requireZ80EqualU8(t, "(DE)", rig.bus.mem[0x5000], 0x22)
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0x4001)
	requireZ80EqualU16(t, "DE", rig.cpu.DE(), 0x5001)
	requireZ80EqualU16(t, "BC", rig.cpu.BC(), 0x0001)
	// A+value = 0x32: bit 1 lands in Y, bit 3 in X
	requireZ80EqualU8(t, "F", rig.cpu.F, z80FlagS|z80FlagC|z80FlagY|z80FlagPV)
}

func TestZ80LDIRCopiesAndCounts(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB0, 0x00}) // LDIR; NOP
	rig.cpu.SetHL(0x4000)
	rig.cpu.SetDE(0x5000)
	rig.cpu.SetBC(3)
	copy(rig.bus.mem[0x4000:], []byte{0x11, 0x22, 0x33, 0x44})

	requireZ80Cycles(t, "LDIR", rig.stepCycles(), 21+21+16)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0002)
	requireZ80EqualU16(t, "BC", rig.cpu.BC(), 0)
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0x4003)
	requireZ80EqualU16(t, "DE", rig.cpu.DE(), 0x5003)
	for i, want := range []byte{0x11, 0x22, 0x33, 0x00} {
		requireZ80EqualU8(t, "dest", rig.bus.mem[0x5000+i], want)
	}
	if rig.cpu.F&z80FlagPV != 0 {
		t.Fatal("P/V set after the counter reached zero")
	}
	// two opcode fetches plus two per repeat
	requireZ80EqualU8(t, "R", rig.cpu.R, 6)
}

func TestZ80LDIRWithZeroCounterRunsOnce(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB0})
	rig.cpu.SetHL(0x4000)
	rig.cpu.SetDE(0x5000)
	rig.cpu.SetBC(0)
	rig.bus.mem[0x4000] = 0x5A
	rig.bus.mem[0x4001] = 0xA5

	requireZ80Cycles(t, "LDIR", rig.stepCycles(), 16)
	requireZ80EqualU16(t, "BC", rig.cpu.BC(), 0xFFFF)
	requireZ80EqualU8(t, "(0x5000)", rig.bus.mem[0x5000], 0x5A)
	requireZ80EqualU8(t, "(0x5001)", rig.bus.mem[0x5001], 0x00)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0002)
}

func TestZ80LDDRCopiesDownward(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB8})
	rig.cpu.SetHL(0x4002)
	rig.cpu.SetDE(0x5002)
	rig.cpu.SetBC(3)
	copy(rig.bus.mem[0x4000:], []byte{0xA1, 0xB2, 0xC3})

	requireZ80Cycles(t, "LDDR", rig.stepCycles(), 21+21+16)
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0x3FFF)
	requireZ80EqualU16(t, "DE", rig.cpu.DE(), 0x4FFF)
	for i, want := range []byte{0xA1, 0xB2, 0xC3} {
		requireZ80EqualU8(t, "dest", rig.bus.mem[0x5000+i], want)
	}
}

func TestZ80CPIRStopsOnMatch(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB1})
	rig.cpu.A = 0x33
	rig.cpu.F = z80FlagC
	rig.cpu.SetHL(0x4000)
	rig.cpu.SetBC(10)
	copy(rig.bus.mem[0x4000:], []byte{0x11, 0x22, 0x33, 0x44})

	requireZ80Cycles(t, "CPIR", rig.stepCycles(), 21+21+16)
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0x4003)
	requireZ80EqualU16(t, "BC", rig.cpu.BC(), 7)
	f := rig.cpu.F
	if f&z80FlagZ == 0 || f&z80FlagPV == 0 || f&z80FlagN == 0 || f&z80FlagC == 0 {
		t.Fatalf("F = %02X, want Z, P/V, N and the old carry", f)
	}
}

func TestZ80CPIRExhaustsCounter(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB1})
	rig.cpu.A = 0x99
	rig.cpu.SetHL(0x4000)
	rig.cpu.SetBC(2)

	requireZ80Cycles(t, "CPIR", rig.stepCycles(), 21+16)
	requireZ80EqualU16(t, "BC", rig.cpu.BC(), 0)
	if rig.cpu.F&(z80FlagZ|z80FlagPV) != 0 {
		t.Fatalf("F = %02X, want Z and P/V clear", rig.cpu.F)
	}
}

func TestZ80OTIRWritesPortsWithDecrementedB(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB3})
	rig.cpu.B = 3
	rig.cpu.C = 0x10
	rig.cpu.SetHL(0x4000)
	copy(rig.bus.mem[0x4000:], []byte{0xAA, 0xBB, 0xCC})

	requireZ80Cycles(t, "OTIR", rig.stepCycles(), 21+21+16)
	want := []z80PortWrite{{0x0210, 0xAA}, {0x0110, 0xBB}, {0x0010, 0xCC}}
	if len(rig.bus.outs) != len(want) {
		t.Fatalf("got %d port writes, want %d", len(rig.bus.outs), len(want))
	}
	for i, w := range want {
		if rig.bus.outs[i] != w {
			t.Fatalf("write %d = %+v, want %+v", i, rig.bus.outs[i], w)
		}
	}
	requireZ80EqualU8(t, "B", rig.cpu.B, 0)
	if rig.cpu.F&z80FlagZ == 0 {
		t.Fatal("Z clear after B reached zero")
	}
}

func TestZ80INIRReadsPortsWithOriginalB(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB2})
	rig.cpu.B = 2
	rig.cpu.C = 0x20
	rig.cpu.SetHL(0x4000)
	rig.bus.io[0x0220] = 0x11
	rig.bus.io[0x0120] = 0x22

	requireZ80Cycles(t, "INIR", rig.stepCycles(), 21+16)
	requireZ80EqualU8(t, "(0x4000)", rig.bus.mem[0x4000], 0x11)
	requireZ80EqualU8(t, "(0x4001)", rig.bus.mem[0x4001], 0x22)
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0x4002)
	requireZ80EqualU8(t, "B", rig.cpu.B, 0)
}

func TestZ80INIRWithZeroBRunsOnce(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB2})
	rig.cpu.B = 0
	rig.cpu.C = 0x30
	rig.cpu.SetHL(0x4000)
	rig.bus.io[0x0030] = 0x77

	requireZ80Cycles(t, "INIR", rig.stepCycles(), 16)
	requireZ80EqualU8(t, "B", rig.cpu.B, 0xFF)
	requireZ80EqualU8(t, "(0x4000)", rig.bus.mem[0x4000], 0x77)
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0x4001)
}
