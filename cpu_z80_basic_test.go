package main

import "testing"

func TestZ80ResetState(t *testing.T) {
	rig := newCPUZ80TestRig()
	cpu := rig.cpu
	requireZ80EqualU16(t, "AF", cpu.AF(), 0xFFFF)
	requireZ80EqualU16(t, "SP", cpu.SP, 0xFFFF)
	requireZ80EqualU16(t, "IX", cpu.IX, 0xFFFF)
	requireZ80EqualU16(t, "IY", cpu.IY, 0xFFFF)
	requireZ80EqualU16(t, "PC", cpu.PC, 0x0000)
	if cpu.IFF1 || cpu.IFF2 || cpu.Halted || cpu.IM != 0 {
		t.Fatalf("interrupt state not cleared: IFF1=%t IFF2=%t halted=%t IM=%d", cpu.IFF1, cpu.IFF2, cpu.Halted, cpu.IM)
	}
}

func TestZ80RegisterPairViews(t *testing.T) {
	rig := newCPUZ80TestRig()
	cpu := rig.cpu

	cpu.SetBC(0x1234)
	requireZ80EqualU8(t, "B", cpu.B, 0x12)
	requireZ80EqualU8(t, "C", cpu.C, 0x34)

	cpu.H = 0xAB
	cpu.L = 0xCD
	requireZ80EqualU16(t, "HL", cpu.HL(), 0xABCD)

	cpu.SetAF(0x5AC1)
	requireZ80EqualU8(t, "A", cpu.A, 0x5A)
	requireZ80EqualU8(t, "F", cpu.F, 0xC1)
	if !cpu.Flag(z80FlagS) || !cpu.Flag(z80FlagC) || cpu.Flag(z80FlagN) {
		t.Fatalf("Flag view disagrees with F=%02X", cpu.F)
	}
	cpu.SetFlag(z80FlagN, true)
	requireZ80EqualU8(t, "F", cpu.F, 0xC3)
	cpu.SetFlag(z80FlagS, false)
	requireZ80EqualU8(t, "F", cpu.F, 0x43)
}

func TestZ80Loads(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0x01, 0x34, 0x12, // LD BC,0x1234
		0x3E, 0x99, // LD A,0x99
		0x02,             // LD (BC),A
		0x21, 0x00, 0x30, // LD HL,0x3000
		0x36, 0x42, // LD (HL),0x42
		0x46,             // LD B,(HL)
		0x22, 0x10, 0x30, // LD (0x3010),HL
		0x2A, 0x34, 0x12, // LD HL,(0x1234)
		0x3A, 0x00, 0x30, // LD A,(0x3000)
		0x32, 0x20, 0x30, // LD (0x3020),A
		0xED, 0x43, 0x30, 0x30, // LD (0x3030),BC
		0xED, 0x7B, 0x10, 0x30, // LD SP,(0x3010)
	})

	for range 12 {
		rig.cpu.Step()
	}

	requireZ80EqualU8(t, "(0x1234)", rig.bus.mem[0x1234], 0x99)
	requireZ80EqualU8(t, "(0x3000)", rig.bus.mem[0x3000], 0x42)
	requireZ80EqualU8(t, "B", rig.cpu.B, 0x42)
	requireZ80EqualU16(t, "(0x3010)", rig.bus.Read16(0x3010), 0x3000)
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0x0099)
	requireZ80EqualU8(t, "A", rig.cpu.A, 0x42)
	requireZ80EqualU8(t, "(0x3020)", rig.bus.mem[0x3020], 0x42)
	requireZ80EqualU16(t, "(0x3030)", rig.bus.Read16(0x3030), 0x4234)
	requireZ80EqualU16(t, "SP", rig.cpu.SP, 0x3000)
}

func TestZ80StackAndExchange(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0x31, 0x00, 0x80, // LD SP,0x8000
		0xC5,       // PUSH BC
		0xF1,       // POP AF
		0xEB,       // EX DE,HL
		0x08,       // EX AF,AF'
		0xD9,       // EXX
		0xE3,       // EX (SP),HL
	})
	rig.cpu.SetBC(0x1122)
	rig.cpu.SetDE(0x3344)
	rig.cpu.SetHL(0x5566)

	rig.cpu.Step()
	rig.cpu.Step()
	requireZ80EqualU16(t, "SP after PUSH", rig.cpu.SP, 0x7FFE)
	requireZ80EqualU16(t, "pushed word", rig.bus.Read16(0x7FFE), 0x1122)

	rig.cpu.Step()
	requireZ80EqualU16(t, "AF", rig.cpu.AF(), 0x1122)
	requireZ80EqualU16(t, "SP after POP", rig.cpu.SP, 0x8000)

	rig.cpu.Step()
	requireZ80EqualU16(t, "DE", rig.cpu.DE(), 0x5566)
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0x3344)

	rig.cpu.Step()
	requireZ80EqualU16(t, "AF'", rig.cpu.AF2(), 0x1122)

	rig.cpu.Step()
	requireZ80EqualU16(t, "BC'", rig.cpu.BC2(), 0x1122)
	requireZ80EqualU16(t, "HL'", rig.cpu.HL2(), 0x3344)
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0x0000)

	rig.cpu.SetHL(0xBEEF)
	rig.bus.Write16(0x8000, 0x1234)
	rig.cpu.Step()
	requireZ80EqualU16(t, "HL after EX (SP)", rig.cpu.HL(), 0x1234)
	requireZ80EqualU16(t, "(SP)", rig.bus.Read16(0x8000), 0xBEEF)
	requireZ80EqualU16(t, "WZ", rig.cpu.WZ, 0x1234)
}

func TestZ80RelativeJumps(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0100, []byte{
		0x06, 0x03, // LD B,3
		0x10, 0xFE, // DJNZ -2 (to itself)
		0x18, 0x02, // JR +2
		0x00, 0x00,
		0x28, 0x10, // JR Z,+16 (not taken)
	})
	rig.cpu.F = 0

	rig.cpu.Step()
	requireZ80Cycles(t, "DJNZ taken", rig.stepCycles(), 13)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0102)
	requireZ80Cycles(t, "DJNZ taken", rig.stepCycles(), 13)
	requireZ80Cycles(t, "DJNZ not taken", rig.stepCycles(), 8)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0104)
	requireZ80EqualU8(t, "B", rig.cpu.B, 0x00)

	requireZ80Cycles(t, "JR", rig.stepCycles(), 12)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0108)
	requireZ80Cycles(t, "JR Z not taken", rig.stepCycles(), 7)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x010A)
}

func TestZ80CallsAndReturns(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0x31, 0x00, 0x20, // LD SP,0x2000
		0xCD, 0x00, 0x10, // CALL 0x1000
		0xC4, 0x00, 0x11, // CALL NZ,0x1100 (Z set: not taken)
		0xFF, // RST 38h
	})
	rig.bus.mem[0x1000] = 0xC8 // RET Z
	rig.bus.mem[0x1001] = 0xC0 // RET NZ (not taken)
	rig.bus.mem[0x1002] = 0xC9 // RET

	rig.cpu.Step()
	requireZ80Cycles(t, "CALL", rig.stepCycles(), 17)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x1000)
	requireZ80EqualU16(t, "return address", rig.bus.Read16(rig.cpu.SP), 0x0006)

	rig.cpu.F = z80FlagZ
	requireZ80Cycles(t, "RET Z taken", rig.stepCycles(), 11)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0006)

	requireZ80Cycles(t, "CALL NZ not taken", rig.stepCycles(), 10)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0009)
	requireZ80EqualU16(t, "WZ", rig.cpu.WZ, 0x1100)

	requireZ80Cycles(t, "RST", rig.stepCycles(), 11)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0038)
	requireZ80EqualU16(t, "return address", rig.bus.Read16(rig.cpu.SP), 0x000A)

	rig.cpu.PC = 0x1001
	requireZ80Cycles(t, "RET NZ not taken", rig.stepCycles(), 5)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x1002)
	requireZ80Cycles(t, "RET", rig.stepCycles(), 10)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x000A)
}

func TestZ80ConditionCodes(t *testing.T) {
	tests := []struct {
		cc   byte
		f    byte
		want bool
	}{
		{0, 0, true}, {0, z80FlagZ, false},
		{1, z80FlagZ, true}, {1, 0, false},
		{2, 0, true}, {2, z80FlagC, false},
		{3, z80FlagC, true}, {3, 0, false},
		{4, 0, true}, {4, z80FlagPV, false},
		{5, z80FlagPV, true}, {5, 0, false},
		{6, 0, true}, {6, z80FlagS, false},
		{7, z80FlagS, true}, {7, 0, false},
	}
	for _, tc := range tests {
		rig := newCPUZ80TestRig()
		// JP cc,0x4000
		rig.resetAndLoad(0x0000, []byte{0xC2 | tc.cc<<3, 0x00, 0x40})
		rig.cpu.F = tc.f
		rig.cpu.Step()
		taken := rig.cpu.PC == 0x4000
		if taken != tc.want {
			t.Fatalf("JP %s with F=%02X: taken=%t, want %t", z80Cond[tc.cc], tc.f, taken, tc.want)
		}
	}
}

func TestZ80PortIO(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0x3E, 0x12, // LD A,0x12
		0xD3, 0x34, // OUT (0x34),A
		0xDB, 0x56, // IN A,(0x56)
		0xED, 0x78, // IN A,(C)
		0xED, 0x71, // OUT (C),0
	})
	rig.bus.io[0x1256] = 0x80
	rig.cpu.SetBC(0x0102)
	rig.bus.io[0x0102] = 0x00

	rig.cpu.Step()
	rig.cpu.Step()
	if len(rig.bus.outs) != 1 || rig.bus.outs[0] != (z80PortWrite{0x1234, 0x12}) {
		t.Fatalf("OUT (n),A wrote %+v", rig.bus.outs)
	}

	rig.cpu.Step()
	requireZ80EqualU8(t, "A", rig.cpu.A, 0x80)

	rig.cpu.F = z80FlagC
	requireZ80Cycles(t, "IN A,(C)", rig.stepCycles(), 12)
	requireZ80EqualU8(t, "A", rig.cpu.A, 0x00)
	requireZ80EqualU8(t, "F", rig.cpu.F, z80FlagZ|z80FlagPV|z80FlagC)

	rig.cpu.Step()
	last := rig.bus.outs[len(rig.bus.outs)-1]
	if last != (z80PortWrite{0x0102, 0x00}) {
		t.Fatalf("OUT (C),0 wrote %+v", last)
	}
}

func TestZ80RefreshRegister(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0x00,       // NOP: +1
		0xCB, 0x00, // RLC B: +2
		0xDD, 0x21, 0x00, 0x00, // LD IX,0: +2
		0xDD, 0xCB, 0x00, 0x06, // RLC (IX+0): +2
		0xED, 0xB0, // LDIR, BC=3: +2 per instruction and +2 per repeat
	})
	rig.cpu.R = 0x80
	rig.cpu.SetBC(3)
	rig.cpu.SetHL(0x1000)
	rig.cpu.SetDE(0x2000)

	rig.cpu.Step()
	requireZ80EqualU8(t, "R", rig.cpu.R, 0x81)
	rig.cpu.Step()
	requireZ80EqualU8(t, "R", rig.cpu.R, 0x83)
	rig.cpu.Step()
	requireZ80EqualU8(t, "R", rig.cpu.R, 0x85)
	rig.cpu.Step()
	requireZ80EqualU8(t, "R", rig.cpu.R, 0x87)
	rig.cpu.Step()
	requireZ80EqualU8(t, "R", rig.cpu.R, 0x87+2+4)

	// bit 7 survives the 7-bit wrap
	rig.resetAndLoad(0x0000, []byte{0x00})
	rig.cpu.R = 0xFF
	rig.cpu.Step()
	requireZ80EqualU8(t, "R", rig.cpu.R, 0x80)
}

func TestZ80HaltRefetches(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0x76, 0x00}) // HALT; NOP

	rig.cpu.Step()
	if !rig.cpu.Halted {
		t.Fatal("CPU not halted")
	}
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0000)

	for range 3 {
		requireZ80Cycles(t, "HALT", rig.stepCycles(), 4)
		requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0000)
	}
	requireZ80EqualU8(t, "R", rig.cpu.R, 4)
}

func TestZ80SixteenBitArithmetic(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0x09,       // ADD HL,BC
		0xED, 0x42, // SBC HL,BC
		0xED, 0x5A, // ADC HL,DE
		0x03, // INC BC
		0x3B, // DEC SP
	})
	rig.cpu.SetHL(0x7FFF)
	rig.cpu.SetBC(0x0001)
	rig.cpu.SetDE(0x8000)
	rig.cpu.F = z80FlagZ | z80FlagS

	requireZ80Cycles(t, "ADD HL,BC", rig.stepCycles(), 11)
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0x8000)
	requireZ80EqualU16(t, "WZ", rig.cpu.WZ, 0x8000)
	if rig.cpu.F&(z80FlagZ|z80FlagS|z80FlagH) != z80FlagZ|z80FlagS|z80FlagH {
		t.Fatalf("ADD HL must keep S/Z and set H, F=%02X", rig.cpu.F)
	}

	requireZ80Cycles(t, "SBC HL,BC", rig.stepCycles(), 15)
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0x7FFF)
	if rig.cpu.F&z80FlagPV == 0 {
		t.Fatalf("SBC 0x8000-1 must overflow, F=%02X", rig.cpu.F)
	}

	rig.cpu.F = 0
	rig.cpu.Step()
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0xFFFF)

	requireZ80Cycles(t, "INC BC", rig.stepCycles(), 6)
	requireZ80EqualU16(t, "BC", rig.cpu.BC(), 0x0002)
	rig.cpu.Step()
	requireZ80EqualU16(t, "SP", rig.cpu.SP, 0xFFFE)
}
