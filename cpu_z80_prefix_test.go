package main

import (
	"bytes"
	"testing"
)

func TestZ80IndexedLoadsAndDisplacement(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xDD, 0x21, 0x00, 0x50, // LD IX,0x5000
		0xDD, 0x36, 0x05, 0x42, // LD (IX+5),0x42
		0xDD, 0x7E, 0x05, // LD A,(IX+5)
		0xFD, 0x21, 0x00, 0x60, // LD IY,0x6000
		0xFD, 0x46, 0xFF, // LD B,(IY-1)
		0x21, 0x34, 0x12, // LD HL,0x1234
	})
	rig.bus.mem[0x5FFF] = 0x99

	for i := 0; i < 6; i++ {
		rig.cpu.Step()
	}
	requireZ80EqualU16(t, "IX", rig.cpu.IX, 0x5000)
	requireZ80EqualU8(t, "(IX+5)", rig.bus.mem[0x5005], 0x42)
	requireZ80EqualU8(t, "A", rig.cpu.A, 0x42)
	requireZ80EqualU16(t, "IY", rig.cpu.IY, 0x6000)
	requireZ80EqualU8(t, "B", rig.cpu.B, 0x99)
	// the prefix does not outlive its instruction
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0x1234)
	requireZ80EqualU16(t, "IX after LD HL", rig.cpu.IX, 0x5000)
}

func TestZ80IndexHalves(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xDD, 0x26, 0x12, // LD IXH,0x12
		0xDD, 0x2E, 0x34, // LD IXL,0x34
		0xDD, 0x7C, // LD A,IXH
		0xDD, 0x85, // ADD A,IXL
		0xFD, 0x65, // LD IYH,IYL
		0xDD, 0x66, 0x00, // LD H,(IX+0)
	})
	rig.cpu.SetHL(0xAAAA)
	rig.cpu.IY = 0x00CD
	rig.bus.mem[0x1234] = 0x77

	for i := 0; i < 5; i++ {
		rig.cpu.Step()
	}
	requireZ80EqualU16(t, "IX", rig.cpu.IX, 0x1234)
	requireZ80EqualU8(t, "A", rig.cpu.A, 0x46)
	requireZ80EqualU16(t, "IY", rig.cpu.IY, 0xCDCD)
	requireZ80EqualU16(t, "HL", rig.cpu.HL(), 0xAAAA)

	// with a displacement, H means H and not IXH
	rig.cpu.Step()
	requireZ80EqualU8(t, "H", rig.cpu.H, 0x77)
	requireZ80EqualU16(t, "IX", rig.cpu.IX, 0x1234)
}

func TestZ80AddIndexToItself(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xDD, 0x29}) // ADD IX,IX
	rig.cpu.IX = 0x8001
	rig.cpu.F = 0

	rig.cpu.Step()
	requireZ80EqualU16(t, "IX", rig.cpu.IX, 0x0002)
	if rig.cpu.F&z80FlagC == 0 {
		t.Fatal("carry not set")
	}
}

func TestZ80IndexedBitOpsCopyToRegister(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xDD, 0xCB, 0x02, 0x00, // RLC (IX+2),B
		0xFD, 0xCB, 0xFE, 0xC7, // SET 0,(IY-2),A
	})
	rig.cpu.IX = 0x5000
	rig.cpu.IY = 0x6002
	rig.cpu.A = 0x80
	rig.bus.mem[0x5002] = 0x81
	rig.bus.mem[0x6000] = 0x10

	rig.cpu.Step()
	requireZ80EqualU8(t, "(IX+2)", rig.bus.mem[0x5002], 0x03)
	requireZ80EqualU8(t, "B", rig.cpu.B, 0x03)
	if rig.cpu.F&z80FlagC == 0 {
		t.Fatal("carry not set by RLC")
	}
	// DD and CB are opcode fetches, the displacement and final byte are not
	requireZ80EqualU8(t, "R", rig.cpu.R, 2)

	rig.cpu.Step()
	requireZ80EqualU8(t, "(IY-2)", rig.bus.mem[0x6000], 0x11)
	requireZ80EqualU8(t, "A", rig.cpu.A, 0x11)
}

func TestZ80BitUndocumentedFlags(t *testing.T) {
	t.Run("indexed takes X and Y from the address high byte", func(t *testing.T) {
		rig := newCPUZ80TestRig()
		rig.resetAndLoad(0x0000, []byte{0xFD, 0xCB, 0x00, 0x5E}) // BIT 3,(IY+0)
		rig.cpu.IY = 0x2800
		rig.cpu.F = z80FlagC
		rig.bus.mem[0x2800] = 0x08

		rig.cpu.Step()
		requireZ80EqualU8(t, "F", rig.cpu.F, z80FlagH|z80FlagY|z80FlagX|z80FlagC)
	})

	t.Run("(HL) takes X and Y from WZ", func(t *testing.T) {
		rig := newCPUZ80TestRig()
		rig.resetAndLoad(0x0000, []byte{0xCB, 0x46}) // BIT 0,(HL)
		rig.cpu.SetHL(0x4000)
		rig.cpu.WZ = 0x28FF
		rig.cpu.F = 0

		rig.cpu.Step()
		requireZ80EqualU8(t, "F", rig.cpu.F, z80FlagZ|z80FlagPV|z80FlagH|z80FlagY|z80FlagX)
	})

	t.Run("register takes X and Y from the operand", func(t *testing.T) {
		rig := newCPUZ80TestRig()
		rig.resetAndLoad(0x0000, []byte{0xCB, 0x7F}) // BIT 7,A
		rig.cpu.A = 0xA8
		rig.cpu.F = 0

		rig.cpu.Step()
		requireZ80EqualU8(t, "F", rig.cpu.F, z80FlagS|z80FlagH|z80FlagY|z80FlagX)
	})
}

type z80RegisterFile struct {
	AF, BC, DE, HL     uint16
	AF2, BC2, DE2, HL2 uint16
	IX, IY, SP         uint16
	I                  byte
	IFF1, IFF2         bool
	IM                 byte
}

func captureRegisterFile(cpu *CPU_Z80) z80RegisterFile {
	return z80RegisterFile{
		AF: cpu.AF(), BC: cpu.BC(), DE: cpu.DE(), HL: cpu.HL(),
		AF2: cpu.AF2(), BC2: cpu.BC2(), DE2: cpu.DE2(), HL2: cpu.HL2(),
		IX: cpu.IX, IY: cpu.IY, SP: cpu.SP,
		I: cpu.I, IFF1: cpu.IFF1, IFF2: cpu.IFF2, IM: cpu.IM,
	}
}

func TestZ80InvalidOpcodes(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"ED 00", []byte{0xED, 0x00}},
		{"ED 80", []byte{0xED, 0x80}},
		{"ED FF", []byte{0xED, 0xFF}},
		{"DD 00", []byte{0xDD, 0x00}},
		{"FD EB", []byte{0xFD, 0xEB}},
		{"DD ED", []byte{0xDD, 0xED}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rig := newCPUZ80TestRig()
			// state built by earlier instructions, then the bad sequence
			program := []byte{
				0x01, 0x34, 0x12,       // LD BC,0x1234
				0x11, 0x78, 0x56,       // LD DE,0x5678
				0x21, 0xBC, 0x9A,       // LD HL,0x9ABC
				0xDD, 0x21, 0x11, 0x11, // LD IX,0x1111
				0xFD, 0x21, 0x22, 0x22, // LD IY,0x2222
				0x31, 0x00, 0x80,       // LD SP,0x8000
				0x3E, 0x7F,             // LD A,0x7F
				0xC6, 0x01,             // ADD A,1
				0xD9,                   // EXX
				0x08,                   // EX AF,AF'
				0xED, 0x5E,             // IM 2
			}
			faultPC := uint16(0x0100 + len(program))
			program = append(program, tc.code...)
			program = append(program, 0x3E, 0x5A) // LD A,0x5A
			rig.resetAndLoad(0x0100, program)
			for rig.cpu.PC != faultPC {
				rig.cpu.Step()
			}
			before := captureRegisterFile(rig.cpu)

			var gotPC uint16
			var gotCode []byte
			rig.cpu.OnInvalidOpcode = func(pc uint16, code []byte) {
				gotPC = pc
				gotCode = append([]byte{}, code...)
			}

			requireZ80Cycles(t, tc.name, rig.stepCycles(), 8)
			if !rig.cpu.Invalid {
				t.Fatal("Invalid not set")
			}
			requireZ80EqualU16(t, "PC", rig.cpu.PC, faultPC+2)
			requireZ80EqualU16(t, "callback pc", gotPC, faultPC)
			if !bytes.Equal(gotCode, tc.code) {
				t.Fatalf("callback code = % X, want % X", gotCode, tc.code)
			}
			if after := captureRegisterFile(rig.cpu); after != before {
				t.Fatalf("registers changed by invalid opcode:\n got %+v\nwant %+v", after, before)
			}

			// execution carries on with the next instruction
			rig.cpu.Step()
			if rig.cpu.Invalid {
				t.Fatal("Invalid still set after a valid instruction")
			}
			requireZ80EqualU8(t, "A", rig.cpu.A, 0x5A)
		})
	}
}

func TestZ80EDNoOps(t *testing.T) {
	for _, op := range []byte{0x77, 0x7F} {
		rig := newCPUZ80TestRig()
		rig.resetAndLoad(0x0000, []byte{0xED, op})
		rig.cpu.SetAF(0x12D7)
		rig.cpu.SetHL(0x4000)
		before := captureRegisterFile(rig.cpu)

		requireZ80Cycles(t, "ED NOP", rig.stepCycles(), 8)
		if rig.cpu.Invalid {
			t.Fatalf("ED %02X reported invalid", op)
		}
		requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0002)
		requireZ80EqualU8(t, "R", rig.cpu.R, 2)
		if after := captureRegisterFile(rig.cpu); after != before {
			t.Fatalf("ED %02X changed registers: %+v", op, after)
		}
	}
}

func TestZ80UndocumentedEDForms(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xED, 0x70, // IN F,(C)
		0xED, 0x71, // OUT (C),0
		0xED, 0x4C, // NEG mirror
		0xED, 0x6E, // IM 0 mirror
	})
	rig.cpu.SetBC(0x1234)
	rig.bus.io[0x1234] = 0x00
	rig.cpu.A = 0x01
	rig.cpu.IM = 2

	rig.cpu.Step()
	if rig.cpu.F&(z80FlagZ|z80FlagPV) != z80FlagZ|z80FlagPV {
		t.Fatalf("IN F,(C) flags = %02X, want Z and P/V", rig.cpu.F)
	}
	rig.cpu.Step()
	if len(rig.bus.outs) != 1 || rig.bus.outs[0] != (z80PortWrite{0x1234, 0x00}) {
		t.Fatalf("OUT (C),0 wrote %+v", rig.bus.outs)
	}
	rig.cpu.Step()
	requireZ80EqualU8(t, "A", rig.cpu.A, 0xFF)
	rig.cpu.Step()
	requireZ80EqualU8(t, "IM", rig.cpu.IM, 0)
	if rig.cpu.Invalid {
		t.Fatal("undocumented ED form flagged invalid")
	}
}
