// debug_disasm_z80.go - Z80 disassembler for tracing and diagnostics

package main

import (
	"fmt"
	"strings"
)

// DisassembledLine is one decoded instruction.
type DisassembledLine struct {
	Address      uint16
	HexBytes     string
	Mnemonic     string
	Size         int
	IsBranch     bool
	BranchTarget uint16
}

func (l DisassembledLine) String() string {
	return fmt.Sprintf("%04X  %-11s  %s", l.Address, l.HexBytes, l.Mnemonic)
}

// disassembleZ80 decodes count instructions starting at addr. Reads go
// through mem, so unmapped pages show up as 0xFF.
func disassembleZ80(mem Z80Memory, addr uint16, count int) []DisassembledLine {
	lines := make([]DisassembledLine, 0, count)
	for range count {
		var data [4]byte // max Z80 instruction is 4 bytes
		for i := range data {
			data[i] = mem.Read(addr + uint16(i))
		}
		size, mnemonic := decodeZ80Instruction(data[:], addr)

		var hexParts []string
		for j := 0; j < size; j++ {
			hexParts = append(hexParts, fmt.Sprintf("%02X", data[j]))
		}
		line := DisassembledLine{
			Address:  addr,
			HexBytes: strings.Join(hexParts, " "),
			Mnemonic: mnemonic,
			Size:     size,
		}
		line.IsBranch, line.BranchTarget = z80BranchTarget(data[:], addr)

		lines = append(lines, line)
		addr += uint16(size)
	}
	return lines
}

// z80BranchTarget reports direct jumps and calls with a static target.
func z80BranchTarget(data []byte, pc uint16) (bool, uint16) {
	op := data[0]
	switch {
	case op == 0xC3 || op == 0xCD || op&0xC7 == 0xC2 || op&0xC7 == 0xC4: // JP/CALL [cc,]nn
		return true, uint16(data[1]) | uint16(data[2])<<8
	case op == 0x10 || op == 0x18 || op&0xE7 == 0x20: // DJNZ, JR [cc,]e
		return true, pc + 2 + uint16(int8(data[1]))
	case op&0xC7 == 0xC7: // RST
		return true, uint16(op & 0x38)
	}
	return false, 0
}

var z80Reg8 = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
var z80Reg16 = [4]string{"BC", "DE", "HL", "SP"}
var z80Cond = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
var z80ALU = [8]string{"ADD A,", "ADC A,", "SUB", "SBC A,", "AND", "XOR", "OR", "CP"}
var z80CBOps = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}
var z80Accum = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}

// decodeZ80Instruction returns the length and mnemonic of the instruction
// in data, which must hold at least 4 bytes. Byte sequences the CPU treats
// as invalid come back as db directives of the length the CPU consumes.
func decodeZ80Instruction(data []byte, pc uint16) (int, string) {
	switch data[0] {
	case 0xCB:
		return 2, decodeZ80CB(data[1], z80Reg8[data[1]&7])
	case 0xED:
		return decodeZ80ED(data[1:])
	case 0xDD:
		return decodeZ80Index(data[1:], pc, "IX")
	case 0xFD:
		return decodeZ80Index(data[1:], pc, "IY")
	}
	return decodeZ80Base(data, pc, z80Reg8, "HL")
}

func z80Word(lo, hi byte) uint16 {
	return uint16(lo) | uint16(hi)<<8
}

// decodeZ80Base decodes an unprefixed opcode. regs and hl name register
// codes 0-7 and the HL pair, so the index decoder can reuse it.
func decodeZ80Base(data []byte, pc uint16, regs [8]string, hl string) (int, string) {
	op := data[0]
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1
	rp := [4]string{"BC", "DE", hl, "SP"}
	rp2 := [4]string{"BC", "DE", hl, "AF"}

	switch x {
	case 1:
		if op == 0x76 {
			return 1, "HALT"
		}
		return 1, fmt.Sprintf("LD %s, %s", regs[y], regs[z])
	case 2:
		return 1, fmt.Sprintf("%s %s", z80ALU[y], regs[z])
	}

	if x == 0 {
		switch z {
		case 0:
			switch y {
			case 0:
				return 1, "NOP"
			case 1:
				return 1, "EX AF, AF'"
			case 2:
				return 2, fmt.Sprintf("DJNZ $%04X", pc+2+uint16(int8(data[1])))
			case 3:
				return 2, fmt.Sprintf("JR $%04X", pc+2+uint16(int8(data[1])))
			default:
				return 2, fmt.Sprintf("JR %s, $%04X", z80Cond[y-4], pc+2+uint16(int8(data[1])))
			}
		case 1:
			if q == 0 {
				return 3, fmt.Sprintf("LD %s, $%04X", rp[p], z80Word(data[1], data[2]))
			}
			return 1, fmt.Sprintf("ADD %s, %s", hl, rp[p])
		case 2:
			nn := z80Word(data[1], data[2])
			switch y {
			case 0:
				return 1, "LD (BC), A"
			case 1:
				return 1, "LD A, (BC)"
			case 2:
				return 1, "LD (DE), A"
			case 3:
				return 1, "LD A, (DE)"
			case 4:
				return 3, fmt.Sprintf("LD ($%04X), %s", nn, hl)
			case 5:
				return 3, fmt.Sprintf("LD %s, ($%04X)", hl, nn)
			case 6:
				return 3, fmt.Sprintf("LD ($%04X), A", nn)
			default:
				return 3, fmt.Sprintf("LD A, ($%04X)", nn)
			}
		case 3:
			if q == 0 {
				return 1, "INC " + rp[p]
			}
			return 1, "DEC " + rp[p]
		case 4:
			return 1, "INC " + regs[y]
		case 5:
			return 1, "DEC " + regs[y]
		case 6:
			return 2, fmt.Sprintf("LD %s, $%02X", regs[y], data[1])
		default:
			return 1, z80Accum[y]
		}
	}

	// x == 3
	switch z {
	case 0:
		return 1, "RET " + z80Cond[y]
	case 1:
		if q == 0 {
			return 1, "POP " + rp2[p]
		}
		switch p {
		case 0:
			return 1, "RET"
		case 1:
			return 1, "EXX"
		case 2:
			return 1, fmt.Sprintf("JP (%s)", hl)
		default:
			return 1, "LD SP, " + hl
		}
	case 2:
		return 3, fmt.Sprintf("JP %s, $%04X", z80Cond[y], z80Word(data[1], data[2]))
	case 3:
		switch y {
		case 0:
			return 3, fmt.Sprintf("JP $%04X", z80Word(data[1], data[2]))
		case 2:
			return 2, fmt.Sprintf("OUT ($%02X), A", data[1])
		case 3:
			return 2, fmt.Sprintf("IN A, ($%02X)", data[1])
		case 4:
			return 1, fmt.Sprintf("EX (SP), %s", hl)
		case 5:
			return 1, "EX DE, HL"
		case 6:
			return 1, "DI"
		case 7:
			return 1, "EI"
		}
	case 4:
		return 3, fmt.Sprintf("CALL %s, $%04X", z80Cond[y], z80Word(data[1], data[2]))
	case 5:
		if q == 0 {
			return 1, "PUSH " + rp2[p]
		}
		if p == 0 {
			return 3, fmt.Sprintf("CALL $%04X", z80Word(data[1], data[2]))
		}
	case 6:
		return 2, fmt.Sprintf("%s $%02X", z80ALU[y], data[1])
	case 7:
		return 1, fmt.Sprintf("RST $%02X", y*8)
	}
	// prefixes are handled by the caller
	return 1, fmt.Sprintf("db $%02X", op)
}

// decodeZ80CB decodes the second byte of a CB or DDCB/FDCB instruction
// against the operand name.
func decodeZ80CB(op byte, operand string) string {
	bit := (op >> 3) & 7
	switch op >> 6 {
	case 0:
		return fmt.Sprintf("%s %s", z80CBOps[bit], operand)
	case 1:
		return fmt.Sprintf("BIT %d, %s", bit, operand)
	case 2:
		return fmt.Sprintf("RES %d, %s", bit, operand)
	}
	return fmt.Sprintf("SET %d, %s", bit, operand)
}

var z80BlockOps = [4][4]string{
	{"LDI", "CPI", "INI", "OUTI"},
	{"LDD", "CPD", "IND", "OUTD"},
	{"LDIR", "CPIR", "INIR", "OTIR"},
	{"LDDR", "CPDR", "INDR", "OTDR"},
}

var z80IMModes = [8]string{"0", "0", "1", "2", "0", "0", "1", "2"}

func decodeZ80ED(data []byte) (int, string) {
	op := data[0]
	y, z := (op>>3)&7, op&7
	p, q := y>>1, y&1

	if op >= 0xA0 && op <= 0xBF && z < 4 && y >= 4 {
		return 2, z80BlockOps[y-4][z]
	}
	if op < 0x40 || op > 0x7F {
		return 2, fmt.Sprintf("db $ED, $%02X", op)
	}

	switch z {
	case 0:
		if y == 6 {
			return 2, "IN F, (C)"
		}
		return 2, fmt.Sprintf("IN %s, (C)", z80Reg8[y])
	case 1:
		if y == 6 {
			return 2, "OUT (C), 0"
		}
		return 2, fmt.Sprintf("OUT (C), %s", z80Reg8[y])
	case 2:
		if q == 0 {
			return 2, "SBC HL, " + z80Reg16[p]
		}
		return 2, "ADC HL, " + z80Reg16[p]
	case 3:
		nn := z80Word(data[1], data[2])
		if q == 0 {
			return 4, fmt.Sprintf("LD ($%04X), %s", nn, z80Reg16[p])
		}
		return 4, fmt.Sprintf("LD %s, ($%04X)", z80Reg16[p], nn)
	case 4:
		return 2, "NEG"
	case 5:
		if y == 1 {
			return 2, "RETI"
		}
		return 2, "RETN"
	case 6:
		return 2, "IM " + z80IMModes[y]
	}

	switch y {
	case 0:
		return 2, "LD I, A"
	case 1:
		return 2, "LD R, A"
	case 2:
		return 2, "LD A, I"
	case 3:
		return 2, "LD A, R"
	case 4:
		return 2, "RRD"
	case 5:
		return 2, "RLD"
	}
	return 2, "NOP"
}

func z80IndexOperand(idx string, d byte) string {
	return fmt.Sprintf("(%s%+d)", idx, int8(d))
}

// decodeZ80Index decodes the bytes after a DD or FD prefix.
func decodeZ80Index(data []byte, pc uint16, idx string) (int, string) {
	op := data[0]
	prefix := "$DD"
	if idx == "IY" {
		prefix = "$FD"
	}
	halves := z80Reg8
	halves[4], halves[5] = idx+"H", idx+"L"

	if op == 0xCB {
		operand := z80IndexOperand(idx, data[1])
		sub := data[2]
		text := decodeZ80CB(sub, operand)
		// undocumented forms also copy the result into a register
		if r := sub & 7; r != 6 && sub>>6 != 1 {
			text = fmt.Sprintf("%s, %s", text, z80Reg8[r])
		}
		return 4, text
	}

	x, y, z := op>>6, (op>>3)&7, op&7
	switch {
	case op == 0x34 || op == 0x35:
		return 3, fmt.Sprintf("%s %s", [2]string{"INC", "DEC"}[op&1], z80IndexOperand(idx, data[1]))
	case op == 0x36:
		return 4, fmt.Sprintf("LD %s, $%02X", z80IndexOperand(idx, data[1]), data[2])
	case x == 1 && op != 0x76 && (y == 6 || z == 6):
		if z == 6 {
			return 3, fmt.Sprintf("LD %s, %s", z80Reg8[y], z80IndexOperand(idx, data[1]))
		}
		return 3, fmt.Sprintf("LD %s, %s", z80IndexOperand(idx, data[1]), z80Reg8[z])
	case x == 2 && z == 6:
		return 3, fmt.Sprintf("%s %s", z80ALU[y], z80IndexOperand(idx, data[1]))
	}

	if !z80IndexAccepts(op) {
		return 2, fmt.Sprintf("db %s, $%02X", prefix, op)
	}
	size, text := decodeZ80Base(data, pc+1, halves, idx)
	return size + 1, text
}

// z80IndexAccepts reports whether op has an indexed meaning after DD/FD,
// not counting the (IX+d) forms decoded separately.
func z80IndexAccepts(op byte) bool {
	switch op {
	case 0x09, 0x19, 0x29, 0x39, 0x21, 0x22, 0x2A, 0x23, 0x2B,
		0x24, 0x25, 0x26, 0x2C, 0x2D, 0x2E,
		0xE1, 0xE3, 0xE5, 0xE9, 0xF9:
		return true
	}
	x, y, z := op>>6, (op>>3)&7, op&7
	if x == 1 && op != 0x76 {
		return y == 4 || y == 5 || z == 4 || z == 5
	}
	if x == 2 {
		return z == 4 || z == 5
	}
	return false
}
