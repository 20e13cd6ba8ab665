// cpu_z80_ops.go - Z80 unprefixed opcode table

package main

type aluOp byte

const (
	aluAdd aluOp = iota
	aluAdc
	aluSub
	aluSbc
	aluAnd
	aluXor
	aluOr
	aluCp
)

func (c *CPU_Z80) alu(op aluOp, value byte) {
	switch op {
	case aluAdd:
		c.A, c.F = add8(c.A, value)
	case aluAdc:
		c.A, c.F = adc8(c.A, value, c.F&z80FlagC)
	case aluSub:
		c.A, c.F = sub8(c.A, value)
	case aluSbc:
		c.A, c.F = sbc8(c.A, value, c.F&z80FlagC)
	case aluAnd:
		c.A, c.F = and8(c.A, value)
	case aluXor:
		c.A, c.F = xor8(c.A, value)
	case aluOr:
		c.A, c.F = or8(c.A, value)
	case aluCp:
		c.F = cp8(c.A, value)
	}
}

// condition evaluates cc in opcode encoding: NZ Z NC C PO PE P M.
func (c *CPU_Z80) condition(cc byte) bool {
	switch cc & 0x07 {
	case 0:
		return c.F&z80FlagZ == 0
	case 1:
		return c.F&z80FlagZ != 0
	case 2:
		return c.F&z80FlagC == 0
	case 3:
		return c.F&z80FlagC != 0
	case 4:
		return c.F&z80FlagPV == 0
	case 5:
		return c.F&z80FlagPV != 0
	case 6:
		return c.F&z80FlagS == 0
	default:
		return c.F&z80FlagS != 0
	}
}

// rp reads a register pair in BC DE HL SP order.
func (c *CPU_Z80) rp(p byte) uint16 {
	switch p & 0x03 {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.HL()
	default:
		return c.SP
	}
}

func (c *CPU_Z80) setRP(p byte, value uint16) {
	switch p & 0x03 {
	case 0:
		c.SetBC(value)
	case 1:
		c.SetDE(value)
	case 2:
		c.SetHL(value)
	default:
		c.SP = value
	}
}

// rp2 is the PUSH/POP ordering, with AF in place of SP.
func (c *CPU_Z80) rp2(p byte) uint16 {
	if p&0x03 == 3 {
		return c.AF()
	}
	return c.rp(p)
}

func (c *CPU_Z80) setRP2(p byte, value uint16) {
	if p&0x03 == 3 {
		c.SetAF(value)
		return
	}
	c.setRP(p, value)
}

func (c *CPU_Z80) initBaseOps() {
	c.baseOps[0x00] = func(cpu *CPU_Z80) { cpu.tick(4) }
	c.baseOps[0x76] = (*CPU_Z80).opHALT

	// 8-bit loads
	for opcode := 0x40; opcode <= 0x7F; opcode++ {
		if opcode == 0x76 {
			continue
		}
		dest := byte(opcode>>3) & 0x07
		src := byte(opcode) & 0x07
		switch {
		case src == 6:
			c.baseOps[opcode] = func(cpu *CPU_Z80) {
				*cpu.regs8[dest] = cpu.read(cpu.HL())
				cpu.tick(7)
			}
		case dest == 6:
			c.baseOps[opcode] = func(cpu *CPU_Z80) {
				cpu.write(cpu.HL(), *cpu.regs8[src])
				cpu.tick(7)
			}
		default:
			c.baseOps[opcode] = func(cpu *CPU_Z80) {
				*cpu.regs8[dest] = *cpu.regs8[src]
				cpu.tick(4)
			}
		}
	}
	for reg := byte(0); reg < 8; reg++ {
		dest := reg
		opcode := 0x06 | dest<<3
		if dest == 6 {
			c.baseOps[opcode] = func(cpu *CPU_Z80) {
				value := cpu.fetchByte()
				cpu.write(cpu.HL(), value)
				cpu.tick(10)
			}
			continue
		}
		c.baseOps[opcode] = func(cpu *CPU_Z80) {
			*cpu.regs8[dest] = cpu.fetchByte()
			cpu.tick(7)
		}
	}

	// 8-bit arithmetic and logic
	for opcode := 0x80; opcode <= 0xBF; opcode++ {
		op := aluOp(opcode>>3) & 0x07
		src := byte(opcode) & 0x07
		if src == 6 {
			c.baseOps[opcode] = func(cpu *CPU_Z80) {
				cpu.alu(op, cpu.read(cpu.HL()))
				cpu.tick(7)
			}
			continue
		}
		c.baseOps[opcode] = func(cpu *CPU_Z80) {
			cpu.alu(op, *cpu.regs8[src])
			cpu.tick(4)
		}
	}
	for i := byte(0); i < 8; i++ {
		op := aluOp(i)
		c.baseOps[0xC6|i<<3] = func(cpu *CPU_Z80) {
			cpu.alu(op, cpu.fetchByte())
			cpu.tick(7)
		}
	}

	for reg := byte(0); reg < 8; reg++ {
		r := reg
		if r == 6 {
			c.baseOps[0x34] = func(cpu *CPU_Z80) {
				addr := cpu.HL()
				var value byte
				value, cpu.F = inc8(cpu.read(addr), cpu.F)
				cpu.write(addr, value)
				cpu.tick(11)
			}
			c.baseOps[0x35] = func(cpu *CPU_Z80) {
				addr := cpu.HL()
				var value byte
				value, cpu.F = dec8(cpu.read(addr), cpu.F)
				cpu.write(addr, value)
				cpu.tick(11)
			}
			continue
		}
		c.baseOps[0x04|r<<3] = func(cpu *CPU_Z80) {
			*cpu.regs8[r], cpu.F = inc8(*cpu.regs8[r], cpu.F)
			cpu.tick(4)
		}
		c.baseOps[0x05|r<<3] = func(cpu *CPU_Z80) {
			*cpu.regs8[r], cpu.F = dec8(*cpu.regs8[r], cpu.F)
			cpu.tick(4)
		}
	}

	c.baseOps[0x07] = func(cpu *CPU_Z80) { cpu.A, cpu.F = rlc8(cpu.A, cpu.F, true); cpu.tick(4) }
	c.baseOps[0x0F] = func(cpu *CPU_Z80) { cpu.A, cpu.F = rrc8(cpu.A, cpu.F, true); cpu.tick(4) }
	c.baseOps[0x17] = func(cpu *CPU_Z80) { cpu.A, cpu.F = rl8(cpu.A, cpu.F, true); cpu.tick(4) }
	c.baseOps[0x1F] = func(cpu *CPU_Z80) { cpu.A, cpu.F = rr8(cpu.A, cpu.F, true); cpu.tick(4) }
	c.baseOps[0x27] = func(cpu *CPU_Z80) { cpu.A, cpu.F = daa(cpu.A, cpu.F); cpu.tick(4) }
	c.baseOps[0x2F] = func(cpu *CPU_Z80) { cpu.A, cpu.F = cpl8(cpu.A, cpu.F); cpu.tick(4) }
	c.baseOps[0x37] = func(cpu *CPU_Z80) { cpu.F = scf8(cpu.A, cpu.F); cpu.tick(4) }
	c.baseOps[0x3F] = func(cpu *CPU_Z80) { cpu.F = ccf8(cpu.A, cpu.F); cpu.tick(4) }

	// 16-bit loads and arithmetic
	for p := byte(0); p < 4; p++ {
		pair := p
		c.baseOps[0x01|pair<<4] = func(cpu *CPU_Z80) {
			cpu.setRP(pair, cpu.fetchWord())
			cpu.tick(10)
		}
		c.baseOps[0x03|pair<<4] = func(cpu *CPU_Z80) {
			cpu.setRP(pair, cpu.rp(pair)+1)
			cpu.tick(6)
		}
		c.baseOps[0x0B|pair<<4] = func(cpu *CPU_Z80) {
			cpu.setRP(pair, cpu.rp(pair)-1)
			cpu.tick(6)
		}
		c.baseOps[0x09|pair<<4] = func(cpu *CPU_Z80) {
			hl := cpu.HL()
			cpu.WZ = hl + 1
			var sum uint16
			sum, cpu.F = add16(hl, cpu.rp(pair), cpu.F)
			cpu.SetHL(sum)
			cpu.tick(11)
		}
		c.baseOps[0xC5|pair<<4] = func(cpu *CPU_Z80) {
			cpu.pushWord(cpu.rp2(pair))
			cpu.tick(11)
		}
		c.baseOps[0xC1|pair<<4] = func(cpu *CPU_Z80) {
			cpu.setRP2(pair, cpu.popWord())
			cpu.tick(10)
		}
	}

	c.baseOps[0x02] = func(cpu *CPU_Z80) { cpu.opStoreAIndirect(cpu.BC()) }
	c.baseOps[0x12] = func(cpu *CPU_Z80) { cpu.opStoreAIndirect(cpu.DE()) }
	c.baseOps[0x0A] = func(cpu *CPU_Z80) { cpu.opLoadAIndirect(cpu.BC()) }
	c.baseOps[0x1A] = func(cpu *CPU_Z80) { cpu.opLoadAIndirect(cpu.DE()) }
	c.baseOps[0x22] = func(cpu *CPU_Z80) {
		addr := cpu.fetchWord()
		cpu.mem.Write16(addr, cpu.HL())
		cpu.WZ = addr + 1
		cpu.tick(16)
	}
	c.baseOps[0x2A] = func(cpu *CPU_Z80) {
		addr := cpu.fetchWord()
		cpu.SetHL(cpu.mem.Read16(addr))
		cpu.WZ = addr + 1
		cpu.tick(16)
	}
	c.baseOps[0x32] = func(cpu *CPU_Z80) {
		addr := cpu.fetchWord()
		cpu.write(addr, cpu.A)
		cpu.WZ = uint16(cpu.A)<<8 | (addr+1)&0xFF
		cpu.tick(13)
	}
	c.baseOps[0x3A] = func(cpu *CPU_Z80) {
		addr := cpu.fetchWord()
		cpu.A = cpu.read(addr)
		cpu.WZ = addr + 1
		cpu.tick(13)
	}
	c.baseOps[0xF9] = func(cpu *CPU_Z80) { cpu.SP = cpu.HL(); cpu.tick(6) }

	// exchanges
	c.baseOps[0x08] = func(cpu *CPU_Z80) { cpu.ExAF(); cpu.tick(4) }
	c.baseOps[0xD9] = func(cpu *CPU_Z80) { cpu.Exx(); cpu.tick(4) }
	c.baseOps[0xEB] = func(cpu *CPU_Z80) {
		cpu.D, cpu.E, cpu.H, cpu.L = cpu.H, cpu.L, cpu.D, cpu.E
		cpu.tick(4)
	}
	c.baseOps[0xE3] = func(cpu *CPU_Z80) {
		value := cpu.mem.Read16(cpu.SP)
		cpu.mem.Write16(cpu.SP, cpu.HL())
		cpu.SetHL(value)
		cpu.WZ = value
		cpu.tick(19)
	}

	// control flow
	c.baseOps[0xC3] = func(cpu *CPU_Z80) {
		cpu.PC = cpu.fetchWord()
		cpu.WZ = cpu.PC
		cpu.tick(10)
	}
	c.baseOps[0xE9] = func(cpu *CPU_Z80) { cpu.PC = cpu.HL(); cpu.tick(4) }
	c.baseOps[0x18] = func(cpu *CPU_Z80) { cpu.jumpRelative(true) }
	c.baseOps[0x10] = func(cpu *CPU_Z80) {
		cpu.B--
		if cpu.B != 0 {
			cpu.jumpRelative(true)
			cpu.tick(1)
			return
		}
		cpu.jumpRelative(false)
		cpu.tick(1)
	}
	c.baseOps[0xCD] = func(cpu *CPU_Z80) { cpu.callAbsolute(true) }
	c.baseOps[0xC9] = func(cpu *CPU_Z80) {
		cpu.PC = cpu.popWord()
		cpu.WZ = cpu.PC
		cpu.tick(10)
	}
	for cc := byte(0); cc < 8; cc++ {
		cond := cc
		c.baseOps[0xC2|cond<<3] = func(cpu *CPU_Z80) {
			addr := cpu.fetchWord()
			cpu.WZ = addr
			if cpu.condition(cond) {
				cpu.PC = addr
			}
			cpu.tick(10)
		}
		c.baseOps[0xC4|cond<<3] = func(cpu *CPU_Z80) { cpu.callAbsolute(cpu.condition(cond)) }
		c.baseOps[0xC0|cond<<3] = func(cpu *CPU_Z80) {
			if cpu.condition(cond) {
				cpu.PC = cpu.popWord()
				cpu.WZ = cpu.PC
				cpu.tick(11)
				return
			}
			cpu.tick(5)
		}
		c.baseOps[0xC7|cond<<3] = func(cpu *CPU_Z80) {
			cpu.pushWord(cpu.PC)
			cpu.PC = uint16(cond) << 3
			cpu.WZ = cpu.PC
			cpu.tick(11)
		}
	}
	for cc := byte(0); cc < 4; cc++ {
		cond := cc
		c.baseOps[0x20|cond<<3] = func(cpu *CPU_Z80) { cpu.jumpRelative(cpu.condition(cond)) }
	}

	// I/O
	c.baseOps[0xD3] = func(cpu *CPU_Z80) {
		n := cpu.fetchByte()
		cpu.out(uint16(cpu.A)<<8|uint16(n), cpu.A)
		cpu.WZ = uint16(cpu.A)<<8 | uint16(n+1)
		cpu.tick(11)
	}
	c.baseOps[0xDB] = func(cpu *CPU_Z80) {
		port := uint16(cpu.A)<<8 | uint16(cpu.fetchByte())
		cpu.A = cpu.in(port)
		cpu.WZ = port + 1
		cpu.tick(11)
	}

	c.baseOps[0xF3] = func(cpu *CPU_Z80) {
		cpu.IFF1 = false
		cpu.IFF2 = false
		cpu.iffDelay = 0
		cpu.tick(4)
	}
	c.baseOps[0xFB] = func(cpu *CPU_Z80) {
		// finishInstruction of this EI takes it to 1, the next one to 0
		cpu.iffDelay = 2
		cpu.tick(4)
	}

	c.baseOps[0xCB] = (*CPU_Z80).opCBPrefix
	c.baseOps[0xED] = (*CPU_Z80).opEDPrefix
	c.baseOps[0xDD] = (*CPU_Z80).opDDPrefix
	c.baseOps[0xFD] = (*CPU_Z80).opFDPrefix
}

// opHALT parks PC on the HALT opcode so every Step fetches it again.
func (c *CPU_Z80) opHALT() {
	c.Halted = true
	c.PC--
	c.tick(4)
}

func (c *CPU_Z80) opStoreAIndirect(addr uint16) {
	c.write(addr, c.A)
	c.WZ = uint16(c.A)<<8 | (addr+1)&0xFF
	c.tick(7)
}

func (c *CPU_Z80) opLoadAIndirect(addr uint16) {
	c.A = c.read(addr)
	c.WZ = addr + 1
	c.tick(7)
}

// jumpRelative consumes the displacement and branches when taken.
// 12 cycles taken, 7 not.
func (c *CPU_Z80) jumpRelative(taken bool) {
	disp := c.fetchDisp()
	if !taken {
		c.tick(7)
		return
	}
	c.PC += uint16(int16(disp))
	c.WZ = c.PC
	c.tick(12)
}

// callAbsolute consumes the target and calls when taken. 17 cycles taken, 10 not.
func (c *CPU_Z80) callAbsolute(taken bool) {
	addr := c.fetchWord()
	c.WZ = addr
	if !taken {
		c.tick(10)
		return
	}
	c.pushWord(c.PC)
	c.PC = addr
	c.tick(17)
}

func (c *CPU_Z80) opCBPrefix() {
	opcode := c.fetchOpcode()
	c.prefixOpcode = opcode
	c.cbOps[opcode](c)
}

func (c *CPU_Z80) opEDPrefix() {
	opcode := c.fetchOpcode()
	c.prefixOpcode = opcode
	c.edOps[opcode](c)
}

func (c *CPU_Z80) opDDPrefix() {
	c.prefixMode = z80PrefixDD
	c.dispatchIndexed()
}

func (c *CPU_Z80) opFDPrefix() {
	c.prefixMode = z80PrefixFD
	c.dispatchIndexed()
}

func (c *CPU_Z80) dispatchIndexed() {
	opcode := c.fetchOpcode()
	c.prefixOpcode = opcode
	c.ddOps[opcode](c)
	c.prefixMode = z80PrefixNone
}
