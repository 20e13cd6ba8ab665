// cpu_z80_ops_ed.go - ED extended opcode table and block instructions

package main

const (
	blockInc uint16 = 0x0001
	blockDec uint16 = 0xFFFF
)

func (c *CPU_Z80) initEDOps() {
	for i := range c.edOps {
		c.edOps[i] = (*CPU_Z80).opEDInvalid
	}

	for i := 0x40; i <= 0x7F; i++ {
		opcode := byte(i)
		y := (opcode >> 3) & 0x07
		z := opcode & 0x07
		p := y >> 1
		q := y & 0x01

		switch z {
		case 0:
			c.edOps[opcode] = func(cpu *CPU_Z80) {
				port := cpu.BC()
				value := cpu.in(port)
				if y != 6 {
					*cpu.regs8[y] = value
				}
				cpu.F = cpu.F&z80FlagC | z80SZP[value]
				cpu.WZ = port + 1
				cpu.tick(12)
			}
		case 1:
			c.edOps[opcode] = func(cpu *CPU_Z80) {
				port := cpu.BC()
				var value byte
				if y != 6 {
					value = *cpu.regs8[y]
				}
				cpu.out(port, value)
				cpu.WZ = port + 1
				cpu.tick(12)
			}
		case 2:
			if q == 0 {
				c.edOps[opcode] = func(cpu *CPU_Z80) {
					hl := cpu.HL()
					cpu.WZ = hl + 1
					var r uint16
					r, cpu.F = sbc16(hl, cpu.rp(p), cpu.F)
					cpu.SetHL(r)
					cpu.tick(15)
				}
			} else {
				c.edOps[opcode] = func(cpu *CPU_Z80) {
					hl := cpu.HL()
					cpu.WZ = hl + 1
					var r uint16
					r, cpu.F = adc16(hl, cpu.rp(p), cpu.F)
					cpu.SetHL(r)
					cpu.tick(15)
				}
			}
		case 3:
			if q == 0 {
				c.edOps[opcode] = func(cpu *CPU_Z80) {
					addr := cpu.fetchWord()
					cpu.mem.Write16(addr, cpu.rp(p))
					cpu.WZ = addr + 1
					cpu.tick(20)
				}
			} else {
				c.edOps[opcode] = func(cpu *CPU_Z80) {
					addr := cpu.fetchWord()
					cpu.setRP(p, cpu.mem.Read16(addr))
					cpu.WZ = addr + 1
					cpu.tick(20)
				}
			}
		case 4:
			c.edOps[opcode] = func(cpu *CPU_Z80) {
				cpu.A, cpu.F = neg8(cpu.A)
				cpu.tick(8)
			}
		case 5:
			if y == 1 {
				c.edOps[opcode] = (*CPU_Z80).opRETI
			} else {
				c.edOps[opcode] = (*CPU_Z80).opRETN
			}
		case 6:
			mode := [8]byte{0, 0, 1, 2, 0, 0, 1, 2}[y]
			c.edOps[opcode] = func(cpu *CPU_Z80) {
				cpu.IM = mode
				cpu.tick(8)
			}
		}
	}

	c.edOps[0x47] = func(cpu *CPU_Z80) { cpu.I = cpu.A; cpu.tick(9) }
	c.edOps[0x4F] = func(cpu *CPU_Z80) { cpu.R = cpu.A; cpu.tick(9) }
	c.edOps[0x57] = func(cpu *CPU_Z80) {
		cpu.A = cpu.I
		cpu.F = cpu.F&z80FlagC | z80SZ[cpu.A] | boolFlag(cpu.IFF2, z80FlagPV)
		cpu.tick(9)
	}
	c.edOps[0x5F] = func(cpu *CPU_Z80) {
		cpu.A = cpu.R
		cpu.F = cpu.F&z80FlagC | z80SZ[cpu.A] | boolFlag(cpu.IFF2, z80FlagPV)
		cpu.tick(9)
	}
	c.edOps[0x67] = func(cpu *CPU_Z80) {
		addr := cpu.HL()
		var m byte
		cpu.A, m, cpu.F = rrd8(cpu.A, cpu.read(addr), cpu.F)
		cpu.write(addr, m)
		cpu.WZ = addr + 1
		cpu.tick(18)
	}
	c.edOps[0x6F] = func(cpu *CPU_Z80) {
		addr := cpu.HL()
		var m byte
		cpu.A, m, cpu.F = rld8(cpu.A, cpu.read(addr), cpu.F)
		cpu.write(addr, m)
		cpu.WZ = addr + 1
		cpu.tick(18)
	}
	// the two z=7 holes in the 0x40-0x7F block execute as 8 T no-ops
	edNOP := func(cpu *CPU_Z80) { cpu.tick(8) }
	c.edOps[0x77] = edNOP
	c.edOps[0x7F] = edNOP

	c.edOps[0xA0] = func(cpu *CPU_Z80) { cpu.ldi(blockInc); cpu.tick(16) }
	c.edOps[0xA8] = func(cpu *CPU_Z80) { cpu.ldi(blockDec); cpu.tick(16) }
	c.edOps[0xA1] = func(cpu *CPU_Z80) { cpu.cpi(blockInc); cpu.tick(16) }
	c.edOps[0xA9] = func(cpu *CPU_Z80) { cpu.cpi(blockDec); cpu.tick(16) }
	c.edOps[0xA2] = func(cpu *CPU_Z80) { cpu.ini(blockInc); cpu.tick(16) }
	c.edOps[0xAA] = func(cpu *CPU_Z80) { cpu.ini(blockDec); cpu.tick(16) }
	c.edOps[0xA3] = func(cpu *CPU_Z80) { cpu.outi(blockInc); cpu.tick(16) }
	c.edOps[0xAB] = func(cpu *CPU_Z80) { cpu.outi(blockDec); cpu.tick(16) }

	c.edOps[0xB0] = func(cpu *CPU_Z80) { cpu.repeatBlock(cpu.BC() == 0, func() bool { return cpu.ldi(blockInc) }) }
	c.edOps[0xB8] = func(cpu *CPU_Z80) { cpu.repeatBlock(cpu.BC() == 0, func() bool { return cpu.ldi(blockDec) }) }
	c.edOps[0xB1] = func(cpu *CPU_Z80) { cpu.repeatBlock(cpu.BC() == 0, func() bool { return cpu.cpi(blockInc) }) }
	c.edOps[0xB9] = func(cpu *CPU_Z80) { cpu.repeatBlock(cpu.BC() == 0, func() bool { return cpu.cpi(blockDec) }) }
	c.edOps[0xB2] = func(cpu *CPU_Z80) { cpu.repeatBlock(cpu.B == 0, func() bool { return cpu.ini(blockInc) }) }
	c.edOps[0xBA] = func(cpu *CPU_Z80) { cpu.repeatBlock(cpu.B == 0, func() bool { return cpu.ini(blockDec) }) }
	c.edOps[0xB3] = func(cpu *CPU_Z80) { cpu.repeatBlock(cpu.B == 0, func() bool { return cpu.outi(blockInc) }) }
	c.edOps[0xBB] = func(cpu *CPU_Z80) { cpu.repeatBlock(cpu.B == 0, func() bool { return cpu.outi(blockDec) }) }
}

func (c *CPU_Z80) opEDInvalid() {
	c.invalidOpcode(0xED, c.prefixOpcode)
}

func (c *CPU_Z80) opRETN() {
	c.PC = c.popWord()
	c.WZ = c.PC
	c.IFF1 = c.IFF2
	c.tick(14)
}

// opRETI also tells the daisy chain that the highest-priority handler in
// service has finished, which re-opens the chain below it.
func (c *CPU_Z80) opRETI() {
	c.PC = c.popWord()
	c.WZ = c.PC
	c.IFF1 = c.IFF2
	if c.chain != nil {
		c.chain.ReturnFromInterrupt()
	}
	c.tick(14)
}

// repeatBlock runs a repeating block instruction to completion inside one
// Step. Every iteration that loops back costs 21 cycles and two refresh
// increments, the final one 16. A repeat entered with a zero counter
// performs a single iteration.
func (c *CPU_Z80) repeatBlock(zeroCounter bool, iterate func() bool) {
	for {
		if !iterate() || zeroCounter {
			c.tick(16)
			return
		}
		c.tick(21)
		c.incrementR()
		c.incrementR()
	}
}

func (c *CPU_Z80) ldi(dir uint16) bool {
	value := c.read(c.HL())
	c.write(c.DE(), value)
	c.SetHL(c.HL() + dir)
	c.SetDE(c.DE() + dir)
	bc := c.BC() - 1
	c.SetBC(bc)
	c.F = ldiFlags(c.A, value, c.F, bc)
	return bc != 0
}

// cpi reports whether the search should continue: counter not exhausted
// and no match.
func (c *CPU_Z80) cpi(dir uint16) bool {
	value := c.read(c.HL())
	c.SetHL(c.HL() + dir)
	bc := c.BC() - 1
	c.SetBC(bc)
	c.WZ += dir
	c.F = cpiFlags(c.A, value, c.F, bc)
	return bc != 0 && c.A != value
}

func (c *CPU_Z80) ini(dir uint16) bool {
	port := c.BC()
	c.WZ = port + dir
	value := c.in(port)
	c.write(c.HL(), value)
	c.B--
	c.SetHL(c.HL() + dir)
	k := uint16(value) + uint16(c.C+byte(dir))
	c.F = blockIOFlags(c.B, value, k)
	return c.B != 0
}

func (c *CPU_Z80) outi(dir uint16) bool {
	value := c.read(c.HL())
	c.B--
	port := c.BC()
	c.out(port, value)
	c.SetHL(c.HL() + dir)
	c.WZ = port + dir
	k := uint16(value) + uint16(c.L)
	c.F = blockIOFlags(c.B, value, k)
	return c.B != 0
}
