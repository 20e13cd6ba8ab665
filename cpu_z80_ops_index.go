// cpu_z80_ops_index.go - DD/FD indexed opcode table (shared by IX and IY)

package main

func (c *CPU_Z80) indexReg() uint16 {
	if c.prefixMode == z80PrefixFD {
		return c.IY
	}
	return c.IX
}

func (c *CPU_Z80) setIndexReg(value uint16) {
	if c.prefixMode == z80PrefixFD {
		c.IY = value
		return
	}
	c.IX = value
}

func (c *CPU_Z80) prefixByte() byte {
	if c.prefixMode == z80PrefixFD {
		return 0xFD
	}
	return 0xDD
}

// readIndexReg8 reads register code r with H and L replaced by the halves
// of the active index register.
func (c *CPU_Z80) readIndexReg8(r byte) byte {
	switch r {
	case 4:
		return byte(c.indexReg() >> 8)
	case 5:
		return byte(c.indexReg())
	default:
		return *c.regs8[r]
	}
}

func (c *CPU_Z80) writeIndexReg8(r, value byte) {
	switch r {
	case 4:
		c.setIndexReg(c.indexReg()&0x00FF | uint16(value)<<8)
	case 5:
		c.setIndexReg(c.indexReg()&0xFF00 | uint16(value))
	default:
		*c.regs8[r] = value
	}
}

// indexAddress consumes the displacement byte and returns IX+d or IY+d.
func (c *CPU_Z80) indexAddress() uint16 {
	addr := c.indexReg() + uint16(int16(c.fetchDisp()))
	c.WZ = addr
	return addr
}

func (c *CPU_Z80) opIndexInvalid() {
	c.invalidOpcode(c.prefixByte(), c.prefixOpcode)
}

func isIndexHalf(r byte) bool {
	return r == 4 || r == 5
}

func (c *CPU_Z80) initIndexOps() {
	for i := range c.ddOps {
		c.ddOps[i] = (*CPU_Z80).opIndexInvalid
	}

	for p := byte(0); p < 4; p++ {
		pair := p
		c.ddOps[0x09|pair<<4] = func(cpu *CPU_Z80) {
			ix := cpu.indexReg()
			operand := cpu.rp(pair)
			if pair == 2 {
				operand = ix
			}
			cpu.WZ = ix + 1
			var sum uint16
			sum, cpu.F = add16(ix, operand, cpu.F)
			cpu.setIndexReg(sum)
			cpu.tick(15)
		}
	}

	c.ddOps[0x21] = func(cpu *CPU_Z80) { cpu.setIndexReg(cpu.fetchWord()); cpu.tick(14) }
	c.ddOps[0x22] = func(cpu *CPU_Z80) {
		addr := cpu.fetchWord()
		cpu.mem.Write16(addr, cpu.indexReg())
		cpu.WZ = addr + 1
		cpu.tick(20)
	}
	c.ddOps[0x2A] = func(cpu *CPU_Z80) {
		addr := cpu.fetchWord()
		cpu.setIndexReg(cpu.mem.Read16(addr))
		cpu.WZ = addr + 1
		cpu.tick(20)
	}
	c.ddOps[0x23] = func(cpu *CPU_Z80) { cpu.setIndexReg(cpu.indexReg() + 1); cpu.tick(10) }
	c.ddOps[0x2B] = func(cpu *CPU_Z80) { cpu.setIndexReg(cpu.indexReg() - 1); cpu.tick(10) }

	for _, half := range []byte{4, 5} {
		r := half
		c.ddOps[0x04|r<<3] = func(cpu *CPU_Z80) {
			var value byte
			value, cpu.F = inc8(cpu.readIndexReg8(r), cpu.F)
			cpu.writeIndexReg8(r, value)
			cpu.tick(8)
		}
		c.ddOps[0x05|r<<3] = func(cpu *CPU_Z80) {
			var value byte
			value, cpu.F = dec8(cpu.readIndexReg8(r), cpu.F)
			cpu.writeIndexReg8(r, value)
			cpu.tick(8)
		}
		c.ddOps[0x06|r<<3] = func(cpu *CPU_Z80) {
			cpu.writeIndexReg8(r, cpu.fetchByte())
			cpu.tick(11)
		}
	}

	c.ddOps[0x34] = func(cpu *CPU_Z80) {
		addr := cpu.indexAddress()
		var value byte
		value, cpu.F = inc8(cpu.read(addr), cpu.F)
		cpu.write(addr, value)
		cpu.tick(23)
	}
	c.ddOps[0x35] = func(cpu *CPU_Z80) {
		addr := cpu.indexAddress()
		var value byte
		value, cpu.F = dec8(cpu.read(addr), cpu.F)
		cpu.write(addr, value)
		cpu.tick(23)
	}
	c.ddOps[0x36] = func(cpu *CPU_Z80) {
		addr := cpu.indexAddress()
		cpu.write(addr, cpu.fetchByte())
		cpu.tick(19)
	}

	for opcode := 0x40; opcode <= 0x7F; opcode++ {
		if opcode == 0x76 {
			continue
		}
		dest := byte(opcode>>3) & 0x07
		src := byte(opcode) & 0x07
		switch {
		case src == 6:
			c.ddOps[opcode] = func(cpu *CPU_Z80) {
				*cpu.regs8[dest] = cpu.read(cpu.indexAddress())
				cpu.tick(19)
			}
		case dest == 6:
			c.ddOps[opcode] = func(cpu *CPU_Z80) {
				cpu.write(cpu.indexAddress(), *cpu.regs8[src])
				cpu.tick(19)
			}
		case isIndexHalf(dest) || isIndexHalf(src):
			c.ddOps[opcode] = func(cpu *CPU_Z80) {
				cpu.writeIndexReg8(dest, cpu.readIndexReg8(src))
				cpu.tick(8)
			}
		}
	}

	for opcode := 0x80; opcode <= 0xBF; opcode++ {
		op := aluOp(opcode>>3) & 0x07
		src := byte(opcode) & 0x07
		switch {
		case src == 6:
			c.ddOps[opcode] = func(cpu *CPU_Z80) {
				cpu.alu(op, cpu.read(cpu.indexAddress()))
				cpu.tick(19)
			}
		case isIndexHalf(src):
			c.ddOps[opcode] = func(cpu *CPU_Z80) {
				cpu.alu(op, cpu.readIndexReg8(src))
				cpu.tick(8)
			}
		}
	}

	c.ddOps[0xCB] = (*CPU_Z80).opIndexCBPrefix
	c.ddOps[0xE1] = func(cpu *CPU_Z80) { cpu.setIndexReg(cpu.popWord()); cpu.tick(14) }
	c.ddOps[0xE5] = func(cpu *CPU_Z80) { cpu.pushWord(cpu.indexReg()); cpu.tick(15) }
	c.ddOps[0xE3] = func(cpu *CPU_Z80) {
		value := cpu.mem.Read16(cpu.SP)
		cpu.mem.Write16(cpu.SP, cpu.indexReg())
		cpu.setIndexReg(value)
		cpu.WZ = value
		cpu.tick(23)
	}
	c.ddOps[0xE9] = func(cpu *CPU_Z80) { cpu.PC = cpu.indexReg(); cpu.tick(8) }
	c.ddOps[0xF9] = func(cpu *CPU_Z80) { cpu.SP = cpu.indexReg(); cpu.tick(10) }
}
