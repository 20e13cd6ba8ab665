// cpu_z80_ops_cb.go - CB and DDCB/FDCB bit, rotate and shift tables

package main

// rotateShift applies the CB-group operation selected by bits 3-5:
// RLC RRC RL RR SLA SRA SLL SRL.
func (c *CPU_Z80) rotateShift(kind, value byte) byte {
	var r byte
	switch kind & 0x07 {
	case 0:
		r, c.F = rlc8(value, c.F, false)
	case 1:
		r, c.F = rrc8(value, c.F, false)
	case 2:
		r, c.F = rl8(value, c.F, false)
	case 3:
		r, c.F = rr8(value, c.F, false)
	case 4:
		r, c.F = sla8(value)
	case 5:
		r, c.F = sra8(value)
	case 6:
		r, c.F = sll8(value)
	default:
		r, c.F = srl8(value)
	}
	return r
}

func (c *CPU_Z80) initCBOps() {
	for i := 0; i < 256; i++ {
		opcode := byte(i)
		group := opcode >> 6
		y := (opcode >> 3) & 0x07
		z := opcode & 0x07
		mask := byte(1) << y

		if z == 6 {
			switch group {
			case 0:
				c.cbOps[opcode] = func(cpu *CPU_Z80) {
					addr := cpu.HL()
					cpu.write(addr, cpu.rotateShift(y, cpu.read(addr)))
					cpu.tick(15)
				}
			case 1:
				c.cbOps[opcode] = func(cpu *CPU_Z80) {
					cpu.F = bit8(uint(y), cpu.read(cpu.HL()), byte(cpu.WZ>>8), cpu.F)
					cpu.tick(12)
				}
			case 2:
				c.cbOps[opcode] = func(cpu *CPU_Z80) {
					addr := cpu.HL()
					cpu.write(addr, cpu.read(addr)&^mask)
					cpu.tick(15)
				}
			default:
				c.cbOps[opcode] = func(cpu *CPU_Z80) {
					addr := cpu.HL()
					cpu.write(addr, cpu.read(addr)|mask)
					cpu.tick(15)
				}
			}
			continue
		}

		switch group {
		case 0:
			c.cbOps[opcode] = func(cpu *CPU_Z80) {
				reg := cpu.regs8[z]
				*reg = cpu.rotateShift(y, *reg)
				cpu.tick(8)
			}
		case 1:
			c.cbOps[opcode] = func(cpu *CPU_Z80) {
				value := *cpu.regs8[z]
				cpu.F = bit8(uint(y), value, value, cpu.F)
				cpu.tick(8)
			}
		case 2:
			c.cbOps[opcode] = func(cpu *CPU_Z80) {
				*cpu.regs8[z] &^= mask
				cpu.tick(8)
			}
		default:
			c.cbOps[opcode] = func(cpu *CPU_Z80) {
				*cpu.regs8[z] |= mask
				cpu.tick(8)
			}
		}
	}
}

// opIndexCBPrefix decodes DD CB d op / FD CB d op. The displacement comes
// before the final opcode, and neither byte is an M1 fetch, so R only
// moved for the two prefix bytes.
func (c *CPU_Z80) opIndexCBPrefix() {
	disp := c.fetchDisp()
	c.indexDisp = byte(disp)
	c.indexAddr = c.indexReg() + uint16(int16(disp))
	c.WZ = c.indexAddr
	opcode := c.fetchByte()
	c.prefixOpcode = opcode
	c.xcbOps[opcode](c)
}

// initIndexCBOps fills the DDCB/FDCB table. Forms with a register in
// bits 0-2 other than (HL) also copy the result into that register.
func (c *CPU_Z80) initIndexCBOps() {
	for i := 0; i < 256; i++ {
		opcode := byte(i)
		group := opcode >> 6
		y := (opcode >> 3) & 0x07
		z := opcode & 0x07
		mask := byte(1) << y

		if group == 1 {
			c.xcbOps[opcode] = func(cpu *CPU_Z80) {
				cpu.F = bit8(uint(y), cpu.read(cpu.indexAddr), byte(cpu.indexAddr>>8), cpu.F)
				cpu.tick(20)
			}
			continue
		}

		var apply func(cpu *CPU_Z80, value byte) byte
		switch group {
		case 0:
			apply = func(cpu *CPU_Z80, value byte) byte { return cpu.rotateShift(y, value) }
		case 2:
			apply = func(_ *CPU_Z80, value byte) byte { return value &^ mask }
		default:
			apply = func(_ *CPU_Z80, value byte) byte { return value | mask }
		}
		c.xcbOps[opcode] = func(cpu *CPU_Z80) {
			result := apply(cpu, cpu.read(cpu.indexAddr))
			cpu.write(cpu.indexAddr, result)
			if z != 6 {
				*cpu.regs8[z] = result
			}
			cpu.tick(23)
		}
	}
}
