package main

import (
	"fmt"
	"log/slog"
)

// Z80Memory is the flat 64KB view the core executes against. Bank
// switching lives behind it.
type Z80Memory interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	Read16(addr uint16) uint16
	Write16(addr uint16, value uint16)
	ReadSigned(addr uint16) int8
}

// Z80Ports is the I/O space reached by the IN and OUT families.
type Z80Ports interface {
	In(port uint16) byte
	Out(port uint16, value byte)
}

// Z80Bus is the usual case of one value serving both spaces.
type Z80Bus interface {
	Z80Memory
	Z80Ports
}

type z80Op func(*CPU_Z80)

type CPU_Z80 struct {
	A  byte
	F  byte
	B  byte
	C  byte
	D  byte
	E  byte
	H  byte
	L  byte
	A2 byte
	F2 byte
	B2 byte
	C2 byte
	D2 byte
	E2 byte
	H2 byte
	L2 byte

	IX uint16
	IY uint16
	SP uint16
	PC uint16

	I   byte
	R   byte
	IM  byte
	WZ  uint16
	WZ2 uint16

	IFF1 bool
	IFF2 bool

	Halted bool
	// Invalid is set when the last Step hit an undefined opcode.
	Invalid bool
	Cycles  uint64

	nmiLine    bool
	nmiPending bool
	iffDelay   int

	mem    Z80Memory
	ports  Z80Ports
	chain  *DaisyChain
	logger *slog.Logger

	// OnInvalidOpcode is called with the instruction address and the
	// offending byte sequence after the instruction has been abandoned.
	OnInvalidOpcode func(pc uint16, code []byte)

	baseOps [256]z80Op
	cbOps   [256]z80Op
	edOps   [256]z80Op
	ddOps   [256]z80Op
	xcbOps  [256]z80Op

	prefixMode   byte
	prefixOpcode byte
	instrPC      uint16
	indexAddr    uint16
	indexDisp    byte

	// B, C, D, E, H, L, -, A in opcode encoding order
	regs8 [8]*byte
}

const (
	z80PrefixNone byte = iota
	z80PrefixDD
	z80PrefixFD
)

const (
	z80NMIVector = 0x0066
	z80IM1Vector = 0x0038
)

// NewCPU_Z80 builds a core over separate memory and port spaces. chain may
// be nil for a machine with no interrupting devices.
func NewCPU_Z80(mem Z80Memory, ports Z80Ports, chain *DaisyChain) *CPU_Z80 {
	cpu := &CPU_Z80{
		mem:    mem,
		ports:  ports,
		chain:  chain,
		logger: slog.Default(),
	}
	cpu.regs8 = [8]*byte{&cpu.B, &cpu.C, &cpu.D, &cpu.E, &cpu.H, &cpu.L, nil, &cpu.A}
	cpu.initBaseOps()
	cpu.initCBOps()
	cpu.initEDOps()
	cpu.initIndexOps()
	cpu.initIndexCBOps()
	cpu.checkOpTables()
	cpu.Reset()
	return cpu
}

// NewCPU_Z80OnBus is the common constructor for a bus that decodes both
// memory and I/O.
func NewCPU_Z80OnBus(bus Z80Bus, chain *DaisyChain) *CPU_Z80 {
	return NewCPU_Z80(bus, bus, chain)
}

func (c *CPU_Z80) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	c.logger = logger
}

func (c *CPU_Z80) Chain() *DaisyChain {
	return c.chain
}

// Reset puts the register file into its power-on state. The cycle counter
// is left alone; it only starts from zero when the core is created.
func (c *CPU_Z80) Reset() {
	c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L = 0xFF, 0xFF, 0, 0, 0, 0, 0, 0
	c.A2, c.F2, c.B2, c.C2, c.D2, c.E2, c.H2, c.L2 = 0, 0, 0, 0, 0, 0, 0, 0
	c.IX = 0xFFFF
	c.IY = 0xFFFF
	c.SP = 0xFFFF
	c.PC = 0
	c.I = 0
	c.R = 0
	c.IM = 0
	c.WZ = 0
	c.WZ2 = 0
	c.IFF1 = false
	c.IFF2 = false
	c.Halted = false
	c.Invalid = false
	c.nmiLine = false
	c.nmiPending = false
	c.iffDelay = 0
	c.prefixMode = z80PrefixNone
	if c.chain != nil {
		c.chain.Reset()
	}
}

func (c *CPU_Z80) AF() uint16 { return uint16(c.A)<<8 | uint16(c.F) }
func (c *CPU_Z80) BC() uint16 { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU_Z80) DE() uint16 { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU_Z80) HL() uint16 { return uint16(c.H)<<8 | uint16(c.L) }

func (c *CPU_Z80) AF2() uint16 { return uint16(c.A2)<<8 | uint16(c.F2) }
func (c *CPU_Z80) BC2() uint16 { return uint16(c.B2)<<8 | uint16(c.C2) }
func (c *CPU_Z80) DE2() uint16 { return uint16(c.D2)<<8 | uint16(c.E2) }
func (c *CPU_Z80) HL2() uint16 { return uint16(c.H2)<<8 | uint16(c.L2) }

func (c *CPU_Z80) SetAF(value uint16) { c.A, c.F = byte(value>>8), byte(value) }
func (c *CPU_Z80) SetBC(value uint16) { c.B, c.C = byte(value>>8), byte(value) }
func (c *CPU_Z80) SetDE(value uint16) { c.D, c.E = byte(value>>8), byte(value) }
func (c *CPU_Z80) SetHL(value uint16) { c.H, c.L = byte(value>>8), byte(value) }

func (c *CPU_Z80) SetAF2(value uint16) { c.A2, c.F2 = byte(value>>8), byte(value) }
func (c *CPU_Z80) SetBC2(value uint16) { c.B2, c.C2 = byte(value>>8), byte(value) }
func (c *CPU_Z80) SetDE2(value uint16) { c.D2, c.E2 = byte(value>>8), byte(value) }
func (c *CPU_Z80) SetHL2(value uint16) { c.H2, c.L2 = byte(value>>8), byte(value) }

func (c *CPU_Z80) Flag(mask byte) bool {
	return c.F&mask != 0
}

func (c *CPU_Z80) SetFlag(mask byte, on bool) {
	if on {
		c.F |= mask
	} else {
		c.F &^= mask
	}
}

func (c *CPU_Z80) ExAF() {
	c.A, c.A2 = c.A2, c.A
	c.F, c.F2 = c.F2, c.F
}

func (c *CPU_Z80) Exx() {
	c.B, c.B2 = c.B2, c.B
	c.C, c.C2 = c.C2, c.C
	c.D, c.D2 = c.D2, c.D
	c.E, c.E2 = c.E2, c.E
	c.H, c.H2 = c.H2, c.H
	c.L, c.L2 = c.L2, c.L
	c.WZ, c.WZ2 = c.WZ2, c.WZ
}

// EIPending reports whether an EI is waiting for the next instruction to
// complete before it takes effect.
func (c *CPU_Z80) EIPending() bool {
	return c.iffDelay > 0
}

// IRQPending reports whether a device on the chain is asserting the
// interrupt line.
func (c *CPU_Z80) IRQPending() bool {
	return c.chain != nil && c.chain.IRQ()
}

// Step executes exactly one instruction, prefixes included.
func (c *CPU_Z80) Step() {
	c.Invalid = false
	c.instrPC = c.PC
	c.prefixMode = z80PrefixNone
	opcode := c.fetchOpcode()
	c.baseOps[opcode](c)
	c.finishInstruction()
}

// HandleIRQ runs one acknowledge check. Call it between instructions,
// after peripherals have seen the cycles of the last Step.
func (c *CPU_Z80) HandleIRQ() {
	if c.nmiPending {
		c.serviceNMI()
		return
	}
	if !c.IFF1 || c.iffDelay > 0 || c.chain == nil {
		return
	}
	data, ok := c.chain.Acknowledge()
	if !ok {
		return
	}
	c.serviceIRQ(data)
}

// SetNMILine drives the edge-triggered NMI input. A low-to-high transition
// latches a request that the next HandleIRQ services.
func (c *CPU_Z80) SetNMILine(assert bool) {
	if assert && !c.nmiLine {
		c.nmiPending = true
	}
	c.nmiLine = assert
}

func (c *CPU_Z80) incrementR() {
	c.R = (c.R & 0x80) | ((c.R + 1) & 0x7F)
}

func (c *CPU_Z80) fetchOpcode() byte {
	opcode := c.mem.Read(c.PC)
	c.PC++
	c.incrementR()
	return opcode
}

func (c *CPU_Z80) fetchByte() byte {
	value := c.mem.Read(c.PC)
	c.PC++
	return value
}

func (c *CPU_Z80) fetchDisp() int8 {
	value := c.mem.ReadSigned(c.PC)
	c.PC++
	return value
}

func (c *CPU_Z80) fetchWord() uint16 {
	value := c.mem.Read16(c.PC)
	c.PC += 2
	return value
}

func (c *CPU_Z80) read(addr uint16) byte {
	return c.mem.Read(addr)
}

func (c *CPU_Z80) write(addr uint16, value byte) {
	c.mem.Write(addr, value)
}

func (c *CPU_Z80) in(port uint16) byte {
	return c.ports.In(port)
}

func (c *CPU_Z80) out(port uint16, value byte) {
	c.ports.Out(port, value)
}

func (c *CPU_Z80) tick(cycles int) {
	c.Cycles += uint64(cycles)
}

func (c *CPU_Z80) pushWord(value uint16) {
	c.SP -= 2
	c.mem.Write16(c.SP, value)
}

func (c *CPU_Z80) popWord() uint16 {
	value := c.mem.Read16(c.SP)
	c.SP += 2
	return value
}

func (c *CPU_Z80) finishInstruction() {
	if c.iffDelay > 0 {
		c.iffDelay--
		if c.iffDelay == 0 {
			c.IFF1 = true
			c.IFF2 = true
		}
	}
}

// leaveHalt moves PC past the HALT opcode it has been parked on.
func (c *CPU_Z80) leaveHalt() {
	if c.Halted {
		c.Halted = false
		c.PC++
	}
}

func (c *CPU_Z80) serviceNMI() {
	c.nmiPending = false
	c.leaveHalt()
	c.incrementR()
	c.IFF1 = false
	c.pushWord(c.PC)
	c.PC = z80NMIVector
	c.WZ = c.PC
	c.tick(11)
}

func (c *CPU_Z80) serviceIRQ(data byte) {
	c.leaveHalt()
	c.incrementR()
	c.IFF1 = false
	c.IFF2 = false
	c.pushWord(c.PC)
	switch c.IM {
	case 2:
		vector := uint16(c.I)<<8 | uint16(data)
		c.PC = c.mem.Read16(vector)
		c.WZ = c.PC
		c.tick(19)
	case 1:
		c.PC = z80IM1Vector
		c.WZ = c.PC
		c.tick(13)
	default:
		c.PC = im0Vector(data)
		c.WZ = c.PC
		c.tick(13)
	}
}

// im0Vector resolves the byte a device places on the bus in IM0. Only
// RST opcodes are honoured; anything else behaves like RST 38h.
func im0Vector(data byte) uint16 {
	if data&0xC7 == 0xC7 {
		return uint16(data & 0x38)
	}
	return z80IM1Vector
}

// invalidOpcode abandons the current instruction. PC already points past
// the consumed bytes; each byte costs one opcode fetch.
func (c *CPU_Z80) invalidOpcode(code ...byte) {
	c.Invalid = true
	c.tick(4 * len(code))
	c.logger.Warn("z80: invalid opcode",
		"pc", fmt.Sprintf("%04X", c.instrPC),
		"bytes", fmt.Sprintf("% X", code),
		"len", len(code))
	if c.OnInvalidOpcode != nil {
		c.OnInvalidOpcode(c.instrPC, code)
	}
}

func (c *CPU_Z80) checkOpTables() {
	tables := []struct {
		name string
		ops  *[256]z80Op
	}{
		{"base", &c.baseOps},
		{"CB", &c.cbOps},
		{"ED", &c.edOps},
		{"DD/FD", &c.ddOps},
		{"DDCB/FDCB", &c.xcbOps},
	}
	for _, t := range tables {
		for i, op := range t.ops {
			if op == nil {
				panic(fmt.Sprintf("z80: %s opcode table has no entry for %02X", t.name, i))
			}
		}
	}
}
