// z80_pio.go - Z80 PIO parallel I/O with interrupt support

package main

import "log/slog"

const (
	PIOPortA = 0
	PIOPortB = 1
)

// PIO operating modes.
const (
	pioModeOutput        = 0
	pioModeInput         = 1
	pioModeBidirectional = 2
	pioModeBitControl    = 3
)

// Interrupt control word bits.
const (
	pioIntEnable      = 0x80
	pioIntAnd         = 0x40 // all monitored bits must be active (any when clear)
	pioIntActiveHigh  = 0x20
	pioIntMaskFollows = 0x10
)

const (
	pioExpectNone byte = iota
	pioExpectIOSelect
	pioExpectIntMask
)

type PIOPort struct {
	Mode     byte
	Output   byte
	Input    byte
	IOSelect byte // mode 3: 1 = input bit

	IntVector  byte
	IntControl byte
	IntMask    byte // 1 = bit not monitored
	IntEnabled bool

	Node InterruptNode

	expect byte
	match  bool
}

// Z80PIO has two ports, A above B in interrupt priority.
type Z80PIO struct {
	Ports [2]PIOPort

	// OnOutput sees every data write to a port.
	OnOutput func(port int, value byte)
	logger   *slog.Logger
}

func NewZ80PIO() *Z80PIO {
	pio := &Z80PIO{logger: slog.Default()}
	pio.Ports[PIOPortA].Node.Name = "PIO-A"
	pio.Ports[PIOPortB].Node.Name = "PIO-B"
	pio.Reset()
	return pio
}

func (p *Z80PIO) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

func (p *Z80PIO) AttachTo(chain *DaisyChain) {
	chain.Attach(&p.Ports[PIOPortA].Node)
	chain.Attach(&p.Ports[PIOPortB].Node)
}

func (p *Z80PIO) Reset() {
	for i := range p.Ports {
		port := &p.Ports[i]
		port.Mode = pioModeInput
		port.Output = 0
		port.Input = 0
		port.IOSelect = 0
		port.IntControl = 0
		port.IntMask = 0xFF
		port.IntEnabled = false
		port.expect = pioExpectNone
		port.match = false
		port.Node.Reset()
		if c := port.Node.chain; c != nil {
			c.update()
		}
	}
}

// WriteControl handles a CPU write to the control register of port n.
func (p *Z80PIO) WriteControl(n int, value byte) {
	port := &p.Ports[n&1]
	switch port.expect {
	case pioExpectIOSelect:
		port.IOSelect = value
		port.expect = pioExpectNone
		p.evaluate(n & 1)
		return
	case pioExpectIntMask:
		port.IntMask = value
		port.expect = pioExpectNone
		p.evaluate(n & 1)
		return
	}

	switch {
	case value&0x01 == 0:
		port.IntVector = value
	case value&0x0F == 0x0F:
		port.Mode = value >> 6
		if port.Mode == pioModeBitControl {
			port.expect = pioExpectIOSelect
		}
		p.logger.Debug("pio: mode", "port", n&1, "mode", port.Mode)
	case value&0x0F == 0x07:
		port.IntControl = value & 0xF0
		port.IntEnabled = value&pioIntEnable != 0
		if value&pioIntMaskFollows != 0 {
			port.expect = pioExpectIntMask
		}
	case value&0x0F == 0x03:
		port.IntEnabled = value&pioIntEnable != 0
	}
}

// WriteData latches an output byte.
func (p *Z80PIO) WriteData(n int, value byte) {
	port := &p.Ports[n&1]
	port.Output = value
	if p.OnOutput != nil {
		p.OnOutput(n&1, value)
	}
}

// ReadData returns what the CPU sees on the port's data register.
func (p *Z80PIO) ReadData(n int) byte {
	port := &p.Ports[n&1]
	switch port.Mode {
	case pioModeOutput:
		return port.Output
	case pioModeBitControl:
		return port.Input&port.IOSelect | port.Output&^port.IOSelect
	default:
		return port.Input
	}
}

// WriteInput is the peripheral side driving the port's input pins. In the
// handshake modes it acts as a strobe and requests an interrupt.
func (p *Z80PIO) WriteInput(n int, value byte) {
	port := &p.Ports[n&1]
	port.Input = value
	switch port.Mode {
	case pioModeInput, pioModeBidirectional:
		if port.IntEnabled {
			port.Node.RequestInterrupt(port.IntVector)
		}
	case pioModeBitControl:
		p.evaluate(n & 1)
	}
}

// evaluate recomputes the mode 3 match condition and requests an
// interrupt when it becomes true.
func (p *Z80PIO) evaluate(n int) {
	port := &p.Ports[n]
	if port.Mode != pioModeBitControl {
		return
	}
	monitored := port.IOSelect &^ port.IntMask
	levels := port.Input
	if port.IntControl&pioIntActiveHigh == 0 {
		levels = ^levels
	}
	active := levels & monitored

	var match bool
	if port.IntControl&pioIntAnd != 0 {
		match = monitored != 0 && active == monitored
	} else {
		match = active != 0
	}
	if match && !port.match && port.IntEnabled {
		port.Node.RequestInterrupt(port.IntVector)
	}
	port.match = match
}
