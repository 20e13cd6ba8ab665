// machine_bus.go - KC-style board: Z80, CTC, PIO, console and banked memory

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2025 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
Buy me a coffee: https://ko-fi.com/intuition/tip

License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Board port map (low address byte).
const (
	portConsoleBase = 0x00
	portConsoleEnd  = 0x01
	portPIOBase     = 0x88 // A data, B data, A control, B control
	portPIOEnd      = 0x8B
	portCTCBase     = 0x8C // channels 0-3
	portCTCEnd      = 0x8F
)

const (
	cpmBDOSEntry = 0x0005
	cpmTPA       = 0x0100
)

var (
	ErrCycleLimit      = errors.New("cycle limit reached")
	ErrProgramTooLarge = errors.New("program does not fit in memory")
)

// MachineConfig describes the board clocking and memory layout.
type MachineConfig struct {
	ClockHz       int
	CyclesPerLine int
	LinesPerFrame int

	// RAMSize bytes of RAM are mapped from 0x0000.
	RAMSize int
	// ROM is mapped read-only at ROMAddr when non-empty.
	ROM     []byte
	ROMAddr uint16

	// SpeakerChannel is the CTC channel whose pulses drive the speaker,
	// or -1 for none.
	SpeakerChannel int
	// CPM enables the BDOS console trap at 0x0005 and stops the machine
	// on a warm boot jump to 0x0000.
	CPM bool
	// Throttle paces execution to ClockHz in real time.
	Throttle bool
}

// DefaultMachineConfig is a KC85/3-like board: 1.75MHz, 112 cycles per
// scanline and 312 lines per frame, 64KB of RAM.
func DefaultMachineConfig() MachineConfig {
	return MachineConfig{
		ClockHz:        1750000,
		CyclesPerLine:  112,
		LinesPerFrame:  312,
		RAMSize:        0x10000,
		SpeakerChannel: -1,
	}
}

type Machine struct {
	Config MachineConfig

	CPU     *CPU_Z80
	Memory  *Memory
	Chain   *DaisyChain
	CTC     *Z80CTC
	PIO     *Z80PIO
	Console *ConsoleDevice
	Speaker *PulseSpeaker

	// Trace, when set, is called with the address of every instruction
	// before it executes.
	Trace func(m *Machine, pc uint16)

	ram        []byte
	seenCycles uint64
	lineCycles int
	line       int
	stopped    bool
	logger     *slog.Logger
}

func NewMachine(cfg MachineConfig, logger *slog.Logger) (*Machine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CyclesPerLine <= 0 || cfg.LinesPerFrame <= 0 {
		return nil, fmt.Errorf("machine: invalid video timing %d/%d", cfg.CyclesPerLine, cfg.LinesPerFrame)
	}

	m := &Machine{
		Config:  cfg,
		Memory:  NewMemory(),
		Chain:   NewDaisyChain(),
		PIO:     NewZ80PIO(),
		Console: NewConsoleDevice(),
		logger:  logger,
	}
	m.CTC = NewZ80CTC(m.onCTCPulse)
	m.CTC.SetLogger(logger)
	m.PIO.SetLogger(logger)

	// priority: CTC channels 0-3, then PIO A and B
	m.CTC.AttachTo(m.Chain)
	m.PIO.AttachTo(m.Chain)

	m.ram = make([]byte, cfg.RAMSize)
	if err := m.Memory.Map(0x0000, m.ram, true); err != nil {
		return nil, fmt.Errorf("machine: mapping RAM: %w", err)
	}
	if len(cfg.ROM) > 0 {
		if err := m.Memory.Map(cfg.ROMAddr, cfg.ROM, false); err != nil {
			return nil, fmt.Errorf("machine: mapping ROM: %w", err)
		}
	}

	m.CPU = NewCPU_Z80(m.Memory, m, m.Chain)
	m.CPU.SetLogger(logger)
	if cfg.SpeakerChannel >= 0 && cfg.ClockHz > 0 {
		m.Speaker = NewPulseSpeaker(cfg.ClockHz, pulseSampleRate)
	}
	return m, nil
}

// RAM is the board's system RAM, mapped at 0x0000.
func (m *Machine) RAM() []byte {
	return m.ram
}

// Reset is the reset button: CPU and chips go back to power-on state,
// memory and the cycle counter are kept.
func (m *Machine) Reset() {
	m.CPU.Reset()
	m.CTC.Reset()
	m.PIO.Reset()
	m.Chain.Reset()
	m.lineCycles = 0
	m.line = 0
	m.stopped = false
}

// LoadProgram copies a raw binary into memory at addr.
func (m *Machine) LoadProgram(addr uint16, program []byte) error {
	if int(addr)+len(program) > z80AddressSpace {
		return fmt.Errorf("loading %d bytes at %04X: %w", len(program), addr, ErrProgramTooLarge)
	}
	m.Memory.WriteBlock(addr, program)
	return nil
}

// PrepareCPM sets up page zero for a CP/M .COM program: warm boot at 0x0000,
// BDOS entry at 0x0005 and a stack below the BDOS page.
func (m *Machine) PrepareCPM() {
	m.Memory.WriteBlock(0x0000, []byte{0xC3, 0x00, 0x00}) // JP 0000
	m.Memory.WriteBlock(cpmBDOSEntry, []byte{0xC9})       // RET
	m.Memory.Write16(0x0006, 0xFE00)
	m.CPU.SP = 0xFE00
	m.CPU.pushWord(0x0000)
	m.CPU.PC = cpmTPA
}

// Stopped reports whether the program has ended (CP/M warm boot).
func (m *Machine) Stopped() bool {
	return m.stopped
}

// Step runs one driving-loop iteration: one instruction, then the CTC and
// board clock advance by the cycles that elapsed, then one interrupt
// acknowledge check. It returns the cycles consumed.
func (m *Machine) Step() int {
	if m.Config.CPM && m.handleCPMTrap() {
		return 0
	}
	if m.Trace != nil {
		m.Trace(m, m.CPU.PC)
	}

	m.CPU.Step()
	delta := int(m.CPU.Cycles - m.seenCycles)
	m.seenCycles = m.CPU.Cycles

	m.CTC.Update(delta)
	m.advanceClock(delta)
	m.CPU.HandleIRQ()
	return delta
}

func (m *Machine) advanceClock(delta int) {
	m.lineCycles += delta
	for m.lineCycles >= m.Config.CyclesPerLine {
		m.lineCycles -= m.Config.CyclesPerLine
		m.CTC.Trigger(0)
		m.CTC.Trigger(1)
		m.line++
		if m.line >= m.Config.LinesPerFrame {
			m.line = 0
			m.CTC.Trigger(2)
			m.CTC.Trigger(3)
		}
	}
}

func (m *Machine) onCTCPulse(channel int) {
	if m.Speaker != nil && channel == m.Config.SpeakerChannel {
		m.Speaker.Toggle(m.CPU.Cycles)
	}
}

// dead reports a HALT that nothing can wake up.
func (m *Machine) dead() bool {
	return m.CPU.Halted && !m.CPU.IFF1 && !m.CPU.EIPending() && !m.CPU.nmiPending
}

// Run steps the machine until it stops, halts with interrupts disabled,
// ctx is cancelled or maxCycles (0 for no limit) have elapsed.
func (m *Machine) Run(ctx context.Context, maxCycles uint64) error {
	frameCycles := uint64(m.Config.CyclesPerLine * m.Config.LinesPerFrame)
	var frameStart time.Time
	var nextFrame uint64
	if m.Config.Throttle {
		frameStart = time.Now()
		nextFrame = m.CPU.Cycles + frameCycles
	}

	for steps := 0; ; steps++ {
		if steps&0x3FF == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if m.stopped || m.dead() {
			return nil
		}
		if maxCycles > 0 && m.CPU.Cycles >= maxCycles {
			return ErrCycleLimit
		}
		m.Step()

		if m.Speaker != nil {
			m.Speaker.Advance(m.CPU.Cycles)
		}
		if m.Config.Throttle && m.CPU.Cycles >= nextFrame {
			frame := time.Duration(float64(frameCycles) / float64(m.Config.ClockHz) * float64(time.Second))
			if sleep := frame - time.Since(frameStart); sleep > 0 {
				time.Sleep(sleep)
			}
			frameStart = time.Now()
			nextFrame += frameCycles
		}
	}
}

// In decodes a CPU port read.
func (m *Machine) In(port uint16) byte {
	p := byte(port)
	switch {
	case p <= portConsoleEnd:
		return m.Console.In(p - portConsoleBase)
	case p >= portPIOBase && p <= portPIOEnd:
		reg := int(p - portPIOBase)
		if reg < 2 {
			return m.PIO.ReadData(reg)
		}
		return 0xFF
	case p >= portCTCBase && p <= portCTCEnd:
		return m.CTC.Read(int(p - portCTCBase))
	}
	return 0xFF
}

// Out decodes a CPU port write.
func (m *Machine) Out(port uint16, value byte) {
	p := byte(port)
	switch {
	case p <= portConsoleEnd:
		m.Console.Out(p-portConsoleBase, value)
	case p >= portPIOBase && p <= portPIOEnd:
		reg := int(p - portPIOBase)
		if reg < 2 {
			m.PIO.WriteData(reg, value)
		} else {
			m.PIO.WriteControl(reg-2, value)
		}
	case p >= portCTCBase && p <= portCTCEnd:
		m.CTC.Write(int(p-portCTCBase), value)
	default:
		m.logger.Debug("machine: write to unmapped port", "port", fmt.Sprintf("%04X", port), "value", value)
	}
}

// handleCPMTrap services BDOS calls and warm boot before they execute.
// It reports whether the instruction at PC was consumed.
func (m *Machine) handleCPMTrap() bool {
	cpu := m.CPU
	switch cpu.PC {
	case 0x0000:
		m.stopped = true
		return true
	case cpmBDOSEntry:
	default:
		return false
	}

	switch cpu.C {
	case 0:
		m.stopped = true
		return true
	case 1:
		if b, ok := m.Console.NextInput(); ok {
			cpu.A = b
		} else {
			cpu.A = 0
		}
	case 2:
		_ = m.Console.WriteByte(cpu.E)
	case 9:
		addr := cpu.DE()
		for i := 0; i < z80AddressSpace; i++ {
			b := m.Memory.Read(addr)
			if b == '$' {
				break
			}
			_ = m.Console.WriteByte(b)
			addr++
		}
	case 11:
		cpu.A = 0
		if m.Console.In(consolePortStatus)&consoleStatusInput != 0 {
			cpu.A = 0xFF
		}
	default:
		m.logger.Debug("machine: unhandled BDOS call", "function", cpu.C)
	}
	// return to the caller as the RET at 0x0005 would
	cpu.PC = cpu.popWord()
	cpu.tick(10)
	return true
}
