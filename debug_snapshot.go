// debug_snapshot.go - Machine state capture/restore and save files

package main

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	snapshotMagic   = "KCZ8"
	snapshotVersion = 1
)

var ErrInvalidSnapshot = errors.New("invalid snapshot")

type CPUState struct {
	AF, BC, DE, HL     uint16
	AF2, BC2, DE2, HL2 uint16
	IX, IY, SP, PC     uint16
	WZ, WZ2            uint16
	I, R, IM           byte
	IFF1, IFF2         bool
	Halted, Invalid    bool
	EIDelay            byte
	NMILine, NMIPend   bool
	IRQ                bool
	Cycles             uint64
}

type InterruptNodeState struct {
	Enabled     bool
	Requested   bool
	RequestData byte
	Pending     bool
}

type CTCChannelState struct {
	Mode              byte
	Constant          int32
	DownCounter       int32
	Timer             int32
	TimerEnabled      bool
	WaitingForTrigger bool
	Node              InterruptNodeState
}

type CTCState struct {
	Channels [ctcNumChannels]CTCChannelState
	Vector   byte
}

type PIOPortState struct {
	Mode, Output, Input, IOSelect  byte
	IntVector, IntControl, IntMask byte
	IntEnabled                     bool
	Expect                         byte
	Match                          bool
	Node                           InterruptNodeState
}

type BoardState struct {
	SeenCycles uint64
	LineCycles int32
	Line       int32
	Stopped    bool
}

// MachineState is everything needed to resume a machine: registers, chip
// state, daisy chain and the 64KB CPU view of memory.
type MachineState struct {
	Magic   [4]byte
	Version uint32

	CPU   CPUState
	CTC   CTCState
	PIO   [2]PIOPortState
	Board BoardState

	Memory []byte
}

// Valid checks the magic and version tags, the memory image size and the
// CTC counter ranges.
func (s *MachineState) Valid() bool {
	if s == nil ||
		string(s.Magic[:]) != snapshotMagic ||
		s.Version != snapshotVersion ||
		len(s.Memory) != z80AddressSpace {
		return false
	}
	for _, ch := range s.CTC.Channels {
		if !ch.valid() {
			return false
		}
	}
	return true
}

// a running timer with a zero period would never leave CTC.Update
func (ch CTCChannelState) valid() bool {
	const maxPeriod = 256 * 256
	return ch.Constant >= 1 && ch.Constant <= 256 &&
		ch.DownCounter >= 0 && ch.DownCounter <= 256 &&
		ch.Timer >= 0 && ch.Timer <= maxPeriod
}

func captureNode(n *InterruptNode) InterruptNodeState {
	return InterruptNodeState{
		Enabled:     n.Enabled,
		Requested:   n.Requested,
		RequestData: n.RequestData,
		Pending:     n.Pending,
	}
}

func restoreNode(n *InterruptNode, s InterruptNodeState) {
	n.Enabled = s.Enabled
	n.Requested = s.Requested
	n.RequestData = s.RequestData
	n.Pending = s.Pending
}

// CaptureState takes a snapshot between instructions.
func (m *Machine) CaptureState() *MachineState {
	c := m.CPU
	s := &MachineState{Version: snapshotVersion}
	copy(s.Magic[:], snapshotMagic)

	s.CPU = CPUState{
		AF: c.AF(), BC: c.BC(), DE: c.DE(), HL: c.HL(),
		AF2: c.AF2(), BC2: c.BC2(), DE2: c.DE2(), HL2: c.HL2(),
		IX: c.IX, IY: c.IY, SP: c.SP, PC: c.PC,
		WZ: c.WZ, WZ2: c.WZ2,
		I: c.I, R: c.R, IM: c.IM,
		IFF1: c.IFF1, IFF2: c.IFF2,
		Halted: c.Halted, Invalid: c.Invalid,
		EIDelay: byte(c.iffDelay),
		NMILine: c.nmiLine, NMIPend: c.nmiPending,
		IRQ:    m.Chain.IRQ(),
		Cycles: c.Cycles,
	}

	for i := range m.CTC.Channels {
		ch := &m.CTC.Channels[i]
		s.CTC.Channels[i] = CTCChannelState{
			Mode:              ch.Mode,
			Constant:          int32(ch.Constant),
			DownCounter:       int32(ch.DownCounter),
			Timer:             int32(ch.Timer),
			TimerEnabled:      ch.TimerEnabled,
			WaitingForTrigger: ch.WaitingForTrigger,
			Node:              captureNode(&ch.Node),
		}
	}
	s.CTC.Vector = m.CTC.Vector

	for i := range m.PIO.Ports {
		p := &m.PIO.Ports[i]
		s.PIO[i] = PIOPortState{
			Mode: p.Mode, Output: p.Output, Input: p.Input, IOSelect: p.IOSelect,
			IntVector: p.IntVector, IntControl: p.IntControl, IntMask: p.IntMask,
			IntEnabled: p.IntEnabled,
			Expect:     p.expect,
			Match:      p.match,
			Node:       captureNode(&p.Node),
		}
	}

	s.Board = BoardState{
		SeenCycles: m.seenCycles,
		LineCycles: int32(m.lineCycles),
		Line:       int32(m.line),
		Stopped:    m.stopped,
	}
	s.Memory = m.Memory.ReadBlock(0, z80AddressSpace)
	return s
}

// RestoreState applies a snapshot. An invalid snapshot is rejected before
// anything is changed. ROM and unmapped pages keep their contents.
func (m *Machine) RestoreState(s *MachineState) error {
	if !s.Valid() {
		return ErrInvalidSnapshot
	}

	c := m.CPU
	cs := s.CPU
	c.SetAF(cs.AF)
	c.SetBC(cs.BC)
	c.SetDE(cs.DE)
	c.SetHL(cs.HL)
	c.SetAF2(cs.AF2)
	c.SetBC2(cs.BC2)
	c.SetDE2(cs.DE2)
	c.SetHL2(cs.HL2)
	c.IX, c.IY, c.SP, c.PC = cs.IX, cs.IY, cs.SP, cs.PC
	c.WZ, c.WZ2 = cs.WZ, cs.WZ2
	c.I, c.R, c.IM = cs.I, cs.R, cs.IM
	c.IFF1, c.IFF2 = cs.IFF1, cs.IFF2
	c.Halted, c.Invalid = cs.Halted, cs.Invalid
	c.iffDelay = int(cs.EIDelay)
	c.nmiLine, c.nmiPending = cs.NMILine, cs.NMIPend
	c.Cycles = cs.Cycles

	for i := range m.CTC.Channels {
		ch := &m.CTC.Channels[i]
		st := s.CTC.Channels[i]
		ch.Mode = st.Mode
		ch.Constant = int(st.Constant)
		ch.DownCounter = int(st.DownCounter)
		ch.Timer = int(st.Timer)
		ch.TimerEnabled = st.TimerEnabled
		ch.WaitingForTrigger = st.WaitingForTrigger
		restoreNode(&ch.Node, st.Node)
	}
	m.CTC.Vector = s.CTC.Vector

	for i := range m.PIO.Ports {
		p := &m.PIO.Ports[i]
		st := s.PIO[i]
		p.Mode, p.Output, p.Input, p.IOSelect = st.Mode, st.Output, st.Input, st.IOSelect
		p.IntVector, p.IntControl, p.IntMask = st.IntVector, st.IntControl, st.IntMask
		p.IntEnabled = st.IntEnabled
		p.expect = st.Expect
		p.match = st.Match
		restoreNode(&p.Node, st.Node)
	}
	m.Chain.SetIRQ(cs.IRQ)

	m.seenCycles = s.Board.SeenCycles
	m.lineCycles = int(s.Board.LineCycles)
	m.line = int(s.Board.Line)
	m.stopped = s.Board.Stopped
	m.Memory.WriteBlock(0, s.Memory)
	return nil
}

// SaveStateToFile writes a snapshot to disk: magic, version, the fixed-size
// register and chip block, then gzip-compressed memory.
func SaveStateToFile(s *MachineState, path string) error {
	if !s.Valid() {
		return ErrInvalidSnapshot
	}
	var buf bytes.Buffer

	buf.WriteString(snapshotMagic)
	for _, v := range []any{uint32(snapshotVersion), s.CPU, s.CTC, s.PIO, s.Board} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("encoding state: %w", err)
		}
	}

	// Memory: uncompressed length, then gzip-compressed data
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(s.Memory))); err != nil {
		return fmt.Errorf("encoding memory length: %w", err)
	}
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(s.Memory); err != nil {
		return fmt.Errorf("compressing memory: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip: %w", err)
	}

	return os.WriteFile(path, buf.Bytes(), 0644)
}

// LoadStateFromFile reads a snapshot written by SaveStateToFile.
func LoadStateFromFile(path string) (*MachineState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeState(bytes.NewReader(data))
}

func decodeState(r io.Reader) (*MachineState, error) {
	s := &MachineState{}
	if _, err := io.ReadFull(r, s.Magic[:]); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(s.Magic[:]) != snapshotMagic {
		return nil, fmt.Errorf("snapshot magic %q: %w", string(s.Magic[:]), ErrInvalidSnapshot)
	}
	if err := binary.Read(r, binary.LittleEndian, &s.Version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot version %d: %w", s.Version, ErrInvalidSnapshot)
	}
	for _, v := range []any{&s.CPU, &s.CTC, &s.PIO, &s.Board} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("reading state: %w", err)
		}
	}

	var memLen uint32
	if err := binary.Read(r, binary.LittleEndian, &memLen); err != nil {
		return nil, fmt.Errorf("reading memory length: %w", err)
	}
	if memLen != z80AddressSpace {
		return nil, fmt.Errorf("memory image of %d bytes: %w", memLen, ErrInvalidSnapshot)
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip reader: %w", err)
	}
	defer gz.Close()

	s.Memory = make([]byte, memLen)
	if _, err := io.ReadFull(gz, s.Memory); err != nil {
		return nil, fmt.Errorf("decompressing memory: %w", err)
	}
	return s, nil
}
