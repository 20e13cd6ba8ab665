// memory_bus.go - Bank-mapped 64KB memory for the Z80 core

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

/*
memory_bus.go - Bank-mapped Memory for the Z80 core

The CPU sees a flat 64KB address space. Behind it, the space is cut into
1KB pages and each page points into a backing slice owned by whoever mapped
it: system RAM, a ROM image, or an expansion module. Banks can be mapped and
unmapped at any time, which is how the board implements bank switching.

Core Features:

    64 pages of 1KB, each either unmapped or a window into a caller's slice.
    Read-only mappings for ROM; writes to them are dropped.
    Unmapped reads return 0xFF (an open data bus), unmapped writes are dropped.
    Little-endian 16-bit access and signed-byte access for displacements.

The bus takes no locks. The emulation loop is the only writer, and the
host side only touches memory between instructions.
*/

package main

import "fmt"

const (
	z80AddressSpace = 0x10000
	z80PageShift    = 10
	z80PageSize     = 1 << z80PageShift
	z80PageCount    = z80AddressSpace / z80PageSize

	openBusValue = 0xFF
)

type memoryPage struct {
	data     []byte
	writable bool
}

// Memory implements Z80Memory over a table of 1KB pages.
type Memory struct {
	pages [z80PageCount]memoryPage
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Map(addr uint16, data []byte, writable bool) error {
	/*
		Map points the pages covering [addr, addr+len(data)) at data.

		addr and len(data) must both be multiples of the 1KB page size and
		the region must not run past 0xFFFF. Earlier mappings of the same
		pages are replaced.
	*/

	if int(addr)%z80PageSize != 0 || len(data)%z80PageSize != 0 {
		return fmt.Errorf("map %04X+%X: not aligned to %d byte pages", addr, len(data), z80PageSize)
	}
	if int(addr)+len(data) > z80AddressSpace {
		return fmt.Errorf("map %04X+%X: runs past the end of the address space", addr, len(data))
	}
	first := int(addr) >> z80PageShift
	for i := 0; i < len(data)/z80PageSize; i++ {
		m.pages[first+i] = memoryPage{
			data:     data[i*z80PageSize : (i+1)*z80PageSize],
			writable: writable,
		}
	}
	return nil
}

// Unmap releases the pages covering [addr, addr+size).
func (m *Memory) Unmap(addr uint16, size int) {
	first := int(addr) >> z80PageShift
	last := (int(addr) + size - 1) >> z80PageShift
	for p := first; p <= last && p < z80PageCount; p++ {
		m.pages[p] = memoryPage{}
	}
}

func (m *Memory) UnmapAll() {
	for i := range m.pages {
		m.pages[i] = memoryPage{}
	}
}

func (m *Memory) IsMapped(addr uint16) bool {
	return m.pages[addr>>z80PageShift].data != nil
}

func (m *Memory) IsWritable(addr uint16) bool {
	p := &m.pages[addr>>z80PageShift]
	return p.data != nil && p.writable
}

func (m *Memory) Read(addr uint16) byte {
	p := &m.pages[addr>>z80PageShift]
	if p.data == nil {
		return openBusValue
	}
	return p.data[addr&(z80PageSize-1)]
}

func (m *Memory) Write(addr uint16, value byte) {
	p := &m.pages[addr>>z80PageShift]
	if !p.writable {
		return
	}
	p.data[addr&(z80PageSize-1)] = value
}

// Read16 reads a little-endian word. The high byte wraps from 0xFFFF to 0x0000.
func (m *Memory) Read16(addr uint16) uint16 {
	return uint16(m.Read(addr)) | uint16(m.Read(addr+1))<<8
}

func (m *Memory) Write16(addr uint16, value uint16) {
	m.Write(addr, byte(value))
	m.Write(addr+1, byte(value>>8))
}

func (m *Memory) ReadSigned(addr uint16) int8 {
	return int8(m.Read(addr))
}

func (m *Memory) ReadBlock(addr uint16, n int) []byte {
	/*
		ReadBlock copies n bytes of the CPU view starting at addr, wrapping
		at the top of the address space. Used by the disassembler and by
		snapshot capture.
	*/

	out := make([]byte, n)
	for i := range out {
		out[i] = m.Read(addr + uint16(i))
	}
	return out
}

// WriteBlock stores data through the CPU view; ROM and unmapped pages keep
// their contents.
func (m *Memory) WriteBlock(addr uint16, data []byte) {
	for i, v := range data {
		m.Write(addr+uint16(i), v)
	}
}
