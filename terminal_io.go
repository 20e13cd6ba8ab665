package main

import (
	"sync"
)

// Console port layout, relative to the board's console base port.
const (
	consolePortData   = 0x00
	consolePortStatus = 0x01
)

// Console status bits.
const (
	consoleStatusInput  = 0x01 // a byte is waiting on the data port
	consoleStatusOutput = 0x02 // the data port accepts output (always)
)

// ConsoleDevice is the board's serial-style console. The host adapter
// (TerminalHost) and tests feed it through EnqueueByte; the CPU sees it on
// the data and status ports.
type ConsoleDevice struct {
	mu sync.Mutex

	inputBuf  [1024]byte
	inputHead int
	inputTail int
	inputLen  int

	outputBuf []byte

	// onCharOutput, when set, receives output bytes immediately instead of
	// them being buffered. Invoked outside mu.
	onCharOutput func(byte)
}

func NewConsoleDevice() *ConsoleDevice {
	return &ConsoleDevice{
		outputBuf: make([]byte, 0, 256),
	}
}

// SetCharOutputCallback routes output bytes straight to fn.
func (cd *ConsoleDevice) SetCharOutputCallback(fn func(byte)) {
	cd.mu.Lock()
	cd.onCharOutput = fn
	cd.mu.Unlock()
}

// In handles a CPU read of a console port.
func (cd *ConsoleDevice) In(reg byte) byte {
	cd.mu.Lock()
	defer cd.mu.Unlock()

	switch reg {
	case consolePortData:
		if cd.inputLen == 0 {
			return 0
		}
		return cd.dequeueInputByteLocked()
	case consolePortStatus:
		status := byte(consoleStatusOutput)
		if cd.inputLen > 0 {
			status |= consoleStatusInput
		}
		return status
	}
	return 0xFF
}

// Out handles a CPU write to a console port. Only the data port takes writes.
func (cd *ConsoleDevice) Out(reg byte, value byte) {
	if reg != consolePortData {
		return
	}
	_ = cd.WriteByte(value)
}

// WriteByte emits one output byte. The CP/M trap uses it too.
func (cd *ConsoleDevice) WriteByte(value byte) error {
	cd.mu.Lock()
	fn := cd.onCharOutput
	if fn == nil {
		cd.outputBuf = append(cd.outputBuf, value)
	}
	cd.mu.Unlock()
	if fn != nil {
		fn(value)
	}
	return nil
}

// EnqueueByte adds a byte to the input queue. Bytes past the queue's
// capacity are dropped.
func (cd *ConsoleDevice) EnqueueByte(b byte) {
	cd.mu.Lock()
	cd.enqueueInputByteLocked(b)
	cd.mu.Unlock()
}

// NextInput takes the next input byte, if any.
func (cd *ConsoleDevice) NextInput() (byte, bool) {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	if cd.inputLen == 0 {
		return 0, false
	}
	return cd.dequeueInputByteLocked(), true
}

// DrainOutput returns and clears everything written since the last call.
func (cd *ConsoleDevice) DrainOutput() string {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	out := string(cd.outputBuf)
	cd.outputBuf = cd.outputBuf[:0]
	return out
}

func (cd *ConsoleDevice) enqueueInputByteLocked(b byte) {
	if cd.inputLen == len(cd.inputBuf) {
		return
	}
	cd.inputBuf[cd.inputTail] = b
	cd.inputTail = (cd.inputTail + 1) % len(cd.inputBuf)
	cd.inputLen++
}

func (cd *ConsoleDevice) dequeueInputByteLocked() byte {
	b := cd.inputBuf[cd.inputHead]
	cd.inputHead = (cd.inputHead + 1) % len(cd.inputBuf)
	cd.inputLen--
	return b
}
