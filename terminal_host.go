//go:build !windows

package main

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"
)

// TerminalHost reads raw stdin and feeds bytes into the console device.
// Only instantiated in main.go for interactive use, never in tests.
type TerminalHost struct {
	console      *ConsoleDevice
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

func NewTerminalHost(console *ConsoleDevice) *TerminalHost {
	return &TerminalHost{console: console}
}

// Start puts stdin into raw, non-blocking mode. Call Stop to undo it.
func (h *TerminalHost) Start() error {
	h.fd = int(os.Stdin.Fd())
	if !term.IsTerminal(h.fd) {
		return nil
	}

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		return fmt.Errorf("terminal_host: raw mode: %w", err)
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		return fmt.Errorf("terminal_host: nonblocking stdin: %w", err)
	}
	h.nonblockSet = true
	return nil
}

// Run copies stdin into the console until ctx is cancelled or stdin closes.
func (h *TerminalHost) Run(ctx context.Context) error {
	if !h.nonblockSet {
		<-ctx.Done()
		return nil
	}
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := syscall.Read(h.fd, buf)
		if n > 0 {
			b := buf[0]
			// raw mode sends CR for Enter
			if b == '\r' {
				b = '\n'
			}
			// DEL for Backspace
			if b == 0x7F {
				b = 0x08
			}
			h.console.EnqueueByte(b)
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || (err == nil && n == 0) {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return fmt.Errorf("terminal_host: read stdin: %w", err)
		}
	}
}

// IsRaw reports whether stdin is a terminal that Start switched to raw mode.
func (h *TerminalHost) IsRaw() bool {
	return h.oldTermState != nil
}

// Stop restores stdin.
func (h *TerminalHost) Stop() {
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
