//go:build windows

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// TerminalHost reads raw stdin and feeds bytes into the console device.
// Only instantiated in main.go for interactive use - never in tests.
type TerminalHost struct {
	console      *ConsoleDevice
	fd           int
	oldTermState *term.State
}

func NewTerminalHost(console *ConsoleDevice) *TerminalHost {
	return &TerminalHost{console: console}
}

// Start puts the console into raw mode. Call Stop to undo it.
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
	return nil
}

// Run copies stdin into the console. Reads block on Windows, so the reader
// goroutine is abandoned rather than joined once ctx is cancelled.
func (h *TerminalHost) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				b := buf[0]
				if b == '\r' {
					b = '\n'
				}
				if b == 0x7F {
					b = 0x08
				}
				h.console.EnqueueByte(b)
			}
			if err == io.EOF {
				errCh <- nil
				return
			}
			if err != nil {
				errCh <- fmt.Errorf("terminal_host: read stdin: %w", err)
				return
			}
		}
	}()
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// IsRaw reports whether stdin is a terminal that Start switched to raw mode.
func (h *TerminalHost) IsRaw() bool {
	return h.oldTermState != nil
}

func (h *TerminalHost) Stop() {
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
