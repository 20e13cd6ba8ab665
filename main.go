// main.go - Command line front end for the Z80 board

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

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"golang.org/x/sync/errgroup"
)

func boilerPlate() {
	fmt.Println("\nZ80 board emulator: CPU, CTC, PIO and daisy-chained interrupts.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionEngine")
	fmt.Println("License: GPLv3 or later")
}

type options struct {
	romFile   string
	romAddr   string
	loadFile  string
	loadAddr  string
	entryAddr string
	breakAddr string
	loadState string
	saveState string
	maxCycles uint64
	speaker   int
	cpm       bool
	trace     bool
	dump      bool
	throttle  bool
	verbose   bool
	quiet     bool
}

func main() {
	var opts options

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.romFile, "rom", "", "ROM image mapped read-only")
	flagSet.StringVar(&opts.romAddr, "rom-addr", "0xE000", "ROM base address, 1KB aligned (hex or decimal)")
	flagSet.StringVar(&opts.loadAddr, "load-addr", "", "program load address (default 0x0000, 0x0100 with -cpm)")
	flagSet.StringVar(&opts.entryAddr, "entry", "", "entry address (default: load address)")
	flagSet.StringVar(&opts.breakAddr, "break", "", "stop when PC reaches ADDR[:COND], e.g. 0x0150:A==$42")
	flagSet.StringVar(&opts.loadState, "load-state", "", "resume from a snapshot file")
	flagSet.StringVar(&opts.saveState, "save-state", "", "write a snapshot file on exit")
	flagSet.Uint64Var(&opts.maxCycles, "max-cycles", 0, "stop after this many T-states (0 for no limit)")
	flagSet.IntVar(&opts.speaker, "speaker", -1, "CTC channel driving the speaker (-1 for none)")
	flagSet.BoolVar(&opts.cpm, "cpm", false, "run a CP/M .COM program with BDOS console calls")
	flagSet.BoolVar(&opts.trace, "trace", false, "disassemble every instruction to stderr")
	flagSet.BoolVar(&opts.dump, "dump", false, "print registers on exit")
	flagSet.BoolVar(&opts.throttle, "throttle", false, "run at the board's real clock speed")
	flagSet.BoolVar(&opts.verbose, "v", false, "debug logging")
	flagSet.BoolVar(&opts.quiet, "q", false, "no banner")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./z80board [-cpm] [-rom file] [-load-addr 0x0100] [-entry 0x0100] [-trace] [-dump] program.bin")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	opts.loadFile = flagSet.Arg(0)

	if !opts.quiet {
		boilerPlate()
	}
	if opts.loadFile == "" && opts.loadState == "" && opts.romFile == "" {
		fmt.Println("Error: nothing to run, give a program, -rom or -load-state")
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func run(opts options) error {
	logger := newLogger(opts.verbose)

	cfg := DefaultMachineConfig()
	cfg.CPM = opts.cpm
	cfg.Throttle = opts.throttle
	cfg.SpeakerChannel = opts.speaker
	if opts.romFile != "" {
		rom, err := os.ReadFile(opts.romFile)
		if err != nil {
			return fmt.Errorf("reading ROM: %w", err)
		}
		if cfg.ROMAddr, err = parseUint16Flag(opts.romAddr); err != nil {
			return fmt.Errorf("invalid -rom-addr: %w", err)
		}
		cfg.ROM = rom
	}

	m, err := NewMachine(cfg, logger)
	if err != nil {
		return err
	}
	if err := setupProgram(m, opts); err != nil {
		return err
	}

	host := NewTerminalHost(m.Console)
	if err := host.Start(); err != nil {
		return err
	}
	defer host.Stop()
	m.Console.SetCharOutputCallback(func(b byte) {
		if b == '\n' && host.IsRaw() {
			os.Stdout.Write([]byte{'\r', '\n'})
			return
		}
		os.Stdout.Write([]byte{b})
	})

	if opts.trace {
		m.Trace = func(m *Machine, pc uint16) {
			fmt.Fprintln(os.Stderr, disassembleZ80(m.Memory, pc, 1)[0])
		}
	}

	if m.Speaker != nil {
		player, err := NewOtoPlayer(pulseSampleRate)
		if err != nil {
			logger.Warn("audio unavailable, continuing without speaker", "err", err)
		} else {
			player.SetupPlayer(m.Speaker)
			player.Start()
			defer player.Close()
		}
	}

	debugger := NewDebugZ80(m)
	if opts.breakAddr != "" {
		addr, cond, err := ParseBreakpoint(opts.breakAddr)
		if err != nil {
			return fmt.Errorf("invalid -break: %w", err)
		}
		debugger.SetConditionalBreakpoint(addr, cond)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	hostCtx, stopHost := context.WithCancel(gctx)
	g.Go(func() error {
		defer stopHost()
		if len(debugger.ListBreakpoints()) > 0 {
			hit, err := debugger.RunToBreakpoint(gctx, opts.maxCycles)
			if hit {
				logger.Info("breakpoint", "pc", fmt.Sprintf("%04X", m.CPU.PC))
			}
			return err
		}
		return m.Run(gctx, opts.maxCycles)
	})
	g.Go(func() error {
		return host.Run(hostCtx)
	})

	err = g.Wait()
	switch {
	case errors.Is(err, ErrCycleLimit):
		logger.Info("cycle limit reached", "cycles", m.CPU.Cycles)
		err = nil
	case errors.Is(err, context.Canceled):
		err = nil
	}

	if opts.dump {
		host.Stop()
		debugger.Dump(os.Stderr)
	}
	if opts.saveState != "" {
		if serr := SaveStateToFile(m.CaptureState(), opts.saveState); serr != nil {
			return errors.Join(err, fmt.Errorf("saving state: %w", serr))
		}
		logger.Info("state saved", "file", opts.saveState)
	}
	return err
}

// setupProgram either restores a snapshot or loads the program file and
// points PC at its entry.
func setupProgram(m *Machine, opts options) error {
	if opts.loadState != "" {
		state, err := LoadStateFromFile(opts.loadState)
		if err != nil {
			return fmt.Errorf("loading state: %w", err)
		}
		return m.RestoreState(state)
	}

	m.Reset()
	if opts.loadFile == "" {
		m.CPU.PC = m.Config.ROMAddr
		return nil
	}

	program, err := os.ReadFile(opts.loadFile)
	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}
	loadAddr := uint16(0x0000)
	if opts.cpm {
		loadAddr = cpmTPA
	}
	if opts.loadAddr != "" {
		if loadAddr, err = parseUint16Flag(opts.loadAddr); err != nil {
			return fmt.Errorf("invalid -load-addr: %w", err)
		}
	}
	if err := m.LoadProgram(loadAddr, program); err != nil {
		return err
	}

	if opts.cpm {
		m.PrepareCPM()
	}
	m.CPU.PC = loadAddr
	if opts.entryAddr != "" {
		entry, err := parseUint16Flag(opts.entryAddr)
		if err != nil {
			return fmt.Errorf("invalid -entry: %w", err)
		}
		m.CPU.PC = entry
	}
	return nil
}

func parseUint16Flag(value string) (uint16, error) {
	parsed, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, err
	}
	if parsed > 0xFFFF {
		return 0, fmt.Errorf("value out of range: 0x%X", parsed)
	}
	return uint16(parsed), nil
}
