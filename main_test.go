package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseUint16Flag(t *testing.T) {
	tests := []struct {
		in   string
		want uint16
		ok   bool
	}{
		{"0x0100", 0x0100, true},
		{"256", 256, true},
		{"0xFFFF", 0xFFFF, true},
		{"0x10000", 0, false},
		{"-1", 0, false},
		{"zz", 0, false},
	}
	for _, tc := range tests {
		got, err := parseUint16Flag(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("parseUint16Flag(%q) = %04X, %v", tc.in, got, err)
		}
	}
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSetupProgramLoadsAndEnters(t *testing.T) {
	path := writeTempFile(t, "prog.bin", []byte{0x3E, 0x42, 0x76})

	m := newTestMachine(t, nil)
	err := setupProgram(m, options{loadFile: path, loadAddr: "0x2000", entryAddr: "0x2001"})
	if err != nil {
		t.Fatalf("setupProgram: %v", err)
	}
	if v := m.Memory.Read(0x2000); v != 0x3E {
		t.Fatalf("program byte = %02X", v)
	}
	if m.CPU.PC != 0x2001 {
		t.Fatalf("PC = %04X, want 2001", m.CPU.PC)
	}
}

func TestSetupProgramCPMDefaults(t *testing.T) {
	path := writeTempFile(t, "prog.com", []byte{0xC9})

	m := newTestMachine(t, func(cfg *MachineConfig) { cfg.CPM = true })
	if err := setupProgram(m, options{loadFile: path, cpm: true}); err != nil {
		t.Fatalf("setupProgram: %v", err)
	}
	if m.CPU.PC != cpmTPA || m.Memory.Read(cpmTPA) != 0xC9 {
		t.Fatalf("PC = %04X, TPA byte = %02X", m.CPU.PC, m.Memory.Read(cpmTPA))
	}
	if m.Memory.Read(cpmBDOSEntry) != 0xC9 {
		t.Fatal("BDOS entry not prepared")
	}
}

func TestSetupProgramErrors(t *testing.T) {
	m := newTestMachine(t, nil)
	if err := setupProgram(m, options{loadFile: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("missing program accepted")
	}
	path := writeTempFile(t, "prog.bin", []byte{0x00})
	if err := setupProgram(m, options{loadFile: path, loadAddr: "nope"}); err == nil {
		t.Fatal("bad load address accepted")
	}
	if err := setupProgram(m, options{loadState: path}); err == nil {
		t.Fatal("garbage snapshot accepted")
	}
}

func TestSetupProgramRestoresState(t *testing.T) {
	src := newTestMachine(t, nil)
	src.CPU.PC = 0x4321
	src.Memory.Write(0x3000, 0x5A)
	path := filepath.Join(t.TempDir(), "state.kcz")
	if err := SaveStateToFile(src.CaptureState(), path); err != nil {
		t.Fatal(err)
	}

	m := newTestMachine(t, nil)
	if err := setupProgram(m, options{loadState: path}); err != nil {
		t.Fatalf("setupProgram: %v", err)
	}
	if m.CPU.PC != 0x4321 || m.Memory.Read(0x3000) != 0x5A {
		t.Fatalf("state not restored: PC=%04X mem=%02X", m.CPU.PC, m.Memory.Read(0x3000))
	}
}
