// debug_conditions.go - Breakpoint condition parser and evaluator for the Z80 debugger

package main

import (
	"fmt"
	"strconv"
	"strings"
)

type ConditionOp int

const (
	CondOpEqual ConditionOp = iota
	CondOpNotEqual
	CondOpLess
	CondOpGreater
	CondOpLessEqual
	CondOpGreaterEqual
)

// two-character operators first so "<=" is not read as "<"
var conditionOps = []struct {
	text string
	op   ConditionOp
}{
	{"==", CondOpEqual},
	{"!=", CondOpNotEqual},
	{"<=", CondOpLessEqual},
	{">=", CondOpGreaterEqual},
	{"<", CondOpLess},
	{">", CondOpGreater},
}

type ConditionSource int

const (
	CondSourceRegister ConditionSource = iota
	CondSourceMemory
	CondSourceHitCount
)

// BreakpointCondition gates a breakpoint on a register, a memory byte or
// the number of times the breakpoint address has been reached.
type BreakpointCondition struct {
	Source  ConditionSource
	RegName string
	MemAddr uint16
	Op      ConditionOp
	Value   uint64
}

// parseDebugValue accepts $FF, 0xFF or decimal.
func parseDebugValue(text string) (uint64, error) {
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, "$"); ok {
		return strconv.ParseUint(rest, 16, 64)
	}
	return strconv.ParseUint(text, 0, 64)
}

// ParseCondition parses a condition string.
// Formats:
//
//	A==$FF        - register A, op ==, value 0xFF
//	[$1000]==$42  - memory at 0x1000, op ==, value 0x42
//	hitcount>10   - hit count, op >, value 10
func ParseCondition(text string) (*BreakpointCondition, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty condition")
	}

	opIdx := -1
	var opText string
	var op ConditionOp
	for _, candidate := range conditionOps {
		if idx := strings.Index(text, candidate.text); idx >= 0 {
			opIdx, opText, op = idx, candidate.text, candidate.op
			break
		}
	}
	if opIdx < 0 {
		return nil, fmt.Errorf("no operator in %q (use ==, !=, <, >, <=, >=)", text)
	}

	lhs := strings.TrimSpace(text[:opIdx])
	rhs := strings.TrimSpace(text[opIdx+len(opText):])
	value, err := parseDebugValue(rhs)
	if err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", rhs, err)
	}

	switch {
	case strings.HasPrefix(lhs, "[") && strings.HasSuffix(lhs, "]"):
		addr, err := parseDebugValue(lhs[1 : len(lhs)-1])
		if err != nil || addr > 0xFFFF {
			return nil, fmt.Errorf("invalid memory address %q", lhs)
		}
		return &BreakpointCondition{Source: CondSourceMemory, MemAddr: uint16(addr), Op: op, Value: value}, nil
	case strings.EqualFold(lhs, "hitcount"):
		return &BreakpointCondition{Source: CondSourceHitCount, Op: op, Value: value}, nil
	case lhs == "":
		return nil, fmt.Errorf("missing left-hand side in %q", text)
	}
	return &BreakpointCondition{Source: CondSourceRegister, RegName: strings.ToUpper(lhs), Op: op, Value: value}, nil
}

// ParseBreakpoint parses "ADDR" or "ADDR:CONDITION" as given to -break.
func ParseBreakpoint(text string) (uint16, *BreakpointCondition, error) {
	addrText, condText, hasCond := strings.Cut(text, ":")
	addr, err := parseDebugValue(addrText)
	if err != nil || addr > 0xFFFF {
		return 0, nil, fmt.Errorf("invalid breakpoint address %q", addrText)
	}
	if !hasCond {
		return uint16(addr), nil, nil
	}
	cond, err := ParseCondition(condText)
	if err != nil {
		return 0, nil, err
	}
	return uint16(addr), cond, nil
}

// evaluate reports whether cond holds. A nil condition always holds;
// an unknown register never does.
func (cond *BreakpointCondition) evaluate(d *DebugZ80, hitCount uint64) bool {
	if cond == nil {
		return true
	}

	var actual uint64
	switch cond.Source {
	case CondSourceRegister:
		val, ok := d.GetRegister(cond.RegName)
		if !ok {
			return false
		}
		actual = val
	case CondSourceMemory:
		actual = uint64(d.m.Memory.Read(cond.MemAddr))
	case CondSourceHitCount:
		actual = hitCount
	}
	return compareValues(actual, cond.Op, cond.Value)
}

func compareValues(actual uint64, op ConditionOp, expected uint64) bool {
	switch op {
	case CondOpEqual:
		return actual == expected
	case CondOpNotEqual:
		return actual != expected
	case CondOpLess:
		return actual < expected
	case CondOpGreater:
		return actual > expected
	case CondOpLessEqual:
		return actual <= expected
	case CondOpGreaterEqual:
		return actual >= expected
	}
	return false
}

func (cond *BreakpointCondition) String() string {
	if cond == nil {
		return ""
	}

	var lhs string
	switch cond.Source {
	case CondSourceRegister:
		lhs = cond.RegName
	case CondSourceMemory:
		lhs = fmt.Sprintf("[$%04X]", cond.MemAddr)
	case CondSourceHitCount:
		lhs = "hitcount"
	}

	opText := "?"
	for _, candidate := range conditionOps {
		if candidate.op == cond.Op {
			opText = candidate.text
			break
		}
	}
	return fmt.Sprintf("%s%s$%X", lhs, opText, cond.Value)
}
