// cpu_z80_alu.go - Z80 flag algebra and ALU primitives

package main

// Every helper in this file is pure: it takes operands and the incoming F
// and returns the result together with the complete new F.

const (
	z80FlagS  = 0x80
	z80FlagZ  = 0x40
	z80FlagY  = 0x20
	z80FlagH  = 0x10
	z80FlagX  = 0x08
	z80FlagPV = 0x04
	z80FlagN  = 0x02
	z80FlagC  = 0x01

	z80FlagsXY = z80FlagX | z80FlagY
)

var (
	// S, Z, Y and X for every byte value
	z80SZ [256]byte
	// z80SZ plus even parity in P/V
	z80SZP [256]byte
)

func init() {
	for i := 0; i < 256; i++ {
		v := byte(i)
		f := v & (z80FlagS | z80FlagsXY)
		if v == 0 {
			f |= z80FlagZ
		}
		z80SZ[i] = f
		if parity8(v) {
			f |= z80FlagPV
		}
		z80SZP[i] = f
	}
}

func parity8(value byte) bool {
	value ^= value >> 4
	value ^= value >> 2
	value ^= value >> 1
	return value&1 == 0
}

func boolFlag(on bool, mask byte) byte {
	if on {
		return mask
	}
	return 0
}

// szp returns the sign/zero/parity bundle used by AND, OR and XOR.
func szp(value byte) byte {
	return z80SZP[value]
}

func add8(a, b byte) (byte, byte) {
	return adc8(a, b, 0)
}

func adc8(a, b, carry byte) (byte, byte) {
	sum := uint16(a) + uint16(b) + uint16(carry&1)
	r := byte(sum)
	f := z80SZ[r]
	f |= boolFlag(sum > 0xFF, z80FlagC)
	f |= (a ^ b ^ r) & z80FlagH
	f |= boolFlag((a^r)&(b^r)&0x80 != 0, z80FlagPV)
	return r, f
}

func sub8(a, b byte) (byte, byte) {
	return sbc8(a, b, 0)
}

func sbc8(a, b, carry byte) (byte, byte) {
	diff := int(a) - int(b) - int(carry&1)
	r := byte(diff)
	f := z80SZ[r] | z80FlagN
	f |= boolFlag(diff < 0, z80FlagC)
	f |= (a ^ b ^ r) & z80FlagH
	f |= boolFlag((a^b)&(a^r)&0x80 != 0, z80FlagPV)
	return r, f
}

// cp8 is sub8 with Y/X taken from the operand, not the difference.
func cp8(a, b byte) byte {
	_, f := sub8(a, b)
	return f&^z80FlagsXY | b&z80FlagsXY
}

func and8(a, b byte) (byte, byte) {
	r := a & b
	return r, z80SZP[r] | z80FlagH
}

func xor8(a, b byte) (byte, byte) {
	r := a ^ b
	return r, z80SZP[r]
}

func or8(a, b byte) (byte, byte) {
	r := a | b
	return r, z80SZP[r]
}

func inc8(value, f byte) (byte, byte) {
	r := value + 1
	nf := f&z80FlagC | z80SZ[r]
	nf |= boolFlag(value&0x0F == 0x0F, z80FlagH)
	nf |= boolFlag(r == 0x80, z80FlagPV)
	return r, nf
}

func dec8(value, f byte) (byte, byte) {
	r := value - 1
	nf := f&z80FlagC | z80SZ[r] | z80FlagN
	nf |= boolFlag(value&0x0F == 0x00, z80FlagH)
	nf |= boolFlag(value == 0x80, z80FlagPV)
	return r, nf
}

func daa(a, f byte) (byte, byte) {
	var adj byte
	carry := f&z80FlagC != 0
	if f&z80FlagH != 0 || a&0x0F > 0x09 {
		adj |= 0x06
	}
	if carry || a > 0x99 {
		adj |= 0x60
		carry = true
	}

	var r byte
	if f&z80FlagN != 0 {
		r = a - adj
	} else {
		r = a + adj
	}
	nf := z80SZP[r] | f&z80FlagN
	nf |= (a ^ r) & z80FlagH
	nf |= boolFlag(carry, z80FlagC)
	return r, nf
}

func cpl8(a, f byte) (byte, byte) {
	r := ^a
	return r, f&(z80FlagS|z80FlagZ|z80FlagPV|z80FlagC) | z80FlagH | z80FlagN | r&z80FlagsXY
}

func neg8(a byte) (byte, byte) {
	return sub8(0, a)
}

func scf8(a, f byte) byte {
	return f&(z80FlagS|z80FlagZ|z80FlagPV) | a&z80FlagsXY | z80FlagC
}

func ccf8(a, f byte) byte {
	nf := f&(z80FlagS|z80FlagZ|z80FlagPV) | a&z80FlagsXY
	if f&z80FlagC != 0 {
		nf |= z80FlagH
	} else {
		nf |= z80FlagC
	}
	return nf
}

// rotateFlags builds F after a rotate or shift. The accumulator forms
// (RLCA, RRCA, RLA, RRA) keep S, Z and P/V; the CB forms recompute them.
func rotateFlags(r, f byte, carry, acc bool) byte {
	var nf byte
	if acc {
		nf = f&(z80FlagS|z80FlagZ|z80FlagPV) | r&z80FlagsXY
	} else {
		nf = z80SZP[r]
	}
	return nf | boolFlag(carry, z80FlagC)
}

func rlc8(value, f byte, acc bool) (byte, byte) {
	r := value<<1 | value>>7
	return r, rotateFlags(r, f, value&0x80 != 0, acc)
}

func rrc8(value, f byte, acc bool) (byte, byte) {
	r := value>>1 | value<<7
	return r, rotateFlags(r, f, value&0x01 != 0, acc)
}

func rl8(value, f byte, acc bool) (byte, byte) {
	r := value<<1 | f&z80FlagC
	return r, rotateFlags(r, f, value&0x80 != 0, acc)
}

func rr8(value, f byte, acc bool) (byte, byte) {
	r := value>>1 | (f&z80FlagC)<<7
	return r, rotateFlags(r, f, value&0x01 != 0, acc)
}

func sla8(value byte) (byte, byte) {
	r := value << 1
	return r, rotateFlags(r, 0, value&0x80 != 0, false)
}

func sra8(value byte) (byte, byte) {
	r := value>>1 | value&0x80
	return r, rotateFlags(r, 0, value&0x01 != 0, false)
}

func srl8(value byte) (byte, byte) {
	r := value >> 1
	return r, rotateFlags(r, 0, value&0x01 != 0, false)
}

// sll8 is the undocumented shift that feeds a 1 into bit 0.
func sll8(value byte) (byte, byte) {
	r := value<<1 | 0x01
	return r, rotateFlags(r, 0, value&0x80 != 0, false)
}

// bit8 tests bit n of value. xy supplies the undocumented Y/X bits: the
// operand itself for register forms, WZ's high byte for memory forms.
func bit8(n uint, value, xy, f byte) byte {
	set := value & (1 << n)
	nf := f&z80FlagC | z80FlagH | xy&z80FlagsXY
	if set == 0 {
		nf |= z80FlagZ | z80FlagPV
	}
	if n == 7 && set != 0 {
		nf |= z80FlagS
	}
	return nf
}

// rrd8 rotates the low nibble of A and the byte at (HL) right by one nibble.
func rrd8(a, m, f byte) (byte, byte, byte) {
	na := a&0xF0 | m&0x0F
	nm := a<<4 | m>>4
	return na, nm, f&z80FlagC | z80SZP[na]
}

func rld8(a, m, f byte) (byte, byte, byte) {
	na := a&0xF0 | m>>4
	nm := m<<4 | a&0x0F
	return na, nm, f&z80FlagC | z80SZP[na]
}

// add16 keeps S, Z and P/V. H comes from bit 11, Y/X from the result's high byte.
func add16(a, b uint16, f byte) (uint16, byte) {
	sum := uint32(a) + uint32(b)
	r := uint16(sum)
	nf := f&(z80FlagS|z80FlagZ|z80FlagPV) | byte(r>>8)&z80FlagsXY
	nf |= boolFlag((a^b^r)&0x1000 != 0, z80FlagH)
	nf |= boolFlag(sum > 0xFFFF, z80FlagC)
	return r, nf
}

func adc16(a, b uint16, f byte) (uint16, byte) {
	sum := uint32(a) + uint32(b) + uint32(f&z80FlagC)
	r := uint16(sum)
	nf := byte(r>>8) & (z80FlagS | z80FlagsXY)
	nf |= boolFlag(r == 0, z80FlagZ)
	nf |= boolFlag((a^b^r)&0x1000 != 0, z80FlagH)
	nf |= boolFlag((a^r)&(b^r)&0x8000 != 0, z80FlagPV)
	nf |= boolFlag(sum > 0xFFFF, z80FlagC)
	return r, nf
}

func sbc16(a, b uint16, f byte) (uint16, byte) {
	diff := int32(a) - int32(b) - int32(f&z80FlagC)
	r := uint16(diff)
	nf := byte(r>>8)&(z80FlagS|z80FlagsXY) | z80FlagN
	nf |= boolFlag(r == 0, z80FlagZ)
	nf |= boolFlag((a^b^r)&0x1000 != 0, z80FlagH)
	nf |= boolFlag((a^b)&(a^r)&0x8000 != 0, z80FlagPV)
	nf |= boolFlag(diff < 0, z80FlagC)
	return r, nf
}

// ldiFlags is F after one LDI/LDD step; value is the byte moved.
func ldiFlags(a, value, f byte, bc uint16) byte {
	n := a + value
	nf := f & (z80FlagS | z80FlagZ | z80FlagC)
	nf |= n & z80FlagX
	nf |= (n << 4) & z80FlagY
	nf |= boolFlag(bc != 0, z80FlagPV)
	return nf
}

// cpiFlags is F after one CPI/CPD step; value is the byte compared.
func cpiFlags(a, value, f byte, bc uint16) byte {
	r, sf := sub8(a, value)
	nf := f&z80FlagC | sf&(z80FlagS|z80FlagZ|z80FlagH) | z80FlagN
	n := r
	if sf&z80FlagH != 0 {
		n--
	}
	nf |= n & z80FlagX
	nf |= (n << 4) & z80FlagY
	nf |= boolFlag(bc != 0, z80FlagPV)
	return nf
}

// blockIOFlags is F after one INI/IND/OUTI/OUTD step. b is the decremented
// B, value the byte transferred and k the carry-producing sum for the form.
func blockIOFlags(b, value byte, k uint16) byte {
	nf := z80SZ[b]
	nf |= boolFlag(value&0x80 != 0, z80FlagN)
	if k > 0xFF {
		nf |= z80FlagH | z80FlagC
	}
	nf |= boolFlag(parity8(byte(k)&0x07^b), z80FlagPV)
	return nf
}
