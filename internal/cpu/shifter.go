package cpu

// ShiftType is the barrel shifter's operation selector.
type ShiftType uint8

const (
	ShiftLSL ShiftType = iota
	ShiftLSR
	ShiftASR
	ShiftROR
)

// Shift computes a shifted operand and the shifter carry-out, per
// spec.md §4.6. amount is the shift amount (already resolved by the
// caller from either an immediate or Rs's low byte); immediate is true
// when amount came from the instruction's immediate shift field, which
// changes how a zero amount is interpreted (LSR/ASR 0 means shift by
// 32, ROR 0 means RRX) — a register-sourced shift amount of zero is
// instead a true no-op that passes the value through with the current C
// flag as carry-out.
func Shift(t ShiftType, value uint32, amount uint32, immediate bool, carryIn bool) (result uint32, carryOut bool) {
	switch t {
	case ShiftLSL:
		return shiftLSL(value, amount, carryIn)
	case ShiftLSR:
		return shiftLSR(value, amount, immediate, carryIn)
	case ShiftASR:
		return shiftASR(value, amount, immediate, carryIn)
	case ShiftROR:
		return shiftROR(value, amount, immediate, carryIn)
	default:
		return value, carryIn
	}
}

func shiftLSL(value uint32, amount uint32, carryIn bool) (uint32, bool) {
	switch {
	case amount == 0:
		return value, carryIn
	case amount < 32:
		carryOut := (value>>(32-amount))&1 != 0
		return value << amount, carryOut
	case amount == 32:
		return 0, value&1 != 0
	default: // amount > 32
		return 0, false
	}
}

func shiftLSR(value uint32, amount uint32, immediate bool, carryIn bool) (uint32, bool) {
	if amount == 0 {
		if !immediate {
			return value, carryIn
		}
		// LSR #0 is encoded as "shift by 32".
		amount = 32
	}
	switch {
	case amount < 32:
		carryOut := (value>>(amount-1))&1 != 0
		return value >> amount, carryOut
	case amount == 32:
		return 0, value&0x80000000 != 0
	default:
		return 0, false
	}
}

func shiftASR(value uint32, amount uint32, immediate bool, carryIn bool) (uint32, bool) {
	if amount == 0 {
		if !immediate {
			return value, carryIn
		}
		amount = 32
	}
	sv := int32(value)
	if amount >= 32 {
		if sv < 0 {
			return 0xFFFFFFFF, true
		}
		return 0, false
	}
	carryOut := (value>>(amount-1))&1 != 0
	return uint32(sv >> amount), carryOut
}

func shiftROR(value uint32, amount uint32, immediate bool, carryIn bool) (uint32, bool) {
	if amount == 0 {
		if !immediate {
			return value, carryIn
		}
		// ROR #0 is encoded as RRX: rotate right through carry by one.
		return rrx(value, carryIn)
	}
	amount %= 32
	if amount == 0 {
		return value, value&0x80000000 != 0
	}
	result := (value >> amount) | (value << (32 - amount))
	carryOut := (value>>(amount-1))&1 != 0
	return result, carryOut
}

func rrx(value uint32, carryIn bool) (uint32, bool) {
	result := value >> 1
	if carryIn {
		result |= 0x80000000
	}
	return result, value&1 != 0
}
