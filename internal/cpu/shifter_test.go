package cpu

import "testing"

func TestShiftLSL(t *testing.T) {
	v, c := Shift(ShiftLSL, 0x80000001, 32, true, false)
	if v != 0 || !c {
		t.Errorf("LSL by 32: got (%#x,%v), want (0,true) — carry = bit 0 of input", v, c)
	}
	v, c = Shift(ShiftLSL, 0xFFFFFFFF, 33, true, false)
	if v != 0 || c {
		t.Errorf("LSL by >32: got (%#x,%v), want (0,false)", v, c)
	}
	v, c = Shift(ShiftLSL, 1, 0, true, true)
	if v != 1 || !c {
		t.Errorf("LSL #0 passes value through with carry unchanged: got (%#x,%v)", v, c)
	}
}

func TestShiftLSRImmediateZeroMeansShiftBy32(t *testing.T) {
	v, c := Shift(ShiftLSR, 0x80000000, 0, true, false)
	if v != 0 || !c {
		t.Errorf("LSR #0 (imm) == shift by 32: got (%#x,%v), want (0,true)", v, c)
	}
}

func TestShiftASRImmediateZeroMeansShiftBy32(t *testing.T) {
	v, c := Shift(ShiftASR, 0x80000000, 0, true, false)
	if v != 0xFFFFFFFF || !c {
		t.Errorf("ASR #0 (imm) on negative == shift by 32 sign-extend: got (%#x,%v)", v, c)
	}
	v, c = Shift(ShiftASR, 0x7FFFFFFF, 0, true, true)
	if v != 0 || c {
		t.Errorf("ASR #0 (imm) on positive == shift by 32: got (%#x,%v)", v, c)
	}
}

func TestShiftRORImmediateZeroMeansRRX(t *testing.T) {
	v, c := Shift(ShiftROR, 0x00000001, 0, true, true)
	if v != 0x80000000 || !c {
		t.Errorf("ROR #0 == RRX: got (%#x,%v), want (0x80000000,true)", v, c)
	}
	v, c = Shift(ShiftROR, 0x00000002, 0, true, false)
	if v != 0x00000001 || c {
		t.Errorf("RRX no carry in: got (%#x,%v), want (1,false)", v, c)
	}
}

func TestShiftRegisterSourcedZeroIsPassThrough(t *testing.T) {
	for _, st := range []ShiftType{ShiftLSR, ShiftASR, ShiftROR} {
		v, c := Shift(st, 0x12345678, 0, false, true)
		if v != 0x12345678 || !c {
			t.Errorf("register-sourced shift by 0 (type %v) must pass through: got (%#x,%v)", st, v, c)
		}
	}
}

func TestShiftROR(t *testing.T) {
	v, c := Shift(ShiftROR, 0x00000003, 1, true, false)
	if v != 0x80000001 || !c {
		t.Errorf("ROR #1 of 3: got (%#x,%v), want (0x80000001,true)", v, c)
	}
}
