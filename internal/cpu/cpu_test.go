package cpu

import "testing"

// fakeBus is a minimal Bus double: every address reads as a NOP-shaped
// word (0) unless overridden, and never faults. Tests that exercise the
// pipeline only care about what Step does with the instruction they hand
// it through fakeDecoder, not about realistic fetched bytes.
type fakeBus struct{}

func (fakeBus) FetchWord(addr uint32) (uint32, error)    { return 0, nil }
func (fakeBus) ReadByte(addr uint32) (uint8, error)       { return 0, nil }
func (fakeBus) ReadHalf(addr uint32) (uint16, error)      { return 0, nil }
func (fakeBus) ReadWord(addr uint32) (uint32, error)      { return 0, nil }
func (fakeBus) WriteByte(addr uint32, v uint8) error      { return nil }
func (fakeBus) WriteHalf(addr uint32, v uint16) error     { return nil }
func (fakeBus) WriteWord(addr uint32, v uint32) error     { return nil }

// testInstr is a hand-built Decoded value letting each test drive the
// executor directly with one instruction, without a real decoder.
type testInstr struct {
	cond       Condition
	class      OpcodeClass
	dpop       DPOp
	rm, rn, rd, rs uint8
	setFlags   bool
	accumulate bool
	signed     bool
	link       bool
	spsr       bool
	offset     int32
	operand    uint32 // fixed operand2 value this test wants, flags unchanged
	carry      bool
	msrSrc     uint32
}

func (i testInstr) Condition() Condition      { return i.cond }
func (i testInstr) Opcode() OpcodeClass       { return i.class }
func (i testInstr) DPOp() DPOp                { return i.dpop }
func (i testInstr) Rm() uint8                 { return i.rm }
func (i testInstr) Rn() uint8                 { return i.rn }
func (i testInstr) Rd() uint8                 { return i.rd }
func (i testInstr) Rs() uint8                 { return i.rs }
func (i testInstr) IsSettingFlags() bool      { return i.setFlags }
func (i testInstr) IsAccumulating() bool      { return i.accumulate }
func (i testInstr) IsSigned() bool            { return i.signed }
func (i testInstr) IsBranchWithLink() bool    { return i.link }
func (i testInstr) IsAccessingSPSR() bool     { return i.spsr }
func (i testInstr) BranchOffset() int32       { return i.offset }
func (i testInstr) ShiftOperand(r *Registers) uint32 { return i.operand }
func (i testInstr) ShiftOperandCarry(r *Registers) (uint32, bool) {
	return i.operand, i.carry
}
func (i testInstr) MSRSource(r *Registers) uint32 { return i.msrSrc }

func newTestCPU() *CPU {
	return New(fakeBus{}, func(uint32) (Decoded, error) { return nil, nil })
}

// TestBranchWithLink matches spec.md §8 scenario 1: PC=0x08 (R15 reads
// as 0x10 after prefetch), BL +0x100. Expect R14=0x0C, PC=0x110.
func TestBranchWithLink(t *testing.T) {
	c := newTestCPU()
	c.regs.SetR(15, 0x08)
	instr := testInstr{cond: CondAL, class: OpB_BL, link: true, offset: 0x100}

	if err := c.execute(instr, 0x08); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := c.regs.R(14); got != 0x0C {
		t.Errorf("R14 = %#x, want 0xc", got)
	}
	if got := c.regs.RawR15(); got != 0x110 {
		t.Errorf("PC = %#x, want 0x110", got)
	}
	if !c.flushed {
		t.Errorf("branch must flush the pipeline")
	}
}

// TestADDSOverflow matches spec.md §8 scenario 2.
func TestADDSOverflow(t *testing.T) {
	c := newTestCPU()
	c.regs.SetR(1, 0x7FFFFFFF)
	instr := testInstr{cond: CondAL, class: OpDataProcessing, dpop: DPAdd, setFlags: true, rn: 1, rd: 0, operand: 1}

	if err := c.execute(instr, 0); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := c.regs.R(0); got != 0x80000000 {
		t.Errorf("R0 = %#x, want 0x80000000", got)
	}
	cpsr := c.regs.CPSR()
	if !cpsr.FlagN() || cpsr.FlagZ() || cpsr.FlagC() || !cpsr.FlagV() {
		t.Errorf("flags N=%v Z=%v C=%v V=%v, want N=1 Z=0 C=0 V=1",
			cpsr.FlagN(), cpsr.FlagZ(), cpsr.FlagC(), cpsr.FlagV())
	}
}

// TestSUBSNoBorrow matches spec.md §8 scenario 3.
func TestSUBSNoBorrow(t *testing.T) {
	c := newTestCPU()
	c.regs.SetR(1, 5)
	instr := testInstr{cond: CondAL, class: OpDataProcessing, dpop: DPSub, setFlags: true, rn: 1, rd: 0, operand: 3}

	if err := c.execute(instr, 0); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := c.regs.R(0); got != 2 {
		t.Errorf("R0 = %d, want 2", got)
	}
	cpsr := c.regs.CPSR()
	if cpsr.FlagN() || cpsr.FlagZ() || !cpsr.FlagC() || cpsr.FlagV() {
		t.Errorf("flags N=%v Z=%v C=%v V=%v, want N=0 Z=0 C=1 V=0",
			cpsr.FlagN(), cpsr.FlagZ(), cpsr.FlagC(), cpsr.FlagV())
	}
}

// TestSWIEntry matches spec.md §8 scenario 4.
func TestSWIEntry(t *testing.T) {
	c := newTestCPU()
	c.regs.SetCPSR(CPSR(ModeUser))
	c.regs.SetR(15, 0x200)

	c.raiseException(ExceptionSoftwareInterrupt, 0x200)

	if c.regs.Mode() != ModeSupervisor {
		t.Errorf("mode = %v, want Supervisor", c.regs.Mode())
	}
	if got := c.regs.RawR15(); got != 0x08 {
		t.Errorf("PC = %#x, want 0x08", got)
	}
	if !c.regs.CPSR().IRQDisabled() {
		t.Errorf("I must be set on exception entry")
	}
	if got := c.regs.SPSR(); got.Mode() != ModeUser {
		t.Errorf("SPSR_svc should have saved the pre-exception CPSR (User mode), got mode %v", got.Mode())
	}
	if got := c.regs.R(14); got != 0x204 {
		t.Errorf("R14_svc (return address) = %#x, want 0x204 (PC+4)", got)
	}
}

// TestModeBankSwap matches spec.md §8 scenario 5.
func TestModeBankSwap(t *testing.T) {
	c := newTestCPU()
	c.regs.SetCPSR(CPSR(ModeUser))
	c.regs.SetR(13, 0xAAAA)
	c.regs.r13Bank[bankIndex[ModeFIQ]] = 0xBBBB

	target := c.regs.CPSR().WithMode(ModeFIQ)
	c.regs.changeMode(target, nil)

	if got := c.regs.R(13); got != 0xBBBB {
		t.Errorf("visible R13 = %#x, want 0xbbbb (FIQ bank)", got)
	}
	if got := c.regs.r13Bank[bankIndex[ModeUser]]; got != 0xAAAA {
		t.Errorf("saved R13_usr = %#x, want 0xaaaa", got)
	}
}

// TestModeRoundTrip: User -> FIQ -> User restores R13/R14 and R8..R12.
func TestModeRoundTrip(t *testing.T) {
	c := newTestCPU()
	c.regs.SetCPSR(CPSR(ModeUser))
	c.regs.SetR(13, 0x1111)
	c.regs.SetR(14, 0x2222)
	for i := uint8(8); i <= 12; i++ {
		c.regs.SetR(i, uint32(i)*0x100)
	}

	c.regs.changeMode(c.regs.CPSR().WithMode(ModeFIQ), nil)
	c.regs.SetR(13, 0x3333) // mutate while in FIQ
	c.regs.changeMode(c.regs.CPSR().WithMode(ModeUser), nil)

	if got := c.regs.R(13); got != 0x1111 {
		t.Errorf("R13 after round trip = %#x, want 0x1111", got)
	}
	if got := c.regs.R(14); got != 0x2222 {
		t.Errorf("R14 after round trip = %#x, want 0x2222", got)
	}
	for i := uint8(8); i <= 12; i++ {
		if got := c.regs.R(i); got != uint32(i)*0x100 {
			t.Errorf("R%d after round trip = %#x, want %#x", i, got, uint32(i)*0x100)
		}
	}
}

// TestMSRFlagsInUserMode matches spec.md §8 scenario 6.
func TestMSRFlagsInUserMode(t *testing.T) {
	c := newTestCPU()
	c.regs.SetCPSR(CPSR(0x10)) // User mode, no flags
	instr := testInstr{cond: CondAL, class: OpMSR_Flags, msrSrc: 0xF0000055}

	if err := c.execute(instr, 0); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := c.regs.CPSR().Raw(); got != 0xF0000010 {
		t.Errorf("CPSR = %#08x, want 0xf0000010", got)
	}
}

func TestMRSSPSRInUserModeIsPrivileged(t *testing.T) {
	c := newTestCPU()
	c.regs.SetCPSR(CPSR(ModeUser))
	instr := testInstr{cond: CondAL, class: OpMRS, spsr: true, rd: 0}

	err := c.execute(instr, 0)
	if err == nil {
		t.Fatalf("expected PrivilegedUserCode error, got nil")
	}
	f, ok := err.(*Fault)
	if !ok || f.Kind != FaultPrivilegedUserCode {
		t.Errorf("got %v, want a PrivilegedUserCode Fault", err)
	}
}

func TestFailingConditionHasNoSideEffects(t *testing.T) {
	c := newTestCPU()
	c.regs.SetR(0, 0x1234)
	c.regs.SetCPSR(CPSR(0)) // Z clear
	instr := testInstr{cond: CondEQ, class: OpDataProcessing, dpop: DPMov, setFlags: true, rd: 0, operand: 0x9999}

	if err := c.execute(instr, 0); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := c.regs.R(0); got != 0x1234 {
		t.Errorf("R0 changed despite failing condition: got %#x", got)
	}
	if c.regs.CPSR().FlagZ() {
		t.Errorf("flags changed despite failing condition")
	}
}

func TestReset(t *testing.T) {
	c := newTestCPU()
	c.Reset()
	r := c.regs
	if r.RawR15() != 0 {
		t.Errorf("PC = %#x, want 0", r.RawR15())
	}
	if r.Mode() != ModeSupervisor {
		t.Errorf("mode = %v, want Supervisor", r.Mode())
	}
	if r.CPSR().State() != StateARM {
		t.Errorf("state = %v, want ARM", r.CPSR().State())
	}
	if !r.CPSR().IRQDisabled() || !r.CPSR().FIQDisabled() {
		t.Errorf("I and F must both be set after reset")
	}
}
