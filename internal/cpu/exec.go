package cpu

import "armcore/util/dbg"

// LoadStoreHandler is the LDR/STR boundary: spec.md §4.7 declares
// memory transfer out of scope for the core and names it only as an
// external collaborator. A CPU runs with no handler by default; set one
// (e.g. a thin adapter over Bus) to exercise transfer instructions end
// to end. Decoding still recognizes OpLDR_STR so the pipeline doesn't
// treat it as InvalidInstruction.
type LoadStoreHandler func(instr Decoded, regs *Registers, bus Bus) error

// SetLoadStoreHandler installs the external LDR/STR collaborator.
func (c *CPU) SetLoadStoreHandler(h LoadStoreHandler) { c.loadStore = h }

// execute dispatches one decoded instruction. addr is the address the
// instruction was fetched from, needed for BL's link value and for
// exceptions raised while executing (SWI, illegal state).
func (c *CPU) execute(instr Decoded, addr uint32) error {
	cpsr := c.regs.CPSR()
	if !instr.Condition().Eval(cpsr) {
		return nil // failing condition: fully skipped, no side effects at all
	}

	switch instr.Opcode() {
	case OpBX:
		return c.execBX(instr)
	case OpB_BL:
		return c.execBranch(instr, addr)
	case OpMUL_MLA:
		return c.execMulMla(instr)
	case OpMULL_MLAL:
		return c.execMullMlal(instr)
	case OpDataProcessing:
		return c.execDataProcessing(instr)
	case OpMRS:
		return c.execMRS(instr)
	case OpMSR_Reg:
		return c.execMSRReg(instr)
	case OpMSR_Flags:
		return c.execMSRFlags(instr)
	case OpLDR_STR:
		if c.loadStore == nil {
			panic("cpu: LDR/STR reached with no LoadStoreHandler installed (external boundary, see spec.md §4.7)")
		}
		return c.loadStore(instr, c.regs, c.bus)
	case OpSWI:
		c.raiseException(ExceptionSoftwareInterrupt, addr)
		return nil
	default:
		c.raiseException(ExceptionUndefinedInstruction, addr)
		return nil
	}
}

func (c *CPU) execBX(instr Decoded) error {
	rm := c.regs.R(instr.Rm())
	newState := StateFromBit(rm&1 != 0)
	c.regs.SetCPSR(c.regs.CPSR().WithState(newState))
	c.flushPipelineTo(rm &^ 1)
	return nil
}

func (c *CPU) execBranch(instr Decoded, addr uint32) error {
	if instr.IsBranchWithLink() {
		c.regs.SetR(14, addr+4)
	}
	target := uint32(int32(addr) + 8 + instr.BranchOffset())
	c.flushPipelineTo(target)
	return nil
}

func (c *CPU) execMulMla(instr Decoded) error {
	rs := c.regs.R(instr.Rs())
	rm := c.regs.R(instr.Rm())
	res := rs * rm
	if instr.IsAccumulating() {
		res += c.regs.R(instr.Rd())
	}
	c.regs.SetR(instr.Rn(), res)

	if instr.IsSettingFlags() {
		cpsr := c.regs.CPSR()
		cpsr = cpsr.WithFlagN(res&0x80000000 != 0).WithFlagZ(res == 0)
		// C is implementation-chosen ("meaningless" per spec.md §4.7);
		// fixed to false for determinism. V is left unchanged.
		cpsr = cpsr.WithFlagC(false)
		c.regs.SetCPSR(cpsr)
	}
	return nil
}

func (c *CPU) execMullMlal(instr Decoded) error {
	rs := c.regs.R(instr.Rs())
	rm := c.regs.R(instr.Rm())

	var result uint64
	if instr.IsSigned() {
		result = uint64(int64(int32(rs)) * int64(int32(rm)))
	} else {
		result = uint64(rs) * uint64(rm)
	}

	if instr.IsAccumulating() {
		acc := uint64(c.regs.R(instr.Rn()))<<32 | uint64(c.regs.R(instr.Rd()))
		result += acc
	}

	hi := uint32(result >> 32)
	lo := uint32(result)
	c.regs.SetR(instr.Rn(), hi)
	c.regs.SetR(instr.Rd(), lo)

	if instr.IsSettingFlags() {
		cpsr := c.regs.CPSR()
		cpsr = cpsr.WithFlagN(result&(1<<63) != 0).WithFlagZ(result == 0)
		// C and V are implementation-chosen ("meaningless"); fixed false.
		cpsr = cpsr.WithFlagC(false).WithFlagV(false)
		c.regs.SetCPSR(cpsr)
	}
	return nil
}

func (c *CPU) execDataProcessing(instr Decoded) error {
	op := instr.DPOp()
	if op.IsTestOp() && !instr.IsSettingFlags() {
		// illegal encoding per spec.md §4.7 ("illegal without S-bit");
		// treated as an ill-formed instruction rather than guessed at.
		c.raiseException(ExceptionUndefinedInstruction, c.decodedAddr)
		return nil
	}

	rn := c.regs.R(instr.Rn())
	carryIn := c.regs.CPSR().FlagC()

	var op2 uint32
	var shiftCarry bool
	if instr.IsSettingFlags() && op.IsLogical() {
		op2, shiftCarry = instr.ShiftOperandCarry(c.regs)
	} else {
		op2 = instr.ShiftOperand(c.regs)
	}

	result, carryOut, overflow := applyDPOp(op, rn, op2, carryIn)

	if !instr.IsSettingFlags() {
		if !op.IsTestOp() {
			c.regs.SetR(instr.Rd(), result)
			if instr.Rd() == 15 {
				c.flushPipelineTo(result)
			}
		}
		return nil
	}

	// S-bit set.
	if instr.Rd() == 15 {
		// Exception return: CPSR is replaced wholesale from the current
		// mode's SPSR; no individual flag rewrite (spec.md §4.7). This is
		// a mode change in its own right (the SPSR's mode field may
		// differ from the current one), so it runs the same banking
		// protocol as MSR and exception entry rather than a bare CPSR
		// overwrite.
		newCPSR := c.regs.CPSR().WriteWhole(uint32(c.regs.SPSR()))
		newMode := newCPSR.Mode()
		if !newMode.Valid() {
			illegalCPUState(newMode)
		}
		if !op.IsTestOp() {
			c.regs.SetR(15, result)
		}
		c.regs.changeMode(newCPSR, nil)
		c.flushPipelineTo(result)
		return nil
	}

	cpsr := c.regs.CPSR().WithFlagN(result&0x80000000 != 0).WithFlagZ(result == 0)
	if op.IsLogical() {
		cpsr = cpsr.WithFlagC(shiftCarry) // V unchanged
	} else {
		cpsr = cpsr.WithFlagC(carryOut).WithFlagV(overflow)
	}
	c.regs.SetCPSR(cpsr)

	if !op.IsTestOp() {
		c.regs.SetR(instr.Rd(), result)
	}
	return nil
}

// applyDPOp computes the result plus the arithmetic-family carry/
// overflow (meaningful only when op is not logical; callers for logical
// ops use the shifter's carry-out instead and ignore these).
//
// ADC/SBC/RSC compute a single three-operand sum/difference rather than
// pre-folding the carry into op2 and calling a two-operand helper — the
// latter can miscompute V when the inner add overflows (spec.md §9).
func applyDPOp(op DPOp, rn, op2 uint32, carryIn bool) (result uint32, carryOut, overflow bool) {
	c := uint32(0)
	if carryIn {
		c = 1
	}
	switch op {
	case DPAnd, DPTst:
		return rn & op2, false, false
	case DPEor, DPTeq:
		return rn ^ op2, false, false
	case DPOrr:
		return rn | op2, false, false
	case DPMov:
		return op2, false, false
	case DPBic:
		return rn &^ op2, false, false
	case DPMvn:
		return ^op2, false, false

	case DPAdd, DPCmn:
		wide := uint64(rn) + uint64(op2)
		res := uint32(wide)
		return res, wide > 0xFFFFFFFF, addOverflow(rn, op2, res)
	case DPAdc:
		wide := uint64(rn) + uint64(op2) + uint64(c)
		res := uint32(wide)
		return res, wide > 0xFFFFFFFF, addOverflow(rn, op2, res)

	case DPSub, DPCmp:
		res := rn - op2
		return res, rn >= op2, subOverflow(rn, op2, res)
	case DPSbc:
		wide := int64(rn) - int64(op2) - int64(1-c)
		res := uint32(wide)
		return res, wide >= 0, subOverflow(rn, op2+(1-c), res)

	case DPRsb:
		res := op2 - rn
		return res, op2 >= rn, subOverflow(op2, rn, res)
	case DPRsc:
		wide := int64(op2) - int64(rn) - int64(1-c)
		res := uint32(wide)
		return res, wide >= 0, subOverflow(op2, rn+(1-c), res)
	}
	return 0, false, false
}

// addOverflow is the signed-overflow law from spec.md §8: V iff
// (Rn ^ result) & (op2 ^ result) & sign bit is nonzero.
func addOverflow(a, b, result uint32) bool {
	return (a^result)&(b^result)&0x80000000 != 0
}

func subOverflow(a, b, result uint32) bool {
	return (a^b)&(a^result)&0x80000000 != 0
}

func (c *CPU) execMRS(instr Decoded) error {
	var value uint32
	if instr.IsAccessingSPSR() {
		if c.regs.Mode() == ModeUser {
			return errPrivilegedUserCode("MRS read of SPSR in User mode")
		}
		value = uint32(c.regs.SPSR())
	} else {
		value = c.regs.CPSR().Raw()
	}
	c.regs.SetR(instr.Rd(), value)
	return nil
}

func (c *CPU) execMSRReg(instr Decoded) error {
	src := instr.MSRSource(c.regs)
	return c.writePSR(instr, src)
}

func (c *CPU) execMSRFlags(instr Decoded) error {
	src := instr.MSRSource(c.regs)
	if instr.IsAccessingSPSR() {
		if c.regs.Mode() == ModeUser {
			return errPrivilegedUserCode("MSR flags-only write to SPSR in User mode")
		}
		c.regs.SetSPSR(c.regs.SPSR().WriteFlags(src))
		return nil
	}
	c.regs.SetCPSR(c.regs.CPSR().WriteFlags(src))
	return nil
}

// writePSR implements MSR_Reg's whole-PSR write (spec.md §4.7): in User
// mode only CPSR's flag bits may be touched and SPSR access fails;
// privileged code may overwrite all non-reserved bits of either PSR,
// and a CPSR write additionally triggers a mode change to bank in the
// new mode's registers.
func (c *CPU) writePSR(instr Decoded, src uint32) error {
	user := c.regs.Mode() == ModeUser

	if instr.IsAccessingSPSR() {
		if user {
			return errPrivilegedUserCode("MSR whole-PSR write to SPSR in User mode")
		}
		c.regs.SetSPSR(c.regs.SPSR().WriteWhole(src))
		return nil
	}

	if user {
		c.regs.SetCPSR(c.regs.CPSR().WriteFlags(src))
		return nil
	}

	oldCPSR := c.regs.CPSR()
	newCPSR := oldCPSR.WriteWhole(src)
	newMode := newCPSR.Mode()
	if !newMode.Valid() {
		illegalCPUState(newMode)
	}

	if oldCPSR.State() != newCPSR.State() {
		dbg.Printf("cpu: MSR changed T bit (%s -> %s)\n", oldCPSR.State(), newCPSR.State())
	}

	if newMode != oldCPSR.Mode() {
		c.regs.changeMode(newCPSR, nil)
	} else {
		c.regs.SetCPSR(newCPSR)
	}
	return nil
}
