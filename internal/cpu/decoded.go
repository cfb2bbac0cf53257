package cpu

// OpcodeClass tags the instruction-shape a Decoded value carries.
type OpcodeClass uint8

const (
	OpBX OpcodeClass = iota
	OpB_BL
	OpMUL_MLA
	OpMULL_MLAL
	OpDataProcessing
	OpMRS
	OpMSR_Reg
	OpMSR_Flags
	OpLDR_STR // external boundary; the core only recognizes, never executes
	OpSWI     // supplemented: triggers the SoftwareInterrupt exception
)

// DPOp is the data-processing operation selector (spec.md §4.7 table).
type DPOp uint8

const (
	DPAnd DPOp = iota
	DPEor
	DPSub
	DPRsb
	DPAdd
	DPAdc
	DPSbc
	DPRsc
	DPTst
	DPTeq
	DPCmp
	DPCmn
	DPOrr
	DPMov
	DPBic
	DPMvn
)

// IsTestOp reports whether op is TST/TEQ/CMP/CMN — illegal without the
// S-bit, and never writes Rd even though it does consume one.
func (op DPOp) IsTestOp() bool {
	switch op {
	case DPTst, DPTeq, DPCmp, DPCmn:
		return true
	default:
		return false
	}
}

// IsLogical reports whether op belongs to the logical family (flag
// update uses the shifter's carry-out, V unchanged) as opposed to the
// arithmetic family (flag update computes its own carry/overflow).
func (op DPOp) IsLogical() bool {
	switch op {
	case DPAnd, DPEor, DPTst, DPTeq, DPOrr, DPMov, DPBic, DPMvn:
		return true
	default:
		return false
	}
}

// Decoded is the boundary the executor consumes from an external
// decoder (spec.md §6). Shift operands are resolved by the decoder's
// helpers, which see the current register file and C flag, so the
// executor never has to know whether an operand came from an immediate
// or a register-specified shift.
type Decoded interface {
	Condition() Condition
	Opcode() OpcodeClass
	DPOp() DPOp

	Rm() uint8
	Rn() uint8
	Rd() uint8
	Rs() uint8

	IsSettingFlags() bool
	IsAccumulating() bool
	IsSigned() bool
	IsBranchWithLink() bool
	IsAccessingSPSR() bool

	BranchOffset() int32

	// ShiftOperand returns the second operand's value with no carry-out
	// computed (used when the instruction doesn't set flags).
	ShiftOperand(regs *Registers) uint32
	// ShiftOperandCarry returns the second operand's value and the
	// shifter carry-out (used when S is set and the op is logical).
	ShiftOperandCarry(regs *Registers) (uint32, bool)

	// MSRSource returns the 32-bit value MSR_Reg/MSR_Flags writes into
	// the target PSR: a register's value, or an immediate per decode.
	MSRSource(regs *Registers) uint32
}
