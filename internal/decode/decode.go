// Package decode classifies raw ARM opcode words into the structured
// value the cpu package's executor consumes (the external decoder
// boundary named in spec.md §6). It deliberately knows nothing about
// execution — only bit layout.
package decode

import (
	"fmt"

	"armcore/internal/cpu"
)

// ErrInvalid is wrapped into the returned error for any 32-bit word
// that does not match one of the recognized ARM instruction shapes.
type ErrInvalid struct {
	Word uint32
}

func (e *ErrInvalid) Error() string {
	return fmt.Sprintf("decode: invalid ARM instruction %#08x", e.Word)
}

// instruction is the concrete value behind cpu.Decoded. Fields are
// extracted once at decode time; shift/MSR operands are resolved lazily
// since they depend on the live register file.
type instruction struct {
	word  uint32
	class cpu.OpcodeClass
	dpop  cpu.DPOp

	rn, rd, rs, rm uint8

	setFlags    bool
	accumulate  bool
	signed      bool
	link        bool
	spsr        bool
	immediate   bool // operand2 (or MSR source) is an immediate, not a register
	immShift    uint32
	shiftType   cpu.ShiftType
	regShift    bool // shift amount comes from Rs's low byte, not an immediate
	branchWords int32
}

func (i *instruction) Condition() cpu.Condition    { return cpu.Condition(i.word >> 28 & 0xF) }
func (i *instruction) Opcode() cpu.OpcodeClass      { return i.class }
func (i *instruction) DPOp() cpu.DPOp               { return i.dpop }
func (i *instruction) Rm() uint8                    { return i.rm }
func (i *instruction) Rn() uint8                    { return i.rn }
func (i *instruction) Rd() uint8                    { return i.rd }
func (i *instruction) Rs() uint8                    { return i.rs }
func (i *instruction) IsSettingFlags() bool         { return i.setFlags }
func (i *instruction) IsAccumulating() bool         { return i.accumulate }
func (i *instruction) IsSigned() bool               { return i.signed }
func (i *instruction) IsBranchWithLink() bool       { return i.link }
func (i *instruction) IsAccessingSPSR() bool        { return i.spsr }
func (i *instruction) BranchOffset() int32          { return i.branchWords }

func rotateRight32(v, amount uint32) uint32 {
	amount %= 32
	if amount == 0 {
		return v
	}
	return v>>amount | v<<(32-amount)
}

// operand2 resolves the data-processing/MSR second operand: an
// immediate (rotated 8-bit value) or a shifted register, per spec.md
// §4.6. carryIn feeds ROR #0 / LSL-style pass-through cases that need
// the current C flag rather than a freshly computed one.
func (i *instruction) operand2(regs *cpu.Registers, carryIn bool) (uint32, bool) {
	if i.immediate {
		nn := i.word & 0xFF
		rotate := (i.word >> 8 & 0xF) * 2
		if rotate == 0 {
			return nn, carryIn
		}
		value := rotateRight32(nn, rotate)
		return value, value&0x80000000 != 0
	}

	rm := regs.R(i.rm)
	if i.regShift {
		amount := regs.R(i.rs) & 0xFF
		return cpu.Shift(i.shiftType, rm, amount, false, carryIn)
	}
	return cpu.Shift(i.shiftType, rm, i.immShift, true, carryIn)
}

func (i *instruction) ShiftOperand(regs *cpu.Registers) uint32 {
	v, _ := i.operand2(regs, regs.CPSR().FlagC())
	return v
}

func (i *instruction) ShiftOperandCarry(regs *cpu.Registers) (uint32, bool) {
	return i.operand2(regs, regs.CPSR().FlagC())
}

// MSRSource resolves the value MSR_Reg/MSR_Flags writes into the target
// PSR: a plain register for MSR_Reg, or a register/rotated-immediate
// for MSR_Flags depending on decode.
func (i *instruction) MSRSource(regs *cpu.Registers) uint32 {
	if i.class == cpu.OpMSR_Flags && i.immediate {
		nn := i.word & 0xFF
		rotate := (i.word >> 8 & 0xF) * 2
		if rotate == 0 {
			return nn
		}
		return rotateRight32(nn, rotate)
	}
	return regs.R(i.rm)
}

// ARM decodes a 32-bit ARM-state instruction word. Block data transfer
// (LDM/STM) and single data transfer (LDR/STR) both surface as
// cpu.OpLDR_STR, tagged for the external boundary handler; coprocessor
// instructions are a documented non-goal and are reported invalid.
func ARM(word uint32) (cpu.Decoded, error) {
	switch word >> 25 & 0x7 {
	case 0b000:
		if isBX(word) {
			return decodeBX(word), nil
		}
		if isMultiply(word) {
			return decodeMultiply(word), nil
		}
		if isPSRTransfer(word) {
			return decodePSRTransfer(word)
		}
		return decodeDataProcessing(word), nil
	case 0b001:
		if isPSRTransfer(word) {
			return decodePSRTransfer(word)
		}
		return decodeDataProcessing(word), nil
	case 0b010, 0b011:
		return &instruction{word: word, class: cpu.OpLDR_STR}, nil
	case 0b100:
		return &instruction{word: word, class: cpu.OpLDR_STR}, nil // block data transfer
	case 0b101:
		return decodeBranch(word), nil
	default: // 0b110 coprocessor, 0b111 SWI/coprocessor
		if word>>24&0xF == 0xF {
			return &instruction{word: word, class: cpu.OpSWI}, nil
		}
		return nil, &ErrInvalid{Word: word}
	}
}

func isBX(word uint32) bool {
	return word>>20&0xFF == 0b00010010 && word>>4&0xFFFF == 0xFFF1
}

func decodeBX(word uint32) *instruction {
	return &instruction{word: word, class: cpu.OpBX, rm: uint8(word & 0xF)}
}

// isMultiply matches both MUL/MLA (bits27-22=000000) and MULL/MLAL
// (bits27-23=00001, bit22 the U/S flag) — bits27-24=0000 covers both
// shapes, and bits7-4=1001 is what separates either from a normal
// data-processing instruction with a register-specified shift amount.
func isMultiply(word uint32) bool {
	return word>>4&0xF == 0b1001 && word>>24&0xF == 0
}

func decodeMultiply(word uint32) *instruction {
	long := word>>23&1 != 0
	in := &instruction{
		word:       word,
		setFlags:   word>>20&1 != 0,
		accumulate: word>>21&1 != 0,
		rs:         uint8(word >> 8 & 0xF),
		rm:         uint8(word & 0xF),
	}
	if long {
		in.class = cpu.OpMULL_MLAL
		in.signed = word>>22&1 == 0 // U=0 signed, U=1 unsigned
		in.rn = uint8(word >> 16 & 0xF)
		in.rd = uint8(word >> 12 & 0xF)
	} else {
		in.class = cpu.OpMUL_MLA
		in.rn = uint8(word >> 16 & 0xF) // destination
		in.rd = uint8(word >> 12 & 0xF) // accumulate operand
	}
	return in
}

// isPSRTransfer matches MRS and both MSR forms. The register-operand
// shapes (MRS bits21-20=00, MSR bits21-20=10) share bits27-23=00010; the
// immediate-operand MSR (flags-only, bit25=I=1) instead carries
// bits27-23=00110. Both reuse the TST/TEQ/CMP/CMN data-processing
// opcode's bit pattern (those opcodes' bits24-23 are also "10"), so S
// (bit20) must read 0 here — the test opcodes are only valid with S=1;
// S=0 in that slot is architecturally reserved for PSR transfer instead.
func isPSRTransfer(word uint32) bool {
	if word>>20&1 != 0 {
		return false
	}
	upper := word >> 23 & 0x1F
	if word>>25&1 != 0 {
		return upper == 0b00110 // immediate MSR
	}
	return upper == 0b00010 // MRS or register-operand MSR
}

func decodePSRTransfer(word uint32) (cpu.Decoded, error) {
	spsr := word>>22&1 != 0
	isMSR := word>>21&1 != 0
	if !isMSR {
		return &instruction{word: word, class: cpu.OpMRS, spsr: spsr, rd: uint8(word >> 12 & 0xF)}, nil
	}

	fieldMask := word >> 16 & 0xF
	controlField := fieldMask&0x1 != 0
	immediate := word>>25&1 != 0

	in := &instruction{word: word, spsr: spsr, immediate: immediate}
	if controlField {
		if immediate {
			return nil, &ErrInvalid{Word: word}
		}
		in.class = cpu.OpMSR_Reg
		in.rm = uint8(word & 0xF)
	} else {
		in.class = cpu.OpMSR_Flags
		if immediate {
			in.immShift = word >> 8 & 0xF // rotate amount, in units of 2
			in.word = word
		} else {
			in.rm = uint8(word & 0xF)
		}
	}
	return in, nil
}

var dpOpTable = [16]cpu.DPOp{
	cpu.DPAnd, cpu.DPEor, cpu.DPSub, cpu.DPRsb,
	cpu.DPAdd, cpu.DPAdc, cpu.DPSbc, cpu.DPRsc,
	cpu.DPTst, cpu.DPTeq, cpu.DPCmp, cpu.DPCmn,
	cpu.DPOrr, cpu.DPMov, cpu.DPBic, cpu.DPMvn,
}

func decodeDataProcessing(word uint32) *instruction {
	immediate := word>>25&1 != 0
	in := &instruction{
		word:      word,
		class:     cpu.OpDataProcessing,
		dpop:      dpOpTable[word>>21&0xF],
		setFlags:  word>>20&1 != 0,
		rn:        uint8(word >> 16 & 0xF),
		rd:        uint8(word >> 12 & 0xF),
		immediate: immediate,
	}
	if immediate {
		in.immShift = word >> 8 & 0xF // rotate amount, in units of 2
		return in
	}
	in.rm = uint8(word & 0xF)
	in.shiftType = cpu.ShiftType(word >> 5 & 0x3)
	in.regShift = word>>4&1 != 0
	if in.regShift {
		in.rs = uint8(word >> 8 & 0xF)
	} else {
		in.immShift = word >> 7 & 0x1F
	}
	return in
}

func decodeBranch(word uint32) *instruction {
	offset24 := word & 0x00FFFFFF
	// sign-extend the 24-bit field, then the decoder pre-shifts by <<2
	// per spec.md §4.7 ("pre-shifted by the decoder").
	signExtended := int32(offset24<<8) >> 8
	return &instruction{
		word:        word,
		class:       cpu.OpB_BL,
		link:        word>>24&1 != 0,
		branchWords: signExtended << 2,
	}
}
