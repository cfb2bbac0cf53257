package cpu

// CPSR is the packed 32-bit Current Program Status Register. SPSR slots
// use the same representation.
//
// Bit layout: 31=N 30=Z 29=C 28=V, 27..8 reserved (always zero), 7=I
// 6=F 5=T 4..0=M.
type CPSR uint32

const (
	flagN = 1 << 31
	flagZ = 1 << 30
	flagC = 1 << 29
	flagV = 1 << 28
	flagI = 1 << 7
	flagF = 1 << 6
	flagT = 1 << 5

	modeMask = 0x1F

	// nonReservedMask covers NZCV and IFTM..M; bits 27..8 are reserved
	// and must always read/write as zero.
	nonReservedMask = flagN | flagZ | flagC | flagV | flagI | flagF | flagT | modeMask

	// flagsMask covers only bits 31..24, the "flags-only" write target.
	flagsMask = 0xFF000000
)

// Raw returns the packed word with reserved bits forced to zero.
func (c CPSR) Raw() uint32 { return uint32(c) & nonReservedMask }

func (c CPSR) FlagN() bool { return uint32(c)&flagN != 0 }
func (c CPSR) FlagZ() bool { return uint32(c)&flagZ != 0 }
func (c CPSR) FlagC() bool { return uint32(c)&flagC != 0 }
func (c CPSR) FlagV() bool { return uint32(c)&flagV != 0 }
func (c CPSR) IRQDisabled() bool { return uint32(c)&flagI != 0 }
func (c CPSR) FIQDisabled() bool { return uint32(c)&flagF != 0 }
func (c CPSR) State() State      { return StateFromBit(uint32(c)&flagT != 0) }
func (c CPSR) Mode() Mode        { return Mode(uint32(c) & modeMask) }

// ConditionBits extracts NZCV packed into the low 4 bits, matching the
// order a condition-code table expects (N Z C V, N in bit 3).
func (c CPSR) ConditionBits() uint8 {
	var bits uint8
	if c.FlagN() {
		bits |= 0x8
	}
	if c.FlagZ() {
		bits |= 0x4
	}
	if c.FlagC() {
		bits |= 0x2
	}
	if c.FlagV() {
		bits |= 0x1
	}
	return bits
}

func setBit(c CPSR, mask uint32, v bool) CPSR {
	if v {
		return CPSR(uint32(c) | mask)
	}
	return CPSR(uint32(c) &^ mask)
}

func (c CPSR) WithFlagN(v bool) CPSR { return setBit(c, flagN, v) }
func (c CPSR) WithFlagZ(v bool) CPSR { return setBit(c, flagZ, v) }
func (c CPSR) WithFlagC(v bool) CPSR { return setBit(c, flagC, v) }
func (c CPSR) WithFlagV(v bool) CPSR { return setBit(c, flagV, v) }
func (c CPSR) WithIRQDisabled(v bool) CPSR { return setBit(c, flagI, v) }
func (c CPSR) WithFIQDisabled(v bool) CPSR { return setBit(c, flagF, v) }

func (c CPSR) WithState(s State) CPSR {
	return setBit(c, flagT, s == StateTHUMB)
}

// WithMode sets the mode field without validating it; callers that accept
// an arbitrary source word (MSR) must validate separately before relying
// on CPU behavior, since an illegal pattern is a fatal IllegalCPUState
// the moment it is actually used to select a bank.
func (c CPSR) WithMode(m Mode) CPSR {
	return CPSR(uint32(c)&^uint32(modeMask) | uint32(m)&modeMask)
}

// WriteWhole implements the "whole PSR" write interface from the spec:
// every non-reserved bit is taken from src, reserved bits are preserved
// from the destination (c).
func (c CPSR) WriteWhole(src uint32) CPSR {
	return CPSR(uint32(c)&^uint32(nonReservedMask) | src&nonReservedMask)
}

// WriteFlags implements the "flags-only" write interface: only bits
// 31..24 (N,Z,C,V and the four reserved bits above them, which stay
// masked to zero) are taken from src.
func (c CPSR) WriteFlags(src uint32) CPSR {
	return CPSR(uint32(c)&^uint32(flagsMask) | src&flagsMask&nonReservedMask)
}
