package cpu

// Registers is the ARM7TDMI register file: sixteen visible general
// registers plus banked shadow storage for R8..R12 (FIQ only), R13, R14,
// and one SPSR per privileged mode.
//
// Banking is a dense table indexed by mode rather than one named field
// per bank (SP_svc, LR_svc, ...) — a mode change becomes a pair of table
// accesses instead of a per-mode switch, and there is nowhere for a bank
// to be forgotten when a new mode is added.
type Registers struct {
	r [16]uint32

	// r13Bank/r14Bank are indexed by bankIndex[mode]; the current mode's
	// slot is kept in sync with r[13]/r[14] by SaveVisible/LoadVisible
	// rather than read live, so the visible registers are always the
	// single source of truth while executing.
	r13Bank [7]uint32
	r14Bank [7]uint32

	r8r12FIQ   [5]uint32
	r8r12Other [5]uint32

	spsr [7]CPSR

	cpsr CPSR
}

// NewRegisters returns a zeroed register file. Reset (not this
// constructor) establishes the documented post-reset state.
func NewRegisters() *Registers {
	return &Registers{}
}

func (r *Registers) CPSR() CPSR     { return r.cpsr }
func (r *Registers) SetCPSR(c CPSR) { r.cpsr = c }

func (r *Registers) Mode() Mode { return r.cpsr.Mode() }

// SPSR returns the current mode's saved PSR, or 0 if the mode has none.
func (r *Registers) SPSR() CPSR {
	m := r.Mode()
	if !m.HasSPSR() {
		return 0
	}
	return r.spsr[bankIndex[m]]
}

// SetSPSR writes the current mode's saved PSR; a no-op if the mode has
// none (User/System).
func (r *Registers) SetSPSR(c CPSR) {
	m := r.Mode()
	if !m.HasSPSR() {
		return
	}
	r.spsr[bankIndex[m]] = c
}

// R reads a general register by number, applying the R15 prefetch offset
// for ARM-state reads (PC+8) and THUMB-state reads (PC+4). All register
// reads funnel through here rather than raw slice indexing so the
// prefetch offset can never be forgotten at a call site.
func (r *Registers) R(n uint8) uint32 {
	if n == 15 {
		if r.cpsr.State() == StateTHUMB {
			return r.r[15] + 4
		}
		return r.r[15] + 8
	}
	return r.r[n]
}

// RawR15 returns PC with no prefetch offset applied — the value an
// exception return address or a branch target is computed relative to.
func (r *Registers) RawR15() uint32 { return r.r[15] }

// SetR writes a general register. Writing R15 always flushes the
// caller's pipeline; SetR itself only stores the value (masked by the
// caller to the correct alignment) — the pipeline flush is the CPU's
// responsibility since Registers has no pipeline of its own.
func (r *Registers) SetR(n uint8, v uint32) {
	r.r[n] = v
}

// SaveVisibleR13R14 stores the currently-visible R13/R14 into mode's
// bank (step 2 of the mode-change protocol).
func (r *Registers) SaveVisibleR13R14(mode Mode) {
	i := bankIndex[mode]
	r.r13Bank[i] = r.r[13]
	r.r14Bank[i] = r.r[14]
}

// LoadBankedR13R14 loads mode's banked R13/R14 into the visible
// registers (step 4 of the mode-change protocol).
func (r *Registers) LoadBankedR13R14(mode Mode) {
	i := bankIndex[mode]
	r.r[13] = r.r13Bank[i]
	r.r[14] = r.r14Bank[i]
}

// SwapFIQBank exchanges the visible R8..R12 with the FIQ bank if
// entering is true, or with the "other" bank if entering is false,
// saving whichever set was visible into the opposite bank first. Used
// only when exactly one of old/new mode is FIQ.
func (r *Registers) SwapFIQBank(enteringFIQ bool) {
	if enteringFIQ {
		for i := 0; i < 5; i++ {
			r.r8r12Other[i] = r.r[8+i]
			r.r[8+i] = r.r8r12FIQ[i]
		}
		return
	}
	for i := 0; i < 5; i++ {
		r.r8r12FIQ[i] = r.r[8+i]
		r.r[8+i] = r.r8r12Other[i]
	}
}
