package cpu

// Exception identifies one of the eight vectored exception kinds.
type Exception uint8

const (
	ExceptionReset Exception = iota
	ExceptionDataAbort
	ExceptionFastInterrupt
	ExceptionAddressExceeds26Bit
	ExceptionNormalInterrupt
	ExceptionPrefetchAbort
	ExceptionSoftwareInterrupt
	ExceptionUndefinedInstruction
)

type exceptionInfo struct {
	priority   int
	entryMode  Mode
	disableFIQ bool
	vector     uint32
	// lrOffset is added to the raw (non-prefetch-adjusted) PC of the
	// instruction that caused the exception to produce the return
	// address stored in the entry mode's R14.
	lrOffset uint32
}

var exceptionTable = map[Exception]exceptionInfo{
	ExceptionReset:                {priority: 1, entryMode: ModeSupervisor, disableFIQ: true, vector: 0x00, lrOffset: 0},
	ExceptionDataAbort:            {priority: 2, entryMode: ModeAbort, disableFIQ: false, vector: 0x10, lrOffset: 8},
	ExceptionFastInterrupt:        {priority: 3, entryMode: ModeFIQ, disableFIQ: true, vector: 0x1C, lrOffset: 8},
	ExceptionAddressExceeds26Bit:  {priority: 3, entryMode: ModeSupervisor, disableFIQ: false, vector: 0x14, lrOffset: 8},
	ExceptionNormalInterrupt:      {priority: 4, entryMode: ModeIRQ, disableFIQ: false, vector: 0x18, lrOffset: 8},
	ExceptionPrefetchAbort:        {priority: 5, entryMode: ModeAbort, disableFIQ: false, vector: 0x0C, lrOffset: 8},
	ExceptionSoftwareInterrupt:    {priority: 6, entryMode: ModeSupervisor, disableFIQ: false, vector: 0x08, lrOffset: 4},
	ExceptionUndefinedInstruction: {priority: 7, entryMode: ModeUndefined, disableFIQ: false, vector: 0x04, lrOffset: 4},
}

func (e Exception) info() exceptionInfo {
	info, ok := exceptionTable[e]
	if !ok {
		panic("cpu: unknown exception kind")
	}
	return info
}

func (e Exception) Priority() int    { return e.info().priority }
func (e Exception) EntryMode() Mode  { return e.info().entryMode }
func (e Exception) DisableFIQ() bool { return e.info().disableFIQ }
func (e Exception) Vector() uint32   { return e.info().vector }

func (e Exception) String() string {
	switch e {
	case ExceptionReset:
		return "Reset"
	case ExceptionDataAbort:
		return "DataAbort"
	case ExceptionFastInterrupt:
		return "FastInterrupt"
	case ExceptionAddressExceeds26Bit:
		return "AddressExceeds26Bit"
	case ExceptionNormalInterrupt:
		return "NormalInterrupt"
	case ExceptionPrefetchAbort:
		return "PrefetchAbort"
	case ExceptionSoftwareInterrupt:
		return "SoftwareInterrupt"
	case ExceptionUndefinedInstruction:
		return "UndefinedInstruction"
	default:
		return "Exception(?)"
	}
}

// changeMode is the single chokepoint for every CPSR mode transition:
// a privileged MSR writing new mode bits, exception entry, and
// exception return (via an S-bit data-processing write with Rd==R15)
// all funnel through it. newCPSR is the fully-computed CPSR to install
// once banking completes (its mode field selects the banks); the SPSR
// save (step 3) uses the CPSR value as it stood before this call, per
// spec.md §4.2's step ordering (SPSR save precedes the mode-bit update
// in step 6). entryLR is nil for a non-exception change; when non-nil
// it is stored into the new mode's R14 (step 4 ties the return-address
// write to exception entry specifically, so a plain MSR-driven mode
// switch must not clobber LR with the current PC).
func (r *Registers) changeMode(newCPSR CPSR, entryLR *uint32) {
	oldMode := r.Mode()
	newMode := newCPSR.Mode()
	preChangeCPSR := r.cpsr

	r.SaveVisibleR13R14(oldMode)
	if newMode.HasSPSR() {
		r.spsr[bankIndex[newMode]] = preChangeCPSR
	}
	r.LoadBankedR13R14(newMode)
	if entryLR != nil {
		r.r[14] = *entryLR
	}

	oldFIQ := oldMode == ModeFIQ
	newFIQ := newMode == ModeFIQ
	if oldFIQ != newFIQ {
		r.SwapFIQBank(newFIQ)
	}

	r.cpsr = newCPSR
}

// EnterException performs the full §4.3 entry procedure: a mode change
// into the exception's entry mode (R14 set to the computed return
// address), state forced to ARM, I set, F set iff required, PC set to
// the vector address.
//
// causePC is the raw (non-prefetch-adjusted) address of the instruction
// that triggered the exception; for Reset it is ignored since PC is
// zeroed before entry runs.
func (r *Registers) EnterException(e Exception, causePC uint32) {
	info := e.info()

	if e == ExceptionReset {
		r.r[15] = 0
	}

	target := r.cpsr.WithMode(info.entryMode).WithState(StateARM).WithIRQDisabled(true).WithFIQDisabled(info.disableFIQ)
	retAddr := causePC + info.lrOffset
	r.changeMode(target, &retAddr)

	r.r[15] = info.vector
}
