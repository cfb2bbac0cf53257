package cpu

import "armcore/util/dbg"

// Decoder classifies a raw 32-bit opcode word into a Decoded value, or
// reports it as ill-formed. Supplied by the external decoder (spec.md
// §6); armcore/internal/decode implements this for the ARM instruction
// set.
type Decoder func(word uint32) (Decoded, error)

// CPU is the ARM7TDMI execution engine: register file, pipeline, and
// ARM-state executor. THUMB-state execution, instruction decoding, and
// the memory bus are external collaborators per spec.md §1.
type CPU struct {
	regs    *Registers
	bus     Bus
	decoder Decoder

	hasDecoded   bool
	decodedInstr Decoded
	decodedAddr  uint32

	hasFetched  bool
	fetchedWord uint32
	fetchedAddr uint32

	flushed bool

	loadStore LoadStoreHandler
}

// New builds a CPU around the given bus and decoder. The pipeline
// starts empty; call Reset before stepping.
func New(bus Bus, decoder Decoder) *CPU {
	return &CPU{
		regs:    NewRegisters(),
		bus:     bus,
		decoder: decoder,
	}
}

func (c *CPU) Registers() *Registers { return c.regs }

// Reset re-enters the CPU into the Reset exception state: PC=0,
// mode=Supervisor, state=ARM, I=1, F=1 (spec.md §4.3, §8).
// EnterException's own changeMode forces those bits on the way in, so
// the CPSR the CPU held the instant before reset survives to be banked
// into SPSR_svc instead of being clobbered first.
func (c *CPU) Reset() {
	c.regs.EnterException(ExceptionReset, 0)
	c.clearPipeline()
}

func (c *CPU) clearPipeline() {
	c.hasDecoded = false
	c.decodedInstr = nil
	c.hasFetched = false
	c.flushed = true
}

// flushPipelineTo sets PC to addr (masked by the caller to the state's
// alignment) and flushes both pipeline slots — used by every
// PC-changing instruction (BX, B/BL, a data-processing write to R15).
func (c *CPU) flushPipelineTo(addr uint32) {
	c.regs.SetR(15, addr)
	c.clearPipeline()
}

// raiseException performs exception entry and flushes the pipeline; it
// never returns an error to the caller's caller — spec.md §7 is
// explicit that exception-raising conditions rewrite state instead of
// propagating.
func (c *CPU) raiseException(e Exception, causePC uint32) {
	dbg.Printf("cpu: raising %s at pc=%#08x\n", e, causePC)
	c.regs.EnterException(e, causePC)
	c.clearPipeline()
}

// Step advances the pipeline by one instruction (spec.md §4.4): the
// previously decoded instruction executes, the previously fetched word
// is decoded, and a new word is fetched at PC. A non-nil error is a
// recoverable Fault (spec.md §7) that left the instruction without
// effect; exception conditions are handled internally and never
// returned.
func (c *CPU) Step() error {
	toExecute, toExecuteAddr, toExecuteValid := c.decodedInstr, c.decodedAddr, c.hasDecoded
	c.flushed = false

	if toExecuteValid {
		if err := c.execute(toExecute, toExecuteAddr); err != nil {
			return err
		}
		if c.flushed {
			return nil
		}
	}

	var newDecoded Decoded
	var newDecodedValid bool
	newDecodedAddr := c.fetchedAddr
	if c.hasFetched {
		d, err := c.decoder(c.fetchedWord)
		if err != nil {
			c.raiseException(ExceptionUndefinedInstruction, c.fetchedAddr)
			return nil
		}
		newDecoded, newDecodedValid = d, true
	}

	pc := c.regs.RawR15()
	word, err := c.bus.FetchWord(pc)
	if err != nil {
		c.raiseException(ExceptionPrefetchAbort, pc)
		return nil
	}

	c.decodedInstr, c.hasDecoded, c.decodedAddr = newDecoded, newDecodedValid, newDecodedAddr
	c.fetchedWord, c.hasFetched, c.fetchedAddr = word, true, pc
	c.regs.SetR(15, pc+4)
	return nil
}

// RaiseInterrupt lets the host driver deliver NormalInterrupt or
// FastInterrupt between steps (spec.md §6's raise_exception). It is the
// host's responsibility to honor the CPSR I/F disable bits before
// calling this; the CPU does not poll for pending interrupts itself.
func (c *CPU) RaiseInterrupt(e Exception) {
	if e != ExceptionNormalInterrupt && e != ExceptionFastInterrupt {
		panic("cpu: RaiseInterrupt called with a non-interrupt exception kind")
	}
	c.raiseException(e, c.regs.RawR15())
}
