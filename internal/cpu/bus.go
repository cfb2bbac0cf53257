package cpu

// Bus is the memory-bus boundary from spec.md §6: word-aligned fetch
// for the pipeline, plus byte/halfword/word load and store for data
// transfers. A non-nil error from any method is a bus fault, which the
// CPU translates into PrefetchAbort (fetch) or DataAbort (load/store) —
// never propagated to the host as a returned error.
type Bus interface {
	FetchWord(addr uint32) (uint32, error)

	ReadByte(addr uint32) (uint8, error)
	ReadHalf(addr uint32) (uint16, error)
	ReadWord(addr uint32) (uint32, error)

	WriteByte(addr uint32, v uint8) error
	WriteHalf(addr uint32, v uint16) error
	WriteWord(addr uint32, v uint32) error
}
