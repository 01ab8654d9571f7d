package maa

// rf.go implements the register file (C3): a small array of scalar
// registers, presented as both 32-bit and 64-bit views over the same
// backing array -- the same pairing idiom the scratchpad uses for 64-bit
// tiles, generalized from the teacher's RegisterFile
// ([NumGPR]Register).

// RF is the MAA's scalar register file.
type RF struct {
	regs []Word
}

// NewRF allocates a register file of cfg.NumRegs 32-bit registers.
func NewRF(cfg Config) *RF {
	return &RF{regs: make([]Word, cfg.NumRegs)}
}

// Read32 returns a register's 32-bit value. Side-effect free, single-cycle,
// per spec.md §4.3.
func (rf *RF) Read32(id RegID) Word {
	return rf.regs[id]
}

// Write32 sets a register's 32-bit value.
func (rf *RF) Write32(id RegID, val Word) {
	rf.regs[id] = val
}

// Read64 returns the 64-bit value formed by regs[id] (low) and regs[id+1]
// (high).
func (rf *RF) Read64(id RegID) uint64 {
	lo := uint64(rf.regs[id])
	hi := uint64(rf.regs[id+1])

	return lo | hi<<32
}

// Write64 sets the 64-bit value spanning regs[id] and regs[id+1].
func (rf *RF) Write64(id RegID, val uint64) {
	rf.regs[id] = Word(val)
	rf.regs[id+1] = Word(val >> 32)
}
