// Package workload builds deterministic MMIO transaction sequences against
// the maa package, for the CLI's demo command and for test fixtures --
// standing in for the host CPU model spec.md §1 explicitly puts out of
// scope. Grounded on the teacher's assembler-driven test-program idiom
// (internal/asm's fixture programs), generalized from assembling LC-3
// machine code to scripting MMIO writes against maa.Controller.
package workload

import "github.com/arborsim/maa/internal/maa"

// Transaction is one scripted CPU-side memory operation.
type Transaction struct {
	Cmd  maa.MMIOCommand
	Addr maa.Addr
	Size int
	Data uint64
}

// WriteWord returns a write transaction for a 4-byte value at addr.
func WriteWord(addr maa.Addr, val uint32) Transaction {
	return Transaction{Cmd: maa.CmdWrite, Addr: addr, Size: 4, Data: uint64(val)}
}

// WriteDouble returns a write transaction for an 8-byte value at addr.
func WriteDouble(addr maa.Addr, val uint64) Transaction {
	return Transaction{Cmd: maa.CmdWrite, Addr: addr, Size: 8, Data: val}
}

// ReadWord returns a read transaction for a 4-byte value at addr.
func ReadWord(addr maa.Addr) Transaction {
	return Transaction{Cmd: maa.CmdRead, Addr: addr, Size: 4}
}

// ReadDouble returns a read transaction for an 8-byte value at addr.
func ReadDouble(addr maa.Addr) Transaction {
	return Transaction{Cmd: maa.CmdRead, Addr: addr, Size: 8}
}

// InstructionProgram returns the three instruction-reg write transactions
// that, applied in order to a controller's instruction-reg window, ingest
// instr (spec.md §6).
func InstructionProgram(base maa.Addr, instr maa.Instruction) []Transaction {
	w0, w1, w2 := instr.EncodeWords()

	return []Transaction{
		WriteDouble(base+0, w0),
		WriteDouble(base+8, w1),
		WriteDouble(base+16, w2),
	}
}

// Run applies transactions in order against handle, a thin wrapper over
// (*maa.Controller).HandleCPU, collecting each response synchronously. It
// is meant for test fixtures and the CLI's demo mode, where the scheduler
// driving the controller resolves every response before the next
// transaction is issued.
func Run(handle func(maa.MMIOCommand, maa.Addr, int, uint64, func(uint64, bool)), txns []Transaction) []uint64 {
	results := make([]uint64, len(txns))

	for i, t := range txns {
		handle(t.Cmd, t.Addr, t.Size, t.Data, func(v uint64, ok bool) {
			if ok {
				results[i] = v
			}
		})
	}

	return results
}

// StreamLoadProgram builds a canonical stream-load instruction: dst tile
// dst, optional condition tile cond (maa.NoTile to omit), iterating
// min..max by stride, using the min/max/stride scalar-register convention
// StreamUnit expects (Src1Reg=min, Src2Reg=max, Src3Reg=stride).
func StreamLoadProgram(base maa.Addr, dt maa.DataType, dst, cond maa.TileID, minReg, maxReg, strideReg maa.RegID) maa.Instruction {
	return maa.Instruction{
		Opcode:   maa.StreamLoad,
		DataType: dt,
		Dst1:     dst,
		Dst2:     maa.NoTile,
		Src1:     maa.NoTile,
		Src2:     maa.NoTile,
		Cond:     cond,
		Src1Reg:  minReg,
		Src2Reg:  maxReg,
		Src3Reg:  strideReg,
		Dst1Reg:  maa.NoReg,
		Dst2Reg:  maa.NoReg,
		BaseAddr: base,
	}
}
